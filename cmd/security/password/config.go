package password

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Scheme names accepted by Config.Scheme.
const (
	SchemeSHA256   = "sha256"
	SchemeArgon2id = "argon2id"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	// MaxLength <= 0 disables the upper bound.
	MaxLength int
}

// Config is the single configuration surface for this package.
type Config struct {
	// Scheme used for newly hashed passwords. Verification accepts every scheme.
	Scheme string
	Params Argon2idParams
	Policy Policy
}

// DefaultConfig returns the login-compatible baseline: SHA-256 digests and a
// six character minimum.
func DefaultConfig() Config {
	// Clamp parallelism to [1..4] to keep resource usage predictable in containers.
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Scheme: SchemeSHA256,
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			KeyLength:   32,
		},
		Policy: Policy{
			MinLength: 6,
			MaxLength: 1024,
		},
	}
}

// FromEnv loads Config from environment variables on top of DefaultConfig.
//
// Supported variables:
//   - TABULA_PASSWORD_SCHEME: sha256 | argon2id
//   - TABULA_PASSWORD_MIN_LEN, TABULA_PASSWORD_MAX_LEN
//   - TABULA_ARGON2_MEMORY_KIB, TABULA_ARGON2_ITERATIONS, TABULA_ARGON2_PARALLELISM
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("TABULA_PASSWORD_SCHEME"); ok {
		s := strings.ToLower(strings.TrimSpace(v))
		switch s {
		case SchemeSHA256, SchemeArgon2id:
			cfg.Scheme = s
		default:
			return Config{}, fmt.Errorf("TABULA_PASSWORD_SCHEME: %w: %q", ErrUnknownScheme, v)
		}
	}

	if v, ok := os.LookupEnv("TABULA_PASSWORD_MIN_LEN"); ok {
		n, err := atoiInRange(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("TABULA_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("TABULA_PASSWORD_MAX_LEN"); ok {
		n, err := atoiInRange(v, 1, 1<<16)
		if err != nil {
			return Config{}, fmt.Errorf("TABULA_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if v, ok := os.LookupEnv("TABULA_ARGON2_MEMORY_KIB"); ok {
		u, err := atou32(v, 8*1024, 1024*1024) // 8 MiB .. 1 GiB
		if err != nil {
			return Config{}, fmt.Errorf("TABULA_ARGON2_MEMORY_KIB: %w", err)
		}
		cfg.Params.MemoryKiB = u
	}

	if v, ok := os.LookupEnv("TABULA_ARGON2_ITERATIONS"); ok {
		u, err := atou32(v, 1, 20)
		if err != nil {
			return Config{}, fmt.Errorf("TABULA_ARGON2_ITERATIONS: %w", err)
		}
		cfg.Params.Iterations = u
	}

	if v, ok := os.LookupEnv("TABULA_ARGON2_PARALLELISM"); ok {
		u, err := atou32(v, 1, math.MaxUint8)
		if err != nil {
			return Config{}, fmt.Errorf("TABULA_ARGON2_PARALLELISM: %w", err)
		}
		cfg.Params.Parallelism = uint8(u) // #nosec G115 -- bounded by atou32 above.
	}

	if cfg.Policy.MaxLength > 0 && cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiInRange(s string, minVal, maxVal int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if n < minVal || n > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return n, nil
}

func atou32(s string, minVal, maxVal uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an unsigned integer")
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return u, nil
}
