package password

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Version = 19 // argon2.Version is 0x13 (19)

// DeriveHash returns hex(SHA-256(password + salt)).
func DeriveHash(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(sum[:])
}

// Hash derives a digest for password with salt using the configured scheme.
//
// The returned scheme string must be stored with the digest. An empty scheme
// denotes SHA-256, matching identity records that predate scheme tagging.
func (c Config) Hash(password, salt string) (digest, scheme string, err error) {
	switch c.Scheme {
	case "", SchemeSHA256:
		return DeriveHash(password, salt), "", nil
	case SchemeArgon2id:
		p := c.Params
		key := argon2.IDKey([]byte(password), []byte(salt), p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
		return hex.EncodeToString(key), encodeArgon2id(p), nil
	default:
		return "", "", ErrUnknownScheme
	}
}

// Verify recomputes the digest of password under scheme and compares it with
// storedHash in constant time.
// Returns (true, nil) for a match, (false, nil) for mismatch, and an error for
// unknown schemes or malformed stored values.
func (c Config) Verify(password, storedHash, salt, scheme string) (bool, error) {
	expected, err := hex.DecodeString(storedHash)
	if err != nil || len(expected) == 0 {
		return false, ErrInvalidHash
	}

	var got []byte
	switch {
	case scheme == "" || scheme == SchemeSHA256:
		sum := sha256.Sum256([]byte(password + salt))
		got = sum[:]
	case strings.HasPrefix(scheme, SchemeArgon2id+"$"):
		params, err := decodeArgon2id(scheme)
		if err != nil {
			return false, err
		}
		// Anti-DoS boundary: refuse parameters far above what we would produce.
		if !withinReasonableBounds(params, c.Params) {
			return false, ErrInvalidHash
		}
		if len(expected) < 16 || len(expected) > 128 {
			return false, ErrInvalidHash
		}
		got = argon2.IDKey(
			[]byte(password),
			[]byte(salt),
			params.Iterations,
			params.MemoryKiB,
			params.Parallelism,
			uint32(len(expected)), // #nosec G115 -- bounded above.
		)
	default:
		return false, ErrUnknownScheme
	}

	return subtle.ConstantTimeCompare(got, expected) == 1, nil
}

// encodeArgon2id renders params as "argon2id$v=19$m=<mem>,t=<iter>,p=<par>".
func encodeArgon2id(p Argon2idParams) string {
	return fmt.Sprintf("%s$v=%d$m=%d,t=%d,p=%d", SchemeArgon2id, argon2Version, p.MemoryKiB, p.Iterations, p.Parallelism)
}

func decodeArgon2id(scheme string) (Argon2idParams, error) {
	parts := strings.Split(scheme, "$")
	if len(parts) != 3 || parts[0] != SchemeArgon2id || parts[1] != "v=19" {
		return Argon2idParams{}, ErrInvalidHash
	}

	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return Argon2idParams{}, ErrInvalidHash
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return Argon2idParams{}, ErrInvalidHash
	}

	return Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par), // #nosec G115 -- checked above.
	}, nil
}

func withinReasonableBounds(got, limits Argon2idParams) bool {
	// Allow older/smaller settings, reject wildly larger ones.
	if got.MemoryKiB > limits.MemoryKiB*2 {
		return false
	}
	if got.Iterations > limits.Iterations*2 {
		return false
	}
	if uint32(got.Parallelism) > uint32(limits.Parallelism)*2 {
		return false
	}
	return true
}
