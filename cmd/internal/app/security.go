package app

import (
	"errors"
	"fmt"

	"tabula/cmd/internal/fault"
	"tabula/cmd/security/token"
)

// ValidateSecurityConfig checks the token secret before anything is served.
// A missing or short secret aborts startup.
func ValidateSecurityConfig(cfg Config) error {
	const op = "app.ValidateSecurityConfig"

	minBytes := tokenMinBytes(cfg)
	err := token.CheckSecret([]byte(cfg.TokenSecret), minBytes)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, token.ErrSecretMissing):
		return fault.Configuration(op, fmt.Sprintf("security policy: %s is not set", token.SecretEnvKey), err)
	case errors.Is(err, token.ErrSecretTooShort):
		return fault.Configuration(op, fmt.Sprintf("security policy: %s is too short (min %d bytes)", token.SecretEnvKey, minBytes), err)
	default:
		return fault.Configuration(op, "security policy", err)
	}
}

// tokenMinBytes is the length enforced by the token service itself.
func tokenMinBytes(cfg Config) int {
	if cfg.RequireStrongSecret && cfg.TokenMinSecretBytes < token.StrongSecretBytes {
		return token.StrongSecretBytes
	}
	return cfg.TokenMinSecretBytes
}
