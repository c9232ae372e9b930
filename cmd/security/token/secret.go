package token

import "strings"

const (
	// SecretEnvKey is the env var name for the token signing secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	SecretEnvKey = "TABULA_TOKEN_SECRET"

	// StrongSecretBytes is the minimum key size enforced under the strong-secret policy.
	StrongSecretBytes = 32
)

// CheckSecret enforces the presence and minimum byte length of a signing secret.
// Blank (after trim) -> ErrSecretMissing; shorter than minBytes -> ErrSecretTooShort.
// Length is measured in bytes because the key is used as raw bytes.
func CheckSecret(secret []byte, minBytes int) error {
	if strings.TrimSpace(string(secret)) == "" {
		return ErrSecretMissing
	}
	if minBytes > 0 && len(secret) < minBytes {
		return ErrSecretTooShort
	}
	return nil
}
