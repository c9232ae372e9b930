package token

import (
	"errors"
	"fmt"
)

// Public, stable errors for callers.
var (
	ErrSecretMissing  = errors.New("token signing secret missing")
	ErrSecretTooShort = errors.New("token signing secret too short")

	// ErrInvalidToken is the umbrella for every verification failure.
	// Callers that talk to clients should only ever report this one.
	ErrInvalidToken = errors.New("invalid token")

	ErrMalformed = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrExpired   = fmt.Errorf("%w: expired", ErrInvalidToken)
)
