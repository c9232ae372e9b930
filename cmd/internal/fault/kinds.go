package fault

import "errors"

// Sentinel error kinds (stable for errors.Is and for mapping to API status codes).
var (
	ErrValidation    = errors.New("validation")
	ErrAuth          = errors.New("unauthorized")
	ErrNotFound      = errors.New("not_found")
	ErrMethod        = errors.New("method_not_allowed")
	ErrStore         = errors.New("store")
	ErrConfiguration = errors.New("configuration")
)
