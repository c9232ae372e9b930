package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a typed operation error with a stable Op + Kind contract.
//
// Msg is safe to show to API clients. Err is the underlying cause and is only
// surfaced as details for store failures.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %v: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Validation reports malformed or out-of-range input.
func Validation(op, msg string) error {
	return Error{Op: op, Kind: ErrValidation, Msg: msg}
}

// Auth reports missing or rejected credentials.
func Auth(op, msg string) error {
	return Error{Op: op, Kind: ErrAuth, Msg: msg}
}

// NotFound reports an unmatched route.
func NotFound(op, msg string) error {
	return Error{Op: op, Kind: ErrNotFound, Msg: msg}
}

// Method reports an unsupported verb.
func Method(op, msg string) error {
	return Error{Op: op, Kind: ErrMethod, Msg: msg}
}

// Store reports an unavailable or failing persistence layer.
func Store(op, msg string, err error) error {
	return Error{Op: op, Kind: ErrStore, Msg: msg, Err: err}
}

// Configuration reports a missing or invalid startup setting.
func Configuration(op, msg string, err error) error {
	return Error{Op: op, Kind: ErrConfiguration, Msg: msg, Err: err}
}

// IsValidation reports whether err represents ErrValidation.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsAuth reports whether err represents ErrAuth.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// IsStore reports whether err represents ErrStore.
func IsStore(err error) bool { return errors.Is(err, ErrStore) }

// IsConfiguration reports whether err represents ErrConfiguration.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// Status maps err to an HTTP status code. Unknown errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrMethod):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the client-safe message of the outermost Error in the chain, if any.
func Message(err error) string {
	var fe Error
	if errors.As(err, &fe) {
		return fe.Msg
	}
	return ""
}

// Cause returns the underlying cause of the outermost Error in the chain, if any.
func Cause(err error) error {
	var fe Error
	if errors.As(err, &fe) {
		return fe.Err
	}
	return nil
}

// Known reports whether err carries one of the sentinel kinds.
func Known(err error) bool {
	for _, k := range []error{ErrValidation, ErrAuth, ErrNotFound, ErrMethod, ErrStore, ErrConfiguration} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
