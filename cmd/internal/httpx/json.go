// Package httpx holds the JSON response and request helpers shared by the HTTP handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"tabula/cmd/internal/fault"
)

// Client-facing messages for routing and unexpected faults.
const (
	MsgNotFound         = "路由未找到"
	MsgMethodNotAllowed = "方法不允许"
	MsgInternal         = "服务器错误"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v with status and no-store caching.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorBody{Error: msg})
}

// WriteFault maps err through the fault taxonomy and writes the envelope.
//
// Store errors carry their cause as details. Errors with no known kind are
// reported as {"error": fallback, "message": err}.
func WriteFault(w http.ResponseWriter, log *slog.Logger, err error, fallback string) {
	if fallback == "" {
		fallback = MsgInternal
	}
	status := fault.Status(err)

	if !fault.Known(err) {
		if log != nil {
			log.Error("http.fault.unmapped", "err", err)
		}
		WriteJSON(w, status, ErrorBody{Error: fallback, Message: err.Error()})
		return
	}

	body := ErrorBody{Error: fault.Message(err)}
	if body.Error == "" {
		body.Error = fallback
	}
	if fault.IsStore(err) || fault.IsConfiguration(err) {
		if log != nil {
			log.Error("http.fault", "status", status, "err", err)
		}
		if cause := fault.Cause(err); cause != nil && fault.IsStore(err) {
			body.Details = cause.Error()
		}
	}
	WriteJSON(w, status, body)
}

// WriteNotFound writes the 404 envelope.
func WriteNotFound(w http.ResponseWriter) {
	WriteFault(w, nil, fault.NotFound("httpx.route", MsgNotFound), MsgNotFound)
}

// WriteMethodNotAllowed writes the 405 envelope and the Allow header.
func WriteMethodNotAllowed(w http.ResponseWriter, allow string) {
	if allow != "" {
		w.Header().Set("Allow", allow)
	}
	WriteFault(w, nil, fault.Method("httpx.route", MsgMethodNotAllowed), MsgMethodNotAllowed)
}

// ErrEmptyBody is returned by DecodeJSON when the request has no body.
var ErrEmptyBody = errors.New("empty body")

// DecodeJSON decodes exactly one JSON value from r into dst, reading at most maxBytes.
// Unknown fields are tolerated.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON value")
	}
	return nil
}
