// Package authapi exposes the login and token verification endpoints and the
// bearer-token gate used by every protected route.
package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"tabula/cmd/internal/auth/session"
	"tabula/cmd/internal/fault"
	"tabula/cmd/internal/httpx"
)

// Handler wires HTTP auth endpoints to the session service.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions *session.Service
	now      func() time.Time

	logins *prometheus.CounterVec
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithClock overrides the time source used for token issue and expiry checks.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// WithLoginCounter records login outcomes under the "result" label.
func WithLoginCounter(c *prometheus.CounterVec) HandlerOption {
	return func(h *Handler) { h.logins = c }
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, opts ...HandlerOption) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("authapi: nil session service")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires auth routes onto the provided mux.
// Anything else under /api/auth/ is answered with 405.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/verify", h.handleVerify)
	mux.HandleFunc("/api/auth/", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteMethodNotAllowed(w, "")
	})
}

// ---- handlers ----

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteMethodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.maxBody(), &req); err != nil {
		h.observe("invalid_request")
		httpx.WriteError(w, http.StatusBadRequest, MsgInvalidBody)
		return
	}

	issued, err := h.sessions.Login(r.Context(), req.Username, req.Password, h.now())
	if err != nil {
		switch {
		case fault.IsValidation(err):
			h.observe("invalid_request")
		case fault.IsAuth(err):
			h.observe("invalid_credentials")
			h.log.Info("auth.login.reject")
		default:
			h.observe("error")
			h.log.Error("auth.login.fail", "err", err)
		}
		httpx.WriteFault(w, h.log, err, session.MsgLoginFailed)
		return
	}

	if issued.Bootstrapped {
		h.observe("bootstrap")
	} else {
		h.observe("success")
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Token:     issued.Token,
		ExpiresIn: issued.ExpiresIn,
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteMethodNotAllowed(w, http.MethodGet)
		return
	}
	p, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, verifyResponse{Valid: true, User: p.Username})
}

func (h *Handler) observe(result string) {
	if h.logins != nil {
		h.logins.WithLabelValues(result).Inc()
	}
}

// ---- gate ----

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated principal in the request context.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := h.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithPrincipal(r.Context(), p)))
	})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (session.Principal, bool) {
	raw := bearerToken(r)
	if raw == "" {
		httpx.WriteError(w, http.StatusUnauthorized, session.MsgUnauthorized)
		return session.Principal{}, false
	}
	p, err := h.sessions.Authenticate(raw, h.now())
	if err != nil {
		httpx.WriteFault(w, h.log, err, session.MsgTokenInvalid)
		return session.Principal{}, false
	}
	return p, true
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
