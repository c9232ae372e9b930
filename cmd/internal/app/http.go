package app

import (
	"net/http"
	"time"

	authapi "tabula/cmd/internal/auth/api"
	"tabula/cmd/internal/httpx"
	workbookapi "tabula/cmd/internal/workbook/api"
)

type routes struct {
	cfg      Config
	log      Logger
	store    *storeHandle
	metrics  *Metrics
	auth     *authapi.Handler
	workbook *workbookapi.Handler
}

func registerHTTP(mux *http.ServeMux, rt routes) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if rt.cfg.ReadinessRequirePersistent && (rt.store == nil || !rt.store.persistent) {
			http.Error(w, "store not persistent", http.StatusServiceUnavailable)
			return
		}
		if err := rt.store.Ping(r.Context(), 2*time.Second); err != nil {
			rt.log.Info("readyz.store.not_ready", "err", err)
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if rt.metrics != nil {
		mux.Handle(rt.cfg.MetricsPath, rt.metrics.Handler())
	}

	rt.auth.Register(mux)
	rt.workbook.Register(mux, rt.auth.RequireAuth)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteNotFound(w)
	})
}

// buildHandler applies the middleware chain. Outermost first: request id,
// logging, metrics, CORS, panic recovery.
func buildHandler(mux http.Handler, cfg Config, log Logger, m *Metrics) http.Handler {
	h := WithRecovery(mux, log)
	h = WithCORS(h, cfg, log)
	if m != nil {
		h = m.Middleware(h)
	}
	h = WithRequestLogging(h, log)
	return WithRequestID(h)
}
