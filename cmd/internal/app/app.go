// Package app wires the tabula server runtime: config, logging, storage and HTTP routes.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"tabula/cmd/identity"
	authapi "tabula/cmd/internal/auth/api"
	"tabula/cmd/internal/auth/session"
	workbookapi "tabula/cmd/internal/workbook/api"
	"tabula/cmd/security/password"
	"tabula/cmd/security/token"
	"tabula/cmd/workbook"
)

// App is the tabula server runtime: it owns the store and the HTTP handler tree.
type App struct {
	cfg Config
	log Logger

	store   *storeHandle
	metrics *Metrics
	handler http.Handler
}

// New constructs a fully wired App from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	hasher, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewService([]byte(cfg.TokenSecret), token.WithMinSecretBytes(tokenMinBytes(cfg)))
	if err != nil {
		return nil, err
	}

	st, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	ids, err := identity.NewStore(st.kv, hasher)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	sessions := session.NewService(ids, tokens, hasher, log)

	var m *Metrics
	var authOpts []authapi.HandlerOption
	if cfg.MetricsEnabled {
		m = NewMetrics()
		authOpts = append(authOpts, authapi.WithLoginCounter(m.logins))
	}

	auth, err := authapi.NewHandler(log, authapi.Config{MaxBodyBytes: int64(cfg.MaxBodyBytes)}, sessions, authOpts...)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	wb := workbookapi.NewHandler(log,
		workbookapi.Config{MaxBodyBytes: int64(cfg.MaxBodyBytes)},
		workbook.NewConfigStore(st.kv),
		workbook.NewRecordStore(st.kv),
	)

	mux := http.NewServeMux()
	registerHTTP(mux, routes{cfg: cfg, log: log, store: st, metrics: m, auth: auth, workbook: wb})

	return &App{
		cfg:     cfg,
		log:     log,
		store:   st,
		metrics: m,
		handler: buildHandler(mux, cfg, log, m),
	}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Close releases the store. Run calls it on shutdown.
func (a *App) Close() error { return a.store.Close() }

// Run starts the HTTP server and blocks until context cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Error("store.close.fail", "err", err)
		}
	}()

	ln, err := net.Listen("tcp", a.cfg.HTTPAddr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start",
		"addr", ln.Addr().String(),
		"url", runtimeBaseURL(ln.Addr().String()),
		"store", a.store.driver,
		"metrics", a.metrics != nil,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// runtimeBaseURL turns a listen address into a URL a local client can dial.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
