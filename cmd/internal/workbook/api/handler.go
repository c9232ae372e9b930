// Package workbookapi serves the page configuration and per-page record
// endpoints. Every route it registers sits behind the bearer-token gate.
package workbookapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"tabula/cmd/internal/auth/session"
	"tabula/cmd/internal/fault"
	"tabula/cmd/internal/httpx"
	"tabula/cmd/workbook"
)

// Gate wraps a protected handler.
type Gate func(http.Handler) http.Handler

// Handler serves /api/config and /api/records/{pageID}.
type Handler struct {
	log *slog.Logger
	cfg Config

	configs *workbook.ConfigStore
	records *workbook.RecordStore
}

// NewHandler constructs a Handler. Nil stores are allowed; their operations
// answer with the unbound-store error.
func NewHandler(log *slog.Logger, cfg Config, configs *workbook.ConfigStore, records *workbook.RecordStore) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, cfg: cfg, configs: configs, records: records}
}

// Register wires the workbook routes onto mux behind gate.
// Unknown paths under /api/ are answered with 404 once the gate has passed.
func (h *Handler) Register(mux *http.ServeMux, gate Gate) {
	if h == nil || mux == nil {
		return
	}
	if gate == nil {
		gate = func(next http.Handler) http.Handler { return next }
	}

	config := gate(http.HandlerFunc(h.handleConfig))
	mux.Handle("/api/config", config)
	mux.Handle("/api/config/{$}", config)
	mux.Handle("/api/records/{pageID}", gate(http.HandlerFunc(h.handleRecords)))
	mux.Handle("/api/", gate(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteNotFound(w)
	})))
}

// ---- config ----

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		c, err := h.configs.Get(r.Context())
		if err != nil {
			h.writeFault(w, err, workbook.MsgConfigGetFail)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, c)

	case http.MethodPost:
		raw, err := h.readBody(w, r)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, workbook.MsgConfigInvalid)
			return
		}
		c, err := workbook.DecodeConfiguration(raw)
		if err != nil {
			h.writeFault(w, err, workbook.MsgConfigInvalid)
			return
		}
		if err := h.configs.Put(r.Context(), c); err != nil {
			h.writeFault(w, err, workbook.MsgConfigPutFail)
			return
		}
		h.log.Info("workbook.config.saved", "pages", len(c.Pages))
		httpx.WriteJSON(w, http.StatusOK, saveResponse{Success: true, Message: MsgConfigSaved})

	default:
		httpx.WriteMethodNotAllowed(w, "GET, POST")
	}
}

// ---- records ----

func (h *Handler) handleRecords(w http.ResponseWriter, r *http.Request) {
	pageID := r.PathValue("pageID")
	if strings.TrimSpace(pageID) == "" {
		httpx.WriteNotFound(w)
		return
	}
	p, ok := session.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, session.MsgUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rows, err := h.records.Get(r.Context(), p.Username, pageID)
		if err != nil {
			h.writeFault(w, err, workbook.MsgRowsGetFail)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, rowsResponse{Success: true, Rows: rows})

	case http.MethodPost:
		var req rowsRequest
		if err := httpx.DecodeJSON(w, r, h.cfg.maxBody(), &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, workbook.MsgRowsInvalid)
			return
		}
		if err := h.records.Put(r.Context(), p.Username, pageID, req.Rows); err != nil {
			h.writeFault(w, err, workbook.MsgRowsPutFail)
			return
		}
		h.log.Debug("workbook.records.saved", "page", pageID)
		httpx.WriteJSON(w, http.StatusOK, saveResponse{Success: true, Message: MsgRowsSaved})

	default:
		httpx.WriteMethodNotAllowed(w, "GET, POST")
	}
}

// ---- helpers ----

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, httpx.ErrEmptyBody
	}
	defer func() { _ = r.Body.Close() }()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.maxBody()))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, httpx.ErrEmptyBody
	}
	return raw, nil
}

// writeFault adds the configuration hint to unbound-store errors.
func (h *Handler) writeFault(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, workbook.ErrUnbound) {
		h.log.Error("workbook.store.unbound", "err", err)
		httpx.WriteJSON(w, fault.Status(err), httpx.ErrorBody{
			Error: workbook.MsgStoreUnbound,
			Hint:  workbook.MsgStoreHint,
		})
		return
	}
	httpx.WriteFault(w, h.log, err, fallback)
}
