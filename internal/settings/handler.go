package settings

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// SettingsResponse is the wire form of the current settings.
type SettingsResponse struct {
	IntervalSeconds int     `json:"interval_seconds"`
	TimeoutSeconds  float64 `json:"timeout_seconds"`
	ExportOnClose   bool    `json:"export_on_close"`
}

// UpdateRequest carries a partial settings update; nil fields are unchanged.
type UpdateRequest struct {
	IntervalSeconds *int     `json:"interval_seconds,omitempty"`
	TimeoutSeconds  *float64 `json:"timeout_seconds,omitempty"`
	ExportOnClose   *bool    `json:"export_on_close,omitempty"`
}

// Handler provides HTTP handlers for the settings endpoints.
type Handler struct {
	store  *Store
	logger *zap.Logger
}

// NewHandler creates a settings Handler.
func NewHandler(store *Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes registers settings routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/settings", h.handleGet)
	mux.HandleFunc("PUT /api/v1/settings", h.handleUpdate)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	h.writeCurrent(w, r)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		settingsWriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	if req.IntervalSeconds != nil {
		if err := h.store.SetInterval(ctx, *req.IntervalSeconds); err != nil {
			h.logger.Error("failed to set interval", zap.Error(err))
			settingsWriteError(w, http.StatusInternalServerError, "failed to save interval")
			return
		}
	}
	if req.TimeoutSeconds != nil {
		if *req.TimeoutSeconds <= 0 {
			settingsWriteError(w, http.StatusBadRequest, "timeout_seconds must be positive")
			return
		}
		d := time.Duration(*req.TimeoutSeconds * float64(time.Second))
		if err := h.store.SetTimeout(ctx, d); err != nil {
			h.logger.Error("failed to set timeout", zap.Error(err))
			settingsWriteError(w, http.StatusInternalServerError, "failed to save timeout")
			return
		}
	}
	if req.ExportOnClose != nil {
		if err := h.store.SetExportOnClose(ctx, *req.ExportOnClose); err != nil {
			h.logger.Error("failed to set export_on_close", zap.Error(err))
			settingsWriteError(w, http.StatusInternalServerError, "failed to save export flag")
			return
		}
	}

	h.writeCurrent(w, r)
}

func (h *Handler) writeCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := SettingsResponse{
		IntervalSeconds: h.store.Interval(ctx),
		TimeoutSeconds:  h.store.Timeout(ctx).Seconds(),
		ExportOnClose:   h.store.ExportOnClose(ctx),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func settingsWriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://fleetpulse.dev/problems/settings-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
