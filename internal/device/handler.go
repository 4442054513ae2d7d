package device

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/fleetpulse/internal/settings"
)

// Handler provides HTTP handlers for device CRUD and monitoring control.
type Handler struct {
	store  *Store
	fast   *settings.FastRefresh
	logger *zap.Logger
}

// NewHandler creates a device Handler. fast may be nil to disable the
// fast-refresh policy (used in tests).
func NewHandler(store *Store, fast *settings.FastRefresh, logger *zap.Logger) *Handler {
	return &Handler{store: store, fast: fast, logger: logger}
}

// RegisterRoutes registers device routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/devices", h.handleList)
	mux.HandleFunc("POST /api/v1/devices", h.handleCreate)
	mux.HandleFunc("GET /api/v1/devices/{id}", h.handleGet)
	mux.HandleFunc("PUT /api/v1/devices/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/v1/devices/{id}", h.handleDelete)
	mux.HandleFunc("POST /api/v1/devices/{id}/monitoring/start", h.handleStartMonitoring)
	mux.HandleFunc("POST /api/v1/devices/{id}/monitoring/stop", h.handleStopMonitoring)
}

// deviceRequest is the caller-editable subset of Device.
type deviceRequest struct {
	Name   string `json:"name"`
	Host   string `json:"host"`
	Method string `json:"method"`
	Port   int    `json:"port"`
	Team   string `json:"team"`
	Enabled *bool `json:"enabled,omitempty"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	team := r.URL.Query().Get("team")
	devices, err := h.store.List(r.Context(), team)
	if err != nil {
		h.logger.Error("failed to list devices", zap.Error(err))
		deviceWriteError(w, http.StatusInternalServerError, "failed to list devices")
		return
	}
	if devices == nil {
		devices = []Device{}
	}
	deviceWriteJSON(w, http.StatusOK, devices)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		deviceWriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d := Device{
		Name:       strings.TrimSpace(req.Name),
		Host:       strings.TrimSpace(req.Host),
		Method:     ParseMethod(req.Method),
		Port:       req.Port,
		Team:       strings.TrimSpace(req.Team),
		Enabled:    true,
		Monitoring: true,
	}
	if req.Enabled != nil {
		d.Enabled = *req.Enabled
	}
	if err := d.Validate(); err != nil {
		deviceWriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A freshly created device starts monitored, so the fast-refresh
	// policy applies exactly as it does for an explicit start.
	if h.fast != nil && d.Monitoring {
		h.fast.BeforeStart(r.Context())
	}
	if err := h.store.Insert(r.Context(), &d); err != nil {
		if h.fast != nil && d.Monitoring {
			h.fast.AfterStop(r.Context())
		}
		h.logger.Error("failed to insert device", zap.Error(err))
		deviceWriteError(w, http.StatusInternalServerError, "failed to create device")
		return
	}

	h.logger.Info("device created",
		zap.String("id", d.ID),
		zap.String("host", d.Host),
		zap.String("method", string(d.Method)),
	)
	deviceWriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.logger.Error("failed to get device", zap.Error(err))
		deviceWriteError(w, http.StatusInternalServerError, "failed to get device")
		return
	}
	if d == nil {
		deviceWriteError(w, http.StatusNotFound, "device not found")
		return
	}
	deviceWriteJSON(w, http.StatusOK, d)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get device", zap.Error(err))
		deviceWriteError(w, http.StatusInternalServerError, "failed to get device")
		return
	}
	if existing == nil {
		deviceWriteError(w, http.StatusNotFound, "device not found")
		return
	}

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		deviceWriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.Host = strings.TrimSpace(req.Host)
	existing.Method = ParseMethod(req.Method)
	existing.Port = req.Port
	existing.Team = strings.TrimSpace(req.Team)
	if req.Enabled != nil {
		existing.Enabled = *req.Enabled
	}
	if err := existing.Validate(); err != nil {
		deviceWriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Update(r.Context(), existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			deviceWriteError(w, http.StatusNotFound, "device not found")
			return
		}
		h.logger.Error("failed to update device", zap.Error(err))
		deviceWriteError(w, http.StatusInternalServerError, "failed to update device")
		return
	}
	deviceWriteJSON(w, http.StatusOK, existing)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.logger.Error("failed to delete device", zap.Error(err))
		deviceWriteError(w, http.StatusInternalServerError, "failed to delete device")
		return
	}
	// Removing a monitored device may leave nothing monitored.
	if h.fast != nil {
		h.fast.AfterStop(r.Context())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if h.fast != nil {
		h.fast.BeforeStart(r.Context())
	}
	if err := h.store.SetMonitoring(r.Context(), id, true); err != nil {
		// Undo the interval override; nothing started monitoring.
		if h.fast != nil {
			h.fast.AfterStop(r.Context())
		}
		if errors.Is(err, sql.ErrNoRows) {
			deviceWriteError(w, http.StatusNotFound, "device not found")
			return
		}
		h.logger.Error("failed to start monitoring", zap.String("id", id), zap.Error(err))
		deviceWriteError(w, http.StatusInternalServerError, "failed to start monitoring")
		return
	}

	h.logger.Info("monitoring started", zap.String("id", id))
	deviceWriteJSON(w, http.StatusOK, map[string]any{"id": id, "monitoring": true})
}

func (h *Handler) handleStopMonitoring(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.store.SetMonitoring(r.Context(), id, false); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			deviceWriteError(w, http.StatusNotFound, "device not found")
			return
		}
		h.logger.Error("failed to stop monitoring", zap.String("id", id), zap.Error(err))
		deviceWriteError(w, http.StatusInternalServerError, "failed to stop monitoring")
		return
	}
	if h.fast != nil {
		h.fast.AfterStop(r.Context())
	}

	h.logger.Info("monitoring stopped", zap.String("id", id))
	deviceWriteJSON(w, http.StatusOK, map[string]any{"id": id, "monitoring": false})
}

// -- helpers --

func deviceWriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func deviceWriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://fleetpulse.dev/problems/device-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
