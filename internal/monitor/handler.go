package monitor

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Handler exposes the monitoring loop and snapshots over HTTP.
type Handler struct {
	scheduler  *Scheduler
	reconciler *Reconciler
	logger     *zap.Logger

	// base is the process lifetime context; loop starts and refresh
	// passes must outlive the triggering request.
	base context.Context
}

// NewHandler creates a monitor Handler. base is the process context used
// for work that outlives a request.
func NewHandler(base context.Context, scheduler *Scheduler, reconciler *Reconciler, logger *zap.Logger) *Handler {
	return &Handler{base: base, scheduler: scheduler, reconciler: reconciler, logger: logger}
}

// RegisterRoutes registers monitoring routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/status", h.handleStatus)
	mux.HandleFunc("GET /api/v1/status/{id}", h.handleDeviceStatus)
	mux.HandleFunc("POST /api/v1/refresh", h.handleRefresh)
	mux.HandleFunc("POST /api/v1/monitor/start", h.handleStart)
	mux.HandleFunc("POST /api/v1/monitor/stop", h.handleStop)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	snaps := h.reconciler.Snapshots()
	if snaps == nil {
		snaps = []Snapshot{}
	}
	monitorWriteJSON(w, http.StatusOK, map[string]any{
		"scheduler": h.scheduler.CurrentState().String(),
		"devices":   snaps,
	})
}

func (h *Handler) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.reconciler.Snapshot(r.PathValue("id"))
	if !ok {
		monitorWriteError(w, http.StatusNotFound, "no status for device")
		return
	}
	monitorWriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Refresh(h.base)
	monitorWriteJSON(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.Start(h.base); err != nil {
		monitorWriteError(w, http.StatusConflict, err.Error())
		return
	}
	h.logger.Info("monitoring loop started via API")
	monitorWriteJSON(w, http.StatusOK, map[string]string{"scheduler": h.scheduler.CurrentState().String()})
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	h.logger.Info("monitoring loop stopped via API")
	monitorWriteJSON(w, http.StatusOK, map[string]string{"scheduler": h.scheduler.CurrentState().String()})
}

func monitorWriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func monitorWriteError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://fleetpulse.dev/problems/monitor-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
