// Package handler exposes the data-plane callback endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"twinpass/internal/edr"
	"twinpass/internal/platform/metrics"
	dErrors "twinpass/pkg/domain-errors"
	"twinpass/pkg/platform/httputil"
	"twinpass/pkg/requestcontext"
)

// Service defines the callback operations the endpoints drive.
type Service interface {
	OnRegistryCallback(ctx context.Context, processID, endpointID string, endpoint edr.DataPlaneEndpoint) error
	OnDataCallback(ctx context.Context, processID string, endpoint edr.DataPlaneEndpoint) error
}

// Handler handles the inbound callback endpoints.
type Handler struct {
	logger   *slog.Logger
	callback Service
	metrics  *metrics.Metrics
}

// New creates a new callback Handler.
func New(callback Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		callback: callback,
		metrics:  metrics,
	}
}

// Register registers the callback routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/endpoint/{processId}/{endpointId}", h.handleRegistryCallback)
	r.Post("/endpoint/{processId}", h.handleDataCallback)
}

func (h *Handler) handleRegistryCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID := chi.URLParam(r, "processId")
	endpointID := chi.URLParam(r, "endpointId")

	endpoint, err := httputil.Decode[edr.DataPlaneEndpoint](r)
	if err != nil {
		h.metrics.CountCallback("registry", "bad_request")
		httputil.WriteError(w, err)
		return
	}

	if err := h.callback.OnRegistryCallback(ctx, processID, endpointID, endpoint); err != nil {
		h.writeCallbackError(w, r, "registry", processID, err)
		return
	}

	h.metrics.CountCallback("registry", "ok")
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (h *Handler) handleDataCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID := chi.URLParam(r, "processId")

	endpoint, err := httputil.Decode[edr.DataPlaneEndpoint](r)
	if err != nil {
		h.metrics.CountCallback("data", "bad_request")
		httputil.WriteError(w, err)
		return
	}

	if err := h.callback.OnDataCallback(ctx, processID, endpoint); err != nil {
		h.writeCallbackError(w, r, "data", processID, err)
		return
	}

	h.metrics.CountCallback("data", "ok")
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

// writeCallbackError maps service failures onto the callback contract:
// bad-request and not-found pass through; every other failure is answered
// with an opaque 403 so callers cannot probe internal state. The cause is
// logged before it is masked.
func (h *Handler) writeCallbackError(w http.ResponseWriter, r *http.Request, kind, processID string, err error) {
	ctx := r.Context()
	switch {
	case dErrors.HasCode(err, dErrors.CodeBadRequest):
		h.metrics.CountCallback(kind, "bad_request")
		httputil.WriteError(w, err)
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		h.metrics.CountCallback(kind, "not_found")
		httputil.WriteError(w, err)
	default:
		h.logger.ErrorContext(ctx, "callback rejected",
			"request_id", requestcontext.RequestID(ctx),
			"kind", kind,
			"process_id", processID,
			"error", err.Error(),
		)
		h.metrics.CountCallback(kind, "forbidden")
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "forbidden"))
	}
}
