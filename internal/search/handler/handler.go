// Package handler exposes the search API endpoint.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"twinpass/internal/process"
	"twinpass/internal/search"
	dErrors "twinpass/pkg/domain-errors"
	"twinpass/pkg/platform/httputil"
	"twinpass/pkg/requestcontext"
)

// Service defines the operations the API endpoints drive.
type Service interface {
	StartSearch(ctx context.Context, req search.Request) (*process.Process, error)
	Passport(ctx context.Context, processID string) (json.RawMessage, error)
}

// Handler handles the search endpoint.
type Handler struct {
	logger *slog.Logger
	search Service
	auth   func(http.Handler) http.Handler
}

// New creates a new search Handler. auth guards the API routes; pass a
// disabled middleware.RequireToken for open deployments.
func New(search Service, logger *slog.Logger, auth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger: logger,
		search: search,
		auth:   auth,
	}
}

// Register registers the search routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.With(h.auth).Post("/api/search", h.handleSearch)
	r.With(h.auth).Get("/api/passport/{processId}", h.handlePassport)
}

func (h *Handler) handlePassport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID := chi.URLParam(r, "processId")

	passport, err := h.search.Passport(ctx, processID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "passport retrieval failed",
				"request_id", requestcontext.RequestID(ctx),
				"process_id", processID,
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, passport)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[search.Request](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	proc, err := h.search.StartSearch(ctx, req)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeBadRequest) && !dErrors.HasCode(err, dErrors.CodeConflict) {
			h.logger.ErrorContext(ctx, "search failed",
				"request_id", requestcontext.RequestID(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, proc)
}
