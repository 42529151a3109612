// Package httpapi assembles the HTTP surface: middleware, operational
// endpoints, and the feature handlers.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"twinpass/pkg/platform/httputil"
	"twinpass/pkg/platform/middleware/requestid"
	"twinpass/pkg/requestcontext"
)

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// NewRouter wires the full router. Feature handlers register their own
// routes so this package never imports feature packages.
func NewRouter(handlers ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)

	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "RUNNING",
		"timestamp": requestcontext.Now(r.Context()).UTC().Format(time.RFC3339),
	})
}
