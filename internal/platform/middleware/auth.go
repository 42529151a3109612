// Package middleware holds server-side middleware that needs application
// configuration, as opposed to the generic pieces under pkg/platform.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"twinpass/internal/platform/secrets"
	dErrors "twinpass/pkg/domain-errors"
	"twinpass/pkg/platform/httputil"
	"twinpass/pkg/requestcontext"
)

// RequireToken guards a route group with a static bearer token, verified
// against its bcrypt hash so the middleware never holds the plaintext. An
// empty hash disables the check, which is the development default. Callback
// endpoints are not guarded by this: the data plane authenticates itself
// through the endpoint data reference it delivers.
func RequireToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || secrets.Verify(presented, tokenHash) != nil {
				ctx := r.Context()
				logger.WarnContext(ctx, "unauthorized request",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid bearer token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
