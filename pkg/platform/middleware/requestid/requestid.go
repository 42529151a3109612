// Package requestid tags every inbound request with a unique id so log lines
// from asynchronous callback hops can be correlated.
package requestid

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"twinpass/pkg/requestcontext"
)

// Header carries the request id back to the caller and accepts one from
// upstream proxies.
const Header = "X-Request-Id"

// Middleware assigns a request id (reusing the inbound header when present)
// and stamps the request time into the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
