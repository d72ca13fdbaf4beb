// Package requesttime captures one "now" per request so the audit record,
// registry timestamps and log lines of a transaction agree.
package requesttime

import (
	"net/http"
	"time"

	"xhuma/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
