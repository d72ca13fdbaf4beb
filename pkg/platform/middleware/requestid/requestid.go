// Package requestid propagates or generates the X-Request-ID header.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"xhuma/pkg/requestcontext"
)

const Header = "X-Request-ID"

// Middleware reuses a caller-supplied request ID or generates one, stores it
// on the context and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}
