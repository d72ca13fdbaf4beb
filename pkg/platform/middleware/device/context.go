// Package device summarises the calling client's User-Agent for audit records.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"xhuma/pkg/requestcontext"
)

// Summarise reduces a User-Agent header to "browser/os", "bot:name" or
// "unknown".
func Summarise(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	name, _ := ua.Browser()
	if ua.Bot() {
		return "bot:" + name
	}
	os := ua.OS()
	if name == "" {
		name = "unknown"
	}
	if os == "" {
		os = "unknown"
	}
	return name + "/" + os
}

// Middleware stores the device summary on the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDevice(r.Context(), Summarise(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
