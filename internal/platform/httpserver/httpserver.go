package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with timeouts sized for the transaction deadline.
func New(addr string, handler http.Handler, transactionTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      transactionTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
