// Package httpserver constructs the HTTP server with sane timeouts.
package httpserver

import (
	"net/http"
	"time"
)

// New returns an *http.Server ready to serve handler on addr.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
