package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// NewServer builds the scrape server for h without starting it.
func NewServer(port int, h http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", h)
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// StartServer serves the default registry on port in the background and
// returns the server's shutdown function.
func StartServer(port int) (shutdown func(context.Context) error) {
	server := NewServer(port, Handler())
	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return server.Shutdown
}
