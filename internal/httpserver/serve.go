package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/brooktewabe/Activity-Log-Service/internal/config"
)

// NewServer applies the configured timeouts to an http.Server for h.
func NewServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:           cfg.Addr(),
		Handler:        h,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}
}

// Serve runs srv on ln until ctx is done, then shuts down gracefully within
// shutdownTimeout. It returns nil after a clean shutdown.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, cfg config.Config, logger *log.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Printf("INFO: HTTP server listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Println("INFO: shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	<-errCh
	logger.Println("INFO: HTTP server stopped.")
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func ListenAndServe(ctx context.Context, cfg config.Config, h http.Handler, logger *log.Logger) error {
	srv := NewServer(cfg, h)
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return Serve(ctx, srv, ln, cfg, logger)
}
