package webserver

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server wraps http.Server with configuration loading, optional h2c
// support, and graceful shutdown.
type Server struct {
	cfg  *Config
	http *http.Server
}

// New builds a server for the given handler, typically a finalized
// mux.RouterService or mux.ResourceService.
func New(cfg *Config, handler http.Handler) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, errors.New("webserver: nil handler")
	}

	if cfg.EnableH2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	return &Server{
		cfg: cfg,
		http: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout.Std(),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout.Std(),
			WriteTimeout:      cfg.WriteTimeout.Std(),
			IdleTimeout:       cfg.IdleTimeout.Std(),
			MaxHeaderBytes:    cfg.MaxHeaderBytes,
		},
	}, nil
}

// Handler returns the server's handler after any h2c wrapping.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is canceled, then shuts down gracefully within
// the configured shutdown timeout. It returns nil on a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Std())
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
