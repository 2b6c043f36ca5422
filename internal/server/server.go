// File: internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/internal/config"
	"github.com/xkilldash9x/boxscope/internal/workspace"
)

// Server exposes a workspace to the devtools panel over HTTP and WebSocket.
type Server struct {
	cfg      config.ServerConfig
	logger   *zap.Logger
	ws       *workspace.Workspace
	handlers *Handlers

	// baseCtx is canceled on shutdown so that open sockets and pending picks end.
	baseCtx    context.Context
	baseCancel context.CancelFunc
}

// New creates a server over ws.
func New(cfg config.ServerConfig, ws *workspace.Workspace, logger *zap.Logger) *Server {
	logger = logger.Named("server")
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Server{
		cfg:        cfg,
		logger:     logger,
		ws:         ws,
		handlers:   NewHandlers(logger, ws),
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	// Long lived, so no request timeout.
	r.Get("/ws/v1/pick", s.handlePick())

	r.Group(func(r chi.Router) {
		if s.cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		}
		s.handlers.RegisterRoutes(r)
	})
	return r
}

// Serve accepts connections on l until ctx is canceled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening.", zap.String("address", l.Addr().String()))
		errCh <- httpServer.Serve(l)
	}()

	select {
	case err := <-errCh:
		s.baseCancel()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server gracefully...")
	// Hijacked WebSocket connections are not tracked by Shutdown.
	s.baseCancel()

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	<-errCh
	s.logger.Info("Server stopped.")
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, l)
}

// corsMiddleware allows the devtools panel to call the API from its own origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Close ends open WebSocket sessions and pending picks.
func (s *Server) Close() {
	s.baseCancel()
}
