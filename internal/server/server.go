package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front end of the gateway.
type Server struct {
	engine *gin.Engine
	addr   string
	log    *slog.Logger
}

// New builds the Gin engine with recovery, request ids and access logging.
func New(addr string, svc PolicyService, status StatusReader, gatherer prometheus.Gatherer, log *slog.Logger) *Server {
	log = log.With("component", "server")

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog(log))
	RegisterRoutes(engine, svc, status, gatherer, log)

	return &Server{engine: engine, addr: addr, log: log}
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting policygate", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}
