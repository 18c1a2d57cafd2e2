// Package api exposes the read-only HTTP surface of the RCA engine. No
// endpoint mutates the event store; failures are reported in-process by the
// collaborator agents.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/supportstack/failwatch/internal/config"
)

// Server wraps the fasthttp server and lifecycle helpers.
type Server struct {
	cfg      config.ServerConfig
	server   *fasthttp.Server
	listener net.Listener
	logger   *slog.Logger
}

// NewServer constructs an HTTP server bound to the configured address.
func NewServer(cfg config.ServerConfig, handlers *Handlers, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	server := &fasthttp.Server{
		Handler:      requestLogger(logger, handlers.Router().Handler),
		Name:         "failwatch",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return &Server{
		cfg:      cfg,
		server:   server,
		listener: lis,
		logger:   logger,
	}, nil
}

// Start serves incoming requests until Shutdown is invoked.
func (s *Server) Start() error {
	if s.server == nil || s.listener == nil {
		return fmt.Errorf("server not initialised")
	}
	return s.server.Serve(s.listener)
}

// Shutdown attempts a graceful shutdown, falling back to a hard close when the
// context expires first.
func (s *Server) Shutdown(ctx context.Context) {
	if s.server == nil {
		return
	}

	stopped := make(chan struct{})
	go func() {
		_ = s.server.Shutdown()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		_ = s.listener.Close()
	case <-stopped:
	}
}

// Address exposes the bound listener address (useful for tests).
func (s *Server) Address() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// requestLogger logs method, path, status, and duration for every request.
func requestLogger(logger *slog.Logger, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		logger.Debug("http request",
			slog.String("method", string(ctx.Method())),
			slog.String("path", string(ctx.Path())),
			slog.Int("status", ctx.Response.StatusCode()),
			slog.Duration("duration", time.Since(start)))
	}
}
