package docserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	grpcapi "github.com/oshokin/alert-relay/internal/api/grpc/document"
	httpapi "github.com/oshokin/alert-relay/internal/api/http/document"
	"github.com/oshokin/alert-relay/internal/config"
	"github.com/oshokin/alert-relay/internal/logger"
	"github.com/oshokin/alert-relay/internal/repository/store"
)

const (
	// readHeaderTimeout bounds slow clients.
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout bounds the graceful HTTP shutdown.
	shutdownTimeout = 5 * time.Second
)

// Server is a bound alert-docserver: REST listener, optional gRPC listener
// and the shared document service behind both.
type Server struct {
	httpServer   *http.Server
	httpListener net.Listener
	grpcServer   *grpc.Server
	grpcListener net.Listener
}

// NewServer loads the documents from cfg.Server.DataFile and binds the listeners.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := config.ValidateServer(cfg); err != nil {
		return nil, err
	}

	svc, err := newService(ctx, store.NewFileRepository(cfg.Server.DataFile))
	if err != nil {
		return nil, fmt.Errorf("initialise service: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	lc := net.ListenConfig{}

	httpListener, err := lc.Listen(ctx, "tcp", cfg.Server.HTTPListenAddress)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Server.HTTPListenAddress, err)
	}

	s := &Server{
		httpServer: &http.Server{
			Handler:           httpapi.NewRouter(svc, registry),
			ReadHeaderTimeout: readHeaderTimeout,
			BaseContext: func(net.Listener) context.Context {
				return ctx
			},
		},
		httpListener: httpListener,
	}

	if cfg.Server.GRPCListenAddress == "" {
		return s, nil
	}

	grpcListener, err := lc.Listen(ctx, "tcp", cfg.Server.GRPCListenAddress)
	if err != nil {
		_ = httpListener.Close()

		return nil, fmt.Errorf("listen on %s: %w", cfg.Server.GRPCListenAddress, err)
	}

	s.grpcServer = grpc.NewServer()
	s.grpcListener = grpcListener
	grpcapi.RegisterDocumentServiceServer(s.grpcServer, grpcapi.NewServer(svc))

	return s, nil
}

// HTTPAddr returns the bound REST address.
func (s *Server) HTTPAddr() string {
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address, or "" when gRPC is disabled.
func (s *Server) GRPCAddr() string {
	if s.grpcListener == nil {
		return ""
	}

	return s.grpcListener.Addr().String()
}

// Serve blocks until ctx is canceled or a listener fails, then stops both
// transports gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errs := make(chan error, 2)

	go func() {
		if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("serve http: %w", err)
		}
	}()

	if s.grpcServer != nil {
		go func() {
			if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errs <- fmt.Errorf("serve gRPC: %w", err)
			}
		}()
	}

	logger.InfoKV(ctx, "Document server listening", "http_address", s.HTTPAddr(), "grpc_address", s.GRPCAddr())

	var err error

	select {
	case <-ctx.Done():
	case err = <-errs:
	}

	logger.Info(ctx, "Shutting down document server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if shutdownErr := s.httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.WarnKV(ctx, "HTTP shutdown did not complete", "error", shutdownErr)
	}

	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	logger.Info(ctx, "Document server stopped")

	return err
}
