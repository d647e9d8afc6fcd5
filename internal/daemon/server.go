package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/matheus3301/daychat/internal/feed"
	"github.com/matheus3301/daychat/internal/metrics"
	"github.com/matheus3301/daychat/internal/session"
	"github.com/matheus3301/daychat/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server manages the gRPC server lifecycle for a session daemon.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer creates a gRPC server bound to the session's Unix domain socket.
func NewServer(p Params, logger *zap.Logger, svc *feed.Service) (*Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = session.SocketPath(p.SessionName)
	}

	// The lock is held, so an existing socket is left over from a crash.
	if _, err := os.Stat(socketPath); err == nil {
		_ = os.Remove(socketPath)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen unix socket: %w", err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	srv := grpc.NewServer()
	feed.Register(srv, svc)
	hs := health.NewServer()
	hs.SetServingStatus(feed.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{
		grpcServer: srv,
		health:     hs,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

// Start marks the feed as serving and serves gRPC requests until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", zap.String("socket", s.socketPath))
	s.health.SetServingStatus(feed.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown and removes the socket file.
func (s *Server) Stop(_ context.Context) {
	s.logger.Info("gRPC server stopping")
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	_ = os.Remove(s.socketPath)
}

// ObsServer serves /metrics and /healthz over HTTP. A nil *ObsServer is
// valid and does nothing.
type ObsServer struct {
	srv      *http.Server
	listener net.Listener
	logger   *zap.Logger
}

// NewObsServer binds addr. It returns nil when addr is empty.
func NewObsServer(addr string, reg *prometheus.Registry, db *store.DB, logger *zap.Logger) (*ObsServer, error) {
	if addr == "" {
		return nil, nil
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", metrics.Handler(reg))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	})

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics %s: %w", addr, err)
	}
	return &ObsServer{
		srv:      &http.Server{Handler: r, ReadHeaderTimeout: 5 * time.Second},
		listener: lis,
		logger:   logger,
	}, nil
}

// Addr returns the bound address, or "" for a nil server.
func (o *ObsServer) Addr() string {
	if o == nil {
		return ""
	}
	return o.listener.Addr().String()
}

// Start serves in the background.
func (o *ObsServer) Start() {
	if o == nil {
		return
	}
	go func() {
		o.logger.Info("metrics endpoint started", zap.String("addr", o.Addr()))
		if err := o.srv.Serve(o.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			o.logger.Error("metrics endpoint failed", zap.Error(err))
		}
	}()
}

// Stop shuts the HTTP server down.
func (o *ObsServer) Stop(ctx context.Context) error {
	if o == nil {
		return nil
	}
	return o.srv.Shutdown(ctx)
}
