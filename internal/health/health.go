// Package health publishes daemon liveness over the standard gRPC health service.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service names reported by the daemon.
const (
	ServiceDaemon    = ""
	ServiceEmergency = "drishti.emergency"
)

const unixScheme = "unix://"

// Server owns the gRPC listener and health status table.
type Server struct {
	grpc   *grpc.Server
	status *grpchealth.Server
	logger *slog.Logger
}

// NewServer registers the health service. The daemon starts NOT_SERVING
// until SetServing is called; emergency monitoring starts NOT_SERVING.
func NewServer(logger *slog.Logger) *Server {
	status := grpchealth.NewServer()
	status.SetServingStatus(ServiceDaemon, healthpb.HealthCheckResponse_NOT_SERVING)
	status.SetServingStatus(ServiceEmergency, healthpb.HealthCheckResponse_NOT_SERVING)

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, status)
	return &Server{grpc: server, status: status, logger: logger}
}

// SetServing flips the daemon service status.
func (s *Server) SetServing(serving bool) {
	s.status.SetServingStatus(ServiceDaemon, servingStatus(serving))
}

// SetEmergency mirrors whether emergency monitoring is active.
func (s *Server) SetEmergency(active bool) {
	s.status.SetServingStatus(ServiceEmergency, servingStatus(active))
}

// Serve listens on addr (host:port or unix:///path) until ctx is done.
func (s *Server) Serve(ctx context.Context, addr string) error {
	listener, err := Listen(addr)
	if err != nil {
		return err
	}
	return s.serveListener(ctx, listener)
}

func (s *Server) serveListener(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		s.status.Shutdown()
		s.grpc.GracefulStop()
	}()

	if s.logger != nil {
		s.logger.Info("health endpoint listening", "addr", listener.Addr().String())
	}
	if err := s.grpc.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve health: %w", err)
	}
	return nil
}

// Listen opens a tcp or unix listener for a health address.
func Listen(addr string) (net.Listener, error) {
	addr = strings.TrimSpace(addr)
	if path, ok := strings.CutPrefix(addr, unixScheme); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("ensure health socket dir: %w", err)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale health socket: %w", err)
		}
		listener, err := net.Listen("unix", path)
		if err != nil {
			return nil, fmt.Errorf("listen health socket %s: %w", path, err)
		}
		return listener, nil
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen health %s: %w", addr, err)
	}
	return listener, nil
}

func servingStatus(serving bool) healthpb.HealthCheckResponse_ServingStatus {
	if serving {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
