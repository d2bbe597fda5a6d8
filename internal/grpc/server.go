// Package grpc exposes the standard gRPC health service so orchestrators
// can check the backend without going through HTTP.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"licenseguard/backend/pkg/health"
	"licenseguard/backend/pkg/logger"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported for the backend itself
const ServiceName = "licenseguard.Backend"

// Server is a gRPC server that serves health status from a health.Checker
type Server struct {
	server *grpc.Server
	health *grpchealth.Server
	log    *logger.Logger
}

// NewServer creates the server and keeps its status in sync with checker
func NewServer(checker *health.Checker, log *logger.Logger) *Server {
	srv := grpc.NewServer()
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	s := &Server{server: srv, health: hs, log: log.With("component", "grpc")}
	s.SetServing(checker.IsSystemHealthy())
	checker.OnChange(s.SetServing)
	return s
}

// SetServing updates the status of the overall and backend services
func (s *Server) SetServing(healthy bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if healthy {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Serve listens on addr and blocks until Stop is called
func (s *Server) Serve(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeListener(lis)
}

// ServeListener serves on an existing listener
func (s *Server) ServeListener(lis net.Listener) error {
	s.log.Info("gRPC server listening", "addr", lis.Addr().String())
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop drains in-flight calls, or stops hard when ctx ends first
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
}
