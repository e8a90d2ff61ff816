// Package grpc serves the internal gRPC surface: the standard health
// service, guarded by a shared service token.
package grpc

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported through the health service.
const ServiceName = "carebridge"

type Server struct {
	*grpc.Server
	Health *health.Server
}

// NewServer registers the health service. An empty serviceToken leaves the
// server unauthenticated, which is only accepted when allowAnonymous is set.
func NewServer(serviceToken string, allowAnonymous bool, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var opts []grpc.ServerOption
	if serviceToken != "" || !allowAnonymous {
		unary, err := NewServiceAuthUnaryInterceptor(serviceToken)
		if err != nil {
			return nil, err
		}
		stream, err := NewServiceAuthStreamInterceptor(serviceToken)
		if err != nil {
			return nil, err
		}
		opts = append(opts, grpc.UnaryInterceptor(unary), grpc.StreamInterceptor(stream))
	} else {
		logger.Warn("grpc service token not configured, health service is unauthenticated")
	}

	srv := grpc.NewServer(opts...)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return &Server{Server: srv, Health: healthSrv}, nil
}

// Shutdown flips every service to NOT_SERVING and stops gracefully.
func (s *Server) Shutdown() {
	s.Health.Shutdown()
	s.GracefulStop()
}
