package server

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServiceName is reported alongside the overall ("") status.
const HealthServiceName = "pa_autofill.v1.Processing"

// HealthServer is a gRPC server exposing only the standard health service.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	log    *slog.Logger
}

func NewHealthServer(logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_SERVING)
	// reflection for grpcurl
	reflection.Register(gs)
	return &HealthServer{grpc: gs, health: hs, log: logger}
}

// Serve blocks until Stop is called.
func (h *HealthServer) Serve(lis net.Listener) {
	h.log.Info("server.grpc.listening", "addr", lis.Addr().String())
	if err := h.grpc.Serve(lis); err != nil {
		h.log.Error("server.grpc.serve_failed", "error", err)
	}
}

// Stop reports NOT_SERVING and drains in-flight calls.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
