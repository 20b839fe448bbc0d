package httpserver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const healthPollInterval = 10 * time.Second

// HealthService exposes the database health over the standard gRPC health protocol
// so orchestrators can probe the API without HTTP.
type HealthService struct {
	grpc   *grpc.Server
	health *health.Server
	store  HealthChecker
	logger *log.Logger
}

// NewHealthService registers the health and reflection services on a fresh gRPC server.
func NewHealthService(st HealthChecker, logger *log.Logger) *HealthService {
	if logger == nil {
		logger = log.Default()
	}
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	return &HealthService{grpc: srv, health: hs, store: st, logger: logger}
}

// Refresh probes the store once and publishes the result.
func (h *HealthService) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if h.store == nil || h.store.HealthCheck(checkCtx) != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	return status
}

// Serve accepts connections on lis until ctx is done, refreshing the status periodically.
func (h *HealthService) Serve(ctx context.Context, lis net.Listener) error {
	h.Refresh(ctx)
	go func() {
		ticker := time.NewTicker(healthPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				h.health.Shutdown()
				h.grpc.GracefulStop()
				return
			case <-ticker.C:
				if status := h.Refresh(ctx); status != healthpb.HealthCheckResponse_SERVING {
					h.logger.Warn("grpc health degraded", "status", status)
				}
			}
		}
	}()

	h.logger.Info("grpc health listening", "addr", lis.Addr().String())
	if err := h.grpc.Serve(lis); err != nil {
		return fmt.Errorf("serve grpc health: %w", err)
	}
	return nil
}
