package httpserver

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/Clark-Hu/movie-directory/internal/logging"
)

type flakyStore struct{ down atomic.Bool }

func (f *flakyStore) HealthCheck(context.Context) error {
	if f.down.Load() {
		return errors.New("db down")
	}
	return nil
}

func TestHealthService(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st := &flakyStore{}
	svc := NewHealthService(st, logging.Discard())
	lis := bufconn.Listen(1 << 20)
	go func() { _ = svc.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
	defer checkCancel()
	resp, err := client.Check(checkCtx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.Status)
	}

	st.down.Store(true)
	if got := svc.Refresh(ctx); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("Refresh = %v, want NOT_SERVING", got)
	}
	resp, err = client.Check(checkCtx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", resp.Status)
	}
}
