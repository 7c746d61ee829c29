package handler

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		pinger  Pinger
		policy  PolicyChecker
		wantErr bool
	}{
		{"nil dependencies", nil, nil, false},
		{"pinger ok", &mockPinger{}, nil, false},
		{"pinger failure", &mockPinger{pingErr: errors.New("connection refused")}, nil, true},
		{"policy ok", &mockPinger{}, &mockPolicyChecker{}, false},
		{"policy failure", &mockPinger{}, &mockPolicyChecker{healthErr: errors.New("not ready")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewChecker(tt.pinger, tt.policy).Check(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Check err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHTTP(t *testing.T) {
	tests := []struct {
		name       string
		pinger     Pinger
		wantStatus int
		wantBody   string
	}{
		{"serving", &mockPinger{}, fiber.StatusOK, "SERVING"},
		{"not serving", &mockPinger{pingErr: errors.New("down")}, fiber.StatusServiceUnavailable, "NOT_SERVING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/healthz", NewChecker(tt.pinger, nil).HTTP)
			resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), `"status":"`+tt.wantBody+`"`) {
				t.Errorf("body = %s", body)
			}
			if strings.Contains(string(body), "down") {
				t.Error("cause leaked into response")
			}
		})
	}
}

func TestWatch(t *testing.T) {
	srv := health.NewServer()
	pinger := &mockPinger{pingErr: errors.New("down")}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewChecker(pinger, nil).Watch(ctx, srv, time.Hour)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for {
		resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{})
		if err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_NOT_SERVING {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status never became NOT_SERVING (err=%v)", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}
