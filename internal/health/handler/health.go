// Package handler exposes readiness over HTTP (/healthz) and the standard gRPC health protocol.
package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Pinger checks database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the permission engine can evaluate (e.g. *engine.OPAEvaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

const checkTimeout = 2 * time.Second

// Checker reports readiness. Nil dependencies are skipped.
type Checker struct {
	pinger Pinger
	policy PolicyChecker
}

// NewChecker returns a Checker over the given dependencies.
func NewChecker(pinger Pinger, policy PolicyChecker) *Checker {
	return &Checker{pinger: pinger, policy: policy}
}

// Check returns the first failing dependency's error, or nil when ready.
func (h *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if h.pinger != nil {
		if err := h.pinger.PingContext(ctx); err != nil {
			return err
		}
	}
	if h.policy != nil {
		if err := h.policy.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}

type statusResponse struct {
	Status string `json:"status"`
}

// HTTP answers 200 SERVING or 503 NOT_SERVING. The cause is never rendered.
func (h *Checker) HTTP(c *fiber.Ctx) error {
	if err := h.Check(c.UserContext()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(statusResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING.String()})
	}
	return c.JSON(statusResponse{Status: healthpb.HealthCheckResponse_SERVING.String()})
}

// Watch updates srv's overall status every interval until ctx is done.
func (h *Checker) Watch(ctx context.Context, srv *health.Server, interval time.Duration) {
	update := func() {
		st := healthpb.HealthCheckResponse_SERVING
		if err := h.Check(ctx); err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		srv.SetServingStatus("", st)
	}
	update()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return
		case <-t.C:
			update()
		}
	}
}
