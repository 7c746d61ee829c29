package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// InvitationMetrics counts invitation lifecycle transitions.
type InvitationMetrics struct {
	issued   metric.Int64Counter
	redeemed metric.Int64Counter
	rejected metric.Int64Counter
}

// NewInvitationMetrics registers the invitation counters on mp.
func NewInvitationMetrics(mp metric.MeterProvider) (*InvitationMetrics, error) {
	meter := mp.Meter(instrumentationName + "/invitation")
	issued, err := meter.Int64Counter("invitations.issued",
		metric.WithDescription("Invitations created"))
	if err != nil {
		return nil, err
	}
	redeemed, err := meter.Int64Counter("invitations.redeemed",
		metric.WithDescription("Invitations accepted"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("invitations.rejected",
		metric.WithDescription("Invitation redemptions refused"))
	if err != nil {
		return nil, err
	}
	return &InvitationMetrics{issued: issued, redeemed: redeemed, rejected: rejected}, nil
}

func (m *InvitationMetrics) Issued(ctx context.Context, role string) {
	m.issued.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
}

func (m *InvitationMetrics) Redeemed(ctx context.Context, role string) {
	m.redeemed.Add(ctx, 1, metric.WithAttributes(attribute.String("role", role)))
}

// Rejected counts a refused redemption; reason is "not_found" or "expired".
func (m *InvitationMetrics) Rejected(ctx context.Context, reason string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
