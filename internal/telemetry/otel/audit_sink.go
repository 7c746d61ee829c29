package otel

import (
	"context"
	"fmt"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"teamos/backend/internal/audit"
)

const instrumentationName = "teamos/backend"

// recordEmitter is the part of otellog.Logger the sink uses.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewAuditSink returns an audit.EventSink that emits events as OTel log records through provider.
// A nil provider yields a sink that drops everything.
func NewAuditSink(provider *sdklog.LoggerProvider) audit.EventSink {
	if provider == nil {
		return audit.NopSink{}
	}
	return &auditSink{logger: provider.Logger(instrumentationName + "/audit")}
}

type auditSink struct {
	logger recordEmitter
}

// Record converts the event to a log record: the action is the body, the rest are attributes.
func (s *auditSink) Record(ctx context.Context, e audit.Event) {
	e = audit.Stamp(ctx, e)
	rec := otellog.Record{}
	rec.SetTimestamp(e.CreatedAt)
	rec.SetObservedTimestamp(e.CreatedAt)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetEventName("audit." + e.Action)
	rec.SetBody(otellog.StringValue(e.Action))
	rec.AddAttributes(
		otellog.String("audit.id", e.ID),
		otellog.String("org_id", e.OrgID),
		otellog.String("client.ip", e.IP),
	)
	if e.ActorID != "" {
		rec.AddAttributes(otellog.String("actor_id", e.ActorID))
	}
	for k, v := range e.Metadata {
		rec.AddAttributes(otellog.String("audit.meta."+k, fmt.Sprint(v)))
	}
	s.logger.Emit(ctx, rec)
}
