package audit

import (
	"context"

	"go.uber.org/zap"

	auditrepo "teamos/backend/internal/audit/repository"
	"teamos/backend/internal/telemetry"
)

// RepoSink persists events to the audit_logs table.
type RepoSink struct {
	repo auditrepo.Repository
	log  *zap.Logger
}

// NewRepoSink returns a sink writing through repo. Failures are logged, never returned.
func NewRepoSink(repo auditrepo.Repository, log *zap.Logger) *RepoSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &RepoSink{repo: repo, log: log}
}

// Record writes one audit row. Events without an organization are dropped.
func (s *RepoSink) Record(ctx context.Context, e Event) {
	if s == nil || s.repo == nil {
		return
	}
	e = Stamp(ctx, e)
	if e.OrgID == "" {
		s.log.Warn("audit: dropping event without organization", zap.String("action", e.Action))
		return
	}
	row, err := e.ToAuditLog()
	if err != nil {
		s.log.Warn("audit: encode metadata", zap.String("action", e.Action), zap.Error(err))
		return
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.log.Warn("audit: failed to log event",
			zap.String("action", e.Action),
			zap.String("org_id", e.OrgID),
			zap.Error(err))
	}
}

// Multi fans an event out to every sink with one shared ID.
func Multi(sinks ...EventSink) EventSink {
	var out multiSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

type multiSink []EventSink

func (m multiSink) Record(ctx context.Context, e Event) {
	e = Stamp(ctx, e)
	for _, s := range m {
		s.Record(ctx, e)
	}
}

// Async hands every event to bg so the caller returns immediately.
func Async(bg *telemetry.Background, sink EventSink) EventSink {
	return asyncSink{bg: bg, sink: sink}
}

type asyncSink struct {
	bg   *telemetry.Background
	sink EventSink
}

func (a asyncSink) Record(ctx context.Context, e Event) {
	e = Stamp(ctx, e)
	a.bg.Go(ctx, "audit:"+e.Action, func(taskCtx context.Context) error {
		a.sink.Record(taskCtx, e)
		return nil
	})
}
