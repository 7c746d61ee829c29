package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"teamos/backend/internal/audit/domain"
)

// fakeReader serves queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeAuditRepo struct {
	mu       sync.Mutex
	rows     []*domain.AuditLog
	failures int // Create fails this many times before succeeding
	err      error
}

func (f *fakeAuditRepo) ListByOrg(context.Context, string, int) ([]*domain.AuditLog, error) {
	return nil, nil
}

func (f *fakeAuditRepo) Create(_ context.Context, a *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.failures > 0 {
		f.failures--
		return errors.New("connection reset")
	}
	f.rows = append(f.rows, a)
	return nil
}

func (f *fakeAuditRepo) stored() []*domain.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.AuditLog(nil), f.rows...)
}

type fakePusher struct {
	mu    sync.Mutex
	lines [][]byte
	err   error
}

func (p *fakePusher) PushEventJSON(_ context.Context, raw []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines = append(p.lines, raw)
	return p.err
}

func encode(t *testing.T, e Event) []byte {
	t.Helper()
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConsumer_PersistsAndCommits(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: encode(t, Event{ID: "a1", OrgID: "org-1", ActorID: "u1", Action: ActionProjectCreated, Metadata: map[string]any{"name": "Launch"}, IP: "10.0.0.1", CreatedAt: created})},
		{Offset: 2, Value: []byte("not json")},
		{Offset: 3, Value: encode(t, Event{ID: "a2", Action: ActionTaskCreated})},
		{Offset: 4, Value: encode(t, Event{ID: "a3", OrgID: "org-1", Action: ActionTaskCreated, CreatedAt: created})},
	}}
	repo := &fakeAuditRepo{failures: 1}
	pusher := &fakePusher{}
	core, logs := observer.New(zap.WarnLevel)
	c := newConsumer(reader, repo, pusher, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	waitFor(t, func() bool { return len(reader.commits()) == 4 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	rows := repo.stored()
	if len(rows) != 2 || rows[0].ID != "a1" || rows[1].ID != "a3" {
		t.Fatalf("stored = %+v", rows)
	}
	if rows[0].Metadata != `{"name":"Launch"}` || rows[0].IP != "10.0.0.1" || !rows[0].CreatedAt.Equal(created) {
		t.Errorf("row = %+v", rows[0])
	}
	if len(pusher.lines) != 2 {
		t.Errorf("loki lines = %d, want 2", len(pusher.lines))
	}
	if got := logs.FilterMessage("audit consumer: skipping malformed event").Len(); got != 2 {
		t.Errorf("malformed warnings = %d, want 2", got)
	}
	if logs.FilterMessage("audit consumer: insert failed, retrying").Len() != 1 {
		t.Error("transient insert failure was not retried")
	}
	if !reader.closed {
		t.Error("reader not closed")
	}
}

func TestConsumer_LokiFailureStillCommits(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 7, Value: encode(t, Event{ID: "a1", OrgID: "org-1", Action: ActionMemberRemoved})},
	}}
	repo := &fakeAuditRepo{}
	c := newConsumer(reader, repo, &fakePusher{err: errors.New("loki down")}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	waitFor(t, func() bool { return len(reader.commits()) == 1 })
	cancel()
	<-done
	if len(repo.stored()) != 1 {
		t.Error("event not stored")
	}
}

func TestConsumer_StopsWhenStorageStaysDown(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Value: encode(t, Event{ID: "a1", OrgID: "org-1", Action: ActionMemberRemoved})},
	}}
	c := newConsumer(reader, &fakeAuditRepo{err: errors.New("db down")}, nil, nil)
	c.maxRetry = 50 * time.Millisecond

	err := c.Run(context.Background())
	if err == nil {
		t.Fatal("Run should fail when the event cannot be stored")
	}
	if len(reader.commits()) != 0 {
		t.Error("offset committed for an unstored event")
	}
}
