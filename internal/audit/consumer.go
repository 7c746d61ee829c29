package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	auditrepo "teamos/backend/internal/audit/repository"
)

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LinePusher forwards a raw event to a log store (Loki).
type LinePusher interface {
	PushEventJSON(ctx context.Context, raw []byte) error
}

// Consumer persists audit events published by KafkaSink. Offsets are committed only after the
// row is written, so an event is stored at least once; the insert ignores duplicate ids.
type Consumer struct {
	reader messageReader
	repo   auditrepo.Repository
	lines  LinePusher
	log    *zap.Logger
	// maxRetry bounds how long one event's insert is retried before the consumer stops.
	maxRetry time.Duration
}

// NewConsumer returns a consumer reading topic as groupID. lines may be nil.
func NewConsumer(brokers []string, topic, groupID string, repo auditrepo.Repository, lines LinePusher, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return newConsumer(r, repo, lines, log)
}

func newConsumer(r messageReader, repo auditrepo.Repository, lines LinePusher, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{reader: r, repo: repo, lines: lines, log: log, maxRetry: 5 * time.Minute}
}

// Run consumes until ctx is canceled, then closes the reader. It returns nil on cancellation and
// the storage error when an event could not be persisted within the retry window.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.Warn("audit consumer: close reader", zap.Error(err))
		}
	}()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("audit consumer: fetch failed", zap.Error(err))
			continue
		}
		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Warn("audit consumer: commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

// handle stores one message. Undecodable messages are logged and skipped.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	e, err := DecodeEvent(msg.Value)
	if err != nil || e.ID == "" || e.OrgID == "" || e.Action == "" {
		c.log.Warn("audit consumer: skipping malformed event",
			zap.Int64("offset", msg.Offset), zap.ByteString("key", msg.Key), zap.Error(err))
		return nil
	}
	row, err := e.ToAuditLog()
	if err != nil {
		c.log.Warn("audit consumer: skipping event with bad metadata", zap.String("id", e.ID), zap.Error(err))
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 10 * time.Second
	bo.MaxElapsedTime = c.maxRetry
	err = backoff.RetryNotify(func() error {
		return c.repo.Create(ctx, row)
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		c.log.Warn("audit consumer: insert failed, retrying", zap.String("id", e.ID), zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return fmt.Errorf("audit consumer: persist event %s: %w", e.ID, err)
	}

	if c.lines != nil {
		if err := c.lines.PushEventJSON(ctx, msg.Value); err != nil {
			c.log.Warn("audit consumer: loki push failed", zap.String("id", e.ID), zap.Error(err))
		}
	}
	return nil
}
