package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON to the audit topic. The audit worker consumes the topic and
// persists the rows, so the API never waits on the audit table.
type KafkaSink struct {
	writer messageWriter
	log    *zap.Logger
}

// NewKafkaSink returns a sink writing to topic on brokers, or nil when either is empty.
// Call Close when shutting down.
func NewKafkaSink(brokers []string, topic string, log *zap.Logger) *KafkaSink {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaSink(w, log)
}

func newKafkaSink(w messageWriter, log *zap.Logger) *KafkaSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &KafkaSink{writer: w, log: log}
}

// Record publishes the event keyed by organization so one org's events stay ordered.
func (s *KafkaSink) Record(ctx context.Context, e Event) {
	if s == nil || s.writer == nil {
		return
	}
	e = Stamp(ctx, e)
	payload, err := json.Marshal(e)
	if err != nil {
		s.log.Warn("audit: encode event", zap.String("action", e.Action), zap.Error(err))
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.writer.WriteMessages(writeCtx, kafka.Message{Key: []byte(e.OrgID), Value: payload}); err != nil {
		s.log.Warn("audit: kafka publish failed", zap.String("action", e.Action), zap.Error(err))
	}
}

// Close closes the Kafka writer. Safe to call on a nil sink.
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

// DecodeEvent parses a Kafka message value produced by KafkaSink.
func DecodeEvent(value []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(value, &e)
	return e, err
}
