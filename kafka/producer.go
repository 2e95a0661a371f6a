package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/resilience"
	"github.com/kbukum/jobflow/store"
)

// MessageWriter is the part of *kafkago.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// NewWriter builds a kafka-go writer for cfg.Topic.
func NewWriter(cfg Config, log *logger.Logger) (*kafkago.Writer, error) {
	transport, err := CreateTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: ParseDuration(cfg.BatchTimeout),
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  ResolveCompression(cfg.Compression),
		WriteTimeout: ParseDuration(cfg.WriteTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error("writer: "+fmt.Sprintf(msg, args...))
		}),
	}, nil
}

// SnapshotPublisher writes snapshot events to Kafka.
type SnapshotPublisher struct {
	writer MessageWriter
	source string
	retry  resilience.RetryConfig
	log    *logger.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
}

var _ store.Publisher = (*SnapshotPublisher)(nil)

// NewSnapshotPublisher publishes through w. source names this process in events.
func NewSnapshotPublisher(w MessageWriter, source string, retries int, log *logger.Logger) *SnapshotPublisher {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = retries
	retry.RetryIf = IsRetryableError
	return &SnapshotPublisher{
		writer: w,
		source: source,
		retry:  retry,
		log:    log.WithComponent("kafka.publisher"),
		now:    time.Now,
	}
}

func (p *SnapshotPublisher) Publish(ctx context.Context, snap *dag.StatusSnapshot) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("kafka: publisher is closed")
	}

	ev := NewSnapshotEvent(p.source, snap, p.now())
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("kafka: encoding event: %w", err)
	}
	msg := kafkago.Message{
		Key:   []byte(snap.InstanceID),
		Value: data,
		Time:  ev.Timestamp,
		Headers: []kafkago.Header{
			{Key: "event-id", Value: []byte(ev.ID)},
			{Key: "event-type", Value: []byte(ev.Type)},
			{Key: "event-source", Value: []byte(ev.Source)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	err = resilience.RetryFunc(ctx, p.retry, func() error {
		return p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("kafka: publish %s#%d: %w", snap.InstanceID, snap.Sequence, err)
	}
	p.log.Debug("snapshot published", logger.Fields(
		logger.FieldInstanceID, snap.InstanceID,
		logger.FieldSequence, snap.Sequence,
		"type", ev.Type,
	))
	return nil
}

// Metrics returns writer statistics.
func (p *SnapshotPublisher) Metrics() WriterMetrics {
	return CollectWriterMetrics(p.writer.Stats())
}

// Close flushes and closes the writer. Safe to call multiple times.
func (p *SnapshotPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}
