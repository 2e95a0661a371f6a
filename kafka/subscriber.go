package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/jobflow/logger"
)

// MessageReader is the part of *kafkago.Reader the subscriber uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

// NewReader builds a kafka-go reader on cfg.Topic. Without a group id it
// starts from the latest offset of partition 0.
func NewReader(cfg Config) (*kafkago.Reader, error) {
	dialer, err := CreateDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}
	rc := kafkago.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
		Dialer:  dialer,
	}
	if cfg.GroupID == "" {
		rc.StartOffset = kafkago.LastOffset
	}
	return kafkago.NewReader(rc), nil
}

// Subscriber decodes snapshot events from a reader.
type Subscriber struct {
	reader MessageReader
	log    *logger.Logger
}

func NewSubscriber(r MessageReader, log *logger.Logger) *Subscriber {
	return &Subscriber{reader: r, log: log.WithComponent("kafka.subscriber")}
}

// Consume calls handle for every event until ctx ends, the reader is closed
// or handle returns an error. Undecodable messages are logged and skipped.
func (s *Subscriber) Consume(ctx context.Context, handle func(SnapshotEvent) error) error {
	for {
		msg, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("kafka: read: %w", err)
		}
		ev, err := DecodeSnapshotEvent(msg.Value)
		if err != nil {
			s.log.Warn("skipping undecodable message", logger.Fields("offset", msg.Offset, logger.FieldError, err.Error()))
			continue
		}
		if err := handle(ev); err != nil {
			return err
		}
	}
}

func (s *Subscriber) Close() error { return s.reader.Close() }
