package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/jobflow/component"
	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/logger"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures []error
	msgs     []kafkago.Message
	closed   int
	errs     int64
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.failures) > 0 {
		err := w.failures[0]
		w.failures = w.failures[1:]
		w.errs++
		return err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Stats() kafkago.WriterStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return kafkago.WriterStats{Writes: int64(len(w.msgs)), Messages: int64(len(w.msgs)), Errors: w.errs}
}

func (w *fakeWriter) Close() error {
	w.closed++
	return nil
}

type fakeReader struct {
	msgs []kafkago.Message
	err  error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.msgs) == 0 {
		if r.err != nil {
			return kafkago.Message{}, r.err
		}
		return kafkago.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error { return nil }

func snapshot(id string, seq int64, completed bool) *dag.StatusSnapshot {
	return &dag.StatusSnapshot{InstanceID: id, Sequence: seq, Completed: completed, Finished: []string{"a"}}
}

func header(m kafkago.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestPublisherWritesKeyedEvent(t *testing.T) {
	w := &fakeWriter{}
	p := NewSnapshotPublisher(w, "node-1", 3, logger.Nop())

	if err := p.Publish(context.Background(), snapshot("inst-1", 4, true)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "inst-1" {
		t.Errorf("key = %q, want inst-1", msg.Key)
	}
	if got := header(msg, "event-type"); got != EventCompleted {
		t.Errorf("event-type = %q, want %q", got, EventCompleted)
	}
	if got := header(msg, "content-type"); got != "application/json" {
		t.Errorf("content-type = %q", got)
	}

	ev, err := DecodeSnapshotEvent(msg.Value)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ID != header(msg, "event-id") {
		t.Errorf("event id %q does not match header %q", ev.ID, header(msg, "event-id"))
	}
	if ev.Source != "node-1" || ev.InstanceID != "inst-1" || ev.Sequence != 4 {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Snapshot == nil || len(ev.Snapshot.Finished) != 1 {
		t.Errorf("snapshot not carried: %+v", ev.Snapshot)
	}
}

func TestPublisherRetriesTransientErrors(t *testing.T) {
	w := &fakeWriter{failures: []error{errors.New("dial tcp 10.0.0.1:9092: connection refused")}}
	p := NewSnapshotPublisher(w, "node-1", 3, logger.Nop())
	p.retry.InitialBackoff = time.Millisecond

	if err := p.Publish(context.Background(), snapshot("inst-1", 1, false)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(w.msgs))
	}
}

func TestPublisherDoesNotRetryPermanentErrors(t *testing.T) {
	w := &fakeWriter{failures: []error{errors.New("message too large"), errors.New("unreachable")}}
	p := NewSnapshotPublisher(w, "node-1", 3, logger.Nop())
	p.retry.InitialBackoff = time.Millisecond

	if err := p.Publish(context.Background(), snapshot("inst-1", 1, false)); err == nil {
		t.Fatal("expected error")
	}
	if len(w.failures) != 1 {
		t.Errorf("writer called %d times, want 1", 2-len(w.failures))
	}
}

func TestPublisherClose(t *testing.T) {
	w := &fakeWriter{}
	p := NewSnapshotPublisher(w, "node-1", 1, logger.Nop())
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if w.closed != 1 {
		t.Errorf("writer closed %d times, want 1", w.closed)
	}
	if err := p.Publish(context.Background(), snapshot("x", 1, false)); err == nil {
		t.Error("publish after close should fail")
	}
}

func TestNewSnapshotEventType(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name string
		snap *dag.StatusSnapshot
		want string
	}{
		{"running", &dag.StatusSnapshot{InstanceID: "a"}, EventCheckpointed},
		{"completed", &dag.StatusSnapshot{InstanceID: "a", Completed: true}, EventCompleted},
		{"structural failure", &dag.StatusSnapshot{InstanceID: "a", Error: dag.ErrNoRunnableJobs.Error()}, EventFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := NewSnapshotEvent("src", tt.snap, now)
			if ev.Type != tt.want {
				t.Errorf("type = %q, want %q", ev.Type, tt.want)
			}
			if !ev.Timestamp.Equal(now) {
				t.Errorf("timestamp = %v", ev.Timestamp)
			}
		})
	}
}

func TestSubscriberConsume(t *testing.T) {
	good := NewSnapshotEvent("src", snapshot("inst-1", 2, false), time.Now())
	w := &fakeWriter{}
	p := NewSnapshotPublisher(w, "src", 1, logger.Nop())
	if err := p.Publish(context.Background(), good.Snapshot); err != nil {
		t.Fatal(err)
	}

	r := &fakeReader{msgs: []kafkago.Message{{Value: []byte("not json")}, w.msgs[0]}}
	s := NewSubscriber(r, logger.Nop())

	var got []SnapshotEvent
	err := s.Consume(context.Background(), func(ev SnapshotEvent) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if len(got) != 1 || got[0].InstanceID != "inst-1" || got[0].Sequence != 2 {
		t.Fatalf("got %+v", got)
	}
}

func TestSubscriberStopsOnHandlerError(t *testing.T) {
	w := &fakeWriter{}
	p := NewSnapshotPublisher(w, "src", 1, logger.Nop())
	_ = p.Publish(context.Background(), snapshot("a", 1, false))
	_ = p.Publish(context.Background(), snapshot("a", 2, false))

	stop := errors.New("stop")
	calls := 0
	s := NewSubscriber(&fakeReader{msgs: w.msgs}, logger.Nop())
	err := s.Consume(context.Background(), func(SnapshotEvent) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("err = %v calls = %d", err, calls)
	}
}

func TestSubscriberReadError(t *testing.T) {
	s := NewSubscriber(&fakeReader{err: errors.New("boom")}, logger.Nop())
	if err := s.Consume(context.Background(), func(SnapshotEvent) error { return nil }); err == nil {
		t.Fatal("expected read error")
	}
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{Enabled: true}
	cfg.ApplyDefaults()
	if cfg.Topic != DefaultTopic || cfg.RequiredAcks != -1 || cfg.BatchSize != 1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	bad := cfg
	bad.WriteTimeout = "soon"
	if err := bad.Validate(); err == nil {
		t.Error("expected invalid write_timeout")
	}

	sasl := cfg
	sasl.EnableSASL = true
	sasl.SASLMechanism = "GSSAPI"
	if err := sasl.Validate(); err == nil {
		t.Error("expected unsupported mechanism")
	}
}

func TestResolveCompression(t *testing.T) {
	if ResolveCompression("gzip") != kafkago.Gzip {
		t.Error("gzip")
	}
	if ResolveCompression("none") != 0 {
		t.Error("none")
	}
	if ResolveCompression("weird") != kafkago.Snappy {
		t.Error("fallback should be snappy")
	}
}

func TestCreateDialerSASL(t *testing.T) {
	cfg := Config{EnableSASL: true, SASLMechanism: "SCRAM-SHA-512", Username: "u", Password: "p"}
	cfg.ApplyDefaults()
	d, err := CreateDialer(&cfg)
	if err != nil {
		t.Fatalf("CreateDialer: %v", err)
	}
	if d.SASLMechanism == nil || d.SASLMechanism.Name() != "SCRAM-SHA-512" {
		t.Errorf("mechanism = %v", d.SASLMechanism)
	}

	cfg.EnableTLS = true
	cfg.TLSCAFile = "/does/not/exist.pem"
	if _, err := CreateTransport(&cfg); err == nil {
		t.Error("expected missing CA file error")
	}
}

func TestIsRetryableError(t *testing.T) {
	if !IsRetryableError(errors.New("[7] Request Timed Out")) {
		t.Error("request timed out should be retryable")
	}
	if IsRetryableError(errors.New("invalid message")) || IsRetryableError(nil) {
		t.Error("permanent errors should not be retryable")
	}
}

func TestComponentLifecycle(t *testing.T) {
	c := NewComponent(Config{Enabled: true, Brokers: []string{"127.0.0.1:1"}}, "node", logger.Nop())
	if c.Publisher() != nil {
		t.Fatal("publisher before start")
	}
	if h := c.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("health before start = %s", h.Status)
	}
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.Publisher() == nil {
		t.Fatal("publisher after start")
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("health after start = %s", h.Status)
	}
	if d := c.Describe(); d.Type != "kafka" {
		t.Errorf("describe = %+v", d)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
