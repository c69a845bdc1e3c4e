package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader replays queued results, then blocks until ctx is done
type fakeReader struct {
	results []readResult
}

type readResult struct {
	msg kafka.Message
	err error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.results) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next.msg, next.err
}

func (r *fakeReader) Close() error { return nil }

// ============================================
// Producer
// ============================================

func TestProducer_PublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Producer{writer: w, now: func() time.Time { return at }}

	err := p.Publish(context.Background(), "device-1", map[string]any{"type": "CartReplaced", "items": 2})

	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "device-1", string(w.msgs[0].Key))
	assert.Equal(t, at, w.msgs[0].Time)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, "CartReplaced", decoded["type"])
}

func TestProducer_PublishErrors(t *testing.T) {
	p := &Producer{writer: &fakeWriter{}, now: time.Now}
	err := p.Publish(context.Background(), "k", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal event")

	broken := errors.New("broker down")
	p = &Producer{writer: &fakeWriter{err: broken}, now: time.Now}
	err = p.Publish(context.Background(), "k", "v")
	assert.ErrorIs(t, err, broken)
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, now: time.Now}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

// ============================================
// Consumer
// ============================================

func newTestConsumer(r *fakeReader) *Consumer {
	return &Consumer{reader: r, log: logrus.NewEntry(logrus.New()), retryBackoff: time.Millisecond}
}

func TestConsumer_DeliversAndSkipsFailures(t *testing.T) {
	r := &fakeReader{results: []readResult{
		{msg: kafka.Message{Key: []byte("a"), Value: []byte("1")}},
		{err: errors.New("transient")},
		{msg: kafka.Message{Key: []byte("b"), Value: []byte("2")}},
		{msg: kafka.Message{Key: []byte("c"), Value: []byte("3")}},
	}}
	c := newTestConsumer(r)

	ctx, cancel := context.WithCancel(context.Background())
	var seen []string
	err := c.Consume(ctx, func(_ context.Context, key, value []byte) error {
		seen = append(seen, string(key)+"="+string(value))
		if string(key) == "b" {
			return errors.New("handler failed")
		}
		if string(key) == "c" {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a=1", "b=2", "c=3"}, seen)
}

func TestConsumer_StopsOnCancelledContext(t *testing.T) {
	c := newTestConsumer(&fakeReader{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Consume(ctx, func(context.Context, []byte, []byte) error {
		t.Fatal("handler must not run")
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}
