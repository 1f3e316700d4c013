package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func newTestProducer(w *fakeWriter) *Producer {
	return &Producer{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestNewEvent(t *testing.T) {
	type payload struct {
		OrderID     string `json:"orderId"`
		TotalAmount int64  `json:"totalAmount"`
	}

	ev, err := NewEvent("order.created", "ord-1", "order", "farmmarket", payload{"ord-1", 150})
	require.NoError(t, err)

	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, 1, ev.Version)
	assert.WithinDuration(t, time.Now().UTC(), ev.Timestamp, 2*time.Second)

	var got payload
	require.NoError(t, ev.UnmarshalData(&got))
	assert.Equal(t, int64(150), got.TotalAmount)

	ev.WithActor("user-1").WithCorrelationID("corr-1").WithMetadata("status", "Pending")
	raw, err := ev.Marshal()
	require.NoError(t, err)

	back, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", back.ActorID)
	assert.Equal(t, "corr-1", back.CorrelationID)
	assert.Equal(t, "Pending", back.Metadata["status"])
}

func TestNewEvent_Unserializable(t *testing.T) {
	_, err := NewEvent("x", "1", "x", "svc", make(chan int))
	assert.Error(t, err)
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)

	ev, err := NewEvent("review.created", "rev-1", "review", "farmmarket", map[string]int{"rating": 5})
	require.NoError(t, err)
	ev.WithCorrelationID("corr-9")

	before := testutil.ToFloat64(producerMessagesPublished.WithLabelValues("farmmarket.reviews"))
	require.NoError(t, p.Publish(context.Background(), "farmmarket.reviews", ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "farmmarket.reviews", msg.Topic)
	assert.Equal(t, "rev-1", string(msg.Key))
	assert.Equal(t, "review.created", header(msg, "event_type"))
	assert.Equal(t, "corr-9", header(msg, "correlation_id"))
	assert.Equal(t, before+1, testutil.ToFloat64(producerMessagesPublished.WithLabelValues("farmmarket.reviews")))
}

func TestProducer_PublishPropagatesTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &fakeWriter{}
	ev, _ := NewEvent("order.created", "ord-1", "order", "farmmarket", nil)
	require.NoError(t, newTestProducer(w).Publish(ctx, "farmmarket.orders", ev))

	assert.Contains(t, header(w.msgs[0], "traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := newTestProducer(w)
	ev, _ := NewEvent("order.created", "ord-1", "order", "farmmarket", nil)

	before := testutil.ToFloat64(producerPublishErrors.WithLabelValues("farmmarket.orders"))
	err := p.Publish(context.Background(), "farmmarket.orders", ev)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish event to farmmarket.orders")
	assert.Equal(t, before+1, testutil.ToFloat64(producerPublishErrors.WithLabelValues("farmmarket.orders")))
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	err := newTestProducer(&fakeWriter{}).Ping(context.Background())
	assert.EqualError(t, err, "kafka: no brokers configured")
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newTestProducer(w).Close())
	assert.True(t, w.closed)
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := &headerCarrier{headers: &headers}

	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "3", c.Get("b"))
	assert.Equal(t, "", c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), "t", &Event{}))
}
