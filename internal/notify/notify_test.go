package notify

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func receive(t *testing.T, sub *Subscription) (Event, bool) {
	t.Helper()
	select {
	case e, ok := <-sub.C:
		return e, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}, false
	}
}

func assertEmpty(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case e := <-sub.C:
		t.Fatalf("unexpected event %s", e.Type)
	default:
	}
}

func TestHub_RoutesByRecipient(t *testing.T) {
	ctx := context.Background()
	h := NewHub()

	alice := h.Subscribe(Subscriber{UserID: "alice"}, nil)
	bob := h.Subscribe(Subscriber{UserID: "bob"}, nil)
	admin := h.Subscribe(Subscriber{UserID: "root", Admin: true}, nil)
	require.Equal(t, 3, h.Len())

	require.NoError(t, h.Publish(ctx, Event{Type: TypeOrderStatus, UserID: "alice", Message: "shipped"}))
	got, ok := receive(t, alice)
	require.True(t, ok)
	assert.Equal(t, "shipped", got.Message)
	assertEmpty(t, bob)
	assertEmpty(t, admin)

	require.NoError(t, h.Publish(ctx, Event{Type: TypeAdminNewOrder, Message: "new order"}))
	got, ok = receive(t, admin)
	require.True(t, ok)
	assert.Equal(t, TypeAdminNewOrder, got.Type)
	assertEmpty(t, alice)
	assertEmpty(t, bob)
}

func TestHub_UnsubscribeClosesAndCallsBack(t *testing.T) {
	h := NewHub()
	closed := 0
	sub := h.Subscribe(Subscriber{UserID: "alice"}, func() { closed++ })

	h.Unsubscribe(sub.ID)
	h.Unsubscribe(sub.ID)

	_, ok := receive(t, sub)
	assert.False(t, ok)
	assert.Equal(t, 1, closed)
	assert.Zero(t, h.Len())

	// Publishing after removal must not panic on the closed channel.
	require.NoError(t, h.Publish(context.Background(), Event{Type: TypeOrderStatus, UserID: "alice"}))
}

func TestHub_Close(t *testing.T) {
	h := NewHub()
	a := h.Subscribe(Subscriber{UserID: "alice"}, nil)
	b := h.Subscribe(Subscriber{Admin: true}, nil)

	h.Close()

	_, ok := receive(t, a)
	assert.False(t, ok)
	_, ok = receive(t, b)
	assert.False(t, ok)
	assert.Zero(t, h.Len())
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	ctx := context.Background()
	h := NewHub()
	sub := h.Subscribe(Subscriber{UserID: "alice"}, nil)

	for i := 0; i < subscriptionBuffer+5; i++ {
		require.NoError(t, h.Publish(ctx, Event{Type: TypeOrderStatus, UserID: "alice"}))
	}
	assert.Len(t, sub.C, subscriptionBuffer)
}

type fakeKafkaWriter struct {
	msgs   []kafka.Message
	fail   bool
	closed bool
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fk := &fakeKafkaWriter{}
	p := newKafkaPublisherWith(fk)

	e := Event{
		ID:        "e1",
		Type:      TypeOrderStatus,
		UserID:    "alice",
		Message:   "Your order o1 is now shipped",
		Data:      map[string]string{"status": "shipped", "orderId": "o1"},
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), e))
	require.Len(t, fk.msgs, 1)

	msg := fk.msgs[0]
	assert.Equal(t, "alice", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "type", Value: []byte(TypeOrderStatus)}}, msg.Headers)

	fields := map[string]string{}
	var data map[string]string
	err := jx.DecodeBytes(msg.Value).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) == "data" {
			data = map[string]string{}
			return d.ObjBytes(func(d *jx.Decoder, k []byte) error {
				v, err := d.Str()
				data[string(k)] = v
				return err
			})
		}
		v, err := d.Str()
		fields[string(key)] = v
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "e1", fields["id"])
	assert.Equal(t, "2025-01-02T03:04:05Z", fields["createdAt"])
	assert.Equal(t, map[string]string{"status": "shipped", "orderId": "o1"}, data)

	require.NoError(t, p.Close())
	assert.True(t, fk.closed)
}

func TestKafkaPublisher_AdminEventsKeyedByType(t *testing.T) {
	fk := &fakeKafkaWriter{}
	p := newKafkaPublisherWith(fk)

	require.NoError(t, p.Publish(context.Background(), Event{Type: TypeAdminLowStock, UserID: "ignored"}))
	require.Len(t, fk.msgs, 1)
	assert.Equal(t, TypeAdminLowStock, string(fk.msgs[0].Key))
}

func TestKafkaPublisher_Error(t *testing.T) {
	p := newKafkaPublisherWith(&fakeKafkaWriter{fail: true})

	err := p.Publish(context.Background(), Event{Type: TypeOrderStatus})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write kafka message")
}

// ctxKafkaWriter blocks until the write context is done when block is set,
// and records the context error seen on entry.
type ctxKafkaWriter struct {
	block    bool
	entryErr error
	deadline bool
}

func (w *ctxKafkaWriter) WriteMessages(ctx context.Context, _ ...kafka.Message) error {
	w.entryErr = ctx.Err()
	_, w.deadline = ctx.Deadline()
	if w.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (w *ctxKafkaWriter) Close() error { return nil }

func TestKafkaPublisher_DetachedFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		block   bool
		cancel  bool
		wantErr error
	}{
		{name: "cancelled request still publishes", cancel: true},
		{name: "stalled broker is bounded", block: true, wantErr: context.DeadlineExceeded},
		{name: "stalled broker with cancelled request", block: true, cancel: true, wantErr: context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &ctxKafkaWriter{block: tt.block}
			p := newKafkaPublisherWith(w)
			p.timeout = 20 * time.Millisecond

			// A request context that never finishes on its own.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}

			done := make(chan error, 1)
			go func() { done <- p.Publish(ctx, Event{Type: TypeAdminNewOrder}) }()

			select {
			case err := <-done:
				if tt.wantErr != nil {
					require.ErrorIs(t, err, tt.wantErr)
				} else {
					require.NoError(t, err)
				}
			case <-time.After(time.Second):
				t.Fatal("publish did not return")
			}
			assert.NoError(t, w.entryErr)
			assert.True(t, w.deadline)
		})
	}
}

func TestKafkaPublisher_CompletionLogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	complete := completionLogger(zap.New(core))

	complete([]kafka.Message{{}, {}}, nil)
	assert.Zero(t, logs.Len())

	complete([]kafka.Message{{}, {}}, errors.New("broker unavailable"))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.EqualValues(t, 2, entry.ContextMap()["count"])
	assert.Equal(t, "broker unavailable", entry.ContextMap()["error"])
}

type recordingPublisher struct {
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.events = append(r.events, e)
	return r.err
}

func TestDispatcher_FansOutAndSwallowsErrors(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("down")}
	ok := &recordingPublisher{}
	d := NewDispatcher(failing, ok)
	d.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }

	d.Dispatch(context.Background(), Event{Type: TypeAdminNewOrder, Message: "hi"})

	require.Len(t, failing.events, 1)
	require.Len(t, ok.events, 1)
	got := ok.events[0]
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), got.CreatedAt)
	assert.Equal(t, failing.events[0].ID, got.ID)
}

func TestDispatcher_DeliversToHub(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(Subscriber{UserID: "alice"}, nil)
	d := NewDispatcher(h)

	d.Dispatch(context.Background(), Event{Type: TypeOrderStatus, UserID: "alice", Message: "delivered"})

	got, ok := receive(t, sub)
	require.True(t, ok)
	assert.Equal(t, "delivered", got.Message)
}
