package eventbus

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockPayload struct {
	X, Y, Z int
	Block   uint16
}

func TestEnvelopeRoundTrip(t *testing.T) {
	ev, err := NewEnvelope("world", TypeBlockChange, blockPayload{X: 1, Y: -5, Z: 3, Block: 7})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, TypeBlockChange, ev.EventType)

	var p blockPayload
	require.NoError(t, ev.Decode(&p))
	assert.Equal(t, blockPayload{X: 1, Y: -5, Z: 3, Block: 7}, p)
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 4)

	_, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeChat}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		mu.Unlock()
		done <- struct{}{}
	})
	require.NoError(t, err)

	for _, typ := range []string{TypeBlockChange, TypeChat, TypeChunkLoaded, TypeChat} {
		ev, err := NewEnvelope("test", typ, nil)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("событие не доставлено")
		}
	}

	mu.Lock()
	assert.Equal(t, []string{TypeChat, TypeChat}, got)
	mu.Unlock()
	assert.Equal(t, uint64(4), bus.Metrics().Published)
}

func TestMemoryBusUnsubscribeAndClose(t *testing.T) {
	bus := NewMemoryBus(4)

	calls := make(chan struct{}, 1)
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		calls <- struct{}{}
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, _ := NewEnvelope("test", TypeChat, "hi")
	require.NoError(t, bus.Publish(context.Background(), ev))
	require.NoError(t, bus.Close())

	select {
	case <-calls:
		t.Fatal("отписанный обработчик вызван")
	default:
	}

	assert.ErrorIs(t, bus.Publish(context.Background(), ev), ErrBusClosed)
	assert.NoError(t, bus.Close())
}

func TestMemoryBusPreservesOrderPerSubscriber(t *testing.T) {
	bus := NewMemoryBus(256)
	const n = 200

	var got []int
	done := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		var seq int
		assert.NoError(t, ev.Decode(&seq))
		got = append(got, seq)
		if len(got) == n {
			close(done)
		}
	})
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		typ := TypeChat
		if i%2 == 1 {
			typ = TypePlayerLeft
		}
		ev, err := NewEnvelope("test", typ, i)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(context.Background(), ev))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("доставлено %d из %d", len(got), n)
	}
	require.NoError(t, bus.Close())

	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
	assert.Equal(t, uint64(n), bus.Metrics().Consumed)
}

func TestMemoryBusSubscribeAfterClose(t *testing.T) {
	bus := NewMemoryBus(1)
	require.NoError(t, bus.Close())
	_, err := bus.Subscribe(context.Background(), Filter{}, func(context.Context, *Envelope) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestMemoryBusDropsLowPriorityWhenFull(t *testing.T) {
	mb := &memoryBus{subscribers: make(map[int]*subscriber), buffer: make(chan *Envelope, 1), capacity: 1}

	low, err := NewEnvelope("network", TypeChat, map[string]string{"message": "hi"})
	require.NoError(t, err)
	assert.Equal(t, PriorityLow, low.Priority)
	require.NoError(t, mb.Publish(context.Background(), low))
	require.NoError(t, mb.Publish(context.Background(), low))

	high, err := NewEnvelope("world", TypeBlockChange, map[string]int{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, high.Priority)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, mb.Publish(ctx, high), context.DeadlineExceeded)

	stats := mb.Metrics()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 1, stats.InFlight)
}

func TestGlobalBus(t *testing.T) {
	Init(nil)
	assert.NoError(t, Publish(context.Background(), &Envelope{}))

	bus := NewMemoryBus(2)
	defer bus.Close()
	Init(bus)
	defer Init(nil)

	require.NoError(t, Publish(context.Background(), &Envelope{EventType: TypeChat}))
	assert.Equal(t, uint64(1), Global().Metrics().Published)
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(8)
	defer bus.Close()

	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	for i := 0; i < 3; i++ {
		require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: TypeChat}))
	}
	me.Collect()
	me.Collect()

	assert.Equal(t, 3.0, testutil.ToFloat64(me.published))
}

func TestJetStreamBus(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = "nats://127.0.0.1:4222"
	}
	bus, err := NewJetStreamBus(url, "BLOCKVERSE_TEST", time.Minute)
	if err != nil {
		t.Skipf("NATS недоступен: %v", err)
	}
	defer bus.Close()

	received := make(chan *Envelope, 1)
	sub, err := bus.Subscribe(context.Background(), Filter{Types: []string{TypeBlockChange}}, func(ctx context.Context, ev *Envelope) {
		received <- ev
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	ev, err := NewEnvelope("test", TypeBlockChange, blockPayload{X: 4})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), ev))

	select {
	case got := <-received:
		assert.Equal(t, ev.ID, got.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("событие не получено из JetStream")
	}

	state, err := bus.State()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, state.Messages, uint64(1))

	// Повторная доставка уже сохраненного события
	replayed := make(chan *Envelope, 16)
	replay, err := bus.Subscribe(context.Background(),
		Filter{Types: []string{TypeBlockChange, TypeChat}, Since: ev.Timestamp.Add(-time.Second)},
		func(ctx context.Context, got *Envelope) { replayed <- got })
	require.NoError(t, err)
	defer replay.Unsubscribe()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-replayed:
			if got.ID == ev.ID {
				return
			}
		case <-deadline:
			t.Fatal("событие не доставлено повторно")
		}
	}
}
