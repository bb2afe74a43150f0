package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func tradeEvent(sol uint64) *TradeEvent {
	return &TradeEvent{
		BaseEvent: BaseEvent{EventType: TradeExecuted, EventTime: time.Now()},
		IsBuy:     true,
		SolAmount: sol,
	}
}

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 64)

	var (
		mu  sync.Mutex
		got []uint64
	)
	bus.SubscribeFunc(TradeExecuted, func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(*TradeEvent).SolAmount)
		return nil
	})

	for i := uint64(1); i <= 20; i++ {
		require.NoError(t, bus.Publish(tradeEvent(i)))
	}
	require.NoError(t, bus.Shutdown(context.Background()))

	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, uint64(i+1), v)
	}
	assert.Equal(t, uint64(20), bus.Stats().Published)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer bus.Shutdown(context.Background())

	calls := 0
	sub := bus.SubscribeFunc(CurveCreated, func(context.Context, Event) error {
		calls++
		return nil
	})

	ev := &CurveCreatedEvent{BaseEvent: BaseEvent{EventType: CurveCreated}}
	require.NoError(t, bus.PublishSync(context.Background(), ev))
	sub.Unsubscribe()
	require.NoError(t, bus.PublishSync(context.Background(), ev))

	assert.Equal(t, 1, calls)
	assert.Empty(t, bus.Stats().HandlersPerType)
}

func TestBusPublishSyncCollectsErrors(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(TradeRejected, func(context.Context, Event) error { return boom })

	err := bus.PublishSync(context.Background(), &TradeRejectedEvent{BaseEvent: BaseEvent{EventType: TradeRejected}})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, uint64(1), bus.Stats().HandlerFailures)
}

func TestBusClosed(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	require.NoError(t, bus.Shutdown(context.Background()))

	assert.ErrorIs(t, bus.Publish(tradeEvent(1)), ErrBusClosed)
	assert.ErrorIs(t, bus.PublishWait(context.Background(), tradeEvent(1)), ErrBusClosed)
}

func TestBusRejectsEveryPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zap.NewNop(), 8)
	require.NoError(t, bus.Shutdown(context.Background()))

	// буфер пуст, но после остановки ни одно событие не должно попасть в канал
	for i := uint64(0); i < 100; i++ {
		require.ErrorIs(t, bus.PublishWait(context.Background(), tradeEvent(i)), ErrBusClosed)
		require.ErrorIs(t, bus.Publish(tradeEvent(i)), ErrBusClosed)
	}
	stats := bus.Stats()
	assert.Zero(t, stats.PendingEvents)
	assert.Zero(t, stats.Published)
}

func TestBusPublishWaitHonorsContext(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	defer bus.Shutdown(context.Background())

	release := make(chan struct{})
	bus.SubscribeFunc(TradeExecuted, func(context.Context, Event) error {
		<-release
		return nil
	})
	defer close(release)

	// first event blocks the dispatcher, second fills the buffer
	require.NoError(t, bus.PublishWait(context.Background(), tradeEvent(1)))
	require.Eventually(t, func() bool { return bus.Stats().PendingEvents == 0 }, time.Second, time.Millisecond)
	require.NoError(t, bus.PublishWait(context.Background(), tradeEvent(2)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, bus.PublishWait(ctx, tradeEvent(3)), context.DeadlineExceeded)
}
