package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"catalog-service/internal/broker"
	"catalog-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvicter struct {
	mu      sync.Mutex
	evicted []string
	err     error
}

func (f *fakeEvicter) EvictProduct(ctx context.Context, productID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.evicted = append(f.evicted, productID)
	return nil
}

type sliceSource struct {
	msgs   []kafka.Message
	closed bool
}

func (s *sliceSource) StartConsuming(ctx context.Context, handler broker.MessageHandler) error {
	for _, msg := range s.msgs {
		_ = handler(ctx, msg)
	}
	return nil
}

func (s *sliceSource) Close() error {
	s.closed = true
	return nil
}

func productMessage(t *testing.T, eventType, productID string) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(models.ProductChangedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-" + productID, EventType: eventType, Timestamp: time.Now()},
		ProductID: productID,
	})
	require.NoError(t, err)
	return kafka.Message{Value: payload}
}

func TestCatalogEventsWorkerEvictsChangedProducts(t *testing.T) {
	cache := &fakeEvicter{}
	source := &sliceSource{msgs: []kafka.Message{
		productMessage(t, models.EventTypeProductUpdated, "42"),
		productMessage(t, models.EventTypeProductDeleted, "43"),
		productMessage(t, models.EventTypePageView, "44"),
	}}

	w := NewCatalogEventsWorker(source, cache)
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())

	assert.Equal(t, []string{"42", "43"}, cache.evicted)
	assert.True(t, source.closed)
}

func TestCatalogEventsWorkerReportsEvictionFailure(t *testing.T) {
	cache := &fakeEvicter{err: errors.New("redis down")}
	w := NewCatalogEventsWorker(&sliceSource{}, cache)

	err := w.HandleMessage(context.Background(), productMessage(t, models.EventTypeProductUpdated, "42"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "42")
}

func TestCatalogEventsWorkerIgnoresMissingProductID(t *testing.T) {
	cache := &fakeEvicter{}
	w := NewCatalogEventsWorker(&sliceSource{}, cache)

	err := w.HandleMessage(context.Background(), productMessage(t, models.EventTypeProductUpdated, ""))
	require.NoError(t, err)
	assert.Empty(t, cache.evicted)
}

func TestCatalogEventsWorkerRejectsMalformedMessage(t *testing.T) {
	w := NewCatalogEventsWorker(&sliceSource{}, &fakeEvicter{})

	err := w.HandleMessage(context.Background(), kafka.Message{Value: []byte("{")})
	assert.Error(t, err)
}

type countingSweeper struct {
	calls   int32
	maxIdle time.Duration
}

func (c *countingSweeper) Sweep(ctx context.Context, now time.Time, maxIdle time.Duration) int {
	atomic.AddInt32(&c.calls, 1)
	c.maxIdle = maxIdle
	return 1
}

func TestSessionSweeperRunsUntilStopped(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewSessionSweeper(sweeper, 5*time.Millisecond, time.Minute)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(context.Background()) }()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&sweeper.calls) >= 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.NoError(t, <-errCh)
	assert.Equal(t, time.Minute, sweeper.maxIdle)
}

func TestSessionSweeperStopsOnContextCancel(t *testing.T) {
	s := NewSessionSweeper(&countingSweeper{}, time.Hour, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	require.NoError(t, s.Stop())
}
