package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"catalog-service/internal/broker"
	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageSource is the consumer side of a Kafka topic
type MessageSource interface {
	StartConsuming(ctx context.Context, handler broker.MessageHandler) error
	Close() error
}

// ProductEvicter drops cached catalog snapshots for a product
type ProductEvicter interface {
	EvictProduct(ctx context.Context, productID string) error
}

// CatalogEventsWorker evicts cached products when the catalog announces
// an update or a delete.
type CatalogEventsWorker struct {
	consumer     MessageSource
	eventHandler *broker.EventHandler
	cache        ProductEvicter
	logger       *zap.Logger
}

// NewCatalogEventsWorker creates a new catalog events worker
func NewCatalogEventsWorker(consumer MessageSource, cache ProductEvicter) *CatalogEventsWorker {
	w := &CatalogEventsWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		cache:        cache,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnProductChanged(w.handleProductChanged)
	return w
}

// Start starts the worker
func (w *CatalogEventsWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog events worker")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// HandleMessage processes a single catalog event
func (w *CatalogEventsWorker) HandleMessage(ctx context.Context, msg kafka.Message) error {
	return w.eventHandler.HandleMessage(ctx, msg)
}

// Stop stops the worker
func (w *CatalogEventsWorker) Stop() error {
	w.logger.Info("Stopping catalog events worker")
	return w.consumer.Close()
}

func (w *CatalogEventsWorker) handleProductChanged(ctx context.Context, event *models.ProductChangedEvent) error {
	if event.ProductID == "" {
		w.logger.Warn("Catalog event without product id", zap.String("event_id", event.EventID))
		return nil
	}

	if err := w.cache.EvictProduct(ctx, event.ProductID); err != nil {
		return fmt.Errorf("failed to evict product %s: %w", event.ProductID, err)
	}

	util.CatalogCacheEvictions.Inc()
	w.logger.Info("Evicted cached product",
		zap.String("product_id", event.ProductID),
		zap.String("event_type", event.EventType))
	return nil
}

// Sweeper closes sessions idle for longer than maxIdle
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time, maxIdle time.Duration) int
}

// SessionSweeper periodically closes idle browsing sessions
type SessionSweeper struct {
	sessions Sweeper
	interval time.Duration
	maxIdle  time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewSessionSweeper creates a new session sweeper
func NewSessionSweeper(sessions Sweeper, interval, maxIdle time.Duration) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		maxIdle:  maxIdle,
		logger:   util.GetLogger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until ctx is cancelled or Stop is called
func (s *SessionSweeper) Start(ctx context.Context) error {
	defer close(s.done)

	s.logger.Info("Starting session sweeper",
		zap.Duration("interval", s.interval),
		zap.Duration("max_idle", s.maxIdle))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case now := <-ticker.C:
			if closed := s.sessions.Sweep(ctx, now, s.maxIdle); closed > 0 {
				s.logger.Info("Closed idle sessions", zap.Int("count", closed))
			}
		}
	}
}

// Stop stops the sweeper and waits for a started loop to exit
func (s *SessionSweeper) Stop() error {
	s.logger.Info("Stopping session sweeper")
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}
