package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"catalog-service/internal/availability"
	"catalog-service/internal/catalog"
	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ErrSuperseded is returned when a newer request of the same family replaced
// this one before it completed. Its result was discarded.
var ErrSuperseded = errors.New("request superseded by a newer request")

// Catalog fetches catalog records
type Catalog interface {
	FetchProduct(ctx context.Context, id string) (*models.Product, error)
	FetchRelated(ctx context.Context, id string) ([]models.RelatedProduct, error)
}

// EventLogger records browsing telemetry without blocking the caller
type EventLogger interface {
	LogEvent(ctx context.Context, kind string, payload map[string]interface{})
}

// Publisher receives the view state after every change. It is called after
// the session lock is released, one state at a time in version order, so a
// slow publisher delays later publishes but never the session itself.
type Publisher interface {
	Publish(ctx context.Context, state ProductViewState)
}

// Session owns the product browsing state of one user. Product and related
// fetches are latest-wins per family; channel and attribute changes are
// applied in arrival order and ignored while no product is loaded.
type Session struct {
	id        string
	catalog   Catalog
	events    EventLogger
	publisher Publisher
	policy    availability.Policy
	logger    *zap.Logger

	// publishMu orders flushes. It is always taken before mu.
	publishMu sync.Mutex

	mu            sync.Mutex
	channel       string
	productID     string
	product       *models.Product
	available     []models.LabelAvailability
	related       []models.RelatedProduct
	selection     SelectionState
	productStatus RequestStatus
	relatedStatus RequestStatus
	productGen    uint64
	relatedGen    uint64
	cancelProduct context.CancelFunc
	cancelRelated context.CancelFunc
	lastSeen      time.Time
	version       uint64
	outbox        []ProductViewState
}

// NewSession creates a new browsing session on channel
func NewSession(
	id string,
	channel string,
	catalog Catalog,
	events EventLogger,
	publisher Publisher,
	policy availability.Policy,
) *Session {
	if events == nil {
		events = nopEvents{}
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Session{
		id:            id,
		catalog:       catalog,
		events:        events,
		publisher:     publisher,
		policy:        policy,
		logger:        util.GetLogger().With(zap.String("session_id", id)),
		channel:       channel,
		productStatus: RequestStatus{State: StateIdle},
		relatedStatus: RequestStatus{State: StateIdle},
		lastSeen:      time.Now(),
	}
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// State returns a snapshot of the current view state
func (s *Session) State() ProductViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ProductID returns the id of the last requested product
func (s *Session) ProductID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.productID
}

// RequestProduct fetches a product and makes it the session product. A
// later call supersedes this one: its fetch is cancelled and its result,
// success or failure, is never applied.
func (s *Session) RequestProduct(ctx context.Context, id string) (ProductViewState, error) {
	ctx, span := util.StartSpan(ctx, "Session.RequestProduct",
		attribute.String("session_id", s.id),
		attribute.String("product_id", id))
	defer span.End()
	defer s.flush(ctx)

	s.mu.Lock()
	s.productGen++
	gen := s.productGen
	if s.cancelProduct != nil {
		s.cancelProduct()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelProduct = cancel
	s.productID = id
	s.productStatus = RequestStatus{State: StateLoading, Pending: true}
	s.touchLocked()
	s.publishLocked()
	s.mu.Unlock()
	s.flush(ctx)

	start := time.Now()
	product, err := s.catalog.FetchProduct(fetchCtx, id)
	util.CatalogFetchLatency.WithLabelValues("product").Observe(time.Since(start).Seconds())
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.productGen {
		util.StaleResponsesDiscarded.WithLabelValues("product").Inc()
		s.logger.Debug("Discarding superseded product response", zap.String("product_id", id))
		return s.snapshotLocked(), ErrSuperseded
	}
	s.cancelProduct = nil

	if err != nil {
		util.CatalogFetchTotal.WithLabelValues("product", "error").Inc()
		code := catalog.ErrorCode(err)
		s.logger.Warn("Product fetch failed",
			zap.String("product_id", id),
			zap.Int("error_code", code),
			zap.Error(err))
		s.productStatus = RequestStatus{State: StateFailed, ErrorCode: code}
		s.publishLocked()
		return s.snapshotLocked(), err
	}
	util.CatalogFetchTotal.WithLabelValues("product", "ok").Inc()

	s.events.LogEvent(ctx, models.EventTypeProductSelected, map[string]interface{}{
		"session_id":       s.id,
		"product_id":       product.ID,
		"product_name":     product.Name,
		"product_category": product.Category,
		"product_lp":       product.LicensedProducer,
		"product_brand":    product.Brand,
		"variation_count":  len(product.Variations),
	})

	s.product = product
	s.productStatus = RequestStatus{State: StateReady}
	s.selectLocked(ctx, s.policy.PickDefault(s.channel, product.Variations), "product_loaded")

	s.logger.Info("Product loaded",
		zap.String("product_id", id),
		zap.Int("variations", len(product.Variations)),
		zap.Int("selected", s.selection.SelectedVariationIndex))
	return s.snapshotLocked(), nil
}

// RequestRelated fetches the related products of a product, latest-wins
// like RequestProduct.
func (s *Session) RequestRelated(ctx context.Context, id string) (ProductViewState, error) {
	ctx, span := util.StartSpan(ctx, "Session.RequestRelated",
		attribute.String("session_id", s.id),
		attribute.String("product_id", id))
	defer span.End()
	defer s.flush(ctx)

	s.mu.Lock()
	s.relatedGen++
	gen := s.relatedGen
	if s.cancelRelated != nil {
		s.cancelRelated()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelRelated = cancel
	s.relatedStatus = RequestStatus{State: StateLoading, Pending: true}
	s.touchLocked()
	s.publishLocked()
	s.mu.Unlock()
	s.flush(ctx)

	start := time.Now()
	related, err := s.catalog.FetchRelated(fetchCtx, id)
	util.CatalogFetchLatency.WithLabelValues("related").Observe(time.Since(start).Seconds())
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.relatedGen {
		util.StaleResponsesDiscarded.WithLabelValues("related").Inc()
		s.logger.Debug("Discarding superseded related response", zap.String("product_id", id))
		return s.snapshotLocked(), ErrSuperseded
	}
	s.cancelRelated = nil

	if err != nil {
		util.CatalogFetchTotal.WithLabelValues("related", "error").Inc()
		code := catalog.ErrorCode(err)
		s.logger.Warn("Related fetch failed",
			zap.String("product_id", id),
			zap.Int("error_code", code),
			zap.Error(err))
		s.relatedStatus = RequestStatus{State: StateFailed, ErrorCode: code}
		s.publishLocked()
		return s.snapshotLocked(), err
	}
	util.CatalogFetchTotal.WithLabelValues("related", "ok").Inc()

	s.related = catalog.WithSlugs(related)
	s.relatedStatus = RequestStatus{State: StateReady}
	s.publishLocked()
	return s.snapshotLocked(), nil
}

// ChangeChannel switches the session channel and recomputes availability
// against it when a product is loaded. No fetch is issued.
func (s *Session) ChangeChannel(ctx context.Context, channel string) ProductViewState {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if channel == "" {
		return s.snapshotLocked()
	}
	s.channel = channel

	if !s.readyLocked() {
		return s.snapshotLocked()
	}

	s.recomputeLocked("channel_changed")
	s.publishLocked()
	return s.snapshotLocked()
}

// ChangeAttribute selects the variation matching the current selection with
// label set to value. The selection is left unchanged when nothing matches.
func (s *Session) ChangeAttribute(ctx context.Context, label, value string) (ProductViewState, bool) {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if !s.readyLocked() {
		return s.snapshotLocked(), false
	}

	index, ok := availability.MatchByAttributeChange(s.product, s.selection.SelectedVariationIndex, label, value)
	if !ok {
		util.VariationMatchTotal.WithLabelValues("not_found").Inc()
		s.logger.Debug("No variation matches attribute change",
			zap.String("label", label),
			zap.String("value", value))
		return s.snapshotLocked(), false
	}
	util.VariationMatchTotal.WithLabelValues("matched").Inc()

	s.selectLocked(ctx, index, "attribute_changed")
	return s.snapshotLocked(), true
}

// SelectVariation selects a variation by index. Indexes outside the
// product's variations are ignored.
func (s *Session) SelectVariation(ctx context.Context, index int) (ProductViewState, bool) {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if !s.readyLocked() || index < 0 || index >= len(s.product.Variations) {
		return s.snapshotLocked(), false
	}

	s.selectLocked(ctx, index, "variation_selected")
	return s.snapshotLocked(), true
}

// SelectImage selects the image shown for the current variation. Negative
// indexes are ignored.
func (s *Session) SelectImage(ctx context.Context, index int) (ProductViewState, bool) {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchLocked()

	if index < 0 {
		return s.snapshotLocked(), false
	}

	s.selection.SelectedImageIndex = index
	s.publishLocked()
	return s.snapshotLocked(), true
}

// Clear discards the product, related products and selection. In-flight
// fetches are cancelled and their results discarded.
func (s *Session) Clear(ctx context.Context) ProductViewState {
	defer s.flush(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelProduct != nil {
		s.cancelProduct()
		s.cancelProduct = nil
	}
	if s.cancelRelated != nil {
		s.cancelRelated()
		s.cancelRelated = nil
	}
	s.productGen++
	s.relatedGen++

	s.productID = ""
	s.product = nil
	s.available = nil
	s.related = nil
	s.selection = SelectionState{}
	s.productStatus = RequestStatus{State: StateIdle}
	s.relatedStatus = RequestStatus{State: StateIdle}

	s.publishLocked()
	return s.snapshotLocked()
}

func (s *Session) readyLocked() bool {
	return s.product != nil && s.productStatus.State == StateReady
}

// selectLocked switches the selected variation, resets the image, and
// republishes the recomputed availability.
func (s *Session) selectLocked(ctx context.Context, index int, trigger string) {
	s.selection = SelectionState{SelectedVariationIndex: index}
	s.recomputeLocked(trigger)

	payload := map[string]interface{}{
		"session_id":       s.id,
		"product_id":       s.product.ID,
		"product_category": s.product.Category,
	}
	if index < len(s.product.Variations) {
		payload["variation_id"] = s.product.Variations[index].ID
		payload["variation_name"] = s.product.Variations[index].Name
	}
	s.events.LogEvent(ctx, models.EventTypeVariationSelected, payload)

	s.publishLocked()
}

func (s *Session) recomputeLocked(trigger string) {
	start := time.Now()
	s.available = s.policy.Resolve(s.channel, s.product, s.selection.SelectedVariationIndex)
	util.AvailabilityRecomputeLatency.Observe(time.Since(start).Seconds())
	util.AvailabilityRecomputeTotal.WithLabelValues(trigger).Inc()
}

// publishLocked stages the current state for the next flush
func (s *Session) publishLocked() {
	s.version++
	s.outbox = append(s.outbox, s.snapshotLocked())
}

// flush hands staged states to the publisher in staging order. It must be
// called without mu held.
func (s *Session) flush(ctx context.Context) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	s.mu.Lock()
	pending := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	for _, state := range pending {
		s.publisher.Publish(ctx, state)
	}
}

func (s *Session) touchLocked() {
	s.lastSeen = time.Now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) snapshotLocked() ProductViewState {
	state := ProductViewState{
		SessionID:     s.id,
		Version:       s.version,
		Channel:       s.channel,
		Related:       s.related,
		RequestStatus: s.productStatus,
		RelatedStatus: s.relatedStatus,
	}
	if state.Related == nil {
		state.Related = []models.RelatedProduct{}
	}

	if s.product != nil {
		state.Product = &ProductView{
			Product:             *s.product,
			AvailableVariations: s.available,
		}
		state.SelectionState = s.selection
		state.Selected = selectedSummary(s.product, s.selection.SelectedVariationIndex, s.channel)
	}
	return state
}

type nopEvents struct{}

func (nopEvents) LogEvent(context.Context, string, map[string]interface{}) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, ProductViewState) {}
