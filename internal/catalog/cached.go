package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/redisclient"
	"catalog-service/internal/util"

	"go.uber.org/zap"
)

// SnapshotCache stores catalog documents by product id
type SnapshotCache interface {
	GetProduct(ctx context.Context, productID string) ([]byte, error)
	SetProduct(ctx context.Context, productID string, doc []byte, ttl time.Duration) error
	GetRelated(ctx context.Context, productID string) ([]byte, error)
	SetRelated(ctx context.Context, productID string, doc []byte, ttl time.Duration) error
}

// Cached is a read-through cache in front of a catalog source. Cache
// failures fall through to the source.
type Cached struct {
	source Source
	cache  SnapshotCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached creates a new cached catalog source
func NewCached(source Source, cache SnapshotCache, ttl time.Duration) *Cached {
	return &Cached{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: util.GetLogger(),
	}
}

// FetchProduct returns the cached product or fetches and caches it
func (c *Cached) FetchProduct(ctx context.Context, id string) (*models.Product, error) {
	if doc, ok := c.lookup(ctx, "product", id, c.cache.GetProduct); ok {
		var product models.Product
		if err := json.Unmarshal(doc, &product); err == nil {
			return &product, nil
		}
		c.logger.Warn("Dropping undecodable cached product", zap.String("product_id", id))
	}

	product, err := c.source.FetchProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, "product", id, product, c.cache.SetProduct)
	return product, nil
}

// FetchRelated returns the cached related products or fetches and caches them
func (c *Cached) FetchRelated(ctx context.Context, id string) ([]models.RelatedProduct, error) {
	if doc, ok := c.lookup(ctx, "related", id, c.cache.GetRelated); ok {
		var related []models.RelatedProduct
		if err := json.Unmarshal(doc, &related); err == nil {
			return related, nil
		}
		c.logger.Warn("Dropping undecodable cached related products", zap.String("product_id", id))
	}

	related, err := c.source.FetchRelated(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, "related", id, related, c.cache.SetRelated)
	return related, nil
}

func (c *Cached) lookup(
	ctx context.Context,
	kind, id string,
	get func(context.Context, string) ([]byte, error),
) ([]byte, bool) {
	doc, err := get(ctx, id)
	if err == nil {
		util.CatalogCacheRequests.WithLabelValues(kind, "hit").Inc()
		return doc, true
	}

	util.CatalogCacheRequests.WithLabelValues(kind, "miss").Inc()
	if !errors.Is(err, redisclient.ErrCacheMiss) {
		c.logger.Warn("Catalog cache read failed",
			zap.String("kind", kind),
			zap.String("product_id", id),
			zap.Error(err))
	}
	return nil, false
}

func (c *Cached) store(
	ctx context.Context,
	kind, id string,
	value interface{},
	set func(context.Context, string, []byte, time.Duration) error,
) {
	doc, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to encode catalog document", zap.String("kind", kind), zap.Error(err))
		return
	}

	if err := set(ctx, id, doc, c.ttl); err != nil {
		c.logger.Warn("Catalog cache write failed",
			zap.String("kind", kind),
			zap.String("product_id", id),
			zap.Error(err))
	}
}
