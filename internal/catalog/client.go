package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Source fetches catalog records
type Source interface {
	FetchProduct(ctx context.Context, id string) (*models.Product, error)
	FetchRelated(ctx context.Context, id string) ([]models.RelatedProduct, error)
}

// Client fetches products from the catalog HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new catalog API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     util.GetLogger(),
	}
}

// FetchProduct retrieves a product with its variations
func (c *Client) FetchProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.FetchProduct", attribute.String("product_id", id))
	defer span.End()

	endpoint := fmt.Sprintf("%s/products/%s?showOnWeb=yes", c.baseURL, url.PathEscape(id))

	var product models.Product
	if err := c.getJSON(ctx, endpoint, &product); err != nil {
		return nil, err
	}
	if issues := product.DecodeIssues(); len(issues) > 0 {
		c.logger.Warn("Catalog product has malformed fields",
			zap.String("product_id", id),
			zap.Strings("fields", issues))
	}
	return &product, nil
}

// FetchRelated retrieves the products related to a product
func (c *Client) FetchRelated(ctx context.Context, id string) ([]models.RelatedProduct, error) {
	ctx, span := util.StartSpan(ctx, "CatalogClient.FetchRelated", attribute.String("product_id", id))
	defer span.End()

	endpoint := fmt.Sprintf("%s/products/%s/related", c.baseURL, url.PathEscape(id))

	var related []models.RelatedProduct
	if err := c.getJSON(ctx, endpoint, &related); err != nil {
		return nil, err
	}
	return related, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &TransportError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Debug("Catalog request rejected",
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))

		cause := fmt.Errorf("unexpected status %s", resp.Status)
		if resp.StatusCode == http.StatusNotFound {
			cause = ErrNotFound
		}
		return &TransportError{Status: resp.StatusCode, Err: cause}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
