package service

import (
	"context"
	"fmt"

	"catalog-service/internal/availability"
	"catalog-service/internal/util"
)

// AvailabilityService resolves availability for one-off requests that do
// not keep a browsing session.
type AvailabilityService struct {
	catalog Catalog
	policy  availability.Policy
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(catalog Catalog, policy availability.Policy) *AvailabilityService {
	return &AvailabilityService{catalog: catalog, policy: policy}
}

// ResolveRequest names the product, channel and optional selection to resolve
type ResolveRequest struct {
	ProductID string
	Channel   string
	// Variation is the selected variation index; nil picks the default
	Variation *int
}

// Resolve fetches a product and returns its view on channel. An invalid
// variation index falls back to the default variation.
func (as *AvailabilityService) Resolve(ctx context.Context, req ResolveRequest) (*ProductViewState, error) {
	ctx, span := util.StartSpan(ctx, "AvailabilityService.Resolve")
	defer span.End()

	product, err := as.catalog.FetchProduct(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", req.ProductID, err)
	}

	selected := as.policy.PickDefault(req.Channel, product.Variations)
	if req.Variation != nil && *req.Variation >= 0 && *req.Variation < len(product.Variations) {
		selected = *req.Variation
	}

	util.AvailabilityRecomputeTotal.WithLabelValues("resolve").Inc()
	return &ProductViewState{
		Channel: req.Channel,
		Product: &ProductView{
			Product:             *product,
			AvailableVariations: as.policy.Resolve(req.Channel, product, selected),
		},
		SelectionState: SelectionState{SelectedVariationIndex: selected},
		Selected:       selectedSummary(product, selected, req.Channel),
		RequestStatus:  RequestStatus{State: StateReady},
		RelatedStatus:  RequestStatus{State: StateIdle},
	}, nil
}

// Match returns the variation an attribute change resolves to, or false
// when none matches.
func (as *AvailabilityService) Match(ctx context.Context, productID string, current int, label, value string) (int, bool, error) {
	ctx, span := util.StartSpan(ctx, "AvailabilityService.Match")
	defer span.End()

	product, err := as.catalog.FetchProduct(ctx, productID)
	if err != nil {
		return -1, false, fmt.Errorf("failed to fetch product %s: %w", productID, err)
	}

	index, ok := availability.MatchByAttributeChange(product, current, label, value)
	if ok {
		util.VariationMatchTotal.WithLabelValues("matched").Inc()
	} else {
		util.VariationMatchTotal.WithLabelValues("not_found").Inc()
	}
	return index, ok, nil
}
