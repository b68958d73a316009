package service

import (
	"encoding/json"

	"catalog-service/internal/models"

	"github.com/shopspring/decimal"
)

// RequestState is the lifecycle state of one request family
type RequestState string

const (
	StateIdle    RequestState = "idle"
	StateLoading RequestState = "loading"
	StateReady   RequestState = "ready"
	StateFailed  RequestState = "failed"
)

// RequestStatus is the published status of a request family
type RequestStatus struct {
	State     RequestState `json:"state"`
	Pending   bool         `json:"pending"`
	ErrorCode int          `json:"errorCode,omitempty"`
}

// SelectionState is the selected variation and image of a session
type SelectionState struct {
	SelectedVariationIndex int `json:"selectedVariationIndex"`
	SelectedImageIndex     int `json:"selectedImageIndex"`
}

// ProductView is a product with its derived availability attached
type ProductView struct {
	models.Product
	AvailableVariations []models.LabelAvailability `json:"availableVariations"`
}

// UnmarshalJSON decodes both halves of the view. The embedded product's own
// decoder would otherwise be promoted and drop AvailableVariations.
func (pv *ProductView) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, &pv.Product); err != nil {
		return err
	}
	var derived struct {
		AvailableVariations []models.LabelAvailability `json:"availableVariations"`
	}
	if err := json.Unmarshal(data, &derived); err != nil {
		return err
	}
	pv.AvailableVariations = derived.AvailableVariations
	return nil
}

// SelectedVariation summarises the selected variation for the session channel
type SelectedVariation struct {
	Index  int              `json:"index"`
	ID     string           `json:"id"`
	Name   string           `json:"name"`
	Price  *decimal.Decimal `json:"price,omitempty"`
	Images []string         `json:"images"`
}

// ProductViewState is published after every recomputation. Version grows
// by one with every published state of a session.
type ProductViewState struct {
	SessionID string                  `json:"sessionId"`
	Version   uint64                  `json:"version"`
	Channel   string                  `json:"channel"`
	Product   *ProductView            `json:"product"`
	Related   []models.RelatedProduct `json:"related"`
	SelectionState
	Selected      *SelectedVariation `json:"selected,omitempty"`
	RequestStatus RequestStatus      `json:"requestStatus"`
	RelatedStatus RequestStatus      `json:"relatedStatus"`
}

func selectedSummary(product *models.Product, index int, channel string) *SelectedVariation {
	if product == nil || index < 0 || index >= len(product.Variations) {
		return nil
	}

	v := &product.Variations[index]
	summary := &SelectedVariation{
		Index:  index,
		ID:     v.ID,
		Name:   v.Name,
		Images: v.Images,
	}
	if price, ok := v.PriceAt(channel); ok {
		summary.Price = &price
	}
	if len(summary.Images) == 0 && product.Image != "" {
		summary.Images = []string{product.Image}
	}
	return summary
}
