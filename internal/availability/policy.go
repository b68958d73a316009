package availability

import (
	"catalog-service/internal/models"
)

// Default stock thresholds
const (
	DefaultOnlineChannel  = "online"
	DefaultOnlineMinStock = 1
	DefaultStoreMinStock  = 5
)

// Policy holds the channel stock thresholds
type Policy struct {
	OnlineChannel  string
	OnlineMinStock int
	StoreMinStock  int
}

// DefaultPolicy returns the policy with the default thresholds
func DefaultPolicy() Policy {
	return Policy{
		OnlineChannel:  DefaultOnlineChannel,
		OnlineMinStock: DefaultOnlineMinStock,
		StoreMinStock:  DefaultStoreMinStock,
	}
}

// MinStock returns the quantity a channel must exceed to count as in stock
func (p Policy) MinStock(channel string) int {
	if channel == p.OnlineChannel {
		return p.OnlineMinStock
	}
	return p.StoreMinStock
}

// PickDefault returns the index of the first variation stocked above the
// channel threshold, or 0 when none is.
func (p Policy) PickDefault(channel string, variations []models.Variation) int {
	minStock := p.MinStock(channel)
	for i := range variations {
		if variations[i].QuantityAt(channel) > float64(minStock) {
			return i
		}
	}
	return 0
}

// Resolve builds the index of product for channel and flattens it along the
// selected variation.
func (p Policy) Resolve(channel string, product *models.Product, selected int) []models.LabelAvailability {
	index := p.BuildIndex(channel, product.Variations, product.VariationValues)

	var current *models.Variation
	if selected >= 0 && selected < len(product.Variations) {
		current = &product.Variations[selected]
	}

	flattened := Flatten(product.VariationLabels, index, current)
	Decorate(flattened, product.Category, current)
	return flattened
}
