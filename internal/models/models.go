package models

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// AccessoriesCategory selects the name-keyed variation selector
const AccessoriesCategory = "Accessories"

// Product represents a catalog product as returned by the catalog source
type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	SubCategory      string          `json:"subCategory,omitempty"`
	Brand            string          `json:"brand,omitempty"`
	LicensedProducer string          `json:"licensedProducer,omitempty"`
	Image            string          `json:"image,omitempty"`
	VariationLabels  []string        `json:"variationLabels"`
	VariationValues  VariationValues `json:"variationValues,omitempty"`
	Variations       []Variation     `json:"variations"`

	decodeIssues []string
}

// Variation represents one purchasable configuration of a product
type Variation struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Colour        *Colour          `json:"colour,omitempty"`
	Size          string           `json:"size,omitempty"`
	VariationType string           `json:"variationType,omitempty"`
	ItemsPerPack  Quantity         `json:"itemsPerPack,omitempty"`
	NetContent    *NetContent      `json:"netContent,omitempty"`
	Pricing       map[string]Price `json:"pricing,omitempty"`
	Availability  map[string]Stock `json:"availability,omitempty"`
	Images        []string         `json:"images,omitempty"`
}

// Colour is a named colour with its display code
type Colour struct {
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
}

// NetContent is the net content of a variation
type NetContent struct {
	Value *float64 `json:"value,omitempty"`
	Unit  string   `json:"unit,omitempty"`
}

// Price holds the per-channel pricing of a variation
type Price struct {
	Regular decimal.Decimal `json:"regular"`
}

// Stock holds the per-channel stock of a variation
type Stock struct {
	Quantity Quantity `json:"quantity"`
}

// Quantity is a non-negative count that decodes leniently. Numbers and
// numeric strings are accepted; null and anything else decode as zero.
// Fractional stock is kept as sent so threshold checks see 5.5 as above 5.
type Quantity float64

// UnmarshalJSON implements json.Unmarshaler
func (q *Quantity) UnmarshalJSON(data []byte) error {
	*q = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = s
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 {
		return nil
	}
	*q = Quantity(f)
	return nil
}

// QuantityAt returns the stock quantity of the variation for a channel.
// Untracked channels report zero.
func (v *Variation) QuantityAt(channel string) float64 {
	stock, ok := v.Availability[channel]
	if !ok {
		return 0
	}
	return float64(stock.Quantity)
}

// PriceAt returns the regular price of the variation for a channel
func (v *Variation) PriceAt(channel string) (decimal.Decimal, bool) {
	price, ok := v.Pricing[channel]
	if !ok {
		return decimal.Zero, false
	}
	return price.Regular, true
}

// ColourSegment returns "name:code" when both parts are present
func (v *Variation) ColourSegment() (string, bool) {
	if v.Colour == nil || v.Colour.Name == "" || v.Colour.Code == "" {
		return "", false
	}
	return v.Colour.Name + ":" + v.Colour.Code, true
}

// NetContentSegment returns the net content value formatted as a catalog number
func (v *Variation) NetContentSegment() (string, bool) {
	if v.NetContent == nil || v.NetContent.Value == nil {
		return "", false
	}
	return strconv.FormatFloat(*v.NetContent.Value, 'f', -1, 64), true
}

// ItemsPerPackSegment returns the pack count when it is set
func (v *Variation) ItemsPerPackSegment() (string, bool) {
	if v.ItemsPerPack == 0 {
		return "", false
	}
	return strconv.FormatFloat(float64(v.ItemsPerPack), 'f', -1, 64), true
}

// VariationValues is the merchandising tree of a product. Nested objects are
// keyed by variation key segments.
type VariationValues map[string]interface{}

// Lookup follows path through the tree and reports whether the value found
// there is truthy. A reached object counts as configured.
func (vv VariationValues) Lookup(path []string) bool {
	if len(path) == 0 {
		return false
	}

	var current interface{} = map[string]interface{}(vv)
	for _, segment := range path {
		node, ok := current.(map[string]interface{})
		if !ok {
			return false
		}
		current, ok = node[segment]
		if !ok {
			return false
		}
	}

	return truthy(current)
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

// RelatedProduct is a product summary shown in the related section
type RelatedProduct struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Image    string `json:"image,omitempty"`
	Slug     string `json:"slug,omitempty"`
}

// Option is one selectable value of a variation label
type Option struct {
	Value     string `json:"value"`
	Available bool   `json:"available"`
}

// LabelAvailability is the flattened availability of one variation label
type LabelAvailability struct {
	Label        string          `json:"label"`
	DisplayLabel string          `json:"displayLabel"`
	Unit         string          `json:"unit,omitempty"`
	Values       map[string]bool `json:"values"`
	Options      []Option        `json:"options"`
}

// IsAvailable reports whether value is selectable. Values without
// availability information are treated as unavailable.
func (la LabelAvailability) IsAvailable(value string) bool {
	return la.Values[value]
}
