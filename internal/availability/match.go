package availability

import (
	"catalog-service/internal/models"
)

// attributeTuple is the normalized comparison form of a variation
type attributeTuple struct {
	name          string
	size          string
	colour        string
	itemsPerPack  string
	variationType string
	netContent    string
}

func tupleOf(v *models.Variation, includeName bool) attributeTuple {
	t := attributeTuple{
		size:          v.Size,
		variationType: v.VariationType,
	}
	if includeName {
		t.name = v.Name
	}
	t.colour, _ = v.ColourSegment()
	t.itemsPerPack, _ = v.ItemsPerPackSegment()
	t.netContent, _ = v.NetContentSegment()
	return t
}

func (t *attributeTuple) set(label, value string) bool {
	switch label {
	case LabelName:
		t.name = value
	case LabelSize:
		t.size = value
	case LabelColour:
		t.colour = value
	case LabelItemsPerPack:
		t.itemsPerPack = value
	case LabelVariationType:
		t.variationType = value
	case LabelNetContent:
		t.netContent = value
	default:
		return false
	}
	return true
}

// MatchByAttributeChange finds the first variation that keeps every
// attribute of the current selection except label, which takes value.
// Accessories are matched by variation name instead. The second result is
// false when nothing matches; callers keep their current selection then.
func MatchByAttributeChange(product *models.Product, current int, label, value string) (int, bool) {
	if product == nil {
		return -1, false
	}

	if product.Category == models.AccessoriesCategory {
		return MatchByName(product.Variations, value)
	}

	if current < 0 || current >= len(product.Variations) {
		return -1, false
	}

	includeName := label == LabelName
	target := tupleOf(&product.Variations[current], includeName)
	if !target.set(label, value) {
		return -1, false
	}

	for i := range product.Variations {
		if tupleOf(&product.Variations[i], includeName) == target {
			return i, true
		}
	}
	return -1, false
}

// MatchByName returns the first variation named name
func MatchByName(variations []models.Variation, name string) (int, bool) {
	for i := range variations {
		if variations[i].Name == name {
			return i, true
		}
	}
	return -1, false
}
