package availability

import (
	"catalog-service/internal/models"
)

// Variation labels understood by the key builder and the matcher
const (
	LabelColour        = "colour"
	LabelSize          = "size"
	LabelVariationType = "variationType"
	LabelItemsPerPack  = "itemsPerPack"
	LabelNetContent    = "netContent"
	LabelName          = "name"
)

// BuildKey derives the index path of a variation from its distinguishing
// attributes in fixed priority order. Variations without any of them fall
// back to their name, so the key is never empty.
func BuildKey(v *models.Variation) []string {
	key := make([]string, 0, 5)

	if colour, ok := v.ColourSegment(); ok {
		key = append(key, colour)
	}
	if v.Size != "" {
		key = append(key, v.Size)
	}
	if v.VariationType != "" {
		key = append(key, v.VariationType)
	}
	if items, ok := v.ItemsPerPackSegment(); ok {
		key = append(key, items)
	}
	if content, ok := v.NetContentSegment(); ok {
		key = append(key, content)
	}

	if len(key) == 0 {
		key = append(key, v.Name)
	}
	return key
}

// SegmentFor returns the value the variation contributes for label
func SegmentFor(v *models.Variation, label string) (string, bool) {
	if v == nil {
		return "", false
	}

	switch label {
	case LabelColour:
		return v.ColourSegment()
	case LabelSize:
		return v.Size, v.Size != ""
	case LabelVariationType:
		return v.VariationType, v.VariationType != ""
	case LabelItemsPerPack:
		return v.ItemsPerPackSegment()
	case LabelNetContent:
		if content, ok := v.NetContentSegment(); ok {
			return content, true
		}
		// name-keyed variations sit where net content would
		return v.Name, v.Name != ""
	case LabelName:
		return v.Name, v.Name != ""
	default:
		return "", false
	}
}
