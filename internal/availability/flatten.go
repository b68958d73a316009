package availability

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"catalog-service/internal/models"
)

var sizeRank = map[string]int{
	"XS":   0,
	"S":    1,
	"M":    2,
	"L":    3,
	"XL":   4,
	"XXL":  5,
	"XXXL": 6,
}

// Flatten walks index along the selected variation and returns, per label,
// whether each value at that level still reaches an available leaf. The
// level for label i is reached by following the selected variation's value
// for every label before it. A label whose level cannot be reached gets an
// empty value map.
func Flatten(labels []string, index *Node, selected *models.Variation) []models.LabelAvailability {
	flattened := make([]models.LabelAvailability, 0, len(labels))

	current := index
	for _, label := range labels {
		values := make(map[string]bool)
		for segment, child := range current.Children() {
			values[segment] = Reduce(child)
		}
		flattened = append(flattened, models.LabelAvailability{
			Label:  label,
			Values: values,
		})

		segment, ok := SegmentFor(selected, label)
		if !ok {
			current = nil
			continue
		}
		current = current.Child(segment)
	}

	return flattened
}

// Decorate fills the selector presentation of flattened labels: display
// label, net content unit and options in selector order.
func Decorate(flattened []models.LabelAvailability, category string, selected *models.Variation) {
	for i := range flattened {
		la := &flattened[i]
		la.DisplayLabel = DisplayLabel(category, la.Label)
		if la.Label == LabelNetContent && selected != nil && selected.NetContent != nil {
			la.Unit = selected.NetContent.Unit
		}
		la.Options = SortedOptions(la.Label, la.Values)
	}
}

// DisplayLabel returns the selector heading for label: its words in lower
// case, split at case changes, letter/digit boundaries and punctuation.
func DisplayLabel(category, label string) string {
	if category == models.AccessoriesCategory {
		return "Please Choose:"
	}
	return strings.Join(labelWords(label), " ")
}

func labelWords(label string) []string {
	runes := []rune(label)
	var words []string
	var word []rune
	flush := func() {
		if len(word) > 0 {
			words = append(words, strings.ToLower(string(word)))
			word = word[:0]
		}
	}

	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(word) > 0 {
			prev := word[len(word)-1]
			switch {
			case unicode.IsDigit(prev) != unicode.IsDigit(r):
				flush()
			case unicode.IsLower(prev) && unicode.IsUpper(r):
				flush()
			// the last capital of an acronym starts the next word: SKUType
			case unicode.IsUpper(prev) && unicode.IsUpper(r) &&
				i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				flush()
			}
		}
		word = append(word, r)
	}
	flush()
	return words
}

// SortedOptions returns values ordered the way the selector shows them:
// apparel sizes by rank, numeric labels by value, everything else by name.
func SortedOptions(label string, values map[string]bool) []models.Option {
	options := make([]models.Option, 0, len(values))
	for value, available := range values {
		options = append(options, models.Option{Value: value, Available: available})
	}

	sort.SliceStable(options, func(i, j int) bool {
		a, b := options[i].Value, options[j].Value
		switch label {
		case LabelSize:
			ra, rb := rankOf(a), rankOf(b)
			if ra != rb {
				return ra < rb
			}
		case LabelNetContent, LabelItemsPerPack:
			fa, errA := strconv.ParseFloat(a, 64)
			fb, errB := strconv.ParseFloat(b, 64)
			switch {
			case errA == nil && errB == nil && fa != fb:
				return fa < fb
			case errA == nil && errB != nil:
				return true
			case errA != nil && errB == nil:
				return false
			}
		}
		return a < b
	})

	return options
}

func rankOf(size string) int {
	if rank, ok := sizeRank[size]; ok {
		return rank
	}
	return len(sizeRank)
}
