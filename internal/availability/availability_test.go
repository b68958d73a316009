package availability

import (
	"encoding/json"
	"testing"

	"catalog-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stock(channel string, qty float64) map[string]models.Stock {
	return map[string]models.Stock{channel: {Quantity: models.Quantity(qty)}}
}

func floatPtr(f float64) *float64 {
	return &f
}

func decodeProduct(t *testing.T, raw string) *models.Product {
	t.Helper()
	var p models.Product
	require.NoError(t, json.Unmarshal([]byte(raw), &p))
	return &p
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		name      string
		variation models.Variation
		expected  []string
	}{
		{
			name: "all attributes in priority order",
			variation: models.Variation{
				Name:          "ignored",
				Colour:        &models.Colour{Name: "Red", Code: "FF0000"},
				Size:          "M",
				VariationType: "Slim",
				ItemsPerPack:  3,
				NetContent:    &models.NetContent{Value: floatPtr(3.5), Unit: "g"},
			},
			expected: []string{"Red:FF0000", "M", "Slim", "3", "3.5"},
		},
		{
			name: "colour without code is skipped",
			variation: models.Variation{
				Colour: &models.Colour{Name: "Red"},
				Size:   "L",
			},
			expected: []string{"L"},
		},
		{
			name: "integral net content has no decimals",
			variation: models.Variation{
				NetContent: &models.NetContent{Value: floatPtr(7), Unit: "g"},
			},
			expected: []string{"7"},
		},
		{
			name: "falls back to name",
			variation: models.Variation{
				Name:       "Grinder",
				NetContent: &models.NetContent{Unit: "g"},
			},
			expected: []string{"Grinder"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := BuildKey(&tt.variation)
			assert.Equal(t, tt.expected, key)
			assert.Equal(t, key, BuildKey(&tt.variation))
			assert.NotEmpty(t, key)
		})
	}
}

func TestBuildIndexLeaves(t *testing.T) {
	policy := DefaultPolicy()
	variations := []models.Variation{
		{Colour: &models.Colour{Name: "Red", Code: "FF0000"}, Size: "S", Availability: stock("online", 10)},
		{Colour: &models.Colour{Name: "Red", Code: "FF0000"}, Size: "M", Availability: stock("online", 1)},
		{Colour: &models.Colour{Name: "Blue", Code: "0000FF"}, Size: "S", Availability: stock("online", 10)},
	}
	values := models.VariationValues{
		"Red:FF0000":  map[string]interface{}{"S": true, "M": true},
		"Blue:0000FF": map[string]interface{}{"S": false},
	}

	index := policy.BuildIndex("online", variations, values)

	assert.True(t, index.Lookup([]string{"Red:FF0000", "S"}).Value())
	// at the threshold is not above it
	assert.False(t, index.Lookup([]string{"Red:FF0000", "M"}).Value())
	// in stock but not merchandised
	assert.False(t, index.Lookup([]string{"Blue:0000FF", "S"}).Value())
	assert.True(t, index.Lookup([]string{"Blue:0000FF", "S"}).IsLeaf())
}

func TestBuildIndexStoreThreshold(t *testing.T) {
	policy := DefaultPolicy()
	variations := []models.Variation{
		{Size: "S", Availability: stock("store-7", 5)},
		{Size: "M", Availability: stock("store-7", 6)},
		{Size: "L"},
	}
	values := models.VariationValues{"S": true, "M": true, "L": true}

	index := policy.BuildIndex("store-7", variations, values)

	assert.False(t, index.Child("S").Value())
	assert.True(t, index.Child("M").Value())
	assert.False(t, index.Child("L").Value())
}

func TestBuildIndexCollisionLastWriteWins(t *testing.T) {
	policy := DefaultPolicy()
	variations := []models.Variation{
		{Name: "a", Size: "S", Availability: stock("online", 10)},
		{Name: "b", Size: "S", Availability: stock("online", 0)},
	}
	values := models.VariationValues{"S": true}

	index := policy.BuildIndex("online", variations, values)
	assert.False(t, index.Child("S").Value())
}

func TestBuildIndexUnevenDepth(t *testing.T) {
	policy := DefaultPolicy()
	variations := []models.Variation{
		{Colour: &models.Colour{Name: "Red", Code: "1"}, Availability: stock("online", 10)},
		{Colour: &models.Colour{Name: "Red", Code: "1"}, Size: "M", Availability: stock("online", 10)},
		{Colour: &models.Colour{Name: "Blue", Code: "2"}, Size: "M", Availability: stock("online", 10)},
		{Colour: &models.Colour{Name: "Blue", Code: "2"}, Availability: stock("online", 10)},
	}
	values := models.VariationValues{
		"Red:1":  map[string]interface{}{"M": true},
		"Blue:2": true,
	}

	index := policy.BuildIndex("online", variations, values)

	// the leaf for Red:1 is replaced by a branch for Red:1/M
	require.False(t, index.Child("Red:1").IsLeaf())
	assert.True(t, index.Lookup([]string{"Red:1", "M"}).Value())
	// the branch for Blue:2 is replaced by the later leaf
	assert.True(t, index.Child("Blue:2").IsLeaf())
	assert.True(t, index.Child("Blue:2").Value())
}

func TestReduce(t *testing.T) {
	root := Branch()
	root.Set([]string{"a", "x", "1"}, false)
	root.Set([]string{"a", "y"}, true)
	root.Set([]string{"b", "x"}, false)

	assert.True(t, Reduce(root.Child("a")))
	assert.False(t, Reduce(root.Child("b")))
	assert.False(t, Reduce(Branch()))
	assert.False(t, Reduce(nil))
	assert.True(t, Reduce(Leaf(true)))
}

func TestReduceMonotonic(t *testing.T) {
	policy := DefaultPolicy()
	values := models.VariationValues{
		"Red:1":  map[string]interface{}{"S": true, "M": true},
		"Blue:2": map[string]interface{}{"S": true},
	}
	variations := []models.Variation{
		{Colour: &models.Colour{Name: "Red", Code: "1"}, Size: "S"},
		{Colour: &models.Colour{Name: "Blue", Code: "2"}, Size: "S"},
	}

	before := Flatten([]string{"colour"}, policy.BuildIndex("online", variations, values), &variations[0])

	added := append(append([]models.Variation{}, variations...),
		models.Variation{Colour: &models.Colour{Name: "Red", Code: "1"}, Size: "M", Availability: stock("online", 9)})
	after := Flatten([]string{"colour"}, policy.BuildIndex("online", added, values), &added[0])

	for value, flag := range before[0].Values {
		if flag {
			assert.True(t, after[0].Values[value])
		}
	}
	assert.True(t, after[0].Values["Red:1"])
}

func TestFlattenScenario(t *testing.T) {
	product := decodeProduct(t, `{
		"id": "p1",
		"category": "Apparel",
		"variationLabels": ["colour"],
		"variationValues": {"Red:FF0000": true, "Blue:0000FF": true},
		"variations": [
			{"id": "v0", "colour": {"name": "Red", "code": "FF0000"}, "availability": {"online": {"quantity": 0}}},
			{"id": "v1", "colour": {"name": "Blue", "code": "0000FF"}, "availability": {"online": {"quantity": 10}}}
		]
	}`)
	policy := DefaultPolicy()

	selected := policy.PickDefault("online", product.Variations)
	require.Equal(t, 1, selected)

	flattened := policy.Resolve("online", product, selected)
	require.Len(t, flattened, 1)
	assert.Equal(t, map[string]bool{"Red:FF0000": false, "Blue:0000FF": true}, flattened[0].Values)
	assert.Equal(t, "colour", flattened[0].DisplayLabel)
}

func TestFlattenNarrowsAlongSelection(t *testing.T) {
	policy := DefaultPolicy()
	variations := []models.Variation{
		{Colour: &models.Colour{Name: "Red", Code: "1"}, Size: "S", Availability: stock("online", 0)},
		{Colour: &models.Colour{Name: "Red", Code: "1"}, Size: "M", Availability: stock("online", 10)},
		{Colour: &models.Colour{Name: "Blue", Code: "2"}, Size: "S", Availability: stock("online", 10)},
		{Colour: &models.Colour{Name: "Blue", Code: "2"}, Size: "L", Availability: stock("online", 0)},
	}
	values := models.VariationValues{
		"Red:1":  map[string]interface{}{"S": true, "M": true},
		"Blue:2": map[string]interface{}{"S": true, "L": true},
	}
	index := policy.BuildIndex("online", variations, values)
	labels := []string{"colour", "size"}

	red := Flatten(labels, index, &variations[0])
	require.Len(t, red, 2)
	assert.Equal(t, map[string]bool{"Red:1": true, "Blue:2": true}, red[0].Values)
	assert.Equal(t, map[string]bool{"S": false, "M": true}, red[1].Values)

	blue := Flatten(labels, index, &variations[3])
	assert.Equal(t, map[string]bool{"S": true, "L": false}, blue[1].Values)
}

func TestFlattenMissingPath(t *testing.T) {
	policy := DefaultPolicy()
	variations := []models.Variation{
		{Colour: &models.Colour{Name: "Red", Code: "1"}, Size: "S", Availability: stock("online", 10)},
	}
	values := models.VariationValues{"Red:1": map[string]interface{}{"S": true}}
	index := policy.BuildIndex("online", variations, values)

	orphan := &models.Variation{Colour: &models.Colour{Name: "Green", Code: "3"}, Size: "S"}
	flattened := Flatten([]string{"colour", "size", "variationType"}, index, orphan)

	require.Len(t, flattened, 3)
	assert.Equal(t, map[string]bool{"Red:1": true}, flattened[0].Values)
	assert.Empty(t, flattened[1].Values)
	assert.Empty(t, flattened[2].Values)
	assert.False(t, flattened[1].IsAvailable("S"))
}

func TestFlattenIdempotent(t *testing.T) {
	policy := DefaultPolicy()
	variations := []models.Variation{
		{Size: "S", VariationType: "Slim", Availability: stock("online", 10)},
		{Size: "M", VariationType: "Slim", Availability: stock("online", 10)},
		{Size: "M", VariationType: "Wide", Availability: stock("online", 0)},
	}
	values := models.VariationValues{
		"S": map[string]interface{}{"Slim": true},
		"M": map[string]interface{}{"Slim": true, "Wide": true},
	}
	index := policy.BuildIndex("online", variations, values)
	labels := []string{"size", "variationType"}

	first := Flatten(labels, index, &variations[1])
	Decorate(first, "Apparel", &variations[1])
	second := Flatten(labels, index, &variations[1])
	Decorate(second, "Apparel", &variations[1])

	assert.Equal(t, first, second)
}

func TestFlattenNameFallbackForNetContent(t *testing.T) {
	policy := DefaultPolicy()
	variations := []models.Variation{
		{Name: "Small pipe", Availability: stock("online", 3)},
		{Name: "Large pipe", Availability: stock("online", 0)},
	}
	values := models.VariationValues{"Small pipe": true, "Large pipe": true}
	index := policy.BuildIndex("online", variations, values)

	flattened := Flatten([]string{"netContent"}, index, &variations[0])
	assert.Equal(t, map[string]bool{"Small pipe": true, "Large pipe": false}, flattened[0].Values)
}

func TestSortedOptions(t *testing.T) {
	sizes := SortedOptions("size", map[string]bool{"XL": true, "S": false, "One size": true, "M": true})
	assert.Equal(t, []string{"S", "M", "XL", "One size"}, optionValues(sizes))

	contents := SortedOptions("netContent", map[string]bool{"10": true, "3.5": true, "1": false})
	assert.Equal(t, []string{"1", "3.5", "10"}, optionValues(contents))

	colours := SortedOptions("colour", map[string]bool{"Red:1": true, "Blue:2": true})
	assert.Equal(t, []string{"Blue:2", "Red:1"}, optionValues(colours))
}

func optionValues(options []models.Option) []string {
	values := make([]string, len(options))
	for i, o := range options {
		values[i] = o.Value
	}
	return values
}

func TestDisplayLabel(t *testing.T) {
	assert.Equal(t, "items per pack", DisplayLabel("Apparel", "itemsPerPack"))
	assert.Equal(t, "net content", DisplayLabel("Cannabis", "netContent"))
	assert.Equal(t, "variation type", DisplayLabel("Apparel", "variationType"))
	assert.Equal(t, "sku type", DisplayLabel("Apparel", "SKUType"))
	assert.Equal(t, "size 2", DisplayLabel("Apparel", "size2"))
	assert.Equal(t, "items per pack", DisplayLabel("Apparel", "items_per_pack"))
	assert.Equal(t, "pack size", DisplayLabel("Apparel", "--pack-size--"))
	assert.Equal(t, "", DisplayLabel("Apparel", ""))
	assert.Equal(t, "Please Choose:", DisplayLabel(models.AccessoriesCategory, "size"))
}

func TestMinStockAndPickDefault(t *testing.T) {
	policy := DefaultPolicy()
	assert.Equal(t, 1, policy.MinStock("online"))
	assert.Equal(t, 5, policy.MinStock("store-42"))

	variations := []models.Variation{
		{Availability: stock("store-42", 5)},
		{Availability: stock("store-42", 6)},
	}
	assert.Equal(t, 1, policy.PickDefault("store-42", variations))
	assert.Equal(t, 0, policy.PickDefault("online", variations))

	allLow := []models.Variation{
		{Availability: stock("online", 1)},
		{Availability: stock("online", 0)},
	}
	assert.Equal(t, 0, policy.PickDefault("online", allLow))
	assert.Equal(t, 0, policy.PickDefault("online", nil))
}

func TestPickDefaultFractionalStock(t *testing.T) {
	policy := DefaultPolicy()

	variations := []models.Variation{
		{},
		{Availability: stock("store-42", 5.5)},
	}
	assert.Equal(t, 1, policy.PickDefault("store-42", variations))

	sized := []models.Variation{{Size: "S", Availability: stock("store-42", 5.5)}}
	index := policy.BuildIndex("store-42", sized, models.VariationValues{"S": true})
	assert.True(t, index.Child("S").Value())
}

func TestMatchByAttributeChange(t *testing.T) {
	product := &models.Product{
		Category: "Apparel",
		Variations: []models.Variation{
			{Name: "Red S", Colour: &models.Colour{Name: "Red", Code: "FF0000"}, Size: "S", Availability: stock("online", 0)},
			{Name: "Blue S", Colour: &models.Colour{Name: "Blue", Code: "0000FF"}, Size: "S", Availability: stock("online", 10)},
			{Name: "Blue M", Colour: &models.Colour{Name: "Blue", Code: "0000FF"}, Size: "M"},
			{Name: "Blue M dup", Colour: &models.Colour{Name: "Blue", Code: "0000FF"}, Size: "M"},
		},
	}

	// matching ignores stock
	idx, ok := MatchByAttributeChange(product, 1, "colour", "Red:FF0000")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	// lowest declaration index wins
	idx, ok = MatchByAttributeChange(product, 1, "size", "M")
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok = MatchByAttributeChange(product, 0, "size", "M")
	assert.False(t, ok)

	_, ok = MatchByAttributeChange(product, 0, "unknown", "x")
	assert.False(t, ok)

	_, ok = MatchByAttributeChange(product, 9, "size", "S")
	assert.False(t, ok)
}

func TestMatchByAttributeChangeName(t *testing.T) {
	product := &models.Product{
		Category: "Apparel",
		Variations: []models.Variation{
			{Name: "Classic", Size: "M"},
			{Name: "Limited", Size: "M"},
		},
	}

	idx, ok := MatchByAttributeChange(product, 0, "name", "Limited")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestMatchByAttributeChangeNetContent(t *testing.T) {
	product := &models.Product{
		Category: "Cannabis",
		Variations: []models.Variation{
			{NetContent: &models.NetContent{Value: floatPtr(3.5), Unit: "g"}},
			{NetContent: &models.NetContent{Value: floatPtr(7), Unit: "g"}},
		},
	}

	idx, ok := MatchByAttributeChange(product, 0, "netContent", "7")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestMatchAccessoriesByName(t *testing.T) {
	product := &models.Product{
		Category: models.AccessoriesCategory,
		Variations: []models.Variation{
			{Name: "Glass", Size: "S"},
			{Name: "Metal", Size: "L"},
		},
	}

	idx, ok := MatchByAttributeChange(product, 0, "size", "Metal")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = MatchByAttributeChange(product, 0, "size", "Wood")
	assert.False(t, ok)
}
