package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngredient(t *testing.T) {
	tests := []struct {
		text     string
		name     string
		quantity float64
		hasQty   bool
		unit     string
		notes    string
	}{
		{
			text: "2 1/2 cups all-purpose flour",
			name: "all-purpose flour", quantity: 2.5, hasQty: true, unit: "cup",
		},
		{
			text: "1 ½ cups flour",
			name: "flour", quantity: 1.5, hasQty: true, unit: "cup",
		},
		{
			text: "¾ tsp salt",
			name: "salt", quantity: 0.75, hasQty: true, unit: "teaspoon",
		},
		{
			text: "3/4 cup sugar",
			name: "sugar", quantity: 0.75, hasQty: true, unit: "cup",
		},
		{
			text: "2.5 oz. butter",
			name: "butter", quantity: 2.5, hasQty: true, unit: "ounce",
		},
		{
			text: "500 g minced beef",
			name: "minced beef", quantity: 500, hasQty: true, unit: "gram",
		},
		{
			text: "1 large onion, diced",
			name: "large onion", quantity: 1, hasQty: true, notes: "diced",
		},
		{
			text: "3 eggs",
			name: "eggs", quantity: 3, hasQty: true,
		},
		{
			text: "2 cloves garlic, crushed",
			name: "garlic", quantity: 2, hasQty: true, unit: "clove", notes: "crushed",
		},
		{
			text: "1 can chickpeas (drained and rinsed)",
			name: "chickpeas", quantity: 1, hasQty: true, unit: "can", notes: "drained and rinsed",
		},
		{
			text: "Salt to taste",
			name: "Salt to taste",
		},
		{
			text: "freshly ground black pepper",
			name: "freshly ground black pepper",
		},
	}

	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			ing := Ingredient(tc.text)

			assert.Equal(t, tc.text, ing.OriginalText, "original text must be preserved verbatim")
			assert.Equal(t, tc.name, ing.Name)
			assert.Equal(t, tc.unit, ing.Unit)
			assert.Equal(t, tc.notes, ing.Notes)
			if tc.hasQty {
				require.NotNil(t, ing.Quantity)
				assert.InDelta(t, tc.quantity, *ing.Quantity, 0.001)
			} else {
				assert.Nil(t, ing.Quantity)
			}
		})
	}
}

func TestIngredientPreservesOriginalOnGarbage(t *testing.T) {
	for _, text := range []string{"", "   ", "???", "- see note below"} {
		ing := Ingredient(text)
		assert.Equal(t, text, ing.OriginalText)
		assert.Nil(t, ing.Quantity)
	}
}

func TestIngredientsFromLinesSkipsBlanks(t *testing.T) {
	out := IngredientsFromLines([]string{"2 cups flour", "", "  ", "3 eggs"})
	require.Len(t, out, 2)
	assert.Equal(t, "flour", out[0].Name)
	assert.Equal(t, "eggs", out[1].Name)
}

func TestCanonicalUnit(t *testing.T) {
	assert.Equal(t, "tablespoon", CanonicalUnit("tbsp"))
	assert.Equal(t, "teaspoon", CanonicalUnit("Tsp"))
	assert.Equal(t, "ounce", CanonicalUnit("oz."))
	assert.Equal(t, "pound", CanonicalUnit("lbs"))
	assert.Equal(t, "kilogram", CanonicalUnit("kg"))
	assert.Equal(t, "milliliter", CanonicalUnit("ml"))
	assert.Equal(t, "liter", CanonicalUnit("l"))
	// Unrecognized tokens pass through lowercased, unchanged.
	assert.Equal(t, "glug", CanonicalUnit("Glug"))
}
