package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/recipe"
)

func intPtr(v int) *int { return &v }

func TestRecipeDerivesDietaryTags(t *testing.T) {
	tests := []struct {
		name        string
		ingredients []string
		wantTags    []string
	}{
		{
			name:        "vegan and gluten free",
			ingredients: []string{"1 can chickpeas", "2 tbsp olive oil", "1 large onion"},
			wantTags:    []string{"vegetarian", "vegan", "gluten-free"},
		},
		{
			name:        "vegetarian with dairy",
			ingredients: []string{"200 g halloumi cheese", "1 cup rice"},
			wantTags:    []string{"vegetarian", "gluten-free"},
		},
		{
			name:        "meat dish",
			ingredients: []string{"500 g chicken breast", "2 cups flour"},
			wantTags:    nil,
		},
		{
			name:        "gluten free meat dish",
			ingredients: []string{"300 g salmon fillet", "1 cup rice"},
			wantTags:    []string{"gluten-free"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &recipe.ScrapedRecipe{
				Name:        "Test Dish",
				Ingredients: IngredientsFromLines(tc.ingredients),
			}
			Recipe(r, time.Now())
			assert.Equal(t, tc.wantTags, r.DietaryTags)
		})
	}
}

func TestRecipeKeepsExplicitTags(t *testing.T) {
	r := &recipe.ScrapedRecipe{
		Name:        "Hidden Stock Stew",
		Ingredients: IngredientsFromLines([]string{"2 cups vegetables"}),
		DietaryTags: []string{"halal"},
	}
	Recipe(r, time.Now())
	assert.Equal(t, []string{"halal"}, r.DietaryTags)
}

func TestRecipeBackfillsTotalTime(t *testing.T) {
	r := &recipe.ScrapedRecipe{
		Name:            "Timed Dish",
		PrepTimeMinutes: intPtr(15),
		CookTimeMinutes: intPtr(30),
	}
	Recipe(r, time.Now())
	require.NotNil(t, r.TotalTimeMinutes)
	assert.Equal(t, 45, *r.TotalTimeMinutes)

	onlyPrep := &recipe.ScrapedRecipe{PrepTimeMinutes: intPtr(10)}
	Recipe(onlyPrep, time.Now())
	require.NotNil(t, onlyPrep.TotalTimeMinutes)
	assert.Equal(t, 10, *onlyPrep.TotalTimeMinutes)

	explicit := &recipe.ScrapedRecipe{PrepTimeMinutes: intPtr(10), TotalTimeMinutes: intPtr(99)}
	Recipe(explicit, time.Now())
	assert.Equal(t, 99, *explicit.TotalTimeMinutes)
}

func TestRecipeCanonicalizesYieldUnit(t *testing.T) {
	for input, want := range map[string]string{
		"serving": "servings", "Servings": "servings",
		"portion": "portions", "portions": "portions",
		"loaf": "loaf", "": "",
	} {
		r := &recipe.ScrapedRecipe{YieldUnit: input}
		Recipe(r, time.Now())
		assert.Equal(t, want, r.YieldUnit, "yield unit %q", input)
	}
}

func TestRecipeStampsScrapedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &recipe.ScrapedRecipe{}
	Recipe(r, now)
	assert.Equal(t, now, r.ScrapedAt)

	already := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r2 := &recipe.ScrapedRecipe{ScrapedAt: already}
	Recipe(r2, now)
	assert.Equal(t, already, r2.ScrapedAt)
}

func TestRecipeNormalizesRawIngredients(t *testing.T) {
	r := &recipe.ScrapedRecipe{
		Ingredients: []recipe.Ingredient{{OriginalText: "2 tbsp soy sauce"}},
	}
	Recipe(r, time.Now())
	require.Len(t, r.Ingredients, 1)
	assert.Equal(t, "soy sauce", r.Ingredients[0].Name)
	assert.Equal(t, "tablespoon", r.Ingredients[0].Unit)
	assert.Equal(t, "2 tbsp soy sauce", r.Ingredients[0].OriginalText)
}
