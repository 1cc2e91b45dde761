package recipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecipe() *ScrapedRecipe {
	return &ScrapedRecipe{
		ID:           "chickpea-curry-12345",
		Source:       "goodfood",
		SourceURL:    "https://example.com/recipes/12345/chickpea-curry",
		Name:         "Chickpea Curry",
		Instructions: []string{"Fry the onion.", "Add the chickpeas and simmer."},
		Ingredients: []Ingredient{
			{Name: "chickpeas", OriginalText: "1 can chickpeas"},
			{Name: "onion", OriginalText: "1 large onion, diced"},
		},
		ScrapedAt: time.Now().UTC(),
	}
}

func TestValidateAcceptsCompleteRecipe(t *testing.T) {
	require.NoError(t, Validate(validRecipe()))
}

func TestValidateRejectsIncompleteness(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ScrapedRecipe)
		wantSub string
	}{
		{"missing instructions", func(r *ScrapedRecipe) { r.Instructions = nil }, "instructions"},
		{"empty ingredients", func(r *ScrapedRecipe) { r.Ingredients = nil }, "ingredients"},
		{"blank instruction step", func(r *ScrapedRecipe) { r.Instructions[1] = "  " }, "instructions[1]"},
		{"malformed source url", func(r *ScrapedRecipe) { r.SourceURL = "not a url" }, "source_url"},
		{"missing id", func(r *ScrapedRecipe) { r.ID = "" }, "id"},
		{"missing name", func(r *ScrapedRecipe) { r.Name = "" }, "recipe_name"},
		{"ingredient without name", func(r *ScrapedRecipe) { r.Ingredients[0].Name = "" }, "ingredients[0].name"},
		{"ingredient without original text", func(r *ScrapedRecipe) { r.Ingredients[1].OriginalText = "" }, "ingredients[1].original_text"},
		{"out of range rating", func(r *ScrapedRecipe) { six := 6.0; r.Rating = &six }, "rating"},
		{"negative cook time", func(r *ScrapedRecipe) { neg := -5; r.CookTimeMinutes = &neg }, "cook_time_minutes"},
		{"unknown difficulty", func(r *ScrapedRecipe) { r.Difficulty = "brutal" }, "difficulty"},
		{"zero scraped_at", func(r *ScrapedRecipe) { r.ScrapedAt = time.Time{} }, "scraped_at"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := validRecipe()
			tc.mutate(r)
			err := Validate(r)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantSub)
		})
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	r := validRecipe()
	r.Instructions = nil
	r.Ingredients = nil
	r.SourceURL = "::not-a-url"

	err := Validate(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instructions")
	assert.Contains(t, err.Error(), "ingredients")
	assert.Contains(t, err.Error(), "source_url")
}
