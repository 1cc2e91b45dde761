// Package recipe defines the canonical scraped-recipe record shared across
// the acquisition pipeline, along with its structural validation rules.
package recipe

import "time"

// Difficulty classifies how demanding a recipe is to cook.
type Difficulty string

// Difficulty values accepted in scraped records.
const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Ingredient is a single structured ingredient line. OriginalText always
// preserves the untouched source line, even when parsing succeeds.
type Ingredient struct {
	Name         string   `json:"name"`
	Quantity     *float64 `json:"quantity,omitempty"`
	Unit         string   `json:"unit,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	OriginalText string   `json:"original_text"`
}

// ScrapedRecipe is the canonical unit produced by a source scraper and
// persisted by the storage engine. (Source, SourceURL) uniquely identifies a
// recipe; re-scraping the same URL updates in place, never duplicates.
type ScrapedRecipe struct {
	ID               string       `json:"id"`
	Source           string       `json:"source"`
	SourceURL        string       `json:"source_url"`
	Name             string       `json:"recipe_name"`
	Description      string       `json:"description,omitempty"`
	Instructions     []string     `json:"instructions"`
	Ingredients      []Ingredient `json:"ingredients"`
	Yield            *float64     `json:"yield,omitempty"`
	YieldUnit        string       `json:"yield_unit,omitempty"`
	PrepTimeMinutes  *int         `json:"prep_time_minutes,omitempty"`
	CookTimeMinutes  *int         `json:"cook_time_minutes,omitempty"`
	TotalTimeMinutes *int         `json:"total_time_minutes,omitempty"`
	Difficulty       Difficulty   `json:"difficulty,omitempty"`
	Category         string       `json:"category,omitempty"`
	Cuisine          string       `json:"cuisine,omitempty"`
	DietaryTags      []string     `json:"dietary_tags,omitempty"`
	ImageURL         string       `json:"image_url,omitempty"`
	Author           string       `json:"author,omitempty"`
	Rating           *float64     `json:"rating,omitempty"`
	ScrapedAt        time.Time    `json:"scraped_at"`
	UpdatedAt        *time.Time   `json:"updated_at,omitempty"`
}

// ScrapeResult is the outcome of scraping a single URL.
type ScrapeResult struct {
	Success bool           `json:"success"`
	Recipe  *ScrapedRecipe `json:"recipe,omitempty"`
	Error   string         `json:"error,omitempty"`
	Source  string         `json:"source"`
	URL     string         `json:"url"`
}

// HasDietaryTag reports whether the recipe carries the given tag.
func (r *ScrapedRecipe) HasDietaryTag(tag string) bool {
	for _, t := range r.DietaryTags {
		if t == tag {
			return true
		}
	}
	return false
}
