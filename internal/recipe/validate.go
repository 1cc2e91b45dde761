package recipe

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces the structural contract a recipe must meet before it is
// persisted. Every violation is collected so one log line carries the whole
// diagnostic for a rejected recipe, not just the first failure.
func Validate(r *ScrapedRecipe) error {
	if r == nil {
		return errors.New("recipe is nil")
	}

	var violations []string
	add := func(field, reason string) {
		violations = append(violations, fmt.Sprintf("%s: %s", field, reason))
	}

	if strings.TrimSpace(r.ID) == "" {
		add("id", "must not be empty")
	}
	if strings.TrimSpace(r.Source) == "" {
		add("source", "must not be empty")
	}
	if strings.TrimSpace(r.Name) == "" {
		add("recipe_name", "must not be empty")
	}
	if !isValidURL(r.SourceURL) {
		add("source_url", "must be a valid absolute URL")
	}

	if len(r.Instructions) == 0 {
		add("instructions", "must contain at least one step")
	}
	for i, step := range r.Instructions {
		if strings.TrimSpace(step) == "" {
			add(fmt.Sprintf("instructions[%d]", i), "must not be empty")
		}
	}

	if len(r.Ingredients) == 0 {
		add("ingredients", "must contain at least one ingredient")
	}
	for i, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			add(fmt.Sprintf("ingredients[%d].name", i), "must not be empty")
		}
		if ing.OriginalText == "" {
			add(fmt.Sprintf("ingredients[%d].original_text", i), "must not be empty")
		}
		if ing.Quantity != nil && *ing.Quantity <= 0 {
			add(fmt.Sprintf("ingredients[%d].quantity", i), "must be positive")
		}
	}

	if r.Yield != nil && *r.Yield < 0 {
		add("yield", "must not be negative")
	}
	if r.PrepTimeMinutes != nil && *r.PrepTimeMinutes < 0 {
		add("prep_time_minutes", "must not be negative")
	}
	if r.CookTimeMinutes != nil && *r.CookTimeMinutes < 0 {
		add("cook_time_minutes", "must not be negative")
	}
	if r.TotalTimeMinutes != nil && *r.TotalTimeMinutes < 0 {
		add("total_time_minutes", "must not be negative")
	}
	if r.Rating != nil && (*r.Rating < 1 || *r.Rating > 5) {
		add("rating", "must be between 1 and 5")
	}
	switch r.Difficulty {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		add("difficulty", "must be one of easy, medium, hard")
	}
	if r.ScrapedAt.IsZero() {
		add("scraped_at", "must be set")
	}

	if len(violations) > 0 {
		return fmt.Errorf("recipe validation failed: %s", strings.Join(violations, "; "))
	}
	return nil
}

func isValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
