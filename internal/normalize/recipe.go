package normalize

import (
	"strings"
	"time"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/recipe"
)

// Keyword lists backing the dietary tag heuristic. A tag is derived from the
// ABSENCE of matching keywords, so it is a "likely" signal, never a verified
// dietary claim: a hidden meat stock in an instruction the keywords miss will
// still yield "vegetarian".
var (
	meatKeywords = []string{
		"beef", "pork", "chicken", "lamb", "veal", "turkey", "duck", "goose",
		"bacon", "ham", "sausage", "chorizo", "prosciutto", "salami", "mince",
		"steak", "venison", "rabbit", "fish", "salmon", "tuna", "cod", "trout",
		"haddock", "mackerel", "sardine", "anchovy", "shrimp", "prawn", "crab",
		"lobster", "mussel", "clam", "oyster", "squid", "octopus", "scallop",
		"gelatin", "gelatine", "lard",
	}
	animalProductKeywords = []string{
		"milk", "cheese", "butter", "cream", "yogurt", "yoghurt", "egg",
		"honey", "ghee", "mayonnaise", "custard",
	}
	glutenKeywords = []string{
		"flour", "wheat", "barley", "rye", "spelt", "semolina", "couscous",
		"bread", "breadcrumb", "pasta", "noodle", "cracker", "biscuit",
		"soy sauce", "beer", "malt",
	}
)

// Recipe fills derived fields on a parsed recipe: ingredient re-normalization,
// dietary tags, yield unit canonicalization, total time backfill, and the
// scraped_at stamp. It is a pure transform and performs no validation.
func Recipe(r *recipe.ScrapedRecipe, now time.Time) {
	if r == nil {
		return
	}

	for i := range r.Ingredients {
		if r.Ingredients[i].Name == "" && r.Ingredients[i].OriginalText != "" {
			r.Ingredients[i] = Ingredient(r.Ingredients[i].OriginalText)
		}
	}

	if len(r.DietaryTags) == 0 {
		r.DietaryTags = deriveDietaryTags(r)
	}

	r.YieldUnit = canonicalYieldUnit(r.YieldUnit)

	if r.TotalTimeMinutes == nil && (r.PrepTimeMinutes != nil || r.CookTimeMinutes != nil) {
		total := 0
		if r.PrepTimeMinutes != nil {
			total += *r.PrepTimeMinutes
		}
		if r.CookTimeMinutes != nil {
			total += *r.CookTimeMinutes
		}
		r.TotalTimeMinutes = &total
	}

	if r.ScrapedAt.IsZero() {
		r.ScrapedAt = now
	}
}

func deriveDietaryTags(r *recipe.ScrapedRecipe) []string {
	corpus := buildKeywordCorpus(r)

	var tags []string
	hasMeat := containsAny(corpus, meatKeywords)
	if !hasMeat {
		tags = append(tags, "vegetarian")
		if !containsAny(corpus, animalProductKeywords) {
			tags = append(tags, "vegan")
		}
	}
	if !containsAny(corpus, glutenKeywords) {
		tags = append(tags, "gluten-free")
	}
	return tags
}

func buildKeywordCorpus(r *recipe.ScrapedRecipe) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(r.Name))
	b.WriteByte(' ')
	b.WriteString(strings.ToLower(r.Description))
	for _, ing := range r.Ingredients {
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(ing.Name))
		b.WriteByte(' ')
		b.WriteString(strings.ToLower(ing.OriginalText))
	}
	return b.String()
}

func containsAny(corpus string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(corpus, kw) {
			return true
		}
	}
	return false
}

func canonicalYieldUnit(unit string) string {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "":
		return unit
	case "serving", "servings":
		return "servings"
	case "portion", "portions":
		return "portions"
	default:
		return strings.ToLower(strings.TrimSpace(unit))
	}
}
