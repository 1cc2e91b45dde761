package scrape

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/normalize"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/recipe"
)

// ldRecipe models the JSON-LD Recipe shape. Fields whose type varies across
// sites are held as json.RawMessage and decoded through explicit helpers, so
// every access is a checked decode rather than a hopeful property read.
type ldRecipe struct {
	Type               json.RawMessage   `json:"@type"`
	Graph              []json.RawMessage `json:"@graph"`
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Image              json.RawMessage   `json:"image"`
	Author             json.RawMessage   `json:"author"`
	RecipeYield        json.RawMessage   `json:"recipeYield"`
	PrepTime           string            `json:"prepTime"`
	CookTime           string            `json:"cookTime"`
	TotalTime          string            `json:"totalTime"`
	RecipeCategory     json.RawMessage   `json:"recipeCategory"`
	RecipeCuisine      json.RawMessage   `json:"recipeCuisine"`
	RecipeIngredient   []string          `json:"recipeIngredient"`
	LegacyIngredients  []string          `json:"ingredients"`
	RecipeInstructions json.RawMessage   `json:"recipeInstructions"`
	AggregateRating    json.RawMessage   `json:"aggregateRating"`
	Suitable           json.RawMessage   `json:"suitableForDiet"`
}

// ParseJSONLD extracts a recipe from embedded JSON-LD markup, the dominant
// convention across recipe sites. It returns nil when no usable Recipe node
// is present; callers fall through to the HTML selector parser.
func ParseJSONLD(body []byte, pageURL string) *recipe.ScrapedRecipe {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var found *recipe.ScrapedRecipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, raw := range splitLDDocument([]byte(sel.Text())) {
			if r := mapLDRecipe(raw, pageURL); r != nil {
				found = r
				return false
			}
		}
		return true
	})
	return found
}

// splitLDDocument flattens a JSON-LD script body into candidate nodes: the
// top-level object, array elements, and @graph members.
func splitLDDocument(body []byte) []json.RawMessage {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}

	if body[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(body, &arr); err != nil {
			return nil
		}
		return arr
	}

	var node ldRecipe
	if err := json.Unmarshal(body, &node); err != nil {
		return nil
	}
	if len(node.Graph) > 0 {
		return node.Graph
	}
	return []json.RawMessage{json.RawMessage(body)}
}

func mapLDRecipe(raw json.RawMessage, pageURL string) *recipe.ScrapedRecipe {
	var ld ldRecipe
	if err := json.Unmarshal(raw, &ld); err != nil {
		return nil
	}
	if !hasRecipeType(ld.Type) {
		return nil
	}

	lines := ld.RecipeIngredient
	if len(lines) == 0 {
		lines = ld.LegacyIngredients
	}
	instructions := decodeInstructions(ld.RecipeInstructions)
	if ld.Name == "" || len(lines) == 0 || len(instructions) == 0 {
		return nil
	}

	r := &recipe.ScrapedRecipe{
		Name:         strings.TrimSpace(ld.Name),
		Description:  strings.TrimSpace(ld.Description),
		Ingredients:  normalize.IngredientsFromLines(lines),
		Instructions: instructions,
		ImageURL:     decodeImage(ld.Image),
		Author:       decodeAuthor(ld.Author),
		Category:     firstDecodedString(ld.RecipeCategory),
		Cuisine:      firstDecodedString(ld.RecipeCuisine),
		Rating:       decodeRating(ld.AggregateRating),
		SourceURL:    pageURL,
	}
	r.PrepTimeMinutes = parseISODurationMinutes(ld.PrepTime)
	r.CookTimeMinutes = parseISODurationMinutes(ld.CookTime)
	r.TotalTimeMinutes = parseISODurationMinutes(ld.TotalTime)
	r.Yield, r.YieldUnit = decodeYield(ld.RecipeYield)
	r.DietaryTags = decodeSuitableForDiet(ld.Suitable)
	return r
}

// hasRecipeType handles "@type" as either a string or an array of strings.
func hasRecipeType(raw json.RawMessage) bool {
	for _, t := range decodeStringList(raw) {
		if strings.EqualFold(t, "Recipe") {
			return true
		}
	}
	return false
}

// decodeStringList accepts a string, a number, or an array of either.
func decodeStringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return []string{strconv.FormatFloat(num, 'f', -1, 64)}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		out = append(out, decodeStringList(item)...)
	}
	return out
}

func firstDecodedString(raw json.RawMessage) string {
	list := decodeStringList(raw)
	if len(list) == 0 {
		return ""
	}
	return strings.TrimSpace(list[0])
}

type ldStep struct {
	Type            json.RawMessage   `json:"@type"`
	Text            string            `json:"text"`
	Name            string            `json:"name"`
	ItemListElement []json.RawMessage `json:"itemListElement"`
}

// decodeInstructions accepts a bare string, an array of strings, an array of
// HowToStep objects, or HowToSection objects wrapping further steps.
func decodeInstructions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		single = strings.TrimSpace(single)
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		out = append(out, decodeInstructionItem(item)...)
	}
	return out
}

func decodeInstructionItem(raw json.RawMessage) []string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil
		}
		return []string{text}
	}
	var step ldStep
	if err := json.Unmarshal(raw, &step); err != nil {
		return nil
	}
	if len(step.ItemListElement) > 0 {
		var out []string
		for _, nested := range step.ItemListElement {
			out = append(out, decodeInstructionItem(nested)...)
		}
		return out
	}
	if t := strings.TrimSpace(step.Text); t != "" {
		return []string{t}
	}
	if n := strings.TrimSpace(step.Name); n != "" {
		return []string{n}
	}
	return nil
}

type ldImage struct {
	URL string `json:"url"`
}

func decodeImage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj ldImage
	if err := json.Unmarshal(raw, &obj); err == nil && obj.URL != "" {
		return strings.TrimSpace(obj.URL)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		return decodeImage(items[0])
	}
	return ""
}

type ldPerson struct {
	Name string `json:"name"`
}

func decodeAuthor(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var person ldPerson
	if err := json.Unmarshal(raw, &person); err == nil && person.Name != "" {
		return strings.TrimSpace(person.Name)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil && len(items) > 0 {
		return decodeAuthor(items[0])
	}
	return ""
}

type ldRating struct {
	RatingValue json.RawMessage `json:"ratingValue"`
}

func decodeRating(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var obj ldRating
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	s := firstDecodedString(obj.RatingValue)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 1 || v > 5 {
		return nil
	}
	return &v
}

var yieldNumber = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

// decodeYield accepts "4 servings", "4", 4, or a list of those and returns
// the numeric yield plus a unit word when one follows the number.
func decodeYield(raw json.RawMessage) (*float64, string) {
	return parseYieldText(firstDecodedString(raw))
}

func parseYieldText(s string) (*float64, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ""
	}
	m := yieldNumber.FindStringSubmatch(s)
	if m == nil {
		return nil, strings.ToLower(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, ""
	}
	unit := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, m[0])))
	return &v, unit
}

func decodeSuitableForDiet(raw json.RawMessage) []string {
	var tags []string
	for _, entry := range decodeStringList(raw) {
		entry = strings.TrimPrefix(entry, "https://schema.org/")
		entry = strings.TrimPrefix(entry, "http://schema.org/")
		switch entry {
		case "VegetarianDiet":
			tags = append(tags, "vegetarian")
		case "VeganDiet":
			tags = append(tags, "vegan")
		case "GlutenFreeDiet":
			tags = append(tags, "gluten-free")
		case "LowLactoseDiet":
			tags = append(tags, "dairy-free")
		}
	}
	return tags
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODurationMinutes converts an ISO-8601 duration like "PT1H30M" into
// whole minutes. Unparseable input yields nil.
func parseISODurationMinutes(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	days := atoiDefault(m[1])
	hours := atoiDefault(m[2])
	mins := atoiDefault(m[3])
	secs := atoiDefault(m[4])
	total := days*24*60 + hours*60 + mins + secs/60
	if total == 0 && secs == 0 && days == 0 && hours == 0 && mins == 0 {
		return nil
	}
	return &total
}

func atoiDefault(s string) int {
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
