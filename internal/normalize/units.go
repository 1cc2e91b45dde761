package normalize

import "strings"

// canonicalUnits maps unit spellings and abbreviations to their canonical
// singular form. Tokens not present here are not treated as units by the
// ingredient parser; tokens present but mapping to themselves pass through
// lowercased, unchanged.
var canonicalUnits = map[string]string{
	"tbsp": "tablespoon", "tbsps": "tablespoon", "tablespoon": "tablespoon", "tablespoons": "tablespoon",
	"tsp": "teaspoon", "tsps": "teaspoon", "teaspoon": "teaspoon", "teaspoons": "teaspoon",
	"oz": "ounce", "ounce": "ounce", "ounces": "ounce",
	"lb": "pound", "lbs": "pound", "pound": "pound", "pounds": "pound",
	"g": "gram", "gram": "gram", "grams": "gram",
	"kg": "kilogram", "kgs": "kilogram", "kilogram": "kilogram", "kilograms": "kilogram",
	"ml": "milliliter", "milliliter": "milliliter", "milliliters": "milliliter", "millilitre": "milliliter", "millilitres": "milliliter",
	"l": "liter", "liter": "liter", "liters": "liter", "litre": "liter", "litres": "liter",
	"cup": "cup", "cups": "cup",
	"pinch": "pinch", "pinches": "pinch",
	"clove": "clove", "cloves": "clove",
	"can": "can", "cans": "can",
	"stick": "stick", "sticks": "stick",
	"slice": "slice", "slices": "slice",
	"piece": "piece", "pieces": "piece",
	"bunch": "bunch", "bunches": "bunch",
	"sprig": "sprig", "sprigs": "sprig",
	"dash": "dash", "dashes": "dash",
	"head": "head", "heads": "head",
	"handful": "handful", "handfuls": "handful",
	"package": "package", "packages": "package", "pkg": "package",
	"quart": "quart", "quarts": "quart", "qt": "quart",
	"pint": "pint", "pints": "pint", "pt": "pint",
	"gallon": "gallon", "gallons": "gallon",
}

// isUnitToken reports whether tok (optionally with a trailing period) is a
// known unit word.
func isUnitToken(tok string) bool {
	_, ok := canonicalUnits[cleanUnitToken(tok)]
	return ok
}

// CanonicalUnit returns the canonical form of a unit token. Unrecognized
// tokens are returned lowercased, unchanged.
func CanonicalUnit(tok string) string {
	key := cleanUnitToken(tok)
	if canonical, ok := canonicalUnits[key]; ok {
		return canonical
	}
	return key
}

func cleanUnitToken(tok string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(tok), "."))
}
