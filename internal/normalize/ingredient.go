// Package normalize turns free-text recipe data into structured records:
// ingredient line parsing, unit canonicalization, and derived recipe fields.
//
// The ingredient parser is a best-effort heuristic, not a grammar. Ambiguous
// or malformed input degrades to "whole line as name" rather than erroring,
// and the original line is always preserved verbatim.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/recipe"
)

var unicodeFractions = map[rune]float64{
	'¼': 0.25, '½': 0.5, '¾': 0.75,
	'⅓': 1.0 / 3.0, '⅔': 2.0 / 3.0,
	'⅕': 0.2, '⅖': 0.4, '⅗': 0.6, '⅘': 0.8,
	'⅙': 1.0 / 6.0, '⅚': 5.0 / 6.0,
	'⅛': 0.125, '⅜': 0.375, '⅝': 0.625, '⅞': 0.875,
}

const fractionClass = `[¼½¾⅓⅔⅕⅖⅗⅘⅙⅚⅛⅜⅝⅞]`

var (
	reParenNotes = regexp.MustCompile(`\(([^)]*)\)\s*$`)
	reMixed      = regexp.MustCompile(`^(\d+)\s*(` + fractionClass + `|\d+/\d+)\s+(\S+)\s+(.+)$`)
	reFraction   = regexp.MustCompile(`^(` + fractionClass + `|\d+/\d+)\s+(\S+)\s+(.+)$`)
	reNumberUnit = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s+(\S+)\s+(.+)$`)
	reBareNumber = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s+(.+)$`)
)

// Ingredient parses one free-text ingredient line into a structured record.
// Patterns are tried in precedence order: mixed number with fraction, bare
// fraction, decimal/integer with unit, bare number, then whole-line name.
func Ingredient(text string) recipe.Ingredient {
	ing := recipe.Ingredient{OriginalText: text}
	s := strings.TrimSpace(text)
	if s == "" {
		return ing
	}

	if m := reParenNotes.FindStringSubmatch(s); m != nil {
		ing.Notes = strings.TrimSpace(m[1])
		s = strings.TrimSpace(reParenNotes.ReplaceAllString(s, ""))
	}

	switch {
	case matchMixed(s, &ing):
	case matchFraction(s, &ing):
	case matchNumberUnit(s, &ing):
	case matchBareNumber(s, &ing):
	default:
		ing.Name = s
	}

	peelCommaClause(&ing)
	return ing
}

// IngredientsFromLines normalizes a list of raw ingredient lines, dropping
// blank entries.
func IngredientsFromLines(lines []string) []recipe.Ingredient {
	out := make([]recipe.Ingredient, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, Ingredient(line))
	}
	return out
}

func matchMixed(s string, ing *recipe.Ingredient) bool {
	m := reMixed.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	whole, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return false
	}
	frac, ok := parseFraction(m[2])
	if !ok {
		return false
	}
	qty := whole + frac
	ing.Quantity = &qty
	assignUnitAndName(m[3], m[4], ing)
	return true
}

func matchFraction(s string, ing *recipe.Ingredient) bool {
	m := reFraction.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	qty, ok := parseFraction(m[1])
	if !ok {
		return false
	}
	ing.Quantity = &qty
	assignUnitAndName(m[2], m[3], ing)
	return true
}

func matchNumberUnit(s string, ing *recipe.Ingredient) bool {
	m := reNumberUnit.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	if !isUnitToken(m[2]) {
		return false
	}
	qty, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return false
	}
	ing.Quantity = &qty
	ing.Unit = CanonicalUnit(m[2])
	ing.Name = strings.TrimSpace(m[3])
	return true
}

func matchBareNumber(s string, ing *recipe.Ingredient) bool {
	m := reBareNumber.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	qty, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return false
	}
	ing.Quantity = &qty
	ing.Name = strings.TrimSpace(m[2])
	return true
}

// assignUnitAndName treats the first token as a unit only when it is a known
// unit word; otherwise the token belongs to the name ("1 ½ red onions").
func assignUnitAndName(unitTok, rest string, ing *recipe.Ingredient) {
	if isUnitToken(unitTok) {
		ing.Unit = CanonicalUnit(unitTok)
		ing.Name = strings.TrimSpace(rest)
		return
	}
	ing.Name = strings.TrimSpace(unitTok + " " + rest)
}

// peelCommaClause moves a trailing comma-clause ("onion, diced") into notes
// when notes were not already extracted from a parenthetical.
func peelCommaClause(ing *recipe.Ingredient) {
	if ing.Notes != "" {
		return
	}
	idx := strings.Index(ing.Name, ",")
	if idx <= 0 {
		return
	}
	clause := strings.TrimSpace(ing.Name[idx+1:])
	if clause == "" {
		return
	}
	ing.Notes = clause
	ing.Name = strings.TrimSpace(ing.Name[:idx])
}

func parseFraction(tok string) (float64, bool) {
	runes := []rune(tok)
	if len(runes) == 1 {
		if v, ok := unicodeFractions[runes[0]]; ok {
			return v, true
		}
	}
	parts := strings.SplitN(tok, "/", 2)
	if len(parts) != 2 {
		return 0, false
	}
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, false
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0, false
	}
	return num / den, true
}
