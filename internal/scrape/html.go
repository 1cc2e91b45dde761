package scrape

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/normalize"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/recipe"
)

// ParseHTML is the fallback parser for pages without usable JSON-LD. It walks
// each field's selector candidates in priority order and takes the first that
// matches. Returns nil unless name, ingredients, and instructions were all
// found.
func ParseHTML(body []byte, src Source, pageURL string) *recipe.ScrapedRecipe {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	name := firstText(doc, src.Selectors.Name)
	ingredientLines := allTexts(doc, src.Selectors.Ingredients)
	instructions := allTexts(doc, src.Selectors.Instructions)
	if name == "" || len(ingredientLines) == 0 || len(instructions) == 0 {
		return nil
	}

	r := &recipe.ScrapedRecipe{
		Name:         name,
		Description:  firstText(doc, src.Selectors.Description),
		Ingredients:  normalize.IngredientsFromLines(ingredientLines),
		Instructions: instructions,
		ImageURL:     firstImage(doc, src.Selectors.Image),
		Author:       firstText(doc, src.Selectors.Author),
		Category:     firstText(doc, src.Selectors.Category),
		SourceURL:    pageURL,
	}
	if yieldText := firstText(doc, src.Selectors.Yield); yieldText != "" {
		r.Yield, r.YieldUnit = parseYieldText(yieldText)
	}
	return r
}

// firstText returns the trimmed text of the first element matched by the
// first selector that matches anything.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		found := doc.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if text := collapseSpace(found.Text()); text != "" {
			return text
		}
	}
	return ""
}

// allTexts returns the trimmed text of every element matched by the first
// selector that matches anything. Later candidates are not merged in; mixing
// selectors produces duplicated or out-of-order lists.
func allTexts(doc *goquery.Document, selectors []string) []string {
	for _, sel := range selectors {
		matches := doc.Find(sel)
		if matches.Length() == 0 {
			continue
		}
		var out []string
		matches.Each(func(_ int, s *goquery.Selection) {
			if text := collapseSpace(s.Text()); text != "" {
				out = append(out, text)
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// firstImage resolves an image selector to a URL, preferring meta content
// attributes, then src, then the element text.
func firstImage(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		found := doc.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if content, ok := found.Attr("content"); ok && content != "" {
			return strings.TrimSpace(content)
		}
		if srcAttr, ok := found.Attr("src"); ok && srcAttr != "" {
			return strings.TrimSpace(srcAttr)
		}
		if text := collapseSpace(found.Text()); text != "" {
			return text
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
