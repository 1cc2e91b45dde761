// Package sites is the registry of scrapeable recipe sources. Each entry is
// pure data: discovery patterns plus selector candidates for the HTML
// fallback parser. Adding a site means adding a record here.
package sites

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/scrape"
)

// globalExcludes drop listing-style and non-recipe pages for every source.
// Per-source excludes extend, never replace, this list.
var globalExcludes = []*regexp.Regexp{
	regexp.MustCompile(`/collection[s]?/`),
	regexp.MustCompile(`/categor(y|ies)/`),
	regexp.MustCompile(`/photo[s]?/`),
	regexp.MustCompile(`/search/`),
	regexp.MustCompile(`/tag[s]?/`),
	regexp.MustCompile(`/author[s]?/`),
	regexp.MustCompile(`/page/\d+`),
}

var registry = map[string]scrape.Source{
	"recipetineats": {
		Name:       "recipetineats",
		BaseURL:    "https://www.recipetineats.com",
		SitemapURL: "https://www.recipetineats.com/sitemap_index.xml",
		URLPattern: regexp.MustCompile(`^https://www\.recipetineats\.com/[a-z0-9-]+/?$`),
		ExcludePatterns: append([]*regexp.Regexp{
			regexp.MustCompile(`/about`),
			regexp.MustCompile(`/shop`),
			regexp.MustCompile(`/recipes/?$`),
		}, globalExcludes...),
		Selectors: scrape.FieldSelectors{
			Name: []string{
				"h1.entry-title",
				".wprm-recipe-name",
				"h1",
			},
			Description: []string{
				".wprm-recipe-summary",
				`meta[name="description"]`,
			},
			Ingredients: []string{
				"li.wprm-recipe-ingredient",
				".wprm-recipe-ingredients li",
				".entry-content ul li",
			},
			Instructions: []string{
				"div.wprm-recipe-instruction-text",
				".wprm-recipe-instructions li",
				".entry-content ol li",
			},
			Image: []string{
				`meta[property="og:image"]`,
				".wprm-recipe-image img",
			},
			Author: []string{
				".wprm-recipe-author",
				`meta[name="author"]`,
			},
			Yield: []string{
				".wprm-recipe-servings-container",
				".wprm-recipe-servings",
			},
			Category: []string{
				".wprm-recipe-course-container .wprm-recipe-course",
			},
		},
	},
	"bbcgoodfood": {
		Name:       "bbcgoodfood",
		BaseURL:    "https://www.bbcgoodfood.com",
		SitemapURL: "https://www.bbcgoodfood.com/sitemap.xml",
		URLPattern: regexp.MustCompile(`^https://www\.bbcgoodfood\.com/recipes/[a-z0-9-]+/?$`),
		ExcludePatterns: append([]*regexp.Regexp{
			regexp.MustCompile(`/recipes/collection/`),
			regexp.MustCompile(`/howto/`),
			regexp.MustCompile(`/review[s]?/`),
		}, globalExcludes...),
		Selectors: scrape.FieldSelectors{
			Name: []string{
				"h1.heading-1",
				".post-header__title",
				"h1",
			},
			Description: []string{
				".editor-content .mb-lg p",
				`meta[name="description"]`,
			},
			Ingredients: []string{
				".recipe__ingredients li",
				"section.recipe__ingredients li",
			},
			Instructions: []string{
				".recipe__method-steps li .editor-content",
				".recipe__method-steps li",
			},
			Image: []string{
				`meta[property="og:image"]`,
				".post-header__image img",
			},
			Author: []string{
				".author-link",
				`meta[name="author"]`,
			},
			Yield: []string{
				".recipe__cook-and-prep .icon-with-text__children",
			},
			Category: []string{
				".breadcrumbs li:last-child a",
			},
		},
	},
}

// Lookup returns the Source record for name.
func Lookup(name string) (scrape.Source, error) {
	src, ok := registry[name]
	if !ok {
		return scrape.Source{}, fmt.Errorf("unknown source %q (known: %v)", name, Names())
	}
	return src, nil
}

// All returns every registered source, ordered by name for deterministic runs.
func All() []scrape.Source {
	out := make([]scrape.Source, 0, len(registry))
	for _, src := range registry {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names lists registered source names in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enabled filters the registry down to the configured source names. An empty
// filter means every source.
func Enabled(names []string) ([]scrape.Source, error) {
	if len(names) == 0 {
		return All(), nil
	}
	out := make([]scrape.Source, 0, len(names))
	for _, name := range names {
		src, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}
