package recipe

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9]+`)
	numericChunk  = regexp.MustCompile(`^\d+$`)
	dashCollapser = regexp.MustCompile(`-+`)
)

// Slugify lowercases s and collapses everything non-alphanumeric into single
// dashes, producing a filename-safe token.
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	slug = dashCollapser.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	return slug
}

// StableURLID extracts a stable short identifier from a source URL's path: a
// numeric path segment is preferred, then the last path segment, then a
// random fallback. Keeps derived filenames human-scannable while avoiding
// collisions.
func StableURLID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err == nil {
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		for _, seg := range segments {
			if numericChunk.MatchString(seg) {
				return seg
			}
		}
		for i := len(segments) - 1; i >= 0; i-- {
			if slug := Slugify(segments[i]); slug != "" {
				return slug
			}
		}
	}
	return uuid.NewString()[:8]
}

// MakeID derives a recipe id from its name and source URL.
func MakeID(name, sourceURL string) string {
	slug := Slugify(name)
	id := StableURLID(sourceURL)
	if slug == "" {
		return id
	}
	return slug + "-" + id
}
