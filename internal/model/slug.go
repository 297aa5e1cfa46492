package model

import (
	"regexp"
	"strings"
)

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// slugify converts a title into a URL-safe slug: lowercase, non-alphanumeric
// runs collapsed to a single hyphen, max 50 chars. Grounded on the teacher's
// pipeline.slugify.
func slugify(title string) string {
	s := strings.ToLower(title)
	s = slugNonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = s[:50]
		s = strings.TrimRight(s, "-")
	}
	if s == "" {
		s = "show"
	}
	return s
}
