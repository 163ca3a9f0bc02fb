package template

import (
	"strings"

	"github.com/go-andiamo/splitter"
)

// tagSplitter splits on commas outside double quotes so a quoted tag may
// itself contain a comma.
var tagSplitter, _ = splitter.NewSplitter(',', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)

// ParseTags splits a stored tags string into individual tags. Whitespace and
// enclosing quotes are trimmed; empty and repeated tags are dropped.
// Unbalanced quotes fall back to a plain comma split.
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts, err := tagSplitter.Split(s)
	if err != nil {
		parts = strings.Split(s, ",")
	}

	var tags []string
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		tag := strings.TrimSpace(p)
		tag = strings.TrimSpace(strings.Trim(tag, "\"“”"))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// JoinTags is the inverse of ParseTags. Tags containing a comma are quoted.
func JoinTags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(t, ",") {
			t = `"` + t + `"`
		}
		out = append(out, t)
	}
	return strings.Join(out, ", ")
}
