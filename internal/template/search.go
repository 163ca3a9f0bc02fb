package template

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/roach88/phaseforge/internal/ir"
)

// Search ranks records whose name, tags or category fuzzily contain query,
// closest match first. Matching ignores case and diacritics. An empty query
// returns the records unchanged.
func Search(records []ir.TemplateRecord, query string) []ir.TemplateRecord {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}

	targets := make([]string, len(records))
	for i, rec := range records {
		targets[i] = searchText(rec)
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	out := make([]ir.TemplateRecord, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, records[r.OriginalIndex])
	}
	return out
}

// searchText is the string a record is matched against. Name comes first so
// that name matches rank closer than tag matches of equal length.
func searchText(rec ir.TemplateRecord) string {
	parts := append([]string{rec.Name}, ParseTags(rec.Tags)...)
	parts = append(parts, string(rec.Category))
	return strings.Join(parts, " ")
}
