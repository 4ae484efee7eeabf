package services

import (
	"regexp"
	"strings"

	"github.com/futureguard/api/model"
)

// DefaultMatchThreshold is the minimum similarity score for a header to be
// accepted as a match against a catalog candidate.
const DefaultMatchThreshold = 0.55

var (
	punctuationRe    = regexp.MustCompile(`[^a-z0-9]+`)
	caseTransitionRe = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

// NormalizeHeader canonicalizes a raw header or catalog alias:
// camel-case transitions split, lowercased, punctuation collapsed to single
// spaces, whitespace trimmed. "attendancePercentage", "Attendance %" and
// "attendance_percentage" all normalize to comparable forms.
func NormalizeHeader(s string) string {
	s = caseTransitionRe.ReplaceAllString(s, "$1 $2")
	s = strings.ToLower(strings.TrimSpace(s))
	s = punctuationRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// bigrams returns the character bigram multiset of s with spaces removed.
func bigrams(s string) map[string]int {
	s = strings.ReplaceAll(s, " ", "")
	grams := make(map[string]int)
	for i := 0; i+2 <= len(s); i++ {
		grams[s[i:i+2]]++
	}
	return grams
}

// DiceCoefficient computes the Sørensen–Dice similarity of two normalized
// strings over character bigrams. 1.0 for identical inputs, 0.0 for no
// overlap or for inputs too short to form a bigram.
func DiceCoefficient(a, b string) float64 {
	if a == b && a != "" {
		return 1.0
	}

	ga, gb := bigrams(a), bigrams(b)
	total := 0
	for _, n := range ga {
		total += n
	}
	for _, n := range gb {
		total += n
	}
	if total == 0 {
		return 0.0
	}

	overlap := 0
	for g, n := range ga {
		if m, ok := gb[g]; ok {
			if m < n {
				overlap += m
			} else {
				overlap += n
			}
		}
	}

	return 2.0 * float64(overlap) / float64(total)
}

// HeaderMatcher fuzzy-matches raw spreadsheet headers to catalog field keys.
type HeaderMatcher struct {
	threshold float64
}

// NewHeaderMatcher creates a matcher with the given acceptance threshold.
// Pass 0 for the default.
func NewHeaderMatcher(threshold float64) *HeaderMatcher {
	if threshold <= 0 || threshold >= 1 {
		threshold = DefaultMatchThreshold
	}
	return &HeaderMatcher{threshold: threshold}
}

// DraftMapping is the result of matching a header row against the catalog:
// one column per raw header in input order, plus the display names of
// catalog-required fields no accepted column covers.
type DraftMapping struct {
	Columns       []model.MappingColumn `json:"columns"`
	MissingFields []string              `json:"missing_fields"`
}

type candidate struct {
	field *CatalogField
	alias string
}

// Match builds a draft column mapping for the given raw headers. For each
// header the best-scoring catalog candidate (field key, display name, or any
// synonym) wins if it clears the threshold; otherwise the column is left
// unmapped. If two headers resolve to the same field key, the first seen
// keeps it and later collisions become unmapped.
func (m *HeaderMatcher) Match(headers []string, cat *Catalog) DraftMapping {
	var candidates []candidate
	for i := range cat.Fields {
		f := &cat.Fields[i]
		candidates = append(candidates, candidate{f, NormalizeHeader(f.FieldKey)})
		candidates = append(candidates, candidate{f, NormalizeHeader(f.DisplayName)})
		for _, s := range f.Synonyms {
			candidates = append(candidates, candidate{f, NormalizeHeader(s)})
		}
	}

	claimed := make(map[string]bool)
	draft := DraftMapping{Columns: make([]model.MappingColumn, 0, len(headers))}

	for _, header := range headers {
		normalized := NormalizeHeader(header)

		var best *CatalogField
		bestScore := 0.0
		for _, c := range candidates {
			score := DiceCoefficient(normalized, c.alias)
			if score > bestScore {
				bestScore = score
				best = c.field
			}
		}

		col := model.MappingColumn{
			SourceHeader: header,
			Type:         model.FieldTypeString,
		}
		if best != nil && bestScore > m.threshold && !claimed[best.FieldKey] {
			claimed[best.FieldKey] = true
			key := best.FieldKey
			col.FieldKey = &key
			col.Type = best.Type
			col.Required = best.Required
		}
		draft.Columns = append(draft.Columns, col)
	}

	for _, f := range cat.RequiredFields() {
		if !claimed[f.FieldKey] {
			draft.MissingFields = append(draft.MissingFields, f.DisplayName)
		}
	}

	return draft
}
