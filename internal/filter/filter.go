package filter

import "strings"

// Rules lists the substrings that disqualify a link.
type Rules struct {
	// Exclusions are academic/reference domains and curriculum keywords.
	Exclusions []string
	// StaleYears are year tokens marking outdated postings.
	StaleYears []string
}

// DefaultRules returns the exclusion and stale-year sets used for Ugandan placement scans.
func DefaultRules() Rules {
	return Rules{
		Exclusions: []string{".ac.ug", ".edu", "wikipedia.org", "curriculum", "syllabus", "admissions", "tuition"},
		StaleYears: []string{"2023", "2022", "2021", "2020", "2019"},
	}
}

// LinkFilter drops links whose lowercased form contains any configured
// pattern. Matching is plain substring search over the whole URL, not
// host-aware. A LinkFilter is immutable and safe for concurrent use.
type LinkFilter struct {
	patterns []string
}

// New builds a LinkFilter from rules. Patterns are lowercased once here and
// otherwise kept as given, surrounding spaces included. Empty patterns are
// ignored since they would match every link.
func New(rules Rules) *LinkFilter {
	patterns := make([]string, 0, len(rules.Exclusions)+len(rules.StaleYears))
	for _, group := range [][]string{rules.Exclusions, rules.StaleYears} {
		for _, p := range group {
			p = strings.ToLower(p)
			if p == "" {
				continue
			}
			patterns = append(patterns, p)
		}
	}
	return &LinkFilter{patterns: patterns}
}

// Clean returns the links that match no pattern, in their original order.
func (f *LinkFilter) Clean(links []string) []string {
	cleaned := make([]string, 0, len(links))
	for _, link := range links {
		if _, rejected := f.Reason(link); rejected {
			continue
		}
		cleaned = append(cleaned, link)
	}
	return cleaned
}

// Reason reports the first pattern that rejects link, if any.
func (f *LinkFilter) Reason(link string) (string, bool) {
	lower := strings.ToLower(link)
	for _, p := range f.patterns {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}
