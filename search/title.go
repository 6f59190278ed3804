package search

import (
	"strings"

	"github.com/xrash/smetrics"
)

// Title scoring tiers, evaluated in order with the highest applicable tier
// winning. Exact and word-prefix hits must dominate incidental substring
// hits, so the tiers are spaced rather than blended.
const (
	tierExactScore  = 1.0
	tierPrefixScore = 0.9
	tierContains    = 0.7
	tierWordScore   = 0.6
	tierFuzzyCap    = 0.3

	// allTermsBonus rewards queries where every term hits the title.
	allTermsBonus = 1.5
)

// scoreTitle scores a whole query against a title. Multi-term queries score
// each whitespace-separated term independently: if every term has a lexical
// hit (tiers 1-4), the averaged score gets the 1.5x bonus (capped at 1.0);
// otherwise the average of the contributing terms is scaled by the lexical
// matching fraction. Fuzzy-only hits contribute their (small) score but
// never qualify a term as matching, since Jaro-Winkler is positive for
// almost any term sharing characters with the title.
func scoreTitle(query, title string) float64 {
	terms := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(terms) == 0 || title == "" {
		return 0
	}

	lowerTitle := strings.ToLower(title)
	if len(terms) == 1 {
		return scoreTerm(terms[0], lowerTitle)
	}

	var sum float64
	contributing := 0
	matching := 0
	for _, term := range terms {
		s, lexical := termTiers(term, lowerTitle)
		if s > 0 {
			sum += s
			contributing++
		}
		if lexical {
			matching++
		}
	}
	if contributing == 0 {
		return 0
	}

	avg := sum / float64(contributing)
	if matching == len(terms) {
		return min(avg*allTermsBonus, 1.0)
	}
	return avg * float64(matching) / float64(len(terms))
}

// scoreTerm scores a single lowercase term against a lowercase title using
// the five-tier hierarchy.
func scoreTerm(term, title string) float64 {
	s, _ := termTiers(term, title)
	return s
}

// termTiers returns the tier score for a term and whether the hit came from
// a lexical tier (exact, prefix, substring, or whole word) rather than the
// fuzzy fallback.
func termTiers(term, title string) (float64, bool) {
	if term == "" || title == "" {
		return 0, false
	}

	// Tier 1: exact match
	if title == term {
		return tierExactScore, true
	}

	// Tier 2: title starts with the term at a word boundary. A boundary is
	// required so "echo" against "echocardiogram" falls through to the
	// substring tier instead of claiming a word-prefix hit.
	if strings.HasPrefix(title, term) && !isWordChar(rune(title[len(term)])) {
		return tierPrefixScore, true
	}

	// Tier 3: substring containment, weighted by coverage and position
	// (earlier matches rank higher)
	if idx := strings.Index(title, term); idx >= 0 {
		coverage := float64(len(term)) / float64(len(title))
		position := 1.0 - float64(idx)/float64(len(title))
		return tierContains * coverage * position, true
	}

	// Tier 4: whole-word match with simple pluralization
	for _, word := range splitWords(title) {
		if word == term || word == term+"s" || term == word+"s" {
			return tierWordScore, true
		}
	}

	// Tier 5: character-level fuzzy similarity
	ratio := smetrics.JaroWinkler(term, title, 0.7, 4)
	return ratio * tierFuzzyCap, false
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !isWordChar(r)
	})
}

func isWordChar(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}
