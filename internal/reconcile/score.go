package reconcile

import (
	"strings"
	"unicode/utf8"
)

// Heuristic weights of the scored partial tier. They have no derivation
// beyond matching the behaviour users already rely on; change them together.
const (
	// ContainsWeight scales the length ratio when one key contains the other.
	ContainsWeight = 85.0
	// PrefixWeight scales the length ratio when one key prefixes the other.
	PrefixWeight = 75.0
	// WordOverlapWeight scales the share of overlapping words.
	WordOverlapWeight = 65.0
	// InclusionFloor is the minimum score for a company to be a candidate.
	InclusionFloor = 50.0
	// AutoResolveFloor is the minimum top score to auto-resolve among several candidates.
	AutoResolveFloor = 70.0
	// AutoResolveGap is the margin the top score must exceed the runner-up by.
	AutoResolveGap = 15.0
	// MinPartialKeyLength: keys of this many runes or fewer skip the scored tier.
	MinPartialKeyLength = 3
	// MinWordLength: words of this many runes or fewer are ignored by word overlap.
	MinWordLength = 2
)

// Tuning groups the scored-tier parameters.
type Tuning struct {
	ContainsWeight      float64
	PrefixWeight        float64
	WordOverlapWeight   float64
	InclusionFloor      float64
	AutoResolveFloor    float64
	AutoResolveGap      float64
	MinPartialKeyLength int
	MinWordLength       int
}

// DefaultTuning returns the production parameters.
func DefaultTuning() Tuning {
	return Tuning{
		ContainsWeight:      ContainsWeight,
		PrefixWeight:        PrefixWeight,
		WordOverlapWeight:   WordOverlapWeight,
		InclusionFloor:      InclusionFloor,
		AutoResolveFloor:    AutoResolveFloor,
		AutoResolveGap:      AutoResolveGap,
		MinPartialKeyLength: MinPartialKeyLength,
		MinWordLength:       MinWordLength,
	}
}

// Score rates how well a company's normalized name fits an investor's
// normalized key, in [0,100]. Both arguments must already be normalized.
func (t Tuning) Score(investorKey, companyKey string) float64 {
	if investorKey == "" || companyKey == "" {
		return 0
	}
	if investorKey == companyKey {
		return 100
	}
	investorLen := float64(utf8.RuneCountInString(investorKey))
	companyLen := float64(utf8.RuneCountInString(companyKey))

	switch {
	case strings.Contains(companyKey, investorKey):
		return investorLen / companyLen * t.ContainsWeight
	case strings.Contains(investorKey, companyKey):
		return companyLen / investorLen * t.ContainsWeight
	case strings.HasPrefix(companyKey, investorKey), strings.HasPrefix(investorKey, companyKey):
		return min(investorLen, companyLen) / max(investorLen, companyLen) * t.PrefixWeight
	default:
		return t.wordOverlap(investorKey, companyKey)
	}
}

func (t Tuning) wordOverlap(a, b string) float64 {
	wordsA := significantWords(a, t.MinWordLength)
	wordsB := significantWords(b, t.MinWordLength)
	denominator := max(len(wordsA), len(wordsB))
	if denominator == 0 {
		return 0
	}

	hits := 0
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if strings.Contains(wb, wa) || strings.Contains(wa, wb) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(denominator) * t.WordOverlapWeight
}

func significantWords(value string, minLen int) []string {
	fields := strings.Fields(value)
	words := fields[:0]
	for _, field := range fields {
		if utf8.RuneCountInString(field) > minLen {
			words = append(words, field)
		}
	}
	return words
}
