package reconcile

import (
	"sort"
	"unicode/utf8"
)

// Matcher resolves investor client labels against an Index. Tiers run in a
// fixed order and the first tier that commits decides the outcome.
type Matcher struct {
	index  *Index
	tuning Tuning
}

// NewMatcher returns a Matcher over index.
func NewMatcher(index *Index, tuning Tuning) *Matcher {
	return &Matcher{index: index, tuning: tuning}
}

// Match classifies one investor.
func (m *Matcher) Match(investor Investor) MatchResult {
	result := MatchResult{
		InvestorID:   investor.ID,
		InvestorName: investor.FullName,
		ClientName:   investor.ClientName,
	}
	if investor.Linked() {
		result.Outcome = AlreadySet{}
		return result
	}
	result.Outcome = m.Resolve(investor.ClientName)
	return result
}

// Resolve runs the matching tiers for a client label.
func (m *Matcher) Resolve(clientName string) Outcome {
	if company, ok := m.index.exact[exactKey(clientName)]; ok {
		return Matched{MatchType: MatchExact, Company: company}
	}

	key := Normalize(clientName)
	if key == "" {
		return NotFound{}
	}

	// A normalized key shared by several companies is ambiguous even though
	// exactNormalized remembers the first of them.
	switch group := m.index.fuzzy[key]; {
	case len(group) > 1:
		return Ambiguous{Candidates: append([]Company(nil), group...)}
	case len(group) == 1:
		if company, ok := m.index.exactNormalized[key]; ok {
			return Matched{MatchType: MatchExact, Company: company}
		}
		return Matched{MatchType: MatchNormalized, Company: group[0]}
	}

	if utf8.RuneCountInString(key) <= m.tuning.MinPartialKeyLength {
		return NotFound{}
	}
	return m.tuning.resolveScored(m.scoreCandidates(key))
}

type scoredCandidate struct {
	company Company
	score   float64
}

// scoreCandidates returns every company at or above the inclusion floor,
// one entry per company id, best score first.
func (m *Matcher) scoreCandidates(key string) []scoredCandidate {
	candidates := make([]scoredCandidate, 0)
	position := make(map[string]int)
	for _, entry := range m.index.entries {
		score := m.tuning.Score(key, entry.key)
		if score < m.tuning.InclusionFloor {
			continue
		}
		if i, seen := position[entry.company.ID]; seen {
			if score > candidates[i].score {
				candidates[i].score = score
			}
			continue
		}
		position[entry.company.ID] = len(candidates)
		candidates = append(candidates, scoredCandidate{company: entry.company, score: score})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	return candidates
}

// resolveScored turns ranked candidates into an outcome. Several candidates
// only auto-resolve when the leader is strong and clearly ahead.
func (t Tuning) resolveScored(candidates []scoredCandidate) Outcome {
	switch len(candidates) {
	case 0:
		return NotFound{}
	case 1:
		return Matched{MatchType: MatchNormalized, Company: candidates[0].company}
	}

	top, runnerUp := candidates[0].score, candidates[1].score
	if top >= t.AutoResolveFloor && top-runnerUp > t.AutoResolveGap {
		return Matched{MatchType: MatchNormalized, Company: candidates[0].company}
	}

	companies := make([]Company, len(candidates))
	for i, candidate := range candidates {
		companies[i] = candidate.company
	}
	return Ambiguous{Candidates: companies}
}
