package reconcile

import "encoding/json"

// Status classifies a MatchResult.
type Status string

const (
	StatusAlreadySet Status = "already_set"
	StatusMatched    Status = "matched"
	StatusNotFound   Status = "not_found"
	StatusAmbiguous  Status = "ambiguous"
)

// Outcome is the status-dependent part of a MatchResult. The concrete types
// are AlreadySet, Matched, NotFound and Ambiguous.
type Outcome interface {
	Status() Status
	outcome()
}

// AlreadySet means the investor is linked already; matching was skipped.
type AlreadySet struct{}

// Matched carries the company a tier resolved to.
type Matched struct {
	MatchType MatchType
	Company   Company
}

// NotFound means no tier produced a candidate.
type NotFound struct{}

// Ambiguous carries the companies a human has to choose between.
type Ambiguous struct {
	Candidates []Company
}

func (AlreadySet) Status() Status { return StatusAlreadySet }
func (Matched) Status() Status    { return StatusMatched }
func (NotFound) Status() Status   { return StatusNotFound }
func (Ambiguous) Status() Status  { return StatusAmbiguous }

func (AlreadySet) outcome() {}
func (Matched) outcome()    {}
func (NotFound) outcome()   {}
func (Ambiguous) outcome()  {}

// MatchResult is the preview classification of one investor.
type MatchResult struct {
	InvestorID   string
	InvestorName string
	ClientName   string
	Outcome      Outcome
}

// Status returns the classification, treating a missing outcome as not found.
func (r MatchResult) Status() Status {
	if r.Outcome == nil {
		return StatusNotFound
	}
	return r.Outcome.Status()
}

type matchResultJSON struct {
	InvestorID         string    `json:"investor_id"`
	InvestorName       string    `json:"investor_name"`
	ClientName         string    `json:"client_name"`
	Status             Status    `json:"status"`
	MatchType          MatchType `json:"match_type,omitempty"`
	MatchedCompanyID   string    `json:"matched_company_id,omitempty"`
	MatchedCompanyName string    `json:"matched_company_name,omitempty"`
	Candidates         []Company `json:"candidates,omitempty"`
}

// MarshalJSON flattens the outcome payload next to the status discriminant.
func (r MatchResult) MarshalJSON() ([]byte, error) {
	payload := matchResultJSON{
		InvestorID:   r.InvestorID,
		InvestorName: r.InvestorName,
		ClientName:   r.ClientName,
		Status:       r.Status(),
	}
	switch outcome := r.Outcome.(type) {
	case Matched:
		payload.MatchType = outcome.MatchType
		payload.MatchedCompanyID = outcome.Company.ID
		payload.MatchedCompanyName = outcome.Company.Name
	case Ambiguous:
		payload.Candidates = outcome.Candidates
	}
	return json.Marshal(payload)
}
