package store

import "time"

// LinkEvent is one row of the append-only link audit trail.
type LinkEvent struct {
	ID                int64     `json:"id"`
	InvestorID        string    `json:"investor_id"`
	SourceCompanyID   string    `json:"source_company_id"`
	PreviousCompanyID *string   `json:"previous_company_id"`
	NewCompanyID      string    `json:"new_company_id"`
	MatchType         string    `json:"match_type"`
	Forced            bool      `json:"forced"`
	ActorID           string    `json:"actor_id"`
	CreatedAt         time.Time `json:"created_at"`
}
