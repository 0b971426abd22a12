// Package reconcile links imported investor records to canonical company
// records by resolving the free-text client label typed at import time.
//
// A Reporter computes a read-only preview of how every eligible investor of a
// company would resolve; an Executor applies the selected links with a
// row-level compare-and-swap so that an existing link is never silently
// overwritten.
package reconcile

import (
	"context"
	"time"
)

// Company is an entry of the company catalog.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MatchType records how a client company link was established.
type MatchType string

const (
	MatchManual     MatchType = "manual"
	MatchExact      MatchType = "exact"
	MatchNormalized MatchType = "normalized"
)

// Valid reports whether t is one of the persisted match types.
func (t MatchType) Valid() bool {
	switch t {
	case MatchManual, MatchExact, MatchNormalized:
		return true
	default:
		return false
	}
}

// Investor is the subset of an investor record the engine reads and writes.
type Investor struct {
	ID                     string
	CompanyID              string
	FullName               string
	ClientName             string
	ClientCompanyID        *string
	ClientCompanyMatchType *MatchType
	ClientCompanyMatchedAt *time.Time
	UpdatedAt              time.Time
}

// Linked reports whether the investor already points at a client company.
func (i Investor) Linked() bool {
	return i.ClientCompanyID != nil && *i.ClientCompanyID != ""
}

// UpdateRequest asks for one investor to be linked to a target company.
type UpdateRequest struct {
	InvestorID string    `json:"investor_id" validate:"required"`
	CompanyID  string    `json:"company_id" validate:"required"`
	MatchType  MatchType `json:"match_type" validate:"required,oneof=manual exact normalized"`
}

// ApplyRequest is a batch of links scoped to one source company.
type ApplyRequest struct {
	CompanyID string          `json:"company_id"`
	Updates   []UpdateRequest `json:"updates"`
	Force     bool            `json:"force"`
}

// RowError explains why one update of a batch was skipped.
type RowError struct {
	InvestorID string `json:"investor_id"`
	Reason     string `json:"reason"`
}

// ApplyOutcome summarises an Apply call.
type ApplyOutcome struct {
	Updated int        `json:"updated"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors,omitempty"`
}

// LinkWrite is the conditional write issued for one accepted update. Unless
// Force is set the write only succeeds while client_company_id is still null.
type LinkWrite struct {
	InvestorID      string
	SourceCompanyID string
	TargetCompanyID string
	MatchType       MatchType
	Force           bool
	ActorID         string
	At              time.Time
}

// CatalogReader loads the full company catalog.
type CatalogReader interface {
	ListCompanies(ctx context.Context) ([]Company, error)
}

// InvestorStore reads investors eligible for matching and performs the
// conditional link write. LinkInvestor returns false when no row matched the
// filter (unknown investor, wrong source company, or link already set).
type InvestorStore interface {
	ListInvestorsForMatching(ctx context.Context, companyID string) ([]Investor, error)
	LinkInvestor(ctx context.Context, write LinkWrite) (Investor, bool, error)
}

// Authorizer answers whether a user may operate on a company.
type Authorizer interface {
	CanAccess(ctx context.Context, userID, companyID string) (bool, error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, userID, companyID string) (bool, error)

func (f AuthorizerFunc) CanAccess(ctx context.Context, userID, companyID string) (bool, error) {
	return f(ctx, userID, companyID)
}
