// Package search backs the manual-override company picker: Meilisearch when
// it is configured and healthy, a Postgres ILIKE query otherwise.
package search

import (
	"context"

	"fundops/api/internal/reconcile"
)

// Source names the backend that answered a query.
type Source string

const (
	SourceMeili    Source = "meilisearch"
	SourcePostgres Source = "postgres"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Query describes a company search request.
type Query struct {
	Text  string
	Limit int
}

func (q Query) limit() int {
	switch {
	case q.Limit <= 0:
		return defaultLimit
	case q.Limit > maxLimit:
		return maxLimit
	default:
		return q.Limit
	}
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []reconcile.Company `json:"results"`
	Total   int                 `json:"total"`
	Query   string              `json:"query"`
	Source  Source              `json:"source"`
}

// CompanyRecord is the document pushed into the search index. NormalizedName
// lets "ACME SRL" find "Acme S.r.l.".
type CompanyRecord struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name"`
}

func NewCompanyRecord(company reconcile.Company) CompanyRecord {
	return CompanyRecord{
		ID:             company.ID,
		Name:           company.Name,
		NormalizedName: reconcile.Normalize(company.Name),
	}
}

// Index is a search engine holding CompanyRecords.
type Index interface {
	Healthy() bool
	SearchCompanies(text string, limit int) ([]reconcile.Company, int, error)
	IndexCompanies(records []CompanyRecord) error
}

// Fallback is the database search used when the index is unavailable.
type Fallback interface {
	SearchCompanies(ctx context.Context, query string, limit int) ([]reconcile.Company, error)
}

// CatalogLoader reads the full company catalog for reindexing.
type CatalogLoader interface {
	ListCompanies(ctx context.Context) ([]reconcile.Company, error)
}
