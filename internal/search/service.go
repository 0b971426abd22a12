package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"fundops/api/internal/reconcile"
)

// Service is the facade that tries the search index first and falls back to
// the database.
type Service struct {
	index    Index
	fallback Fallback
	logger   *zap.Logger
}

// NewService creates a search service. index may be nil if Meilisearch is not
// configured.
func NewService(index Index, fallback Fallback, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{index: index, fallback: fallback, logger: logger.Named("search")}
}

// Search never fails: backend errors degrade to the fallback and then to an
// empty result.
func (s *Service) Search(ctx context.Context, q Query) Response {
	text := strings.TrimSpace(q.Text)
	limit := q.limit()

	if s.index != nil && s.index.Healthy() && text != "" {
		results, total, err := s.index.SearchCompanies(text, limit)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: text, Source: SourceMeili}
		}
		s.logger.Warn("meilisearch error, falling back to postgres", zap.Error(err))
	}

	results, err := s.fallback.SearchCompanies(ctx, text, limit)
	if err != nil {
		s.logger.Error("postgres company search failed", zap.Error(err))
		return Response{Results: []reconcile.Company{}, Query: text, Source: SourcePostgres}
	}
	results = nonNil(results)
	return Response{Results: results, Total: len(results), Query: text, Source: SourcePostgres}
}

// ReindexCompanies loads the whole catalog and pushes it to the index in
// batches. Called during bootstrap.
func (s *Service) ReindexCompanies(ctx context.Context, loader CatalogLoader) (int, error) {
	if s.index == nil || !s.index.Healthy() {
		return 0, nil
	}
	companies, err := loader.ListCompanies(ctx)
	if err != nil {
		return 0, err
	}

	const batchSize = 1000
	indexed := 0
	for start := 0; start < len(companies); start += batchSize {
		end := min(start+batchSize, len(companies))
		records := make([]CompanyRecord, 0, end-start)
		for _, company := range companies[start:end] {
			records = append(records, NewCompanyRecord(company))
		}
		if err := s.index.IndexCompanies(records); err != nil {
			return indexed, err
		}
		indexed += len(records)
	}
	s.logger.Info("company index rebuilt", zap.Int("companies", indexed))
	return indexed, nil
}

func nonNil(r []reconcile.Company) []reconcile.Company {
	if r == nil {
		return []reconcile.Company{}
	}
	return r
}
