package reconcile

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PreviewReport is the Preview response: per-status counts plus one result
// per eligible investor, in store order.
type PreviewReport struct {
	Total      int           `json:"total"`
	AlreadySet int           `json:"already_set"`
	Matched    int           `json:"matched"`
	NotFound   int           `json:"not_found"`
	Ambiguous  int           `json:"ambiguous"`
	Results    []MatchResult `json:"results"`
}

func (p *PreviewReport) add(result MatchResult) {
	p.Total++
	switch result.Status() {
	case StatusAlreadySet:
		p.AlreadySet++
	case StatusMatched:
		p.Matched++
	case StatusAmbiguous:
		p.Ambiguous++
	default:
		p.NotFound++
	}
	p.Results = append(p.Results, result)
}

// Reporter runs the Matcher over a company's investors. It holds no request
// state and is safe for concurrent use.
type Reporter struct {
	catalog   CatalogReader
	investors InvestorStore
	authz     Authorizer
	tuning    Tuning
	logger    *zap.Logger
}

// NewReporter builds a Reporter. A nil logger disables logging.
func NewReporter(catalog CatalogReader, investors InvestorStore, authz Authorizer, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		catalog:   catalog,
		investors: investors,
		authz:     authz,
		tuning:    DefaultTuning(),
		logger:    logger.Named("reconcile.preview"),
	}
}

// Preview classifies every investor of companyID that carries a client label.
func (r *Reporter) Preview(ctx context.Context, userID, companyID string) (PreviewReport, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return PreviewReport{}, validationError("company_id is required")
	}

	allowed, err := r.authz.CanAccess(ctx, userID, companyID)
	if err != nil {
		return PreviewReport{}, &DatastoreError{Op: "check access", Err: err}
	}
	if !allowed {
		r.logger.Warn("preview denied", zap.String("user_id", userID), zap.String("company_id", companyID))
		return PreviewReport{}, &AuthorizationError{CompanyID: companyID}
	}

	var (
		companies []Company
		investors []Investor
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		companies, err = r.catalog.ListCompanies(groupCtx)
		if err != nil {
			return &DatastoreError{Op: "list companies", Err: err}
		}
		return nil
	})
	group.Go(func() error {
		var err error
		investors, err = r.investors.ListInvestorsForMatching(groupCtx, companyID)
		if err != nil {
			return &DatastoreError{Op: "list investors", Err: err}
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return PreviewReport{}, err
	}

	matcher := NewMatcher(BuildIndex(companies), r.tuning)
	report := PreviewReport{Results: make([]MatchResult, 0, len(investors))}
	for _, investor := range investors {
		if strings.TrimSpace(investor.ClientName) == "" {
			continue
		}
		report.add(matcher.Match(investor))
	}

	r.logger.Info("preview computed",
		zap.String("company_id", companyID),
		zap.Int("catalog_size", len(companies)),
		zap.Int("total", report.Total),
		zap.Int("already_set", report.AlreadySet),
		zap.Int("matched", report.Matched),
		zap.Int("not_found", report.NotFound),
		zap.Int("ambiguous", report.Ambiguous),
	)
	return report, nil
}
