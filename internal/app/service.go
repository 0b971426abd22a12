package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"fundops/api/internal/auth"
	"fundops/api/internal/config"
	"fundops/api/internal/export"
	"fundops/api/internal/rbac"
	"fundops/api/internal/reconcile"
	"fundops/api/internal/search"
	"fundops/api/internal/store"
)

type Session struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type dataStore interface {
	reconcile.CatalogReader
	reconcile.InvestorStore
	rbac.RoleSource
	GetCompany(context.Context, string) (reconcile.Company, error)
	SearchCompanies(context.Context, string, int) ([]reconcile.Company, error)
	ListLinkEvents(context.Context, string, int) ([]store.LinkEvent, error)
	Ping(context.Context) error
}

// Dependencies carries the optional collaborators. Nil fields disable the
// feature they back.
type Dependencies struct {
	AccessCache rbac.Cache
	SearchIndex search.Index
	PDF         export.PDFRenderer
	Archiver    export.Archiver
	Logger      *zap.Logger
	// Probes report the health of optional components on /api/ready.
	Probes map[string]func(context.Context) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	access   *rbac.Checker
	reporter *reconcile.Reporter
	executor *reconcile.Executor
	search   *search.Service
	export   *export.Service
	probes   map[string]func(context.Context) error
	logger   *zap.Logger
	now      func() time.Time
}

func New(cfg config.Config, ds dataStore, deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	access := rbac.NewChecker(ds, deps.AccessCache, logger)

	return &Service{
		cfg:      cfg,
		store:    ds,
		access:   access,
		reporter: reconcile.NewReporter(ds, ds, authorizerFor(access, rbac.ActionRead), logger),
		executor: reconcile.NewExecutor(ds, authorizerFor(access, rbac.ActionReconcile), logger,
			reconcile.WithMaxBatch(cfg.ApplyMaxBatch),
		),
		search: search.NewService(deps.SearchIndex, ds, logger),
		export: export.NewService(deps.PDF, deps.Archiver, logger),
		probes: deps.Probes,
		logger: logger,
		now:    time.Now,
	}
}

func authorizerFor(checker *rbac.Checker, action rbac.Action) reconcile.Authorizer {
	return reconcile.AuthorizerFunc(func(ctx context.Context, userID, companyID string) (bool, error) {
		return checker.CanAccess(ctx, userID, companyID, action)
	})
}

// Bootstrap rebuilds the company search index. Failures are logged; the API
// serves searches from Postgres until the index is populated.
func (s *Service) Bootstrap(ctx context.Context) error {
	indexed, err := s.search.ReindexCompanies(ctx, s.store)
	if err != nil {
		s.logger.Warn("company reindex failed", zap.Error(err))
		return nil
	}
	if indexed > 0 {
		s.logger.Info("bootstrap complete", zap.Int("indexed_companies", indexed))
	}
	return nil
}

func (s *Service) SessionFromToken(_ context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	session := Session{
		Token:  token,
		UserID: claims.Subject,
		Email:  claims.Email,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

func (s *Service) Preview(ctx context.Context, session Session, companyID string) (reconcile.PreviewReport, error) {
	return s.reporter.Preview(ctx, session.UserID, companyID)
}

func (s *Service) Apply(ctx context.Context, session Session, req reconcile.ApplyRequest) (reconcile.ApplyOutcome, error) {
	return s.executor.Apply(ctx, session.UserID, req)
}

// SearchCompanies backs the manual-override picker. The catalog is global,
// so any authenticated caller may search it.
func (s *Service) SearchCompanies(ctx context.Context, _ Session, text string, limit int) search.Response {
	return s.search.Search(ctx, search.Query{Text: text, Limit: limit})
}

func (s *Service) ListLinkEvents(ctx context.Context, session Session, companyID string, limit int) ([]store.LinkEvent, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "company_id is required", nil)
	}
	if err := s.require(ctx, session, companyID, rbac.ActionRead); err != nil {
		return nil, err
	}
	events, err := s.store.ListLinkEvents(ctx, companyID, limit)
	if err != nil {
		return nil, &reconcile.DatastoreError{Op: "list link events", Err: err}
	}
	return events, nil
}

// Report renders the current Preview of companyID.
func (s *Service) Report(ctx context.Context, session Session, companyID string, format export.Format, archive bool) (*export.Result, error) {
	preview, err := s.reporter.Preview(ctx, session.UserID, companyID)
	if err != nil {
		return nil, err
	}
	company, err := s.store.GetCompany(ctx, strings.TrimSpace(companyID))
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return s.export.Render(ctx, export.Report{
		Company:     company,
		GeneratedAt: s.now().UTC(),
		Preview:     preview,
	}, format, archive)
}

func (s *Service) require(ctx context.Context, session Session, companyID string, action rbac.Action) error {
	allowed, err := s.access.CanAccess(ctx, session.UserID, companyID, action)
	if err != nil {
		return &reconcile.DatastoreError{Op: "check access", Err: err}
	}
	if !allowed {
		return &reconcile.AuthorizationError{CompanyID: companyID}
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Readiness pings the database and runs every configured probe. Only the
// database gates readiness; the optional components degrade gracefully.
func (s *Service) Readiness(ctx context.Context) (map[string]error, bool) {
	results := map[string]error{"database": s.Ping(ctx)}
	for name, probe := range s.probes {
		results[name] = probe(ctx)
	}
	return results, results["database"] == nil
}
