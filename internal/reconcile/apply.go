package reconcile

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultMaxBatch bounds the number of updates accepted by one Apply call.
const DefaultMaxBatch = 500

// Executor applies accepted links. Rows are written sequentially and a failed
// row never aborts the rest of the batch.
type Executor struct {
	investors InvestorStore
	authz     Authorizer
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	maxBatch  int
}

// ExecutorOption customises an Executor.
type ExecutorOption func(*Executor)

// WithMaxBatch sets the batch size limit; zero or less disables it.
func WithMaxBatch(n int) ExecutorOption {
	return func(e *Executor) { e.maxBatch = n }
}

// WithClock replaces time.Now for matched_at timestamps.
func WithClock(now func() time.Time) ExecutorOption {
	return func(e *Executor) { e.now = now }
}

// NewExecutor builds an Executor. A nil logger disables logging.
func NewExecutor(investors InvestorStore, authz Authorizer, logger *zap.Logger, opts ...ExecutorOption) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	e := &Executor{
		investors: investors,
		authz:     authz,
		validate:  validate,
		logger:    logger.Named("reconcile.apply"),
		now:       time.Now,
		maxBatch:  DefaultMaxBatch,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply links the investors named in req. Authorization against the source
// company and every target company completes before the first write.
func (e *Executor) Apply(ctx context.Context, userID string, req ApplyRequest) (ApplyOutcome, error) {
	req.CompanyID = strings.TrimSpace(req.CompanyID)
	if req.CompanyID == "" {
		return ApplyOutcome{}, validationError("company_id is required")
	}
	if len(req.Updates) == 0 {
		return ApplyOutcome{}, validationError("updates must be a non-empty array")
	}
	if e.maxBatch > 0 && len(req.Updates) > e.maxBatch {
		return ApplyOutcome{}, validationError("too many updates: %d (max %d per request)", len(req.Updates), e.maxBatch)
	}

	req.Updates = trimUpdates(req.Updates)
	if err := e.authorize(ctx, userID, req); err != nil {
		return ApplyOutcome{}, err
	}

	outcome := ApplyOutcome{}
	for _, update := range req.Updates {
		reason, ok := e.applyRow(ctx, userID, req.CompanyID, req.Force, update)
		if ok {
			outcome.Updated++
			continue
		}
		outcome.Skipped++
		outcome.Errors = append(outcome.Errors, RowError{InvestorID: update.InvestorID, Reason: reason})
		e.logger.Warn("apply row skipped",
			zap.String("company_id", req.CompanyID),
			zap.String("investor_id", update.InvestorID),
			zap.String("reason", reason),
		)
	}

	e.logger.Info("apply finished",
		zap.String("company_id", req.CompanyID),
		zap.String("user_id", userID),
		zap.Bool("force", req.Force),
		zap.Int("updated", outcome.Updated),
		zap.Int("skipped", outcome.Skipped),
	)
	return outcome, nil
}

// trimUpdates returns a copy of updates with ids trimmed, so the ids that are
// authorized are the ids that are written. Blank ids then fail validation.
func trimUpdates(updates []UpdateRequest) []UpdateRequest {
	trimmed := make([]UpdateRequest, len(updates))
	for i, update := range updates {
		update.InvestorID = strings.TrimSpace(update.InvestorID)
		update.CompanyID = strings.TrimSpace(update.CompanyID)
		trimmed[i] = update
	}
	return trimmed
}

// authorize checks the source company first, then each distinct target in
// order of first appearance. Blank targets are left to row validation.
func (e *Executor) authorize(ctx context.Context, userID string, req ApplyRequest) error {
	companies := []string{req.CompanyID}
	seen := map[string]struct{}{req.CompanyID: {}}
	for _, update := range req.Updates {
		target := update.CompanyID
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		companies = append(companies, target)
	}

	for _, companyID := range companies {
		allowed, err := e.authz.CanAccess(ctx, userID, companyID)
		if err != nil {
			return &DatastoreError{Op: "check access", Err: err}
		}
		if !allowed {
			e.logger.Warn("apply denied", zap.String("user_id", userID), zap.String("company_id", companyID))
			return &AuthorizationError{CompanyID: companyID}
		}
	}
	return nil
}

// applyRow returns ("", true) when the row was written, otherwise the reason
// it was skipped.
func (e *Executor) applyRow(ctx context.Context, userID, sourceCompanyID string, force bool, update UpdateRequest) (reason string, ok bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			reason, ok = fmt.Sprint(recovered), false
		}
	}()

	if err := e.validate.Struct(update); err != nil {
		return describeValidation(err), false
	}

	_, written, err := e.investors.LinkInvestor(ctx, LinkWrite{
		InvestorID:      update.InvestorID,
		SourceCompanyID: sourceCompanyID,
		TargetCompanyID: update.CompanyID,
		MatchType:       update.MatchType,
		Force:           force,
		ActorID:         userID,
		At:              e.now().UTC(),
	})
	if err != nil {
		return err.Error(), false
	}
	if !written {
		if force {
			return ReasonNotFound, false
		}
		return ReasonAlreadyLinked, false
	}
	return "", true
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	missing := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Tag() == "oneof" {
			return fmt.Sprintf("invalid %s %q: must be one of manual, exact, normalized", fe.Field(), fe.Value())
		}
		missing = append(missing, fe.Field())
	}
	return "missing required fields: " + strings.Join(missing, ", ")
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}
