package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5/pgconn"

	"fundops/api/internal/reconcile"
)

// ErrCompanyNotFound is returned when a link targets a company id that does
// not exist.
var ErrCompanyNotFound = errors.New("company not found")

const pgForeignKeyViolation = "23503"

var investorColumns = []string{
	"id", "company_id", "full_name", "client_name",
	"client_company_id", "client_company_match_type", "client_company_matched_at", "updated_at",
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// ListCompanies returns the whole catalog in creation order.
func (s *PostgresStore) ListCompanies(ctx context.Context) ([]reconcile.Company, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name")
	sb.From("companies")
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	return scanCompanies(rows, "companies")
}

func (s *PostgresStore) GetCompany(ctx context.Context, companyID string) (reconcile.Company, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name")
	sb.From("companies")
	sb.Where(sb.Equal("id", companyID))

	query, args := sb.Build()
	var company reconcile.Company
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&company.ID, &company.Name); err != nil {
		return reconcile.Company{}, err
	}
	return company, nil
}

// SearchCompanies is the database fallback for manual overrides: a
// case-insensitive substring match on the company name.
func (s *PostgresStore) SearchCompanies(ctx context.Context, query string, limit int) ([]reconcile.Company, error) {
	if limit <= 0 {
		limit = 20
	}
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name")
	sb.From("companies")
	if term := strings.TrimSpace(query); term != "" {
		sb.Where(fmt.Sprintf("name ILIKE %s", sb.Var("%"+escapeLike(term)+"%")))
		sb.OrderBy(fmt.Sprintf("POSITION(LOWER(%s) IN LOWER(name))", sb.Var(term)), "LENGTH(name)", "name")
	} else {
		sb.OrderBy("name")
	}
	sb.Limit(limit)

	built, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, built, args...)
	if err != nil {
		return nil, fmt.Errorf("search companies: %w", err)
	}
	defer rows.Close()

	return scanCompanies(rows, "company search")
}

// ListInvestorsForMatching returns the investors of companyID carrying a
// non-blank client label.
func (s *PostgresStore) ListInvestorsForMatching(ctx context.Context, companyID string) ([]reconcile.Investor, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(investorColumns...)
	sb.From("investors")
	sb.Where(
		sb.Equal("company_id", companyID),
		sb.IsNotNull("client_name"),
		"btrim(client_name) <> ''",
	)
	sb.OrderBy("created_at", "id")

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list investors: %w", err)
	}
	defer rows.Close()

	items := make([]reconcile.Investor, 0)
	for rows.Next() {
		item, err := scanInvestor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan investor: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate investors: %w", err)
	}
	return items, nil
}

// LinkInvestor performs the conditional link write. Without Force the update
// only touches a row whose client_company_id is still null, so a concurrent
// writer that got there first wins and this call reports written=false.
// Every successful write appends a link event in the same transaction.
func (s *PostgresStore) LinkInvestor(ctx context.Context, write reconcile.LinkWrite) (reconcile.Investor, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return reconcile.Investor{}, false, fmt.Errorf("begin link tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var previous sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT client_company_id FROM investors WHERE id=$1 AND company_id=$2 FOR UPDATE`,
		write.InvestorID, write.SourceCompanyID,
	).Scan(&previous)
	if errors.Is(err, sql.ErrNoRows) {
		return reconcile.Investor{}, false, nil
	}
	if err != nil {
		return reconcile.Investor{}, false, fmt.Errorf("read investor link: %w", err)
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("investors")
	ub.Set(
		ub.Assign("client_company_id", write.TargetCompanyID),
		ub.Assign("client_company_match_type", string(write.MatchType)),
		ub.Assign("client_company_matched_at", write.At),
		ub.Assign("updated_at", write.At),
	)
	where := []string{
		ub.Equal("id", write.InvestorID),
		ub.Equal("company_id", write.SourceCompanyID),
	}
	if !write.Force {
		where = append(where, ub.IsNull("client_company_id"))
	}
	ub.Where(where...)

	query, args := ub.Build()
	query += " RETURNING " + strings.Join(investorColumns, ", ")

	updated, err := scanInvestor(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return reconcile.Investor{}, false, nil
	}
	if err != nil {
		if isForeignKeyViolation(err) {
			return reconcile.Investor{}, false, ErrCompanyNotFound
		}
		return reconcile.Investor{}, false, fmt.Errorf("update investor link: %w", err)
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("investor_company_link_events")
	ib.Cols("investor_id", "source_company_id", "previous_company_id", "new_company_id", "match_type", "forced", "actor_id", "created_at")
	ib.Values(write.InvestorID, write.SourceCompanyID, previous, write.TargetCompanyID, string(write.MatchType), write.Force, write.ActorID, write.At)

	query, args = ib.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return reconcile.Investor{}, false, fmt.Errorf("insert link event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return reconcile.Investor{}, false, fmt.Errorf("commit link tx: %w", err)
	}
	return updated, true, nil
}

func (s *PostgresStore) ListLinkEvents(ctx context.Context, sourceCompanyID string, limit int) ([]LinkEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "investor_id", "source_company_id", "previous_company_id", "new_company_id", "match_type", "forced", "actor_id", "created_at")
	sb.From("investor_company_link_events")
	sb.Where(sb.Equal("source_company_id", sourceCompanyID))
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(limit)

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list link events: %w", err)
	}
	defer rows.Close()

	items := make([]LinkEvent, 0)
	for rows.Next() {
		var item LinkEvent
		var previous sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.InvestorID,
			&item.SourceCompanyID,
			&previous,
			&item.NewCompanyID,
			&item.MatchType,
			&item.Forced,
			&item.ActorID,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan link event: %w", err)
		}
		if previous.Valid {
			item.PreviousCompanyID = &previous.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate link events: %w", err)
	}
	return items, nil
}

// AccessRoles returns the user's global role and their membership role in
// companyID. A missing profile reads as viewer; a missing membership as "".
func (s *PostgresStore) AccessRoles(ctx context.Context, userID, companyID string) (string, string, error) {
	var globalRole, membershipRole sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT p.role, m.role
		FROM (SELECT $1::text AS user_id) u
		LEFT JOIN profiles p ON p.id = u.user_id
		LEFT JOIN company_memberships m ON m.user_id = u.user_id AND m.company_id = $2
	`, userID, companyID).Scan(&globalRole, &membershipRole)
	if err != nil {
		return "", "", fmt.Errorf("lookup access roles: %w", err)
	}
	role := "viewer"
	if globalRole.Valid && globalRole.String != "" {
		role = globalRole.String
	}
	return role, membershipRole.String, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvestor(row rowScanner) (reconcile.Investor, error) {
	var (
		item       reconcile.Investor
		clientName sql.NullString
		linkedID   sql.NullString
		matchType  sql.NullString
		matchedAt  sql.NullTime
	)
	if err := row.Scan(
		&item.ID,
		&item.CompanyID,
		&item.FullName,
		&clientName,
		&linkedID,
		&matchType,
		&matchedAt,
		&item.UpdatedAt,
	); err != nil {
		return reconcile.Investor{}, err
	}
	item.ClientName = clientName.String
	if linkedID.Valid {
		item.ClientCompanyID = &linkedID.String
	}
	if matchType.Valid {
		mt := reconcile.MatchType(matchType.String)
		item.ClientCompanyMatchType = &mt
	}
	if matchedAt.Valid {
		item.ClientCompanyMatchedAt = &matchedAt.Time
	}
	return item, nil
}

func scanCompanies(rows *sql.Rows, what string) ([]reconcile.Company, error) {
	items := make([]reconcile.Company, 0)
	for rows.Next() {
		var item reconcile.Company
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return items, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func escapeLike(value string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
}
