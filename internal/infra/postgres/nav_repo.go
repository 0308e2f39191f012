package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
)

const (
	pgUniqueViolation = "23505"

	constraintPeriodMonth    = "accounting_periods_club_month_key"
	constraintSnapshotPeriod = "nav_snapshots_period_key"
)

// NavRepository implements nav.Repository using PostgreSQL
type NavRepository struct {
	pool *pgxpool.Pool
}

var _ nav.Repository = (*NavRepository)(nil)

// NewNavRepository creates a new PostgreSQL NAV repository
func NewNavRepository(pool *pgxpool.Pool) *NavRepository {
	return &NavRepository{pool: pool}
}

// Period operations

const periodColumns = `
	id, tenant_id, club_id, year, month, status,
	opening_nav::text, closing_nav::text, reconciliation_diff::text,
	locked_at, closed_by::text, created_at, updated_at
`

// CreatePeriod inserts a new accounting period
func (r *NavRepository) CreatePeriod(ctx context.Context, p *nav.AccountingPeriod) error {
	query := `
		INSERT INTO accounting_periods (
			id, tenant_id, club_id, year, month, status,
			opening_nav, closing_nav, reconciliation_diff, locked_at, closed_by,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	q := r.getQueryer(ctx)
	_, err := q.Exec(ctx, query,
		p.ID,
		p.TenantID,
		p.ClubID,
		p.Year,
		p.Month,
		string(p.Status),
		p.OpeningNAV.String(),
		p.ClosingNAV.String(),
		p.ReconciliationDiff.String(),
		p.LockedAt,
		p.ClosedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintPeriodMonth) {
			return nav.ErrDuplicatePeriod
		}
		return fmt.Errorf("failed to create period: %w", err)
	}

	return nil
}

// GetPeriod retrieves a period by ID
func (r *NavRepository) GetPeriod(ctx context.Context, id uuid.UUID) (*nav.AccountingPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM accounting_periods WHERE id = $1`
	return r.scanPeriod(r.getQueryer(ctx).QueryRow(ctx, query, id))
}

// LockPeriod retrieves a period with a row-level lock (SELECT FOR UPDATE).
// The lock is held until the surrounding transaction commits or rolls back.
func (r *NavRepository) LockPeriod(ctx context.Context, id uuid.UUID) (*nav.AccountingPeriod, error) {
	if r.getTxFromContext(ctx) == nil {
		return nil, nav.ErrNoTx
	}
	query := `SELECT ` + periodColumns + ` FROM accounting_periods WHERE id = $1 FOR UPDATE`
	return r.scanPeriod(r.getQueryer(ctx).QueryRow(ctx, query, id))
}

// ListPeriods returns a club's periods, most recent first
func (r *NavRepository) ListPeriods(ctx context.Context, clubID uuid.UUID) ([]*nav.AccountingPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM accounting_periods WHERE club_id = $1 ORDER BY year DESC, month DESC`

	rows, err := r.getQueryer(ctx).Query(ctx, query, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list periods: %w", err)
	}
	defer rows.Close()

	var periods []*nav.AccountingPeriod
	for rows.Next() {
		p, err := r.scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating periods: %w", err)
	}

	return periods, nil
}

// UpdatePeriod writes a period's status and close fields
func (r *NavRepository) UpdatePeriod(ctx context.Context, p *nav.AccountingPeriod) error {
	query := `
		UPDATE accounting_periods
		SET status = $2,
			closing_nav = $3,
			reconciliation_diff = $4,
			locked_at = $5,
			closed_by = $6,
			updated_at = $7
		WHERE id = $1
	`

	tag, err := r.getQueryer(ctx).Exec(ctx, query,
		p.ID,
		string(p.Status),
		p.ClosingNAV.String(),
		p.ReconciliationDiff.String(),
		p.LockedAt,
		p.ClosedBy,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update period: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("period %s: %w", p.ID, nav.ErrNotFound)
	}

	return nil
}

func (r *NavRepository) scanPeriod(row pgx.Row) (*nav.AccountingPeriod, error) {
	var (
		p                                 nav.AccountingPeriod
		status                            string
		openingNAV, closingNAV, reconDiff string
		lockedAt                          sql.NullTime
		closedBy                          sql.NullString
	)

	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.ClubID,
		&p.Year,
		&p.Month,
		&status,
		&openingNAV,
		&closingNAV,
		&reconDiff,
		&lockedAt,
		&closedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("period: %w", nav.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan period: %w", err)
	}

	p.Status = nav.PeriodStatus(status)
	if err := parseDecimals(
		decimalField{openingNAV, &p.OpeningNAV},
		decimalField{closingNAV, &p.ClosingNAV},
		decimalField{reconDiff, &p.ReconciliationDiff},
	); err != nil {
		return nil, err
	}
	if lockedAt.Valid {
		t := lockedAt.Time
		p.LockedAt = &t
	}
	if p.ClosedBy, err = parseNullUUID(closedBy); err != nil {
		return nil, err
	}

	return &p, nil
}

// Investor operations

// CreateInvestor inserts an investor. Investors are maintained outside the engine.
func (r *NavRepository) CreateInvestor(ctx context.Context, inv *nav.Investor) error {
	query := `INSERT INTO investors (id, club_id, name, active) VALUES ($1, $2, $3, $4)`
	if _, err := r.getQueryer(ctx).Exec(ctx, query, inv.ID, inv.ClubID, inv.Name, inv.Active); err != nil {
		return fmt.Errorf("failed to create investor: %w", err)
	}
	return nil
}

// GetInvestor retrieves an investor by ID
func (r *NavRepository) GetInvestor(ctx context.Context, id uuid.UUID) (*nav.Investor, error) {
	query := `SELECT id, club_id, name, active FROM investors WHERE id = $1`

	var inv nav.Investor
	err := r.getQueryer(ctx).QueryRow(ctx, query, id).Scan(&inv.ID, &inv.ClubID, &inv.Name, &inv.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("investor %s: %w", id, nav.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get investor: %w", err)
	}

	return &inv, nil
}

// ListInvestors returns a club's investors ordered by ID
func (r *NavRepository) ListInvestors(ctx context.Context, clubID uuid.UUID) ([]*nav.Investor, error) {
	query := `SELECT id, club_id, name, active FROM investors WHERE club_id = $1 ORDER BY id`

	rows, err := r.getQueryer(ctx).Query(ctx, query, clubID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investors: %w", err)
	}
	defer rows.Close()

	var investors []*nav.Investor
	for rows.Next() {
		var inv nav.Investor
		if err := rows.Scan(&inv.ID, &inv.ClubID, &inv.Name, &inv.Active); err != nil {
			return nil, fmt.Errorf("failed to scan investor: %w", err)
		}
		investors = append(investors, &inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investors: %w", err)
	}

	return investors, nil
}

// Opening positions

// InsertOpeningPositions stores a period's opening balances in one batch
func (r *NavRepository) InsertOpeningPositions(ctx context.Context, positions []nav.OpeningPosition) error {
	if len(positions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, op := range positions {
		batch.Queue(
			`INSERT INTO opening_positions (period_id, investor_id, opening_balance) VALUES ($1, $2, $3)`,
			op.PeriodID, op.InvestorID, op.OpeningBalance.String(),
		)
	}

	if err := r.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert opening positions: %w", err)
	}
	return nil
}

// ListOpeningPositions returns a period's opening balances ordered by investor
func (r *NavRepository) ListOpeningPositions(ctx context.Context, periodID uuid.UUID) ([]nav.OpeningPosition, error) {
	query := `
		SELECT period_id, investor_id, opening_balance::text
		FROM opening_positions
		WHERE period_id = $1
		ORDER BY investor_id
	`

	rows, err := r.getQueryer(ctx).Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list opening positions: %w", err)
	}
	defer rows.Close()

	var positions []nav.OpeningPosition
	for rows.Next() {
		var (
			op      nav.OpeningPosition
			balance string
		)
		if err := rows.Scan(&op.PeriodID, &op.InvestorID, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan opening position: %w", err)
		}
		if err := parseDecimals(decimalField{balance, &op.OpeningBalance}); err != nil {
			return nil, err
		}
		positions = append(positions, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating opening positions: %w", err)
	}

	return positions, nil
}

// Ledger entry operations

const entryColumns = `
	id, tenant_id, club_id, period_id, entry_type, amount::text, investor_id::text,
	tx_date, category, description, reference, created_by, created_at
`

// CreateEntry inserts a ledger entry
func (r *NavRepository) CreateEntry(ctx context.Context, e *nav.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (
			id, tenant_id, club_id, period_id, entry_type, amount, investor_id,
			tx_date, category, description, reference, created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.getQueryer(ctx).Exec(ctx, query,
		e.ID,
		e.TenantID,
		e.ClubID,
		e.PeriodID,
		string(e.EntryType),
		e.Amount.String(),
		e.InvestorID,
		e.TxDate,
		e.Category,
		e.Description,
		e.Reference,
		e.CreatedBy,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	return nil
}

// GetEntry retrieves a ledger entry by ID
func (r *NavRepository) GetEntry(ctx context.Context, id uuid.UUID) (*nav.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`
	return r.scanEntry(r.getQueryer(ctx).QueryRow(ctx, query, id))
}

// UpdateEntry overwrites a ledger entry's editable fields
func (r *NavRepository) UpdateEntry(ctx context.Context, e *nav.LedgerEntry) error {
	query := `
		UPDATE ledger_entries
		SET entry_type = $2,
			amount = $3,
			investor_id = $4,
			tx_date = $5,
			category = $6,
			description = $7,
			reference = $8
		WHERE id = $1
	`

	tag, err := r.getQueryer(ctx).Exec(ctx, query,
		e.ID,
		string(e.EntryType),
		e.Amount.String(),
		e.InvestorID,
		e.TxDate,
		e.Category,
		e.Description,
		e.Reference,
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entry %s: %w", e.ID, nav.ErrNotFound)
	}

	return nil
}

// DeleteEntry removes a ledger entry
func (r *NavRepository) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	tag, err := r.getQueryer(ctx).Exec(ctx, `DELETE FROM ledger_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("entry %s: %w", id, nav.ErrNotFound)
	}
	return nil
}

// ListEntries returns a period's entries ordered by transaction date then creation
func (r *NavRepository) ListEntries(ctx context.Context, periodID uuid.UUID) ([]*nav.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE period_id = $1 ORDER BY tx_date, created_at, id`

	rows, err := r.getQueryer(ctx).Query(ctx, query, periodID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*nav.LedgerEntry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	return entries, nil
}

func (r *NavRepository) scanEntry(row pgx.Row) (*nav.LedgerEntry, error) {
	var (
		e          nav.LedgerEntry
		entryType  string
		amount     string
		investorID sql.NullString
	)

	err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.ClubID,
		&e.PeriodID,
		&entryType,
		&amount,
		&investorID,
		&e.TxDate,
		&e.Category,
		&e.Description,
		&e.Reference,
		&e.CreatedBy,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entry: %w", nav.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan entry: %w", err)
	}

	e.EntryType = nav.EntryType(entryType)
	if err := parseDecimals(decimalField{amount, &e.Amount}); err != nil {
		return nil, err
	}
	if e.InvestorID, err = parseNullUUID(investorID); err != nil {
		return nil, err
	}

	return &e, nil
}

// Snapshot operations (insert and read only)

// InsertSnapshot inserts the snapshot header; a period can have only one
func (r *NavRepository) InsertSnapshot(ctx context.Context, s *nav.NavSnapshot) error {
	query := `
		INSERT INTO nav_snapshots (
			id, tenant_id, club_id, period_id,
			opening_nav, contributions_total, withdrawals_total, income_total,
			expenses_total, adjustments_total, closing_nav, investor_total,
			created_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.getQueryer(ctx).Exec(ctx, query,
		s.ID,
		s.TenantID,
		s.ClubID,
		s.PeriodID,
		s.OpeningNAV.String(),
		s.ContributionsTotal.String(),
		s.WithdrawalsTotal.String(),
		s.IncomeTotal.String(),
		s.ExpensesTotal.String(),
		s.AdjustmentsTotal.String(),
		s.ClosingNAV.String(),
		s.InvestorTotal.String(),
		s.CreatedBy,
		s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, constraintSnapshotPeriod) {
			return nav.ErrSnapshotExists
		}
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// InsertInvestorBalances stores a snapshot's frozen balances in one batch
func (r *NavRepository) InsertInvestorBalances(ctx context.Context, balances []nav.InvestorBalance) error {
	if len(balances) == 0 {
		return nil
	}

	query := `
		INSERT INTO investor_balances (
			snapshot_id, period_id, investor_id, opening_balance, ownership_pct,
			income_share, expense_share, net_allocation, contributions, withdrawals,
			adjustments, closing_balance
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	batch := &pgx.Batch{}
	for _, b := range balances {
		batch.Queue(query,
			b.SnapshotID,
			b.PeriodID,
			b.InvestorID,
			b.OpeningBalance.String(),
			b.OwnershipPct.String(),
			b.IncomeShare.String(),
			b.ExpenseShare.String(),
			b.NetAllocation.String(),
			b.Contributions.String(),
			b.Withdrawals.String(),
			b.Adjustments.String(),
			b.ClosingBalance.String(),
		)
	}

	if err := r.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert investor balances: %w", err)
	}
	return nil
}

// GetSnapshotByPeriod reads a period's snapshot with its investor balances
func (r *NavRepository) GetSnapshotByPeriod(ctx context.Context, periodID uuid.UUID) (*nav.NavSnapshot, error) {
	query := `
		SELECT id, tenant_id, club_id, period_id,
			opening_nav::text, contributions_total::text, withdrawals_total::text, income_total::text,
			expenses_total::text, adjustments_total::text, closing_nav::text, investor_total::text,
			created_by, created_at
		FROM nav_snapshots
		WHERE period_id = $1
	`

	var (
		s                                             nav.NavSnapshot
		opening, contributions, withdrawals, income   string
		expenses, adjustments, closing, investorTotal string
	)

	q := r.getQueryer(ctx)
	err := q.QueryRow(ctx, query, periodID).Scan(
		&s.ID,
		&s.TenantID,
		&s.ClubID,
		&s.PeriodID,
		&opening,
		&contributions,
		&withdrawals,
		&income,
		&expenses,
		&adjustments,
		&closing,
		&investorTotal,
		&s.CreatedBy,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("snapshot for period %s: %w", periodID, nav.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	if err := parseDecimals(
		decimalField{opening, &s.OpeningNAV},
		decimalField{contributions, &s.ContributionsTotal},
		decimalField{withdrawals, &s.WithdrawalsTotal},
		decimalField{income, &s.IncomeTotal},
		decimalField{expenses, &s.ExpensesTotal},
		decimalField{adjustments, &s.AdjustmentsTotal},
		decimalField{closing, &s.ClosingNAV},
		decimalField{investorTotal, &s.InvestorTotal},
	); err != nil {
		return nil, err
	}

	balances, err := r.listInvestorBalances(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.InvestorBalances = balances

	return &s, nil
}

func (r *NavRepository) listInvestorBalances(ctx context.Context, snapshotID uuid.UUID) ([]nav.InvestorBalance, error) {
	query := `
		SELECT snapshot_id, period_id, investor_id,
			opening_balance::text, ownership_pct::text, income_share::text, expense_share::text,
			net_allocation::text, contributions::text, withdrawals::text, adjustments::text,
			closing_balance::text
		FROM investor_balances
		WHERE snapshot_id = $1
		ORDER BY investor_id
	`

	rows, err := r.getQueryer(ctx).Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list investor balances: %w", err)
	}
	defer rows.Close()

	var balances []nav.InvestorBalance
	for rows.Next() {
		var (
			b    nav.InvestorBalance
			nums [9]string
		)
		if err := rows.Scan(
			&b.SnapshotID, &b.PeriodID, &b.InvestorID,
			&nums[0], &nums[1], &nums[2], &nums[3], &nums[4], &nums[5], &nums[6], &nums[7], &nums[8],
		); err != nil {
			return nil, fmt.Errorf("failed to scan investor balance: %w", err)
		}
		if err := parseDecimals(
			decimalField{nums[0], &b.OpeningBalance},
			decimalField{nums[1], &b.OwnershipPct},
			decimalField{nums[2], &b.IncomeShare},
			decimalField{nums[3], &b.ExpenseShare},
			decimalField{nums[4], &b.NetAllocation},
			decimalField{nums[5], &b.Contributions},
			decimalField{nums[6], &b.Withdrawals},
			decimalField{nums[7], &b.Adjustments},
			decimalField{nums[8], &b.ClosingBalance},
		); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investor balances: %w", err)
	}

	return balances, nil
}

// Transaction management
// Transactions are stored in context using txContextKey

type ctxKey string

const txContextKey ctxKey = "nav_tx"

// BeginTx starts a new database transaction and stores it in the context
func (r *NavRepository) BeginTx(ctx context.Context) (context.Context, error) {
	if tx := r.getTxFromContext(ctx); tx != nil {
		return ctx, nav.ErrTxAlreadyStarted
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return context.WithValue(ctx, txContextKey, tx), nil
}

// CommitTx commits the database transaction from the context
func (r *NavRepository) CommitTx(ctx context.Context) error {
	tx := r.getTxFromContext(ctx)
	if tx == nil {
		return nav.ErrNoTx
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RollbackTx rolls back the database transaction from the context
func (r *NavRepository) RollbackTx(ctx context.Context) error {
	tx := r.getTxFromContext(ctx)
	if tx == nil {
		return nav.ErrNoTx
	}

	if err := tx.Rollback(ctx); err != nil {
		// Ignore already rolled back or committed errors
		if errors.Is(err, pgx.ErrTxClosed) {
			return nil
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// getTxFromContext retrieves the transaction from context if one exists
func (r *NavRepository) getTxFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txContextKey).(pgx.Tx); ok {
		return tx
	}
	return nil
}

type queryer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// getQueryer returns the transaction if one exists in context, otherwise returns the pool
func (r *NavRepository) getQueryer(ctx context.Context) queryer {
	if tx := r.getTxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *NavRepository) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := r.getQueryer(ctx).SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == constraint
}

type decimalField struct {
	raw string
	dst *decimal.Decimal
}

func parseDecimals(fields ...decimalField) error {
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return fmt.Errorf("invalid numeric value %q: %w", f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

func parseNullUUID(s sql.NullString) (*uuid.UUID, error) {
	if !s.Valid {
		return nil, nil
	}
	id, err := uuid.Parse(s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID %q: %w", s.String, err)
	}
	return &id, nil
}
