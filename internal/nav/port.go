package nav

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence surface the engine needs.
//
// Writes made after BeginTx travel in the returned context and become visible
// to other callers only after CommitTx. Snapshots and investor balances have
// insert and read operations only.
type Repository interface {
	// Period operations
	CreatePeriod(ctx context.Context, period *AccountingPeriod) error
	GetPeriod(ctx context.Context, id uuid.UUID) (*AccountingPeriod, error)
	ListPeriods(ctx context.Context, clubID uuid.UUID) ([]*AccountingPeriod, error)
	UpdatePeriod(ctx context.Context, period *AccountingPeriod) error

	// LockPeriod reads the period and holds a write lock on it until the
	// surrounding transaction ends. It must be called inside BeginTx.
	LockPeriod(ctx context.Context, id uuid.UUID) (*AccountingPeriod, error)

	// Investor operations (read-only)
	GetInvestor(ctx context.Context, id uuid.UUID) (*Investor, error)
	ListInvestors(ctx context.Context, clubID uuid.UUID) ([]*Investor, error)

	// Opening positions
	InsertOpeningPositions(ctx context.Context, positions []OpeningPosition) error
	ListOpeningPositions(ctx context.Context, periodID uuid.UUID) ([]OpeningPosition, error)

	// Ledger entry operations
	CreateEntry(ctx context.Context, entry *LedgerEntry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*LedgerEntry, error)
	UpdateEntry(ctx context.Context, entry *LedgerEntry) error
	DeleteEntry(ctx context.Context, id uuid.UUID) error
	ListEntries(ctx context.Context, periodID uuid.UUID) ([]*LedgerEntry, error)

	// Snapshot operations (insert and read only)
	InsertSnapshot(ctx context.Context, snapshot *NavSnapshot) error
	InsertInvestorBalances(ctx context.Context, balances []InvestorBalance) error
	GetSnapshotByPeriod(ctx context.Context, periodID uuid.UUID) (*NavSnapshot, error)

	// Transaction management
	BeginTx(ctx context.Context) (context.Context, error)
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error
}

// SnapshotCache holds closed snapshots. Get returns (nil, nil) on a miss.
type SnapshotCache interface {
	Get(ctx context.Context, periodID uuid.UUID) (*NavSnapshot, error)
	Set(ctx context.Context, snapshot *NavSnapshot) error
}

// EventSink receives audit-worthy events after the operation that raised them has committed.
type EventSink interface {
	Emit(ctx context.Context, event Event) error
}
