// Package memory is an in-process implementation of nav.Repository.
//
// Reads see committed state. Writes made under a transaction are buffered and
// applied together on commit, so a failed or rolled back transaction leaves no
// trace. LockPeriod holds a per-period mutex until the transaction ends.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/Isaac25-lgtm/navcore-platform/internal/nav"
)

type txKey struct{}

type tx struct {
	ops    []func(*state) error
	locks  []*sync.Mutex
	locked map[uuid.UUID]bool
	done   bool
}

type state struct {
	periods          map[uuid.UUID]nav.AccountingPeriod
	investors        map[uuid.UUID]nav.Investor
	openings         map[uuid.UUID][]nav.OpeningPosition
	entries          map[uuid.UUID]nav.LedgerEntry
	snapshots        map[uuid.UUID]nav.NavSnapshot
	snapshotByPeriod map[uuid.UUID]uuid.UUID
	balances         map[uuid.UUID][]nav.InvestorBalance
}

func newState() *state {
	return &state{
		periods:          make(map[uuid.UUID]nav.AccountingPeriod),
		investors:        make(map[uuid.UUID]nav.Investor),
		openings:         make(map[uuid.UUID][]nav.OpeningPosition),
		entries:          make(map[uuid.UUID]nav.LedgerEntry),
		snapshots:        make(map[uuid.UUID]nav.NavSnapshot),
		snapshotByPeriod: make(map[uuid.UUID]uuid.UUID),
		balances:         make(map[uuid.UUID][]nav.InvestorBalance),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.investors {
		c.investors[k] = v
	}
	for k, v := range s.openings {
		c.openings[k] = slices.Clone(v)
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	for k, v := range s.snapshots {
		c.snapshots[k] = v
	}
	for k, v := range s.snapshotByPeriod {
		c.snapshotByPeriod[k] = v
	}
	for k, v := range s.balances {
		c.balances[k] = slices.Clone(v)
	}
	return c
}

// Store is a thread-safe in-memory repository
type Store struct {
	mu    sync.RWMutex
	state *state

	locksMu     sync.Mutex
	periodLocks map[uuid.UUID]*sync.Mutex
}

var _ nav.Repository = (*Store)(nil)

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		state:       newState(),
		periodLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

func txFrom(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

// BeginTx starts a transaction carried by the returned context
func (s *Store) BeginTx(ctx context.Context) (context.Context, error) {
	if txFrom(ctx) != nil {
		return ctx, nav.ErrTxAlreadyStarted
	}
	return context.WithValue(ctx, txKey{}, &tx{locked: make(map[uuid.UUID]bool)}), nil
}

// CommitTx applies every buffered write atomically and releases period locks
func (s *Store) CommitTx(ctx context.Context) error {
	t := txFrom(ctx)
	if t == nil || t.done {
		return nav.ErrNoTx
	}
	defer s.finish(t)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	for _, op := range t.ops {
		if err := op(next); err != nil {
			return err
		}
	}
	s.state = next
	return nil
}

// RollbackTx discards buffered writes and releases period locks
func (s *Store) RollbackTx(ctx context.Context) error {
	t := txFrom(ctx)
	if t == nil {
		return nav.ErrNoTx
	}
	if t.done {
		return nil
	}
	s.finish(t)
	return nil
}

func (s *Store) finish(t *tx) {
	t.done = true
	t.ops = nil
	for i := len(t.locks) - 1; i >= 0; i-- {
		t.locks[i].Unlock()
	}
	t.locks = nil
}

// write runs op inside the caller's transaction, or on its own when there is none
func (s *Store) write(ctx context.Context, op func(*state) error) error {
	if t := txFrom(ctx); t != nil {
		if t.done {
			return nav.ErrNoTx
		}
		t.ops = append(t.ops, op)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := op(next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) read() (*state, func()) {
	s.mu.RLock()
	return s.state, s.mu.RUnlock
}

func (s *Store) periodLock(id uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.periodLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.periodLocks[id] = m
	}
	return m
}

// LockPeriod waits for the period's lock and reads it once held
func (s *Store) LockPeriod(ctx context.Context, id uuid.UUID) (*nav.AccountingPeriod, error) {
	t := txFrom(ctx)
	if t == nil || t.done {
		return nil, nav.ErrNoTx
	}

	if !t.locked[id] {
		m := s.periodLock(id)
		m.Lock()
		t.locks = append(t.locks, m)
		t.locked[id] = true
	}

	return s.GetPeriod(ctx, id)
}

// CreateInvestor registers an investor. Investors are managed outside the engine.
func (s *Store) CreateInvestor(ctx context.Context, investor *nav.Investor) error {
	inv := *investor
	return s.write(ctx, func(st *state) error {
		st.investors[inv.ID] = inv
		return nil
	})
}

// CreatePeriod inserts a period; (club, year, month) must be unique
func (s *Store) CreatePeriod(ctx context.Context, period *nav.AccountingPeriod) error {
	p := copyPeriod(*period)

	st, unlock := s.read()
	err := checkPeriodUnique(st, p)
	unlock()
	if err != nil {
		return err
	}

	return s.write(ctx, func(st *state) error {
		if err := checkPeriodUnique(st, p); err != nil {
			return err
		}
		st.periods[p.ID] = p
		return nil
	})
}

func checkPeriodUnique(st *state, p nav.AccountingPeriod) error {
	for _, existing := range st.periods {
		if existing.ClubID == p.ClubID && existing.Year == p.Year && existing.Month == p.Month {
			return nav.ErrDuplicatePeriod
		}
	}
	return nil
}

// GetPeriod reads a period by ID
func (s *Store) GetPeriod(ctx context.Context, id uuid.UUID) (*nav.AccountingPeriod, error) {
	st, unlock := s.read()
	defer unlock()

	p, ok := st.periods[id]
	if !ok {
		return nil, fmt.Errorf("period %s: %w", id, nav.ErrNotFound)
	}
	out := copyPeriod(p)
	return &out, nil
}

// ListPeriods returns a club's periods, most recent first
func (s *Store) ListPeriods(ctx context.Context, clubID uuid.UUID) ([]*nav.AccountingPeriod, error) {
	st, unlock := s.read()
	defer unlock()

	var out []*nav.AccountingPeriod
	for _, p := range st.periods {
		if p.ClubID == clubID {
			cp := copyPeriod(p)
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *nav.AccountingPeriod) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return b.Month - a.Month
	})
	return out, nil
}

// UpdatePeriod overwrites a period's mutable fields
func (s *Store) UpdatePeriod(ctx context.Context, period *nav.AccountingPeriod) error {
	p := copyPeriod(*period)
	return s.write(ctx, func(st *state) error {
		existing, ok := st.periods[p.ID]
		if !ok {
			return fmt.Errorf("period %s: %w", p.ID, nav.ErrNotFound)
		}
		existing.Status = p.Status
		existing.ClosingNAV = p.ClosingNAV
		existing.ReconciliationDiff = p.ReconciliationDiff
		existing.LockedAt = p.LockedAt
		existing.ClosedBy = p.ClosedBy
		existing.UpdatedAt = p.UpdatedAt
		st.periods[p.ID] = existing
		return nil
	})
}

// GetInvestor reads an investor by ID
func (s *Store) GetInvestor(ctx context.Context, id uuid.UUID) (*nav.Investor, error) {
	st, unlock := s.read()
	defer unlock()

	inv, ok := st.investors[id]
	if !ok {
		return nil, fmt.Errorf("investor %s: %w", id, nav.ErrNotFound)
	}
	return &inv, nil
}

// ListInvestors returns a club's investors ordered by ID
func (s *Store) ListInvestors(ctx context.Context, clubID uuid.UUID) ([]*nav.Investor, error) {
	st, unlock := s.read()
	defer unlock()

	var out []*nav.Investor
	for _, inv := range st.investors {
		if inv.ClubID == clubID {
			cp := inv
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *nav.Investor) int { return bytes.Compare(a.ID[:], b.ID[:]) })
	return out, nil
}

// InsertOpeningPositions stores opening balances for a period
func (s *Store) InsertOpeningPositions(ctx context.Context, positions []nav.OpeningPosition) error {
	rows := slices.Clone(positions)
	return s.write(ctx, func(st *state) error {
		for _, op := range rows {
			st.openings[op.PeriodID] = append(st.openings[op.PeriodID], op)
		}
		return nil
	})
}

// ListOpeningPositions returns a period's opening balances ordered by investor
func (s *Store) ListOpeningPositions(ctx context.Context, periodID uuid.UUID) ([]nav.OpeningPosition, error) {
	st, unlock := s.read()
	defer unlock()

	out := slices.Clone(st.openings[periodID])
	slices.SortFunc(out, func(a, b nav.OpeningPosition) int {
		return bytes.Compare(a.InvestorID[:], b.InvestorID[:])
	})
	return out, nil
}

// CreateEntry inserts a ledger entry as given, without validation
func (s *Store) CreateEntry(ctx context.Context, entry *nav.LedgerEntry) error {
	e := copyEntry(*entry)
	return s.write(ctx, func(st *state) error {
		if _, ok := st.periods[e.PeriodID]; !ok {
			return fmt.Errorf("period %s: %w", e.PeriodID, nav.ErrNotFound)
		}
		st.entries[e.ID] = e
		return nil
	})
}

// GetEntry reads a ledger entry by ID
func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (*nav.LedgerEntry, error) {
	st, unlock := s.read()
	defer unlock()

	e, ok := st.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, nav.ErrNotFound)
	}
	out := copyEntry(e)
	return &out, nil
}

// UpdateEntry overwrites a ledger entry
func (s *Store) UpdateEntry(ctx context.Context, entry *nav.LedgerEntry) error {
	e := copyEntry(*entry)
	return s.write(ctx, func(st *state) error {
		if _, ok := st.entries[e.ID]; !ok {
			return fmt.Errorf("entry %s: %w", e.ID, nav.ErrNotFound)
		}
		st.entries[e.ID] = e
		return nil
	})
}

// DeleteEntry removes a ledger entry
func (s *Store) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	return s.write(ctx, func(st *state) error {
		if _, ok := st.entries[id]; !ok {
			return fmt.Errorf("entry %s: %w", id, nav.ErrNotFound)
		}
		delete(st.entries, id)
		return nil
	})
}

// ListEntries returns a period's entries ordered by transaction date then creation
func (s *Store) ListEntries(ctx context.Context, periodID uuid.UUID) ([]*nav.LedgerEntry, error) {
	st, unlock := s.read()
	defer unlock()

	var out []*nav.LedgerEntry
	for _, e := range st.entries {
		if e.PeriodID == periodID {
			cp := copyEntry(e)
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *nav.LedgerEntry) int {
		if c := a.TxDate.Compare(b.TxDate); c != 0 {
			return c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

// InsertSnapshot stores a snapshot; a period can have only one
func (s *Store) InsertSnapshot(ctx context.Context, snapshot *nav.NavSnapshot) error {
	snap := *snapshot
	snap.InvestorBalances = nil

	st, unlock := s.read()
	_, exists := st.snapshotByPeriod[snap.PeriodID]
	unlock()
	if exists {
		return nav.ErrSnapshotExists
	}

	return s.write(ctx, func(st *state) error {
		if _, ok := st.snapshotByPeriod[snap.PeriodID]; ok {
			return nav.ErrSnapshotExists
		}
		st.snapshots[snap.ID] = snap
		st.snapshotByPeriod[snap.PeriodID] = snap.ID
		return nil
	})
}

// InsertInvestorBalances stores the frozen balances of a snapshot
func (s *Store) InsertInvestorBalances(ctx context.Context, balances []nav.InvestorBalance) error {
	rows := slices.Clone(balances)
	return s.write(ctx, func(st *state) error {
		for _, b := range rows {
			if _, ok := st.snapshots[b.SnapshotID]; !ok {
				return fmt.Errorf("snapshot %s: %w", b.SnapshotID, nav.ErrNotFound)
			}
			st.balances[b.SnapshotID] = append(st.balances[b.SnapshotID], b)
		}
		return nil
	})
}

// GetSnapshotByPeriod reads a period's snapshot with its investor balances
func (s *Store) GetSnapshotByPeriod(ctx context.Context, periodID uuid.UUID) (*nav.NavSnapshot, error) {
	st, unlock := s.read()
	defer unlock()

	id, ok := st.snapshotByPeriod[periodID]
	if !ok {
		return nil, fmt.Errorf("snapshot for period %s: %w", periodID, nav.ErrNotFound)
	}
	snap := st.snapshots[id]
	snap.InvestorBalances = slices.Clone(st.balances[id])
	slices.SortFunc(snap.InvestorBalances, func(a, b nav.InvestorBalance) int {
		return bytes.Compare(a.InvestorID[:], b.InvestorID[:])
	})
	return &snap, nil
}

// CountSnapshots reports how many snapshots exist for a period
func (s *Store) CountSnapshots(periodID uuid.UUID) int {
	st, unlock := s.read()
	defer unlock()

	n := 0
	for _, snap := range st.snapshots {
		if snap.PeriodID == periodID {
			n++
		}
	}
	return n
}

func copyPeriod(p nav.AccountingPeriod) nav.AccountingPeriod {
	if p.LockedAt != nil {
		t := *p.LockedAt
		p.LockedAt = &t
	}
	if p.ClosedBy != nil {
		id := *p.ClosedBy
		p.ClosedBy = &id
	}
	return p
}

func copyEntry(e nav.LedgerEntry) nav.LedgerEntry {
	if e.InvestorID != nil {
		id := *e.InvestorID
		e.InvestorID = &id
	}
	return e
}
