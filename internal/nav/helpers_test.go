package nav

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

// orderedIDs returns n IDs in ascending byte order
func orderedIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i][15] = byte(i + 1)
	}
	return ids
}

func entry(t EntryType, amount string, investor *uuid.UUID) *LedgerEntry {
	return &LedgerEntry{ID: uuid.New(), EntryType: t, Amount: dec(amount), InvestorID: investor}
}
