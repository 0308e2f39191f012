package nav

// BuildChecklist evaluates the close gates for a period against its current allocation
func BuildChecklist(period *AccountingPeriod, entryCount int, alloc *Allocation, recon ReconciliationResult) CloseChecklist {
	c := CloseChecklist{
		PeriodID:           period.ID,
		HasPositions:       len(alloc.Positions) > 0,
		HasLedgerEntries:   entryCount > 0,
		SubmittedForReview: period.Status == StatusReview,
		Reconciled:         recon.Reconciled,
		NotAlreadyClosed:   period.Status != StatusClosed,
		Stamp:              recon.Stamp,
		Mismatch:           recon.Mismatch,
		Reasons:            recon.Reasons,
	}
	c.CanClose = c.HasPositions && c.HasLedgerEntries && c.SubmittedForReview && c.Reconciled && c.NotAlreadyClosed
	return c
}
