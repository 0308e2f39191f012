package nav

// Transition is a named move in the period lifecycle
type Transition string

const (
	TransitionSubmitForReview Transition = "submit_for_review"
	TransitionClose           Transition = "close"
	TransitionReturnToDraft   Transition = "return_to_draft"
)

var transitions = map[Transition]struct {
	from PeriodStatus
	to   PeriodStatus
}{
	TransitionSubmitForReview: {from: StatusDraft, to: StatusReview},
	TransitionClose:           {from: StatusReview, to: StatusClosed},
	TransitionReturnToDraft:   {from: StatusReview, to: StatusDraft},
}

// NextStatus returns the status reached by applying t to current.
// Closed is terminal.
func NextStatus(current PeriodStatus, t Transition) (PeriodStatus, error) {
	if current == StatusClosed {
		return current, ErrPeriodClosed
	}
	edge, ok := transitions[t]
	if !ok || edge.from != current {
		return current, ErrIllegalTransition
	}
	return edge.to, nil
}

// CanMutateLedger reports whether entries may be posted or edited in status s
func CanMutateLedger(s PeriodStatus) bool {
	return s == StatusDraft || s == StatusReview
}

// CanDeleteEntries reports whether entries may be removed in status s
func CanDeleteEntries(s PeriodStatus) bool {
	return s == StatusDraft
}
