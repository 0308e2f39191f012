package nav

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Storage errors
var (
	ErrNotFound         = errors.New("not found")
	ErrSnapshotExists   = errors.New("snapshot already exists for period")
	ErrDuplicatePeriod  = errors.New("period already exists for club and month")
	ErrTxAlreadyStarted = errors.New("transaction already started")
	ErrNoTx             = errors.New("no transaction in context")
)

// State errors
var (
	ErrPeriodClosed        = errors.New("period is closed")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrChecklistFailed     = errors.New("close checklist failed")
	ErrPeriodExists        = errors.New("period already exists")
	ErrDeleteRequiresDraft = errors.New("entries can only be deleted in draft")
)

// ValidationError rejects malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// StateError rejects an operation the period's status does not allow
type StateError struct {
	PeriodID uuid.UUID
	Status   PeriodStatus
	Op       string
	Err      error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s period %s (status %s): %v", e.Op, e.PeriodID, e.Status, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// ReconciliationMismatchError blocks a close whose NAV does not tie out
type ReconciliationMismatchError struct {
	PeriodID uuid.UUID
	Mismatch decimal.Decimal
	Stamp    string
	Reasons  []string
}

func (e *ReconciliationMismatchError) Error() string {
	msg := fmt.Sprintf("period %s cannot close: %s", e.PeriodID, e.Stamp)
	if len(e.Reasons) > 0 {
		msg += " (" + strings.Join(e.Reasons, "; ") + ")"
	}
	return msg
}

// NotFoundError reports a missing or out-of-scope resource
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(resource string, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id.String()}
}

// IsValidation reports whether err is a *ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsState reports whether err is a *StateError
func IsState(err error) bool {
	var s *StateError
	return errors.As(err, &s)
}

// IsMismatch reports whether err is a *ReconciliationMismatchError
func IsMismatch(err error) bool {
	var m *ReconciliationMismatchError
	return errors.As(err, &m)
}

// IsNotFound reports whether err means the resource does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
