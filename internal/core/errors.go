package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for field-level validation failures. They all unwrap to
// ErrValidation so callers can classify them with a single errors.Is check.
var (
	ErrValidation = errors.New("validation error")

	ErrInvalidAmount        = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidPercent       = fmt.Errorf("%w: invalid percentage", ErrValidation)
	ErrEmptyParticipants    = fmt.Errorf("%w: no participants", ErrValidation)
	ErrSplitTotalMismatch   = fmt.Errorf("%w: split total mismatch", ErrValidation)
	ErrPercentTotalMismatch = fmt.Errorf("%w: percentage total mismatch", ErrValidation)
	ErrEmptyDescription     = fmt.Errorf("%w: empty description", ErrValidation)
	ErrEmptyName            = fmt.Errorf("%w: empty name", ErrValidation)
	ErrDuplicateParticipant = fmt.Errorf("%w: participant already exists", ErrValidation)
	ErrTooManyParticipants  = fmt.Errorf("%w: max %d participants allowed", ErrValidation, MaxParticipants)
	ErrForeignParticipant   = fmt.Errorf("%w: participant does not belong to group", ErrValidation)
	ErrUnknownSplitType     = fmt.Errorf("%w: unknown split type", ErrValidation)
)

// NotFoundError reports an absent group, participant or expense.
type NotFoundError struct {
	Entity string // "group", "participant", "expense"
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// NewNotFound builds a NotFoundError for the given entity and id.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// ReferentialIntegrityError blocks removal of a participant that is still
// referenced as payer or split target by existing expenses.
type ReferentialIntegrityError struct {
	ParticipantID string
	References    int64
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("participant %s is linked to %d existing expenses", e.ParticipantID, e.References)
}

// ComputationError signals an invariant violation inside aggregation or
// settlement planning on already-validated input. It indicates a defect,
// not a user mistake, and should never be recovered into a retry.
type ComputationError struct {
	Detail string
}

func (e *ComputationError) Error() string {
	return "computation error: " + e.Detail
}
