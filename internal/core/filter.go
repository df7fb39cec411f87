package core

import "time"

// ExpenseFilter narrows an expense listing. Zero values leave the
// corresponding dimension unbounded.
type ExpenseFilter struct {
	Search        string // case-insensitive substring of the description
	ParticipantID string // payer or split target
	From          time.Time
	To            time.Time
	MinCents      int64
	MaxCents      int64
}

// IsZero reports whether the filter restricts anything.
func (f ExpenseFilter) IsZero() bool {
	return f.Search == "" && f.ParticipantID == "" &&
		f.From.IsZero() && f.To.IsZero() &&
		f.MinCents == 0 && f.MaxCents == 0
}
