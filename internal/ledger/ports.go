// Package ledger orchestrates group, participant and expense mutations on
// top of the storage ports, enforcing the domain rules the stores do not
// know about.
package ledger

import (
	"context"

	"dividi/internal/core"
)

// GroupStore persists groups.
type GroupStore interface {
	CreateGroup(ctx context.Context, g *core.Group, participants []core.Participant) ([]core.Participant, error)
	FindGroup(ctx context.Context, id string) (*core.Group, error)
	ListGroupsByOwner(ctx context.Context, ownerID string) ([]core.Group, error)
	RenameGroup(ctx context.Context, id, name string) (bool, error)
	DeleteGroupCascade(ctx context.Context, id string) (bool, error)
}

// ParticipantStore persists participants.
type ParticipantStore interface {
	ParticipantsByGroup(ctx context.Context, groupID string) ([]core.Participant, error)
	FindParticipant(ctx context.Context, id string) (*core.Participant, error)
	CreateParticipant(ctx context.Context, p *core.Participant) error
	RenameParticipant(ctx context.Context, id, name string) (bool, error)
	DeleteParticipant(ctx context.Context, id string) (bool, error)
	CountExpensesByParticipant(ctx context.Context, id string) (int64, error)
}

// ExpenseStore persists expenses together with their splits. The write
// methods adjust the owning group's running total in the same transaction.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e *core.Expense) error
	ReplaceExpense(ctx context.Context, e *core.Expense) (bool, error)
	DeleteExpense(ctx context.Context, id string) (bool, error)
	FindExpense(ctx context.Context, id string) (*core.Expense, error)
	ExpensesByGroup(ctx context.Context, groupID string, f core.ExpenseFilter) ([]core.Expense, error)
	UpdateExpenseCategory(ctx context.Context, id, category string) (bool, error)
}

// Store bundles the three ports; the SQLite repository satisfies all of
// them with one handle.
type Store interface {
	GroupStore
	ParticipantStore
	ExpenseStore
}

// ExpenseNotifier announces a freshly created or updated expense so the
// categorize worker can pick it up. Implementations must not block the
// mutation path for long; failures are logged and swallowed.
type ExpenseNotifier interface {
	ExpenseCreated(ctx context.Context, expenseID, description string) error
}
