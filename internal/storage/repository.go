// Package storage provides the SQLite persistence layer.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"dividi/internal/core"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- groups ----

// CreateGroup inserts a group together with its initial participants in one
// transaction. IDs and timestamps are assigned here; the group's ordered
// participant list is filled in on the way out.
func (r *SQLiteRepository) CreateGroup(ctx context.Context, g *core.Group, participants []core.Participant) ([]core.Participant, error) {
	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, owner_id, total_spent_cents, created_at) VALUES (?, ?, ?, 0, ?)",
		g.ID, g.Name, g.OwnerID, g.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", err)
	}

	g.ParticipantIDs = g.ParticipantIDs[:0]
	for i := range participants {
		p := &participants[i]
		p.GroupID = g.ID
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = g.CreatedAt
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO participants (id, group_id, name, position, created_at) VALUES (?, ?, ?, ?, ?)",
			p.ID, p.GroupID, p.Name, i, p.CreatedAt.Unix(),
		)
		if err != nil {
			return nil, fmt.Errorf("insert participant: %w", err)
		}
		g.ParticipantIDs = append(g.ParticipantIDs, p.ID)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return participants, nil
}

// FindGroup returns the group with its ordered participant references, or
// nil when absent.
func (r *SQLiteRepository) FindGroup(ctx context.Context, id string) (*core.Group, error) {
	g := &core.Group{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, owner_id, total_spent_cents, created_at FROM groups WHERE id = ?", id,
	).Scan(&g.ID, &g.Name, &g.OwnerID, &g.TotalSpent.Cents, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select group: %w", err)
	}
	g.CreatedAt = time.Unix(createdAt, 0).UTC()

	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM participants WHERE group_id = ? ORDER BY position", id,
	)
	if err != nil {
		return nil, fmt.Errorf("select group participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, fmt.Errorf("scan participant id: %w", err)
		}
		g.ParticipantIDs = append(g.ParticipantIDs, pid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participant ids: %w", err)
	}
	return g, nil
}

// ListGroupsByOwner returns all groups owned by the given user.
func (r *SQLiteRepository) ListGroupsByOwner(ctx context.Context, ownerID string) ([]core.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM groups WHERE owner_id = ? ORDER BY created_at", ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	groups := make([]core.Group, 0, len(ids))
	for _, id := range ids {
		g, err := r.FindGroup(ctx, id)
		if err != nil {
			return nil, err
		}
		if g != nil {
			groups = append(groups, *g)
		}
	}
	return groups, nil
}

// RenameGroup updates the display name. Returns false when the group is absent.
func (r *SQLiteRepository) RenameGroup(ctx context.Context, id, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE groups SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return false, fmt.Errorf("rename group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteGroupCascade removes a group with all its expenses, splits and
// participants. The cascade is explicit rather than left to foreign keys so
// it does not depend on per-connection pragma state.
func (r *SQLiteRepository) DeleteGroupCascade(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"DELETE FROM splits WHERE expense_id IN (SELECT id FROM expenses WHERE group_id = ?)", id,
	)
	if err != nil {
		return false, fmt.Errorf("delete splits: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE group_id = ?", id); err != nil {
		return false, fmt.Errorf("delete expenses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM participants WHERE group_id = ?", id); err != nil {
		return false, fmt.Errorf("delete participants: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete group: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return n > 0, nil
}

// ---- participants ----

func (r *SQLiteRepository) ParticipantsByGroup(ctx context.Context, groupID string) ([]core.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, group_id, name, created_at FROM participants WHERE group_id = ? ORDER BY position", groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}
	defer rows.Close()

	var participants []core.Participant
	for rows.Next() {
		var p core.Participant
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.GroupID, &p.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0).UTC()
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return participants, nil
}

func (r *SQLiteRepository) FindParticipant(ctx context.Context, id string) (*core.Participant, error) {
	p := &core.Participant{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id, group_id, name, created_at FROM participants WHERE id = ?", id,
	).Scan(&p.ID, &p.GroupID, &p.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select participant: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return p, nil
}

// CreateParticipant appends a participant at the end of the group's list.
func (r *SQLiteRepository) CreateParticipant(ctx context.Context, p *core.Participant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO participants (id, group_id, name, position, created_at)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM participants WHERE group_id = ?), ?)`,
		p.ID, p.GroupID, p.Name, p.GroupID, p.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RenameParticipant(ctx context.Context, id, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE participants SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return false, fmt.Errorf("rename participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) DeleteParticipant(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM participants WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// CountExpensesByParticipant counts expenses referencing the participant as
// payer or split target. It backs the referential-integrity guard.
func (r *SQLiteRepository) CountExpensesByParticipant(ctx context.Context, id string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses e
		 WHERE e.payer_id = ?
		    OR EXISTS (SELECT 1 FROM splits s WHERE s.expense_id = e.id AND s.participant_id = ?)`,
		id, id,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count referencing expenses: %w", err)
	}
	return n, nil
}

// ---- expenses ----

// CreateExpense persists an expense with its splits and adds its amount to
// the group's running total, all inside one transaction: a failure anywhere
// leaves both the expense set and the total untouched.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e *core.Expense) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, amount_cents, description, expense_date, payer_id, split_type, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.GroupID, e.Amount.Cents, e.Description, e.Date.Format(dateLayout),
		e.PayerID, string(e.SplitType), e.Category, e.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	if err := insertSplits(ctx, tx, e.ID, e.Splits); err != nil {
		return err
	}

	if err := addToGroupTotal(ctx, tx, e.GroupID, e.Amount.Cents); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ReplaceExpense rewrites an expense and adjusts the group's running total
// by the amount difference. Rollback of the old amount and application of
// the new one happen in the same transaction, so a concurrent failure can
// never leave the total short. Returns false when the expense is absent.
func (r *SQLiteRepository) ReplaceExpense(ctx context.Context, e *core.Expense) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var oldCents int64
	err = tx.QueryRowContext(ctx,
		"SELECT amount_cents FROM expenses WHERE id = ? AND group_id = ?", e.ID, e.GroupID,
	).Scan(&oldCents)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select old amount: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE expenses
		 SET amount_cents = ?, description = ?, expense_date = ?, payer_id = ?, split_type = ?, category = ?
		 WHERE id = ?`,
		e.Amount.Cents, e.Description, e.Date.Format(dateLayout), e.PayerID,
		string(e.SplitType), e.Category, e.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update expense: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM splits WHERE expense_id = ?", e.ID); err != nil {
		return false, fmt.Errorf("delete old splits: %w", err)
	}
	if err := insertSplits(ctx, tx, e.ID, e.Splits); err != nil {
		return false, err
	}

	if err := addToGroupTotal(ctx, tx, e.GroupID, e.Amount.Cents-oldCents); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

// DeleteExpense removes an expense and reverses its contribution to the
// group's running total in one transaction. Returns false when absent.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var groupID string
	var cents int64
	err = tx.QueryRowContext(ctx,
		"SELECT group_id, amount_cents FROM expenses WHERE id = ?", id,
	).Scan(&groupID, &cents)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select expense: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM splits WHERE expense_id = ?", id); err != nil {
		return false, fmt.Errorf("delete splits: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id); err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}

	if err := addToGroupTotal(ctx, tx, groupID, -cents); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

func (r *SQLiteRepository) FindExpense(ctx context.Context, id string) (*core.Expense, error) {
	e := &core.Expense{}
	var dateStr, splitType string
	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, amount_cents, description, expense_date, payer_id, split_type, category, created_at
		 FROM expenses WHERE id = ?`, id,
	).Scan(&e.ID, &e.GroupID, &e.Amount.Cents, &e.Description, &dateStr, &e.PayerID, &splitType, &e.Category, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select expense: %w", err)
	}
	e.SplitType = core.SplitType(splitType)
	e.CreatedAt = time.Unix(createdAt, 0).UTC()
	if t, perr := time.Parse(dateLayout, dateStr); perr == nil {
		e.Date = core.Date{Time: t}
	}

	splits, err := r.splitsByExpense(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	e.Splits = splits
	return e, nil
}

// ExpensesByGroup lists a group's expenses, newest first, optionally
// narrowed by the filter.
func (r *SQLiteRepository) ExpensesByGroup(ctx context.Context, groupID string, f core.ExpenseFilter) ([]core.Expense, error) {
	query := `SELECT id, group_id, amount_cents, description, expense_date, payer_id, split_type, category, created_at
		 FROM expenses e WHERE group_id = ?`
	args := []any{groupID}

	if f.Search != "" {
		query += " AND description LIKE ? ESCAPE '\\'"
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}
	if f.ParticipantID != "" {
		query += ` AND (payer_id = ? OR EXISTS (
			SELECT 1 FROM splits s WHERE s.expense_id = e.id AND s.participant_id = ?))`
		args = append(args, f.ParticipantID, f.ParticipantID)
	}
	if !f.From.IsZero() {
		query += " AND expense_date >= ?"
		args = append(args, f.From.Format(dateLayout))
	}
	if !f.To.IsZero() {
		query += " AND expense_date <= ?"
		args = append(args, f.To.Format(dateLayout))
	}
	if f.MinCents > 0 {
		query += " AND amount_cents >= ?"
		args = append(args, f.MinCents)
	}
	if f.MaxCents > 0 {
		query += " AND amount_cents <= ?"
		args = append(args, f.MaxCents)
	}
	query += " ORDER BY expense_date DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var e core.Expense
		var dateStr, splitType string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Amount.Cents, &e.Description, &dateStr,
			&e.PayerID, &splitType, &e.Category, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.SplitType = core.SplitType(splitType)
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		if t, perr := time.Parse(dateLayout, dateStr); perr == nil {
			e.Date = core.Date{Time: t}
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}

	for i := range expenses {
		splits, err := r.splitsByExpense(ctx, expenses[i].ID)
		if err != nil {
			return nil, err
		}
		expenses[i].Splits = splits
	}
	return expenses, nil
}

// UpdateExpenseCategory sets the classifier's verdict on an existing
// expense. Returns false when the expense is gone, which the worker treats
// as a stale message rather than an error.
func (r *SQLiteRepository) UpdateExpenseCategory(ctx context.Context, id, category string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE expenses SET category = ? WHERE id = ?", category, id)
	if err != nil {
		return false, fmt.Errorf("update category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) splitsByExpense(ctx context.Context, expenseID string) ([]core.Split, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT participant_id, amount_cents, basis_points FROM splits WHERE expense_id = ? ORDER BY position",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("select splits: %w", err)
	}
	defer rows.Close()

	var splits []core.Split
	for rows.Next() {
		var s core.Split
		if err := rows.Scan(&s.ParticipantID, &s.Amount.Cents, &s.BasisPoints); err != nil {
			return nil, fmt.Errorf("scan split: %w", err)
		}
		splits = append(splits, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate splits: %w", err)
	}
	return splits, nil
}

func insertSplits(ctx context.Context, tx *sql.Tx, expenseID string, splits []core.Split) error {
	for i, s := range splits {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO splits (expense_id, participant_id, amount_cents, basis_points, position) VALUES (?, ?, ?, ?, ?)",
			expenseID, s.ParticipantID, s.Amount.Cents, s.BasisPoints, i,
		)
		if err != nil {
			return fmt.Errorf("insert split: %w", err)
		}
	}
	return nil
}

func addToGroupTotal(ctx context.Context, tx *sql.Tx, groupID string, deltaCents int64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE groups SET total_spent_cents = total_spent_cents + ? WHERE id = ?",
		deltaCents, groupID,
	)
	if err != nil {
		return fmt.Errorf("update group total: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s vanished while adjusting total", groupID)
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
