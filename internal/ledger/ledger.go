package ledger

import (
	"context"
	"strings"
	"sync"

	"dividi/internal/cache"
	"dividi/internal/core"
	"dividi/internal/log"
)

// ExpenseInput carries the caller-supplied fields of an expense mutation.
// The splits are computed here, never accepted from the caller directly.
type ExpenseInput struct {
	GroupID     string
	Description string
	Amount      core.Money
	Date        core.Date
	PayerID     string
	Split       core.SplitSpec
}

// GroupLedger is the single entry point for everything that reads or
// mutates a group's ledger. Mutations on one group are serialized with a
// per-group mutex so the running total and the expense set always move
// together; different groups proceed concurrently.
type GroupLedger struct {
	store    Store
	notifier ExpenseNotifier // optional
	balances cache.Cache[[]core.Balance]
	logger   *log.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a GroupLedger. notifier and balanceCache may be nil; without
// them expense creation skips the categorize announcement and balance reads
// always hit storage.
func New(store Store, notifier ExpenseNotifier, balanceCache cache.Cache[[]core.Balance], logger *log.Logger) *GroupLedger {
	return &GroupLedger{
		store:    store,
		notifier: notifier,
		balances: balanceCache,
		logger:   logger.WithComponent(log.ComponentLedger),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (l *GroupLedger) lockGroup(groupID string) func() {
	l.mu.Lock()
	m, ok := l.locks[groupID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[groupID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (l *GroupLedger) invalidateBalances(groupID string) {
	if l.balances != nil {
		l.balances.Delete(groupID)
	}
}

// ---- groups ----

// CreateGroup creates a group seeded with its initial participants.
func (l *GroupLedger) CreateGroup(ctx context.Context, name, ownerID string, participantNames []string) (*core.Group, []core.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, core.ErrEmptyName
	}
	if len(participantNames) == 0 {
		return nil, nil, core.ErrEmptyParticipants
	}
	if len(participantNames) > core.MaxParticipants {
		return nil, nil, core.ErrTooManyParticipants
	}

	seen := make(map[string]struct{}, len(participantNames))
	participants := make([]core.Participant, 0, len(participantNames))
	for _, pn := range participantNames {
		pn = strings.TrimSpace(pn)
		if pn == "" {
			return nil, nil, core.ErrEmptyName
		}
		key := strings.ToLower(pn)
		if _, dup := seen[key]; dup {
			return nil, nil, core.ErrDuplicateParticipant
		}
		seen[key] = struct{}{}
		participants = append(participants, core.Participant{Name: pn})
	}

	g := &core.Group{Name: name, OwnerID: ownerID}
	created, err := l.store.CreateGroup(ctx, g, participants)
	if err != nil {
		return nil, nil, err
	}
	l.logger.InfoContext(ctx, "group created",
		log.FieldOperation, log.OpCreate, log.FieldGroupID, g.ID)
	return g, created, nil
}

// Group returns a group with its ordered participant list.
func (l *GroupLedger) Group(ctx context.Context, id string) (*core.Group, []core.Participant, error) {
	g, err := l.store.FindGroup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if g == nil {
		return nil, nil, core.NewNotFound("group", id)
	}
	participants, err := l.store.ParticipantsByGroup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return g, participants, nil
}

// Groups lists the groups owned by ownerID.
func (l *GroupLedger) Groups(ctx context.Context, ownerID string) ([]core.Group, error) {
	return l.store.ListGroupsByOwner(ctx, ownerID)
}

// RenameGroup changes a group's display name.
func (l *GroupLedger) RenameGroup(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}
	ok, err := l.store.RenameGroup(ctx, id, name)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewNotFound("group", id)
	}
	return nil
}

// DeleteGroup removes a group and everything hanging off it.
func (l *GroupLedger) DeleteGroup(ctx context.Context, id string) error {
	unlock := l.lockGroup(id)
	defer unlock()

	ok, err := l.store.DeleteGroupCascade(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewNotFound("group", id)
	}
	l.invalidateBalances(id)
	l.logger.InfoContext(ctx, "group deleted",
		log.FieldOperation, log.OpDelete, log.FieldGroupID, id)
	return nil
}

// ---- participants ----

// AddParticipant appends a participant to a group, enforcing the size cap
// and the case-insensitive unique-name rule.
func (l *GroupLedger) AddParticipant(ctx context.Context, groupID, name string) (*core.Participant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, core.ErrEmptyName
	}

	unlock := l.lockGroup(groupID)
	defer unlock()

	g, err := l.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, core.NewNotFound("group", groupID)
	}
	if len(g.ParticipantIDs) >= core.MaxParticipants {
		return nil, core.ErrTooManyParticipants
	}

	existing, err := l.store.ParticipantsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, p := range existing {
		if strings.EqualFold(p.Name, name) {
			return nil, core.ErrDuplicateParticipant
		}
	}

	p := &core.Participant{GroupID: groupID, Name: name}
	if err := l.store.CreateParticipant(ctx, p); err != nil {
		return nil, err
	}
	l.invalidateBalances(groupID)
	return p, nil
}

// RenameParticipant changes a participant's display name, keeping names
// unique within the group.
func (l *GroupLedger) RenameParticipant(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyName
	}

	p, err := l.store.FindParticipant(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return core.NewNotFound("participant", id)
	}

	siblings, err := l.store.ParticipantsByGroup(ctx, p.GroupID)
	if err != nil {
		return err
	}
	for _, s := range siblings {
		if s.ID != id && strings.EqualFold(s.Name, name) {
			return core.ErrDuplicateParticipant
		}
	}

	ok, err := l.store.RenameParticipant(ctx, id, name)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewNotFound("participant", id)
	}
	l.invalidateBalances(p.GroupID)
	return nil
}

// RemoveParticipant deletes a participant unless any expense still
// references them as payer or split target.
func (l *GroupLedger) RemoveParticipant(ctx context.Context, id string) error {
	p, err := l.store.FindParticipant(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return core.NewNotFound("participant", id)
	}

	unlock := l.lockGroup(p.GroupID)
	defer unlock()

	refs, err := l.store.CountExpensesByParticipant(ctx, id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return &core.ReferentialIntegrityError{ParticipantID: id, References: refs}
	}

	ok, err := l.store.DeleteParticipant(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewNotFound("participant", id)
	}
	l.invalidateBalances(p.GroupID)
	return nil
}

// ---- expenses ----

// CreateExpense validates the input against the group, computes the splits
// and persists the expense. The group's running total moves in the same
// storage transaction. Categorization is announced after the commit and is
// best-effort.
func (l *GroupLedger) CreateExpense(ctx context.Context, in ExpenseInput) (*core.Expense, error) {
	unlock := l.lockGroup(in.GroupID)
	defer unlock()

	g, err := l.store.FindGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, core.NewNotFound("group", in.GroupID)
	}

	e, err := l.buildExpense(g, in)
	if err != nil {
		return nil, err
	}

	if err := l.store.CreateExpense(ctx, e); err != nil {
		return nil, err
	}
	l.invalidateBalances(in.GroupID)
	l.logger.InfoContext(ctx, "expense created",
		log.FieldOperation, log.OpCreate,
		log.FieldGroupID, in.GroupID,
		log.FieldExpenseID, e.ID,
		log.FieldAmountCents, e.Amount.Cents,
		log.FieldSplitType, string(e.SplitType))

	l.announce(ctx, e)
	return e, nil
}

// UpdateExpense replaces an expense wholesale. The stored running total is
// rolled back by the old amount and re-applied with the new one inside a
// single transaction, so a failure changes nothing.
func (l *GroupLedger) UpdateExpense(ctx context.Context, id string, in ExpenseInput) (*core.Expense, error) {
	unlock := l.lockGroup(in.GroupID)
	defer unlock()

	existing, err := l.store.FindExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil || existing.GroupID != in.GroupID {
		return nil, core.NewNotFound("expense", id)
	}

	g, err := l.store.FindGroup(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, core.NewNotFound("group", in.GroupID)
	}

	e, err := l.buildExpense(g, in)
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.Category = existing.Category
	e.CreatedAt = existing.CreatedAt

	ok, err := l.store.ReplaceExpense(ctx, e)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.NewNotFound("expense", id)
	}
	l.invalidateBalances(in.GroupID)
	l.logger.InfoContext(ctx, "expense updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldGroupID, in.GroupID,
		log.FieldExpenseID, id,
		log.FieldAmountCents, e.Amount.Cents)

	if existing.Description != e.Description {
		l.announce(ctx, e)
	}
	return e, nil
}

// DeleteExpense removes an expense and reverses its contribution to the
// group's running total.
func (l *GroupLedger) DeleteExpense(ctx context.Context, id string) error {
	e, err := l.store.FindExpense(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return core.NewNotFound("expense", id)
	}

	unlock := l.lockGroup(e.GroupID)
	defer unlock()

	ok, err := l.store.DeleteExpense(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return core.NewNotFound("expense", id)
	}
	l.invalidateBalances(e.GroupID)
	l.logger.InfoContext(ctx, "expense deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldGroupID, e.GroupID,
		log.FieldExpenseID, id)
	return nil
}

// Expense returns one expense with its splits.
func (l *GroupLedger) Expense(ctx context.Context, id string) (*core.Expense, error) {
	e, err := l.store.FindExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, core.NewNotFound("expense", id)
	}
	return e, nil
}

// Expenses lists a group's expenses, newest first, narrowed by the filter.
func (l *GroupLedger) Expenses(ctx context.Context, groupID string, f core.ExpenseFilter) ([]core.Expense, error) {
	g, err := l.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, core.NewNotFound("group", groupID)
	}
	return l.store.ExpensesByGroup(ctx, groupID, f)
}

// SetExpenseCategory records a classification verdict. A missing expense is
// not an error here: the categorize worker may race a delete.
func (l *GroupLedger) SetExpenseCategory(ctx context.Context, id, category string) error {
	ok, err := l.store.UpdateExpenseCategory(ctx, id, category)
	if err != nil {
		return err
	}
	if !ok {
		l.logger.WarnContext(ctx, "categorized expense no longer exists",
			log.FieldExpenseID, id, log.FieldCategory, category)
	}
	return nil
}

// ---- read models ----

// Balances returns each participant's net position in participant order.
func (l *GroupLedger) Balances(ctx context.Context, groupID string) ([]core.Balance, error) {
	if l.balances != nil {
		if cached, ok := l.balances.Get(groupID); ok {
			return cached, nil
		}
	}

	g, err := l.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, core.NewNotFound("group", groupID)
	}

	participants, err := l.store.ParticipantsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := l.store.ExpensesByGroup(ctx, groupID, core.ExpenseFilter{})
	if err != nil {
		return nil, err
	}

	balances := core.AggregateBalances(participants, expenses)
	if sum := core.BalancesSum(balances); sum != 0 {
		return nil, &core.ComputationError{Detail: "balances do not sum to zero"}
	}
	if l.balances != nil {
		l.balances.Set(groupID, balances)
	}
	return balances, nil
}

// Settlements returns the transfer plan that clears a group's balances.
func (l *GroupLedger) Settlements(ctx context.Context, groupID string) ([]core.Settlement, error) {
	balances, err := l.Balances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return core.PlanSettlements(balances), nil
}

// Summary bundles the running total and the net balances for a dashboard.
func (l *GroupLedger) Summary(ctx context.Context, groupID string) (*core.GroupSummary, error) {
	g, err := l.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, core.NewNotFound("group", groupID)
	}
	balances, err := l.Balances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &core.GroupSummary{
		GroupID:    g.ID,
		GroupName:  g.Name,
		TotalSpent: g.TotalSpent,
		Balances:   balances,
	}, nil
}

// ---- helpers ----

// buildExpense turns an input into a validated expense for the given group.
// Membership is checked before the split math so a foreign participant id
// fails with a clear error instead of a sum mismatch.
func (l *GroupLedger) buildExpense(g *core.Group, in ExpenseInput) (*core.Expense, error) {
	if in.Split == nil {
		return nil, core.ErrUnknownSplitType
	}

	members := make(map[string]struct{}, len(g.ParticipantIDs))
	for _, id := range g.ParticipantIDs {
		members[id] = struct{}{}
	}
	if _, ok := members[in.PayerID]; !ok {
		return nil, core.ErrForeignParticipant
	}
	for _, id := range splitParticipants(in.Split) {
		if _, ok := members[id]; !ok {
			return nil, core.ErrForeignParticipant
		}
	}

	splits, err := core.ComputeSplits(in.Amount, in.Split, g.ParticipantIDs)
	if err != nil {
		return nil, err
	}

	e := &core.Expense{
		GroupID:     g.ID,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
		PayerID:     in.PayerID,
		SplitType:   in.Split.Type(),
		Category:    "Other",
		Splits:      splits,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func splitParticipants(spec core.SplitSpec) []string {
	switch s := spec.(type) {
	case core.CustomSplit:
		ids := make([]string, 0, len(s.Shares))
		for _, sh := range s.Shares {
			ids = append(ids, sh.ParticipantID)
		}
		return ids
	case core.PercentSplit:
		ids := make([]string, 0, len(s.Portions))
		for _, p := range s.Portions {
			ids = append(ids, p.ParticipantID)
		}
		return ids
	default:
		return nil
	}
}

func (l *GroupLedger) announce(ctx context.Context, e *core.Expense) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.ExpenseCreated(ctx, e.ID, e.Description); err != nil {
		l.logger.WarnContext(ctx, "categorize announcement failed",
			log.FieldExpenseID, e.ID, log.FieldError, err)
	}
}
