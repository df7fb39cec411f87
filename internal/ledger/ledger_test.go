package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"dividi/internal/core"
	"dividi/internal/log"
)

// fakeStore is an in-memory Store for exercising the orchestration rules
// without SQLite.
type fakeStore struct {
	groups       map[string]*core.Group
	participants map[string]*core.Participant
	expenses     map[string]*core.Expense
	order        []string // expense insertion order
	nextID       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		groups:       make(map[string]*core.Group),
		participants: make(map[string]*core.Participant),
		expenses:     make(map[string]*core.Expense),
	}
}

func (s *fakeStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *fakeStore) CreateGroup(ctx context.Context, g *core.Group, participants []core.Participant) ([]core.Participant, error) {
	g.ID = s.id("g")
	g.CreatedAt = time.Now()
	for i := range participants {
		p := &participants[i]
		p.ID = s.id("p")
		p.GroupID = g.ID
		g.ParticipantIDs = append(g.ParticipantIDs, p.ID)
		cp := *p
		s.participants[p.ID] = &cp
	}
	cg := *g
	s.groups[g.ID] = &cg
	return participants, nil
}

func (s *fakeStore) FindGroup(ctx context.Context, id string) (*core.Group, error) {
	g, ok := s.groups[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	cp.ParticipantIDs = append([]string(nil), g.ParticipantIDs...)
	return &cp, nil
}

func (s *fakeStore) ListGroupsByOwner(ctx context.Context, ownerID string) ([]core.Group, error) {
	var out []core.Group
	for _, g := range s.groups {
		if g.OwnerID == ownerID {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (s *fakeStore) RenameGroup(ctx context.Context, id, name string) (bool, error) {
	g, ok := s.groups[id]
	if !ok {
		return false, nil
	}
	g.Name = name
	return true, nil
}

func (s *fakeStore) DeleteGroupCascade(ctx context.Context, id string) (bool, error) {
	if _, ok := s.groups[id]; !ok {
		return false, nil
	}
	for eid, e := range s.expenses {
		if e.GroupID == id {
			delete(s.expenses, eid)
		}
	}
	for pid, p := range s.participants {
		if p.GroupID == id {
			delete(s.participants, pid)
		}
	}
	delete(s.groups, id)
	return true, nil
}

func (s *fakeStore) ParticipantsByGroup(ctx context.Context, groupID string) ([]core.Participant, error) {
	g, ok := s.groups[groupID]
	if !ok {
		return nil, nil
	}
	var out []core.Participant
	for _, pid := range g.ParticipantIDs {
		if p, ok := s.participants[pid]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeStore) FindParticipant(ctx context.Context, id string) (*core.Participant, error) {
	p, ok := s.participants[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) CreateParticipant(ctx context.Context, p *core.Participant) error {
	p.ID = s.id("p")
	cp := *p
	s.participants[p.ID] = &cp
	g := s.groups[p.GroupID]
	g.ParticipantIDs = append(g.ParticipantIDs, p.ID)
	return nil
}

func (s *fakeStore) RenameParticipant(ctx context.Context, id, name string) (bool, error) {
	p, ok := s.participants[id]
	if !ok {
		return false, nil
	}
	p.Name = name
	return true, nil
}

func (s *fakeStore) DeleteParticipant(ctx context.Context, id string) (bool, error) {
	p, ok := s.participants[id]
	if !ok {
		return false, nil
	}
	g := s.groups[p.GroupID]
	for i, pid := range g.ParticipantIDs {
		if pid == id {
			g.ParticipantIDs = append(g.ParticipantIDs[:i], g.ParticipantIDs[i+1:]...)
			break
		}
	}
	delete(s.participants, id)
	return true, nil
}

func (s *fakeStore) CountExpensesByParticipant(ctx context.Context, id string) (int64, error) {
	var n int64
	for _, e := range s.expenses {
		if e.PayerID == id {
			n++
			continue
		}
		for _, sp := range e.Splits {
			if sp.ParticipantID == id {
				n++
				break
			}
		}
	}
	return n, nil
}

func (s *fakeStore) CreateExpense(ctx context.Context, e *core.Expense) error {
	e.ID = s.id("e")
	e.CreatedAt = time.Now()
	cp := *e
	s.expenses[e.ID] = &cp
	s.order = append(s.order, e.ID)
	s.groups[e.GroupID].TotalSpent.Cents += e.Amount.Cents
	return nil
}

func (s *fakeStore) ReplaceExpense(ctx context.Context, e *core.Expense) (bool, error) {
	old, ok := s.expenses[e.ID]
	if !ok {
		return false, nil
	}
	s.groups[e.GroupID].TotalSpent.Cents += e.Amount.Cents - old.Amount.Cents
	cp := *e
	s.expenses[e.ID] = &cp
	return true, nil
}

func (s *fakeStore) DeleteExpense(ctx context.Context, id string) (bool, error) {
	e, ok := s.expenses[id]
	if !ok {
		return false, nil
	}
	s.groups[e.GroupID].TotalSpent.Cents -= e.Amount.Cents
	delete(s.expenses, id)
	return true, nil
}

func (s *fakeStore) FindExpense(ctx context.Context, id string) (*core.Expense, error) {
	e, ok := s.expenses[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *fakeStore) ExpensesByGroup(ctx context.Context, groupID string, f core.ExpenseFilter) ([]core.Expense, error) {
	var out []core.Expense
	for _, id := range s.order {
		e, ok := s.expenses[id]
		if ok && e.GroupID == groupID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *fakeStore) UpdateExpenseCategory(ctx context.Context, id, category string) (bool, error) {
	e, ok := s.expenses[id]
	if !ok {
		return false, nil
	}
	e.Category = category
	return true, nil
}

type recordingNotifier struct {
	announced []string
	fail      bool
}

func (n *recordingNotifier) ExpenseCreated(ctx context.Context, expenseID, description string) error {
	if n.fail {
		return errors.New("broker down")
	}
	n.announced = append(n.announced, expenseID)
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Component: "test"})
}

func newTestLedger(t *testing.T) (*GroupLedger, *fakeStore, *recordingNotifier) {
	t.Helper()
	store := newFakeStore()
	notifier := &recordingNotifier{}
	return New(store, notifier, nil, testLogger()), store, notifier
}

func seedLedgerGroup(t *testing.T, l *GroupLedger) (*core.Group, []core.Participant) {
	t.Helper()
	g, ps, err := l.CreateGroup(context.Background(), "Vacanza", "owner-1", []string{"Anna", "Bruno", "Carla"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	return g, ps
}

func TestCreateGroupValidation(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name         string
		groupName    string
		participants []string
		wantErr      error
	}{
		{"empty name", "  ", []string{"Anna"}, core.ErrEmptyName},
		{"no participants", "Casa", nil, core.ErrEmptyParticipants},
		{"too many", "Casa", []string{"A", "B", "C", "D"}, core.ErrTooManyParticipants},
		{"duplicate case-insensitive", "Casa", []string{"Anna", "anna"}, core.ErrDuplicateParticipant},
		{"blank participant", "Casa", []string{"Anna", " "}, core.ErrEmptyName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := l.CreateGroup(ctx, tt.groupName, "o", tt.participants)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if !errors.Is(err, core.ErrValidation) {
				t.Errorf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestAddParticipantRules(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	g, _, err := l.CreateGroup(ctx, "Casa", "o", []string{"Anna", "Bruno"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	if _, err := l.AddParticipant(ctx, g.ID, "BRUNO"); !errors.Is(err, core.ErrDuplicateParticipant) {
		t.Errorf("expected duplicate error, got %v", err)
	}

	if _, err := l.AddParticipant(ctx, g.ID, "Carla"); err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	if _, err := l.AddParticipant(ctx, g.ID, "Dario"); !errors.Is(err, core.ErrTooManyParticipants) {
		t.Errorf("expected cap error, got %v", err)
	}

	var nf *core.NotFoundError
	if _, err := l.AddParticipant(ctx, "missing", "Elena"); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestRemoveParticipantReferentialIntegrity(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	g, ps := seedLedgerGroup(t, l)

	_, err := l.CreateExpense(ctx, ExpenseInput{
		GroupID:     g.ID,
		Description: "cena",
		Amount:      core.Money{Cents: 3000},
		Date:        core.NewDate(2026, 8, 1),
		PayerID:     ps[0].ID,
		Split:       core.EqualSplit{},
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	var ri *core.ReferentialIntegrityError
	err = l.RemoveParticipant(ctx, ps[1].ID)
	if !errors.As(err, &ri) {
		t.Fatalf("expected ReferentialIntegrityError, got %v", err)
	}
	if ri.References != 1 {
		t.Errorf("expected 1 reference, got %d", ri.References)
	}

	// After the expense is gone the removal goes through.
	expenses, err := l.Expenses(ctx, g.ID, core.ExpenseFilter{})
	if err != nil {
		t.Fatalf("Expenses: %v", err)
	}
	if err := l.DeleteExpense(ctx, expenses[0].ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	if err := l.RemoveParticipant(ctx, ps[1].ID); err != nil {
		t.Errorf("expected removal to succeed, got %v", err)
	}
}

func TestCreateExpenseForeignParticipant(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	g, ps := seedLedgerGroup(t, l)

	t.Run("foreign payer", func(t *testing.T) {
		_, err := l.CreateExpense(ctx, ExpenseInput{
			GroupID:     g.ID,
			Description: "cena",
			Amount:      core.Money{Cents: 1000},
			Date:        core.NewDate(2026, 8, 1),
			PayerID:     "stranger",
			Split:       core.EqualSplit{},
		})
		if !errors.Is(err, core.ErrForeignParticipant) {
			t.Errorf("expected foreign participant error, got %v", err)
		}
	})

	t.Run("foreign split target", func(t *testing.T) {
		_, err := l.CreateExpense(ctx, ExpenseInput{
			GroupID:     g.ID,
			Description: "cena",
			Amount:      core.Money{Cents: 1000},
			Date:        core.NewDate(2026, 8, 1),
			PayerID:     ps[0].ID,
			Split: core.CustomSplit{Shares: []core.Share{
				{ParticipantID: ps[0].ID, Amount: core.Money{Cents: 500}},
				{ParticipantID: "stranger", Amount: core.Money{Cents: 500}},
			}},
		})
		if !errors.Is(err, core.ErrForeignParticipant) {
			t.Errorf("expected foreign participant error, got %v", err)
		}
	})
}

func TestCreateExpenseRunningTotalAndAnnounce(t *testing.T) {
	l, store, notifier := newTestLedger(t)
	ctx := context.Background()
	g, ps := seedLedgerGroup(t, l)

	e, err := l.CreateExpense(ctx, ExpenseInput{
		GroupID:     g.ID,
		Description: "spesa settimanale",
		Amount:      core.Money{Cents: 10000},
		Date:        core.NewDate(2026, 8, 2),
		PayerID:     ps[0].ID,
		Split:       core.EqualSplit{},
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	if e.Category != "Other" {
		t.Errorf("expected default category Other, got %q", e.Category)
	}
	if len(e.Splits) != 3 {
		t.Fatalf("expected 3 splits, got %d", len(e.Splits))
	}
	if got := e.Splits[0].Amount.Cents + e.Splits[1].Amount.Cents + e.Splits[2].Amount.Cents; got != 10000 {
		t.Errorf("splits do not cover the amount: %d", got)
	}

	if store.groups[g.ID].TotalSpent.Cents != 10000 {
		t.Errorf("expected running total 10000, got %d", store.groups[g.ID].TotalSpent.Cents)
	}
	if len(notifier.announced) != 1 || notifier.announced[0] != e.ID {
		t.Errorf("expected one announcement for %s, got %v", e.ID, notifier.announced)
	}
}

func TestCreateExpenseSurvivesNotifierFailure(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{fail: true}
	l := New(store, notifier, nil, testLogger())
	ctx := context.Background()
	g, ps, err := l.CreateGroup(ctx, "Casa", "o", []string{"Anna", "Bruno"})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}

	e, err := l.CreateExpense(ctx, ExpenseInput{
		GroupID:     g.ID,
		Description: "bolletta",
		Amount:      core.Money{Cents: 4500},
		Date:        core.NewDate(2026, 8, 3),
		PayerID:     ps[0].ID,
		Split:       core.EqualSplit{},
	})
	if err != nil {
		t.Fatalf("expected creation to survive a notifier failure, got %v", err)
	}
	if _, err := l.Expense(ctx, e.ID); err != nil {
		t.Errorf("expense not persisted: %v", err)
	}
}

func TestUpdateExpenseAdjustsTotal(t *testing.T) {
	l, store, _ := newTestLedger(t)
	ctx := context.Background()
	g, ps := seedLedgerGroup(t, l)

	e, err := l.CreateExpense(ctx, ExpenseInput{
		GroupID:     g.ID,
		Description: "treno",
		Amount:      core.Money{Cents: 6000},
		Date:        core.NewDate(2026, 8, 4),
		PayerID:     ps[0].ID,
		Split:       core.EqualSplit{},
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	updated, err := l.UpdateExpense(ctx, e.ID, ExpenseInput{
		GroupID:     g.ID,
		Description: "treno",
		Amount:      core.Money{Cents: 7500},
		Date:        core.NewDate(2026, 8, 4),
		PayerID:     ps[1].ID,
		Split: core.PercentSplit{Portions: []core.Portion{
			{ParticipantID: ps[0].ID, BasisPoints: 5000},
			{ParticipantID: ps[1].ID, BasisPoints: 5000},
		}},
	})
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}
	if updated.SplitType != core.SplitPercentage {
		t.Errorf("expected percentage split type, got %s", updated.SplitType)
	}
	if store.groups[g.ID].TotalSpent.Cents != 7500 {
		t.Errorf("expected running total 7500, got %d", store.groups[g.ID].TotalSpent.Cents)
	}

	var nf *core.NotFoundError
	_, err = l.UpdateExpense(ctx, "missing", ExpenseInput{
		GroupID:     g.ID,
		Description: "x",
		Amount:      core.Money{Cents: 100},
		Date:        core.NewDate(2026, 8, 4),
		PayerID:     ps[0].ID,
		Split:       core.EqualSplit{},
	})
	if !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestBalancesAndSettlements(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	g, ps := seedLedgerGroup(t, l)

	// Anna pays 9000 split three ways.
	_, err := l.CreateExpense(ctx, ExpenseInput{
		GroupID:     g.ID,
		Description: "albergo",
		Amount:      core.Money{Cents: 9000},
		Date:        core.NewDate(2026, 8, 5),
		PayerID:     ps[0].ID,
		Split:       core.EqualSplit{},
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	balances, err := l.Balances(ctx, g.ID)
	if err != nil {
		t.Fatalf("Balances: %v", err)
	}
	if len(balances) != 3 {
		t.Fatalf("expected 3 balances, got %d", len(balances))
	}
	if balances[0].Net.Cents != 6000 {
		t.Errorf("expected Anna +6000, got %d", balances[0].Net.Cents)
	}
	if balances[1].Net.Cents != -3000 || balances[2].Net.Cents != -3000 {
		t.Errorf("expected Bruno and Carla at -3000, got %d and %d",
			balances[1].Net.Cents, balances[2].Net.Cents)
	}

	settlements, err := l.Settlements(ctx, g.ID)
	if err != nil {
		t.Fatalf("Settlements: %v", err)
	}
	if len(settlements) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(settlements))
	}
	for _, s := range settlements {
		if s.ToID != ps[0].ID {
			t.Errorf("expected all transfers toward Anna, got %+v", s)
		}
		if s.Amount.Cents != 3000 {
			t.Errorf("expected 3000 per transfer, got %d", s.Amount.Cents)
		}
	}
}

func TestSummary(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	g, ps := seedLedgerGroup(t, l)

	_, err := l.CreateExpense(ctx, ExpenseInput{
		GroupID:     g.ID,
		Description: "benzina",
		Amount:      core.Money{Cents: 4200},
		Date:        core.NewDate(2026, 8, 6),
		PayerID:     ps[2].ID,
		Split:       core.EqualSplit{},
	})
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}

	sum, err := l.Summary(ctx, g.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.GroupName != "Vacanza" {
		t.Errorf("expected group name in summary, got %q", sum.GroupName)
	}
	if sum.TotalSpent.Cents != 4200 {
		t.Errorf("expected total 4200, got %d", sum.TotalSpent.Cents)
	}
	if len(sum.Balances) != 3 {
		t.Errorf("expected 3 balances, got %d", len(sum.Balances))
	}
}

func TestDeleteGroupThenLookupsFail(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()
	g, _ := seedLedgerGroup(t, l)

	if err := l.DeleteGroup(ctx, g.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	var nf *core.NotFoundError
	if _, _, err := l.Group(ctx, g.ID); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError after delete, got %v", err)
	}
	if _, err := l.Balances(ctx, g.ID); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError after delete, got %v", err)
	}
	if err := l.DeleteGroup(ctx, g.ID); !errors.As(err, &nf) {
		t.Errorf("expected NotFoundError on second delete, got %v", err)
	}
}
