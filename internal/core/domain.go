package core

import (
	"errors"
	"strings"
	"time"
)

// MaxParticipants caps group size. The splitting rules are designed for
// very small groups; raising this only needs a new cap, not new math.
const MaxParticipants = 3

const (
	SplitEqual      SplitType = "equal"
	SplitCustom     SplitType = "custom"
	SplitPercentage SplitType = "percentage"
)

type (
	// SplitType tags how an expense is divided among participants.
	SplitType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Group owns participants and expenses. TotalSpent is a running
	// aggregate: it must equal the cent sum of all live expenses in the
	// group after every mutation, not just eventually.
	Group struct {
		ID             string
		Name           string
		OwnerID        string
		ParticipantIDs []string // insertion order, len <= MaxParticipants
		TotalSpent     Money
		CreatedAt      time.Time
	}

	Participant struct {
		ID        string
		GroupID   string
		Name      string
		CreatedAt time.Time
	}

	// Split is one participant's share of a single expense. BasisPoints
	// is provenance for percentage splits (100% = 10000) and zero for the
	// other strategies; it is never re-derived from Amount.
	Split struct {
		ParticipantID string
		Amount        Money
		BasisPoints   int64
	}

	Expense struct {
		ID          string
		GroupID     string
		Amount      Money
		Description string
		Date        Date
		PayerID     string
		SplitType   SplitType
		Category    string
		Splits      []Split
		CreatedAt   time.Time
	}

	// Balance is a participant's net position across a group's expenses.
	// Positive means the participant is owed money, negative means owing.
	Balance struct {
		ParticipantID string
		Name          string
		Net           Money
	}

	// Settlement is a proposed transfer from a debtor to a creditor.
	// Amount is always positive.
	Settlement struct {
		FromID   string
		FromName string
		ToID     string
		ToName   string
		Amount   Money
	}
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (g Group) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if len(g.ParticipantIDs) > MaxParticipants {
		return ErrTooManyParticipants
	}
	return nil
}

func (p Participant) Validate() error {
	if len(strings.TrimSpace(p.Name)) == 0 {
		return ErrEmptyName
	}
	if p.GroupID == "" {
		return errors.New("participant without group")
	}
	return nil
}

func (e Expense) Validate() error {
	if e.GroupID == "" {
		return errors.New("expense without group")
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.PayerID == "" {
		return errors.New("expense without payer")
	}
	switch e.SplitType {
	case SplitEqual, SplitCustom, SplitPercentage:
	default:
		return ErrUnknownSplitType
	}
	if len(e.Splits) == 0 {
		return ErrEmptyParticipants
	}
	var sum int64
	for _, s := range e.Splits {
		if s.ParticipantID == "" {
			return errors.New("split without participant")
		}
		if s.Amount.Cents < 0 {
			return ErrInvalidAmount
		}
		sum += s.Amount.Cents
	}
	// Exact-sum invariant: no residual cent dropped or duplicated.
	if sum != e.Amount.Cents {
		return ErrSplitTotalMismatch
	}
	return nil
}
