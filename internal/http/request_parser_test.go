package http

import (
	"errors"
	"testing"

	"dividi/internal/core"
)

func TestSplitRequestToSpec(t *testing.T) {
	t.Run("equal", func(t *testing.T) {
		spec, err := splitRequest{Type: "equal"}.toSpec()
		if err != nil {
			t.Fatalf("toSpec: %v", err)
		}
		if _, ok := spec.(core.EqualSplit); !ok {
			t.Errorf("expected EqualSplit, got %T", spec)
		}
	})

	t.Run("equal rejects extra fields", func(t *testing.T) {
		_, err := splitRequest{
			Type:   "equal",
			Shares: []shareRequest{{ParticipantID: "p1", Amount: "10.00"}},
		}.toSpec()
		if !errors.Is(err, core.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("custom", func(t *testing.T) {
		spec, err := splitRequest{
			Type: "custom",
			Shares: []shareRequest{
				{ParticipantID: "p1", Amount: "10.00"},
				{ParticipantID: "p2", Amount: "5.50"},
			},
		}.toSpec()
		if err != nil {
			t.Fatalf("toSpec: %v", err)
		}
		cs, ok := spec.(core.CustomSplit)
		if !ok {
			t.Fatalf("expected CustomSplit, got %T", spec)
		}
		if cs.Shares[0].Amount.Cents != 1000 || cs.Shares[1].Amount.Cents != 550 {
			t.Errorf("amounts not parsed to cents: %+v", cs.Shares)
		}
	})

	t.Run("custom rejects bad amount", func(t *testing.T) {
		_, err := splitRequest{
			Type:   "custom",
			Shares: []shareRequest{{ParticipantID: "p1", Amount: "dieci"}},
		}.toSpec()
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("expected invalid amount, got %v", err)
		}
	})

	t.Run("percentage", func(t *testing.T) {
		spec, err := splitRequest{
			Type: "percentage",
			Portions: []portionRequest{
				{ParticipantID: "p1", Percent: "33.3"},
				{ParticipantID: "p2", Percent: "33.3"},
				{ParticipantID: "p3", Percent: "33.4"},
			},
		}.toSpec()
		if err != nil {
			t.Fatalf("toSpec: %v", err)
		}
		ps, ok := spec.(core.PercentSplit)
		if !ok {
			t.Fatalf("expected PercentSplit, got %T", spec)
		}
		var total int64
		for _, p := range ps.Portions {
			total += p.BasisPoints
		}
		if total != core.BasisPointsTotal {
			t.Errorf("basis points should total %d, got %d", core.BasisPointsTotal, total)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := splitRequest{Type: "weighted"}.toSpec()
		if !errors.Is(err, core.ErrUnknownSplitType) {
			t.Errorf("expected unknown split type, got %v", err)
		}
	})
}

func TestExpenseRequestToInput(t *testing.T) {
	req := expenseRequest{
		GroupID:     "g-1",
		Description: "  cena fuori  ",
		Amount:      "45,00",
		Date:        "2026-08-15",
		PayerID:     "p1",
		Split:       splitRequest{Type: "equal"},
	}

	in, err := req.toInput()
	if err != nil {
		t.Fatalf("toInput: %v", err)
	}
	if in.Amount.Cents != 4500 {
		t.Errorf("expected 4500 cents, got %d", in.Amount.Cents)
	}
	if in.Description != "cena fuori" {
		t.Errorf("description not sanitized: %q", in.Description)
	}
	if in.Date.Year() != 2026 || int(in.Date.Month()) != 8 || in.Date.Day() != 15 {
		t.Errorf("date not parsed: %v", in.Date)
	}

	t.Run("bad date", func(t *testing.T) {
		bad := req
		bad.Date = "15/08/2026"
		if _, err := bad.toInput(); !errors.Is(err, core.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})

	t.Run("bad amount", func(t *testing.T) {
		bad := req
		bad.Amount = "-5"
		if _, err := bad.toInput(); !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("expected invalid amount, got %v", err)
		}
	})
}
