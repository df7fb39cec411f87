package http

import (
	"time"

	"dividi/internal/core"
)

// Amounts cross the boundary as two-decimal strings. Cents never leak.

type participantResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type groupResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	OwnerID      string                `json:"owner_id"`
	Participants []participantResponse `json:"participants"`
	TotalSpent   string                `json:"total_spent"`
	CreatedAt    time.Time             `json:"created_at"`
}

type splitResponse struct {
	ParticipantID string `json:"participant_id"`
	Amount        string `json:"amount"`
	Percent       string `json:"percent,omitempty"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	Description string          `json:"description"`
	Amount      string          `json:"amount"`
	Date        string          `json:"date"`
	PayerID     string          `json:"payer_id"`
	SplitType   string          `json:"split_type"`
	Category    string          `json:"category"`
	Splits      []splitResponse `json:"splits"`
	CreatedAt   time.Time       `json:"created_at"`
}

type balanceResponse struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Net           string `json:"net"`
}

type settlementResponse struct {
	FromID   string `json:"from_id"`
	FromName string `json:"from_name"`
	ToID     string `json:"to_id"`
	ToName   string `json:"to_name"`
	Amount   string `json:"amount"`
}

type summaryResponse struct {
	GroupID    string            `json:"group_id"`
	GroupName  string            `json:"group_name"`
	TotalSpent string            `json:"total_spent"`
	Balances   []balanceResponse `json:"balances"`
}

func toGroupResponse(g *core.Group, participants []core.Participant) groupResponse {
	ps := make([]participantResponse, 0, len(participants))
	for _, p := range participants {
		ps = append(ps, participantResponse{ID: p.ID, Name: p.Name})
	}
	return groupResponse{
		ID:           g.ID,
		Name:         g.Name,
		OwnerID:      g.OwnerID,
		Participants: ps,
		TotalSpent:   g.TotalSpent.String(),
		CreatedAt:    g.CreatedAt,
	}
}

func toExpenseResponse(e *core.Expense) expenseResponse {
	splits := make([]splitResponse, 0, len(e.Splits))
	for _, s := range e.Splits {
		sr := splitResponse{
			ParticipantID: s.ParticipantID,
			Amount:        s.Amount.String(),
		}
		if s.BasisPoints > 0 {
			sr.Percent = core.Money{Cents: s.BasisPoints}.String()
		}
		splits = append(splits, sr)
	}
	return expenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Amount:      e.Amount.String(),
		Date:        e.Date.Format("2006-01-02"),
		PayerID:     e.PayerID,
		SplitType:   string(e.SplitType),
		Category:    e.Category,
		Splits:      splits,
		CreatedAt:   e.CreatedAt,
	}
}

func toBalanceResponses(balances []core.Balance) []balanceResponse {
	out := make([]balanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceResponse{
			ParticipantID: b.ParticipantID,
			Name:          b.Name,
			Net:           b.Net.String(),
		})
	}
	return out
}

func toSettlementResponses(settlements []core.Settlement) []settlementResponse {
	out := make([]settlementResponse, 0, len(settlements))
	for _, s := range settlements {
		out = append(out, settlementResponse{
			FromID:   s.FromID,
			FromName: s.FromName,
			ToID:     s.ToID,
			ToName:   s.ToName,
			Amount:   s.Amount.String(),
		})
	}
	return out
}
