package http

import (
	"fmt"
	"net/http"
	"strings"

	"dividi/internal/core"
	"dividi/internal/ledger"
)

// ---- request DTOs ----

type createGroupRequest struct {
	Name         string   `json:"name"`
	OwnerID      string   `json:"owner_id"`
	Participants []string `json:"participants"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type addParticipantRequest struct {
	Name string `json:"name"`
}

type shareRequest struct {
	ParticipantID string `json:"participant_id"`
	Amount        string `json:"amount"`
}

type portionRequest struct {
	ParticipantID string `json:"participant_id"`
	Percent       string `json:"percent"`
}

type splitRequest struct {
	Type     string           `json:"type"`
	Shares   []shareRequest   `json:"shares,omitempty"`
	Portions []portionRequest `json:"portions,omitempty"`
}

type expenseRequest struct {
	GroupID     string       `json:"group_id"`
	Description string       `json:"description"`
	Amount      string       `json:"amount"`
	Date        string       `json:"date"`
	PayerID     string       `json:"payer_id"`
	Split       splitRequest `json:"split"`
}

// toInput converts the wire shape into a ledger input. Each split type
// accepts exactly its own fields; extra ones are rejected.
func (req expenseRequest) toInput() (ledger.ExpenseInput, error) {
	var in ledger.ExpenseInput

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return in, err
	}
	date, err := parseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return in, err
	}
	spec, err := req.Split.toSpec()
	if err != nil {
		return in, err
	}

	return ledger.ExpenseInput{
		GroupID:     strings.TrimSpace(req.GroupID),
		Description: sanitizeInput(req.Description),
		Amount:      core.Money{Cents: cents},
		Date:        date,
		PayerID:     strings.TrimSpace(req.PayerID),
		Split:       spec,
	}, nil
}

func (req splitRequest) toSpec() (core.SplitSpec, error) {
	switch core.SplitType(req.Type) {
	case core.SplitEqual:
		if len(req.Shares) > 0 || len(req.Portions) > 0 {
			return nil, fmt.Errorf("%w: equal split takes no shares or portions", core.ErrValidation)
		}
		return core.EqualSplit{}, nil

	case core.SplitCustom:
		if len(req.Portions) > 0 {
			return nil, fmt.Errorf("%w: custom split takes shares, not portions", core.ErrValidation)
		}
		shares := make([]core.Share, 0, len(req.Shares))
		for _, sh := range req.Shares {
			cents, err := core.ParseDecimalToCents(sh.Amount)
			if err != nil {
				return nil, err
			}
			shares = append(shares, core.Share{
				ParticipantID: strings.TrimSpace(sh.ParticipantID),
				Amount:        core.Money{Cents: cents},
			})
		}
		return core.CustomSplit{Shares: shares}, nil

	case core.SplitPercentage:
		if len(req.Shares) > 0 {
			return nil, fmt.Errorf("%w: percentage split takes portions, not shares", core.ErrValidation)
		}
		portions := make([]core.Portion, 0, len(req.Portions))
		for _, p := range req.Portions {
			bp, err := core.ParsePercentToBasisPoints(p.Percent)
			if err != nil {
				return nil, err
			}
			portions = append(portions, core.Portion{
				ParticipantID: strings.TrimSpace(p.ParticipantID),
				BasisPoints:   bp,
			})
		}
		return core.PercentSplit{Portions: portions}, nil

	default:
		return nil, core.ErrUnknownSplitType
	}
}

// parseExpenseFilter reads the optional listing query parameters.
func parseExpenseFilter(r *http.Request) (core.ExpenseFilter, error) {
	q := r.URL.Query()
	f := core.ExpenseFilter{
		Search:        sanitizeInput(q.Get("search")),
		ParticipantID: strings.TrimSpace(q.Get("participant")),
	}

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return f, err
		}
		f.From = d.Time
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := parseDate(v)
		if err != nil {
			return f, err
		}
		f.To = d.Time
	}
	if v := strings.TrimSpace(q.Get("min")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return f, err
		}
		f.MinCents = cents
	}
	if v := strings.TrimSpace(q.Get("max")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return f, err
		}
		f.MaxCents = cents
	}
	return f, nil
}
