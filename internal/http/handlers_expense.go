package http

import (
	"net/http"
	"strings"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	in, err := req.toInput()
	if err != nil {
		respondError(w, r, err)
		return
	}

	e, err := s.ledger.CreateExpense(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	expenseMutations.WithLabelValues("create").Inc()
	writeJSON(w, http.StatusCreated, toExpenseResponse(e))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	groupID := strings.TrimSpace(r.URL.Query().Get("group"))
	if groupID == "" {
		writeError(w, r, http.StatusBadRequest, "group query parameter is required")
		return
	}

	filter, err := parseExpenseFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	expenses, err := s.ledger.Expenses(r.Context(), groupID, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for i := range expenses {
		out = append(out, toExpenseResponse(&expenses[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.ledger.Expense(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	in, err := req.toInput()
	if err != nil {
		respondError(w, r, err)
		return
	}

	e, err := s.ledger.UpdateExpense(r.Context(), r.PathValue("id"), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	expenseMutations.WithLabelValues("update").Inc()
	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	expenseMutations.WithLabelValues("delete").Inc()
	w.WriteHeader(http.StatusNoContent)
}
