package http

import (
	"net/http"
)

func (s *Server) handleNetBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.ledger.Balances(r.Context(), r.PathValue("groupID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponses(balances))
}

func (s *Server) handleSettlements(w http.ResponseWriter, r *http.Request) {
	settlements, err := s.ledger.Settlements(r.Context(), r.PathValue("groupID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	settlementPlans.Inc()
	writeJSON(w, http.StatusOK, toSettlementResponses(settlements))
}
