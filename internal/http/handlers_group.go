package http

import (
	"net/http"
	"strings"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	names := make([]string, 0, len(req.Participants))
	for _, n := range req.Participants {
		names = append(names, sanitizeInput(n))
	}

	g, participants, err := s.ledger.CreateGroup(r.Context(), sanitizeInput(req.Name), strings.TrimSpace(req.OwnerID), names)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(g, participants))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner"))
	if ownerID == "" {
		writeError(w, r, http.StatusBadRequest, "owner query parameter is required")
		return
	}

	groups, err := s.ledger.Groups(r.Context(), ownerID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]groupResponse, 0, len(groups))
	for i := range groups {
		_, participants, err := s.ledger.Group(r.Context(), groups[i].ID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		out = append(out, toGroupResponse(&groups[i], participants))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, participants, err := s.ledger.Group(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(g, participants))
}

func (s *Server) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id := r.PathValue("id")
	if err := s.ledger.RenameGroup(r.Context(), id, sanitizeInput(req.Name)); err != nil {
		respondError(w, r, err)
		return
	}

	g, participants, err := s.ledger.Group(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(g, participants))
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteGroup(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGroupSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		GroupID:    summary.GroupID,
		GroupName:  summary.GroupName,
		TotalSpent: summary.TotalSpent.String(),
		Balances:   toBalanceResponses(summary.Balances),
	})
}
