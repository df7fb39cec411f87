package http

import (
	"net/http"
)

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.ledger.AddParticipant(r.Context(), r.PathValue("id"), sanitizeInput(req.Name))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, participantResponse{ID: p.ID, Name: p.Name})
}

func (s *Server) handleRenameParticipant(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id := r.PathValue("id")
	if err := s.ledger.RenameParticipant(r.Context(), id, sanitizeInput(req.Name)); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, participantResponse{ID: id, Name: sanitizeInput(req.Name)})
}

func (s *Server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.RemoveParticipant(r.Context(), r.PathValue("id")); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
