package http

import (
	"encoding/json"
	"net/http"

	"acorn/internal/core"
	"acorn/internal/feed"
)

type incomeRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Frequency   string `json:"frequency"`
	IsRecurring bool   `json:"is_recurring"`
}

func (req incomeRequest) toStream(ownerID string) (core.IncomeStream, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.IncomeStream{}, err
	}
	return core.IncomeStream{
		OwnerID:     ownerID,
		Name:        req.Name,
		Amount:      amount,
		Frequency:   core.Frequency(req.Frequency).Normalized(),
		IsRecurring: req.IsRecurring,
	}, nil
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req incomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stream, err := req.toStream(owner)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	created, err := s.storage.CreateIncomeStream(r.Context(), stream)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	s.publish(owner, "income:created")
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	streams, err := s.storage.ListIncomeStreams(r.Context(), owner)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if streams == nil {
		streams = []core.IncomeStream{}
	}
	writeJSON(w, http.StatusOK, streams)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req incomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stream, err := req.toStream(owner)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	stream.ID = id

	if err := s.storage.UpdateIncomeStream(r.Context(), stream); err != nil {
		writeStorageError(w, err)
		return
	}
	s.publish(owner, "income:updated")
	writeJSON(w, http.StatusOK, stream)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.storage.DeleteIncomeStream(r.Context(), owner, id); err != nil {
		writeStorageError(w, err)
		return
	}
	s.publish(owner, "income:deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) publish(ownerID, reason string) {
	if s.hub != nil {
		s.hub.Publish(feed.Event{OwnerID: ownerID, Reason: reason})
	}
}
