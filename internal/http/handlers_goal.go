package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"acorn/internal/core"
)

type goalRequest struct {
	Name          string `json:"name"`
	TargetAmount  string `json:"target_amount"`
	CurrentAmount string `json:"current_amount"` // corrective edits only
	Deadline      string `json:"deadline"`       // YYYY-MM-DD, optional
	Priority      string `json:"priority"`
	Category      string `json:"category"`
	IsCompleted   bool   `json:"is_completed"`
}

func (req goalRequest) toGoal(ownerID string) (core.SavingsGoal, error) {
	target, err := parseAmount(req.TargetAmount)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g := core.SavingsGoal{
		OwnerID:      ownerID,
		Name:         req.Name,
		TargetAmount: target,
		Priority:     core.Priority(req.Priority),
		Category:     strings.TrimSpace(req.Category),
		IsCompleted:  req.IsCompleted,
	}
	if req.CurrentAmount != "" {
		current, err := parseAmount(req.CurrentAmount)
		if err != nil {
			return core.SavingsGoal{}, err
		}
		g.CurrentAmount = current
	}
	if req.Deadline != "" {
		deadline, err := parseDate(req.Deadline)
		if err != nil {
			return core.SavingsGoal{}, errInvalidDate
		}
		g.Deadline = &deadline
	}
	return g, nil
}

type depositRequest struct {
	Amount string `json:"amount"`
}

type depositResponse struct {
	Deposit core.Deposit     `json:"deposit"`
	Goal    core.SavingsGoal `json:"goal"`
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	goal, err := req.toGoal(owner)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	created, err := s.storage.CreateSavingsGoal(r.Context(), goal)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	s.publish(owner, "goal:created")
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	goals, err := s.storage.ListSavingsGoals(r.Context(), owner)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if goals == nil {
		goals = []core.SavingsGoal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	goal, err := s.storage.GetSavingsGoal(r.Context(), owner, id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	goal, err := req.toGoal(owner)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	goal.ID = id

	// The balance belongs to the ledger: keep the stored value unless the
	// request makes an explicit corrective edit.
	if req.CurrentAmount == "" {
		existing, err := s.storage.GetSavingsGoal(r.Context(), owner, id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		goal.CurrentAmount = existing.CurrentAmount
	}

	if err := s.storage.UpdateSavingsGoal(r.Context(), goal); err != nil {
		writeStorageError(w, err)
		return
	}
	s.publish(owner, "goal:updated")
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.storage.DeleteSavingsGoal(r.Context(), owner, id); err != nil {
		writeStorageError(w, err)
		return
	}
	s.publish(owner, "goal:deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	dep, goal, err := s.deposits.RecordDeposit(r.Context(), owner, id, amount)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, depositResponse{Deposit: dep, Goal: goal})
}

func (s *Server) handleListDeposits(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	// 404 for a goal that does not exist, empty list for one with no deposits.
	if _, err := s.storage.GetSavingsGoal(r.Context(), owner, id); err != nil {
		writeStorageError(w, err)
		return
	}
	deposits, err := s.storage.ListDeposits(r.Context(), owner, id)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if deposits == nil {
		deposits = []core.Deposit{}
	}
	writeJSON(w, http.StatusOK, deposits)
}
