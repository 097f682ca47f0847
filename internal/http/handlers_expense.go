package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"acorn/internal/core"
)

type expenseRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Frequency   string `json:"frequency"`
	IsRecurring bool   `json:"is_recurring"`
	Date        string `json:"date"` // YYYY-MM-DD, defaults to today
	Description string `json:"description"`
}

func (req expenseRequest) toExpense(ownerID string) (core.Expense, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		OwnerID:     ownerID,
		Name:        req.Name,
		Amount:      amount,
		Category:    strings.TrimSpace(req.Category),
		Frequency:   core.Frequency(req.Frequency).Normalized(),
		IsRecurring: req.IsRecurring,
		Description: req.Description,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			return core.Expense{}, errInvalidDate
		}
		e.Date = date
	}
	return e, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	expense, err := req.toExpense(owner)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	created, err := s.storage.CreateExpense(r.Context(), expense)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	s.publish(owner, "expense:created")
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	expenses, err := s.storage.ListExpenses(r.Context(), owner)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	expense, err := req.toExpense(owner)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	expense.ID = id

	// An omitted date keeps the stored one; a zero date would silently move
	// a one-time expense back into its creation month.
	if req.Date == "" {
		existing, err := s.storage.GetExpense(r.Context(), owner, id)
		if err != nil {
			writeStorageError(w, err)
			return
		}
		expense.Date = existing.Date
	}

	if err := s.storage.UpdateExpense(r.Context(), expense); err != nil {
		writeStorageError(w, err)
		return
	}
	s.publish(owner, "expense:updated")
	writeJSON(w, http.StatusOK, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.storage.DeleteExpense(r.Context(), owner, id); err != nil {
		writeStorageError(w, err)
		return
	}
	s.publish(owner, "expense:deleted")
	w.WriteHeader(http.StatusNoContent)
}
