package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"acorn/internal/core"
	"acorn/internal/feed"
	"acorn/internal/services"
	"acorn/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	hub := feed.NewHub()
	overview := services.NewOverviewService(repo, 6)
	deposits := services.NewDepositService(repo, hub)

	srv := NewServer(":0", repo, overview, deposits, hub, time.Minute)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestMissingOwnerHeader(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/overview", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "X-Owner-ID") {
		t.Errorf("body = %s, want mention of the owner header", rr.Body.String())
	}
}

func TestIncomeEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/incomes", "alice", incomeRequest{
		Name: "salary", Amount: "5000.00", Frequency: "monthly", IsRecurring: true,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var created core.IncomeStream
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	if created.Amount.Cents != 500000 {
		t.Errorf("Amount = %d cents, want 500000", created.Amount.Cents)
	}

	rr = doJSON(t, srv, http.MethodGet, "/incomes", "alice", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	var list []core.IncomeStream
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list has %d streams, want 1", len(list))
	}

	// Other owners see nothing.
	rr = doJSON(t, srv, http.MethodGet, "/incomes", "bob", nil)
	var bobList []core.IncomeStream
	_ = json.Unmarshal(rr.Body.Bytes(), &bobList)
	if len(bobList) != 0 {
		t.Errorf("bob sees %d streams, want 0", len(bobList))
	}

	rr = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/incomes/%d", created.ID), "alice", incomeRequest{
		Name: "base salary", Amount: "5200.00", Frequency: "monthly", IsRecurring: true,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/incomes/%d", created.ID), "alice", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/incomes/%d", created.ID), "alice", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rr.Code)
	}
}

func TestExpenseValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		req  expenseRequest
		want int
	}{
		{"valid", expenseRequest{Name: "rent", Amount: "900.00", Category: "housing"}, http.StatusCreated},
		{"negative amount", expenseRequest{Name: "rent", Amount: "-10.00"}, http.StatusBadRequest},
		{"empty name", expenseRequest{Amount: "10.00"}, http.StatusBadRequest},
		{"bad amount", expenseRequest{Name: "x", Amount: "abc"}, http.StatusBadRequest},
		{"bad date", expenseRequest{Name: "x", Amount: "1.00", Date: "01/02/2026"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/expenses", "alice", tt.req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body: %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestGoalAndDepositEndpoints(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/goals", "alice", goalRequest{
		Name: "emergency fund", TargetAmount: "10000.00", Priority: "high", Category: "emergency",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create goal status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var goal core.SavingsGoal
	if err := json.Unmarshal(rr.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode goal: %v", err)
	}

	rr = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/goals/%d/deposits", goal.ID), "alice", depositRequest{Amount: "250.00"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("deposit status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var depResp depositResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &depResp); err != nil {
		t.Fatalf("decode deposit response: %v", err)
	}
	if depResp.Goal.CurrentAmount.Cents != 25000 {
		t.Errorf("CurrentAmount = %d, want 25000", depResp.Goal.CurrentAmount.Cents)
	}

	rr = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/goals/%d/deposits", goal.ID), "alice", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list deposits status = %d", rr.Code)
	}
	var deposits []core.Deposit
	if err := json.Unmarshal(rr.Body.Bytes(), &deposits); err != nil {
		t.Fatalf("decode deposits: %v", err)
	}
	if len(deposits) != 1 {
		t.Errorf("got %d deposits, want 1", len(deposits))
	}

	// Deposit against a missing goal.
	rr = doJSON(t, srv, http.MethodPost, "/goals/9999/deposits", "alice", depositRequest{Amount: "1.00"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing goal deposit status = %d, want 404", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "goal not found") {
		t.Errorf("body = %s, want ledger message", rr.Body.String())
	}

	// Negative amounts never parse, so the API rejects them before the ledger.
	rr = doJSON(t, srv, http.MethodPost, fmt.Sprintf("/goals/%d/deposits", goal.ID), "alice", depositRequest{Amount: "-5.00"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("negative deposit status = %d, want 400", rr.Code)
	}

	// Cross-owner access is a 404, not a leak.
	rr = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/goals/%d", goal.ID), "bob", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("cross-owner get status = %d, want 404", rr.Code)
	}
}

func TestOverviewEndpointAndCache(t *testing.T) {
	srv := newTestServer(t)

	doJSON(t, srv, http.MethodPost, "/incomes", "alice", incomeRequest{
		Name: "salary", Amount: "1000.00", Frequency: "monthly", IsRecurring: true,
	})
	doJSON(t, srv, http.MethodPost, "/expenses", "alice", expenseRequest{
		Name: "rent", Amount: "500.00", Category: "housing", Frequency: "monthly", IsRecurring: true,
	})

	rr := doJSON(t, srv, http.MethodGet, "/overview", "alice", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("overview status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("first X-Cache = %q, want MISS", got)
	}
	var ov services.Overview
	if err := json.Unmarshal(rr.Body.Bytes(), &ov); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	if ov.MonthlyIncome.Cents != 100000 {
		t.Errorf("MonthlyIncome = %d, want 100000", ov.MonthlyIncome.Cents)
	}
	if ov.MonthlySavings.Cents != 50000 {
		t.Errorf("MonthlySavings = %d, want 50000", ov.MonthlySavings.Cents)
	}
	if len(ov.Insights) == 0 {
		t.Error("expected insights for a 50% savings rate")
	}

	rr = doJSON(t, srv, http.MethodGet, "/overview", "alice", nil)
	if got := rr.Header().Get("X-Cache"); got != "HIT" {
		t.Errorf("second X-Cache = %q, want HIT", got)
	}

	// A mutation drops the cached entry through the feed hub.
	doJSON(t, srv, http.MethodPost, "/expenses", "alice", expenseRequest{
		Name: "food", Amount: "100.00", Category: "food", Frequency: "monthly", IsRecurring: true,
	})
	rr = doJSON(t, srv, http.MethodGet, "/overview", "alice", nil)
	if got := rr.Header().Get("X-Cache"); got != "MISS" {
		t.Errorf("post-mutation X-Cache = %q, want MISS", got)
	}
	_ = json.Unmarshal(rr.Body.Bytes(), &ov)
	if ov.MonthlyExpenses.Cents != 60000 {
		t.Errorf("MonthlyExpenses = %d, want 60000", ov.MonthlyExpenses.Cents)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/overview", "alice", nil)
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestUpdateExpensePreservesDate(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/expenses", "alice", expenseRequest{
		Name: "concert tickets", Amount: "80.00", Category: "leisure", Frequency: "one-time", Date: "2026-03-14",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var expense core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &expense); err != nil {
		t.Fatalf("decode expense: %v", err)
	}

	// Update without a date must not move the expense to another month.
	rr = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/expenses/%d", expense.ID), "alice", expenseRequest{
		Name: "concert tickets", Amount: "95.00", Category: "leisure", Frequency: "one-time",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/expenses", "alice", nil)
	var list []core.Expense
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d expenses, want 1", len(list))
	}
	if y, m, d := list[0].Date.Date(); y != 2026 || m != time.March || d != 14 {
		t.Errorf("Date = %v, want 2026-03-14", list[0].Date)
	}
	if list[0].Amount.Cents != 9500 {
		t.Errorf("Amount = %d, want 9500", list[0].Amount.Cents)
	}

	// An explicit date does replace the stored one.
	rr = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/expenses/%d", expense.ID), "alice", expenseRequest{
		Name: "concert tickets", Amount: "95.00", Category: "leisure", Frequency: "one-time", Date: "2026-04-02",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("dated update status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/expenses", "alice", nil)
	_ = json.Unmarshal(rr.Body.Bytes(), &list)
	if y, m, d := list[0].Date.Date(); y != 2026 || m != time.April || d != 2 {
		t.Errorf("Date after dated update = %v, want 2026-04-02", list[0].Date)
	}
}

func TestUpdateGoalPreservesBalance(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/goals", "alice", goalRequest{
		Name: "car", TargetAmount: "10000.00", Priority: "medium",
	})
	var goal core.SavingsGoal
	if err := json.Unmarshal(rr.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode goal: %v", err)
	}
	doJSON(t, srv, http.MethodPost, fmt.Sprintf("/goals/%d/deposits", goal.ID), "alice", depositRequest{Amount: "100.00"})

	// Update without current_amount must not touch the balance.
	rr = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/goals/%d", goal.ID), "alice", goalRequest{
		Name: "new car", TargetAmount: "12000.00", Priority: "high",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/goals/%d", goal.ID), "alice", nil)
	_ = json.Unmarshal(rr.Body.Bytes(), &goal)
	if goal.CurrentAmount.Cents != 10000 {
		t.Errorf("CurrentAmount = %d, want 10000", goal.CurrentAmount.Cents)
	}
	if goal.Name != "new car" || goal.TargetAmount.Cents != 1200000 {
		t.Errorf("goal = %+v", goal)
	}

	// An explicit corrective edit does change it.
	rr = doJSON(t, srv, http.MethodPut, fmt.Sprintf("/goals/%d", goal.ID), "alice", goalRequest{
		Name: "new car", TargetAmount: "12000.00", CurrentAmount: "50.00", Priority: "high",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("corrective update status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/goals/%d", goal.ID), "alice", nil)
	_ = json.Unmarshal(rr.Body.Bytes(), &goal)
	if goal.CurrentAmount.Cents != 5000 {
		t.Errorf("CurrentAmount after corrective edit = %d, want 5000", goal.CurrentAmount.Cents)
	}
}
