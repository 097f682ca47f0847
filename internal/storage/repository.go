package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"acorn/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the persistence provider for all financial records.
// Every query is scoped by owner id; the repository never returns records
// across owners.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// dsn adds the pragmas every connection needs: a busy timeout so concurrent
// writers queue instead of failing immediately, WAL for reader/writer
// overlap, enforced foreign keys, and immediate transactions so the deposit
// ledger takes its write lock up front instead of deadlocking on upgrade.
func dsn(dbPath string) string {
	return dbPath + "?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- income streams ---

func (r *SQLiteRepository) CreateIncomeStream(ctx context.Context, s core.IncomeStream) (core.IncomeStream, error) {
	if err := s.Validate(); err != nil {
		return core.IncomeStream{}, err
	}
	s.Frequency = s.Frequency.Normalized()
	s.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO income_streams (owner_id, name, amount_cents, frequency, is_recurring, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.OwnerID, s.Name, s.Amount.Cents, string(s.Frequency), s.IsRecurring, s.CreatedAt)
	if err != nil {
		return core.IncomeStream{}, fmt.Errorf("create income stream: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.IncomeStream{}, fmt.Errorf("income stream id: %w", err)
	}

	slog.InfoContext(ctx, "Income stream saved",
		"id", s.ID, "owner_id", s.OwnerID, "amount_cents", s.Amount.Cents, "frequency", s.Frequency)
	return s, nil
}

func (r *SQLiteRepository) ListIncomeStreams(ctx context.Context, ownerID string) ([]core.IncomeStream, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, amount_cents, frequency, is_recurring, created_at
		 FROM income_streams WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list income streams: %w", err)
	}
	defer rows.Close()

	var out []core.IncomeStream
	for rows.Next() {
		var s core.IncomeStream
		var freq string
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Amount.Cents, &freq, &s.IsRecurring, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan income stream: %w", err)
		}
		s.Frequency = core.Frequency(freq)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateIncomeStream(ctx context.Context, s core.IncomeStream) error {
	if err := s.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE income_streams SET name = ?, amount_cents = ?, frequency = ?, is_recurring = ?
		 WHERE id = ? AND owner_id = ?`,
		s.Name, s.Amount.Cents, string(s.Frequency.Normalized()), s.IsRecurring, s.ID, s.OwnerID)
	if err != nil {
		return fmt.Errorf("update income stream: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteIncomeStream(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM income_streams WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete income stream: %w", err)
	}
	return requireRow(res)
}

// --- expenses ---

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e.Category = e.CategoryOrDefault()
	e.Frequency = e.Frequency.Normalized()
	e.CreatedAt = time.Now().UTC()
	if e.Date.IsZero() {
		e.Date = e.CreatedAt
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (owner_id, name, amount_cents, category, frequency, is_recurring, date, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OwnerID, e.Name, e.Amount.Cents, e.Category, string(e.Frequency), e.IsRecurring, e.Date, e.Description, e.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID, "owner_id", e.OwnerID, "amount_cents", e.Amount.Cents, "category", e.Category)
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, ownerID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, amount_cents, category, frequency, is_recurring, date, description, created_at
		 FROM expenses WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		var freq string
		var date sql.NullTime
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Amount.Cents, &e.Category, &freq, &e.IsRecurring, &date, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Frequency = core.Frequency(freq)
		if date.Valid {
			e.Date = date.Time
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, ownerID string, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, amount_cents, category, frequency, is_recurring, date, description, created_at
		 FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)

	var e core.Expense
	var freq string
	var date sql.NullTime
	err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Amount.Cents, &e.Category, &freq, &e.IsRecurring, &date, &e.Description, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	e.Frequency = core.Frequency(freq)
	if date.Valid {
		e.Date = date.Time
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET name = ?, amount_cents = ?, category = ?, frequency = ?, is_recurring = ?, date = ?, description = ?
		 WHERE id = ? AND owner_id = ?`,
		e.Name, e.Amount.Cents, e.CategoryOrDefault(), string(e.Frequency.Normalized()), e.IsRecurring, e.Date, e.Description, e.ID, e.OwnerID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, ownerID string, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res)
}

// --- savings goals ---

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	if err := g.Validate(); err != nil {
		return core.SavingsGoal{}, err
	}
	if !g.Priority.Valid() {
		g.Priority = core.PriorityMedium
	}
	if g.Category == "" {
		g.Category = core.DefaultCategory
	}
	g.IsCompleted = false
	g.CreatedAt = time.Now().UTC()

	var deadline any
	if g.Deadline != nil {
		deadline = *g.Deadline
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (owner_id, name, target_amount_cents, current_amount_cents, deadline, priority, category, is_completed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.OwnerID, g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, deadline, string(g.Priority), g.Category, g.IsCompleted, g.CreatedAt)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	g.ID, err = res.LastInsertId()
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("savings goal id: %w", err)
	}

	slog.InfoContext(ctx, "Savings goal saved",
		"id", g.ID, "owner_id", g.OwnerID, "target_cents", g.TargetAmount.Cents, "priority", g.Priority)
	return g, nil
}

// ListSavingsGoals returns an owner's goals ordered by priority (high
// first) then creation time, newest first.
func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context, ownerID string) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, target_amount_cents, current_amount_cents, deadline, priority, category, is_completed, created_at
		 FROM savings_goals WHERE owner_id = ?
		 ORDER BY CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC,
		          created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetSavingsGoal(ctx context.Context, ownerID string, id int64) (core.SavingsGoal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, target_amount_cents, current_amount_cents, deadline, priority, category, is_completed, created_at
		 FROM savings_goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsGoal{}, core.ErrGoalNotFound
	}
	return g, err
}

// UpdateSavingsGoal covers corrective edits; the deposit ledger is the only
// path that advances current_amount as part of the deposit protocol.
func (r *SQLiteRepository) UpdateSavingsGoal(ctx context.Context, g core.SavingsGoal) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if !g.Priority.Valid() {
		g.Priority = core.PriorityMedium
	}
	var deadline any
	if g.Deadline != nil {
		deadline = *g.Deadline
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals SET name = ?, target_amount_cents = ?, current_amount_cents = ?, deadline = ?, priority = ?, category = ?, is_completed = ?
		 WHERE id = ? AND owner_id = ?`,
		g.Name, g.TargetAmount.Cents, g.CurrentAmount.Cents, deadline, string(g.Priority), g.Category, g.IsCompleted, g.ID, g.OwnerID)
	if err != nil {
		return fmt.Errorf("update savings goal: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteSavingsGoal(ctx context.Context, ownerID string, id int64) error {
	var deposits int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deposits WHERE goal_id = ? AND owner_id = ?`, id, ownerID).Scan(&deposits); err != nil {
		return fmt.Errorf("count deposits: %w", err)
	}
	if deposits > 0 {
		// Deposit history cascades with the goal.
		slog.WarnContext(ctx, "Deleting goal with existing deposits",
			"goal_id", id, "owner_id", ownerID, "deposits", deposits)
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM savings_goals WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	return requireRow(res)
}

// --- deposits ---

func (r *SQLiteRepository) ListDeposits(ctx context.Context, ownerID string, goalID int64) ([]core.Deposit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, goal_id, amount_cents, date
		 FROM deposits WHERE owner_id = ? AND goal_id = ? ORDER BY date DESC, id DESC`, ownerID, goalID)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()

	var out []core.Deposit
	for rows.Next() {
		var d core.Deposit
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.GoalID, &d.Amount.Cents, &d.Date); err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- monthly summaries ---

func (r *SQLiteRepository) CreateMonthlySummary(ctx context.Context, s core.MonthlySummary) (core.MonthlySummary, error) {
	now := time.Now().UTC()
	if s.Month == 0 {
		s.Month = int(now.Month())
	}
	if s.Year == 0 {
		s.Year = now.Year()
	}
	if s.Month < 1 || s.Month > 12 {
		return core.MonthlySummary{}, fmt.Errorf("invalid month %d: %w", s.Month, core.ErrInvalidAmount)
	}
	s.CreatedAt = now

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO monthly_summaries (owner_id, month, year, income_cents, expenses_cents, savings_cents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.OwnerID, s.Month, s.Year, s.Income.Cents, s.Expenses.Cents, s.Savings.Cents, s.CreatedAt)
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("create monthly summary: %w", err)
	}
	s.ID, err = res.LastInsertId()
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("monthly summary id: %w", err)
	}
	return s, nil
}

// ListMonthlySummaries returns summaries in the trailing months-month
// window, oldest first.
func (r *SQLiteRepository) ListMonthlySummaries(ctx context.Context, ownerID string, months int) ([]core.MonthlySummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, month, year, income_cents, expenses_cents, savings_cents, created_at
		 FROM monthly_summaries WHERE owner_id = ?`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list monthly summaries: %w", err)
	}
	defer rows.Close()

	var all []core.MonthlySummary
	for rows.Next() {
		var s core.MonthlySummary
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Month, &s.Year, &s.Income.Cents, &s.Expenses.Cents, &s.Savings.Cents, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan monthly summary: %w", err)
		}
		all = append(all, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return core.SummaryWindow(all, months, time.Now().UTC()), nil
}

// CountMonthlySummaries reports how many summaries exist for an exact
// (owner, month, year) slot. Uniqueness is not enforced; callers use this
// to flag duplicates rather than dedupe them.
func (r *SQLiteRepository) CountMonthlySummaries(ctx context.Context, ownerID string, month, year int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM monthly_summaries WHERE owner_id = ? AND month = ? AND year = ?`,
		ownerID, month, year).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count monthly summaries: %w", err)
	}
	return n, nil
}

// --- health scores ---

func (r *SQLiteRepository) UpsertHealthScore(ctx context.Context, hs core.HealthScore) error {
	factors, err := json.Marshal(hs.Factors)
	if err != nil {
		return fmt.Errorf("marshal factors: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO health_scores (owner_id, score, factors, last_updated) VALUES (?, ?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET score = excluded.score, factors = excluded.factors, last_updated = excluded.last_updated`,
		hs.OwnerID, hs.Score, string(factors), hs.LastUpdated)
	if err != nil {
		return fmt.Errorf("upsert health score: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetHealthScore(ctx context.Context, ownerID string) (core.HealthScore, error) {
	var hs core.HealthScore
	var factors string
	err := r.db.QueryRowContext(ctx,
		`SELECT owner_id, score, factors, last_updated FROM health_scores WHERE owner_id = ?`,
		ownerID).Scan(&hs.OwnerID, &hs.Score, &factors, &hs.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return core.HealthScore{}, core.ErrNotFound
	}
	if err != nil {
		return core.HealthScore{}, fmt.Errorf("get health score: %w", err)
	}
	if factors != "" {
		if err := json.Unmarshal([]byte(factors), &hs.Factors); err != nil {
			return core.HealthScore{}, fmt.Errorf("unmarshal factors: %w", err)
		}
	}
	return hs, nil
}

// ListOwners returns every owner id that has at least one record, for the
// worker's scheduled refresh sweep.
func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner_id FROM income_streams
		 UNION SELECT owner_id FROM expenses
		 UNION SELECT owner_id FROM savings_goals
		 ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (core.SavingsGoal, error) {
	var g core.SavingsGoal
	var deadline sql.NullTime
	var priority string
	err := row.Scan(&g.ID, &g.OwnerID, &g.Name, &g.TargetAmount.Cents, &g.CurrentAmount.Cents,
		&deadline, &priority, &g.Category, &g.IsCompleted, &g.CreatedAt)
	if err != nil {
		return core.SavingsGoal{}, err
	}
	g.Priority = core.Priority(priority)
	if deadline.Valid {
		t := deadline.Time
		g.Deadline = &t
	}
	return g, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
