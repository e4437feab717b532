package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"finadvisor/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row addressed by ID does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteRepository persists bills, expenses, balance snapshots and the
// reminder log.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateBill validates and stores b, returning it with its new ID.
func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	b.Name = strings.TrimSpace(b.Name)
	if err := b.Validate(); err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (name, due_date, amount_cents, every, last_paid) VALUES (?, ?, ?, ?, ?)`,
		b.Name, b.DueDate.String(), b.Amount.Cents, string(b.Every), nullDate(b.LastPaid))
	if err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill saved to SQLite",
		"id", b.ID,
		"name", b.Name,
		"due_date", b.DueDate.String(),
		"amount_cents", b.Amount.Cents,
		"every", b.Every)

	return b, nil
}

// GetBill returns the stored bill. DueDate is the anchor date as entered.
func (r *SQLiteRepository) GetBill(ctx context.Context, id int64) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, due_date, amount_cents, every, last_paid FROM bills WHERE id = ?`, id)
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, fmt.Errorf("get bill %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %d: %w", id, err)
	}
	return b, nil
}

// ListBills returns every bill, paid one-offs included, with DueDate moved
// to the occurrence awaiting payment.
func (r *SQLiteRepository) ListBills(ctx context.Context) ([]core.Bill, error) {
	return r.listBills(ctx, `SELECT id, name, due_date, amount_cents, every, last_paid FROM bills ORDER BY id`)
}

// ListActiveBills returns the bills still awaiting payment, with DueDate
// moved to the occurrence awaiting payment.
func (r *SQLiteRepository) ListActiveBills(ctx context.Context) ([]core.Bill, error) {
	return r.listBills(ctx, `SELECT id, name, due_date, amount_cents, every, last_paid FROM bills WHERE paid = 0 ORDER BY id`)
}

func (r *SQLiteRepository) listBills(ctx context.Context, query string) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var bills []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		due, err := core.CurrentDueDate(b)
		if err != nil {
			slog.WarnContext(ctx, "Skipping bill with invalid recurrence", "id", b.ID, "error", err)
			continue
		}
		b.DueDate = due
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return bills, nil
}

// PayBill settles the occurrence currently awaiting payment. A recurring
// bill moves on to its next occurrence; a one-off bill stops being active.
// It returns the bill as it now stands.
func (r *SQLiteRepository) PayBill(ctx context.Context, id int64) (core.Bill, error) {
	b, err := r.GetBill(ctx, id)
	if err != nil {
		return core.Bill{}, err
	}
	due, err := core.CurrentDueDate(b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("pay bill %d: %w", id, err)
	}

	if b.IsRecurring() {
		_, err = r.db.ExecContext(ctx, `UPDATE bills SET last_paid = ? WHERE id = ?`, due.String(), id)
	} else {
		_, err = r.db.ExecContext(ctx, `UPDATE bills SET last_paid = ?, paid = 1 WHERE id = ?`, due.String(), id)
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("pay bill %d: %w", id, err)
	}

	b.LastPaid = due
	if b.IsRecurring() {
		if b.DueDate, err = core.CurrentDueDate(b); err != nil {
			return core.Bill{}, fmt.Errorf("pay bill %d: %w", id, err)
		}
	}

	slog.InfoContext(ctx, "Bill paid",
		"id", id,
		"paid_occurrence", due.String(),
		"next_due", b.DueDate.String(),
		"recurring", b.IsRecurring())

	return b, nil
}

// DeleteBill removes a bill and its reminder history.
func (r *SQLiteRepository) DeleteBill(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete bill %d: %w", id, ErrNotFound)
	}
	return nil
}

// CreateExpense validates and stores e, returning it with its new ID.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	if err := e.Date.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (date, description, amount_cents, category) VALUES (?, ?, ?, ?)`,
		e.Date.String(), e.Description, e.Amount.Cents, string(e.Category))
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())

	return e, nil
}

// ListExpenses returns expenses dated on or after since, oldest first. A
// zero since returns all expenses.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, since core.Date) ([]core.Expense, error) {
	from := ""
	if !since.IsEmpty() {
		from = since.String()
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, description, amount_cents, category FROM expenses WHERE date >= ? ORDER BY date, id`, from)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		var (
			e        core.Expense
			date     string
			category string
		)
		if err := rows.Scan(&e.ID, &date, &e.Description, &e.Amount.Cents, &category); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("expense %d: %w", e.ID, err)
		}
		e.Category = core.Category(category)
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

// RecordBalance stores a new balance snapshot.
func (r *SQLiteRepository) RecordBalance(ctx context.Context, balance core.Money) error {
	if err := balance.Validate(); err != nil {
		return fmt.Errorf("record balance: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `INSERT INTO balance_snapshots (amount_cents) VALUES (?)`, balance.Cents); err != nil {
		return fmt.Errorf("record balance: %w", err)
	}
	slog.InfoContext(ctx, "Balance snapshot recorded", "amount_cents", balance.Cents)
	return nil
}

// LatestBalance returns the most recent snapshot, or zero when none exists.
func (r *SQLiteRepository) LatestBalance(ctx context.Context) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT amount_cents FROM balance_snapshots ORDER BY id DESC LIMIT 1`).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Money{}, nil
	}
	if err != nil {
		return core.Money{}, fmt.Errorf("latest balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

// ReminderSent reports whether a reminder for billID was logged on day.
func (r *SQLiteRepository) ReminderSent(ctx context.Context, billID int64, day core.Date) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminder_log WHERE bill_id = ? AND day = ?`, billID, day.String()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check reminder log: %w", err)
	}
	return n > 0, nil
}

// RecordReminder logs a reminder for billID on day. Logging the same bill
// and day twice is a no-op.
func (r *SQLiteRepository) RecordReminder(ctx context.Context, billID int64, day core.Date, status string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reminder_log (bill_id, day, status) VALUES (?, ?, ?) ON CONFLICT (bill_id, day) DO NOTHING`,
		billID, day.String(), status)
	if err != nil {
		return fmt.Errorf("record reminder: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBill(s scanner) (core.Bill, error) {
	var (
		b        core.Bill
		due      string
		every    string
		lastPaid sql.NullString
	)
	if err := s.Scan(&b.ID, &b.Name, &due, &b.Amount.Cents, &every, &lastPaid); err != nil {
		return core.Bill{}, err
	}
	var err error
	if b.DueDate, err = core.ParseDate(due); err != nil {
		return core.Bill{}, err
	}
	if lastPaid.Valid && lastPaid.String != "" {
		if b.LastPaid, err = core.ParseDate(lastPaid.String); err != nil {
			return core.Bill{}, err
		}
	}
	b.Every = core.RepetitionTypes(every)
	return b, nil
}

func nullDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
