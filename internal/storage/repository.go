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
	"time"

	"contas/internal/core"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable Store backed by a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
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

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const billColumns = `id, description, amount_cents, due_date, payment_date, method,
	bank, notes, frequency, status, group_id, installment_index, installment_count,
	created_at, updated_at`

func (r *SQLiteRepository) List(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills ORDER BY due_date, id`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	return scanBills(rows)
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = ?`, id)

	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Bill{}, core.ErrNotFound
	}
	if err != nil {
		return core.Bill{}, fmt.Errorf("get bill %s: %w", id, err)
	}
	return b, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, b core.Bill) (core.Bill, error) {
	b.ID = uuid.NewString()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := r.exec(ctx, r.db, insertSQL, insertArgs(b)...); err != nil {
		return core.Bill{}, fmt.Errorf("insert bill: %w", err)
	}

	slog.InfoContext(ctx, "Bill saved to SQLite",
		"id", b.ID,
		"description", b.Description,
		"amount_cents", b.Amount.Cents,
		"due_date", b.DueDate.String())

	return b, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, p Patch) (core.Bill, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return core.Bill{}, err
	}

	b := p.Apply(current)
	b.UpdatedAt = time.Now().UTC()

	if err := r.exec(ctx, r.db, updateSQL, updateArgs(b)...); err != nil {
		return core.Bill{}, fmt.Errorf("update bill %s: %w", id, err)
	}
	return b, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete bill %s: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListByGroup(ctx context.Context, groupID string) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+billColumns+` FROM bills WHERE group_id = ? ORDER BY installment_index`,
		groupID)
	if err != nil {
		return nil, fmt.Errorf("list group %s: %w", groupID, err)
	}
	defer rows.Close()

	return scanBills(rows)
}

// InsertGroup writes all installments of a plan inside one transaction so a
// partial group is never observable.
func (r *SQLiteRepository) InsertGroup(ctx context.Context, bills []core.Bill) ([]core.Bill, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin group insert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	out := make([]core.Bill, 0, len(bills))
	for _, b := range bills {
		b.ID = uuid.NewString()
		b.CreatedAt = now
		b.UpdatedAt = now
		if err := r.exec(ctx, tx, insertSQL, insertArgs(b)...); err != nil {
			return nil, fmt.Errorf("insert installment %d: %w", b.InstallmentIndex, err)
		}
		out = append(out, b)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit group insert: %w", err)
	}

	slog.InfoContext(ctx, "Installment group saved",
		"group_id", out[0].GroupID,
		"installments", len(out))

	return out, nil
}

// ApplyCascade marks one bill paid and deletes its consumed future siblings
// in a single transaction.
func (r *SQLiteRepository) ApplyCascade(ctx context.Context, paid core.Bill, deleteIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cascade: %w", err)
	}
	defer tx.Rollback()

	paid.UpdatedAt = time.Now().UTC()
	if err := r.exec(ctx, tx, updateSQL, updateArgs(paid)...); err != nil {
		return fmt.Errorf("apply payment %s: %w", paid.ID, err)
	}

	for _, id := range deleteIDs {
		res, err := tx.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("cascade delete %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("cascade delete %s: %w", id, core.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cascade: %w", err)
	}

	slog.InfoContext(ctx, "Payment cascade applied",
		"id", paid.ID,
		"group_id", paid.GroupID,
		"deleted", len(deleteIDs))

	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) exec(ctx context.Context, e execer, query string, args ...any) error {
	_, err := e.ExecContext(ctx, query, args...)
	return err
}

const insertSQL = `INSERT INTO bills (` + billColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateSQL = `UPDATE bills SET description = ?, amount_cents = ?, due_date = ?,
	payment_date = ?, method = ?, bank = ?, notes = ?, frequency = ?, status = ?,
	group_id = ?, installment_index = ?, installment_count = ?, updated_at = ?
	WHERE id = ?`

func insertArgs(b core.Bill) []any {
	return []any{
		b.ID, b.Description, b.Amount.Cents, b.DueDate.String(),
		nullDate(b.PaymentDate), string(b.Method), b.Bank, b.Notes,
		string(b.Frequency), string(b.Status), nullString(b.GroupID),
		nullInt(b.InstallmentIndex), nullInt(b.InstallmentCount),
		b.CreatedAt, b.UpdatedAt,
	}
}

func updateArgs(b core.Bill) []any {
	return []any{
		b.Description, b.Amount.Cents, b.DueDate.String(),
		nullDate(b.PaymentDate), string(b.Method), b.Bank, b.Notes,
		string(b.Frequency), string(b.Status), nullString(b.GroupID),
		nullInt(b.InstallmentIndex), nullInt(b.InstallmentCount),
		b.UpdatedAt, b.ID,
	}
}

func nullDate(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBill(row rowScanner) (core.Bill, error) {
	var (
		b           core.Bill
		dueDate     string
		paymentDate sql.NullString
		method      string
		frequency   string
		status      string
		groupID     sql.NullString
		index       sql.NullInt64
		count       sql.NullInt64
	)

	err := row.Scan(&b.ID, &b.Description, &b.Amount.Cents, &dueDate, &paymentDate,
		&method, &b.Bank, &b.Notes, &frequency, &status, &groupID, &index, &count,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return core.Bill{}, err
	}

	b.DueDate, err = core.ParseDate(strings.TrimSpace(dueDate))
	if err != nil {
		return core.Bill{}, fmt.Errorf("stored due date %q: %w", dueDate, err)
	}
	if paymentDate.Valid && paymentDate.String != "" {
		b.PaymentDate, err = core.ParseDate(paymentDate.String)
		if err != nil {
			return core.Bill{}, fmt.Errorf("stored payment date %q: %w", paymentDate.String, err)
		}
	}
	b.Method = core.PaymentMethod(method)
	b.Frequency = core.Frequency(frequency)
	b.Status = core.Status(status)
	b.GroupID = groupID.String
	b.InstallmentIndex = int(index.Int64)
	b.InstallmentCount = int(count.Int64)

	return b, nil
}

func scanBills(rows *sql.Rows) ([]core.Bill, error) {
	var out []core.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bills: %w", err)
	}
	return out, nil
}
