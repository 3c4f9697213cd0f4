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

	"finanzas/internal/core"
	"finanzas/internal/ports"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	dbPath string
}

var _ ports.Store = (*SQLiteRepository)(nil)

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

	return newRepository(db, dbPath), nil
}

// newRepository wraps an open, migrated database.
func newRepository(db *sql.DB, dbPath string) *SQLiteRepository {
	return &SQLiteRepository{db: db, dbPath: dbPath}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection and that the schema is not left dirty by a
// failed migration.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	_, dirty, err := SchemaVersion(r.dbPath)
	if err != nil {
		return err
	}
	if dirty {
		return errors.New("database schema is dirty")
	}
	return nil
}

const txColumns = `id, profile_id, type, segment, amount, currency, original_rate, amount_usd,
	category, description, date, rate_type, recurrence, expanded_until`

// created_at is read back as text so the value written is the value returned.
const txSelect = `SELECT ` + txColumns + `, CAST(created_at AS TEXT) FROM transactions`

func (r *SQLiteRepository) Insert(ctx context.Context, txs ...core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer dbtx.Rollback()

	stmt, err := dbtx.PrepareContext(ctx, `INSERT INTO transactions (`+txColumns+`, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(NULLIF(?, ''), CURRENT_TIMESTAMP))`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		if _, err := stmt.ExecContext(ctx,
			tx.ID, tx.ProfileID, string(tx.Type), string(tx.Segment), tx.Amount, string(tx.Currency),
			tx.OriginalRate, tx.AmountUSD, tx.Category, tx.Description, tx.Date,
			string(tx.RateType), string(tx.Recurrence), tx.ExpandedUntil, tx.CreatedAt); err != nil {
			return fmt.Errorf("insert transaction %s: %w", tx.ID, err)
		}
	}
	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}

	slog.DebugContext(ctx, "Transactions saved to SQLite", "count", len(txs))
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET
			type = ?, segment = ?, amount = ?, currency = ?, original_rate = ?, amount_usd = ?,
			category = ?, description = ?, date = ?, rate_type = ?, recurrence = ?, expanded_until = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND profile_id = ?`,
		string(tx.Type), string(tx.Segment), tx.Amount, string(tx.Currency), tx.OriginalRate, tx.AmountUSD,
		tx.Category, tx.Description, tx.Date, string(tx.RateType), string(tx.Recurrence), tx.ExpandedUntil,
		tx.ID, tx.ProfileID)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, profileID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, txSelect+` WHERE id = ? AND profile_id = ?`, id, profileID)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, profileID string, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, profileID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE profile_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete transactions: %w", err)
	}

	slog.InfoContext(ctx, "Transactions deleted", "requested", len(ids), "deleted", n)
	return int(n), nil
}

func (r *SQLiteRepository) List(ctx context.Context, profileID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		txSelect+` WHERE profile_id = ? ORDER BY date DESC, id ASC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return scanTransactions(rows)
}

// ListRecurring returns the recurring transactions of every profile.
func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		txSelect+` WHERE recurrence NOT IN ('', ?) ORDER BY profile_id ASC, date ASC, id ASC`, string(core.RecurNone))
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// DataVersion returns the change counter kept by triggers on every table
// the reports read. Writes from any process move it forward.
func (r *SQLiteRepository) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := r.db.QueryRowContext(ctx, `SELECT version FROM change_counter WHERE id = 1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read data version: %w", err)
	}
	return v, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		tx                                  core.Transaction
		typ, seg, cur, rateType, recurrence string
	)
	err := s.Scan(&tx.ID, &tx.ProfileID, &typ, &seg, &tx.Amount, &cur, &tx.OriginalRate, &tx.AmountUSD,
		&tx.Category, &tx.Description, &tx.Date, &rateType, &recurrence, &tx.ExpandedUntil, &tx.CreatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	tx.Segment = core.Segment(seg)
	tx.Currency = core.Currency(cur)
	tx.RateType = core.RateType(rateType)
	tx.Recurrence = core.RecurrenceRule(recurrence)
	return tx, nil
}

func (r *SQLiteRepository) Budgets(ctx context.Context, profileID string) (core.Budgets, error) {
	m, err := r.readLimits(ctx, `SELECT category, limit_usd FROM budgets WHERE profile_id = ?`, profileID)
	if err != nil {
		return nil, fmt.Errorf("get budgets: %w", err)
	}
	return core.Budgets(m), nil
}

func (r *SQLiteRepository) SetBudget(ctx context.Context, profileID, category string, limit float64) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO budgets (profile_id, category, limit_usd) VALUES (?, ?, ?)
		ON CONFLICT (profile_id, category) DO UPDATE SET limit_usd = excluded.limit_usd`,
		profileID, category, limit)
	if err != nil {
		return fmt.Errorf("set budget %s: %w", category, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, profileID, category string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE profile_id = ? AND category = ?`, profileID, category)
	if err != nil {
		return fmt.Errorf("delete budget %s: %w", category, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Goals(ctx context.Context, profileID string) (core.SavingsGoals, error) {
	m, err := r.readLimits(ctx, `SELECT category, target_usd FROM savings_goals WHERE profile_id = ?`, profileID)
	if err != nil {
		return nil, fmt.Errorf("get savings goals: %w", err)
	}
	return core.SavingsGoals(m), nil
}

func (r *SQLiteRepository) SetGoal(ctx context.Context, profileID, category string, target float64) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO savings_goals (profile_id, category, target_usd) VALUES (?, ?, ?)
		ON CONFLICT (profile_id, category) DO UPDATE SET target_usd = excluded.target_usd`,
		profileID, category, target)
	if err != nil {
		return fmt.Errorf("set goal %s: %w", category, err)
	}
	return nil
}

func (r *SQLiteRepository) readLimits(ctx context.Context, query, profileID string) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, query, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var (
			cat string
			v   float64
		)
		if err := rows.Scan(&cat, &v); err != nil {
			return nil, err
		}
		out[cat] = v
	}
	return out, rows.Err()
}

// LatestRates returns the most recent snapshot, or zero rates when none
// has been recorded yet.
func (r *SQLiteRepository) LatestRates(ctx context.Context) (core.Rates, error) {
	var rates core.Rates
	err := r.db.QueryRowContext(ctx,
		`SELECT bcv, parallel, eur, eur_cross FROM rate_snapshots ORDER BY id DESC LIMIT 1`).
		Scan(&rates.BCV, &rates.Parallel, &rates.EUR, &rates.EURCross)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Rates{}, nil
	}
	if err != nil {
		return core.Rates{}, fmt.Errorf("get latest rates: %w", err)
	}
	return rates, nil
}

func (r *SQLiteRepository) SaveRates(ctx context.Context, rates core.Rates) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rate_snapshots (bcv, parallel, eur, eur_cross) VALUES (?, ?, ?, ?)`,
		rates.BCV, rates.Parallel, rates.EUR, rates.EURCross)
	if err != nil {
		return fmt.Errorf("save rates: %w", err)
	}

	slog.InfoContext(ctx, "Rate snapshot saved",
		"bcv", rates.BCV,
		"parallel", rates.Parallel,
		"eur", rates.EUR)
	return nil
}
