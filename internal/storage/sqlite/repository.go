// Package sqlite stores accounts and transactions in a SQLite database.
// Money columns hold the canonical two-decimal text so values round-trip
// exactly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"bankledger/internal/codec"
	"bankledger/internal/core"
	"bankledger/internal/storage"

	_ "modernc.org/sqlite"
)

var (
	_ storage.AccountStore   = (*Repository)(nil)
	_ storage.BatchUpdater   = (*Repository)(nil)
	_ storage.TransactionLog = (*Repository)(nil)
)

// Repository implements both the account store and the transaction log on
// one database handle.
type Repository struct {
	db      *sql.DB
	queries *Queries
	closed  atomic.Bool
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, queries: New(db)}, nil
}

// Close is safe to call more than once; the backend hands the same
// repository out as both store and log.
func (r *Repository) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.db.Close()
}

func (r *Repository) Create(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if r.closed.Load() {
		return storage.ErrClosed
	}
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.CountAccount(ctx, a.Number)
		if err != nil {
			return fmt.Errorf("check account: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("%w: %s", core.ErrDuplicateAccount, a.Number)
		}
		return q.CreateAccount(ctx, AccountRow{
			Number:         a.Number,
			Name:           a.Name,
			CredentialHash: a.CredentialHash,
			Balance:        core.FormatAmount(a.Balance),
		})
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Account saved to SQLite", "account", a.Number)
	return nil
}

func (r *Repository) Find(ctx context.Context, number string) (core.Account, error) {
	if r.closed.Load() {
		return core.Account{}, storage.ErrClosed
	}
	row, err := r.queries.GetAccount(ctx, number)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("%w: %s", core.ErrAccountNotFound, number)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return accountFromRow(row)
}

func (r *Repository) Exists(ctx context.Context, number string) (bool, error) {
	if r.closed.Load() {
		return false, storage.ErrClosed
	}
	n, err := r.queries.CountAccount(ctx, number)
	if err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return n > 0, nil
}

func (r *Repository) List(ctx context.Context) ([]core.Account, error) {
	if r.closed.Load() {
		return nil, storage.ErrClosed
	}
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, 0, len(rows))
	for _, row := range rows {
		a, err := accountFromRow(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed account row", "account", row.Number, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Repository) UpdateBalance(ctx context.Context, number string, balance decimal.Decimal) error {
	return r.UpdateBalances(ctx, map[string]decimal.Decimal{number: balance})
}

// UpdateBalances applies every change in one SQL transaction.
func (r *Repository) UpdateBalances(ctx context.Context, balances map[string]decimal.Decimal) error {
	if r.closed.Load() {
		return storage.ErrClosed
	}
	return r.inTx(ctx, func(q *Queries) error {
		for number, b := range balances {
			n, err := q.UpdateBalance(ctx, number, core.FormatAmount(b))
			if err != nil {
				return fmt.Errorf("update balance: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", core.ErrAccountNotFound, number)
			}
		}
		return nil
	})
}

func (r *Repository) UpdateProfile(ctx context.Context, number, name, credentialHash string) error {
	if err := core.ValidateField("name", name); err != nil {
		return err
	}
	if err := core.ValidateField("credential", credentialHash); err != nil {
		return err
	}
	if r.closed.Load() {
		return storage.ErrClosed
	}
	n, err := r.queries.UpdateProfile(ctx, number, name, credentialHash)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrAccountNotFound, number)
	}
	return nil
}

// Append inserts all records in one SQL transaction.
func (r *Repository) Append(ctx context.Context, recs ...core.TransactionRecord) error {
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			return err
		}
	}
	if r.closed.Load() {
		return storage.ErrClosed
	}
	return r.inTx(ctx, func(q *Queries) error {
		for _, rec := range recs {
			if err := q.InsertTransaction(ctx, TransactionRow{
				AccountNumber: rec.AccountNumber,
				Type:          rec.Type.String(),
				Amount:        core.FormatAmount(rec.Amount),
				BalanceAfter:  core.FormatAmount(rec.BalanceAfter),
				OccurredAt:    rec.Timestamp.Format(codec.TimestampLayout),
				Category:      rec.Category,
			}); err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}
		}
		return nil
	})
}

func (r *Repository) ForAccount(ctx context.Context, number string) iter.Seq2[core.TransactionRecord, error] {
	return r.replay(ctx, func() ([]TransactionRow, error) {
		return r.queries.TransactionsForAccount(ctx, number)
	})
}

func (r *Repository) ForAccountInMonth(ctx context.Context, number string, ym core.YearMonth) iter.Seq2[core.TransactionRecord, error] {
	from := time.Date(ym.Year, ym.Month, 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 1, 0)
	return r.replay(ctx, func() ([]TransactionRow, error) {
		return r.queries.TransactionsInRange(ctx, number,
			from.Format(codec.TimestampLayout), to.Format(codec.TimestampLayout))
	})
}

// replay loads the rows before yielding so the single connection is free
// while the caller handles each record.
func (r *Repository) replay(ctx context.Context, load func() ([]TransactionRow, error)) iter.Seq2[core.TransactionRecord, error] {
	return func(yield func(core.TransactionRecord, error) bool) {
		if r.closed.Load() {
			yield(core.TransactionRecord{}, storage.ErrClosed)
			return
		}
		rows, err := load()
		if err != nil {
			yield(core.TransactionRecord{}, fmt.Errorf("query transactions: %w", err))
			return
		}
		for _, row := range rows {
			rec, err := transactionFromRow(row)
			if err != nil {
				slog.WarnContext(ctx, "Skipping malformed transaction row", "id", row.ID, "error", err)
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

func (r *Repository) inTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func accountFromRow(row AccountRow) (core.Account, error) {
	balance, err := core.ParseBalance(row.Balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("%w: balance %q", core.ErrMalformedRecord, row.Balance)
	}
	return core.Account{
		Number:         row.Number,
		Name:           row.Name,
		CredentialHash: row.CredentialHash,
		Balance:        balance,
	}, nil
}

func transactionFromRow(row TransactionRow) (core.TransactionRecord, error) {
	typ, err := core.ParseTxType(row.Type)
	if err != nil {
		return core.TransactionRecord{}, err
	}
	amount, err := core.ParseBalance(row.Amount)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("%w: amount %q", core.ErrMalformedRecord, row.Amount)
	}
	after, err := core.ParseBalance(row.BalanceAfter)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("%w: balance %q", core.ErrMalformedRecord, row.BalanceAfter)
	}
	ts, err := time.ParseInLocation(codec.TimestampLayout, row.OccurredAt, time.Local)
	if err != nil {
		return core.TransactionRecord{}, fmt.Errorf("%w: timestamp %q", core.ErrMalformedRecord, row.OccurredAt)
	}
	return core.TransactionRecord{
		AccountNumber: row.AccountNumber,
		Type:          typ,
		Amount:        amount,
		BalanceAfter:  after,
		Timestamp:     ts,
		Category:      row.Category,
	}, nil
}
