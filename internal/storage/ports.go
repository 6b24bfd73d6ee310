// Package storage declares the ports of the ledger's persistence layer.
// Backends live in sub-packages (file, sqlite, memory).
package storage

import (
	"context"
	"errors"
	"iter"

	"github.com/shopspring/decimal"

	"bankledger/internal/core"
)

// ErrClosed is returned by operations on a closed store or log.
var ErrClosed = errors.New("storage closed")

// Ports for persistence adapters.
type (
	// AccountStore owns the authoritative account records. Every method
	// returns value snapshots.
	AccountStore interface {
		// Create adds a new account. Fails with core.ErrDuplicateAccount when
		// the number is already taken.
		Create(ctx context.Context, a core.Account) error
		// Find returns the account or core.ErrAccountNotFound.
		Find(ctx context.Context, number string) (core.Account, error)
		Exists(ctx context.Context, number string) (bool, error)
		List(ctx context.Context) ([]core.Account, error)
		// UpdateBalance replaces one balance. Fails with core.ErrAccountNotFound.
		UpdateBalance(ctx context.Context, number string, balance decimal.Decimal) error
		// UpdateProfile replaces name and credential hash; empty values keep
		// the stored ones.
		UpdateProfile(ctx context.Context, number, name, credentialHash string) error
		Close() error
	}

	// BatchUpdater is implemented by stores able to change several balances
	// in one atomic step. Either every balance changes or none does.
	BatchUpdater interface {
		UpdateBalances(ctx context.Context, balances map[string]decimal.Decimal) error
	}

	// TransactionLog is the append-only transaction history.
	TransactionLog interface {
		// Append writes the records in order. Existing records are never
		// rewritten.
		Append(ctx context.Context, recs ...core.TransactionRecord) error
		// ForAccount replays the account's records in append order. Malformed
		// entries are skipped; read failures are yielded and end the sequence.
		ForAccount(ctx context.Context, number string) iter.Seq2[core.TransactionRecord, error]
		// ForAccountInMonth is ForAccount restricted to one calendar month.
		ForAccountInMonth(ctx context.Context, number string, ym core.YearMonth) iter.Seq2[core.TransactionRecord, error]
		Close() error
	}
)
