// Package ledger applies deposits, withdrawals and transfers to an account
// store and records each movement in the transaction log.
//
// Every operation that touches an account holds that account's lock from the
// balance read to the log append. Transfers lock both accounts in ascending
// number order.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bankledger/internal/auth"
	"bankledger/internal/core"
	"bankledger/internal/log"
	"bankledger/internal/storage"
)

// Observer is told about records after they are durably logged. It runs
// outside the account locks and cannot fail the operation.
type Observer interface {
	Committed(ctx context.Context, recs []core.TransactionRecord)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, recs []core.TransactionRecord)

func (f ObserverFunc) Committed(ctx context.Context, recs []core.TransactionRecord) { f(ctx, recs) }

// NumberGenerator proposes an account number. attempt grows by one after
// each collision with an existing account.
type NumberGenerator func(now time.Time, attempt int) string

// UnixNumbers derives the number from the last six digits of the Unix time.
func UnixNumbers(now time.Time, attempt int) string {
	return fmt.Sprintf("%06d", (now.Unix()+int64(attempt))%1_000_000)
}

// maxNumberProbes bounds CreateAccount's search for a free number.
const maxNumberProbes = 1000

type Option func(*Ledger)

func WithHasher(h auth.Hasher) Option {
	return func(l *Ledger) { l.hasher = h }
}

// WithClock replaces time.Now for record timestamps and account numbers.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithNumberGenerator(g NumberGenerator) Option {
	return func(l *Ledger) { l.numbers = g }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = logger.WithComponent(log.ComponentLedger) }
}

func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observers = append(l.observers, o) }
}

type Ledger struct {
	accounts storage.AccountStore
	txlog    storage.TransactionLog

	hasher    auth.Hasher
	now       func() time.Time
	numbers   NumberGenerator
	logger    *log.Logger
	observers []Observer

	locks lockTable
}

// New builds a ledger over the given store and log. The caller keeps
// ownership of both and closes them.
func New(accounts storage.AccountStore, txlog storage.TransactionLog, opts ...Option) *Ledger {
	l := &Ledger{
		accounts: accounts,
		txlog:    txlog,
		hasher:   auth.SHA256Hasher{},
		now:      time.Now,
		numbers:  UnixNumbers,
		logger: log.New(log.Config{
			Handler:   slog.Default().Handler(),
			Component: log.ComponentLedger,
		}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddObserver registers o for records committed from now on. It must not
// be called concurrently with ledger operations.
func (l *Ledger) AddObserver(o Observer) {
	l.observers = append(l.observers, o)
}

// timestamp matches the one-second resolution of the persisted layout so
// returned records equal what a replay yields.
func (l *Ledger) timestamp() time.Time {
	return l.now().Truncate(time.Second)
}

func (l *Ledger) notify(ctx context.Context, recs ...core.TransactionRecord) {
	for _, o := range l.observers {
		o.Committed(ctx, recs)
	}
}
