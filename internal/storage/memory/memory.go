// Package memory implements the ledger ports in process memory. Nothing is
// persisted; it backs tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"bankledger/internal/core"
	"bankledger/internal/storage"
)

var (
	_ storage.AccountStore   = (*Store)(nil)
	_ storage.BatchUpdater   = (*Store)(nil)
	_ storage.TransactionLog = (*Log)(nil)
)

type Store struct {
	mu       sync.Mutex
	accounts map[string]core.Account
	closed   bool
}

func NewStore(seed ...core.Account) *Store {
	s := &Store{accounts: make(map[string]core.Account)}
	for _, a := range seed {
		s.accounts[a.Number] = a
	}
	return s
}

func (s *Store) Create(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	if _, ok := s.accounts[a.Number]; ok {
		return fmt.Errorf("%w: %s", core.ErrDuplicateAccount, a.Number)
	}
	s.accounts[a.Number] = a
	return nil
}

func (s *Store) Find(_ context.Context, number string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.Account{}, storage.ErrClosed
	}
	a, ok := s.accounts[number]
	if !ok {
		return core.Account{}, fmt.Errorf("%w: %s", core.ErrAccountNotFound, number)
	}
	return a, nil
}

func (s *Store) Exists(ctx context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, storage.ErrClosed
	}
	_, ok := s.accounts[number]
	return ok, nil
}

func (s *Store) List(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, storage.ErrClosed
	}
	out := make([]core.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *Store) UpdateBalance(ctx context.Context, number string, balance decimal.Decimal) error {
	return s.UpdateBalances(ctx, map[string]decimal.Decimal{number: balance})
}

func (s *Store) UpdateBalances(_ context.Context, balances map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	for n := range balances {
		if _, ok := s.accounts[n]; !ok {
			return fmt.Errorf("%w: %s", core.ErrAccountNotFound, n)
		}
	}
	for n, b := range balances {
		a := s.accounts[n]
		a.Balance = b
		s.accounts[n] = a
	}
	return nil
}

func (s *Store) UpdateProfile(_ context.Context, number, name, credentialHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return storage.ErrClosed
	}
	a, ok := s.accounts[number]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrAccountNotFound, number)
	}
	if name != "" {
		a.Name = name
	}
	if credentialHash != "" {
		a.CredentialHash = credentialHash
	}
	if err := a.Validate(); err != nil {
		return err
	}
	s.accounts[number] = a
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Log is an append-only slice of records.
type Log struct {
	mu     sync.Mutex
	items  []core.TransactionRecord
	closed bool
}

func NewLog() *Log { return &Log{} }

func (l *Log) Append(_ context.Context, recs ...core.TransactionRecord) error {
	for _, r := range recs {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return storage.ErrClosed
	}
	l.items = append(l.items, recs...)
	return nil
}

// Len returns the number of records appended so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

func (l *Log) ForAccount(ctx context.Context, number string) iter.Seq2[core.TransactionRecord, error] {
	return l.replay(ctx, func(r core.TransactionRecord) bool { return r.AccountNumber == number })
}

func (l *Log) ForAccountInMonth(ctx context.Context, number string, ym core.YearMonth) iter.Seq2[core.TransactionRecord, error] {
	return l.replay(ctx, func(r core.TransactionRecord) bool {
		return r.AccountNumber == number && ym.Contains(r.Timestamp)
	})
}

func (l *Log) replay(ctx context.Context, keep func(core.TransactionRecord) bool) iter.Seq2[core.TransactionRecord, error] {
	return func(yield func(core.TransactionRecord, error) bool) {
		l.mu.Lock()
		closed := l.closed
		snapshot := append([]core.TransactionRecord(nil), l.items...)
		l.mu.Unlock()
		if closed {
			yield(core.TransactionRecord{}, storage.ErrClosed)
			return
		}
		for _, r := range snapshot {
			if err := ctx.Err(); err != nil {
				yield(core.TransactionRecord{}, err)
				return
			}
			if keep(r) && !yield(r, nil) {
				return
			}
		}
	}
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
