// Package file implements the ledger ports on top of two flat files: an
// account table rewritten atomically on every change and an append-only
// transaction log.
package file

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"bankledger/internal/codec"
	"bankledger/internal/core"
	"bankledger/internal/storage"
)

var (
	_ storage.AccountStore = (*AccountStore)(nil)
	_ storage.BatchUpdater = (*AccountStore)(nil)
)

// AccountStore keeps one account per line. Every update is a
// read-modify-write-swap sequence run under a store-wide lock.
type AccountStore struct {
	path string

	mu     sync.Mutex
	closed bool
}

// row is one line of the account file. Lines that do not decode are kept
// verbatim so a rewrite never destroys data it does not understand.
type row struct {
	raw     string
	account core.Account
	ok      bool
}

// OpenAccounts opens the account file at path, creating it when missing.
func OpenAccounts(path string) (*AccountStore, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open account file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close account file: %w", err)
	}
	return &AccountStore{path: path}, nil
}

// Path returns the account file location.
func (s *AccountStore) Path() string { return s.path }

func (s *AccountStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *AccountStore) Create(ctx context.Context, a core.Account) error {
	line, err := codec.EncodeAccount(a)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	rows, err := s.load(ctx)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if r.ok && r.account.Number == a.Number {
			return fmt.Errorf("%w: %s", core.ErrDuplicateAccount, a.Number)
		}
	}

	prefix := ""
	if missing, err := needsNewline(s.path); err != nil {
		return fmt.Errorf("inspect account file: %w", err)
	} else if missing {
		prefix = "\n"
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open account file: %w", err)
	}
	if _, err := f.WriteString(prefix + line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append account: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync account file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close account file: %w", err)
	}

	slog.InfoContext(ctx, "Account saved to file", "account", a.Number, "path", s.path)
	return nil
}

func (s *AccountStore) Find(ctx context.Context, number string) (core.Account, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return core.Account{}, err
	}
	defer unlock()

	rows, err := s.load(ctx)
	if err != nil {
		return core.Account{}, err
	}
	for _, r := range rows {
		if r.ok && r.account.Number == number {
			return r.account, nil
		}
	}
	return core.Account{}, fmt.Errorf("%w: %s", core.ErrAccountNotFound, number)
}

func (s *AccountStore) Exists(ctx context.Context, number string) (bool, error) {
	_, err := s.Find(ctx, number)
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// List returns all accounts ordered by account number.
func (s *AccountStore) List(ctx context.Context) ([]core.Account, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.Account, 0, len(rows))
	for _, r := range rows {
		if r.ok {
			out = append(out, r.account)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (s *AccountStore) UpdateBalance(ctx context.Context, number string, balance decimal.Decimal) error {
	return s.UpdateBalances(ctx, map[string]decimal.Decimal{number: balance})
}

// UpdateBalances changes every listed balance in a single swap of the file.
func (s *AccountStore) UpdateBalances(ctx context.Context, balances map[string]decimal.Decimal) error {
	return s.rewrite(ctx, keys(balances), func(a *core.Account) {
		a.Balance = balances[a.Number]
	})
}

func (s *AccountStore) UpdateProfile(ctx context.Context, number, name, credentialHash string) error {
	return s.rewrite(ctx, []string{number}, func(a *core.Account) {
		if name != "" {
			a.Name = name
		}
		if credentialHash != "" {
			a.CredentialHash = credentialHash
		}
	})
}

// rewrite applies change to every account listed in numbers and swaps the
// file. Nothing is written unless every number exists.
func (s *AccountStore) rewrite(ctx context.Context, numbers []string, change func(a *core.Account)) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	rows, err := s.load(ctx)
	if err != nil {
		return err
	}

	wanted := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		wanted[n] = false
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		if !r.ok {
			lines = append(lines, r.raw)
			continue
		}
		if _, ok := wanted[r.account.Number]; !ok {
			lines = append(lines, r.raw)
			continue
		}
		a := r.account
		change(&a)
		line, err := codec.EncodeAccount(a)
		if err != nil {
			return fmt.Errorf("encode account %s: %w", a.Number, err)
		}
		lines = append(lines, line)
		wanted[a.Number] = true
	}
	for _, n := range numbers {
		if !wanted[n] {
			return fmt.Errorf("%w: %s", core.ErrAccountNotFound, n)
		}
	}

	if err := writeAtomic(s.path, lines); err != nil {
		return fmt.Errorf("rewrite account file: %w", err)
	}
	slog.DebugContext(ctx, "Account file rewritten", "path", s.path, "accounts", numbers)
	return nil
}

func (s *AccountStore) lock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, storage.ErrClosed
	}
	return s.mu.Unlock, nil
}

// load reads the whole table. Must be called with s.mu held.
func (s *AccountStore) load(ctx context.Context) ([]row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open account file: %w", err)
	}
	defer f.Close()

	var rows []row
	err = scanLines(f, func(n int, line string) bool {
		a, err := codec.DecodeAccount(line)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed account record",
				"path", s.path, "line", n, "error", err)
			rows = append(rows, row{raw: line})
			return true
		}
		rows = append(rows, row{raw: line, account: a, ok: true})
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("read account file: %w", err)
	}
	return rows, nil
}

func keys(m map[string]decimal.Decimal) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
