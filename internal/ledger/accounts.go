package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bankledger/internal/core"
	"bankledger/internal/log"
)

// CreateAccount opens an account with a fresh six-digit number. The opening
// balance is stored on the account only; no transaction is logged for it.
func (l *Ledger) CreateAccount(ctx context.Context, name string, initialBalance decimal.Decimal, password string) (core.Account, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateField("name", name); err != nil {
		return core.Account{}, err
	}
	if initialBalance.IsNegative() {
		return core.Account{}, fmt.Errorf("%w: opening balance must not be negative", core.ErrInvalidAmount)
	}
	hash, err := l.hasher.Hash(password)
	if err != nil {
		return core.Account{}, fmt.Errorf("hash password: %w", err)
	}

	a := core.Account{
		Name:           name,
		CredentialHash: hash,
		Balance:        core.RoundAmount(initialBalance),
	}
	now := l.now()
	for attempt := 0; attempt < maxNumberProbes; attempt++ {
		a.Number = l.numbers(now, attempt)
		err := l.accounts.Create(ctx, a)
		if errors.Is(err, core.ErrDuplicateAccount) {
			continue
		}
		if err != nil {
			return core.Account{}, fmt.Errorf("create account: %w", err)
		}

		l.logger.InfoContext(ctx, "Account created",
			log.FieldAccount, a.Number,
			log.FieldBalance, core.FormatAmount(a.Balance))
		return a, nil
	}
	return core.Account{}, fmt.Errorf("%w: no free account number after %d attempts", core.ErrDuplicateAccount, maxNumberProbes)
}

// Authenticate checks one password attempt. Unknown accounts and wrong
// passwords both yield core.ErrAuthFailed.
func (l *Ledger) Authenticate(ctx context.Context, number, password string) (core.Account, error) {
	a, err := l.accounts.Find(ctx, strings.TrimSpace(number))
	if errors.Is(err, core.ErrAccountNotFound) {
		l.logger.WarnContext(ctx, "Login failed", log.FieldAccount, number, "reason", "unknown account")
		return core.Account{}, core.ErrAuthFailed
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("authenticate: %w", err)
	}
	if !l.hasher.Verify(a.CredentialHash, password) {
		l.logger.WarnContext(ctx, "Login failed", log.FieldAccount, number, "reason", "wrong password")
		return core.Account{}, core.ErrAuthFailed
	}
	l.logger.DebugContext(ctx, "Login succeeded", log.FieldAccount, number)
	return a, nil
}

// Account returns a snapshot of the account.
func (l *Ledger) Account(ctx context.Context, number string) (core.Account, error) {
	return l.accounts.Find(ctx, number)
}

// Accounts returns snapshots of every account ordered by number.
func (l *Ledger) Accounts(ctx context.Context) ([]core.Account, error) {
	return l.accounts.List(ctx)
}

// TotalBalance sums every balance in the store. Transfers leave it unchanged.
func (l *Ledger) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	accounts, err := l.accounts.List(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return total, nil
}

// UpdateProfile changes the holder name and password. Blank values keep the
// current ones; a password of only whitespace counts as blank, any other
// password is stored exactly as given.
func (l *Ledger) UpdateProfile(ctx context.Context, number, newName, newPassword string) error {
	newName = strings.TrimSpace(newName)
	if err := core.ValidateField("name", newName); err != nil {
		return err
	}
	var hash string
	if strings.TrimSpace(newPassword) != "" {
		h, err := l.hasher.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}
	if newName == "" && hash == "" {
		_, err := l.accounts.Find(ctx, number)
		return err
	}

	release := l.locks.acquire(number)
	defer release()

	if err := l.accounts.UpdateProfile(ctx, number, newName, hash); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	l.logger.InfoContext(ctx, "Profile updated",
		log.FieldAccount, number,
		"name_changed", newName != "",
		"password_changed", hash != "")
	return nil
}
