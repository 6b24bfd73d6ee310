package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"bankledger/internal/core"
	"bankledger/internal/log"
	"bankledger/internal/storage"
)

// TransferResult holds the two legs written for a transfer.
type TransferResult struct {
	Sender    core.TransactionRecord
	Recipient core.TransactionRecord
}

func checkAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	amount = core.RoundAmount(amount)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrInvalidAmount, amount.String())
	}
	return amount, nil
}

func checkCategory(category string) (string, error) {
	category = core.NormalizeCategory(category)
	if err := core.ValidateField("category", category); err != nil {
		return "", err
	}
	return category, nil
}

// Deposit credits amount to the account and logs one Deposit record.
func (l *Ledger) Deposit(ctx context.Context, number string, amount decimal.Decimal, category string) (core.TransactionRecord, error) {
	return l.move(ctx, number, core.Deposit, amount, category)
}

// Withdraw debits amount from the account and logs one Withdrawal record. It
// fails with core.ErrInsufficientFunds before any change when amount exceeds
// the balance.
func (l *Ledger) Withdraw(ctx context.Context, number string, amount decimal.Decimal, category string) (core.TransactionRecord, error) {
	return l.move(ctx, number, core.Withdrawal, amount, category)
}

func (l *Ledger) move(ctx context.Context, number string, typ core.TxType, amount decimal.Decimal, category string) (core.TransactionRecord, error) {
	amount, err := checkAmount(amount)
	if err != nil {
		return core.TransactionRecord{}, err
	}
	category, err = checkCategory(category)
	if err != nil {
		return core.TransactionRecord{}, err
	}

	rec, err := l.moveLocked(ctx, number, typ, amount, category)
	if err != nil {
		return core.TransactionRecord{}, err
	}
	l.notify(ctx, rec)
	return rec, nil
}

func (l *Ledger) moveLocked(ctx context.Context, number string, typ core.TxType, amount decimal.Decimal, category string) (core.TransactionRecord, error) {
	release := l.locks.acquire(number)
	defer release()

	a, err := l.accounts.Find(ctx, number)
	if err != nil {
		return core.TransactionRecord{}, err
	}

	balance := a.Balance.Add(amount)
	if !typ.Credit() {
		if amount.GreaterThan(a.Balance) {
			return core.TransactionRecord{}, fmt.Errorf("%w: balance %s, requested %s",
				core.ErrInsufficientFunds, core.FormatAmount(a.Balance), core.FormatAmount(amount))
		}
		balance = a.Balance.Sub(amount)
	}

	if err := l.accounts.UpdateBalance(ctx, number, balance); err != nil {
		return core.TransactionRecord{}, fmt.Errorf("update balance: %w", err)
	}

	rec := core.TransactionRecord{
		AccountNumber: number,
		Type:          typ,
		Amount:        amount,
		BalanceAfter:  balance,
		Timestamp:     l.timestamp(),
		Category:      category,
	}
	if err := l.txlog.Append(ctx, rec); err != nil {
		// The balance is already durable; Reconcile reports the gap.
		l.logger.ErrorContext(ctx, "Balance committed but transaction not logged",
			log.NewFields().
				WithAccount(number, core.FormatAmount(balance)).
				WithMovement(typ.String(), core.FormatAmount(amount), category).
				WithError(err).ToSlice()...)
		return core.TransactionRecord{}, fmt.Errorf("log %s: balance of %s is now %s: %w",
			typ, number, core.FormatAmount(balance), err)
	}

	l.logger.InfoContext(ctx, "Movement recorded",
		log.NewFields().
			WithAccount(number, core.FormatAmount(balance)).
			WithMovement(typ.String(), core.FormatAmount(amount), category).ToSlice()...)
	return rec, nil
}

// Transfer moves amount from sender to recipient and logs a Withdrawal leg
// for the sender and a Deposit leg for the recipient, both in the Transfer
// category.
//
// Both accounts are resolved and the funds checked before anything changes.
// Stores implementing storage.BatchUpdater commit both balances in one step.
// Otherwise the sender is debited first and restored if crediting the
// recipient fails. Whenever a failure leaves committed effects behind, or
// undoes them, the error is a *core.PartialTransferError.
func (l *Ledger) Transfer(ctx context.Context, sender, recipient string, amount decimal.Decimal) (TransferResult, error) {
	amount, err := checkAmount(amount)
	if err != nil {
		return TransferResult{}, err
	}
	if sender == recipient {
		return TransferResult{}, core.ErrSelfTransfer
	}

	res, err := l.transferLocked(ctx, sender, recipient, amount)
	if err != nil {
		var partial *core.PartialTransferError
		if errors.As(err, &partial) {
			l.logger.ErrorContext(ctx, "Transfer needs reconciliation",
				log.FieldAccount, sender,
				log.FieldRecipient, recipient,
				log.FieldAmount, core.FormatAmount(amount),
				"sender_debited", partial.SenderDebited,
				"recipient_credited", partial.RecipientCredited,
				log.FieldError, partial.Err)
		}
		return TransferResult{}, err
	}
	l.notify(ctx, res.Sender, res.Recipient)
	return res, nil
}

func (l *Ledger) transferLocked(ctx context.Context, sender, recipient string, amount decimal.Decimal) (TransferResult, error) {
	release := l.locks.acquire(sender, recipient)
	defer release()

	from, err := l.accounts.Find(ctx, sender)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := l.accounts.Find(ctx, recipient)
	if errors.Is(err, core.ErrAccountNotFound) {
		return TransferResult{}, fmt.Errorf("%w: %s", core.ErrRecipientNotFound, recipient)
	}
	if err != nil {
		return TransferResult{}, err
	}
	if amount.GreaterThan(from.Balance) {
		return TransferResult{}, fmt.Errorf("%w: balance %s, requested %s",
			core.ErrInsufficientFunds, core.FormatAmount(from.Balance), core.FormatAmount(amount))
	}

	fromBalance := from.Balance.Sub(amount)
	toBalance := to.Balance.Add(amount)

	partial := func(debited, credited bool, err error) error {
		return &core.PartialTransferError{
			Sender:            sender,
			Recipient:         recipient,
			Amount:            amount,
			SenderDebited:     debited,
			RecipientCredited: credited,
			Err:               err,
		}
	}

	if batch, ok := l.accounts.(storage.BatchUpdater); ok {
		err := batch.UpdateBalances(ctx, map[string]decimal.Decimal{
			sender:    fromBalance,
			recipient: toBalance,
		})
		if err != nil {
			return TransferResult{}, fmt.Errorf("commit transfer: %w", err)
		}
	} else {
		if err := l.accounts.UpdateBalance(ctx, sender, fromBalance); err != nil {
			return TransferResult{}, fmt.Errorf("debit sender: %w", err)
		}
		if err := l.accounts.UpdateBalance(ctx, recipient, toBalance); err != nil {
			creditErr := fmt.Errorf("credit recipient: %w", err)
			if rerr := l.accounts.UpdateBalance(ctx, sender, from.Balance); rerr != nil {
				return TransferResult{}, partial(true, false,
					errors.Join(creditErr, fmt.Errorf("restore sender: %w", rerr)))
			}
			return TransferResult{}, partial(false, false, creditErr)
		}
	}

	ts := l.timestamp()
	res := TransferResult{
		Sender: core.TransactionRecord{
			AccountNumber: sender,
			Type:          core.Withdrawal,
			Amount:        amount,
			BalanceAfter:  fromBalance,
			Timestamp:     ts,
			Category:      core.TransferCategory,
		},
		Recipient: core.TransactionRecord{
			AccountNumber: recipient,
			Type:          core.Deposit,
			Amount:        amount,
			BalanceAfter:  toBalance,
			Timestamp:     ts,
			Category:      core.TransferCategory,
		},
	}
	if err := l.txlog.Append(ctx, res.Sender, res.Recipient); err != nil {
		return TransferResult{}, partial(true, true, fmt.Errorf("log transfer legs: %w", err))
	}

	l.logger.InfoContext(ctx, "Transfer recorded",
		log.FieldAccount, sender,
		log.FieldRecipient, recipient,
		log.FieldAmount, core.FormatAmount(amount))
	return res, nil
}
