package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidField      = errors.New("invalid field")
	ErrAccountNotFound   = errors.New("account not found")
	ErrRecipientNotFound = errors.New("recipient account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateAccount  = errors.New("account already exists")
	ErrMalformedRecord   = errors.New("malformed record")
	ErrSelfTransfer      = errors.New("sender and recipient are the same account")
	ErrAuthFailed        = errors.New("invalid account number or password")
	ErrTooManyAttempts   = errors.New("maximum login attempts exceeded")
	ErrPartialTransfer   = errors.New("partial transfer failure")
)

// PartialTransferError reports a transfer that stopped after some of its
// effects became durable. It needs operator reconciliation: retrying would
// apply the committed leg twice.
type PartialTransferError struct {
	Sender    string
	Recipient string
	Amount    decimal.Decimal

	SenderDebited     bool
	RecipientCredited bool

	Err error
}

func (e *PartialTransferError) Error() string {
	return fmt.Sprintf("partial transfer failure %s -> %s amount %s (sender debited=%t, recipient credited=%t): %v",
		e.Sender, e.Recipient, FormatAmount(e.Amount), e.SenderDebited, e.RecipientCredited, e.Err)
}

func (e *PartialTransferError) Unwrap() error { return e.Err }

func (e *PartialTransferError) Is(target error) bool { return target == ErrPartialTransfer }
