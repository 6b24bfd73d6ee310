package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Deposit    TxType = "Deposit"
	Withdrawal TxType = "Withdrawal"
	Transfer   TxType = "Transfer"
)

const (
	// DefaultCategory is used when a deposit or withdrawal carries no category.
	DefaultCategory = "General"
	// TransferCategory tags both legs of a transfer.
	TransferCategory = "Transfer"

	// FieldDelimiter separates fields in the persisted line layout.
	FieldDelimiter = ","
)

type (
	TxType string

	// Account is a value snapshot of an account record. The store owns the
	// authoritative copy; mutating a snapshot never affects it.
	Account struct {
		Number         string
		Name           string
		CredentialHash string
		Balance        decimal.Decimal
	}

	// TransactionRecord is one line of the append-only transaction log.
	// Amount is always the magnitude; the direction comes from Type.
	TransactionRecord struct {
		AccountNumber string
		Type          TxType
		Amount        decimal.Decimal
		BalanceAfter  decimal.Decimal
		Timestamp     time.Time
		Category      string
	}
)

// ParseTxType parses the persisted name of a transaction type.
func ParseTxType(s string) (TxType, error) {
	switch t := TxType(s); t {
	case Deposit, Withdrawal, Transfer:
		return t, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

func (t TxType) String() string { return string(t) }

// Credit reports whether the record increases the account balance.
func (t TxType) Credit() bool { return t == Deposit }

// ValidateField rejects free-form values that cannot be stored in the
// delimited layout. The delimiter is never escaped.
func ValidateField(name, value string) error {
	if strings.Contains(value, FieldDelimiter) {
		return fmt.Errorf("%w: %s must not contain %q", ErrInvalidField, name, FieldDelimiter)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: %s must not contain line breaks", ErrInvalidField, name)
	}
	return nil
}

// NormalizeCategory trims the category and falls back to DefaultCategory.
func NormalizeCategory(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return DefaultCategory
	}
	return c
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Number) == "" {
		return fmt.Errorf("%w: empty account number", ErrInvalidField)
	}
	if err := ValidateField("account number", a.Number); err != nil {
		return err
	}
	if err := ValidateField("name", a.Name); err != nil {
		return err
	}
	if err := ValidateField("credential hash", a.CredentialHash); err != nil {
		return err
	}
	if a.Balance.IsNegative() {
		return fmt.Errorf("%w: negative balance", ErrInvalidAmount)
	}
	return nil
}

func (r TransactionRecord) Validate() error {
	if strings.TrimSpace(r.AccountNumber) == "" {
		return fmt.Errorf("%w: empty account number", ErrInvalidField)
	}
	if _, err := ParseTxType(string(r.Type)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidField, err)
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrInvalidField)
	}
	return ValidateField("category", r.Category)
}
