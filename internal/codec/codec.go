// Package codec converts account and transaction records to and from the
// comma-delimited line layout of the ledger files:
//
//	accounts:     accountNumber,name,credentialHashHex,balance
//	transactions: accountNumber,type,amount,balanceAfter,timestamp,category
//
// Free-form fields (name, category) must not contain the delimiter. This is
// a constraint of the format: values are rejected, never escaped.
package codec

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bankledger/internal/core"
)

// TimestampLayout is the persisted timestamp format, second precision.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	accountFields     = 4
	transactionFields = 6
)

// LineError describes why a line could not be decoded. It matches
// core.ErrMalformedRecord.
type LineError struct {
	Line   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("malformed record %q: %s", e.Line, e.Reason)
}

func (e *LineError) Unwrap() error { return core.ErrMalformedRecord }

func malformed(line, format string, args ...any) error {
	return &LineError{Line: line, Reason: fmt.Sprintf(format, args...)}
}

// EncodeAccount renders an account as one line, without the trailing newline.
func EncodeAccount(a core.Account) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	return strings.Join([]string{
		a.Number,
		a.Name,
		a.CredentialHash,
		core.FormatAmount(a.Balance),
	}, core.FieldDelimiter), nil
}

// DecodeAccount parses one account line.
func DecodeAccount(line string) (core.Account, error) {
	parts := split(line)
	if len(parts) != accountFields {
		return core.Account{}, malformed(line, "expected %d fields, got %d", accountFields, len(parts))
	}
	if parts[0] == "" {
		return core.Account{}, malformed(line, "empty account number")
	}
	balance, err := decimal.NewFromString(parts[3])
	if err != nil {
		return core.Account{}, malformed(line, "balance: %v", err)
	}
	return core.Account{
		Number:         parts[0],
		Name:           parts[1],
		CredentialHash: parts[2],
		Balance:        balance,
	}, nil
}

// EncodeTransaction renders a transaction record as one line, without the
// trailing newline.
func EncodeTransaction(r core.TransactionRecord) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	return strings.Join([]string{
		r.AccountNumber,
		r.Type.String(),
		core.FormatAmount(r.Amount),
		core.FormatAmount(r.BalanceAfter),
		r.Timestamp.Format(TimestampLayout),
		r.Category,
	}, core.FieldDelimiter), nil
}

// DecodeTransaction parses one transaction line. Timestamps are read in the
// local time zone, the zone they were written in.
func DecodeTransaction(line string) (core.TransactionRecord, error) {
	parts := split(line)
	if len(parts) != transactionFields {
		return core.TransactionRecord{}, malformed(line, "expected %d fields, got %d", transactionFields, len(parts))
	}
	if parts[0] == "" {
		return core.TransactionRecord{}, malformed(line, "empty account number")
	}
	typ, err := core.ParseTxType(parts[1])
	if err != nil {
		return core.TransactionRecord{}, malformed(line, "%v", err)
	}
	amount, err := decimal.NewFromString(parts[2])
	if err != nil {
		return core.TransactionRecord{}, malformed(line, "amount: %v", err)
	}
	if !amount.IsPositive() {
		return core.TransactionRecord{}, malformed(line, "amount must be positive, got %s", parts[2])
	}
	balanceAfter, err := decimal.NewFromString(parts[3])
	if err != nil {
		return core.TransactionRecord{}, malformed(line, "balance after: %v", err)
	}
	ts, err := time.ParseInLocation(TimestampLayout, parts[4], time.Local)
	if err != nil {
		return core.TransactionRecord{}, malformed(line, "timestamp: %v", err)
	}
	return core.TransactionRecord{
		AccountNumber: parts[0],
		Type:          typ,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		Timestamp:     ts,
		Category:      parts[5],
	}, nil
}

func split(line string) []string {
	line = strings.TrimRight(line, "\r\n")
	return strings.Split(line, core.FieldDelimiter)
}
