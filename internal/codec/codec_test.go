package codec

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bankledger/internal/core"
)

func TestAccountRoundTrip(t *testing.T) {
	lines := []string{
		"123456,Alice,5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8,100.00",
		"654321,,abc,0.00",
		"000001,Bob Stone,$2a$10$N9qo8uLOickgx2ZMRZoMye,1234567.89",
	}
	for _, line := range lines {
		a, err := DecodeAccount(line)
		if err != nil {
			t.Fatalf("DecodeAccount(%q): %v", line, err)
		}
		got, err := EncodeAccount(a)
		if err != nil {
			t.Fatalf("EncodeAccount: %v", err)
		}
		if got != line {
			t.Fatalf("round trip mismatch:\n got  %q\n want %q", got, line)
		}
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	lines := []string{
		"123456,Deposit,50.00,150.00,2025-10-01 09:15:00,General",
		"123456,Withdrawal,150.00,0.00,2025-10-02 18:00:59,Transfer",
		"654321,Transfer,0.01,0.01,2024-02-29 00:00:00,Food",
	}
	for _, line := range lines {
		r, err := DecodeTransaction(line)
		if err != nil {
			t.Fatalf("DecodeTransaction(%q): %v", line, err)
		}
		got, err := EncodeTransaction(r)
		if err != nil {
			t.Fatalf("EncodeTransaction: %v", err)
		}
		if got != line {
			t.Fatalf("round trip mismatch:\n got  %q\n want %q", got, line)
		}
	}
}

func TestDecodeToleratesCarriageReturn(t *testing.T) {
	a, err := DecodeAccount("1,A,h,5.00\r\n")
	if err != nil {
		t.Fatal(err)
	}
	if !a.Balance.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("balance = %s", a.Balance)
	}
}

func TestDecodeMalformed(t *testing.T) {
	accountLines := []string{
		"",
		"1,A,h",
		"1,A,h,5.00,extra",
		"1,A,h,five",
		",A,h,5.00",
	}
	for _, line := range accountLines {
		if _, err := DecodeAccount(line); !errors.Is(err, core.ErrMalformedRecord) {
			t.Fatalf("DecodeAccount(%q) expected ErrMalformedRecord, got %v", line, err)
		}
	}

	txLines := []string{
		"1,Deposit,5.00,5.00,2025-01-01 00:00:00",
		"1,Refund,5.00,5.00,2025-01-01 00:00:00,General",
		"1,Deposit,x,5.00,2025-01-01 00:00:00,General",
		"1,Deposit,5.00,y,2025-01-01 00:00:00,General",
		"1,Deposit,5.00,5.00,2025/01/01,General",
		"1,Deposit,5.00,5.00,2025-01-01 00:00:00,Food,Extra",
		"1,Deposit,0.00,5.00,2025-01-01 00:00:00,General",
		"1,Withdrawal,-5.00,10.00,2025-01-01 00:00:00,General",
	}
	for _, line := range txLines {
		_, err := DecodeTransaction(line)
		if !errors.Is(err, core.ErrMalformedRecord) {
			t.Fatalf("DecodeTransaction(%q) expected ErrMalformedRecord, got %v", line, err)
		}
		var le *LineError
		if !errors.As(err, &le) || le.Reason == "" {
			t.Fatalf("expected a LineError with a reason, got %v", err)
		}
	}
}

func TestEncodeRejectsDelimiter(t *testing.T) {
	_, err := EncodeAccount(core.Account{Number: "1", Name: "Smith, J", CredentialHash: "h"})
	if !errors.Is(err, core.ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}

	_, err = EncodeTransaction(core.TransactionRecord{
		AccountNumber: "1",
		Type:          core.Deposit,
		Amount:        decimal.NewFromInt(1),
		BalanceAfter:  decimal.NewFromInt(1),
		Timestamp:     time.Now(),
		Category:      "Food,Drinks",
	})
	if !errors.Is(err, core.ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
}
