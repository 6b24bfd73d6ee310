package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bankledger/internal/core"
	"bankledger/internal/log"
	"bankledger/internal/storage"
	"bankledger/internal/storage/file"
	"bankledger/internal/storage/memory"
)

var testNow = time.Date(2025, 10, 18, 14, 30, 5, 0, time.Local)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sequentialNumbers() NumberGenerator {
	var n atomic.Int64
	n.Store(100000)
	return func(time.Time, int) string { return strconv.FormatInt(n.Add(1), 10) }
}

func newTestLedger(t *testing.T, accounts storage.AccountStore, txlog storage.TransactionLog, opts ...Option) *Ledger {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithNumberGenerator(sequentialNumbers()),
		WithLogger(log.Discard()),
	}
	return New(accounts, txlog, append(base, opts...)...)
}

func newMemoryLedger(t *testing.T, opts ...Option) (*Ledger, *memory.Store, *memory.Log) {
	t.Helper()
	s, l := memory.NewStore(), memory.NewLog()
	return newTestLedger(t, s, l, opts...), s, l
}

func mustCreate(t *testing.T, l *Ledger, name, balance string) core.Account {
	t.Helper()
	a, err := l.CreateAccount(context.Background(), name, dec(balance), "pw-"+name)
	if err != nil {
		t.Fatalf("CreateAccount(%s): %v", name, err)
	}
	return a
}

func balanceOf(t *testing.T, l *Ledger, number string) decimal.Decimal {
	t.Helper()
	a, err := l.Account(context.Background(), number)
	if err != nil {
		t.Fatalf("Account(%s): %v", number, err)
	}
	return a.Balance
}

func TestLedgerScenarioOnFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	accounts, err := file.OpenAccounts(filepath.Join(dir, "accounts.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer accounts.Close()
	txlog, err := file.OpenTransactions(filepath.Join(dir, "transactions.txt"))
	if err != nil {
		t.Fatal(err)
	}
	defer txlog.Close()
	l := newTestLedger(t, accounts, txlog)

	a := mustCreate(t, l, "Alice", "100.00")

	rec, err := l.Deposit(ctx, a.Number, dec("50.00"), "")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.BalanceAfter.Equal(dec("150")) || rec.Type != core.Deposit || rec.Category != core.DefaultCategory {
		t.Fatalf("unexpected deposit record %+v", rec)
	}
	if got := balanceOf(t, l, a.Number); !got.Equal(dec("150")) {
		t.Fatalf("balance after deposit = %s", got)
	}

	if _, err := l.Withdraw(ctx, a.Number, dec("200.00"), ""); !errors.Is(err, core.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := balanceOf(t, l, a.Number); !got.Equal(dec("150")) {
		t.Fatalf("balance changed by failed withdrawal: %s", got)
	}

	b := mustCreate(t, l, "Bob", "0.00")
	res, err := l.Transfer(ctx, a.Number, b.Number, dec("150.00"))
	if err != nil {
		t.Fatal(err)
	}
	if !balanceOf(t, l, a.Number).IsZero() || !balanceOf(t, l, b.Number).Equal(dec("150")) {
		t.Fatalf("unexpected balances after transfer")
	}
	if res.Sender.Type != core.Withdrawal || res.Recipient.Type != core.Deposit ||
		res.Sender.Category != core.TransferCategory || res.Recipient.Category != core.TransferCategory {
		t.Fatalf("unexpected legs %+v", res)
	}

	if _, err := l.Transfer(ctx, a.Number, "nonexistent", dec("10.00")); !errors.Is(err, core.ErrRecipientNotFound) {
		t.Fatalf("expected ErrRecipientNotFound, got %v", err)
	}
	if !balanceOf(t, l, a.Number).IsZero() {
		t.Fatal("failed transfer changed the sender")
	}

	content, err := os.ReadFile(txlog.Path())
	if err != nil {
		t.Fatal(err)
	}
	want := a.Number + ",Deposit,50.00,150.00,2025-10-18 14:30:05,General\n" +
		a.Number + ",Withdrawal,150.00,0.00,2025-10-18 14:30:05,Transfer\n" +
		b.Number + ",Deposit,150.00,150.00,2025-10-18 14:30:05,Transfer\n"
	if string(content) != want {
		t.Fatalf("transaction file:\n%s\nwant:\n%s", content, want)
	}

	history, err := l.History(ctx, a.Number)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || !history[0].Amount.Equal(dec("50")) || history[1].Category != core.TransferCategory {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestDepositAndWithdrawAreExact(t *testing.T) {
	ctx := context.Background()
	l, _, txlog := newMemoryLedger(t)
	a := mustCreate(t, l, "A", "10.10")

	steps := []struct {
		typ    core.TxType
		amount string
		after  string
	}{
		{core.Deposit, "0.20", "10.30"},
		{core.Withdrawal, "10.30", "0.00"},
		{core.Deposit, "1234.56", "1234.56"},
		{core.Withdrawal, "0.01", "1234.55"},
	}
	for i, s := range steps {
		var rec core.TransactionRecord
		var err error
		if s.typ == core.Deposit {
			rec, err = l.Deposit(ctx, a.Number, dec(s.amount), "Salary")
		} else {
			rec, err = l.Withdraw(ctx, a.Number, dec(s.amount), "Food")
		}
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if !rec.BalanceAfter.Equal(dec(s.after)) || !balanceOf(t, l, a.Number).Equal(dec(s.after)) {
			t.Fatalf("step %d: balance %s, want %s", i, rec.BalanceAfter, s.after)
		}
		if txlog.Len() != i+1 {
			t.Fatalf("step %d: %d records logged", i, txlog.Len())
		}
	}
}

func TestWithdrawNeverOverdraws(t *testing.T) {
	tests := []struct {
		balance string
		amount  string
	}{
		{"0.00", "0.01"},
		{"100.00", "100.01"},
		{"99.99", "1000"},
		{"0.50", "0.51"},
	}
	for _, tt := range tests {
		t.Run(tt.balance+"-"+tt.amount, func(t *testing.T) {
			ctx := context.Background()
			l, _, txlog := newMemoryLedger(t)
			a := mustCreate(t, l, "A", tt.balance)
			_, err := l.Withdraw(ctx, a.Number, dec(tt.amount), "")
			if !errors.Is(err, core.ErrInsufficientFunds) {
				t.Fatalf("expected ErrInsufficientFunds, got %v", err)
			}
			if !balanceOf(t, l, a.Number).Equal(dec(tt.balance)) || txlog.Len() != 0 {
				t.Fatal("failed withdrawal left a trace")
			}
		})
	}
}

func TestInvalidInput(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newMemoryLedger(t)
	a := mustCreate(t, l, "A", "10")
	b := mustCreate(t, l, "B", "10")

	for _, amount := range []string{"0", "-5", "0.004"} {
		if _, err := l.Deposit(ctx, a.Number, dec(amount), ""); !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("Deposit(%s) = %v, want ErrInvalidAmount", amount, err)
		}
		if _, err := l.Withdraw(ctx, a.Number, dec(amount), ""); !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("Withdraw(%s) = %v, want ErrInvalidAmount", amount, err)
		}
		if _, err := l.Transfer(ctx, a.Number, b.Number, dec(amount)); !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("Transfer(%s) = %v, want ErrInvalidAmount", amount, err)
		}
	}
	if _, err := l.Deposit(ctx, "404", dec("1"), ""); !errors.Is(err, core.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
	if _, err := l.Deposit(ctx, a.Number, dec("1"), "Food,Drinks"); !errors.Is(err, core.ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
	if _, err := l.Transfer(ctx, a.Number, a.Number, dec("1")); !errors.Is(err, core.ErrSelfTransfer) {
		t.Errorf("expected ErrSelfTransfer, got %v", err)
	}
	if _, err := l.Transfer(ctx, "404", a.Number, dec("1")); !errors.Is(err, core.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound for unknown sender, got %v", err)
	}
	if _, err := l.CreateAccount(ctx, "Smith, J", dec("1"), "pw"); !errors.Is(err, core.ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
	if _, err := l.CreateAccount(ctx, "C", dec("-1"), "pw"); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

// sequentialStore hides the BatchUpdater of the wrapped store so transfers
// take the debit-then-credit path.
type sequentialStore struct {
	storage.AccountStore
}

func TestConcurrentTransfersConserveMoney(t *testing.T) {
	stores := map[string]func() storage.AccountStore{
		"batch":      func() storage.AccountStore { return memory.NewStore() },
		"sequential": func() storage.AccountStore { return sequentialStore{memory.NewStore()} },
	}
	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			l := newTestLedger(t, mk(), memory.NewLog())
			var numbers []string
			for i := 0; i < 4; i++ {
				numbers = append(numbers, mustCreate(t, l, "acc"+strconv.Itoa(i), "100").Number)
			}
			before, _ := l.TotalBalance(ctx)

			var wg sync.WaitGroup
			for i := 0; i < 200; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					from := numbers[i%4]
					to := numbers[(i+1+i/4)%4]
					if from == to {
						to = numbers[(i+2)%4]
					}
					_, err := l.Transfer(ctx, from, to, dec("7.25"))
					if err != nil && !errors.Is(err, core.ErrInsufficientFunds) {
						t.Errorf("transfer %s -> %s: %v", from, to, err)
					}
				}(i)
			}
			done := make(chan struct{})
			go func() { wg.Wait(); close(done) }()
			select {
			case <-done:
			case <-time.After(10 * time.Second):
				t.Fatal("transfers deadlocked")
			}

			after, _ := l.TotalBalance(ctx)
			if !before.Equal(after) {
				t.Fatalf("total changed from %s to %s", before, after)
			}
			for _, n := range numbers {
				if balanceOf(t, l, n).IsNegative() {
					t.Fatalf("account %s went negative", n)
				}
				rep, err := l.Reconcile(ctx, n)
				if err != nil {
					t.Fatal(err)
				}
				if !rep.OK() {
					t.Fatalf("account %s does not reconcile: %+v", n, rep.Discrepancies)
				}
			}
			if l.locks.size() != 0 {
				t.Fatalf("lock table holds %d entries after all transfers", l.locks.size())
			}
		})
	}
}

func TestTransferOverdraftChangesNothing(t *testing.T) {
	backends := map[string]func(t *testing.T) (storage.AccountStore, storage.TransactionLog){
		"files": func(t *testing.T) (storage.AccountStore, storage.TransactionLog) {
			dir := t.TempDir()
			accounts, err := file.OpenAccounts(filepath.Join(dir, "accounts.txt"))
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { accounts.Close() })
			txlog, err := file.OpenTransactions(filepath.Join(dir, "transactions.txt"))
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { txlog.Close() })
			return accounts, txlog
		},
		"sequential": func(t *testing.T) (storage.AccountStore, storage.TransactionLog) {
			return sequentialStore{memory.NewStore()}, memory.NewLog()
		},
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			accounts, txlog := open(t)
			l := newTestLedger(t, accounts, txlog)
			a := mustCreate(t, l, "A", "10")
			b := mustCreate(t, l, "B", "0")

			_, err := l.Transfer(ctx, a.Number, b.Number, dec("10.01"))
			if !errors.Is(err, core.ErrInsufficientFunds) {
				t.Fatalf("expected ErrInsufficientFunds, got %v", err)
			}
			if errors.Is(err, core.ErrPartialTransfer) {
				t.Fatalf("overdraft must not be a partial transfer: %v", err)
			}
			if got := balanceOf(t, l, a.Number); !got.Equal(dec("10")) {
				t.Errorf("sender balance = %s, want 10", got)
			}
			if got := balanceOf(t, l, b.Number); !got.IsZero() {
				t.Errorf("recipient balance = %s, want 0", got)
			}
			for _, number := range []string{a.Number, b.Number} {
				recs, err := l.History(ctx, number)
				if err != nil {
					t.Fatal(err)
				}
				if len(recs) != 0 {
					t.Errorf("account %s has %d records after a refused transfer", number, len(recs))
				}
			}
		})
	}
}

// faultyStore fails balance updates of one account. With failRestore the
// second update of the sender fails too, so the compensation is lost.
type faultyStore struct {
	storage.AccountStore
	failFor     string
	sender      string
	failRestore bool
	senderCalls int
}

func (s *faultyStore) UpdateBalance(ctx context.Context, number string, b decimal.Decimal) error {
	if number == s.sender {
		s.senderCalls++
		if s.failRestore && s.senderCalls > 1 {
			return errors.New("disk full")
		}
	}
	if number == s.failFor {
		return errors.New("injected failure")
	}
	return s.AccountStore.UpdateBalance(ctx, number, b)
}

func TestTransferRecipientFailure(t *testing.T) {
	tests := []struct {
		name          string
		failRestore   bool
		wantDebited   bool
		wantSenderBal string
	}{
		{"sender restored", false, false, "100.00"},
		{"restore fails", true, true, "60.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			inner := memory.NewStore()
			txlog := memory.NewLog()
			setup := newTestLedger(t, inner, txlog)
			a := mustCreate(t, setup, "A", "100")
			b := mustCreate(t, setup, "B", "5")

			store := &faultyStore{AccountStore: inner, failFor: b.Number, sender: a.Number, failRestore: tt.failRestore}
			l := newTestLedger(t, store, txlog)

			_, err := l.Transfer(ctx, a.Number, b.Number, dec("40"))
			if !errors.Is(err, core.ErrPartialTransfer) {
				t.Fatalf("expected ErrPartialTransfer, got %v", err)
			}
			var partial *core.PartialTransferError
			if !errors.As(err, &partial) {
				t.Fatalf("expected *PartialTransferError, got %T", err)
			}
			if partial.SenderDebited != tt.wantDebited || partial.RecipientCredited {
				t.Fatalf("unexpected partial state %+v", partial)
			}
			if got := balanceOf(t, l, a.Number); !got.Equal(dec(tt.wantSenderBal)) {
				t.Fatalf("sender balance = %s, want %s", got, tt.wantSenderBal)
			}
			if got := balanceOf(t, l, b.Number); !got.Equal(dec("5")) {
				t.Fatalf("recipient balance = %s", got)
			}
			if txlog.Len() != 0 {
				t.Fatalf("%d records logged for a failed transfer", txlog.Len())
			}
		})
	}
}

type toggleLog struct {
	storage.TransactionLog
	fail bool
}

func (l *toggleLog) Append(ctx context.Context, recs ...core.TransactionRecord) error {
	if l.fail {
		return errors.New("log unavailable")
	}
	return l.TransactionLog.Append(ctx, recs...)
}

func TestLogFailureAfterCommitIsReported(t *testing.T) {
	ctx := context.Background()
	txlog := &toggleLog{TransactionLog: memory.NewLog()}
	l := newTestLedger(t, memory.NewStore(), txlog)
	a := mustCreate(t, l, "A", "0")
	b := mustCreate(t, l, "B", "0")
	if _, err := l.Deposit(ctx, a.Number, dec("100"), ""); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Deposit(ctx, b.Number, dec("1"), ""); err != nil {
		t.Fatal(err)
	}

	txlog.fail = true
	_, err := l.Transfer(ctx, a.Number, b.Number, dec("30"))
	var partial *core.PartialTransferError
	if !errors.As(err, &partial) || !partial.SenderDebited || !partial.RecipientCredited {
		t.Fatalf("expected committed partial transfer, got %v", err)
	}
	if !balanceOf(t, l, a.Number).Equal(dec("70")) || !balanceOf(t, l, b.Number).Equal(dec("31")) {
		t.Fatal("balances must stay committed")
	}

	if _, err := l.Deposit(ctx, a.Number, dec("5"), ""); err == nil {
		t.Fatal("deposit must report the failed append")
	}
	txlog.fail = false

	rep, err := l.Reconcile(ctx, a.Number)
	if err != nil {
		t.Fatal(err)
	}
	if rep.OK() || rep.Discrepancies[0].Reason != ReasonBalanceDrift {
		t.Fatalf("expected drift, got %+v", rep)
	}
	if !rep.Discrepancies[0].Expected.Equal(dec("100")) || !rep.Discrepancies[0].Actual.Equal(dec("75")) {
		t.Fatalf("unexpected discrepancy %s", rep.Discrepancies[0])
	}
}

func TestReconcileDetectsChainBreak(t *testing.T) {
	ctx := context.Background()
	l, _, txlog := newMemoryLedger(t)
	a := mustCreate(t, l, "A", "0")
	l.Deposit(ctx, a.Number, dec("10"), "")
	l.Deposit(ctx, a.Number, dec("10"), "")

	rep, err := l.Reconcile(ctx, a.Number)
	if err != nil || !rep.OK() || rep.Records != 2 {
		t.Fatalf("clean account: %+v, %v", rep, err)
	}

	// Out-of-band tooling appends a record that skips a step.
	txlog.Append(ctx, core.TransactionRecord{
		AccountNumber: a.Number, Type: core.Withdrawal,
		Amount: dec("5"), BalanceAfter: dec("20"),
		Timestamp: testNow, Category: "General",
	})
	rep, err = l.Reconcile(ctx, a.Number)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Discrepancies) != 1 || rep.Discrepancies[0].Reason != ReasonChainBreak || rep.Discrepancies[0].Index != 2 {
		t.Fatalf("unexpected reconciliation %+v", rep)
	}
	if !strings.Contains(rep.Discrepancies[0].String(), "expected 15.00, found 20.00") {
		t.Fatalf("unexpected description %q", rep.Discrepancies[0])
	}

	fresh := mustCreate(t, l, "B", "42")
	if rep, _ := l.Reconcile(ctx, fresh.Number); !rep.OK() {
		t.Fatalf("account without records must reconcile: %+v", rep)
	}
}

func TestCreateAccountProbesForFreeNumber(t *testing.T) {
	ctx := context.Background()
	clock := time.Unix(1_700_123_456, 0)
	l := New(memory.NewStore(), memory.NewLog(),
		WithClock(func() time.Time { return clock }),
		WithLogger(log.Discard()))

	first, err := l.CreateAccount(ctx, "A", dec("0"), "pw")
	if err != nil {
		t.Fatal(err)
	}
	second, err := l.CreateAccount(ctx, "B", dec("0"), "pw")
	if err != nil {
		t.Fatal(err)
	}
	if first.Number != "123456" || second.Number != "123457" {
		t.Fatalf("numbers = %s, %s", first.Number, second.Number)
	}
	if got := UnixNumbers(time.Unix(1_700_999_999, 0), 1); got != "000000" {
		t.Fatalf("UnixNumbers wrap = %s", got)
	}
}

func TestAuthenticateAndUpdateProfile(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newMemoryLedger(t)
	a := mustCreate(t, l, "Alice", "1")

	if _, err := l.Authenticate(ctx, a.Number, "pw-Alice"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	for _, tc := range []struct{ number, password string }{
		{a.Number, "wrong"},
		{"000000", "pw-Alice"},
	} {
		if _, err := l.Authenticate(ctx, tc.number, tc.password); !errors.Is(err, core.ErrAuthFailed) {
			t.Fatalf("Authenticate(%s, %s) = %v, want ErrAuthFailed", tc.number, tc.password, err)
		}
	}

	if err := l.UpdateProfile(ctx, a.Number, "", "new-pw"); err != nil {
		t.Fatal(err)
	}
	got, err := l.Authenticate(ctx, a.Number, "new-pw")
	if err != nil || got.Name != "Alice" {
		t.Fatalf("after password change: %+v, %v", got, err)
	}
	if _, err := l.Authenticate(ctx, a.Number, "pw-Alice"); !errors.Is(err, core.ErrAuthFailed) {
		t.Fatal("old password still accepted")
	}

	if err := l.UpdateProfile(ctx, a.Number, "Alice Smith", ""); err != nil {
		t.Fatal(err)
	}
	got, _ = l.Authenticate(ctx, a.Number, "new-pw")
	if got.Name != "Alice Smith" {
		t.Fatalf("name = %q", got.Name)
	}
	if err := l.UpdateProfile(ctx, "000000", "X", ""); !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := l.UpdateProfile(ctx, "000000", "", ""); !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound for an empty update, got %v", err)
	}
}

func TestUpdateProfileBlankPassword(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newMemoryLedger(t)
	a := mustCreate(t, l, "Alice", "1")

	for _, blank := range []string{"", "   ", "\t"} {
		if err := l.UpdateProfile(ctx, a.Number, "", blank); err != nil {
			t.Fatalf("UpdateProfile(%q): %v", blank, err)
		}
		if _, err := l.Authenticate(ctx, a.Number, "pw-Alice"); err != nil {
			t.Fatalf("password %q replaced the credential: %v", blank, err)
		}
	}

	if err := l.UpdateProfile(ctx, a.Number, "", " padded pw "); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Authenticate(ctx, a.Number, " padded pw "); err != nil {
		t.Fatalf("password must be stored as typed: %v", err)
	}
	if _, err := l.Authenticate(ctx, a.Number, "padded pw"); !errors.Is(err, core.ErrAuthFailed) {
		t.Fatalf("trimmed password accepted: %v", err)
	}
}

func TestRecentAndObservers(t *testing.T) {
	ctx := context.Background()
	var mu sync.Mutex
	var seen []core.TransactionRecord
	obs := ObserverFunc(func(_ context.Context, recs []core.TransactionRecord) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, recs...)
	})
	l, _, _ := newMemoryLedger(t, WithObserver(obs))
	a := mustCreate(t, l, "A", "0")
	b := mustCreate(t, l, "B", "0")

	for i := 1; i <= 5; i++ {
		if _, err := l.Deposit(ctx, a.Number, decimal.NewFromInt(int64(i)), ""); err != nil {
			t.Fatal(err)
		}
	}
	l.Withdraw(ctx, a.Number, dec("1000"), "")
	l.Transfer(ctx, a.Number, b.Number, dec("1"))

	recent, err := l.Recent(ctx, a.Number, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 || !recent[0].Amount.Equal(dec("4")) || recent[2].Category != core.TransferCategory {
		t.Fatalf("unexpected recent records %+v", recent)
	}
	if r, _ := l.Recent(ctx, b.Number, 3); len(r) != 1 {
		t.Fatalf("expected one record for B, got %d", len(r))
	}
	if _, err := l.Recent(ctx, "404", 3); !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	if len(seen) != 7 {
		t.Fatalf("observer saw %d records, want 7", len(seen))
	}
}

func TestLockTableReleases(t *testing.T) {
	var lt lockTable
	release := lt.acquire("b", "a", "b")
	if lt.size() != 2 {
		t.Fatalf("size = %d", lt.size())
	}
	acquired := make(chan struct{})
	done := make(chan struct{})
	go func() {
		r := lt.acquire("a")
		close(acquired)
		r()
		close(done)
	}()
	select {
	case <-acquired:
		t.Fatal("lock on a acquired while held")
	case <-time.After(20 * time.Millisecond):
	}
	release()
	<-done
	if lt.size() != 0 {
		t.Fatalf("size after release = %d", lt.size())
	}
}
