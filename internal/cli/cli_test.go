package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"bankledger/internal/config"
	"bankledger/internal/core"
	"bankledger/internal/ledger"
	"bankledger/internal/log"
	"bankledger/internal/renderer"
)

func newTestApp(t *testing.T, input string) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		DataBackend:      config.BackendMemory,
		PasswordHasher:   config.HasherSHA256,
		MaxLoginAttempts: 3,
		AuditInterval:    time.Minute,
		AuditConcurrency: 2,
		SummaryCacheSize: 16,
		SummaryCacheTTL:  time.Minute,
	}
	out := &bytes.Buffer{}
	app := NewApp(cfg, log.Discard())
	app.In = strings.NewReader(input)
	app.Out = out
	app.Err = out
	app.Style = renderer.StylePlain

	next := 0
	app.ledgerOpts = []ledger.Option{
		ledger.WithNumberGenerator(func(time.Time, int) string {
			next++
			return fmt.Sprintf("%06d", next)
		}),
	}
	t.Cleanup(func() { app.Close() })
	return app, out
}

func run(t *testing.T, app *App, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet("bankledger", flag.ContinueOnError)
	app.SetFlags(fs)
	c := subcommands.NewCommander(fs, "bankledger")
	Register(c, app)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return c.Execute(context.Background())
}

func TestCommands(t *testing.T) {
	app, out := newTestApp(t, "")

	steps := []struct {
		args   []string
		status subcommands.ExitStatus
		output string
	}{
		{[]string{"create", "-name", "Alice", "-balance", "100", "-p", "pw"}, subcommands.ExitSuccess, "Your Account Number: 000001"},
		{[]string{"create", "-name", "Bob", "-balance", "0", "-p", "pw2"}, subcommands.ExitSuccess, "Your Account Number: 000002"},
		{[]string{"deposit", "-a", "000001", "-p", "pw", "-amount", "50", "-category", "Food"}, subcommands.ExitSuccess, "Deposit successful! Current balance: 150.00"},
		{[]string{"withdraw", "-a", "000001", "-p", "pw", "-amount", "500"}, subcommands.ExitFailure, "Insufficient balance!"},
		{[]string{"transfer", "-a", "000001", "-p", "pw", "-to", "999999", "-amount", "10"}, subcommands.ExitFailure, "Recipient account not found!"},
		{[]string{"transfer", "-a", "000001", "-p", "pw", "-to", "000001", "-amount", "10"}, subcommands.ExitFailure, "Cannot transfer to the same account!"},
		{[]string{"transfer", "-a", "000001", "-p", "pw", "-to", "000002", "-amount", "25"}, subcommands.ExitSuccess, "Transfer successful! New balance: 125.00"},
		{[]string{"deposit", "-a", "000001", "-p", "wrong", "-amount", "5"}, subcommands.ExitFailure, "Invalid account number or password."},
		{[]string{"deposit", "-a", "000001", "-p", "pw", "-amount", "abc"}, subcommands.ExitUsageError, "-amount must be a positive number"},
		{[]string{"summary", "-a", "000001", "-p", "pw"}, subcommands.ExitSuccess, "Food"},
		{[]string{"summary", "-a", "000001", "-p", "pw", "-month", "2025-13"}, subcommands.ExitUsageError, "Error parsing month"},
		{[]string{"history", "-a", "000002", "-p", "pw2"}, subcommands.ExitSuccess, "Transfer"},
		{[]string{"dashboard", "-a", "000002", "-p", "pw2"}, subcommands.ExitSuccess, "Dashboard - Bob"},
		{[]string{"profile", "-a", "000002", "-p", "pw2", "-new-password", "pw3"}, subcommands.ExitSuccess, "Account updated successfully!"},
		{[]string{"history", "-a", "000002", "-p", "pw3"}, subcommands.ExitSuccess, "25.00"},
		{[]string{"reconcile"}, subcommands.ExitSuccess, "Ledger reconciles."},
		{[]string{"reconcile", "-a", "000001"}, subcommands.ExitSuccess, "Account 000001: 2 records, balance 125.00"},
	}
	for _, step := range steps {
		out.Reset()
		if got := run(t, app, step.args...); got != step.status {
			t.Fatalf("%v: status %v, want %v\n%s", step.args, got, step.status, out)
		}
		if !strings.Contains(out.String(), step.output) {
			t.Fatalf("%v: output does not contain %q:\n%s", step.args, step.output, out)
		}
	}

	total, err := app.ledger.TotalBalance(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !total.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("total balance = %s, want 150", total)
	}
}

func TestReconcileReportsDrift(t *testing.T) {
	ctx := context.Background()
	app, out := newTestApp(t, "")
	run(t, app, "create", "-name", "Alice", "-balance", "10", "-p", "pw")
	run(t, app, "deposit", "-a", "000001", "-p", "pw", "-amount", "5")

	if err := app.backend.Accounts.UpdateBalance(ctx, "000001", decimal.NewFromInt(1)); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if got := run(t, app, "reconcile"); got != subcommands.ExitFailure {
		t.Fatalf("status %v, want failure\n%s", got, out)
	}
	if !strings.Contains(out.String(), ledger.ReasonBalanceDrift) {
		t.Fatalf("drift not reported:\n%s", out)
	}
}

func TestPromptedLogin(t *testing.T) {
	app, out := newTestApp(t, "x\ny\nz\npw\n")
	run(t, app, "create", "-name", "Alice", "-balance", "10", "-p", "pw")

	out.Reset()
	if got := run(t, app, "deposit", "-a", "000001", "-amount", "5"); got != subcommands.ExitFailure {
		t.Fatalf("status %v, want failure", got)
	}
	for _, want := range []string{"Attempts left: 2", "Attempts left: 1", "Maximum login attempts exceeded."} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}

	out.Reset()
	if got := run(t, app, "deposit", "-a", "000001", "-amount", "5"); got != subcommands.ExitSuccess {
		t.Fatalf("status %v, want success\n%s", got, out)
	}
	if !strings.Contains(out.String(), "Current balance: 15.00") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestLoginErrors(t *testing.T) {
	app, _ := newTestApp(t, "")
	ctx := context.Background()
	if err := app.Open(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := app.login(ctx, "000001", "pw"); !errors.Is(err, core.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if _, err := app.login(ctx, "000001", ""); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF once input ends, got %v", err)
	}
}

func TestSession(t *testing.T) {
	input := strings.Join([]string{
		"1", "Alice", "-5", "100", "pw", // create, negative balance re-prompted
		"2", "000001", "wrong", "000001", "pw", // one failed login
		"1", "abc", "50", "Food", // deposit, invalid amount re-prompted
		"2", "500", // withdraw more than the balance
		"3", "999999", "10", // unknown recipient
		"4", "Alicia", "", // rename, keep password
		"5", // dashboard
		"9", // invalid choice
		"6", // logout
		"3", // exit
	}, "\n") + "\n"
	app, out := newTestApp(t, input)

	if err := app.Session(context.Background()); err != nil {
		t.Fatalf("Session: %v\n%s", err, out)
	}
	for _, want := range []string{
		"Your Account Number: 000001",
		"Invalid amount!",
		"Attempts left: 2",
		"Login successful! Welcome Alice",
		"Deposit successful! Current balance: 150.00",
		"Insufficient balance!",
		"Recipient account not found!",
		"Account updated successfully!",
		"Dashboard - Alicia",
		"Invalid choice! Try again.",
		"Logging out... Thank You",
		"Thank you for using the Banking System!",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("session output does not contain %q", want)
		}
	}

	acc, err := app.ledger.Account(context.Background(), "000001")
	if err != nil {
		t.Fatal(err)
	}
	if acc.Name != "Alicia" || core.FormatAmount(acc.Balance) != "150.00" {
		t.Fatalf("unexpected account %+v", acc)
	}
	if _, err := app.ledger.Authenticate(context.Background(), "000001", "pw"); err != nil {
		t.Fatalf("blank password must keep the old one: %v", err)
	}
}

func TestSessionKeepsPasswordAsTyped(t *testing.T) {
	input := strings.Join([]string{
		"1", "Bob", "10", "pw",
		"2", "000001", "pw",
		"4", "", "  new pw  ",
		"6",
		"3",
	}, "\n") + "\n"
	app, out := newTestApp(t, input)

	if err := app.Session(context.Background()); err != nil {
		t.Fatalf("Session: %v\n%s", err, out)
	}
	if _, err := app.ledger.Authenticate(context.Background(), "000001", "  new pw  "); err != nil {
		t.Fatalf("password must be stored as typed: %v", err)
	}
}

func TestSessionEndsWithInput(t *testing.T) {
	app, _ := newTestApp(t, "2\n")
	if err := app.Session(context.Background()); err != nil {
		t.Fatalf("Session: %v", err)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wrapped: %w", core.ErrInsufficientFunds), "Insufficient balance!"},
		{core.ErrRecipientNotFound, "Recipient account not found!"},
		{core.ErrTooManyAttempts, "Maximum login attempts exceeded."},
		{errors.New("disk full"), "Error: disk full"},
	}
	for _, tt := range tests {
		if got := describe(tt.err); got != tt.want {
			t.Errorf("describe(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
