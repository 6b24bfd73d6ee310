package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"bankledger/internal/audit"
	"bankledger/internal/core"
	"bankledger/internal/ledger"
	"bankledger/internal/renderer"
)

// Register adds every bankledger subcommand to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(&createCmd{app: app}, "accounts")
	c.Register(&profileCmd{app: app}, "accounts")

	c.Register(&depositCmd{movementCmd{app: app}}, "transactions")
	c.Register(&withdrawCmd{movementCmd{app: app}}, "transactions")
	c.Register(&transferCmd{app: app}, "transactions")

	c.Register(&historyCmd{app: app}, "reports")
	c.Register(&summaryCmd{app: app}, "reports")
	c.Register(&dashboardCmd{app: app}, "reports")
	c.Register(&reconcileCmd{app: app}, "reports")

	c.Register(&sessionCmd{app: app}, "")
}

// holder are the flags identifying the account holder.
type holder struct {
	number   string
	password string
}

func (h *holder) setFlags(f *flag.FlagSet) {
	f.StringVar(&h.number, "a", "", "Account number (prompted when empty)")
	f.StringVar(&h.password, "p", "", "Password (prompted when empty)")
}

// start opens the ledger and authenticates the holder. It reports failures
// itself and returns the exit status to use.
func (h *holder) start(ctx context.Context, app *App) (core.Account, subcommands.ExitStatus) {
	if err := app.Open(ctx); err != nil {
		fmt.Fprintf(app.Err, "Error opening ledger: %v\n", err)
		return core.Account{}, subcommands.ExitFailure
	}
	acc, err := app.login(ctx, h.number, h.password)
	if err != nil {
		fmt.Fprintln(app.Err, describe(err))
		return core.Account{}, subcommands.ExitFailure
	}
	return acc, subcommands.ExitSuccess
}

type createCmd struct {
	app      *App
	name     string
	balance  string
	password string
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "open a new account" }
func (*createCmd) Usage() string {
	return `bankledger create [-name <name>] [-balance <amount>] [-p <password>]

  Opens an account and prints its number. Missing values are prompted.
`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Account holder name")
	f.StringVar(&c.balance, "balance", "", "Opening balance, zero or more")
	f.StringVar(&c.password, "p", "", "Password")
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app := c.app
	if err := app.Open(ctx); err != nil {
		fmt.Fprintf(app.Err, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	p := app.prompt()

	name := c.name
	if name == "" {
		n, err := p.Line("Enter your name: ")
		if err != nil {
			fmt.Fprintf(app.Err, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		name = n
	}

	var (
		balance decimal.Decimal
		err     error
	)
	if c.balance != "" {
		balance, err = core.ParseBalance(c.balance)
		if err != nil {
			fmt.Fprintf(app.Err, "Error: invalid opening balance %q\n", c.balance)
			return subcommands.ExitUsageError
		}
	} else if balance, err = p.Balance("Enter initial deposit: "); err != nil {
		fmt.Fprintf(app.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	password := c.password
	if password == "" {
		if password, err = p.Password("Enter password: "); err != nil {
			fmt.Fprintf(app.Err, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	acc, err := app.ledger.CreateAccount(ctx, name, balance, password)
	if err != nil {
		fmt.Fprintln(app.Err, describe(err))
		return subcommands.ExitFailure
	}
	fmt.Fprintf(app.Out, "Account created successfully! Your Account Number: %s\n", acc.Number)
	return subcommands.ExitSuccess
}

// movementCmd implements deposit and withdraw.
type movementCmd struct {
	app *App
	holder
	amount   string
	category string
}

func (c *movementCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.amount, "amount", "", "Amount, positive, two decimals (required)")
	f.StringVar(&c.category, "category", "", "Category (Food, Rent, Bills, Other...), default General")
}

func (c *movementCmd) run(ctx context.Context, typ core.TxType) subcommands.ExitStatus {
	app := c.app
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		fmt.Fprintf(app.Err, "Error: -amount must be a positive number, got %q\n", c.amount)
		return subcommands.ExitUsageError
	}
	acc, status := c.start(ctx, app)
	if status != subcommands.ExitSuccess {
		return status
	}

	var rec core.TransactionRecord
	if typ == core.Deposit {
		rec, err = app.ledger.Deposit(ctx, acc.Number, amount, c.category)
	} else {
		rec, err = app.ledger.Withdraw(ctx, acc.Number, amount, c.category)
	}
	if err != nil {
		fmt.Fprintln(app.Err, describe(err))
		return subcommands.ExitFailure
	}
	fmt.Fprintf(app.Out, "%s successful! Current balance: %s\n", typ, core.FormatAmount(rec.BalanceAfter))
	return subcommands.ExitSuccess
}

type depositCmd struct{ movementCmd }

func (*depositCmd) Name() string     { return "deposit" }
func (*depositCmd) Synopsis() string { return "deposit money into an account" }
func (*depositCmd) Usage() string {
	return `bankledger deposit -a <account> [-p <password>] -amount <amount> [-category <category>]
`
}

func (c *depositCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, core.Deposit)
}

type withdrawCmd struct{ movementCmd }

func (*withdrawCmd) Name() string     { return "withdraw" }
func (*withdrawCmd) Synopsis() string { return "withdraw money from an account" }
func (*withdrawCmd) Usage() string {
	return `bankledger withdraw -a <account> [-p <password>] -amount <amount> [-category <category>]

  Fails without any change when the amount exceeds the balance.
`
}

func (c *withdrawCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.run(ctx, core.Withdrawal)
}

type transferCmd struct {
	app *App
	holder
	to     string
	amount string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "transfer money to another account" }
func (*transferCmd) Usage() string {
	return `bankledger transfer -a <account> [-p <password>] -to <account> -amount <amount>

  Debits the holder and credits the recipient. Both legs are logged in the
  Transfer category.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.to, "to", "", "Recipient account number (required)")
	f.StringVar(&c.amount, "amount", "", "Amount, positive, two decimals (required)")
}

func (c *transferCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app := c.app
	if c.to == "" {
		fmt.Fprintln(app.Err, "Error: -to is required")
		return subcommands.ExitUsageError
	}
	amount, err := core.ParseAmount(c.amount)
	if err != nil {
		fmt.Fprintf(app.Err, "Error: -amount must be a positive number, got %q\n", c.amount)
		return subcommands.ExitUsageError
	}
	acc, status := c.start(ctx, app)
	if status != subcommands.ExitSuccess {
		return status
	}

	res, err := app.ledger.Transfer(ctx, acc.Number, c.to, amount)
	if err != nil {
		fmt.Fprintln(app.Err, describe(err))
		return subcommands.ExitFailure
	}
	fmt.Fprintf(app.Out, "Transfer successful! New balance: %s\n", core.FormatAmount(res.Sender.BalanceAfter))
	return subcommands.ExitSuccess
}

type profileCmd struct {
	app *App
	holder
	name        string
	newPassword string
}

func (*profileCmd) Name() string     { return "profile" }
func (*profileCmd) Synopsis() string { return "change the holder name or password" }
func (*profileCmd) Usage() string {
	return `bankledger profile -a <account> [-p <password>] [-name <name>] [-new-password <password>]

  Blank values keep the current ones.
`
}

func (c *profileCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.name, "name", "", "New holder name")
	f.StringVar(&c.newPassword, "new-password", "", "New password")
}

func (c *profileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app := c.app
	acc, status := c.start(ctx, app)
	if status != subcommands.ExitSuccess {
		return status
	}
	if err := app.ledger.UpdateProfile(ctx, acc.Number, c.name, c.newPassword); err != nil {
		fmt.Fprintln(app.Err, describe(err))
		return subcommands.ExitFailure
	}
	fmt.Fprintln(app.Out, "Account updated successfully!")
	return subcommands.ExitSuccess
}

type historyCmd struct {
	app *App
	holder
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "list every transaction of an account" }
func (*historyCmd) Usage() string {
	return `bankledger history -a <account> [-p <password>]
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app := c.app
	acc, status := c.start(ctx, app)
	if status != subcommands.ExitSuccess {
		return status
	}
	recs, err := app.ledger.History(ctx, acc.Number)
	if err != nil {
		fmt.Fprintln(app.Err, describe(err))
		return subcommands.ExitFailure
	}
	if err := app.print(renderer.HistoryMarkdown(acc, recs)); err != nil {
		fmt.Fprintf(app.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type summaryCmd struct {
	app *App
	holder
	month string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show monthly totals by type and category" }
func (*summaryCmd) Usage() string {
	return `bankledger summary -a <account> [-p <password>] [-month YYYY-MM]

  Deposit and withdrawal totals count Deposit and Withdrawal records only;
  category totals add up every record of the month.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.StringVar(&c.month, "month", "", "Month as YYYY-MM, defaults to the current month")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app := c.app
	ym := core.MonthOf(app.now())
	if c.month != "" {
		parsed, err := core.ParseYearMonth(c.month)
		if err != nil {
			fmt.Fprintf(app.Err, "Error parsing month: %v\n", err)
			return subcommands.ExitUsageError
		}
		ym = parsed
	}
	acc, status := c.start(ctx, app)
	if status != subcommands.ExitSuccess {
		return status
	}
	ov, err := app.reporter.Monthly(ctx, acc.Number, ym)
	if err != nil {
		fmt.Fprintln(app.Err, describe(err))
		return subcommands.ExitFailure
	}
	if err := app.print(renderer.SummaryMarkdown(ov)); err != nil {
		fmt.Fprintf(app.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type dashboardCmd struct {
	app *App
	holder
}

func (*dashboardCmd) Name() string     { return "dashboard" }
func (*dashboardCmd) Synopsis() string { return "show recent transactions and this month's charts" }
func (*dashboardCmd) Usage() string {
	return `bankledger dashboard -a <account> [-p <password>]
`
}

func (c *dashboardCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *dashboardCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app := c.app
	acc, status := c.start(ctx, app)
	if status != subcommands.ExitSuccess {
		return status
	}
	if err := app.dashboard(ctx, acc.Number); err != nil {
		fmt.Fprintln(app.Err, describe(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type reconcileCmd struct {
	app     *App
	account string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "check balances against the transaction log" }
func (*reconcileCmd) Usage() string {
	return `bankledger reconcile [-a <account>]

  Replays the transaction log and reports records whose balance after does
  not follow from the previous one and balances that differ from the last
  logged one. Without -a every account is checked.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "a", "", "Account number, all accounts when empty")
}

func (c *reconcileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app := c.app
	if err := app.Open(ctx); err != nil {
		fmt.Fprintf(app.Err, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	var failed []ledger.Reconciliation
	if c.account != "" {
		rep, err := app.ledger.Reconcile(ctx, c.account)
		if err != nil {
			fmt.Fprintln(app.Err, describe(err))
			return subcommands.ExitFailure
		}
		if !rep.OK() {
			failed = append(failed, rep)
		}
		fmt.Fprintf(app.Out, "Account %s: %d records, balance %s\n", rep.Account, rep.Records, core.FormatAmount(rep.Balance))
	} else {
		rep, err := audit.NewAuditor(app.ledger, app.Config.AuditConcurrency, app.Logger).AuditAll(ctx)
		if err != nil {
			fmt.Fprintf(app.Err, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		failed = rep.Failed
		fmt.Fprintf(app.Out, "%d accounts, total balance %s\n", rep.Accounts, core.FormatAmount(rep.Total))
	}

	for _, rep := range failed {
		for _, d := range rep.Discrepancies {
			fmt.Fprintf(app.Out, "Account %s: %s\n", rep.Account, d)
		}
	}
	if len(failed) > 0 {
		return subcommands.ExitFailure
	}
	fmt.Fprintln(app.Out, "Ledger reconciles.")
	return subcommands.ExitSuccess
}

type sessionCmd struct {
	app *App
}

func (*sessionCmd) Name() string     { return "session" }
func (*sessionCmd) Synopsis() string { return "run the interactive banking menu" }
func (*sessionCmd) Usage() string {
	return `bankledger session

  Starts the interactive menu: create an account or log in, then deposit,
  withdraw, transfer, update the account or show the dashboard.
`
}

func (*sessionCmd) SetFlags(*flag.FlagSet) {}

func (c *sessionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.app.Open(ctx); err != nil {
		fmt.Fprintf(c.app.Err, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := c.app.Session(ctx); err != nil {
		fmt.Fprintf(c.app.Err, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
