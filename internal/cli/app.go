package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"bankledger/internal/amqp"
	"bankledger/internal/auth"
	"bankledger/internal/backend"
	"bankledger/internal/cache"
	"bankledger/internal/config"
	"bankledger/internal/core"
	"bankledger/internal/ledger"
	"bankledger/internal/log"
	"bankledger/internal/renderer"
	"bankledger/internal/summary"
)

// App holds what every subcommand shares: configuration, the opened
// backend, the ledger over it and the terminal streams. A CLI process is
// short lived, so it is opened once on first use and closed on exit.
type App struct {
	Config *config.Config
	Logger *log.Logger

	In    io.Reader
	Out   io.Writer
	Err   io.Writer
	Style string

	ledgerOpts []ledger.Option
	now        func() time.Time

	backend  *backend.Backend
	ledger   *ledger.Ledger
	reporter *summary.Cached
	caches   *cache.Manager
	events   *amqp.Client
	prompter *Prompter
}

func NewApp(cfg *config.Config, logger *log.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger,
		In:     os.Stdin,
		Out:    os.Stdout,
		Err:    os.Stderr,
		Style:  renderer.StyleAuto,
		now:    time.Now,
	}
}

// SetFlags registers the flags shared by all subcommands. They override the
// environment.
func (a *App) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.Config.AccountsFile, "accounts", a.Config.AccountsFile, "Path to the accounts file")
	f.StringVar(&a.Config.TransactionsFile, "transactions", a.Config.TransactionsFile, "Path to the transactions file")
	f.StringVar(&a.Config.DataBackend, "backend", a.Config.DataBackend, "Storage backend: file, sqlite or memory")
	f.StringVar(&a.Style, "style", a.Style, "Output style: auto, plain, dark, light or notty")
}

// Open builds the ledger on first use.
func (a *App) Open(ctx context.Context) error {
	if a.ledger != nil {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}
	hasher, err := auth.New(a.Config.PasswordHasher)
	if err != nil {
		return err
	}
	bcfg, err := backend.FromAppConfig(a.Config)
	if err != nil {
		return err
	}
	b, err := backend.Open(ctx, bcfg, a.Logger)
	if err != nil {
		return err
	}

	opts := append([]ledger.Option{
		ledger.WithHasher(hasher),
		ledger.WithLogger(a.Logger),
	}, a.ledgerOpts...)
	l := ledger.New(b.Accounts, b.Log, opts...)

	reporter := summary.NewCached(summary.NewAggregator(b.Log), a.Config.SummaryCacheSize, a.Config.SummaryCacheTTL)
	l.AddObserver(reporter)
	caches := cache.NewManager()
	caches.Register(reporter)

	if a.Config.AMQPEnabled() {
		client, err := amqp.NewClient(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue)
		if err != nil {
			a.Logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			a.events = client
			l.AddObserver(amqp.NewPublisher(client, a.Logger))
		}
	}

	a.backend, a.ledger, a.reporter, a.caches = b, l, reporter, caches
	return nil
}

// Close releases the backend and the AMQP connection.
func (a *App) Close() error {
	var errs []error
	if a.events != nil {
		errs = append(errs, a.events.Close())
		a.events = nil
	}
	if a.backend != nil {
		errs = append(errs, a.backend.Cleanup())
		a.backend, a.ledger = nil, nil
	}
	return errors.Join(errs...)
}

func (a *App) prompt() *Prompter {
	if a.prompter == nil {
		a.prompter = NewPrompter(a.In, a.Out)
	}
	return a.prompter
}

// login authenticates number with password. Without a password it prompts,
// allowing MaxLoginAttempts tries, and asks for the number too when it is
// empty.
func (a *App) login(ctx context.Context, number, password string) (core.Account, error) {
	if password != "" {
		return a.ledger.Authenticate(ctx, number, password)
	}

	p := a.prompt()
	askNumber := number == ""
	for attempt := 1; ; attempt++ {
		if askNumber {
			n, err := p.Line("Enter account number: ")
			if err != nil {
				return core.Account{}, err
			}
			number = n
		}
		pw, err := p.Password("Enter password: ")
		if err != nil {
			return core.Account{}, err
		}

		acc, err := a.ledger.Authenticate(ctx, number, pw)
		if err == nil {
			return acc, nil
		}
		if !errors.Is(err, core.ErrAuthFailed) {
			return core.Account{}, err
		}
		left := a.Config.MaxLoginAttempts - attempt
		if left <= 0 {
			return core.Account{}, core.ErrTooManyAttempts
		}
		fmt.Fprintf(a.Err, "Invalid account number or password. Attempts left: %d\n", left)
	}
}

func (a *App) print(markdown string) error {
	return renderer.Print(a.Out, markdown, a.Style)
}

func (a *App) dashboard(ctx context.Context, number string) error {
	acc, err := a.ledger.Account(ctx, number)
	if err != nil {
		return err
	}
	recent, err := a.ledger.Recent(ctx, number, renderer.RecentCount)
	if err != nil {
		return err
	}
	month, err := a.reporter.Monthly(ctx, number, core.MonthOf(a.now()))
	if err != nil {
		return err
	}
	return a.print(renderer.DashboardMarkdown(renderer.Dashboard{
		Account: acc,
		Recent:  recent,
		Month:   month,
	}))
}

// describe turns ledger errors into the messages shown to account holders.
func describe(err error) string {
	switch {
	case errors.Is(err, core.ErrInsufficientFunds):
		return "Insufficient balance!"
	case errors.Is(err, core.ErrRecipientNotFound):
		return "Recipient account not found!"
	case errors.Is(err, core.ErrSelfTransfer):
		return "Cannot transfer to the same account!"
	case errors.Is(err, core.ErrInvalidAmount):
		return "Amount must be positive!"
	case errors.Is(err, core.ErrInvalidField):
		return "Names and categories cannot contain commas or line breaks!"
	case errors.Is(err, core.ErrAuthFailed):
		return "Invalid account number or password."
	case errors.Is(err, core.ErrTooManyAttempts):
		return "Maximum login attempts exceeded."
	case errors.Is(err, core.ErrPartialTransfer):
		return fmt.Sprintf("Transfer incomplete, run reconcile: %v", err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
