// Package audit reconciles account balances against the transaction log,
// either for the account named by a ledger event or for every account on a
// schedule.
package audit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"bankledger/internal/amqp"
	"bankledger/internal/core"
	"bankledger/internal/ledger"
	"bankledger/internal/log"
)

// Reconciler is the part of the ledger the auditor needs.
type Reconciler interface {
	Accounts(ctx context.Context) ([]core.Account, error)
	Reconcile(ctx context.Context, number string) (ledger.Reconciliation, error)
}

// DefaultRecheckDelay is how long the auditor waits before checking a
// drifting account a second time.
const DefaultRecheckDelay = 250 * time.Millisecond

// Auditor checks that stored balances agree with the logged history.
//
// The ledger's account locks only exist inside one process. On the file
// backend a balance swap and its log append made by another process can
// be observed half done, so an account that does not reconcile is checked
// again after recheckDelay and reported only if it still fails.
type Auditor struct {
	ledger       Reconciler
	concurrency  int
	recheckDelay time.Duration
	logger       *log.Logger
}

func NewAuditor(l Reconciler, concurrency int, logger *log.Logger) *Auditor {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Auditor{
		ledger:       l,
		concurrency:  concurrency,
		recheckDelay: DefaultRecheckDelay,
		logger:       logger.WithComponent(log.ComponentAudit),
	}
}

// Report summarises one full audit.
type Report struct {
	Accounts int
	Total    decimal.Decimal
	// Failed holds the accounts that do not reconcile, ordered by number.
	Failed   []ledger.Reconciliation
	Duration time.Duration
}

// OK reports whether every account reconciled.
func (r Report) OK() bool { return len(r.Failed) == 0 }

// HandleEvent reconciles the account named by a ledger event. Events for
// accounts that no longer exist are acknowledged and dropped.
func (a *Auditor) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	a.logger.DebugContext(ctx, "Processing ledger event",
		log.FieldEventID, ev.EventID,
		log.FieldAccount, ev.Account,
		log.FieldTxType, ev.Type)

	rep, err := a.reconcile(ctx, ev.Account)
	if errors.Is(err, core.ErrAccountNotFound) {
		a.logger.WarnContext(ctx, "Event names an unknown account",
			log.FieldEventID, ev.EventID,
			log.FieldAccount, ev.Account)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reconcile account %s: %w", ev.Account, err)
	}

	a.report(ctx, rep)
	return nil
}

// AuditAll reconciles every account, at most concurrency at a time. The
// first storage error cancels the remaining checks.
func (a *Auditor) AuditAll(ctx context.Context) (Report, error) {
	start := time.Now()
	accounts, err := a.ledger.Accounts(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list accounts: %w", err)
	}

	var (
		mu     sync.Mutex
		failed []ledger.Reconciliation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, acc := range accounts {
		g.Go(func() error {
			rep, err := a.reconcile(gctx, acc.Number)
			if errors.Is(err, core.ErrAccountNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reconcile account %s: %w", acc.Number, err)
			}
			if !rep.OK() {
				a.report(gctx, rep)
				mu.Lock()
				failed = append(failed, rep)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	slices.SortFunc(failed, func(x, y ledger.Reconciliation) int {
		return strings.Compare(x.Account, y.Account)
	})
	total := decimal.Zero
	for _, acc := range accounts {
		total = total.Add(acc.Balance)
	}
	out := Report{
		Accounts: len(accounts),
		Total:    total,
		Failed:   failed,
		Duration: time.Since(start),
	}

	a.logger.InfoContext(ctx, "Audit completed",
		"accounts", out.Accounts,
		"failed", len(out.Failed),
		"total_balance", core.FormatAmount(out.Total),
		log.FieldDuration, out.Duration.Milliseconds())
	return out, nil
}

// Run audits once at startup and then every interval until ctx is done.
func (a *Auditor) Run(ctx context.Context, interval time.Duration) {
	if _, err := a.AuditAll(ctx); err != nil && ctx.Err() == nil {
		a.logger.ErrorContext(ctx, "Startup audit failed", log.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := a.AuditAll(ctx); err != nil && ctx.Err() == nil {
				a.logger.ErrorContext(ctx, "Periodic audit failed", log.FieldError, err)
			}
		}
	}
}

func (a *Auditor) reconcile(ctx context.Context, number string) (ledger.Reconciliation, error) {
	rep, err := a.ledger.Reconcile(ctx, number)
	if err != nil || rep.OK() {
		return rep, err
	}

	a.logger.DebugContext(ctx, "Account does not reconcile, checking again",
		log.FieldAccount, number,
		"discrepancies", len(rep.Discrepancies))
	timer := time.NewTimer(a.recheckDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ledger.Reconciliation{}, ctx.Err()
	case <-timer.C:
	}
	return a.ledger.Reconcile(ctx, number)
}

func (a *Auditor) report(ctx context.Context, rep ledger.Reconciliation) {
	if rep.OK() {
		a.logger.DebugContext(ctx, "Account reconciles",
			log.FieldAccount, rep.Account,
			"records", rep.Records)
		return
	}
	for _, d := range rep.Discrepancies {
		a.logger.WarnContext(ctx, "Ledger discrepancy",
			log.FieldAccount, rep.Account,
			log.FieldBalance, core.FormatAmount(rep.Balance),
			"index", d.Index,
			"detail", d.String())
	}
}
