package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"bankledger/internal/core"
	"bankledger/internal/log"
)

// History returns the account's records in append order.
func (l *Ledger) History(ctx context.Context, number string) ([]core.TransactionRecord, error) {
	if _, err := l.accounts.Find(ctx, number); err != nil {
		return nil, err
	}
	var out []core.TransactionRecord
	for r, err := range l.txlog.ForAccount(ctx, number) {
		if err != nil {
			return nil, fmt.Errorf("replay history: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// Recent returns at most n of the account's latest records, oldest first.
func (l *Ledger) Recent(ctx context.Context, number string, n int) ([]core.TransactionRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	if _, err := l.accounts.Find(ctx, number); err != nil {
		return nil, err
	}
	ring := make([]core.TransactionRecord, 0, n)
	start := 0
	for r, err := range l.txlog.ForAccount(ctx, number) {
		if err != nil {
			return nil, fmt.Errorf("replay history: %w", err)
		}
		if len(ring) < n {
			ring = append(ring, r)
			continue
		}
		ring[start] = r
		start = (start + 1) % n
	}
	return append(ring[start:], ring[:start]...), nil
}

// Discrepancy is one inconsistency between the log and the stored balance.
type Discrepancy struct {
	// Index is the position of the offending record in the account's
	// history, or -1 for the final balance check.
	Index    int
	Expected decimal.Decimal
	Actual   decimal.Decimal
	Reason   string
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s: expected %s, found %s",
		d.Reason, core.FormatAmount(d.Expected), core.FormatAmount(d.Actual))
}

// Reconciliation is the outcome of replaying one account's log.
type Reconciliation struct {
	Account       string
	Balance       decimal.Decimal
	Records       int
	LastLogged    decimal.Decimal
	Discrepancies []Discrepancy
}

// OK reports whether the log and the balance agree.
func (r Reconciliation) OK() bool { return len(r.Discrepancies) == 0 }

const (
	ReasonChainBreak   = "balance after does not follow from the previous record"
	ReasonBalanceDrift = "stored balance differs from the last logged balance"
)

// Reconcile replays the account's log under its lock. Each record's balance
// after must follow from its predecessor, and the stored balance must equal
// the last logged one. A balance written without its log record, as left by
// a failed append, shows up as drift. Accounts with no records only carry
// their opening balance and always reconcile.
func (l *Ledger) Reconcile(ctx context.Context, number string) (Reconciliation, error) {
	release := l.locks.acquire(number)
	defer release()

	a, err := l.accounts.Find(ctx, number)
	if err != nil {
		return Reconciliation{}, err
	}
	rep := Reconciliation{Account: number, Balance: a.Balance}

	var prev *core.TransactionRecord
	for r, err := range l.txlog.ForAccount(ctx, number) {
		if err != nil {
			return Reconciliation{}, fmt.Errorf("replay history: %w", err)
		}
		if prev != nil {
			want := prev.BalanceAfter.Add(r.Amount)
			if !r.Type.Credit() {
				want = prev.BalanceAfter.Sub(r.Amount)
			}
			if !want.Equal(r.BalanceAfter) {
				rep.Discrepancies = append(rep.Discrepancies, Discrepancy{
					Index:    rep.Records,
					Expected: want,
					Actual:   r.BalanceAfter,
					Reason:   ReasonChainBreak,
				})
			}
		}
		rec := r
		prev = &rec
		rep.Records++
	}

	if prev != nil {
		rep.LastLogged = prev.BalanceAfter
		if !a.Balance.Equal(prev.BalanceAfter) {
			rep.Discrepancies = append(rep.Discrepancies, Discrepancy{
				Index:    -1,
				Expected: prev.BalanceAfter,
				Actual:   a.Balance,
				Reason:   ReasonBalanceDrift,
			})
		}
	}

	if !rep.OK() {
		l.logger.WarnContext(ctx, "Account does not reconcile",
			log.FieldAccount, number,
			log.FieldBalance, core.FormatAmount(a.Balance),
			"discrepancies", len(rep.Discrepancies))
	}
	return rep, nil
}
