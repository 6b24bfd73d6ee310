// Package summary aggregates an account's monthly movements.
package summary

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"github.com/shopspring/decimal"

	"bankledger/internal/core"
)

// Source replays one account's records for a month.
type Source interface {
	ForAccountInMonth(ctx context.Context, number string, ym core.YearMonth) iter.Seq2[core.TransactionRecord, error]
}

// Reporter produces the monthly overview of an account.
type Reporter interface {
	Monthly(ctx context.Context, number string, ym core.YearMonth) (core.MonthOverview, error)
}

// Totals holds the sums of Deposit and Withdrawal records.
type Totals struct {
	Deposits    decimal.Decimal
	Withdrawals decimal.Decimal
}

// Aggregator computes summaries with one forward replay of the log. It
// never writes.
type Aggregator struct {
	src Source
}

var _ Reporter = (*Aggregator)(nil)

func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src}
}

// MonthlyTotals sums deposits and withdrawals in the month. Records of other
// types count toward neither.
func (a *Aggregator) MonthlyTotals(ctx context.Context, number string, ym core.YearMonth) (Totals, error) {
	ov, err := a.Monthly(ctx, number, ym)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Deposits: ov.Deposits, Withdrawals: ov.Withdrawals}, nil
}

// MonthlyCategoryTotals sums every record's amount by category, sorted by
// category name.
func (a *Aggregator) MonthlyCategoryTotals(ctx context.Context, number string, ym core.YearMonth) ([]core.CategoryAmount, error) {
	ov, err := a.Monthly(ctx, number, ym)
	if err != nil {
		return nil, err
	}
	return ov.ByCategory, nil
}

// Monthly computes both totals and the category breakdown. A month without
// records yields zero totals and no categories.
func (a *Aggregator) Monthly(ctx context.Context, number string, ym core.YearMonth) (core.MonthOverview, error) {
	ov := core.MonthOverview{
		Account:     number,
		Month:       ym,
		Deposits:    decimal.Zero,
		Withdrawals: decimal.Zero,
	}
	byCategory := make(map[string]decimal.Decimal)

	for r, err := range a.src.ForAccountInMonth(ctx, number, ym) {
		if err != nil {
			return core.MonthOverview{}, fmt.Errorf("replay %s for %s: %w", ym, number, err)
		}
		switch r.Type {
		case core.Deposit:
			ov.Deposits = ov.Deposits.Add(r.Amount)
		case core.Withdrawal:
			ov.Withdrawals = ov.Withdrawals.Add(r.Amount)
		}
		byCategory[r.Category] = byCategory[r.Category].Add(r.Amount)
	}

	for name, amount := range byCategory {
		ov.ByCategory = append(ov.ByCategory, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		return ov.ByCategory[i].Name < ov.ByCategory[j].Name
	})
	return ov, nil
}
