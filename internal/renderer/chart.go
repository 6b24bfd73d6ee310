package renderer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"bankledger/internal/core"
)

// ChartWidth is the length of the longest bar.
const ChartWidth = 30

const barRune = "█"

// Bar draws value as a run of blocks, scaled so that max spans width.
// Values are floored to whole blocks; a zero or negative max draws nothing.
func Bar(value, max decimal.Decimal, width int) string {
	if !max.IsPositive() || !value.IsPositive() {
		return ""
	}
	n := value.Div(max).Mul(decimal.NewFromInt(int64(width))).IntPart()
	if n > int64(width) {
		n = int64(width)
	}
	return strings.Repeat(barRune, int(n))
}

// MonthlyChart draws the deposit and withdrawal totals of the month. The
// scale never drops below 1 so tiny totals stay tiny.
func MonthlyChart(ov core.MonthOverview) string {
	scale := decimal.Max(ov.Deposits, ov.Withdrawals, decimal.NewFromInt(1))
	var b strings.Builder
	fmt.Fprintf(&b, "Deposits   : %s %s\n", Bar(ov.Deposits, scale, ChartWidth), core.FormatAmount(ov.Deposits))
	fmt.Fprintf(&b, "Withdrawals: %s %s\n", Bar(ov.Withdrawals, scale, ChartWidth), core.FormatAmount(ov.Withdrawals))
	return b.String()
}

// CategoryChart draws one bar per category, scaled to the largest one.
// It returns "" when the month has no records.
func CategoryChart(ov core.MonthOverview) string {
	if len(ov.ByCategory) == 0 {
		return ""
	}
	scale := ov.ByCategory[0].Amount
	for _, c := range ov.ByCategory[1:] {
		scale = decimal.Max(scale, c.Amount)
	}
	var b strings.Builder
	for _, c := range ov.ByCategory {
		fmt.Fprintf(&b, "%-10s: %s %s\n", c.Name, Bar(c.Amount, scale, ChartWidth), core.FormatAmount(c.Amount))
	}
	return b.String()
}
