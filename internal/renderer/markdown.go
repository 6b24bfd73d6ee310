// Package renderer turns ledger data into markdown documents for the
// terminal.
package renderer

import (
	"bytes"
	"fmt"

	md "github.com/nao1215/markdown"

	"bankledger/internal/codec"
	"bankledger/internal/core"
)

// RecentCount is the number of transactions shown on the dashboard.
const RecentCount = 3

// Dashboard is everything shown on an account's dashboard.
type Dashboard struct {
	Account core.Account
	Recent  []core.TransactionRecord
	Month   core.MonthOverview
}

var transactionHeader = []string{"Type", "Amount", "Balance After", "Date/Time", "Category"}

func transactionTable(recs []core.TransactionRecord) md.TableSet {
	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
			md.AlignLeft,
		},
		Header: transactionHeader,
		Rows:   [][]string{},
	}
	for _, r := range recs {
		table.Rows = append(table.Rows, []string{
			r.Type.String(),
			core.FormatAmount(r.Amount),
			core.FormatAmount(r.BalanceAfter),
			r.Timestamp.Format(codec.TimestampLayout),
			r.Category,
		})
	}
	return table
}

func fenced(s string) string {
	return "```\n" + s + "```"
}

// DashboardMarkdown renders the latest transactions and the month's charts.
func DashboardMarkdown(d Dashboard) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Dashboard - %s", d.Account.Name))
	doc.PlainText(fmt.Sprintf("Account %s, balance **%s**", d.Account.Number, core.FormatAmount(d.Account.Balance)))

	recent := d.Recent
	if len(recent) > RecentCount {
		recent = recent[len(recent)-RecentCount:]
	}
	if len(recent) > 0 {
		doc.H2(fmt.Sprintf("Last %d Transactions", RecentCount))
		doc.Table(transactionTable(recent))
	} else {
		doc.PlainText("No transactions yet.")
	}

	doc.H2(fmt.Sprintf("Monthly Summary %s", d.Month.Month))
	doc.PlainText(fenced(MonthlyChart(d.Month)))

	if chart := CategoryChart(d.Month); chart != "" {
		doc.H2("Monthly Summary by Category")
		doc.PlainText(fenced(chart))
	}

	return doc.String()
}

// HistoryMarkdown renders an account's full transaction history.
func HistoryMarkdown(account core.Account, recs []core.TransactionRecord) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("History for %s", account.Number))
	if len(recs) == 0 {
		doc.PlainText("No transactions yet.")
		return doc.String()
	}
	doc.Table(transactionTable(recs))
	doc.PlainText(fmt.Sprintf("%d transactions, balance **%s**", len(recs), core.FormatAmount(account.Balance)))
	return doc.String()
}

// SummaryMarkdown renders the month's totals and category breakdown.
func SummaryMarkdown(ov core.MonthOverview) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Summary for %s, %s", ov.Account, ov.Month))
	doc.Table(md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
		Header:    []string{"Total", "Amount"},
		Rows: [][]string{
			{"Deposits", core.FormatAmount(ov.Deposits)},
			{"Withdrawals", core.FormatAmount(ov.Withdrawals)},
		},
	})

	if len(ov.ByCategory) > 0 {
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight},
			Header:    []string{"Category", "Amount"},
			Rows:      [][]string{},
		}
		for _, c := range ov.ByCategory {
			table.Rows = append(table.Rows, []string{c.Name, core.FormatAmount(c.Amount)})
		}
		doc.H2("By Category")
		doc.Table(table)
	}
	return doc.String()
}
