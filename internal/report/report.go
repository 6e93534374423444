// Package report derives dashboard figures from a snapshot. Every function
// here is pure and total: it never fails, never mutates its input, and
// yields zero values for empty input, so it is safe to re-run on every
// snapshot change.
package report

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ycchuang/moneybook/internal/domain"
)

// NetWorth sums the cached balances of all loaded accounts.
func NetWorth(accounts []domain.Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return total
}

// MonthTotals are the income and expense sums for one calendar month.
type MonthTotals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// CurrentMonthTotals sums transactions whose date falls in the calendar
// month of now, split by type. Transactions with dangling account
// references count like any other.
func CurrentMonthTotals(txs []domain.Transaction, now civil.Date) MonthTotals {
	totals := MonthTotals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range txs {
		if tx.Date.Year != now.Year || tx.Date.Month != now.Month {
			continue
		}
		switch tx.Type {
		case domain.Income:
			totals.Income = totals.Income.Add(tx.Amount)
		case domain.Expense:
			totals.Expense = totals.Expense.Add(tx.Amount)
		}
	}
	return totals
}

// CategoryTotal is one entry of the expense breakdown.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// ExpenseByCategory sums expense amounts per category across all loaded
// transactions, not time-bounded. Entries are ordered by total descending,
// then by category name, so rankings are deterministic.
func ExpenseByCategory(txs []domain.Transaction) []CategoryTotal {
	byCategory := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != domain.Expense {
			continue
		}
		byCategory[tx.Category] = byCategory[tx.Category].Add(tx.Amount)
	}

	out := make([]CategoryTotal, 0, len(byCategory))
	for cat, total := range byCategory {
		out = append(out, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// MonthBucket is one month of the trend series.
type MonthBucket struct {
	Year    int
	Month   int
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Label renders the bucket as "YYYY/M".
func (b MonthBucket) Label() string {
	return fmt.Sprintf("%d/%d", b.Year, b.Month)
}

// TrailingMonths buckets income and expense into the trailing n calendar
// months ending with the month of now. Months without matching transactions
// report zero totals; no bucket is ever omitted.
func TrailingMonths(txs []domain.Transaction, now civil.Date, n int) []MonthBucket {
	if n <= 0 {
		return nil
	}
	buckets := make([]MonthBucket, n)
	index := make(map[[2]int]*MonthBucket, n)
	year, month := now.Year, int(now.Month)
	for i := n - 1; i >= 0; i-- {
		buckets[i] = MonthBucket{Year: year, Month: month, Income: decimal.Zero, Expense: decimal.Zero}
		index[[2]int{year, month}] = &buckets[i]
		month--
		if month == 0 {
			month = 12
			year--
		}
	}

	for _, tx := range txs {
		b, ok := index[[2]int{tx.Date.Year, int(tx.Date.Month)}]
		if !ok {
			continue
		}
		switch tx.Type {
		case domain.Income:
			b.Income = b.Income.Add(tx.Amount)
		case domain.Expense:
			b.Expense = b.Expense.Add(tx.Amount)
		}
	}
	return buckets
}
