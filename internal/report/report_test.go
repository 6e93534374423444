package report

import (
	"reflect"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ycchuang/moneybook/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func expense(amount string, category string, on civil.Date) domain.Transaction {
	return domain.Transaction{Type: domain.Expense, Amount: dec(amount), Category: category, Date: on}
}

func income(amount string, category string, on civil.Date) domain.Transaction {
	return domain.Transaction{Type: domain.Income, Amount: dec(amount), Category: category, Date: on}
}

func TestNetWorth(t *testing.T) {
	accounts := []domain.Account{
		{Balance: dec("1500")},
		{Balance: dec("-250.50")},
		{Balance: dec("0.50")},
	}
	if got := NetWorth(accounts); !got.Equal(dec("1250")) {
		t.Errorf("NetWorth = %s, want 1250", got)
	}
}

func TestNetWorthEmpty(t *testing.T) {
	if got := NetWorth(nil); !got.Equal(decimal.Zero) {
		t.Errorf("NetWorth(nil) = %s, want 0", got)
	}
}

func TestCurrentMonthTotals(t *testing.T) {
	now := date(2026, time.August, 27)
	txs := []domain.Transaction{
		income("500", "薪資", date(2026, time.August, 1)),
		expense("200", "飲食", date(2026, time.August, 15)),
		expense("80", "交通", date(2026, time.August, 27)),
		// Outside the current month; same month last year must not count.
		expense("999", "飲食", date(2026, time.July, 31)),
		income("999", "薪資", date(2025, time.August, 10)),
	}

	totals := CurrentMonthTotals(txs, now)
	if !totals.Income.Equal(dec("500")) {
		t.Errorf("Income = %s, want 500", totals.Income)
	}
	if !totals.Expense.Equal(dec("280")) {
		t.Errorf("Expense = %s, want 280", totals.Expense)
	}
}

func TestCurrentMonthTotalsEmptyMonth(t *testing.T) {
	now := date(2026, time.August, 27)
	txs := []domain.Transaction{
		expense("100", "飲食", date(2026, time.June, 1)),
	}

	totals := CurrentMonthTotals(txs, now)
	if !totals.Income.Equal(decimal.Zero) || !totals.Expense.Equal(decimal.Zero) {
		t.Errorf("empty month totals = %s/%s, want 0/0", totals.Income, totals.Expense)
	}
}

func TestExpenseByCategoryMergesCategories(t *testing.T) {
	now := date(2026, time.August, 1)
	txs := []domain.Transaction{
		expense("100", "飲食", now),
		expense("50", "飲食", now),
		expense("30", "交通", now),
		income("1000", "薪資", now), // income never appears in the breakdown
	}

	got := ExpenseByCategory(txs)
	want := []CategoryTotal{
		{Category: "飲食", Total: dec("150")},
		{Category: "交通", Total: dec("30")},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Category != want[i].Category || !got[i].Total.Equal(want[i].Total) {
			t.Errorf("entry %d = %s %s, want %s %s", i, got[i].Category, got[i].Total, want[i].Category, want[i].Total)
		}
	}
}

func TestExpenseByCategoryEmpty(t *testing.T) {
	if got := ExpenseByCategory(nil); len(got) != 0 {
		t.Errorf("expected empty breakdown, got %v", got)
	}
}

func TestTrailingMonthsZeroFill(t *testing.T) {
	now := date(2026, time.August, 27)
	txs := []domain.Transaction{
		income("500", "薪資", date(2026, time.August, 1)),
		expense("200", "飲食", date(2026, time.May, 10)),
		expense("999", "飲食", date(2026, time.January, 1)), // outside the window
	}

	got := TrailingMonths(txs, now, 6)
	if len(got) != 6 {
		t.Fatalf("got %d buckets, want 6", len(got))
	}
	if got[0].Year != 2026 || got[0].Month != 3 {
		t.Errorf("first bucket = %d/%d, want 2026/3", got[0].Year, got[0].Month)
	}
	if got[5].Year != 2026 || got[5].Month != 8 {
		t.Errorf("last bucket = %d/%d, want 2026/8", got[5].Year, got[5].Month)
	}

	for _, b := range got {
		switch b.Month {
		case 5:
			if !b.Expense.Equal(dec("200")) {
				t.Errorf("2026/5 expense = %s, want 200", b.Expense)
			}
		case 8:
			if !b.Income.Equal(dec("500")) {
				t.Errorf("2026/8 income = %s, want 500", b.Income)
			}
		default:
			// Months without transactions report zeros, never missing rows.
			if !b.Income.Equal(decimal.Zero) || !b.Expense.Equal(decimal.Zero) {
				t.Errorf("%s totals = %s/%s, want 0/0", b.Label(), b.Income, b.Expense)
			}
		}
	}
}

func TestTrailingMonthsCrossesYearBoundary(t *testing.T) {
	now := date(2026, time.February, 5)
	got := TrailingMonths(nil, now, 6)
	if len(got) != 6 {
		t.Fatalf("got %d buckets, want 6", len(got))
	}
	if got[0].Year != 2025 || got[0].Month != 9 {
		t.Errorf("first bucket = %d/%d, want 2025/9", got[0].Year, got[0].Month)
	}
	if got[0].Label() != "2025/9" {
		t.Errorf("Label = %q, want 2025/9", got[0].Label())
	}
}

func TestTrailingMonthsIdempotent(t *testing.T) {
	now := date(2026, time.August, 27)
	txs := []domain.Transaction{
		income("500", "薪資", date(2026, time.August, 1)),
		expense("200", "飲食", date(2026, time.June, 2)),
	}

	first := TrailingMonths(txs, now, 6)
	second := TrailingMonths(txs, now, 6)
	if !reflect.DeepEqual(first, second) {
		t.Error("TrailingMonths is not idempotent over the same snapshot")
	}
}

func TestAggregationsTolerateDanglingAccounts(t *testing.T) {
	now := date(2026, time.August, 27)
	// Transactions referencing an account that no longer exists aggregate
	// like any other.
	txs := []domain.Transaction{
		{Type: domain.Expense, Amount: dec("100"), Category: "飲食", Date: now, AccountID: "deleted-account"},
		{Type: domain.Expense, Amount: dec("50"), Category: "飲食", Date: now, AccountID: "deleted-account"},
	}

	if got := ExpenseByCategory(txs); len(got) != 1 || !got[0].Total.Equal(dec("150")) {
		t.Errorf("breakdown over orphans = %v, want one entry of 150", got)
	}
	if totals := CurrentMonthTotals(txs, now); !totals.Expense.Equal(dec("150")) {
		t.Errorf("month expense over orphans = %s, want 150", totals.Expense)
	}
}
