package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDelta(t *testing.T) {
	tests := []struct {
		name   string
		typ    TransactionType
		amount string
		want   string
	}{
		{"income is positive", Income, "500", "500"},
		{"expense is negative", Expense, "200", "-200"},
		{"fractional expense", Expense, "99.95", "-99.95"},
		{"zero stays zero", Income, "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			got := Delta(tt.typ, amount)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Delta(%s, %s) = %s, want %s", tt.typ, tt.amount, got, tt.want)
			}
		})
	}
}

func TestTransactionDelta(t *testing.T) {
	tx := Transaction{Type: Expense, Amount: decimal.RequireFromString("123.45")}
	if got := tx.Delta(); !got.Equal(decimal.RequireFromString("-123.45")) {
		t.Errorf("Delta() = %s, want -123.45", got)
	}
}

func TestTransactionTypeValid(t *testing.T) {
	if !Income.Valid() || !Expense.Valid() {
		t.Error("expected INCOME and EXPENSE to be valid")
	}
	if TransactionType("TRANSFER").Valid() {
		t.Error("expected unknown type to be invalid")
	}
}

func TestTransactionTypeSign(t *testing.T) {
	if Income.Sign() != "+" {
		t.Errorf("Income.Sign() = %q, want +", Income.Sign())
	}
	if Expense.Sign() != "-" {
		t.Errorf("Expense.Sign() = %q, want -", Expense.Sign())
	}
}

func TestSuggestedCategories(t *testing.T) {
	income := SuggestedCategories(Income)
	expense := SuggestedCategories(Expense)
	if len(income) == 0 || len(expense) == 0 {
		t.Fatal("expected non-empty suggestion sets for both types")
	}
	if SuggestedCategories(TransactionType("TRANSFER")) != nil {
		t.Error("expected nil suggestions for unknown type")
	}

	// The returned slice is a copy; mutating it must not leak back.
	expense[0] = "mutated"
	if SuggestedCategories(Expense)[0] == "mutated" {
		t.Error("SuggestedCategories returned shared backing storage")
	}
}
