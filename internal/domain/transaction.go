package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TransactionType tells which way a transaction moves money. The stored
// amount is always positive; the sign lives here.
type TransactionType string

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// Valid reports whether t is one of the two defined types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Sign renders the display sign for the transaction type.
func (t TransactionType) Sign() string {
	if t == Expense {
		return "-"
	}
	return "+"
}

// Transaction is one immutable ledger entry. It references its account by id
// only; the store enforces no foreign key, so the reference may dangle after
// the account is deleted.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	AccountID   string          `json:"accountId"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Date        civil.Date      `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Delta is the signed balance change a transaction of the given type and
// amount implies: +amount for income, -amount for expense.
func Delta(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == Expense {
		return amount.Neg()
	}
	return amount
}

// Delta returns the signed balance change this transaction applied to its
// account when it was recorded.
func (tx Transaction) Delta() decimal.Decimal {
	return Delta(tx.Type, tx.Amount)
}
