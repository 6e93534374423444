package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountCategory is an open set: the constants below are the suggested
// values, but any non-empty string is accepted and passed through.
type AccountCategory = string

const (
	AccountSavings    AccountCategory = "一般儲蓄"
	AccountCredit     AccountCategory = "信用卡"
	AccountInvestment AccountCategory = "投資帳戶"
	AccountCash       AccountCategory = "現金"
)

// Account is a named store of money with a cached balance.
//
// Invariant: from creation forward, Balance equals the opening balance plus
// the signed sum of all transactions currently referencing this account.
// The balance is maintained incrementally by the ledger service; nothing
// else may write it.
type Account struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Name      string          `json:"name"`
	Category  AccountCategory `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
}
