package firestore

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ycchuang/moneybook/internal/domain"
)

// Stored document shapes. Money is persisted as integer minor units
// (currency scale 2) so that balance adjustments can be expressed as exact
// atomic increments; dates are persisted as YYYY-MM-DD strings, which also
// sort correctly under the store's lexical ordering.

type accountDoc struct {
	UserID       string    `firestore:"user_id"`
	Name         string    `firestore:"name"`
	Category     string    `firestore:"category"`
	BalanceMinor int64     `firestore:"balance_minor"`
	CreatedAt    time.Time `firestore:"created_at"`
}

type transactionDoc struct {
	UserID      string    `firestore:"user_id"`
	AccountID   string    `firestore:"account_id"`
	Type        string    `firestore:"type"`
	AmountMinor int64     `firestore:"amount_minor"`
	Category    string    `firestore:"category"`
	Description string    `firestore:"description"`
	Date        string    `firestore:"date"`
	CreatedAt   time.Time `firestore:"created_at"`
}

// toMinor converts a decimal amount to minor units, rounding to the cent.
func toMinor(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// fromMinor converts minor units back to a decimal amount.
func fromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func accountToDoc(a *domain.Account) *accountDoc {
	return &accountDoc{
		UserID:       a.UserID,
		Name:         a.Name,
		Category:     a.Category,
		BalanceMinor: toMinor(a.Balance),
		CreatedAt:    a.CreatedAt,
	}
}

func (d *accountDoc) toDomain(id string) domain.Account {
	return domain.Account{
		ID:        id,
		UserID:    d.UserID,
		Name:      d.Name,
		Category:  d.Category,
		Balance:   fromMinor(d.BalanceMinor),
		CreatedAt: d.CreatedAt,
	}
}

func transactionToDoc(t *domain.Transaction) *transactionDoc {
	return &transactionDoc{
		UserID:      t.UserID,
		AccountID:   t.AccountID,
		Type:        string(t.Type),
		AmountMinor: toMinor(t.Amount),
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date.String(),
		CreatedAt:   t.CreatedAt,
	}
}

func (d *transactionDoc) toDomain(id string) (domain.Transaction, error) {
	date, err := civil.ParseDate(d.Date)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("transaction %s: parsing date %q: %w", id, d.Date, err)
	}
	return domain.Transaction{
		ID:          id,
		UserID:      d.UserID,
		AccountID:   d.AccountID,
		Type:        domain.TransactionType(d.Type),
		Amount:      fromMinor(d.AmountMinor),
		Category:    d.Category,
		Description: d.Description,
		Date:        date,
		CreatedAt:   d.CreatedAt,
	}, nil
}
