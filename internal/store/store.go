// Package store defines the contract with the real-time document store that
// holds the two collections, accounts and transactions. The store is the
// system of record and the synchronization transport: all components
// communicate only by reading/writing it and observing its change
// notifications.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ycchuang/moneybook/internal/domain"
)

// AccountWatch is a live subscription to one user's full account set. Every
// change to the underlying records pushes a complete replacement snapshot,
// whether the change came from this session or another device.
type AccountWatch interface {
	// Snapshots delivers full replacement snapshots. The channel is closed
	// after Cancel or when the subscription's context ends.
	Snapshots() <-chan []domain.Account
	// Cancel tears the subscription down. It is idempotent and never an
	// error; no snapshot is delivered after it returns.
	Cancel()
}

// TransactionWatch is a live subscription to one user's full transaction
// set, ordered by date descending.
type TransactionWatch interface {
	Snapshots() <-chan []domain.Transaction
	Cancel()
}

// Store is the document-store collaborator. Implementations enforce no
// schema and no foreign keys; the invariants are the application's job.
type Store interface {
	CreateAccount(ctx context.Context, acct *domain.Account) (string, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	// AdjustAccountBalance applies the signed delta to the stored balance as
	// a single atomic field update. Returns domain.ErrAccountNotFound if the
	// account does not exist.
	AdjustAccountBalance(ctx context.Context, id string, delta decimal.Decimal) error
	DeleteAccount(ctx context.Context, id string) error
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)

	CreateTransaction(ctx context.Context, tx *domain.Transaction) (string, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)

	WatchAccounts(ctx context.Context, userID string) (AccountWatch, error)
	WatchTransactions(ctx context.Context, userID string) (TransactionWatch, error)

	Close() error
}
