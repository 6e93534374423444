// Package ledger implements the balance adjustment protocol: the compensating
// write sequences that keep each account's cached balance consistent with the
// append-only set of transactions referencing it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ycchuang/moneybook/internal/domain"
	"github.com/ycchuang/moneybook/internal/store"
)

// Service runs the protocol against a store. It performs no retries and no
// rollback: a store failure mid-sequence is surfaced to the caller and leaves
// the balance transiently stale, repairable by replaying the ledger.
type Service struct {
	store store.Store
	log   zerolog.Logger
}

func New(st store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log}
}

// AddTransactionInput carries the user-supplied fields of a new ledger entry.
type AddTransactionInput struct {
	AccountID   string
	Type        domain.TransactionType
	Amount      decimal.Decimal
	Category    string
	Description string
	Date        civil.Date
}

// AddTransaction records a new ledger entry and then adjusts the referenced
// account's balance by the entry's signed delta.
//
// The transaction record is written before the balance is touched: if the
// sequence dies in between, the ledger already holds the truth and the
// balance is merely stale, never ahead of a record that was not durably
// written.
func (s *Service) AddTransaction(ctx context.Context, userID string, in AddTransactionInput) (*domain.Transaction, error) {
	if err := s.validateAdd(ctx, userID, in); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		UserID:      userID,
		AccountID:   in.AccountID,
		Type:        in.Type,
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
		CreatedAt:   time.Now(),
	}
	if _, err := s.store.CreateTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("adding transaction: %w", err)
	}

	if err := s.store.AdjustAccountBalance(ctx, in.AccountID, tx.Delta()); err != nil {
		// The ledger entry is durable but the cached balance was not
		// adjusted. Report loudly: this is recoverable drift, not a
		// validation problem.
		s.log.Error().Err(err).
			Str("transaction_id", tx.ID).
			Str("account_id", in.AccountID).
			Str("delta", tx.Delta().String()).
			Msg("ledger entry written but balance adjustment failed; account balance is stale")
		return nil, fmt.Errorf("adjusting balance for account %s: %w", in.AccountID, err)
	}
	return tx, nil
}

func (s *Service) validateAdd(ctx context.Context, userID string, in AddTransactionInput) error {
	if in.AccountID == "" {
		return domain.ErrNoAccount
	}
	if !in.Type.Valid() {
		return domain.ErrInvalidType
	}
	if !in.Amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	acct, err := s.store.GetAccount(ctx, in.AccountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrNoAccount
	}
	if err != nil {
		return fmt.Errorf("checking account %s: %w", in.AccountID, err)
	}
	if acct.UserID != userID {
		return domain.ErrNoAccount
	}
	return nil
}

// DeleteTransaction reverses the entry's balance adjustment and then removes
// the record, in that order: if the sequence dies after the reversal the
// record still exists as evidence, and if it dies before, both record and
// balance are intact.
//
// If the referenced account no longer exists the reversal is skipped and the
// record is still removed; a dangling reference is not an error.
func (s *Service) DeleteTransaction(ctx context.Context, tx domain.Transaction) error {
	err := s.store.AdjustAccountBalance(ctx, tx.AccountID, tx.Delta().Neg())
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		s.log.Debug().
			Str("transaction_id", tx.ID).
			Str("account_id", tx.AccountID).
			Msg("deleting transaction whose account is gone; no balance to reverse")
	case err != nil:
		return fmt.Errorf("reversing balance for account %s: %w", tx.AccountID, err)
	}

	if err := s.store.DeleteTransaction(ctx, tx.ID); err != nil {
		// Balance already reversed, record still present. The surviving
		// record is what makes the reversal detectable and redoable.
		s.log.Error().Err(err).
			Str("transaction_id", tx.ID).
			Str("account_id", tx.AccountID).
			Msg("balance reversed but transaction record removal failed")
		return fmt.Errorf("deleting transaction %s: %w", tx.ID, err)
	}
	return nil
}

// CreateAccountInput carries the user-supplied fields of a new account.
type CreateAccountInput struct {
	Name           string
	Category       domain.AccountCategory
	OpeningBalance decimal.Decimal
}

// CreateAccount writes a new account with the caller-supplied opening
// balance. No transactions are implied by the opening balance.
func (s *Service) CreateAccount(ctx context.Context, userID string, in CreateAccountInput) (*domain.Account, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: account name is required", domain.ErrNoAccount)
	}
	if in.Category == "" {
		in.Category = domain.AccountSavings
	}
	acct := &domain.Account{
		UserID:    userID,
		Name:      in.Name,
		Category:  in.Category,
		Balance:   in.OpeningBalance,
		CreatedAt: time.Now(),
	}
	if _, err := s.store.CreateAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return acct, nil
}

// DeleteAccount removes the account record unconditionally. Transactions
// referencing it are neither deleted nor relabeled; they remain queryable
// with a dangling account reference.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("deleting account %s: %w", id, err)
	}
	return nil
}
