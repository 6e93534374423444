package domain

import "errors"

var (
	// ErrNoAccount indicates a transaction was recorded without a usable
	// account: none selected, or the selected id does not belong to the user.
	ErrNoAccount = errors.New("no account selected or available")
	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTransactionNotFound indicates the referenced transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrInvalidAmount indicates a zero or negative transaction amount.
	ErrInvalidAmount = errors.New("amount must be positive")
	// ErrInvalidType indicates a transaction type outside INCOME/EXPENSE.
	ErrInvalidType = errors.New("invalid transaction type")
)
