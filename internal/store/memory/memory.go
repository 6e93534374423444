// Package memory provides an in-memory Store implementation with the same
// contract as the Firestore backend, including live snapshot watches. It is
// safe for concurrent use and is suitable for tests and single-process
// offline runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ycchuang/moneybook/internal/domain"
	"github.com/ycchuang/moneybook/internal/store"
)

// Store keeps both collections in maps guarded by one mutex. Watches receive
// a full replacement snapshot after every mutation; a slow consumer only
// ever misses intermediate snapshots, never the latest one.
type Store struct {
	mu           sync.RWMutex
	accounts     map[string]domain.Account
	transactions map[string]domain.Transaction
	acctWatches  map[int]*accountWatch
	txWatches    map[int]*transactionWatch
	nextWatchID  int
	closed       bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]domain.Account),
		transactions: make(map[string]domain.Transaction),
		acctWatches:  make(map[int]*accountWatch),
		txWatches:    make(map[int]*transactionWatch),
	}
}

func (s *Store) CreateAccount(ctx context.Context, acct *domain.Account) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("store is closed")
	}
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now()
	}
	s.accounts[acct.ID] = *acct
	s.notifyAccountsLocked(acct.UserID)
	return acct.ID, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	out := acct
	return &out, nil
}

func (s *Store) AdjustAccountBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acct.Balance = acct.Balance.Add(delta)
	s.accounts[id] = acct
	s.notifyAccountsLocked(acct.UserID)
	return nil
}

// DeleteAccount removes the account record unconditionally. Deleting an
// absent account is not an error, matching the document-store backend.
// Referencing transactions are left untouched.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil
	}
	delete(s.accounts, id)
	s.notifyAccountsLocked(acct.UserID)
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountSnapshotLocked(userID), nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("store is closed")
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	s.transactions[tx.ID] = *tx
	s.notifyTransactionsLocked(tx.UserID)
	return tx.ID, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	out := tx
	return &out, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil
	}
	delete(s.transactions, id)
	s.notifyTransactionsLocked(tx.UserID)
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transactionSnapshotLocked(userID), nil
}

func (s *Store) WatchAccounts(ctx context.Context, userID string) (store.AccountWatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	id := s.nextWatchID
	s.nextWatchID++
	w := &accountWatch{ch: make(chan []domain.Account, 1), userID: userID}
	w.cancel = func() { s.dropAccountWatch(id) }
	s.acctWatches[id] = w
	// Deliver the current state right away, like a first listener callback.
	w.send(s.accountSnapshotLocked(userID))
	go cancelOnDone(ctx, w)
	return w, nil
}

func (s *Store) WatchTransactions(ctx context.Context, userID string) (store.TransactionWatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	id := s.nextWatchID
	s.nextWatchID++
	w := &transactionWatch{ch: make(chan []domain.Transaction, 1), userID: userID}
	w.cancel = func() { s.dropTransactionWatch(id) }
	s.txWatches[id] = w
	w.send(s.transactionSnapshotLocked(userID))
	go cancelOnDone(ctx, w)
	return w, nil
}

// Close cancels every live watch and rejects further writes.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	acct := s.acctWatches
	txs := s.txWatches
	s.acctWatches = make(map[int]*accountWatch)
	s.txWatches = make(map[int]*transactionWatch)
	for _, w := range acct {
		w.close()
	}
	for _, w := range txs {
		w.close()
	}
	s.mu.Unlock()
	return nil
}

// accountSnapshotLocked builds the user's account set ordered by creation
// time. Caller holds at least a read lock.
func (s *Store) accountSnapshotLocked(userID string) []domain.Account {
	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// transactionSnapshotLocked builds the user's transaction set ordered by
// date descending, newest record first within a date.
func (s *Store) transactionSnapshotLocked(userID string) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(s.transactions))
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.After(out[j].Date)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) notifyAccountsLocked(userID string) {
	for _, w := range s.acctWatches {
		if w.userID == userID {
			w.send(s.accountSnapshotLocked(userID))
		}
	}
}

func (s *Store) notifyTransactionsLocked(userID string) {
	for _, w := range s.txWatches {
		if w.userID == userID {
			w.send(s.transactionSnapshotLocked(userID))
		}
	}
}

func (s *Store) dropAccountWatch(id int) {
	s.mu.Lock()
	w, ok := s.acctWatches[id]
	if ok {
		delete(s.acctWatches, id)
	}
	s.mu.Unlock()
	if ok {
		close(w.ch)
	}
}

func (s *Store) dropTransactionWatch(id int) {
	s.mu.Lock()
	w, ok := s.txWatches[id]
	if ok {
		delete(s.txWatches, id)
	}
	s.mu.Unlock()
	if ok {
		close(w.ch)
	}
}

type canceler interface{ Cancel() }

func cancelOnDone(ctx context.Context, w canceler) {
	<-ctx.Done()
	w.Cancel()
}

type accountWatch struct {
	userID string
	ch     chan []domain.Account
	cancel func()
	once   sync.Once
}

func (w *accountWatch) Snapshots() <-chan []domain.Account { return w.ch }

func (w *accountWatch) Cancel() { w.once.Do(w.cancel) }

func (w *accountWatch) close() { w.once.Do(func() { close(w.ch) }) }

// send replaces any undelivered snapshot with the new one. Only the store's
// notify path calls this, so there is a single producer per channel.
func (w *accountWatch) send(snap []domain.Account) {
	for {
		select {
		case w.ch <- snap:
			return
		default:
			select {
			case <-w.ch:
			default:
			}
		}
	}
}

type transactionWatch struct {
	userID string
	ch     chan []domain.Transaction
	cancel func()
	once   sync.Once
}

func (w *transactionWatch) Snapshots() <-chan []domain.Transaction { return w.ch }

func (w *transactionWatch) Cancel() { w.once.Do(w.cancel) }

func (w *transactionWatch) close() { w.once.Do(func() { close(w.ch) }) }

func (w *transactionWatch) send(snap []domain.Transaction) {
	for {
		select {
		case w.ch <- snap:
			return
		default:
			select {
			case <-w.ch:
			default:
			}
		}
	}
}

var _ store.Store = (*Store)(nil)
