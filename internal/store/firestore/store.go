// Package firestore implements the store contract on Cloud Firestore. Each
// record lives in one of two collections, tagged with the owning user id;
// live watches are built on Firestore snapshot listeners.
package firestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	fs "cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ycchuang/moneybook/internal/domain"
	"github.com/ycchuang/moneybook/internal/store"
)

const (
	accountsCollection     = "accounts"
	transactionsCollection = "transactions"
)

// Store holds a shared Firestore client; create one per process and Close it
// on shutdown.
type Store struct {
	client *fs.Client
	log    zerolog.Logger
}

// New connects to Firestore for the given project.
func New(ctx context.Context, projectID string, log zerolog.Logger) (*Store, error) {
	client, err := fs.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore: creating client: %w", err)
	}
	return &Store{client: client, log: log}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) CreateAccount(ctx context.Context, acct *domain.Account) (string, error) {
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now()
	}
	ref := s.client.Collection(accountsCollection).NewDoc()
	if acct.ID != "" {
		ref = s.client.Collection(accountsCollection).Doc(acct.ID)
	}
	if _, err := ref.Create(ctx, accountToDoc(acct)); err != nil {
		return "", fmt.Errorf("firestore: creating account: %w", err)
	}
	acct.ID = ref.ID
	return ref.ID, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	snap, err := s.client.Collection(accountsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore: getting account %s: %w", id, err)
	}
	var doc accountDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decoding account %s: %w", id, err)
	}
	acct := doc.toDomain(snap.Ref.ID)
	return &acct, nil
}

// AdjustAccountBalance applies the delta as one atomic server-side increment
// on the minor-unit balance field. Concurrent adjustments from other
// sessions therefore cannot lose updates.
func (s *Store) AdjustAccountBalance(ctx context.Context, id string, delta decimal.Decimal) error {
	ref := s.client.Collection(accountsCollection).Doc(id)
	_, err := ref.Update(ctx, []fs.Update{
		{Path: "balance_minor", Value: fs.Increment(toMinor(delta))},
	})
	if status.Code(err) == codes.NotFound {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("firestore: adjusting balance of account %s: %w", id, err)
	}
	return nil
}

// DeleteAccount removes the account document unconditionally. Transactions
// that reference it are left in place; their account id dangles from then
// on, which readers must tolerate.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	if _, err := s.client.Collection(accountsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore: deleting account %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	it := s.client.Collection(accountsCollection).
		Where("user_id", "==", userID).
		OrderBy("created_at", fs.Asc).
		Documents(ctx)
	defer it.Stop()

	var out []domain.Account
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore: listing accounts: %w", err)
		}
		var doc accountDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore: decoding account %s: %w", snap.Ref.ID, err)
		}
		out = append(out, doc.toDomain(snap.Ref.ID))
	}
	return out, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx *domain.Transaction) (string, error) {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	ref := s.client.Collection(transactionsCollection).NewDoc()
	if tx.ID != "" {
		ref = s.client.Collection(transactionsCollection).Doc(tx.ID)
	}
	if _, err := ref.Create(ctx, transactionToDoc(tx)); err != nil {
		return "", fmt.Errorf("firestore: creating transaction: %w", err)
	}
	tx.ID = ref.ID
	return ref.ID, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	snap, err := s.client.Collection(transactionsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore: getting transaction %s: %w", id, err)
	}
	var doc transactionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decoding transaction %s: %w", id, err)
	}
	tx, err := doc.toDomain(snap.Ref.ID)
	if err != nil {
		return nil, fmt.Errorf("firestore: %w", err)
	}
	return &tx, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := s.client.Collection(transactionsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore: deleting transaction %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	it := s.transactionsQuery(userID).Documents(ctx)
	defer it.Stop()

	var out []domain.Transaction
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore: listing transactions: %w", err)
		}
		var doc transactionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore: decoding transaction %s: %w", snap.Ref.ID, err)
		}
		tx, err := doc.toDomain(snap.Ref.ID)
		if err != nil {
			return nil, fmt.Errorf("firestore: %w", err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) transactionsQuery(userID string) fs.Query {
	return s.client.Collection(transactionsCollection).
		Where("user_id", "==", userID).
		OrderBy("date", fs.Desc)
}

func (s *Store) WatchAccounts(ctx context.Context, userID string) (store.AccountWatch, error) {
	wctx, cancel := context.WithCancel(ctx)
	it := s.client.Collection(accountsCollection).
		Where("user_id", "==", userID).
		Snapshots(wctx)

	w := &accountWatch{ch: make(chan []domain.Account, 1)}
	w.cancel = func() {
		cancel()
		it.Stop()
	}
	go s.runAccountWatch(wctx, it, w)
	return w, nil
}

func (s *Store) runAccountWatch(ctx context.Context, it *fs.QuerySnapshotIterator, w *accountWatch) {
	defer close(w.ch)
	for {
		qsnap, err := it.Next()
		if err != nil {
			if status.Code(err) != codes.Canceled && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("account watch terminated")
			}
			return
		}
		snapshot := make([]domain.Account, 0, qsnap.Size)
		for {
			snap, err := qsnap.Documents.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				s.log.Error().Err(err).Msg("account watch: iterating snapshot")
				return
			}
			var doc accountDoc
			if err := snap.DataTo(&doc); err != nil {
				s.log.Warn().Err(err).Str("doc", snap.Ref.ID).Msg("account watch: skipping undecodable document")
				continue
			}
			snapshot = append(snapshot, doc.toDomain(snap.Ref.ID))
		}
		w.send(ctx, snapshot)
	}
}

func (s *Store) WatchTransactions(ctx context.Context, userID string) (store.TransactionWatch, error) {
	wctx, cancel := context.WithCancel(ctx)
	it := s.transactionsQuery(userID).Snapshots(wctx)

	w := &transactionWatch{ch: make(chan []domain.Transaction, 1)}
	w.cancel = func() {
		cancel()
		it.Stop()
	}
	go s.runTransactionWatch(wctx, it, w)
	return w, nil
}

func (s *Store) runTransactionWatch(ctx context.Context, it *fs.QuerySnapshotIterator, w *transactionWatch) {
	defer close(w.ch)
	for {
		qsnap, err := it.Next()
		if err != nil {
			if status.Code(err) != codes.Canceled && ctx.Err() == nil {
				s.log.Error().Err(err).Msg("transaction watch terminated")
			}
			return
		}
		snapshot := make([]domain.Transaction, 0, qsnap.Size)
		for {
			snap, err := qsnap.Documents.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				s.log.Error().Err(err).Msg("transaction watch: iterating snapshot")
				return
			}
			var doc transactionDoc
			if err := snap.DataTo(&doc); err != nil {
				s.log.Warn().Err(err).Str("doc", snap.Ref.ID).Msg("transaction watch: skipping undecodable document")
				continue
			}
			tx, err := doc.toDomain(snap.Ref.ID)
			if err != nil {
				s.log.Warn().Err(err).Msg("transaction watch: skipping document")
				continue
			}
			snapshot = append(snapshot, tx)
		}
		w.send(ctx, snapshot)
	}
}

type accountWatch struct {
	ch     chan []domain.Account
	cancel func()
	once   sync.Once
}

func (w *accountWatch) Snapshots() <-chan []domain.Account { return w.ch }

func (w *accountWatch) Cancel() { w.once.Do(w.cancel) }

// send replaces any undelivered snapshot with the newer one so a slow
// consumer always observes the latest state.
func (w *accountWatch) send(ctx context.Context, snap []domain.Account) {
	if ctx.Err() != nil {
		return
	}
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
	ch     chan []domain.Transaction
	cancel func()
	once   sync.Once
}

func (w *transactionWatch) Snapshots() <-chan []domain.Transaction { return w.ch }

func (w *transactionWatch) Cancel() { w.once.Do(w.cancel) }

func (w *transactionWatch) send(ctx context.Context, snap []domain.Transaction) {
	if ctx.Err() != nil {
		return
	}
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
