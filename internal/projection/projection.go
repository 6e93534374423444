// Package projection maintains an always-current in-memory view of one
// user's accounts and transactions, fed by the store's change notifications
// and republished to any number of consumers.
package projection

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ycchuang/moneybook/internal/domain"
	"github.com/ycchuang/moneybook/internal/store"
)

// Snapshot is the latest observed state. The two sets come from independent
// subscriptions and are not mutually synchronized: a new transaction may be
// visible before or after the matching balance update.
type Snapshot struct {
	Accounts     []domain.Account
	Transactions []domain.Transaction
}

// Projector owns the two store watches for one user. Consumers registered
// via Subscribe receive a Snapshot after every change; each registration
// returns a cancel handle, and Close tears the whole projector down.
type Projector struct {
	log zerolog.Logger

	acctWatch store.AccountWatch
	txWatch   store.TransactionWatch

	mu       sync.RWMutex
	latest   Snapshot
	subs     map[int]chan Snapshot
	nextSub  int
	closed   bool
	closedCh chan struct{}
	wg       sync.WaitGroup
}

// New starts watching the given user's records. The projector runs until
// Close is called or ctx ends.
func New(ctx context.Context, st store.Store, userID string, log zerolog.Logger) (*Projector, error) {
	aw, err := st.WatchAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("projection: watching accounts: %w", err)
	}
	tw, err := st.WatchTransactions(ctx, userID)
	if err != nil {
		aw.Cancel()
		return nil, fmt.Errorf("projection: watching transactions: %w", err)
	}

	p := &Projector{
		log:       log,
		acctWatch: aw,
		txWatch:   tw,
		subs:      make(map[int]chan Snapshot),
		closedCh:  make(chan struct{}),
	}
	p.wg.Add(2)
	go p.consumeAccounts()
	go p.consumeTransactions()
	return p, nil
}

// Latest returns the most recent snapshot observed so far. It never blocks;
// before the first delivery both sets are empty.
func (p *Projector) Latest() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Subscribe registers a consumer. The returned channel carries a snapshot
// after every observed change, starting with the current one; the returned
// function cancels the registration and is safe to call more than once.
func (p *Projector) Subscribe() (<-chan Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan Snapshot, 1)
	if p.closed {
		close(ch)
		return ch, func() {}
	}
	id := p.nextSub
	p.nextSub++
	p.subs[id] = ch
	replaceSend(ch, p.latest)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if c, ok := p.subs[id]; ok {
				delete(p.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Close cancels the store watches and every consumer registration.
func (p *Projector) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.closedCh)
	subs := p.subs
	p.subs = make(map[int]chan Snapshot)
	p.mu.Unlock()

	p.acctWatch.Cancel()
	p.txWatch.Cancel()
	p.wg.Wait()
	for _, ch := range subs {
		close(ch)
	}
}

func (p *Projector) consumeAccounts() {
	defer p.wg.Done()
	for {
		select {
		case accounts, ok := <-p.acctWatch.Snapshots():
			if !ok {
				return
			}
			p.publish(func(s *Snapshot) { s.Accounts = accounts })
		case <-p.closedCh:
			return
		}
	}
}

func (p *Projector) consumeTransactions() {
	defer p.wg.Done()
	for {
		select {
		case txs, ok := <-p.txWatch.Snapshots():
			if !ok {
				return
			}
			p.publish(func(s *Snapshot) { s.Transactions = txs })
		case <-p.closedCh:
			return
		}
	}
}

func (p *Projector) publish(apply func(*Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	apply(&p.latest)
	for _, ch := range p.subs {
		replaceSend(ch, p.latest)
	}
}

// replaceSend delivers snap, displacing an undelivered older snapshot if the
// consumer has not caught up. Callers hold p.mu, so sends are serialized.
func replaceSend(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
