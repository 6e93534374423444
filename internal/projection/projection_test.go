package projection

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ycchuang/moneybook/internal/domain"
	"github.com/ycchuang/moneybook/internal/store/memory"
)

const testUser = "user-1"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newProjector(t *testing.T) (*Projector, *memory.Store) {
	t.Helper()
	st := memory.New()
	t.Cleanup(func() { st.Close() })
	p, err := New(context.Background(), st, testUser, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(p.Close)
	return p, st
}

// waitFor keeps receiving snapshots until cond holds. Intermediate snapshots
// may be coalesced away, so only the condition matters, not the count.
func waitFor(t *testing.T, ch <-chan Snapshot, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatal("subscription channel closed while waiting")
			}
			if cond(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for a matching snapshot")
		}
	}
}

func TestSubscribeDeliversCurrentState(t *testing.T) {
	p, st := newProjector(t)
	ctx := context.Background()

	if _, err := st.CreateAccount(ctx, &domain.Account{UserID: testUser, Name: "a", Balance: dec("100")}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	ch, cancel := p.Subscribe()
	defer cancel()
	snap := waitFor(t, ch, func(s Snapshot) bool { return len(s.Accounts) == 1 })
	if snap.Accounts[0].Name != "a" {
		t.Errorf("account name = %q, want a", snap.Accounts[0].Name)
	}
}

func TestSubscriberObservesMutations(t *testing.T) {
	p, st := newProjector(t)
	ctx := context.Background()

	id, err := st.CreateAccount(ctx, &domain.Account{UserID: testUser, Name: "a", Balance: dec("100")})
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	ch, cancel := p.Subscribe()
	defer cancel()
	waitFor(t, ch, func(s Snapshot) bool { return len(s.Accounts) == 1 })

	if _, err := st.CreateTransaction(ctx, &domain.Transaction{
		UserID: testUser, AccountID: id, Type: domain.Expense,
		Amount: dec("25"), Category: "飲食",
		Date: civil.Date{Year: 2026, Month: 8, Day: 27},
	}); err != nil {
		t.Fatalf("CreateTransaction failed: %v", err)
	}
	if err := st.AdjustAccountBalance(ctx, id, dec("-25")); err != nil {
		t.Fatalf("AdjustAccountBalance failed: %v", err)
	}

	snap := waitFor(t, ch, func(s Snapshot) bool {
		return len(s.Transactions) == 1 && len(s.Accounts) == 1 && s.Accounts[0].Balance.Equal(dec("75"))
	})
	if snap.Transactions[0].Category != "飲食" {
		t.Errorf("transaction category = %q, want 飲食", snap.Transactions[0].Category)
	}
}

func TestLatestNeverBlocks(t *testing.T) {
	p, st := newProjector(t)
	ctx := context.Background()

	// No subscribers at all; Latest still converges to the stored state.
	if _, err := st.CreateAccount(ctx, &domain.Account{UserID: testUser, Name: "a", Balance: dec("7")}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if snap := p.Latest(); len(snap.Accounts) == 1 {
			if !snap.Accounts[0].Balance.Equal(dec("7")) {
				t.Errorf("balance = %s, want 7", snap.Accounts[0].Balance)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("Latest never reflected the stored account")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSubscribeCancelStopsDelivery(t *testing.T) {
	p, st := newProjector(t)
	ctx := context.Background()

	ch, cancel := p.Subscribe()
	waitFor(t, ch, func(s Snapshot) bool { return true })

	cancel()
	cancel() // safe to call again

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received a snapshot after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Later mutations must not panic on the dead registration.
	if _, err := st.CreateAccount(ctx, &domain.Account{UserID: testUser, Name: "late"}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
}

func TestIndependentSubscribers(t *testing.T) {
	p, st := newProjector(t)
	ctx := context.Background()

	first, cancelFirst := p.Subscribe()
	second, cancelSecond := p.Subscribe()
	defer cancelSecond()

	waitFor(t, first, func(s Snapshot) bool { return true })
	waitFor(t, second, func(s Snapshot) bool { return true })
	cancelFirst()

	if _, err := st.CreateAccount(ctx, &domain.Account{UserID: testUser, Name: "a"}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	waitFor(t, second, func(s Snapshot) bool { return len(s.Accounts) == 1 })
}

func TestCloseClosesSubscribers(t *testing.T) {
	st := memory.New()
	defer st.Close()
	p, err := New(context.Background(), st, testUser, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ch, cancel := p.Subscribe()
	defer cancel()
	waitFor(t, ch, func(s Snapshot) bool { return true })

	p.Close()
	p.Close() // idempotent

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received a snapshot after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after Close")
	}

	// Subscriptions after Close are immediately closed.
	late, lateCancel := p.Subscribe()
	defer lateCancel()
	if _, ok := <-late; ok {
		t.Fatal("post-Close subscription delivered a snapshot")
	}
}
