// Package identity is the identity-provider boundary reduced to what the
// core needs: a stable opaque user id, or none, plus sign-out. Token minting
// and verification belong to the hosted provider, not to this code.
package identity

import (
	"context"
	"errors"
	"os"
	"sync"
)

// ErrNotSignedIn is returned when no user is signed in.
var ErrNotSignedIn = errors.New("not signed in")

// UserIDEnv names the environment variable the env provider reads.
const UserIDEnv = "MONEYBOOK_USER_ID"

// Provider supplies the current session's user id.
type Provider interface {
	// CurrentUserID returns the signed-in user's opaque id, or
	// ErrNotSignedIn.
	CurrentUserID(ctx context.Context) (string, error)
	// SignOut ends the session. Subsequent CurrentUserID calls return
	// ErrNotSignedIn.
	SignOut(ctx context.Context) error
}

// Static holds a fixed uid for the process lifetime, as handed over by the
// hosted identity service at startup.
type Static struct {
	mu  sync.RWMutex
	uid string
}

// NewStatic creates a provider signed in as uid. An empty uid means signed
// out.
func NewStatic(uid string) *Static {
	return &Static{uid: uid}
}

// FromEnv creates a provider from the MONEYBOOK_USER_ID variable.
func FromEnv() *Static {
	return NewStatic(os.Getenv(UserIDEnv))
}

func (s *Static) CurrentUserID(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.uid == "" {
		return "", ErrNotSignedIn
	}
	return s.uid, nil
}

func (s *Static) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uid = ""
	return nil
}

var _ Provider = (*Static)(nil)
