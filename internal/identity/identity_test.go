package identity

import (
	"context"
	"errors"
	"testing"
)

func TestStaticProvider(t *testing.T) {
	ctx := context.Background()
	p := NewStatic("uid-123")

	uid, err := p.CurrentUserID(ctx)
	if err != nil {
		t.Fatalf("CurrentUserID failed: %v", err)
	}
	if uid != "uid-123" {
		t.Errorf("uid = %q, want uid-123", uid)
	}

	if err := p.SignOut(ctx); err != nil {
		t.Fatalf("SignOut failed: %v", err)
	}
	if _, err := p.CurrentUserID(ctx); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("after SignOut err = %v, want ErrNotSignedIn", err)
	}
}

func TestStaticEmptyMeansSignedOut(t *testing.T) {
	p := NewStatic("")
	if _, err := p.CurrentUserID(context.Background()); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("err = %v, want ErrNotSignedIn", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(UserIDEnv, "env-uid")
	p := FromEnv()
	uid, err := p.CurrentUserID(context.Background())
	if err != nil {
		t.Fatalf("CurrentUserID failed: %v", err)
	}
	if uid != "env-uid" {
		t.Errorf("uid = %q, want env-uid", uid)
	}
}
