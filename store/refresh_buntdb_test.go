package store

import (
	"context"
	"testing"
	"time"

	guardiao "github.com/guardiao-iam/guardiao"
)

func openBuntStore(t *testing.T) *BuntRefreshStore {
	t.Helper()
	s, err := NewBuntRefreshStore(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBuntRefreshStore_IssueValidateRevoke(t *testing.T) {
	s := openBuntStore(t)
	ctx := context.Background()

	handle, err := s.Issue(ctx, "u1", []string{"openid", "offline_access"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if handle == "" {
		t.Fatal("empty handle")
	}

	grant, err := s.Validate(ctx, handle)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if grant.SubjectID != "u1" || len(grant.Scopes) != 2 {
		t.Errorf("grant = %+v", grant)
	}

	if err := s.Revoke(ctx, handle); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := s.Validate(ctx, handle); err != guardiao.ErrInvalidRefresh {
		t.Errorf("revoked handle should be invalid, got %v", err)
	}
	// Revoking twice is fine.
	if err := s.Revoke(ctx, handle); err != nil {
		t.Errorf("double revoke: %v", err)
	}
}

func TestBuntRefreshStore_UnknownHandle(t *testing.T) {
	s := openBuntStore(t)
	if _, err := s.Validate(context.Background(), "never-issued"); err != guardiao.ErrInvalidRefresh {
		t.Errorf("expected ErrInvalidRefresh, got %v", err)
	}
}

func TestBuntRefreshStore_TTLExpiry(t *testing.T) {
	s := openBuntStore(t)
	ctx := context.Background()

	handle, err := s.Issue(ctx, "u1", []string{"offline_access"}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := s.Validate(ctx, handle); err != nil {
		t.Fatalf("handle should be valid before expiry: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if _, err := s.Validate(ctx, handle); err != guardiao.ErrInvalidRefresh {
		t.Errorf("expired handle should be invalid, got %v", err)
	}
}

func TestBuntRefreshStore_HandlesAreUnique(t *testing.T) {
	s := openBuntStore(t)
	ctx := context.Background()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		h, err := s.Issue(ctx, "u1", nil, time.Hour)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		if _, dup := seen[h]; dup {
			t.Fatalf("duplicate handle %s", h)
		}
		seen[h] = struct{}{}
	}
}
