package auth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryRevocation_RevokeAndCheck(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	if err := store.Revoke(ctx, "token-abc-123", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	revoked, err := store.IsRevoked(ctx, "token-abc-123")
	if err != nil || !revoked {
		t.Errorf("expected token revoked, got %v %v", revoked, err)
	}
	revoked, _ = store.IsRevoked(ctx, "unknown-jti")
	if revoked {
		t.Error("expected unknown JTI to not be revoked")
	}
}

func TestMemoryRevocation_Cleanup(t *testing.T) {
	store := NewMemoryRevocationStore(time.Hour)
	defer store.Close()
	ctx := context.Background()
	now := time.Now()

	store.Revoke(ctx, "expired", now.Add(-time.Minute))
	store.Revoke(ctx, "live", now.Add(time.Hour))
	store.cleanup(now)

	if store.Count() != 1 {
		t.Fatalf("expected 1 entry after cleanup, got %d", store.Count())
	}
	if revoked, _ := store.IsRevoked(ctx, "live"); !revoked {
		t.Error("expected live token to stay revoked")
	}
}

func TestMemoryRevocation_CloseTwice(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	store.Close()
	store.Close()
}

func TestMemoryRevocation_Concurrent(t *testing.T) {
	store := NewMemoryRevocationStore(time.Minute)
	defer store.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			jti := string(rune('a' + i%26))
			store.Revoke(ctx, jti, time.Now().Add(time.Hour))
			store.IsRevoked(ctx, jti)
		}(i)
	}
	wg.Wait()

	if store.Count() != 26 {
		t.Errorf("expected 26 distinct entries, got %d", store.Count())
	}
}

func TestRevocationStore_Interface(t *testing.T) {
	var _ RevocationStore = (*MemoryRevocationStore)(nil)
	var _ RevocationStore = (*RedisRevocationStore)(nil)
}
