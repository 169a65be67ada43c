package correlate

import (
	"context"
	"testing"
	"time"
)

func TestTTLCache_Seen(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(time.Minute)

	seen, err := c.Seen(ctx, "k1")
	if err != nil {
		t.Fatalf("Seen() error = %v", err)
	}
	if seen {
		t.Error("first Seen() = true, want false")
	}

	seen, err = c.Seen(ctx, "k1")
	if err != nil {
		t.Fatalf("Seen() error = %v", err)
	}
	if !seen {
		t.Error("second Seen() = false, want true")
	}

	seen, _ = c.Seen(ctx, "k2")
	if seen {
		t.Error("unrelated key should be unseen")
	}

	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(20 * time.Millisecond)

	if seen, _ := c.Seen(ctx, "k"); seen {
		t.Fatal("first Seen() = true, want false")
	}
	if seen, _ := c.Seen(ctx, "k"); !seen {
		t.Fatal("armed key should be seen inside the TTL")
	}

	time.Sleep(40 * time.Millisecond)

	if seen, _ := c.Seen(ctx, "k"); seen {
		t.Error("expired key should be unseen again")
	}
}

func TestTTLCache_ArmedKeyNotRefreshed(t *testing.T) {
	ctx := context.Background()
	c := NewTTLCache(50 * time.Millisecond)

	c.Seen(ctx, "k")
	time.Sleep(30 * time.Millisecond)
	// Still armed; this access must not reset the clock.
	if seen, _ := c.Seen(ctx, "k"); !seen {
		t.Fatal("key should still be armed")
	}
	time.Sleep(30 * time.Millisecond)

	if seen, _ := c.Seen(ctx, "k"); seen {
		t.Error("key should have expired relative to the original arm time")
	}
}

func TestTTLCache_ZeroTTLDefault(t *testing.T) {
	c := NewTTLCache(0)
	if c.ttl != DefaultDedupTTL {
		t.Errorf("ttl = %v, want %v", c.ttl, DefaultDedupTTL)
	}
}
