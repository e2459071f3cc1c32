package speech

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func newEntry(key string, size int, ttl time.Duration, created time.Time) *Entry {
	return &Entry{
		Key:       key,
		Audio:     make([]byte, size),
		Provider:  "local",
		CreatedAt: created,
		TTL:       ttl,
	}
}

func TestCacheKeyNormalization(t *testing.T) {
	a := Key("It is Two O'Clock", "default")
	b := Key("  it is two   o'clock  ", "default")
	if a != b {
		t.Error("expected case and whitespace variants to share a key")
	}

	if Key("it is two o'clock", "default") == Key("it is two o'clock", "rachel") {
		t.Error("expected different voices to have different keys")
	}
	if Key("it is two o'clock", "default") == Key("it is three o'clock", "default") {
		t.Error("expected different texts to have different keys")
	}
}

func TestCachePutGet(t *testing.T) {
	c := NewCache(1024)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, ok := c.Get("missing"); ok {
		t.Error("expected a miss on an empty cache")
	}

	if err := c.Put(newEntry("k1", 100, DefaultTTL, now)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected a hit")
	}
	if len(entry.Audio) != 100 || entry.Provider != "local" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.ItemCount != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestCacheTTLExpiryIsLazy(t *testing.T) {
	c := NewCache(1024)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Put(newEntry("k1", 100, time.Hour, now)); err != nil {
		t.Fatal(err)
	}

	// Within TTL.
	now = now.Add(59 * time.Minute)
	if _, ok := c.Get("k1"); !ok {
		t.Fatal("expected a hit within TTL")
	}

	// Past TTL: the lookup itself evicts.
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k1"); ok {
		t.Fatal("expected a miss past TTL")
	}
	if c.Size() != 0 {
		t.Errorf("expected the expired entry to be removed, size=%d", c.Size())
	}

	stats := c.Stats()
	if stats.Expired != 1 {
		t.Errorf("expected 1 expiry, got %d", stats.Expired)
	}
}

func TestCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewCache(1024)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Put(newEntry("k1", 10, 0, now)); err != nil {
		t.Fatal(err)
	}
	now = now.Add(1000 * time.Hour)
	if _, ok := c.Get("k1"); !ok {
		t.Error("expected an entry with no TTL to stay valid")
	}
}

func TestCacheLRUEviction(t *testing.T) {
	c := NewCache(300)
	now := time.Now()

	for i := 0; i < 3; i++ {
		if err := c.Put(newEntry(fmt.Sprintf("k%d", i), 100, DefaultTTL, now)); err != nil {
			t.Fatal(err)
		}
	}

	// Touch k0 so k1 becomes the oldest.
	if _, ok := c.Get("k0"); !ok {
		t.Fatal("expected k0 present")
	}

	if err := c.Put(newEntry("k3", 100, DefaultTTL, now)); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("k1"); ok {
		t.Error("expected k1 evicted as least recently used")
	}
	for _, key := range []string{"k0", "k2", "k3"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %s to survive", key)
		}
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", c.Stats().Evictions)
	}
}

func TestCacheRejectsOversizedItem(t *testing.T) {
	c := NewCache(100)
	err := c.Put(newEntry("big", 200, DefaultTTL, time.Now()))
	if !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("expected ErrItemTooLarge, got %v", err)
	}
}

func TestCacheUpdateExistingKey(t *testing.T) {
	c := NewCache(1024)
	now := time.Now()

	if err := c.Put(newEntry("k1", 100, DefaultTTL, now)); err != nil {
		t.Fatal(err)
	}
	if err := c.Put(newEntry("k1", 50, DefaultTTL, now)); err != nil {
		t.Fatal(err)
	}

	if c.Size() != 50 {
		t.Errorf("expected size 50 after replacement, got %d", c.Size())
	}
	if c.Stats().ItemCount != 1 {
		t.Errorf("expected a single item, got %d", c.Stats().ItemCount)
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache(1024)
	if err := c.Put(newEntry("k1", 100, DefaultTTL, time.Now())); err != nil {
		t.Fatal(err)
	}
	c.Clear()

	if c.Size() != 0 || c.Stats().ItemCount != 0 {
		t.Error("expected an empty cache after Clear")
	}
}
