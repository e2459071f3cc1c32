package speech

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"
)

// Cache errors.
var ErrItemTooLarge = errors.New("item too large for cache")

// DefaultTTL is how long a synthesized phrase stays valid. Time phrases
// repeat daily, so a long TTL mostly trades memory for synthesis calls.
const DefaultTTL = 24 * time.Hour

// Entry is one cached synthesis result. Provider is diagnostic only and
// never affects lookup.
type Entry struct {
	Key       string
	Audio     []byte
	Provider  string
	CreatedAt time.Time
	TTL       time.Duration
}

func (e *Entry) expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreatedAt) > e.TTL
}

// Stats holds cache performance counters.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64
	Hits      int64
	Misses    int64
	Evictions int64
	Expired   int64
	HitRate   float64
}

// Cache is an in-memory, content-addressed store for synthesized speech
// with LRU eviction and lazy TTL expiry: expired entries are evicted on
// lookup, never by a background sweeper.
type Cache struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats

	// now is injectable for TTL tests.
	now func() time.Time
}

// NewCache creates a cache bounded to capacity bytes.
func NewCache(capacity int64) *Cache {
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
		now:      time.Now,
	}
}

// Normalize reduces text to its case- and whitespace-insensitive form so
// trivially different phrasings share one cache entry.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Key derives the deterministic cache key for a normalized text and voice.
func Key(text, voice string) string {
	h := sha256.New()
	h.Write([]byte(Normalize(text)))
	h.Write([]byte{0})
	h.Write([]byte(voice))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the entry for key if present and within TTL. An expired
// entry is removed and reported as a miss.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	entry := elem.Value.(*Entry)
	if entry.expired(c.now()) {
		c.removeElement(elem)
		c.stats.Expired++
		c.stats.Misses++
		return nil, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return entry, true
}

// Put stores an entry, evicting least-recently-used entries as needed.
func (c *Cache) Put(entry *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(entry.Audio))
	if size > c.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := c.items[entry.Key]; ok {
		old := elem.Value.(*Entry)
		c.size += size - int64(len(old.Audio))
		elem.Value = entry
		c.eviction.MoveToFront(elem)
		c.stats.Size = c.size
		return nil
	}

	for c.size+size > c.capacity && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(entry)
	c.items[entry.Key] = elem
	c.size += size
	c.stats.Size = c.size
	return nil
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
	c.stats.Size = 0
}

// Size returns the current cache size in bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(len(c.items))
	if stats.Hits+stats.Misses > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Hits+stats.Misses)
	}
	return stats
}

// entries returns every live entry, newest first. Used by the disk
// snapshot writer.
func (c *Cache) entries() []*Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make([]*Entry, 0, c.eviction.Len())
	for elem := c.eviction.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*Entry)
		if !entry.expired(now) {
			out = append(out, entry)
		}
	}
	return out
}

func (c *Cache) evictOldest() {
	if elem := c.eviction.Back(); elem != nil {
		c.removeElement(elem)
		c.stats.Evictions++
	}
}

func (c *Cache) removeElement(elem *list.Element) {
	entry := elem.Value.(*Entry)
	c.eviction.Remove(elem)
	delete(c.items, entry.Key)
	c.size -= int64(len(entry.Audio))
	c.stats.Size = c.size
}
