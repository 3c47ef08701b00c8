package recommend

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/meltforce/liftcoach/internal/models"
)

// cacheKeySessions is how many of the newest session ids feed the cache key.
const cacheKeySessions = 5

// Cache memoizes plans keyed by recent history. It is owned by the caller
// and safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Plan
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Plan)}
}

// Get returns the cached plan for key.
func (c *Cache) Get(key string) (Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[key]
	return p, ok
}

// Put stores a plan under key.
func (c *Cache) Put(key string, p Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = p
}

// Invalidate drops every entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Plan)
}

// Len returns the number of cached plans.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheKey derives a key from the user, the calendar day (recovery moves
// with the clock) and the ids of the newest sessions.
func CacheKey(userID int, day time.Time, history []models.HistorySession) string {
	history = newestFirst(history)
	var b strings.Builder
	b.WriteString(day.Format("2006-01-02"))
	b.WriteString("|")
	b.WriteString(strconv.Itoa(userID))
	for i := 0; i < len(history) && i < cacheKeySessions; i++ {
		b.WriteString("|")
		b.WriteString(history[i].ID)
	}
	return b.String()
}
