package summarizer

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

const (
	DefaultCacheEntries = 256
	DefaultCacheTTL     = 24 * time.Hour
)

// Cached remembers summaries so that a review delivered to several chats is
// summarized once.
type Cached struct {
	next  Summarizer
	cache *summaryCache
	ttl   time.Duration
	now   func() time.Time
}

func NewCached(next Summarizer, maxEntries int, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: newSummaryCache(maxEntries),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *Cached) Summarize(ctx context.Context, input Input) (string, error) {
	key := cacheKey(input)
	now := c.now()

	if summary, ok := c.cache.get(key, now); ok {
		return summary, nil
	}

	summary, err := c.next.Summarize(ctx, input)
	if err != nil {
		return "", err
	}

	c.cache.set(key, summary, now.Add(c.ttl), now)

	return summary, nil
}

func cacheKey(input Input) string {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return ""
	}

	sum := sha256.Sum256([]byte(strings.TrimSpace(input.Title) + "\x00" + text))

	return hex.EncodeToString(sum[:])
}

type summaryCache struct {
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
	maxEntries int
}

type summaryCacheEntry struct {
	key       string
	summary   string
	expiresAt time.Time
}

func newSummaryCache(maxEntries int) *summaryCache {
	if maxEntries <= 0 {
		return nil
	}

	return &summaryCache{
		entries:    make(map[string]*list.Element, maxEntries),
		order:      list.New(),
		maxEntries: maxEntries,
	}
}

func (c *summaryCache) get(key string, now time.Time) (string, bool) {
	if c == nil || key == "" {
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", false
	}

	entry := elem.Value.(*summaryCacheEntry) //nolint:forcetypeassert // Only entries are stored.
	if now.After(entry.expiresAt) {
		c.remove(elem)

		return "", false
	}

	c.order.MoveToFront(elem)

	return entry.summary, true
}

func (c *summaryCache) set(key, summary string, expiresAt, now time.Time) {
	if c == nil || key == "" || summary == "" || !expiresAt.After(now) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*summaryCacheEntry) //nolint:forcetypeassert // Only entries are stored.
		entry.summary = summary
		entry.expiresAt = expiresAt
		c.order.MoveToFront(elem)

		return
	}

	c.entries[key] = c.order.PushFront(&summaryCacheEntry{
		key:       key,
		summary:   summary,
		expiresAt: expiresAt,
	})

	for len(c.entries) > c.maxEntries {
		c.remove(c.order.Back())
	}
}

func (c *summaryCache) remove(elem *list.Element) {
	entry := elem.Value.(*summaryCacheEntry) //nolint:forcetypeassert // Only entries are stored.

	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
