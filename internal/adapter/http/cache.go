package http

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/climaqc/station-quality-service/internal/domain"
	"github.com/climaqc/station-quality-service/internal/observability"
)

// CachedAnalyzer wraps an Analyzer with an in-memory LRU cache keyed by
// a content fingerprint of the input. The core pipeline stays
// referentially transparent; memoization of repeated uploads is owned
// here, at the presentation boundary.
type CachedAnalyzer struct {
	inner   Analyzer
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedAnalyzer creates a cache decorator around an analyzer.
func NewCachedAnalyzer(inner Analyzer, maxEntries int, metrics *observability.Metrics) *CachedAnalyzer {
	return &CachedAnalyzer{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// AnalyzeBytes returns the memoized report for previously seen content,
// otherwise runs the pipeline and caches the result. Failed runs are
// not cached so transient errors can be retried.
func (c *CachedAnalyzer) AnalyzeBytes(ctx context.Context, data []byte) (*domain.AnalysisReport, error) {
	key := Fingerprint(data)
	if report, ok := c.cache.get(key); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return report, nil
	}
	c.metrics.CacheLookups.WithLabelValues("miss").Inc()

	report, err := c.inner.AnalyzeBytes(ctx, data)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, report)
	return report, nil
}

// Fingerprint returns the content key used for memoization.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// lruCache is a simple thread-safe LRU cache for analysis reports.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value *domain.AnalysisReport
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (*domain.AnalysisReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value *domain.AnalysisReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
