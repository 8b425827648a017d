package embedding

import (
	"container/list"
	"sync"
)

// EmbeddingCache is a bounded LRU of embeddings keyed by the exact input text. Stored and
// returned slices are copies, so callers may normalise or modify them freely.
type EmbeddingCache struct {
	capacity int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
	hits    uint64
	misses  uint64
}

type cached struct {
	text string
	vec  []float32
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

// NewEmbeddingCache creates a cache holding at most capacity embeddings (minimum 1).
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	if capacity < 1 {
		capacity = 1
	}
	return &EmbeddingCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns a copy of the embedding for text and marks it recently used.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return cloneVec(el.Value.(*cached).vec), true
}

// Set stores a copy of vec for text, evicting the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[text]; ok {
		el.Value.(*cached).vec = cloneVec(vec)
		c.order.MoveToFront(el)
		return
	}
	c.entries[text] = c.order.PushFront(&cached{text: text, vec: cloneVec(vec)})
	for c.order.Len() > c.capacity {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.entries, last.Value.(*cached).text)
	}
}

// Len returns the number of cached embeddings.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the current size and hit/miss counters.
func (c *EmbeddingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Size: c.order.Len(), Hits: c.hits, Misses: c.misses}
}

func cloneVec(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
