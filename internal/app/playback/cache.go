package playback

import "sync"

// StreamCache maps track IDs to resolved stream URLs.
// Entries live for the whole session; nothing is evicted.
type StreamCache struct {
	mu   sync.RWMutex
	urls map[string]string
}

// NewStreamCache creates an empty cache.
func NewStreamCache() *StreamCache {
	return &StreamCache{urls: make(map[string]string)}
}

// Get returns the cached URL for id.
func (c *StreamCache) Get(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	url, ok := c.urls[id]
	return url, ok
}

// Put stores url for id. Empty URLs are ignored.
func (c *StreamCache) Put(id, url string) {
	if id == "" || url == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.urls[id] = url
}

// Len returns the number of cached entries.
func (c *StreamCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.urls)
}
