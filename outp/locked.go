package outp

import "sync"

// Locked guards a Cache with a single mutex so that one cache can serve
// several search goroutines. Frame ordering per state is still the callers'
// responsibility.
type Locked struct {
	mu sync.Mutex
	c  *Cache
}

// NewLocked wraps c.
func NewLocked(c *Cache) *Locked {
	return &Locked{c: c}
}

// Lookup is Cache.Lookup under the lock.
func (l *Locked) Lookup(state, frame int) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Lookup(state, frame)
}

// Start is Cache.Start under the lock.
func (l *Locked) Start(src ObservationSource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Start(src)
}

// Reset is Cache.Reset under the lock.
func (l *Locked) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Reset()
}

// Stats is Cache.Stats under the lock.
func (l *Locked) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Stats()
}
