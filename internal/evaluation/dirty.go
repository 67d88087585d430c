package evaluation

import (
	"sync"
	"time"
)

// DirtyFlag records that stored ranks may be stale: an evaluation was
// persisted but the recompute that should have followed it failed.
// All methods are safe for concurrent use.
type DirtyFlag struct {
	mu    sync.Mutex
	dirty bool
	since time.Time
}

// Mark flags the ranks as stale. The first Mark since the last Clear sets Since.
func (d *DirtyFlag) Mark() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dirty {
		d.dirty = true
		d.since = time.Now()
	}
}

// Clear resets the flag after a successful recompute.
func (d *DirtyFlag) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dirty = false
	d.since = time.Time{}
}

// IsDirty reports whether ranks are stale and since when.
func (d *DirtyFlag) IsDirty() (bool, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty, d.since
}
