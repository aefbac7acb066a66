package feed

import "sync"

// dedupWindow remembers the most recent trade IDs seen. When the window
// fills, the oldest ID is evicted. The window outlives individual
// connections so prints replayed after a reconnect are suppressed.
type dedupWindow struct {
	mu   sync.Mutex
	seen map[string]struct{}
	ring []string
	next int
	size int
}

func newDedupWindow(size int) *dedupWindow {
	if size < 1 {
		size = 1
	}
	return &dedupWindow{
		seen: make(map[string]struct{}, size),
		ring: make([]string, size),
		size: size,
	}
}

// Observe records the ID and reports whether it was already in the window.
func (w *dedupWindow) Observe(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.seen[id]; ok {
		return true
	}
	if old := w.ring[w.next]; old != "" {
		delete(w.seen, old)
	}
	w.ring[w.next] = id
	w.next = (w.next + 1) % w.size
	w.seen[id] = struct{}{}
	return false
}

func (w *dedupWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}
