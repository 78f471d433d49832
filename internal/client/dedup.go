package client

import "sync"

// window remembers the last size delivered message ids. Id 0 is never
// remembered so unnumbered frames always pass.
type window struct {
	mu   sync.Mutex
	size int
	ring []int64
	pos  int
	seen map[int64]struct{}
}

func newWindow(size int) *window {
	return &window{
		size: size,
		ring: make([]int64, 0, size),
		seen: make(map[int64]struct{}, size),
	}
}

// admit reports whether id was not seen before, and records it.
func (w *window) admit(id int64) bool {
	if id == 0 {
		return true
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[id]; ok {
		return false
	}
	if len(w.ring) < w.size {
		w.ring = append(w.ring, id)
	} else {
		delete(w.seen, w.ring[w.pos])
		w.ring[w.pos] = id
		w.pos = (w.pos + 1) % w.size
	}
	w.seen[id] = struct{}{}
	return true
}
