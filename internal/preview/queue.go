// Package preview implements the downscaled mip-map tile pyramid
// (SPEC_FULL.md §4.6): five layers, each fusing four child tiles into one
// 2x-downscaled parent.
package preview

import (
	"sync"

	"github.com/ehrlich-b/multipixel/internal/pixel"
)

// LayerCount is PREVIEW_SYSTEM_LAYER_COUNT.
const LayerCount = 5

// queue is an ordered, enqueue-deduplicated FIFO of chunk positions pending
// (re)render at one pyramid layer.
type queue struct {
	mu    sync.Mutex
	items []pixel.Pos
	seen  map[pixel.Pos]bool
}

func newQueue() *queue {
	return &queue{seen: make(map[pixel.Pos]bool)}
}

func (q *queue) enqueue(p pixel.Pos) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.seen[p] {
		return
	}
	q.seen[p] = true
	q.items = append(q.items, p)
}

func (q *queue) dequeue() (pixel.Pos, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return pixel.Pos{}, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	delete(q.seen, p)
	return p, true
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
