package puzzle

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/hailam/chessdb/internal/chessdberr"
	"github.com/hailam/chessdb/internal/store"
)

const defaultCacheSize = 20

// Cache serves random puzzles matching a Filter out of a small in-process
// window, refilled whenever the filter changes or the window is drained.
// It is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	cacheSize int
	filter    Filter
	have      bool
	items     []Puzzle
	next      int
}

// NewCache returns an empty cache with the default window size (20).
func NewCache() *Cache {
	return &Cache{cacheSize: defaultCacheSize}
}

// Next returns the next puzzle matching f, refilling and reshuffling the
// window first if the filter changed or the window is exhausted. It
// returns chessdberr.NoPuzzles if the filtered pool is empty.
func (c *Cache) Next(ctx context.Context, pool *store.Pool, f Filter) (Puzzle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	needsRefill := !c.have || !c.filter.equal(f) || c.next >= len(c.items)
	if needsRefill {
		items, err := sampleWindow(ctx, pool, f, c.cacheSize)
		if err != nil {
			return Puzzle{}, err
		}
		if len(items) == 0 {
			c.have = false
			return Puzzle{}, chessdberr.NoPuzzles
		}
		rand.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })

		c.items = items
		c.filter = f
		c.have = true
		c.next = 0
	}

	if c.next >= len(c.items) {
		return Puzzle{}, errors.New("puzzle cache: refill produced an empty window")
	}
	p := c.items[c.next]
	c.next++
	return p, nil
}
