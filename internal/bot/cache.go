package bot

import "dropfour/internal/game"

const defaultEvalCacheSize = 1 << 20

// boardKey packs a board into one occupancy bitmask per side, bit row*Cols+col.
type boardKey struct {
	p1 uint64
	p2 uint64
}

func keyOf(b *game.Board) boardKey {
	var k boardKey
	for row := 0; row < game.Rows; row++ {
		for col := 0; col < game.Cols; col++ {
			bit := uint64(1) << uint(row*game.Cols+col)
			switch b[row][col] {
			case game.Player1:
				k.p1 |= bit
			case game.Player2:
				k.p2 |= bit
			}
		}
	}
	return k
}

// evalCache memoises leaf evaluations for the duration of one move
// selection. Static evaluation depends on the board alone, so hits are exact.
type evalCache struct {
	entries map[boardKey]int
	limit   int
	hits    int64
}

func newEvalCache(limit int) *evalCache {
	if limit <= 0 {
		limit = defaultEvalCacheSize
	}
	return &evalCache{entries: make(map[boardKey]int), limit: limit}
}

func (c *evalCache) get(k boardKey) (int, bool) {
	v, ok := c.entries[k]
	if ok {
		c.hits++
	}
	return v, ok
}

// put stops storing once the limit is reached; existing entries stay valid.
func (c *evalCache) put(k boardKey, v int) {
	if len(c.entries) >= c.limit {
		return
	}
	c.entries[k] = v
}
