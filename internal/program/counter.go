package program

import (
	"github.com/roach88/blogsol/internal/config"
)

// CounterAllocator advances the per-user post counters.
//
// last_post_id is both the id of the next post and the number of ids handed
// out so far; post_count tracks created posts. Both are bounded by the post
// id encoding width, so an id that could not be encoded into an address is
// never allocated.
type CounterAllocator struct {
	max uint64
}

// NewCounterAllocator returns an allocator for the given id width.
func NewCounterAllocator(idWidth int) CounterAllocator {
	return CounterAllocator{max: config.MaxPostCounter(idWidth)}
}

// Max returns the largest value either counter may hold.
func (c CounterAllocator) Max() uint64 {
	return c.max
}

// Next returns last_post_id advanced by one.
func (c CounterAllocator) Next(lastPostID uint64) (uint64, error) {
	return c.advance("last_post_id", lastPostID)
}

// Increment returns post_count advanced by one.
func (c CounterAllocator) Increment(postCount uint64) (uint64, error) {
	return c.advance("post_count", postCount)
}

func (c CounterAllocator) advance(counter string, v uint64) (uint64, error) {
	if v >= c.max {
		return 0, NewCounterOverflowError(counter, v, c.max)
	}
	return v + 1, nil
}
