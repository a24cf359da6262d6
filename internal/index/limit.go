package index

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Bounds of the per-search page size
const (
	MinResultLimit = 2
	MaxResultLimit = 5
)

// LimitSource picks the page size requested from the index for one search
type LimitSource interface {
	Limit() int
}

// RandomLimit draws a uniform limit in [MinResultLimit, MaxResultLimit] per call.
// Safe for concurrent use.
type RandomLimit struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomLimit creates a limit source; a zero seed seeds from the clock
func NewRandomLimit(seed uint64) *RandomLimit {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomLimit{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Limit returns the next limit
func (r *RandomLimit) Limit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return MinResultLimit + r.rng.IntN(MaxResultLimit-MinResultLimit+1)
}

// FixedLimit always returns the same limit
type FixedLimit int

// Limit returns l
func (l FixedLimit) Limit() int { return int(l) }
