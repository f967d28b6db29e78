package engine

import (
	"math/rand/v2"
	"sync"
)

// TileBag supplies tiles to deal
type TileBag interface {
	Draw() int
}

// RandomBag draws tiles uniformly from the catalogue with replacement
type RandomBag struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomBag creates a bag using rng, or a randomly seeded source when
// rng is nil.
func NewRandomBag(rng *rand.Rand) *RandomBag {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomBag{rng: rng}
}

// Draw returns a random tile id
func (b *RandomBag) Draw() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.IntN(TileCount)
}
