package sample

import (
	"fmt"
	"math/rand"

	"github.com/DmitriyVTitov/size"

	"volsampler/pkg/volume"
)

// Collection picks a pair uniformly at random for every sample drawn.
type Collection struct {
	pairs []*Pair
	rng   *rand.Rand
}

// NewCollection wraps pairs. rng drives both pair selection and sampling.
func NewCollection(pairs []*Pair, rng *rand.Rand) (*Collection, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("empty sample collection: %w", volume.ErrInvalidConfiguration)
	}
	return &Collection{pairs: pairs, rng: rng}, nil
}

// Len returns the number of pairs.
func (c *Collection) Len() int { return len(c.pairs) }

// Pair returns the i-th pair.
func (c *Collection) Pair(i int) *Pair { return c.pairs[i] }

// GetRandomSample draws a sample from a randomly selected pair.
func (c *Collection) GetRandomSample() (*Sample, error) {
	i := c.rng.Intn(len(c.pairs))
	return c.pairs[i].GetRandomSample(c.rng)
}

// Footprint returns the approximate number of bytes held by the collection.
func (c *Collection) Footprint() uint64 {
	return uint64(size.Of(c.pairs))
}
