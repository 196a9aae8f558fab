package sample

import (
	"errors"
	"math/rand"
	"testing"

	"volsampler/pkg/volume"
)

func newTestPair(t *testing.T, id int, value float32) *Pair {
	t.Helper()
	vol := volume.NewArray3(volume.Vec3{4, 4, 4})
	for i := range vol.Data {
		vol.Data[i] = value
	}
	p, err := NewPair(id, map[string]*volume.InputVolume{
		"input": newInput(t, vol, volume.Vec3{2, 2, 2}, true, false),
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create pair: %v", err)
	}
	return p
}

func TestCollectionSingleMember(t *testing.T) {
	c, err := NewCollection([]*Pair{newTestPair(t, 1, 7)}, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}
	for i := 0; i < 20; i++ {
		s, err := c.GetRandomSample()
		if err != nil {
			t.Fatalf("Failed to draw sample: %v", err)
		}
		if s.Inputs["input"].At(0, 0, 0, 0) != 7 {
			t.Fatalf("Sample not drawn from the only member")
		}
	}
}

func TestCollectionUsesAllMembers(t *testing.T) {
	pairs := []*Pair{newTestPair(t, 1, 1), newTestPair(t, 2, 2), newTestPair(t, 3, 3)}
	c, err := NewCollection(pairs, rand.New(rand.NewSource(9)))
	if err != nil {
		t.Fatalf("Failed to create collection: %v", err)
	}
	if c.Len() != 3 || c.Pair(1).ID() != 2 {
		t.Fatalf("Unexpected collection contents")
	}
	seen := make(map[float32]int)
	for i := 0; i < 300; i++ {
		s, err := c.GetRandomSample()
		if err != nil {
			t.Fatalf("Failed to draw sample: %v", err)
		}
		seen[s.Inputs["input"].At(0, 0, 0, 0)]++
	}
	for v := float32(1); v <= 3; v++ {
		if seen[v] < 50 {
			t.Errorf("Member %v drawn only %d times", v, seen[v])
		}
	}
	if c.Footprint() == 0 {
		t.Errorf("Expected non-zero footprint")
	}
}

func TestCollectionReproducible(t *testing.T) {
	draw := func() []volume.Vec3 {
		c, err := NewCollection([]*Pair{newTestPair(t, 1, 1), newTestPair(t, 2, 2)}, rand.New(rand.NewSource(42)))
		if err != nil {
			t.Fatalf("Failed to create collection: %v", err)
		}
		var devs []volume.Vec3
		for i := 0; i < 10; i++ {
			s, err := c.GetRandomSample()
			if err != nil {
				t.Fatalf("Failed to draw sample: %v", err)
			}
			devs = append(devs, s.Deviation)
		}
		return devs
	}
	a, b := draw(), draw()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Draw %d differs with the same seed: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestEmptyCollection(t *testing.T) {
	if _, err := NewCollection(nil, rand.New(rand.NewSource(1))); !errors.Is(err, volume.ErrInvalidConfiguration) {
		t.Errorf("Expected ErrInvalidConfiguration, got %v", err)
	}
}
