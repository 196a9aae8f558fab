// Package sample draws matched, identically augmented input/label subvolumes
// from sets of volumes that share a sample identity.
//
// Pairs and collections are not safe for concurrent use. Give each worker its
// own collection, seeded independently, or serialize access.
package sample

import (
	"fmt"
	"math/rand"
	"sort"

	"volsampler/internal/logging"
	"volsampler/pkg/volume"
)

// Sample is one training example. All arrays were cut with the same
// deviation and transform.
type Sample struct {
	Inputs  map[string]*volume.Array4
	Outputs map[string]*volume.Array4

	// Masks holds an entry per output; nil when the output has no mask or weights
	Masks map[string]*volume.Array4

	Deviation volume.Vec3
	Transform volume.Transform
}

// Pair is one sample's set of input and output volumes.
type Pair struct {
	id      int
	inputs  map[string]*volume.InputVolume
	outputs map[string]*volume.OutputVolume

	// iteration order for deterministic extraction
	inNames  []string
	outNames []string

	devRange volume.DeviationRange
}

// NewPair intersects the deviation ranges of all volumes. An empty
// intersection on any axis is a configuration error.
func NewPair(id int, inputs map[string]*volume.InputVolume, outputs map[string]*volume.OutputVolume) (*Pair, error) {
	p := &Pair{
		id:       id,
		inputs:   inputs,
		outputs:  outputs,
		inNames:  sortedKeys(inputs),
		outNames: sortedKeys(outputs),
		devRange: volume.Unbounded(),
	}

	fold := func(kind, name string, v volume.Volume) error {
		r, err := v.DeviationRange()
		if err != nil {
			return fmt.Errorf("sample %d %s %q: %w", id, kind, name, err)
		}
		p.devRange = p.devRange.Intersect(r)
		return nil
	}
	for _, name := range p.inNames {
		if err := fold("input", name, inputs[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range p.outNames {
		if err := fold("output", name, outputs[name]); err != nil {
			return nil, err
		}
	}

	if len(p.inNames)+len(p.outNames) == 0 {
		return nil, fmt.Errorf("sample %d has no volumes: %w", id, volume.ErrInvalidConfiguration)
	}
	if !p.devRange.Valid() {
		return nil, fmt.Errorf("sample %d has empty deviation range %v: %w", id, p.devRange, volume.ErrInvalidConfiguration)
	}
	logging.Infof("sample %d deviation range: %v\n", id, p.devRange)
	return p, nil
}

// ID returns the sample identifier.
func (p *Pair) ID() int { return p.id }

// DeviationRange returns the intersection of all member ranges.
func (p *Pair) DeviationRange() volume.DeviationRange { return p.devRange }

// Input returns the named input volume.
func (p *Pair) Input(name string) *volume.InputVolume { return p.inputs[name] }

// Output returns the named output volume.
func (p *Pair) Output(name string) *volume.OutputVolume { return p.outputs[name] }

// GetRandomSample draws one transform and one deviation and extracts every
// volume with them. Each deviation axis is drawn from [low, high), or is low
// when the range is a single value.
func (p *Pair) GetRandomSample(r *rand.Rand) (*Sample, error) {
	t := volume.RandomTransform(r)
	var dev volume.Vec3
	for i := range dev {
		lo, hi := p.devRange.Low[i], p.devRange.High[i]
		dev[i] = lo
		if hi > lo {
			dev[i] += r.Intn(hi - lo)
		}
	}
	return p.Extract(dev, t)
}

// Extract cuts every volume at dev with transform t.
func (p *Pair) Extract(dev volume.Vec3, t volume.Transform) (*Sample, error) {
	s := &Sample{
		Inputs:    make(map[string]*volume.Array4, len(p.inputs)),
		Outputs:   make(map[string]*volume.Array4, len(p.outputs)),
		Masks:     make(map[string]*volume.Array4, len(p.outputs)),
		Deviation: dev,
		Transform: t,
	}
	for _, name := range p.inNames {
		sub, err := p.inputs[name].ExtractSubvolume(dev, t)
		if err != nil {
			return nil, fmt.Errorf("sample %d input %q: %w", p.id, name, err)
		}
		s.Inputs[name] = sub
	}
	for _, name := range p.outNames {
		lbl, msk, err := p.outputs[name].ExtractSubvolAndMask(dev, t)
		if err != nil {
			return nil, fmt.Errorf("sample %d output %q: %w", p.id, name, err)
		}
		s.Outputs[name] = lbl
		s.Masks[name] = msk
	}
	return s, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
