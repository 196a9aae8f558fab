package volume

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"volsampler/internal/logging"
)

// DeviationRange bounds the offset from a volume's center at which a
// subvolume may be centered. Both bounds are inclusive.
type DeviationRange struct {
	Low  Vec3
	High Vec3
}

// Unbounded returns a range that any intersection will narrow.
func Unbounded() DeviationRange {
	const big = int(^uint(0) >> 1)
	return DeviationRange{Low: Vec3{-big - 1, -big - 1, -big - 1}, High: Vec3{big, big, big}}
}

// Intersect returns the overlap of r and o.
func (r DeviationRange) Intersect(o DeviationRange) DeviationRange {
	return DeviationRange{Low: r.Low.Max(o.Low), High: r.High.Min(o.High)}
}

// Valid reports whether Low <= High on every axis.
func (r DeviationRange) Valid() bool { return r.Low.LessEq(r.High) }

// Contains reports whether dev is a legal deviation.
func (r DeviationRange) Contains(dev Vec3) bool {
	return r.Low.LessEq(dev) && dev.LessEq(r.High)
}

func (r DeviationRange) String() string { return fmt.Sprintf("%v--%v", r.Low, r.High) }

// Volume is the capability shared by input and output volumes.
type Volume interface {
	DeviationRange() (DeviationRange, error)
	ExtractSubvolume(dev Vec3, t Transform) (*Array4, error)
}

// StackOptions configures a Stack.
type StackOptions struct {
	// TargetSize is the (z, y, x) size of extracted subvolumes.
	TargetSize Vec3

	// AutoCrop center-crops the constituent volumes to their common minimum shape.
	AutoCrop bool

	// Augment enables the random reflection/transpose transform on extraction.
	Augment bool
}

// Stack owns a 4D array of co-registered volumes and cuts fixed-size
// subvolumes out of it at a deviation from its center.
type Stack struct {
	data *Array4

	targetSize Vec3
	center     Vec3

	// voxels below and above the subvolume center; lowMargin <= highMargin
	lowMargin  Vec3
	highMargin Vec3

	augment bool
}

// NewStack stacks vols as channels, auto-cropping them first if requested.
func NewStack(vols []*Array3, opts StackOptions) (*Stack, error) {
	data, err := assemble(vols, opts.AutoCrop)
	if err != nil {
		return nil, err
	}
	for i, n := range opts.TargetSize {
		if n < 1 {
			return nil, fmt.Errorf("target size %v must be positive on axis %d: %w", opts.TargetSize, i, ErrInvalidConfiguration)
		}
	}
	s := &Stack{data: data, augment: opts.Augment}
	for i, n := range data.Shape {
		s.center[i] = (n - 1) / 2
	}
	s.setTargetSize(opts.TargetSize)

	logging.Infof("image stack size: %v (%s)\n", data.Dims(), humanize.Bytes(uint64(4*len(data.Data))))
	logging.Infof("set size: %v, center: %v\n", s.targetSize, s.center)
	return s, nil
}

func assemble(vols []*Array3, crop bool) (*Array4, error) {
	if crop {
		vols = autoCrop(vols)
	}
	return stack(vols)
}

func (s *Stack) setTargetSize(size Vec3) {
	s.targetSize = size
	for i, n := range size {
		s.lowMargin[i] = (n - 1) / 2
		s.highMargin[i] = n / 2
	}
}

// Data returns the stacked array.
func (s *Stack) Data() *Array4 { return s.data }

// Shape returns the spatial shape of every channel.
func (s *Stack) Shape() Vec3 { return s.data.Shape }

// Center returns the lower-index-biased center voxel.
func (s *Stack) Center() Vec3 { return s.center }

// TargetSize returns the size of extracted subvolumes.
func (s *Stack) TargetSize() Vec3 { return s.targetSize }

// DeviationRange returns the legal deviations from the center. A target
// size larger than the volume on any axis is a configuration error.
func (s *Stack) DeviationRange() (DeviationRange, error) {
	shape := s.data.Shape
	if !s.targetSize.LessEq(shape) {
		return DeviationRange{}, fmt.Errorf("target size %v exceeds volume shape %v: %w", s.targetSize, shape, ErrInvalidConfiguration)
	}
	var r DeviationRange
	for i, n := range shape {
		r.Low[i] = -((n-1)/2 - s.lowMargin[i])
		r.High[i] = n/2 - s.highMargin[i]
	}
	logging.Debugf("deviation range: %v\n", r)
	return r, nil
}

// ExtractSubvolume returns the target-size window centered at center+dev,
// transformed by t when augmentation is enabled.
func (s *Stack) ExtractSubvolume(dev Vec3, t Transform) (*Array4, error) {
	return s.extract(s.data, dev, t)
}

// extract cuts the window out of arr, which must share the stack's spatial shape.
func (s *Stack) extract(arr *Array4, dev Vec3, t Transform) (*Array4, error) {
	loc := s.center.Add(dev)
	start := loc.Sub(s.lowMargin)
	end := loc.Add(s.highMargin).AddScalar(1)
	if !(Vec3{}).LessEq(start) || !end.LessEq(arr.Shape) {
		return nil, fmt.Errorf("window %v--%v outside shape %v: %w", start, end, arr.Shape, ErrOutOfBounds)
	}
	sub := arr.Window(start, s.targetSize)
	if s.augment {
		sub = t.Apply(sub)
	}
	return sub, nil
}
