package volume

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"volsampler/internal/logging"
)

// InputOptions configures an InputVolume.
type InputOptions struct {
	StackOptions

	// Preprocessing holds one kind per channel. A single kind applies to all channels.
	Preprocessing []InputKind

	// AffinityOutput is set when an output of the same sample derives
	// affinities, which consume the first voxel along every axis.
	AffinityOutput bool
}

// InputVolume is an image stack fed to the network input layer.
type InputVolume struct {
	stack *Stack

	kinds          []InputKind
	affinityOutput bool
}

// NewInputVolume stacks vols and normalizes every channel.
func NewInputVolume(vols []*Array3, opts InputOptions) (*InputVolume, error) {
	s, err := NewStack(vols, opts.StackOptions)
	if err != nil {
		return nil, err
	}
	kinds := opts.Preprocessing
	if len(kinds) == 0 {
		kinds = []InputKind{InputNone}
	}
	if len(kinds) == 1 && s.data.Channels > 1 {
		one := kinds[0]
		kinds = make([]InputKind, s.data.Channels)
		for i := range kinds {
			kinds[i] = one
		}
	}
	if len(kinds) != s.data.Channels {
		return nil, fmt.Errorf("%d preprocessing types for %d channels: %w", len(kinds), s.data.Channels, ErrInvalidConfiguration)
	}
	for c, k := range kinds {
		normalize(s.data, c, k)
	}
	return &InputVolume{stack: s, kinds: kinds, affinityOutput: opts.AffinityOutput}, nil
}

// Stack returns the underlying stack.
func (v *InputVolume) Stack() *Stack { return v.stack }

// Preprocessing returns the per-channel kinds.
func (v *InputVolume) Preprocessing() []InputKind { return v.kinds }

// DeviationRange returns the stack's range, with the low bound raised by
// one on every axis when a downstream output derives affinities.
func (v *InputVolume) DeviationRange() (DeviationRange, error) {
	r, err := v.stack.DeviationRange()
	if err != nil {
		return r, err
	}
	if v.affinityOutput {
		r.Low = r.Low.AddScalar(1)
	}
	return r, nil
}

// ExtractSubvolume cuts an input window.
func (v *InputVolume) ExtractSubvolume(dev Vec3, t Transform) (*Array4, error) {
	return v.stack.ExtractSubvolume(dev, t)
}

func normalize(a *Array4, c int, kind InputKind) {
	ch := a.Channel(c)
	switch kind {
	case Standard2D:
		n := a.Shape[1] * a.Shape[2]
		for z := 0; z < a.Shape[0]; z++ {
			standardize(ch[z*n:(z+1)*n], c, z)
		}
	case Standard3D:
		standardize(ch, c, -1)
	}
}

// standardize subtracts the population mean and divides by the population
// standard deviation in place. Constant data is only centered.
func standardize(x []float32, c, z int) {
	buf := toFloat64(x)
	mean, std := stat.PopMeanStdDev(buf, nil)
	if std == 0 {
		logging.Warningf("channel %d slice %d has zero variance, centering only\n", c, z)
		for i := range x {
			x[i] = float32(buf[i] - mean)
		}
		return
	}
	for i := range x {
		x[i] = float32((buf[i] - mean) / std)
	}
}

func toFloat64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}
