package volume

import (
	"fmt"

	"volsampler/internal/logging"
)

// OutputOptions configures an OutputVolume.
type OutputOptions struct {
	StackOptions

	// Kind is the label preprocessing.
	Kind OutputKind

	// Rebalance replaces or scales the mask with class-balancing weights.
	Rebalance bool
}

// OutputVolume is a label stack paired with an optional sparse-training mask.
// Affinity labels are kept raw and converted per extraction, since the
// conversion consumes a one-voxel border that must follow the random crop.
type OutputVolume struct {
	stack *Stack
	mask  *Array4

	kind      OutputKind
	rebalance bool

	// per-axis (z, y, x) weights, affinity only
	affWeights [3]Weights
}

// NewOutputVolume stacks labels and masks and applies label preprocessing.
// masks may be empty. With affinity preprocessing the target size is grown
// by one per axis so the affinity graph has the requested size.
func NewOutputVolume(labels, masks []*Array3, opts OutputOptions) (*OutputVolume, error) {
	s, err := NewStack(labels, opts.StackOptions)
	if err != nil {
		return nil, err
	}
	v := &OutputVolume{stack: s, kind: opts.Kind, rebalance: opts.Rebalance}

	if v.kind == Affinity {
		s.setTargetSize(s.targetSize.AddScalar(1))
	}
	if (v.kind == Affinity || v.kind == BinaryClass) && s.data.Channels != 1 {
		return nil, fmt.Errorf("%v preprocessing needs one label channel, got %d: %w", v.kind, s.data.Channels, ErrInvalidConfiguration)
	}

	if len(masks) > 0 {
		msk, err := assemble(masks, opts.AutoCrop)
		if err != nil {
			return nil, fmt.Errorf("mask: %w", err)
		}
		if msk.Dims() != s.data.Dims() {
			return nil, fmt.Errorf("mask shape %v does not match label shape %v: %w", msk.Dims(), s.data.Dims(), ErrInvalidConfiguration)
		}
		for i, m := range msk.Data {
			if m > 0 {
				msk.Data[i] = 1
			} else {
				msk.Data[i] = 0
			}
		}
		v.mask = msk
	}

	if v.rebalance {
		if err := v.computeWeights(); err != nil {
			return nil, err
		}
	}

	switch v.kind {
	case BinaryClass:
		v.stack.data = binaryClass(s.data)
		if v.mask != nil {
			v.mask = v.mask.Tile(2)
		}
	case OneClass:
		for i, l := range s.data.Data {
			if l > 0 {
				s.data.Data[i] = 1
			} else {
				s.data.Data[i] = 0
			}
		}
	}
	return v, nil
}

// computeWeights derives rebalancing weights from the full label volume.
// Affinity weights are kept per axis and applied per extraction; otherwise
// the weights are folded into the mask.
func (v *OutputVolume) computeWeights() error {
	if v.kind == Affinity {
		aff, err := LabelToAffinity(v.stack.data)
		if err != nil {
			return err
		}
		for a := range v.affWeights {
			w, err := BalanceWeights(aff.Channel(a))
			if err != nil {
				return fmt.Errorf("affinity axis %d: %w", a, err)
			}
			v.affWeights[a] = w
		}
		logging.Infof("affinity rebalance weights (z,y,x): %+v\n", v.affWeights)
		return nil
	}

	w, err := BalanceWeights(v.stack.data.Data)
	if err != nil {
		return err
	}
	logging.Infof("rebalance weights: non-boundary %g, boundary %g\n", w.Positive, w.Zero)
	weight := &Array4{Channels: v.stack.data.Channels, Shape: v.stack.data.Shape, Data: weightArray(v.stack.data.Data, w)}
	if v.mask == nil {
		v.mask = weight
	} else {
		v.mask.Mul(weight)
	}
	return nil
}

// binaryClass splits a one-channel label into [label>0, 1-(label>0)].
func binaryClass(lbl *Array4) *Array4 {
	out := NewArray4(2, lbl.Shape)
	pos, neg := out.Channel(0), out.Channel(1)
	for i, l := range lbl.Data {
		if l > 0 {
			pos[i] = 1
		} else {
			neg[i] = 1
		}
	}
	return out
}

// Stack returns the underlying label stack.
func (v *OutputVolume) Stack() *Stack { return v.stack }

// Kind returns the label preprocessing.
func (v *OutputVolume) Kind() OutputKind { return v.kind }

// Mask returns the full-volume mask, or nil.
func (v *OutputVolume) Mask() *Array4 { return v.mask }

// AffinityWeights returns the per-axis rebalance weights of an affinity output.
func (v *OutputVolume) AffinityWeights() [3]Weights { return v.affWeights }

// DeviationRange returns the legal deviations of the label stack.
func (v *OutputVolume) DeviationRange() (DeviationRange, error) {
	return v.stack.DeviationRange()
}

// ExtractSubvolume returns the preprocessed label window only.
func (v *OutputVolume) ExtractSubvolume(dev Vec3, t Transform) (*Array4, error) {
	lbl, _, err := v.ExtractSubvolAndMask(dev, t)
	return lbl, err
}

// ExtractSubvolAndMask cuts the label and mask windows with the same
// deviation and transform. For affinity outputs the label window becomes an
// affinity graph and the mask an edge mask, replaced by per-axis weights
// (gated by the mask) when rebalancing. The mask result is nil when the
// volume has neither mask nor weights.
func (v *OutputVolume) ExtractSubvolAndMask(dev Vec3, t Transform) (*Array4, *Array4, error) {
	lbl, err := v.stack.extract(v.stack.data, dev, t)
	if err != nil {
		return nil, nil, err
	}
	var msk *Array4
	if v.mask != nil {
		if msk, err = v.stack.extract(v.mask, dev, t); err != nil {
			return nil, nil, err
		}
	}
	if v.kind != Affinity {
		return lbl, msk, nil
	}

	if lbl, err = LabelToAffinity(lbl); err != nil {
		return nil, nil, err
	}
	if msk, err = MaskToAffinityMask(msk); err != nil {
		return nil, nil, err
	}
	if v.rebalance {
		msk = v.weighAffinity(lbl, msk)
	}
	return lbl, msk, nil
}

func (v *OutputVolume) weighAffinity(aff, msk *Array4) *Array4 {
	wts := NewArray4(aff.Channels, aff.Shape)
	for a, w := range v.affWeights {
		copy(wts.Channel(a), weightArray(aff.Channel(a), w))
	}
	if msk != nil {
		wts.Mul(msk)
	}
	return wts
}
