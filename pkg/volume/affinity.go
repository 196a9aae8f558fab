package volume

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// axis unit steps in (z, y, x) order; affinity channel a looks one voxel back along axisStep[a]
var axisStep = [3]Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// LabelToAffinity converts a one-channel label volume of shape (Z,Y,X) into a
// three-channel affinity graph of shape (Z-1,Y-1,X-1). Voxel (z,y,x) of
// channel a describes the edge between label voxel (z+1,y+1,x+1) and its
// predecessor along axis a: 1 iff both carry the same nonzero label.
func LabelToAffinity(lbl *Array4) (*Array4, error) {
	if lbl.Channels != 1 {
		return nil, fmt.Errorf("affinity needs one label channel, got %d: %w", lbl.Channels, ErrInvalidConfiguration)
	}
	out := NewArray4(3, lbl.Shape.AddScalar(-1))
	forEachEdge(lbl.Shape, func(a int, dst, p, q Vec3) {
		v := lbl.At(0, p[0], p[1], p[2])
		if v > 0 && v == lbl.At(0, q[0], q[1], q[2]) {
			out.Set(a, dst[0], dst[1], dst[2], 1)
		}
	})
	return out, nil
}

// MaskToAffinityMask converts a one-channel mask into a three-channel edge
// mask over the same grid as LabelToAffinity. An edge is 1 iff both of its
// endpoints are masked in. A nil mask stays nil.
func MaskToAffinityMask(msk *Array4) (*Array4, error) {
	if msk == nil {
		return nil, nil
	}
	if msk.Channels != 1 {
		return nil, fmt.Errorf("affinity mask needs one channel, got %d: %w", msk.Channels, ErrInvalidConfiguration)
	}
	out := NewArray4(3, msk.Shape.AddScalar(-1))
	forEachEdge(msk.Shape, func(a int, dst, p, q Vec3) {
		if msk.At(0, p[0], p[1], p[2]) > 0 && msk.At(0, q[0], q[1], q[2]) > 0 {
			out.Set(a, dst[0], dst[1], dst[2], 1)
		}
	})
	return out, nil
}

// forEachEdge visits every interior voxel p of a volume of the given shape
// and, for each axis a, its predecessor q = p - step(a). dst is p offset by (-1,-1,-1).
func forEachEdge(shape Vec3, fn func(a int, dst, p, q Vec3)) {
	for z := 1; z < shape[0]; z++ {
		for y := 1; y < shape[1]; y++ {
			for x := 1; x < shape[2]; x++ {
				p := Vec3{z, y, x}
				dst := p.AddScalar(-1)
				for a, step := range axisStep {
					fn(a, dst, p, p.Sub(step))
				}
			}
		}
	}
}

// Weights are the loss weights of the two voxel classes of a binary array.
type Weights struct {
	Positive float64
	Zero     float64
}

// BalanceWeights returns weights that make the nonzero and zero voxels of
// arr contribute equally: Positive*nnz + Zero*(n-nnz) == n.
func BalanceWeights(arr []float32) (Weights, error) {
	n := float64(len(arr))
	nnz := float64(floats.Count(func(v float64) bool { return v != 0 }, toFloat64(arr)))
	if nnz == 0 || nnz == n {
		return Weights{}, fmt.Errorf("%v of %v voxels nonzero: %w", nnz, n, ErrDegenerateStatistics)
	}
	return Weights{
		Positive: 0.5 * n / nnz,
		Zero:     0.5 * n / (n - nnz),
	}, nil
}

// weightArray fills a same-shaped array with w.Positive where src is
// nonzero and w.Zero elsewhere.
func weightArray(src []float32, w Weights) []float32 {
	out := make([]float32, len(src))
	for i, v := range src {
		if v != 0 {
			out[i] = float32(w.Positive)
		} else {
			out[i] = float32(w.Zero)
		}
	}
	return out
}
