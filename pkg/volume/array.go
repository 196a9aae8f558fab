// Package volume holds the 4D image stacks used to cut training subvolumes:
// the shared Stack core, InputVolume with intensity normalization, and
// OutputVolume with label preprocessing, affinity graphs and rebalancing.
//
// Arrays are stored flat in row-major order, indexed c*Z*Y*X + z*Y*X + y*X + x.
package volume

import "fmt"

// Vec3 is an integer (z, y, x) vector used for shapes, centers and deviations.
type Vec3 [3]int

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

// AddScalar returns v with n added to every component.
func (v Vec3) AddScalar(n int) Vec3 { return Vec3{v[0] + n, v[1] + n, v[2] + n} }

// Min returns the componentwise minimum.
func (v Vec3) Min(o Vec3) Vec3 {
	for i := range v {
		if o[i] < v[i] {
			v[i] = o[i]
		}
	}
	return v
}

// Max returns the componentwise maximum.
func (v Vec3) Max(o Vec3) Vec3 {
	for i := range v {
		if o[i] > v[i] {
			v[i] = o[i]
		}
	}
	return v
}

// LessEq reports whether v <= o on every axis.
func (v Vec3) LessEq(o Vec3) bool {
	return v[0] <= o[0] && v[1] <= o[1] && v[2] <= o[2]
}

// Prod returns the number of voxels in a volume of shape v.
func (v Vec3) Prod() int { return v[0] * v[1] * v[2] }

func (v Vec3) String() string { return fmt.Sprintf("(%d,%d,%d)", v[0], v[1], v[2]) }

// Array3 is a single 3D volume as returned by a file reader.
type Array3 struct {
	Shape Vec3
	Data  []float32
}

// NewArray3 allocates a zeroed volume.
func NewArray3(shape Vec3) *Array3 {
	return &Array3{Shape: shape, Data: make([]float32, shape.Prod())}
}

// At returns the value at (z, y, x).
func (a *Array3) At(z, y, x int) float32 {
	return a.Data[(z*a.Shape[1]+y)*a.Shape[2]+x]
}

// Set stores v at (z, y, x).
func (a *Array3) Set(z, y, x int, v float32) {
	a.Data[(z*a.Shape[1]+y)*a.Shape[2]+x] = v
}

// centerCrop returns the centered window of the given shape. When the size
// difference on an axis is odd the extra voxel is removed from the low side.
func (a *Array3) centerCrop(shape Vec3) *Array3 {
	if a.Shape == shape {
		return a
	}
	var off Vec3
	for i := range off {
		off[i] = (a.Shape[i] - shape[i] + 1) / 2
	}
	out := NewArray3(shape)
	for z := 0; z < shape[0]; z++ {
		for y := 0; y < shape[1]; y++ {
			src := ((z+off[0])*a.Shape[1]+y+off[1])*a.Shape[2] + off[2]
			dst := (z*shape[1] + y) * shape[2]
			copy(out.Data[dst:dst+shape[2]], a.Data[src:src+shape[2]])
		}
	}
	return out
}

// Array4 is a channel-major stack of co-registered 3D volumes.
type Array4 struct {
	Channels int
	Shape    Vec3
	Data     []float32
}

// NewArray4 allocates a zeroed stack.
func NewArray4(channels int, shape Vec3) *Array4 {
	return &Array4{Channels: channels, Shape: shape, Data: make([]float32, channels*shape.Prod())}
}

// Index returns the flat offset of (c, z, y, x).
func (a *Array4) Index(c, z, y, x int) int {
	return ((c*a.Shape[0]+z)*a.Shape[1]+y)*a.Shape[2] + x
}

// At returns the value at (c, z, y, x).
func (a *Array4) At(c, z, y, x int) float32 { return a.Data[a.Index(c, z, y, x)] }

// Set stores v at (c, z, y, x).
func (a *Array4) Set(c, z, y, x int, v float32) { a.Data[a.Index(c, z, y, x)] = v }

// Channel returns the backing slice of channel c. Writes go through to a.
func (a *Array4) Channel(c int) []float32 {
	n := a.Shape.Prod()
	return a.Data[c*n : (c+1)*n]
}

// Dims returns (channels, z, y, x).
func (a *Array4) Dims() [4]int {
	return [4]int{a.Channels, a.Shape[0], a.Shape[1], a.Shape[2]}
}

// Clone returns a deep copy.
func (a *Array4) Clone() *Array4 {
	out := &Array4{Channels: a.Channels, Shape: a.Shape, Data: make([]float32, len(a.Data))}
	copy(out.Data, a.Data)
	return out
}

// Window copies the block of the given size starting at start from every channel.
func (a *Array4) Window(start, size Vec3) *Array4 {
	out := NewArray4(a.Channels, size)
	for c := 0; c < a.Channels; c++ {
		for z := 0; z < size[0]; z++ {
			for y := 0; y < size[1]; y++ {
				src := a.Index(c, start[0]+z, start[1]+y, start[2])
				dst := out.Index(c, z, y, 0)
				copy(out.Data[dst:dst+size[2]], a.Data[src:src+size[2]])
			}
		}
	}
	return out
}

// Tile repeats every channel n times along the channel axis.
func (a *Array4) Tile(n int) *Array4 {
	out := &Array4{Channels: a.Channels * n, Shape: a.Shape, Data: make([]float32, 0, len(a.Data)*n)}
	for i := 0; i < n; i++ {
		out.Data = append(out.Data, a.Data...)
	}
	return out
}

// Mul multiplies a elementwise by b in place. Shapes must match.
func (a *Array4) Mul(b *Array4) {
	for i := range a.Data {
		a.Data[i] *= b.Data[i]
	}
}

// stack builds an Array4 from same-shaped 3D volumes.
func stack(vols []*Array3) (*Array4, error) {
	if len(vols) == 0 {
		return nil, fmt.Errorf("no volumes to stack: %w", ErrInvalidConfiguration)
	}
	shape := vols[0].Shape
	out := &Array4{Channels: len(vols), Shape: shape, Data: make([]float32, 0, len(vols)*shape.Prod())}
	for i, v := range vols {
		if v.Shape != shape {
			return nil, fmt.Errorf("volume %d has shape %v, expected %v: %w", i, v.Shape, shape, ErrShapeMismatch)
		}
		out.Data = append(out.Data, v.Data...)
	}
	return out, nil
}

// autoCrop center-crops every volume to the per-axis minimum shape.
func autoCrop(vols []*Array3) []*Array3 {
	if len(vols) < 2 {
		return vols
	}
	minShape := vols[0].Shape
	for _, v := range vols[1:] {
		minShape = minShape.Min(v.Shape)
	}
	out := make([]*Array3, len(vols))
	for i, v := range vols {
		out[i] = v.centerCrop(minShape)
	}
	return out
}
