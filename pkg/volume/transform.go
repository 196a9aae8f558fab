package volume

import (
	"fmt"
	"math/rand"
)

// Transform is one augmentation rule. Reflections are applied first, in
// z, y, x order, followed by the y/x transpose.
type Transform struct {
	ReflectZ    bool
	ReflectY    bool
	ReflectX    bool
	TransposeYX bool
}

// RandomTransform flips four fair coins.
func RandomTransform(r *rand.Rand) Transform {
	return Transform{
		ReflectZ:    r.Intn(2) == 1,
		ReflectY:    r.Intn(2) == 1,
		ReflectX:    r.Intn(2) == 1,
		TransposeYX: r.Intn(2) == 1,
	}
}

// IsIdentity reports whether t leaves data unchanged.
func (t Transform) IsIdentity() bool { return t == Transform{} }

func (t Transform) String() string {
	return fmt.Sprintf("[%t %t %t %t]", t.ReflectZ, t.ReflectY, t.ReflectX, t.TransposeYX)
}

// Apply returns a transformed copy of a. The input is never modified.
func (t Transform) Apply(a *Array4) *Array4 {
	if t.IsIdentity() {
		return a
	}
	Z, Y, X := a.Shape[0], a.Shape[1], a.Shape[2]
	outShape := a.Shape
	if t.TransposeYX {
		outShape = Vec3{Z, X, Y}
	}
	out := NewArray4(a.Channels, outShape)

	for c := 0; c < a.Channels; c++ {
		for z := 0; z < Z; z++ {
			sz := z
			if t.ReflectZ {
				sz = Z - 1 - z
			}
			for y := 0; y < Y; y++ {
				sy := y
				if t.ReflectY {
					sy = Y - 1 - y
				}
				for x := 0; x < X; x++ {
					sx := x
					if t.ReflectX {
						sx = X - 1 - x
					}
					v := a.At(c, sz, sy, sx)
					if t.TransposeYX {
						out.Set(c, z, x, y, v)
					} else {
						out.Set(c, z, y, x, v)
					}
				}
			}
		}
	}
	return out
}
