package volume

import (
	"math/rand"
	"testing"
)

func rampArray4(channels int, shape Vec3) *Array4 {
	a := NewArray4(channels, shape)
	for i := range a.Data {
		a.Data[i] = float32(i)
	}
	return a
}

func TestTransformSelfInverse(t *testing.T) {
	a := rampArray4(2, Vec3{3, 4, 4})
	for _, tr := range []Transform{
		{ReflectZ: true},
		{ReflectY: true},
		{ReflectX: true},
		{TransposeYX: true},
	} {
		twice := tr.Apply(tr.Apply(a))
		if twice.Dims() != a.Dims() {
			t.Fatalf("%v: shape changed to %v", tr, twice.Dims())
		}
		for i := range a.Data {
			if twice.Data[i] != a.Data[i] {
				t.Fatalf("%v applied twice differs at %d", tr, i)
			}
		}
	}
}

func TestTransformMapping(t *testing.T) {
	a := rampArray4(1, Vec3{2, 3, 4})

	rz := Transform{ReflectZ: true}.Apply(a)
	if rz.At(0, 0, 1, 2) != a.At(0, 1, 1, 2) {
		t.Errorf("z-reflection mapped wrong voxel")
	}
	ry := Transform{ReflectY: true}.Apply(a)
	if ry.At(0, 1, 0, 3) != a.At(0, 1, 2, 3) {
		t.Errorf("y-reflection mapped wrong voxel")
	}
	rx := Transform{ReflectX: true}.Apply(a)
	if rx.At(0, 1, 2, 0) != a.At(0, 1, 2, 3) {
		t.Errorf("x-reflection mapped wrong voxel")
	}

	tr := Transform{TransposeYX: true}.Apply(a)
	if tr.Shape != (Vec3{2, 4, 3}) {
		t.Fatalf("Expected transposed shape (2,4,3), got %v", tr.Shape)
	}
	if tr.At(0, 1, 3, 2) != a.At(0, 1, 2, 3) {
		t.Errorf("transpose mapped wrong voxel")
	}

	// reflection happens before the transpose
	both := Transform{ReflectY: true, TransposeYX: true}.Apply(a)
	if both.At(0, 0, 1, 0) != a.At(0, 0, 2, 1) {
		t.Errorf("reflect+transpose order is wrong")
	}
}

func TestTransformDoesNotModifyInput(t *testing.T) {
	a := rampArray4(1, Vec3{2, 2, 2})
	orig := a.Clone()
	Transform{ReflectZ: true, ReflectY: true, ReflectX: true, TransposeYX: true}.Apply(a)
	for i := range a.Data {
		if a.Data[i] != orig.Data[i] {
			t.Fatalf("Input modified at %d", i)
		}
	}
}

func TestRandomTransformCoversAllCombinations(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	seen := make(map[Transform]int)
	for i := 0; i < 2000; i++ {
		seen[RandomTransform(r)]++
	}
	if len(seen) != 16 {
		t.Errorf("Expected 16 distinct transforms, saw %d", len(seen))
	}
}
