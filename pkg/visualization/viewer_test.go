package visualization

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"volsampler/pkg/sample"
	"volsampler/pkg/volume"
)

func testArray() *volume.Array4 {
	// 2 channels, depth 3, height 4, width 5; channel 0 holds z, channel 1 holds x
	arr := volume.NewArray4(2, volume.Vec3{3, 4, 5})
	for z := 0; z < 3; z++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 5; x++ {
				arr.Set(0, z, y, x, float32(z))
				arr.Set(1, z, y, x, float32(x))
			}
		}
	}
	return arr
}

// TestNewViewer verifies channel selection and intensity window
func TestNewViewer(t *testing.T) {
	v, err := NewViewer(testArray(), 1)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}
	if v.width != 5 || v.height != 4 || v.depth != 3 {
		t.Errorf("Unexpected dimensions %dx%dx%d", v.width, v.height, v.depth)
	}
	if v.lo != 0 || v.hi != 4 {
		t.Errorf("Expected window 0..4, got %v..%v", v.lo, v.hi)
	}
	if _, err := NewViewer(testArray(), 2); err == nil {
		t.Error("Expected error for missing channel")
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	v, err := NewViewer(testArray(), 0)
	if err != nil {
		t.Fatalf("Failed to create viewer: %v", err)
	}

	for z := 0; z < 3; z++ {
		img, err := v.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}
		if img.Bounds() != image.Rect(0, 0, 5, 4) {
			t.Errorf("Unexpected Z slice bounds %v", img.Bounds())
		}
		want := uint16(z * 65535 / 2)
		if got := img.(*image.Gray16).Gray16At(2, 1).Y; got != want {
			t.Errorf("Z slice %d: expected intensity %d, got %d", z, want, got)
		}
	}

	img, err := v.ExtractSlice("x", 1)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 3, 4) {
		t.Errorf("Unexpected X slice bounds %v", img.Bounds())
	}

	img, err = v.ExtractSlice("y", 3)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 5, 3) {
		t.Errorf("Unexpected Y slice bounds %v", img.Bounds())
	}

	if _, err := v.ExtractSlice("z", 3); err == nil {
		t.Error("Expected error for position beyond depth")
	}
	if _, err := v.ExtractSlice("w", 0); err == nil {
		t.Error("Expected error for invalid axis")
	}
}

func TestDumpSample(t *testing.T) {
	dir := t.TempDir()
	s := &sample.Sample{
		Inputs:  map[string]*volume.Array4{"input": testArray()},
		Outputs: map[string]*volume.Array4{"output": testArray()},
		Masks:   map[string]*volume.Array4{"output": nil},
	}
	if err := DumpSample(s, dir); err != nil {
		t.Fatalf("Failed to dump sample: %v", err)
	}
	for _, p := range []string{
		"inputs/input/c0/slice_z_000.jpg",
		"inputs/input/c1/slice_z_002.jpg",
		"outputs/output/c1/slice_z_001.jpg",
	} {
		if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
			t.Errorf("Expected %s: %v", p, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "masks")); !os.IsNotExist(err) {
		t.Errorf("Nil mask should not be written")
	}
}
