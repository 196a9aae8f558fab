package imageio

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/tiff"

	"volsampler/pkg/volume"
)

func writeGray16(t *testing.T, path string, w, h int, value func(x, y int) uint16) {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray16(x, y, color.Gray16{Y: value(x, y)})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if filepath.Ext(path) == ".png" {
		err = png.Encode(f, img)
	} else {
		err = tiff.Encode(f, img, nil)
	}
	if err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
}

func TestReadSliceDirectory(t *testing.T) {
	dir := t.TempDir()
	// written out of order; slice_10 must come last
	for _, z := range []int{10, 2, 1} {
		z := z
		writeGray16(t, filepath.Join(dir, fmt.Sprintf("slice_%d.tif", z)), 4, 3, func(x, y int) uint16 {
			return uint16(1000*z + 10*y + x)
		})
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	vol, err := NewReader().Read(dir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	if vol.Shape != (volume.Vec3{3, 3, 4}) {
		t.Fatalf("Expected shape (3,3,4), got %v", vol.Shape)
	}
	for z, id := range []int{1, 2, 10} {
		if got, want := vol.At(z, 2, 3), float32(1000*id+23); got != want {
			t.Errorf("Slice %d: expected %v, got %v", z, want, got)
		}
	}
}

func TestReadSingleImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "label.png")
	writeGray16(t, path, 5, 2, func(x, y int) uint16 { return uint16(x * y) })

	vol, err := NewReader().Read(path)
	if err != nil {
		t.Fatalf("Failed to read image: %v", err)
	}
	if vol.Shape != (volume.Vec3{1, 2, 5}) {
		t.Fatalf("Expected shape (1,2,5), got %v", vol.Shape)
	}
	if vol.At(0, 1, 4) != 4 {
		t.Errorf("Expected raw value 4, got %v", vol.At(0, 1, 4))
	}
}

func TestReadMismatchedSlices(t *testing.T) {
	dir := t.TempDir()
	writeGray16(t, filepath.Join(dir, "s1.png"), 4, 4, func(x, y int) uint16 { return 0 })
	writeGray16(t, filepath.Join(dir, "s2.png"), 4, 5, func(x, y int) uint16 { return 0 })

	if _, err := NewReader().Read(dir); !errors.Is(err, volume.ErrShapeMismatch) {
		t.Errorf("Expected ErrShapeMismatch, got %v", err)
	}
}

func TestReadEmptyDirectory(t *testing.T) {
	if _, err := NewReader().Read(t.TempDir()); err == nil {
		t.Error("Expected error for directory without images")
	}
}

func TestExtractNumber(t *testing.T) {
	tests := map[string]int{
		"slice_007.tif": 7,
		"z12.png":       12,
		"noindex.tif":   0,
	}
	for name, want := range tests {
		if got := extractNumber(name); got != want {
			t.Errorf("%s: expected %d, got %d", name, want, got)
		}
	}
}
