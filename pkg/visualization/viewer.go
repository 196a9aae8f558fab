// Package visualization writes extracted subvolumes as JPEG slice sequences
// so samples and their augmentations can be inspected by eye.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"
	"sort"

	"volsampler/pkg/sample"
	"volsampler/pkg/volume"
)

// Viewer renders one channel of a 4D array.
type Viewer struct {
	// volumeData holds the channel data in z, y, x order
	volumeData []float32

	// dimensions of the volume
	width  int
	height int
	depth  int

	// intensity window mapped to black..white
	lo, hi float32
}

// NewViewer creates a viewer over channel c of arr. Intensities are scaled
// from the channel's min..max range.
func NewViewer(arr *volume.Array4, c int) (*Viewer, error) {
	if c < 0 || c >= arr.Channels {
		return nil, fmt.Errorf("channel %d out of range [0,%d)", c, arr.Channels)
	}
	v := &Viewer{
		volumeData: arr.Channel(c),
		width:      arr.Shape[2],
		height:     arr.Shape[1],
		depth:      arr.Shape[0],
	}
	v.lo, v.hi = findMinMax(v.volumeData)
	return v, nil
}

func findMinMax(data []float32) (min, max float32) {
	if len(data) == 0 {
		return 0, 0
	}
	min, max = data[0], data[0]
	for _, x := range data[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}

func (v *Viewer) gray(x float32) color.Gray16 {
	if v.hi == v.lo {
		return color.Gray16{}
	}
	n := float64((x - v.lo) / (v.hi - v.lo))
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, n*65535)))}
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.Gray16

	switch axis {
	case "x", "X":
		// Extract slice along YZ plane
		if position >= v.width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.width)
		}
		img = image.NewGray16(image.Rect(0, 0, v.depth, v.height))
		for y := 0; y < v.height; y++ {
			for z := 0; z < v.depth; z++ {
				img.SetGray16(z, y, v.gray(v.volumeData[(z*v.height+y)*v.width+position]))
			}
		}

	case "y", "Y":
		// Extract slice along XZ plane
		if position >= v.height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.height)
		}
		img = image.NewGray16(image.Rect(0, 0, v.width, v.depth))
		for z := 0; z < v.depth; z++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, z, v.gray(v.volumeData[(z*v.height+position)*v.width+x]))
			}
		}

	case "z", "Z":
		// Extract slice along XY plane
		if position >= v.depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.depth)
		}
		img = image.NewGray16(image.Rect(0, 0, v.width, v.height))
		for y := 0; y < v.height; y++ {
			for x := 0; x < v.width; x++ {
				img.SetGray16(x, y, v.gray(v.volumeData[(position*v.height+y)*v.width+x]))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a JPEG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence extracts and saves a sequence of slices along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.width
	case "y", "Y":
		maxPos = v.height
	case "z", "Z":
		maxPos = v.depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.jpg", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// DumpSample writes the z slices of every channel of every array in s under
// dir, as <dir>/<inputs|outputs|masks>/<name>/c<channel>/slice_z_NNN.jpg.
func DumpSample(s *sample.Sample, dir string) error {
	groups := []struct {
		kind   string
		arrays map[string]*volume.Array4
	}{
		{"inputs", s.Inputs},
		{"outputs", s.Outputs},
		{"masks", s.Masks},
	}
	for _, g := range groups {
		names := make([]string, 0, len(g.arrays))
		for name := range g.arrays {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			arr := g.arrays[name]
			if arr == nil {
				continue
			}
			for c := 0; c < arr.Channels; c++ {
				v, err := NewViewer(arr, c)
				if err != nil {
					return err
				}
				out := filepath.Join(dir, g.kind, name, fmt.Sprintf("c%d", c))
				if err := v.SaveSliceSequence("z", out); err != nil {
					return fmt.Errorf("failed to save %s %q channel %d: %w", g.kind, name, c, err)
				}
			}
		}
	}
	return nil
}
