// Package imageio reads 3D volumes from image files. A volume is either a
// directory of 2D slices, ordered by the number in each filename, or a single
// 2D image treated as a one-slice volume. TIFF, PNG and JPEG are supported.
package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"

	"volsampler/internal/logging"
	"volsampler/internal/models"
	"volsampler/pkg/volume"
)

// Reader loads volumes from disk. It is safe for concurrent use.
type Reader struct{}

// NewReader creates a new file reader.
func NewReader() *Reader { return &Reader{} }

// Read loads the volume at path.
func (r *Reader) Read(path string) (*volume.Array3, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var slices []*models.Slice
	if info.IsDir() {
		if slices, err = loadSlices(path); err != nil {
			return nil, err
		}
	} else {
		img, err := loadImage(path)
		if err != nil {
			return nil, err
		}
		slices = []*models.Slice{{Image: img, Filename: filepath.Base(path)}}
	}

	vol, err := toVolume(slices)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logging.Debugf("read %s: %v\n", path, vol.Shape)
	return vol, nil
}

// loadSlices loads and sorts the image files of a directory.
func loadSlices(dir string) ([]*models.Slice, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && isImage(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}

	// Sort by the numeric part of the filename so slice_10 follows slice_9
	sort.SliceStable(names, func(i, j int) bool {
		return extractNumber(names[i]) < extractNumber(names[j])
	})

	slices := make([]*models.Slice, 0, len(names))
	for i, name := range names {
		img, err := loadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", name, err)
		}
		slices = append(slices, &models.Slice{Image: img, Index: i, Filename: name})
	}
	return slices, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tif", ".tiff", ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() > 0 {
		if num, err := strconv.Atoi(digits.String()); err == nil {
			return num
		}
	}
	return 0
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return tiff.Decode(f)
	case ".png":
		return png.Decode(f)
	case ".jpg", ".jpeg":
		return jpeg.Decode(f)
	}
	return nil, fmt.Errorf("unsupported image format: %s", path)
}

// toVolume stacks same-sized slices along z. Gray images keep their raw
// values so label ids survive; other color models are converted to 16-bit luminance.
func toVolume(slices []*models.Slice) (*volume.Array3, error) {
	w, h := slices[0].Width(), slices[0].Height()
	vol := volume.NewArray3(volume.Vec3{len(slices), h, w})
	for z, s := range slices {
		if s.Width() != w || s.Height() != h {
			return nil, fmt.Errorf("slice %s is %dx%d, expected %dx%d: %w", s.Filename, s.Width(), s.Height(), w, h, volume.ErrShapeMismatch)
		}
		b := s.Image.Bounds()
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				vol.Set(z, y, x, pixelValue(s.Image, b.Min.X+x, b.Min.Y+y))
			}
		}
	}
	return vol, nil
}

func pixelValue(img image.Image, x, y int) float32 {
	switch im := img.(type) {
	case *image.Gray:
		return float32(im.GrayAt(x, y).Y)
	case *image.Gray16:
		return float32(im.Gray16At(x, y).Y)
	}
	return float32(color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y)
}
