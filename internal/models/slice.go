package models

import (
	"image"
)

// Slice represents a single 2D image of a volume stack with metadata
type Slice struct {
	// Image is the decoded slice
	Image image.Image

	// Index is the position of this slice along z
	Index int

	// Filename is the file the slice was read from
	Filename string
}

// Width returns the slice width in pixels.
func (s *Slice) Width() int { return s.Image.Bounds().Dx() }

// Height returns the slice height in pixels.
func (s *Slice) Height() int { return s.Image.Bounds().Dy() }
