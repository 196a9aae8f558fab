package volume

import "errors"

var (
	// ErrInvalidConfiguration reports an unknown preprocessing token, a mask
	// that does not match its labels, or a target size that leaves no legal
	// deviation.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDegenerateStatistics reports a rebalance computation over an array
	// that is entirely zero or entirely nonzero.
	ErrDegenerateStatistics = errors.New("degenerate statistics")

	// ErrShapeMismatch reports constituent volumes whose shapes differ after
	// the optional auto-crop.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrOutOfBounds reports a deviation outside the legal range.
	ErrOutOfBounds = errors.New("deviation out of bounds")
)
