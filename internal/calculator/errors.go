package calculator

import "errors"

var (
	// ErrInsufficientData is returned when a series is too short to extract pivots or fit lines.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateFit is returned when fewer than two points are available for a line fit.
	ErrDegenerateFit = errors.New("degenerate fit")
)
