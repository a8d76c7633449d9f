package tile

import (
	"fmt"
	"math"
)

const (
	// Height is the number of rows in one tile.
	Height = 32
	// Width is the number of columns in one tile.
	Width = 32
	// Elements is the number of float32 elements in one tile.
	Elements = Height * Width
	// Bytes is the size of one tile in bytes (one device page).
	Bytes = Elements * 4
)

// Shape describes the 2-D layout of a buffer in float32 elements.
type Shape struct {
	Rows int
	Cols int
}

// Aligned reports whether the shape consists of whole tiles.
func (s Shape) Aligned() bool {
	return s.Rows > 0 && s.Cols > 0 && s.Rows%Height == 0 && s.Cols%Width == 0
}

// Elements returns the total element count of the shape.
func (s Shape) Elements() int {
	return s.Rows * s.Cols
}

// SizeBytes returns the total byte size of the shape.
func (s Shape) SizeBytes() int {
	return s.Elements() * 4
}

// TileRows returns the number of tile rows.
func (s Shape) TileRows() int {
	return s.Rows / Height
}

// TileCols returns the number of tile columns.
func (s Shape) TileCols() int {
	return s.Cols / Width
}

// Tiles returns the total tile count.
func (s Shape) Tiles() int {
	return s.TileRows() * s.TileCols()
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}

// InferShape derives a square tile-aligned shape from an element count. A
// count of exactly one tile yields 32x32; anything else yields the smallest
// tile-aligned square whose area covers the count.
//
// This is a heuristic fallback for buffers allocated without explicit shape
// metadata. The inferred area may exceed numElements (excess cells read as
// zero), and non-square matrices come out wrong - callers that know their
// layout must supply it at allocation time.
func InferShape(numElements int) Shape {
	if numElements <= 0 {
		return Shape{}
	}
	if numElements == Elements {
		return Shape{Rows: Height, Cols: Width}
	}

	// Smallest integer side with side*side >= numElements, then rounded up
	// to whole tiles. The adjustment loops absorb float imprecision for
	// large counts.
	side := int(math.Sqrt(float64(numElements)))
	for side*side < numElements {
		side++
	}
	for side > 1 && (side-1)*(side-1) >= numElements {
		side--
	}
	side = (side + Height - 1) / Height * Height

	return Shape{Rows: side, Cols: side}
}
