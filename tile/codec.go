package tile

import (
	"errors"
)

var (
	// ErrUnalignedShape is returned when a shape is not composed of whole tiles.
	ErrUnalignedShape = errors.New("tile: shape not tile-aligned")
	// ErrSizeMismatch is returned when a slice is shorter than the shape requires.
	ErrSizeMismatch = errors.New("tile: slice shorter than shape")
)

// Pack reorders src from row-major into tile-blocked layout in dst.
//
// For tile coordinates (tr, tc) and intra-tile coordinates (r, c):
//
//	dst[(tr*tileCols+tc)*Elements + r*Width + c] = src[(tr*Height+r)*cols + (tc*Width+c)]
//
// Both slices must hold at least shape.Elements() elements and must not
// overlap; behavior on overlapping slices is undefined.
func Pack(dst, src []float32, shape Shape) error {
	if err := checkArgs(dst, src, shape); err != nil {
		return err
	}

	tileRows := shape.TileRows()
	tileCols := shape.TileCols()

	for tr := 0; tr < tileRows; tr++ {
		for tc := 0; tc < tileCols; tc++ {
			tileBase := (tr*tileCols + tc) * Elements
			srcBase := (tr*Height)*shape.Cols + tc*Width
			for r := 0; r < Height; r++ {
				srcOff := srcBase + r*shape.Cols
				copy(dst[tileBase+r*Width:tileBase+(r+1)*Width], src[srcOff:srcOff+Width])
			}
		}
	}

	return nil
}

// Unpack reorders src from tile-blocked layout back into row-major in dst.
// It is the exact inverse of Pack: Unpack(Pack(x)) == x element for element.
//
// Both slices must hold at least shape.Elements() elements and must not
// overlap; behavior on overlapping slices is undefined.
func Unpack(dst, src []float32, shape Shape) error {
	if err := checkArgs(dst, src, shape); err != nil {
		return err
	}

	tileRows := shape.TileRows()
	tileCols := shape.TileCols()

	for tr := 0; tr < tileRows; tr++ {
		for tc := 0; tc < tileCols; tc++ {
			tileBase := (tr*tileCols + tc) * Elements
			dstBase := (tr*Height)*shape.Cols + tc*Width
			for r := 0; r < Height; r++ {
				dstOff := dstBase + r*shape.Cols
				copy(dst[dstOff:dstOff+Width], src[tileBase+r*Width:tileBase+(r+1)*Width])
			}
		}
	}

	return nil
}

func checkArgs(dst, src []float32, shape Shape) error {
	if !shape.Aligned() {
		return ErrUnalignedShape
	}
	if len(src) < shape.Elements() || len(dst) < shape.Elements() {
		return ErrSizeMismatch
	}
	return nil
}
