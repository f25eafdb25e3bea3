package service

import (
	"image"
	"math"
)

// BinaryMask is a binarized single band raster: 255 foreground, 0 background.
type BinaryMask struct {
	Width  int
	Height int
	Pix    []uint8
}

// Binarize marks every pixel with a positive value as foreground.
func Binarize(r *MaskRaster) *BinaryMask {
	m := &BinaryMask{Width: r.Width, Height: r.Height, Pix: make([]uint8, len(r.Values))}
	for i, v := range r.Values {
		if v > 0 {
			m.Pix[i] = 255
		}
	}
	return m
}

// Foreground reports whether (x, y) is inside the mask and set.
func (m *BinaryMask) Foreground(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// Count returns the number of foreground pixels.
func (m *BinaryMask) Count() int {
	n := 0
	for _, p := range m.Pix {
		if p != 0 {
			n++
		}
	}
	return n
}

// Contour is one traced outer boundary in pixel space.
type Contour struct {
	Points      []image.Point
	AreaPx      float64
	PerimeterPx float64
}

// ContourFinder extracts external contours from a binary mask.
type ContourFinder interface {
	FindExternal(mask *BinaryMask) ([]Contour, error)
}

// polygonArea is the absolute shoelace area of a closed point sequence.
func polygonArea(pts []image.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum int64
	for i := range pts {
		j := (i + 1) % len(pts)
		sum += int64(pts[i].X)*int64(pts[j].Y) - int64(pts[j].X)*int64(pts[i].Y)
	}
	return math.Abs(float64(sum)) / 2
}

// closedLength is the length of the polyline including the closing segment.
func closedLength(pts []image.Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	total := 0.0
	for i := range pts {
		j := (i + 1) % len(pts)
		dx := float64(pts[j].X - pts[i].X)
		dy := float64(pts[j].Y - pts[i].Y)
		total += math.Hypot(dx, dy)
	}
	return total
}
