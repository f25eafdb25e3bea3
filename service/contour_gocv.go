//go:build gocv

package service

import (
	"fmt"

	"gocv.io/x/gocv"
)

// NewContourFinder returns the OpenCV backed finder.
func NewContourFinder() ContourFinder {
	return OpenCVFinder{}
}

// OpenCVFinder runs FindContours with external retrieval and simple chain
// approximation.
type OpenCVFinder struct{}

func (OpenCVFinder) FindExternal(mask *BinaryMask) ([]Contour, error) {
	if mask == nil || mask.Width == 0 || mask.Height == 0 {
		return nil, nil
	}

	mat, err := gocv.NewMatFromBytes(mask.Height, mask.Width, gocv.MatTypeCV8U, mask.Pix)
	if err != nil {
		return nil, fmt.Errorf("mask to mat: %w", err)
	}
	defer mat.Close()

	found := gocv.FindContours(mat, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	contours := make([]Contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		c := found.At(i)
		contours = append(contours, Contour{
			Points:      c.ToPoints(),
			AreaPx:      gocv.ContourArea(c),
			PerimeterPx: gocv.ArcLength(c, true),
		})
	}
	return contours, nil
}
