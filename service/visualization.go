package service

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"
)

const (
	VisualizationRGB  = "rgb"
	VisualizationMask = "mask"

	rgbFileName  = "rgb_image.png"
	maskFileName = "mask_processing.png"

	// previews larger than this are downscaled
	maxPreviewSide = 2048
)

var rejectedColor = color.NRGBA{R: 230, G: 30, B: 30, A: 255}

// Visualizer writes PNG artifacts of the raster pipeline to a directory.
type Visualizer struct {
	dir string
}

func NewVisualizer(dir string) *Visualizer {
	return &Visualizer{dir: dir}
}

// Path returns the artifact path for kind ("rgb" or "mask").
func (v *Visualizer) Path(kind string) (string, error) {
	switch kind {
	case VisualizationRGB:
		return filepath.Join(v.dir, rgbFileName), nil
	case VisualizationMask:
		return filepath.Join(v.dir, maskFileName), nil
	}
	return "", inputError("Invalid image type")
}

// RenderMask draws the binary mask in grey with kept contours in distinct
// colours and rejected ones in red.
func (v *Visualizer) RenderMask(a *MaskAnalysis) (string, error) {
	if a == nil || a.Mask == nil {
		return "", dataError("nothing to render")
	}

	m := a.Mask
	canvas := imaging.New(m.Width, m.Height, color.NRGBA{A: 255})
	fg := color.NRGBA{R: 90, G: 90, B: 90, A: 255}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] != 0 {
				canvas.SetNRGBA(x, y, fg)
			}
		}
	}

	dc := gg.NewContextForImage(canvas)
	dc.SetLineWidth(1)
	palette := contourPalette(len(a.Contours))
	for i, c := range a.Contours {
		if len(c.Points) == 0 {
			continue
		}
		col := rejectedColor
		if i < len(a.Kept) && a.Kept[i] {
			col = palette[i]
		}
		strokeContour(dc, c.Points, col)
	}

	return v.save(dc.Image(), maskFileName)
}

// RenderRGB converts the aerial RGB GeoTIFF to a PNG preview.
func (v *Visualizer) RenderRGB(data []byte) (string, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return "", internalError("decode rgb tiff", err)
	}

	b := img.Bounds()
	if b.Dx() > maxPreviewSide || b.Dy() > maxPreviewSide {
		img = imaging.Fit(img, maxPreviewSide, maxPreviewSide, imaging.Lanczos)
	}
	return v.save(img, rgbFileName)
}

func (v *Visualizer) save(img image.Image, name string) (string, error) {
	if err := os.MkdirAll(v.dir, 0755); err != nil {
		return "", internalError("create visualization directory", err)
	}
	path := filepath.Join(v.dir, name)
	if err := imaging.Save(img, path); err != nil {
		return "", internalError("save "+name, err)
	}
	return path, nil
}

// contourPalette spreads hues by the golden angle so neighbours differ.
func contourPalette(n int) []color.NRGBA {
	out := make([]color.NRGBA, n)
	for i := range out {
		h := float64(i) * 137.508
		for h >= 360 {
			h -= 360
		}
		// keep clear of the red used for rejected contours
		if h < 20 || h > 340 {
			h += 40
		}
		r, g, b := colorful.Hsv(h, 0.85, 0.95).RGB255()
		out[i] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	return out
}

// strokeContour outlines a contour one pixel wide through the pixel centres.
func strokeContour(dc *gg.Context, pts []image.Point, col color.NRGBA) {
	dc.SetColor(col)
	if len(pts) == 1 {
		dc.SetPixel(pts[0].X, pts[0].Y)
		return
	}
	dc.MoveTo(float64(pts[0].X)+0.5, float64(pts[0].Y)+0.5)
	for _, p := range pts[1:] {
		dc.LineTo(float64(p.X)+0.5, float64(p.Y)+0.5)
	}
	dc.ClosePath()
	dc.Stroke()
}
