package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	gtiff "github.com/google/tiff"
	"golang.org/x/image/tiff"
)

// GeoTIFF tags that golang.org/x/image/tiff does not surface.
const (
	tagModelPixelScale     = 33550
	tagModelTransformation = 34264
	tagGeoKeyDirectory     = 34735

	fieldTypeShort  = 3
	fieldTypeDouble = 12

	geoKeyGeographicType  = 2048
	geoKeyProjectedCSType = 3072
)

// MaskRaster is the first band of a decoded mask GeoTIFF.
type MaskRaster struct {
	Width  int
	Height int
	Values []uint16
	DType  string
	// Resolution is the absolute x scale of the pixel to world transform,
	// i.e. meters per pixel for projected rasters.
	Resolution float64
	// EPSG is informational and zero when the file carries no GeoKeys.
	EPSG int
}

// CRS renders the EPSG code for technical details.
func (r *MaskRaster) CRS() string {
	if r.EPSG == 0 {
		return ""
	}
	return fmt.Sprintf("EPSG:%d", r.EPSG)
}

// DecodeGeoTIFF decodes the first band and the georeferencing of a GeoTIFF.
func DecodeGeoTIFF(data []byte) (*MaskRaster, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tiff: %w", err)
	}

	tags, err := readGeoTags(data)
	if err != nil {
		return nil, fmt.Errorf("read geotiff tags: %w", err)
	}

	resolution := 0.0
	switch {
	case len(tags.pixelScale) >= 1:
		resolution = math.Abs(tags.pixelScale[0])
	case len(tags.transformation) >= 1:
		resolution = math.Abs(tags.transformation[0])
	}
	if resolution <= 0 || math.IsNaN(resolution) || math.IsInf(resolution, 0) {
		return nil, errors.New("geotiff has no usable pixel scale")
	}

	raster := firstBand(img)
	raster.Resolution = resolution
	raster.EPSG = tags.epsg
	return raster, nil
}

func firstBand(img image.Image) *MaskRaster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	r := &MaskRaster{Width: w, Height: h, Values: make([]uint16, w*h), DType: "uint8"}

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r.Values[y*w+x] = uint16(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray16:
		r.DType = "uint16"
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r.Values[y*w+x] = src.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			}
		}
	case *image.Paletted:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r.Values[y*w+x] = uint16(src.ColorIndexAt(b.Min.X+x, b.Min.Y+y))
			}
		}
	default:
		// multi band rasters collapse to luminance
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				r.Values[y*w+x] = uint16(g.Y)
			}
		}
	}
	return r
}

type geoTags struct {
	pixelScale     []float64
	transformation []float64
	epsg           int
}

// readGeoTags reads the GeoTIFF tags of the first IFD.
func readGeoTags(data []byte) (*geoTags, error) {
	t, err := gtiff.Parse(bytes.NewReader(data), nil, nil)
	if err != nil {
		return nil, err
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		return nil, errors.New("no image file directory")
	}
	ifd := ifds[0]

	tags := &geoTags{}
	if ifd.HasField(tagModelPixelScale) {
		if tags.pixelScale, err = fieldDoubles(ifd.GetField(tagModelPixelScale)); err != nil {
			return nil, fmt.Errorf("ModelPixelScaleTag: %w", err)
		}
	}
	if ifd.HasField(tagModelTransformation) {
		if tags.transformation, err = fieldDoubles(ifd.GetField(tagModelTransformation)); err != nil {
			return nil, fmt.Errorf("ModelTransformationTag: %w", err)
		}
	}
	if ifd.HasField(tagGeoKeyDirectory) {
		keys, err := fieldShorts(ifd.GetField(tagGeoKeyDirectory))
		if err != nil {
			return nil, fmt.Errorf("GeoKeyDirectoryTag: %w", err)
		}
		tags.epsg = epsgFromGeoKeys(keys)
	}
	return tags, nil
}

func fieldDoubles(f gtiff.Field) ([]float64, error) {
	if id := f.Type().ID(); id != fieldTypeDouble {
		return nil, fmt.Errorf("unexpected type %d", id)
	}
	v := f.Value()
	raw, order := v.Bytes(), v.Order()
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
	}
	return out, nil
}

func fieldShorts(f gtiff.Field) ([]uint16, error) {
	if id := f.Type().ID(); id != fieldTypeShort {
		return nil, fmt.Errorf("unexpected type %d", id)
	}
	v := f.Value()
	raw, order := v.Bytes(), v.Order()
	out := make([]uint16, len(raw)/2)
	for i := range out {
		out[i] = order.Uint16(raw[i*2:])
	}
	return out, nil
}

// epsgFromGeoKeys prefers the projected CRS and falls back to the geographic one.
func epsgFromGeoKeys(keys []uint16) int {
	if len(keys) < 4 {
		return 0
	}
	geographic := 0
	n := int(keys[3])
	for i := 0; i < n; i++ {
		p := 4 + i*4
		if p+4 > len(keys) {
			break
		}
		id, loc, value := keys[p], keys[p+1], keys[p+3]
		if loc != 0 || value == 0 || value == 32767 {
			continue
		}
		switch id {
		case geoKeyProjectedCSType:
			return int(value)
		case geoKeyGeographicType:
			geographic = int(value)
		}
	}
	return geographic
}
