package service

import (
	"bytes"
	"encoding/binary"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

// rasterWithRects returns a w x h raster with each rect filled with 1.
func rasterWithRects(w, h int, resolution float64, rects ...image.Rectangle) *MaskRaster {
	r := &MaskRaster{Width: w, Height: h, Values: make([]uint16, w*h), DType: "uint8", Resolution: resolution}
	for _, rc := range rects {
		for y := rc.Min.Y; y < rc.Max.Y; y++ {
			for x := rc.Min.X; x < rc.Max.X; x++ {
				r.Values[y*w+x] = 1
			}
		}
	}
	return r
}

// maskFromRows builds a binary mask from rows of '#' and '.'.
func maskFromRows(rows ...string) *BinaryMask {
	m := &BinaryMask{Width: len(rows[0]), Height: len(rows), Pix: make([]uint8, len(rows)*len(rows[0]))}
	for y, row := range rows {
		for x, ch := range row {
			if ch == '#' {
				m.Pix[y*m.Width+x] = 255
			}
		}
	}
	return m
}

// scenarioRaster holds a 41x51 block (2000 px) and a 6x11 block (50 px).
func scenarioRaster(resolution float64) *MaskRaster {
	return rasterWithRects(80, 70, resolution,
		image.Rect(5, 5, 46, 56),
		image.Rect(60, 10, 66, 21),
	)
}

// buildGeoTIFF writes an uncompressed little endian 8 bit GeoTIFF with a
// ModelPixelScaleTag and, when epsg > 0, a GeoKeyDirectoryTag.
func buildGeoTIFF(t *testing.T, r *MaskRaster, scale float64, epsg int) []byte {
	t.Helper()
	return buildGeoTIFFOrder(t, binary.LittleEndian, r, scale, epsg)
}

func buildGeoTIFFOrder(t *testing.T, order binary.ByteOrder, r *MaskRaster, scale float64, epsg int) []byte {
	t.Helper()

	type entry struct {
		tag, typ uint16
		count    uint32
		value    uint32
	}

	const (
		tShort  = 3
		tLong   = 4
		tDouble = 12
	)

	nTags := 10
	if epsg > 0 {
		nTags++
	}
	ifdSize := 2 + nTags*12 + 4
	scaleOff := 8 + ifdSize
	keysOff := scaleOff + 24
	pixOff := keysOff
	if epsg > 0 {
		pixOff += 16
	}

	w, h := uint32(r.Width), uint32(r.Height)
	entries := []entry{
		{256, tShort, 1, w},
		{257, tShort, 1, h},
		{258, tShort, 1, 8},
		{259, tShort, 1, 1},
		{262, tShort, 1, 1},
		{273, tLong, 1, uint32(pixOff)},
		{277, tShort, 1, 1},
		{278, tShort, 1, h},
		{279, tLong, 1, w * h},
		{33550, tDouble, 3, uint32(scaleOff)},
	}
	if epsg > 0 {
		entries = append(entries, entry{34735, tShort, 8, uint32(keysOff)})
	}

	var buf bytes.Buffer
	if order == binary.ByteOrder(binary.BigEndian) {
		buf.WriteString("MM")
	} else {
		buf.WriteString("II")
	}
	require.NoError(t, binary.Write(&buf, order, uint16(42)))
	require.NoError(t, binary.Write(&buf, order, uint32(8)))
	require.NoError(t, binary.Write(&buf, order, uint16(len(entries))))
	for _, e := range entries {
		require.NoError(t, binary.Write(&buf, order, e.tag))
		require.NoError(t, binary.Write(&buf, order, e.typ))
		require.NoError(t, binary.Write(&buf, order, e.count))
		if e.typ == tShort && e.count == 1 {
			require.NoError(t, binary.Write(&buf, order, uint16(e.value)))
			require.NoError(t, binary.Write(&buf, order, uint16(0)))
		} else {
			require.NoError(t, binary.Write(&buf, order, e.value))
		}
	}
	require.NoError(t, binary.Write(&buf, order, uint32(0)))

	for _, v := range []float64{scale, scale, 0} {
		require.NoError(t, binary.Write(&buf, order, math.Float64bits(v)))
	}
	if epsg > 0 {
		for _, k := range []uint16{1, 1, 0, 1, 3072, 0, 1, uint16(epsg)} {
			require.NoError(t, binary.Write(&buf, order, k))
		}
	}
	require.Equal(t, pixOff, buf.Len())

	for _, v := range r.Values {
		buf.WriteByte(uint8(v))
	}
	return buf.Bytes()
}

func buildRGBTIFF(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	var buf bytes.Buffer
	require.NoError(t, tiff.Encode(&buf, img, nil))
	return buf.Bytes()
}
