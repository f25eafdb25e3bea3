package service

import (
	"math"

	"github.com/Tilak559/solar/model"
	"github.com/Tilak559/solar/utils"
	"go.uber.org/zap"
)

// MaskProcessor turns a mask raster into building contours measured in
// meters and sums the ones of plausible building size.
type MaskProcessor struct {
	finder       ContourFinder
	minAreaM2    float64
	maxAreaM2    *float64
	costPerMeter float64
}

// MaskAnalysis keeps the intermediate products of Analyze for rendering.
type MaskAnalysis struct {
	Mask     *BinaryMask
	Contours []Contour
	Kept     []bool
	Estimate *model.Estimate
}

// NewMaskProcessor builds a processor. A nil maxAreaM2 disables the upper
// area bound.
func NewMaskProcessor(finder ContourFinder, minAreaM2 float64, maxAreaM2 *float64, costPerMeter float64) *MaskProcessor {
	if finder == nil {
		finder = NewContourFinder()
	}
	return &MaskProcessor{
		finder:       finder,
		minAreaM2:    minAreaM2,
		maxAreaM2:    maxAreaM2,
		costPerMeter: costPerMeter,
	}
}

// Analyze binarizes the raster, extracts external contours and converts them
// to real units with the raster resolution.
func (mp *MaskProcessor) Analyze(raster *MaskRaster) (*MaskAnalysis, error) {
	if raster == nil || raster.Width == 0 || raster.Height == 0 {
		return nil, dataError("mask raster is empty")
	}
	r := raster.Resolution
	if r <= 0 || math.IsNaN(r) || math.IsInf(r, 0) {
		return nil, dataError("mask raster has no valid resolution")
	}

	mask := Binarize(raster)
	contours, err := mp.finder.FindExternal(mask)
	if err != nil {
		return nil, internalError("contour extraction failed", err)
	}

	utils.Logger.Debug("contours extracted",
		zap.Int("found", len(contours)),
		zap.Int("foreground_px", mask.Count()),
		zap.Float64("resolution", r))

	kept := make([]bool, len(contours))
	details := make([]model.ContourDetail, 0, len(contours))
	totalArea, totalLength := 0.0, 0.0

	for i, c := range contours {
		areaM2 := c.AreaPx * r * r
		if !mp.inRange(areaM2) {
			utils.Logger.Debug("skipping contour",
				zap.Int("index", i),
				zap.Float64("area_m2", areaM2))
			continue
		}

		perimeterM := c.PerimeterPx * r
		kept[i] = true
		totalArea += areaM2
		totalLength += perimeterM
		details = append(details, model.ContourDetail{
			ContourIndex:    i,
			AreaMetersSq:    areaM2,
			PerimeterMeters: perimeterM,
			NumPoints:       len(c.Points),
		})
	}

	costPerMeter := mp.costPerMeter
	found := len(contours)
	analyzed := len(details)
	minArea := mp.minAreaM2

	est := &model.Estimate{
		Method: MethodDataLayers,
		Summary: &model.Summary{
			TotalRoofAreaM2:    round2(totalArea),
			TotalGutterLengthM: round2(totalLength),
			EstimatedCostUSD:   round2(totalLength * costPerMeter),
			CostPerMeterUSD:    &costPerMeter,
		},
		TechnicalDetails: &model.TechnicalDetails{
			ResolutionMetersPerPixel: r,
			NumContoursFound:         &found,
			NumContoursAnalyzed:      &analyzed,
			MaskShape:                []int{raster.Height, raster.Width},
			MaskDType:                raster.DType,
			MinAreaFilterM2:          &minArea,
			MaxAreaFilterM2:          mp.maxAreaM2,
			CRS:                      raster.CRS(),
		},
		ContourDetails: details,
	}

	return &MaskAnalysis{
		Mask:     mask,
		Contours: contours,
		Kept:     kept,
		Estimate: est,
	}, nil
}

func (mp *MaskProcessor) inRange(areaM2 float64) bool {
	if areaM2 < mp.minAreaM2 {
		return false
	}
	if mp.maxAreaM2 != nil && areaM2 > *mp.maxAreaM2 {
		return false
	}
	return true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
