package service

import (
	"math"

	"github.com/Tilak559/solar/model"
)

// ExtractBuildingMeasurements approximates every roof segment as a square of
// its ground area and sums the perimeters. It returns a data error when the
// insights carry no segments so the caller can fall through.
func ExtractBuildingMeasurements(insights *model.BuildingInsights, costPerMeter float64) (*model.Estimate, error) {
	if insights == nil {
		return nil, dataError("No building insights")
	}
	segments := insights.Segments()
	if len(segments) == 0 {
		return nil, dataError("No roof segments in building insights")
	}

	totalArea, totalPerimeter := 0.0, 0.0
	for _, s := range segments {
		area := s.GroundArea()
		totalArea += area
		if area > 0 {
			totalPerimeter += 4 * math.Sqrt(area)
		}
	}

	n := len(segments)
	return &model.Estimate{
		Method: MethodBuildingInsights,
		Summary: &model.Summary{
			TotalRoofAreaM2:    round2(totalArea),
			TotalGutterLengthM: round2(totalPerimeter),
			EstimatedCostUSD:   round2(totalPerimeter * costPerMeter),
			CostPerMeterUSD:    &costPerMeter,
		},
		TechnicalDetails: &model.TechnicalDetails{
			Method:          MethodBuildingInsights,
			NumRoofSegments: &n,
		},
		RoofSegments: segments,
	}, nil
}
