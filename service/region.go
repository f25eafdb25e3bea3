package service

import (
	"context"

	"github.com/Tilak559/solar/model"
	"github.com/Tilak559/solar/utils"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// ReverseGeocoder maps a location to its first level administrative area.
type ReverseGeocoder interface {
	ReverseRegion(ctx context.Context, loc model.LatLng) (string, error)
}

// StateRegionResolver asks the reverse geocoder first and falls back to a
// table of US state bounding boxes.
type StateRegionResolver struct {
	reverse ReverseGeocoder
}

func NewStateRegionResolver(reverse ReverseGeocoder) *StateRegionResolver {
	return &StateRegionResolver{reverse: reverse}
}

func (r *StateRegionResolver) Region(ctx context.Context, loc model.LatLng) (string, error) {
	if r.reverse != nil {
		name, err := r.reverse.ReverseRegion(ctx, loc)
		if err == nil && name != "" {
			return name, nil
		}
		utils.Logger.Debug("reverse geocoding failed, using state table", zap.Error(err))
	}

	if name, ok := StaticRegion(loc); ok {
		return name, nil
	}
	return "", dataError("Location is outside known regions")
}

type stateBound struct {
	name  string
	bound orb.Bound
}

func sb(name string, minLon, minLat, maxLon, maxLat float64) stateBound {
	return stateBound{name: name, bound: orb.Bound{Min: orb.Point{minLon, minLat}, Max: orb.Point{maxLon, maxLat}}}
}

var stateBounds = []stateBound{
	sb("Alabama", -88.47, 30.22, -84.89, 35.01),
	sb("Alaska", -179.15, 51.21, -129.98, 71.39),
	sb("Arizona", -114.82, 31.33, -109.05, 37.00),
	sb("Arkansas", -94.62, 33.00, -89.64, 36.50),
	sb("California", -124.41, 32.53, -114.13, 42.01),
	sb("Colorado", -109.06, 36.99, -102.04, 41.00),
	sb("Connecticut", -73.73, 40.98, -71.79, 42.05),
	sb("Delaware", -75.79, 38.45, -75.05, 39.84),
	sb("District of Columbia", -77.12, 38.79, -76.91, 38.99),
	sb("Florida", -87.63, 24.52, -80.03, 31.00),
	sb("Georgia", -85.61, 30.36, -80.84, 35.00),
	sb("Hawaii", -160.25, 18.91, -154.81, 22.24),
	sb("Idaho", -117.24, 41.99, -111.04, 49.00),
	sb("Illinois", -91.51, 36.97, -87.49, 42.51),
	sb("Indiana", -88.10, 37.77, -84.78, 41.76),
	sb("Iowa", -96.64, 40.38, -90.14, 43.50),
	sb("Kansas", -102.05, 36.99, -94.59, 40.00),
	sb("Kentucky", -89.57, 36.50, -81.96, 39.15),
	sb("Louisiana", -94.04, 28.93, -88.82, 33.02),
	sb("Maine", -71.08, 43.06, -66.95, 47.46),
	sb("Maryland", -79.49, 37.91, -75.05, 39.72),
	sb("Massachusetts", -73.51, 41.24, -69.93, 42.89),
	sb("Michigan", -90.42, 41.70, -82.41, 48.31),
	sb("Minnesota", -97.24, 43.50, -89.49, 49.38),
	sb("Mississippi", -91.66, 30.17, -88.10, 35.00),
	sb("Missouri", -95.77, 35.99, -89.10, 40.61),
	sb("Montana", -116.05, 44.36, -104.04, 49.00),
	sb("Nebraska", -104.05, 40.00, -95.31, 43.00),
	sb("Nevada", -120.01, 35.00, -114.04, 42.00),
	sb("New Hampshire", -72.56, 42.70, -70.61, 45.31),
	sb("New Jersey", -75.56, 38.93, -73.89, 41.36),
	sb("New Mexico", -109.05, 31.33, -103.00, 37.00),
	sb("New York", -79.76, 40.50, -71.86, 45.02),
	sb("North Carolina", -84.32, 33.84, -75.46, 36.59),
	sb("North Dakota", -104.05, 45.94, -96.55, 49.00),
	sb("Ohio", -84.82, 38.40, -80.52, 41.98),
	sb("Oklahoma", -103.00, 33.62, -94.43, 37.00),
	sb("Oregon", -124.57, 41.99, -116.46, 46.29),
	sb("Pennsylvania", -80.52, 39.72, -74.69, 42.27),
	sb("Rhode Island", -71.91, 41.15, -71.12, 42.02),
	sb("South Carolina", -83.35, 32.03, -78.54, 35.22),
	sb("South Dakota", -104.06, 42.48, -96.44, 45.95),
	sb("Tennessee", -90.31, 34.98, -81.65, 36.68),
	sb("Texas", -106.65, 25.84, -93.51, 36.50),
	sb("Utah", -114.05, 37.00, -109.04, 42.00),
	sb("Vermont", -73.44, 42.73, -71.46, 45.02),
	sb("Virginia", -83.68, 36.54, -75.24, 39.47),
	sb("Washington", -124.85, 45.54, -116.92, 49.00),
	sb("West Virginia", -82.64, 37.20, -77.72, 40.64),
	sb("Wisconsin", -92.89, 42.49, -86.81, 47.08),
	sb("Wyoming", -111.06, 40.99, -104.05, 45.01),
}

// StaticRegion returns the state whose bounding box contains loc. Boxes
// overlap along borders, so the smallest containing box wins.
func StaticRegion(loc model.LatLng) (string, bool) {
	pt := orb.Point{loc.Lng, loc.Lat}
	best, bestArea := "", 0.0
	for _, s := range stateBounds {
		if !s.bound.Contains(pt) {
			continue
		}
		area := (s.bound.Max[0] - s.bound.Min[0]) * (s.bound.Max[1] - s.bound.Min[1])
		if best == "" || area < bestArea {
			best, bestArea = s.name, area
		}
	}
	return best, best != ""
}
