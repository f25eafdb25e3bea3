package service

import (
	"fmt"
	"math"

	"github.com/Tilak559/solar/model"
	"github.com/Tilak559/solar/utils"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/peterstace/simplefeatures/geom"
	"go.uber.org/zap"
)

const (
	metersToFeet = 3.28084

	maxFootprintSpanDeg    = 1.0
	footprintMinPerimeterM = 1.0
	footprintMaxPerimeterM = 5000.0
	footprintMinAreaM2     = 1.0
	footprintMaxAreaM2     = 10000.0
)

const errUnrepairable = "invalid polygon geometry could not be repaired"

// PlanarProjector projects a lon/lat ring around its centroid and reports the
// EPSG code and a readable name of the projection used.
type PlanarProjector func(r orb.Ring, centroid orb.Point) (orb.Ring, int, string, error)

// FootprintCalculator measures a building footprint polygon in a local
// metric projection.
type FootprintCalculator struct {
	costPerFoot float64
	projector   PlanarProjector
}

func NewFootprintCalculator(costPerFoot float64) *FootprintCalculator {
	return &FootprintCalculator{costPerFoot: costPerFoot, projector: projectUTM}
}

// WithProjector replaces the UTM projector. Mainly for tests.
func (fc *FootprintCalculator) WithProjector(p PlanarProjector) *FootprintCalculator {
	fc.projector = p
	return fc
}

// Calculate validates the ring, projects it and returns perimeter, area and
// cost in metric and imperial units.
func (fc *FootprintCalculator) Calculate(ring orb.Ring) (*model.Estimate, error) {
	if len(ring) < 3 {
		return nil, dataError(fmt.Sprintf("Polygon requires at least 3 vertices, got %d", len(ring)))
	}
	for _, p := range ring {
		if !validLonLat(p) {
			return nil, dataError("Polygon has invalid coordinates")
		}
	}

	repaired, err := repairRing(ring)
	if err != nil {
		return nil, err
	}

	bound := repaired.Bound()
	if bound.Max.Lon()-bound.Min.Lon() > maxFootprintSpanDeg || bound.Max.Lat()-bound.Min.Lat() > maxFootprintSpanDeg {
		return nil, dataError(fmt.Sprintf("Polygon bounding box exceeds %.0f degree", maxFootprintSpanDeg))
	}

	centroid, _ := planar.CentroidArea(orb.Polygon{repaired})

	projected, epsg, name, err := fc.projector(repaired, centroid)
	if err != nil {
		utils.Logger.Warn("utm projection failed, falling back to web mercator",
			zap.Float64("lon", centroid.Lon()),
			zap.Float64("lat", centroid.Lat()),
			zap.Error(err))
		projected = projectWebMercator(repaired)
		epsg = EPSGWebMercator
		name = "Web Mercator"
	}

	perimeterM := planar.Length(projected)
	areaM2 := math.Abs(planar.Area(projected))

	if !(perimeterM > footprintMinPerimeterM && perimeterM < footprintMaxPerimeterM) {
		return nil, dataError(fmt.Sprintf("Implausible perimeter: %.2f m", perimeterM))
	}
	if !(areaM2 > footprintMinAreaM2 && areaM2 < footprintMaxAreaM2) {
		return nil, dataError(fmt.Sprintf("Implausible area: %.2f m2", areaM2))
	}

	perimeterFt := perimeterM * metersToFeet
	areaSqft := areaM2 * metersToFeet * metersToFeet
	costPerFoot := fc.costPerFoot
	roundedFt := round2(perimeterFt)
	roundedSqft := round2(areaSqft)

	return &model.Estimate{
		Method: MethodFootprint,
		Summary: &model.Summary{
			TotalRoofAreaM2:     round2(areaM2),
			TotalGutterLengthM:  round2(perimeterM),
			EstimatedCostUSD:    round2(perimeterFt * costPerFoot),
			TotalRoofAreaSqft:   &roundedSqft,
			TotalGutterLengthFt: &roundedFt,
			CostPerFootUSD:      &costPerFoot,
		},
		TechnicalDetails: &model.TechnicalDetails{
			Method:   MethodFootprint,
			Centroid: &model.LatLng{Lat: centroid.Lat(), Lng: centroid.Lon()},
			Bounds: &model.Bounds{
				MinLon: bound.Min.Lon(),
				MinLat: bound.Min.Lat(),
				MaxLon: bound.Max.Lon(),
				MaxLat: bound.Max.Lat(),
			},
			VertexCount: len(repaired) - 1,
			EPSGCode:    epsg,
			Projection:  name,
			PerimeterM:  &perimeterM,
			AreaM2:      &areaM2,
		},
	}, nil
}

func validLonLat(p orb.Point) bool {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return false
	}
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}

// repairRing drops repeated vertices and zero width spikes and returns the
// closed ring. A ring that is still not a valid polygon is rebuilt from its
// even-odd interior and the largest resulting polygon is kept.
func repairRing(ring orb.Ring) (orb.Ring, error) {
	pts := make([]orb.Point, 0, len(ring))
	for _, p := range ring {
		if len(pts) > 0 && pts[len(pts)-1].Equal(p) {
			continue
		}
		pts = append(pts, p)
	}
	if len(pts) > 1 && pts[0].Equal(pts[len(pts)-1]) {
		pts = pts[:len(pts)-1]
	}

	// A-B-A spikes; removing one can expose another
	for changed := true; changed && len(pts) >= 3; {
		changed = false
		n := len(pts)
		for i := 0; i < n; i++ {
			prev, next := pts[(i-1+n)%n], pts[(i+1)%n]
			if pts[i].Equal(next) {
				pts = append(pts[:i:i], pts[i+1:]...)
				changed = true
				break
			}
			if prev.Equal(next) {
				// drop the spike tip and the duplicate it leaves behind
				pts = removeSpike(pts, i)
				changed = true
				break
			}
		}
	}

	if len(pts) < 3 {
		return nil, dataError(errUnrepairable)
	}

	closed := make(orb.Ring, 0, len(pts)+1)
	closed = append(closed, pts...)
	closed = append(closed, pts[0])

	invalid := toPolygon(closed).Validate()
	if invalid == nil {
		return closed, nil
	}
	utils.Logger.Debug("repairing invalid footprint ring",
		zap.Int("vertices", len(pts)),
		zap.Error(invalid))

	rebuilt, err := evenOddPolygon(closed)
	if err != nil {
		return nil, dataError(errUnrepairable)
	}
	largest, ok := largestPolygon(rebuilt)
	if !ok {
		return nil, dataError(errUnrepairable)
	}
	return fromLineString(largest.ExteriorRing()), nil
}

// removeSpike deletes vertex i and its successor, which duplicates i-1.
func removeSpike(pts []orb.Point, i int) []orb.Point {
	n := len(pts)
	next := (i + 1) % n
	out := make([]orb.Point, 0, n-2)
	for j, p := range pts {
		if j == i || j == next {
			continue
		}
		out = append(out, p)
	}
	return out
}

// evenOddPolygon returns the area a closed ring encloses under the even-odd
// rule: the symmetric difference of the triangle fan around its first vertex.
func evenOddPolygon(r orb.Ring) (geom.Geometry, error) {
	var (
		acc  geom.Geometry
		seen bool
	)
	for i := 1; i+1 < len(r)-1; i++ {
		tri := toPolygon(orb.Ring{r[0], r[i], r[i+1], r[0]})
		if tri.Area() == 0 {
			continue
		}
		if !seen {
			acc, seen = tri.AsGeometry(), true
			continue
		}
		next, err := geom.SymmetricDifference(acc, tri.AsGeometry())
		if err != nil {
			return geom.Geometry{}, err
		}
		acc = next
	}
	return acc, nil
}

// largestPolygon picks the polygon with the greatest area out of a polygonal
// geometry.
func largestPolygon(g geom.Geometry) (geom.Polygon, bool) {
	var polys []geom.Polygon
	switch g.Type() {
	case geom.TypePolygon:
		p, _ := g.AsPolygon()
		polys = append(polys, p)
	case geom.TypeMultiPolygon:
		mp, _ := g.AsMultiPolygon()
		for i := 0; i < mp.NumPolygons(); i++ {
			polys = append(polys, mp.PolygonN(i))
		}
	}

	var (
		best     geom.Polygon
		bestArea float64
	)
	for _, p := range polys {
		if a := p.Area(); a > bestArea {
			best, bestArea = p, a
		}
	}
	return best, bestArea > 0
}

func toPolygon(r orb.Ring) geom.Polygon {
	coords := make([]float64, 0, 2*len(r))
	for _, p := range r {
		coords = append(coords, p[0], p[1])
	}
	ring := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	return geom.NewPolygon([]geom.LineString{ring})
}

func fromLineString(ls geom.LineString) orb.Ring {
	seq := ls.Coordinates()
	out := make(orb.Ring, seq.Length())
	for i := range out {
		xy := seq.GetXY(i)
		out[i] = orb.Point{xy.X, xy.Y}
	}
	return out
}
