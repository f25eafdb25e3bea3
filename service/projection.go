package service

import (
	"errors"
	"fmt"
	"math"

	utm "github.com/im7mortal/UTM"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// false northing of southern hemisphere zones
	utmFalseNorthing = 10000000.0

	EPSGWebMercator = 3857
)

// UTMZone returns the zone for a longitude, clamped to 1..60.
func UTMZone(lon float64) int {
	zone := int(math.Floor((lon+180)/6)) + 1
	if zone < 1 {
		return 1
	}
	if zone > 60 {
		return 60
	}
	return zone
}

// UTM is one zone of the Universal Transverse Mercator projection.
type UTM struct {
	Zone  int
	South bool
}

// UTMFor picks the zone and hemisphere of a lon/lat point.
func UTMFor(p orb.Point) UTM {
	return UTM{Zone: UTMZone(p.Lon()), South: p.Lat() < 0}
}

// EPSG returns 326zz for the northern and 327zz for the southern hemisphere.
func (u UTM) EPSG() int {
	if u.South {
		return 32700 + u.Zone
	}
	return 32600 + u.Zone
}

func (u UTM) String() string {
	h := "N"
	if u.South {
		h = "S"
	}
	return fmt.Sprintf("UTM zone %d%s", u.Zone, h)
}

// Forward projects a lon/lat point to easting/northing in meters. Points
// that the UTM grid assigns to another zone are rejected.
func (u UTM) Forward(p orb.Point) (orb.Point, error) {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return orb.Point{}, errors.New("utm: non finite coordinate")
	}
	if u.Zone < 1 || u.Zone > 60 {
		return orb.Point{}, fmt.Errorf("utm: invalid zone %d", u.Zone)
	}

	easting, northing, zone, _, err := utm.FromLatLon(lat, lon, !u.South)
	if err != nil {
		return orb.Point{}, fmt.Errorf("utm: %w", err)
	}
	if zone != u.Zone {
		return orb.Point{}, fmt.Errorf("utm: point falls in zone %d, not %d", zone, u.Zone)
	}

	// false northing follows the zone's hemisphere, not the point's
	northing = math.Mod(northing, utmFalseNorthing)
	if northing < 0 {
		northing += utmFalseNorthing
	}
	switch {
	case u.South && lat >= 0:
		northing += utmFalseNorthing
	case !u.South && lat < 0:
		northing -= utmFalseNorthing
	}
	return orb.Point{easting, northing}, nil
}

// ProjectRing projects every vertex of a ring.
func (u UTM) ProjectRing(r orb.Ring) (orb.Ring, error) {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		q, err := u.Forward(p)
		if err != nil {
			return nil, err
		}
		out[i] = q
	}
	return out, nil
}

// projectUTM is the default planar projection for footprint rings.
func projectUTM(r orb.Ring, centroid orb.Point) (orb.Ring, int, string, error) {
	u := UTMFor(centroid)
	if _, _, zone, _, err := utm.FromLatLon(centroid.Lat(), centroid.Lon(), !u.South); err == nil {
		// the grid widens some zones around Norway and Svalbard
		u.Zone = zone
	}
	projected, err := u.ProjectRing(r)
	if err != nil {
		return nil, 0, "", err
	}
	return projected, u.EPSG(), u.String(), nil
}

// projectWebMercator is the fallback when the UTM transform fails.
func projectWebMercator(r orb.Ring) orb.Ring {
	return project.Ring(r.Clone(), project.WGS84.ToMercator)
}
