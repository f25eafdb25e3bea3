package model

// DataLayers is the subset of the Solar API dataLayers:get response used here.
type DataLayers struct {
	ImageryDate    *Date  `json:"imageryDate,omitempty"`
	ImageryQuality string `json:"imageryQuality,omitempty"`
	DSMURL         string `json:"dsmUrl,omitempty"`
	RGBURL         string `json:"rgbUrl,omitempty"`
	MaskURL        string `json:"maskUrl,omitempty"`
	AnnualFluxURL  string `json:"annualFluxUrl,omitempty"`
}

type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// BuildingInsights is the subset of the buildingInsights response used here.
type BuildingInsights struct {
	Name           string       `json:"name,omitempty"`
	Center         *SolarLatLng `json:"center,omitempty"`
	ImageryQuality string       `json:"imageryQuality,omitempty"`
	SolarPotential struct {
		RoofSegmentStats []RoofSegment `json:"roofSegmentStats,omitempty"`
	} `json:"solarPotential"`
	// Older payloads carried the stats at the top level.
	RoofSegmentStats []RoofSegment `json:"roofSegmentStats,omitempty"`
}

// Segments returns the roof segments wherever the payload placed them.
func (b *BuildingInsights) Segments() []RoofSegment {
	if len(b.RoofSegmentStats) > 0 {
		return b.RoofSegmentStats
	}
	return b.SolarPotential.RoofSegmentStats
}

type SolarLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RoofSegment is one roofSegmentStats entry.
type RoofSegment struct {
	PitchDegrees      float64      `json:"pitchDegrees,omitempty"`
	AzimuthDegrees    float64      `json:"azimuthDegrees,omitempty"`
	GroundAreaMeters2 float64      `json:"groundAreaMeters2"`
	Stats             *SegmentStat `json:"stats,omitempty"`
	Center            *SolarLatLng `json:"center,omitempty"`
	PlaneHeightMeters float64      `json:"planeHeightAtCenterMeters,omitempty"`
}

type SegmentStat struct {
	AreaMeters2       float64 `json:"areaMeters2"`
	GroundAreaMeters2 float64 `json:"groundAreaMeters2"`
}

// GroundArea prefers the top level ground area and falls back to stats.
func (s RoofSegment) GroundArea() float64 {
	if s.GroundAreaMeters2 != 0 || s.Stats == nil {
		return s.GroundAreaMeters2
	}
	return s.Stats.GroundAreaMeters2
}
