package model

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a lon/lat bounding box.
type Bounds struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// GeocodeResult is the first match returned for an address.
type GeocodeResult struct {
	Location         LatLng `json:"location"`
	PlaceID          string `json:"place_id"`
	FormattedAddress string `json:"formatted_address"`
}
