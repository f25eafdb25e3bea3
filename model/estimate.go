package model

// Estimate is the result of one gutter estimation. It is either success
// shaped (Summary set) or error shaped (Error set), never both.
type Estimate struct {
	Method           string            `json:"method,omitempty"`
	Summary          *Summary          `json:"summary,omitempty"`
	TechnicalDetails *TechnicalDetails `json:"technical_details,omitempty"`
	ContourDetails   []ContourDetail   `json:"contour_details,omitempty"`
	RoofSegments     []RoofSegment     `json:"roof_segments,omitempty"`
	Visualizations   *Visualizations   `json:"visualizations,omitempty"`

	Error    string          `json:"error,omitempty"`
	Failures []MethodFailure `json:"failures,omitempty"`
}

// ErrorEstimate builds an error shaped estimate.
func ErrorEstimate(msg string) *Estimate {
	return &Estimate{Error: msg}
}

// IsError reports whether the estimate is error shaped.
func (e *Estimate) IsError() bool {
	return e == nil || e.Error != "" || e.Summary == nil
}

// Summary holds totals for one method. Cost fields follow the unit of the
// method that produced them.
type Summary struct {
	TotalRoofAreaM2     float64  `json:"total_roof_area_m2"`
	TotalGutterLengthM  float64  `json:"total_gutter_length_m"`
	EstimatedCostUSD    float64  `json:"estimated_cost_usd"`
	CostPerMeterUSD     *float64 `json:"cost_per_meter_usd,omitempty"`
	TotalRoofAreaSqft   *float64 `json:"total_roof_area_sqft,omitempty"`
	TotalGutterLengthFt *float64 `json:"total_gutter_length_ft,omitempty"`
	CostPerFootUSD      *float64 `json:"cost_per_foot_usd,omitempty"`
}

type TechnicalDetails struct {
	Method string `json:"method,omitempty"`

	// raster mask
	ResolutionMetersPerPixel float64  `json:"resolution_meters_per_pixel,omitempty"`
	NumContoursFound         *int     `json:"num_contours_found,omitempty"`
	NumContoursAnalyzed      *int     `json:"num_contours_analyzed,omitempty"`
	MaskShape                []int    `json:"mask_shape,omitempty"`
	MaskDType                string   `json:"mask_dtype,omitempty"`
	MinAreaFilterM2          *float64 `json:"min_area_filter_m2,omitempty"`
	MaxAreaFilterM2          *float64 `json:"max_area_filter_m2,omitempty"`
	CRS                      string   `json:"crs,omitempty"`

	// building insights
	NumRoofSegments *int `json:"num_roof_segments,omitempty"`

	// footprint polygon
	Centroid    *LatLng  `json:"centroid,omitempty"`
	Bounds      *Bounds  `json:"bounds,omitempty"`
	VertexCount int      `json:"vertex_count,omitempty"`
	EPSGCode    int      `json:"epsg_code,omitempty"`
	Projection  string   `json:"projection,omitempty"`
	PerimeterM  *float64 `json:"perimeter_m,omitempty"`
	AreaM2      *float64 `json:"area_m2,omitempty"`
	Source      string   `json:"source,omitempty"`
}

// ContourDetail describes one contour that survived filtering.
type ContourDetail struct {
	ContourIndex    int     `json:"contour_index"`
	AreaMetersSq    float64 `json:"area_meters_sq"`
	PerimeterMeters float64 `json:"perimeter_meters"`
	NumPoints       int     `json:"num_points"`
}

type Visualizations struct {
	RGBImage       string `json:"rgb_image,omitempty"`
	MaskProcessing string `json:"mask_processing,omitempty"`
}

// MethodFailure records why one method of the fallback chain failed.
type MethodFailure struct {
	Method string `json:"method"`
	Error  string `json:"error"`
}

// EstimateRequest is the body of POST /api/solar/estimate.
type EstimateRequest struct {
	Address            string `json:"address"`
	SaveVisualizations bool   `json:"save_visualizations"`
}

// ErrorResponse is the body of 4xx/5xx replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
