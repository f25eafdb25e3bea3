package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Tilak559/solar/model"
	"github.com/Tilak559/solar/utils"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// GoogleGeocoder resolves addresses with the Google Geocoding API.
type GoogleGeocoder struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

func NewGoogleGeocoder(endpoint, apiKey string, httpClient *http.Client) *GoogleGeocoder {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GoogleGeocoder{httpClient: httpClient, endpoint: endpoint, apiKey: apiKey}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		PlaceID          string `json:"place_id"`
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location model.LatLng `json:"location"`
		} `json:"geometry"`
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
}

// Geocode returns the first match for an address.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (*model.GeocodeResult, error) {
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.apiKey)

	resp, err := g.get(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, dataError("No results found for this address")
	}

	r := resp.Results[0]
	utils.Logger.Info("location found",
		zap.Float64("lat", r.Geometry.Location.Lat),
		zap.Float64("lng", r.Geometry.Location.Lng),
		zap.String("place_id", r.PlaceID))

	return &model.GeocodeResult{
		Location:         r.Geometry.Location,
		PlaceID:          r.PlaceID,
		FormattedAddress: r.FormattedAddress,
	}, nil
}

// ReverseRegion returns the administrative_area_level_1 name at loc.
func (g *GoogleGeocoder) ReverseRegion(ctx context.Context, loc model.LatLng) (string, error) {
	q := url.Values{}
	q.Set("latlng", strconv.FormatFloat(loc.Lat, 'f', -1, 64)+","+strconv.FormatFloat(loc.Lng, 'f', -1, 64))
	q.Set("result_type", "administrative_area_level_1")
	q.Set("key", g.apiKey)

	resp, err := g.get(ctx, q)
	if err != nil {
		return "", err
	}
	for _, r := range resp.Results {
		for _, c := range r.AddressComponents {
			for _, t := range c.Types {
				if t == "administrative_area_level_1" {
					return c.LongName, nil
				}
			}
		}
	}
	return "", dataError("No region found for location")
}

func (g *GoogleGeocoder) get(ctx context.Context, q url.Values) (*geocodeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "build geocode request")
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp.StatusCode,
			fmt.Sprintf("Failed to retrieve data from Google Geocoding API: %d", resp.StatusCode))
	}

	var out geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, internalError("decode geocode response", err)
	}
	return &out, nil
}
