package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Tilak559/solar/config"
	"github.com/Tilak559/solar/model"
	"github.com/Tilak559/solar/utils"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// SolarClient talks to the Google Solar API.
type SolarClient struct {
	httpClient      *http.Client
	baseURL         string
	radiusMeters    float64
	requiredQuality string
}

func NewSolarClient(cfg *config.SolarConfig, httpClient *http.Client) *SolarClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &SolarClient{
		httpClient:      httpClient,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		radiusMeters:    cfg.RadiusMeters,
		requiredQuality: cfg.RequiredQuality,
	}
}

// BuildingInsights fetches the roof segment statistics for a place id.
func (c *SolarClient) BuildingInsights(ctx context.Context, placeID string, headers http.Header) (*model.BuildingInsights, error) {
	if placeID == "" {
		return nil, dataError("No place id for building insights")
	}
	u := c.baseURL + "/buildingInsights/" + url.PathEscape(placeID)

	var out model.BuildingInsights
	if err := c.getJSON(ctx, u, headers, "Google Solar API buildingInsights", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DataLayers fetches the raster layer URLs around a location.
func (c *SolarClient) DataLayers(ctx context.Context, loc model.LatLng, headers http.Header) (*model.DataLayers, error) {
	q := url.Values{}
	q.Set("location.latitude", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	q.Set("location.longitude", strconv.FormatFloat(loc.Lng, 'f', -1, 64))
	q.Set("radius_meters", strconv.FormatFloat(c.radiusMeters, 'f', -1, 64))
	q.Set("required_quality", c.requiredQuality)
	u := c.baseURL + "/dataLayers:get?" + q.Encode()

	var out model.DataLayers
	if err := c.getJSON(ctx, u, headers, "Google Solar API", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download fetches a GeoTIFF layer. A non-200 reply is returned as an
// upstream error carrying the status code.
func (c *SolarClient) Download(ctx context.Context, rawURL string, headers http.Header) ([]byte, error) {
	resp, err := c.do(ctx, rawURL, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError(resp.StatusCode, fmt.Sprintf("download failed: %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read download body")
	}
	return data, nil
}

func (c *SolarClient) getJSON(ctx context.Context, rawURL string, headers http.Header, name string, out any) error {
	start := time.Now()
	resp, err := c.do(ctx, rawURL, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	utils.Logger.Debug("solar api call",
		zap.String("api", name),
		zap.Int("status", resp.StatusCode),
		zap.Duration("cost", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return upstreamError(resp.StatusCode,
			fmt.Sprintf("Failed to retrieve data from %s: %d", name, resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return internalError("decode "+name+" response", eris.Wrap(err, "json"))
	}
	return nil
}

func (c *SolarClient) do(ctx context.Context, rawURL string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "request %s", req.URL.Path)
	}
	return resp, nil
}
