package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tilak559/solar/model"
	"github.com/Tilak559/solar/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeEstimator struct {
	est   *model.Estimate
	err   error
	calls []string
	opts  []service.AnalyzeOptions
}

func (f *fakeEstimator) Estimate(_ context.Context, address string, opts service.AnalyzeOptions) (*model.Estimate, error) {
	f.calls = append(f.calls, address)
	f.opts = append(f.opts, opts)
	if strings.TrimSpace(address) == "" {
		return nil, &service.EstimateError{Kind: service.KindInput, Message: "Address is required"}
	}
	return f.est, f.err
}

func newTestRouter(est Estimator, vizDir string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewSolarHandler(est, service.NewVisualizer(vizDir)).Register(r)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func successEstimate() *model.Estimate {
	cost := 20.0
	return &model.Estimate{
		Method: service.MethodBuildingInsights,
		Summary: &model.Summary{
			TotalRoofAreaM2:    125,
			TotalGutterLengthM: 60,
			EstimatedCostUSD:   1200,
			CostPerMeterUSD:    &cost,
		},
	}
}

func TestEstimate_OK(t *testing.T) {
	est := &fakeEstimator{est: successEstimate()}
	w := serve(newTestRouter(est, t.TempDir()), http.MethodPost, "/api/solar/estimate",
		`{"address":"1 Main St","save_visualizations":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{
		"method": "buildingInsights",
		"summary": {
			"total_roof_area_m2": 125,
			"total_gutter_length_m": 60,
			"estimated_cost_usd": 1200,
			"cost_per_meter_usd": 20
		}
	}`, w.Body.String())
	require.Equal(t, []string{"1 Main St"}, est.calls)
	require.True(t, est.opts[0].SaveVisualizations)
}

func TestEstimate_ErrorShapedResultIs200(t *testing.T) {
	est := &fakeEstimator{est: model.ErrorEstimate("No results found for this address")}
	w := serve(newTestRouter(est, t.TempDir()), http.MethodPost, "/api/solar/estimate", `{"address":"nowhere"}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"error":"No results found for this address"}`, w.Body.String())
}

func TestEstimate_BadRequest(t *testing.T) {
	est := &fakeEstimator{}
	r := newTestRouter(est, t.TempDir())

	for _, body := range []string{"", "not json", `{"address":""}`, `{"address":"   "}`} {
		w := serve(r, http.MethodPost, "/api/solar/estimate", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		require.JSONEq(t, `{"error":"Address is required"}`, w.Body.String())
	}
}

func TestEstimate_InternalError(t *testing.T) {
	est := &fakeEstimator{err: errors.New("estimate failed: boom")}
	w := serve(newTestRouter(est, t.TempDir()), http.MethodPost, "/api/solar/estimate", `{"address":"1 Main St"}`)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"error":"estimate failed: boom"}`, w.Body.String())
}

func TestMeasurements(t *testing.T) {
	est := &fakeEstimator{est: successEstimate()}
	r := newTestRouter(est, t.TempDir())

	w := serve(r, http.MethodGet, "/api/solar/measurements?address=1+Main+St", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"1 Main St"}, est.calls)
	require.False(t, est.opts[0].SaveVisualizations)

	var got model.Estimate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, 60.0, got.Summary.TotalGutterLengthM)

	w = serve(r, http.MethodGet, "/api/solar/measurements", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVisualization(t *testing.T) {
	dir := t.TempDir()
	r := newTestRouter(&fakeEstimator{}, dir)

	w := serve(r, http.MethodGet, "/api/solar/visualization/dsm", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.JSONEq(t, `{"error":"Invalid image type"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/api/solar/visualization/mask", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.JSONEq(t, `{"error":"Visualization not found. Run analysis with save_visualizations=true first"}`, w.Body.String())

	png := []byte("\x89PNG\r\n\x1a\nfake")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mask_processing.png"), png, 0o644))

	w = serve(r, http.MethodGet, "/api/solar/visualization/mask", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
	require.Equal(t, png, w.Body.Bytes())
}

func TestHealth(t *testing.T) {
	w := serve(newTestRouter(&fakeEstimator{}, t.TempDir()), http.MethodGet, "/api/solar/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"healthy","service":"solar-analysis"}`, w.Body.String())
}
