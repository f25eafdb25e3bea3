package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tilak559/solar/model"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	files map[string][]byte
	errs  map[string]error
	calls []string
	auth  []string
}

func (f *fakeFetcher) Download(_ context.Context, url string, headers http.Header) ([]byte, error) {
	f.calls = append(f.calls, url)
	f.auth = append(f.auth, headers.Get("Authorization"))
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if data, ok := f.files[url]; ok {
		return data, nil
	}
	return nil, upstreamError(http.StatusNotFound, "not found")
}

func newTestAnalyzer(f RasterFetcher, vis *Visualizer) *MaskAnalyzer {
	return NewMaskAnalyzer(f, newTestProcessor(10, nil, 20), vis, 1, time.Second)
}

func TestMaskAnalyzer_MissingMaskURL(t *testing.T) {
	f := &fakeFetcher{}
	est := newTestAnalyzer(f, nil).EstimateGutterLength(context.Background(), &model.DataLayers{RGBURL: "rgb"}, nil, AnalyzeOptions{})

	out, err := json.Marshal(est)
	require.NoError(t, err)
	require.JSONEq(t, `{"error":"No mask URL found in solar data"}`, string(out))
	require.Empty(t, f.calls)

	est = newTestAnalyzer(f, nil).EstimateGutterLength(context.Background(), nil, nil, AnalyzeOptions{})
	require.Equal(t, "No mask URL found in solar data", est.Error)
}

func TestMaskAnalyzer_DownloadStatus(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{"mask": upstreamError(http.StatusForbidden, "download failed: 403")}}
	est := newTestAnalyzer(f, nil).EstimateGutterLength(context.Background(), &model.DataLayers{MaskURL: "mask"}, nil, AnalyzeOptions{})

	out, err := json.Marshal(est)
	require.NoError(t, err)
	require.JSONEq(t, `{"error":"Failed to download mask: 403"}`, string(out))
}

func TestMaskAnalyzer_TransportError(t *testing.T) {
	f := &fakeFetcher{errs: map[string]error{"mask": errors.New("connection refused")}}
	est := newTestAnalyzer(f, nil).EstimateGutterLength(context.Background(), &model.DataLayers{MaskURL: "mask"}, nil, AnalyzeOptions{})
	require.Equal(t, "Failed to analyze roof mask: connection refused", est.Error)
}

func TestMaskAnalyzer_DecodeFailureRemovesTempFile(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	f := &fakeFetcher{files: map[string][]byte{"mask": []byte("garbage")}}
	est := newTestAnalyzer(f, nil).EstimateGutterLength(context.Background(), &model.DataLayers{MaskURL: "mask"}, nil, AnalyzeOptions{})

	require.True(t, est.IsError())
	require.Contains(t, est.Error, "Failed to analyze roof mask: ")
	require.Nil(t, est.Summary)

	left, err := filepath.Glob(filepath.Join(tmp, "mask-*.tif"))
	require.NoError(t, err)
	require.Empty(t, left)
}

type panicFinder struct{}

func (panicFinder) FindExternal(*BinaryMask) ([]Contour, error) {
	panic("boom")
}

func TestMaskAnalyzer_PanicBecomesError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	f := &fakeFetcher{files: map[string][]byte{"mask": buildGeoTIFF(t, scenarioRaster(0), 0.1, 0)}}
	a := NewMaskAnalyzer(f, NewMaskProcessor(panicFinder{}, 10, nil, 20), nil, 1, time.Second)

	est := a.EstimateGutterLength(context.Background(), &model.DataLayers{MaskURL: "mask"}, nil, AnalyzeOptions{})
	require.Equal(t, "Failed to analyze roof mask: boom", est.Error)

	left, err := filepath.Glob(filepath.Join(tmp, "mask-*.tif"))
	require.NoError(t, err)
	require.Empty(t, left)
}

func TestMaskAnalyzer_Success(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	f := &fakeFetcher{files: map[string][]byte{"mask": buildGeoTIFF(t, scenarioRaster(0), 0.1, 32612)}}
	headers := http.Header{"Authorization": []string{"Bearer tok"}}
	est := newTestAnalyzer(f, nil).EstimateGutterLength(context.Background(), &model.DataLayers{MaskURL: "mask"}, headers, AnalyzeOptions{})

	require.False(t, est.IsError(), est.Error)
	require.Equal(t, 20.0, est.Summary.TotalRoofAreaM2)
	require.Equal(t, 18.0, est.Summary.TotalGutterLengthM)
	require.Equal(t, "EPSG:32612", est.TechnicalDetails.CRS)
	require.Nil(t, est.Visualizations)
	require.Equal(t, []string{"Bearer tok"}, f.auth)
}

func TestMaskAnalyzer_SavesVisualizations(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	dir := filepath.Join(t.TempDir(), "viz")

	f := &fakeFetcher{files: map[string][]byte{
		"mask": buildGeoTIFF(t, scenarioRaster(0), 0.1, 0),
		"rgb":  buildRGBTIFF(t, 80, 70),
	}}
	vis := NewVisualizer(dir)
	est := newTestAnalyzer(f, vis).EstimateGutterLength(context.Background(),
		&model.DataLayers{MaskURL: "mask", RGBURL: "rgb"}, nil, AnalyzeOptions{SaveVisualizations: true})

	require.False(t, est.IsError(), est.Error)
	require.NotNil(t, est.Visualizations)
	require.Equal(t, filepath.Join(dir, "mask_processing.png"), est.Visualizations.MaskProcessing)
	require.Equal(t, filepath.Join(dir, "rgb_image.png"), est.Visualizations.RGBImage)

	for _, p := range []string{est.Visualizations.MaskProcessing, est.Visualizations.RGBImage} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		require.Positive(t, info.Size())
	}
}

func TestMaskAnalyzer_QueueTimeout(t *testing.T) {
	f := &fakeFetcher{files: map[string][]byte{"mask": buildGeoTIFF(t, scenarioRaster(0), 0.1, 0)}}
	a := NewMaskAnalyzer(f, newTestProcessor(10, nil, 20), nil, 1, 20*time.Millisecond)

	// occupy the only slot
	a.semaphore <- struct{}{}
	defer func() { <-a.semaphore }()

	est := a.EstimateGutterLength(context.Background(), &model.DataLayers{MaskURL: "mask"}, nil, AnalyzeOptions{})
	require.Contains(t, est.Error, "analysis queue is full")
}
