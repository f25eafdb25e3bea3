package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Tilak559/solar/model"
	"github.com/Tilak559/solar/utils"
	"go.uber.org/zap"
)

// RasterFetcher downloads GeoTIFF layers.
type RasterFetcher interface {
	Download(ctx context.Context, url string, headers http.Header) ([]byte, error)
}

// AnalyzeOptions controls the optional side outputs of a mask analysis.
type AnalyzeOptions struct {
	SaveVisualizations bool
}

// MaskAnalyzer runs the raster pipeline on a dataLayers response. Analyses
// are CPU bound, so at most maxConcurrent run at once.
type MaskAnalyzer struct {
	fetcher      RasterFetcher
	processor    *MaskProcessor
	visualizer   *Visualizer
	semaphore    chan struct{}
	queueTimeout time.Duration
}

func NewMaskAnalyzer(fetcher RasterFetcher, processor *MaskProcessor, visualizer *Visualizer, maxConcurrent int, queueTimeout time.Duration) *MaskAnalyzer {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if queueTimeout <= 0 {
		queueTimeout = 30 * time.Second
	}
	return &MaskAnalyzer{
		fetcher:      fetcher,
		processor:    processor,
		visualizer:   visualizer,
		semaphore:    make(chan struct{}, maxConcurrent),
		queueTimeout: queueTimeout,
	}
}

// EstimateGutterLength never fails outright: every failure comes back as an
// error shaped estimate.
func (a *MaskAnalyzer) EstimateGutterLength(ctx context.Context, layers *model.DataLayers, headers http.Header, opts AnalyzeOptions) (est *model.Estimate) {
	if layers == nil || layers.MaskURL == "" {
		return model.ErrorEstimate("No mask URL found in solar data")
	}

	defer func() {
		if r := recover(); r != nil {
			utils.Logger.Error("mask analysis panicked", zap.Any("panic", r))
			est = model.ErrorEstimate(fmt.Sprintf("Failed to analyze roof mask: %v", r))
		}
	}()

	utils.Logger.Info("downloading mask", zap.String("url", layers.MaskURL))
	data, err := a.fetcher.Download(ctx, layers.MaskURL, headers)
	if err != nil {
		if status := StatusOf(err); status != 0 {
			return model.ErrorEstimate(fmt.Sprintf("Failed to download mask: %d", status))
		}
		return model.ErrorEstimate("Failed to analyze roof mask: " + err.Error())
	}

	analysis, err := a.analyzeBytes(ctx, data)
	if err != nil {
		return model.ErrorEstimate("Failed to analyze roof mask: " + messageOf(err))
	}

	result := analysis.Estimate
	if opts.SaveVisualizations && a.visualizer != nil {
		result.Visualizations = a.saveVisualizations(ctx, analysis, layers.RGBURL, headers)
	}
	return result
}

// analyzeBytes spills the download to a temp .tif, removed on every path,
// and runs the processor on it.
func (a *MaskAnalyzer) analyzeBytes(ctx context.Context, data []byte) (*MaskAnalysis, error) {
	waitCtx, cancel := context.WithTimeout(ctx, a.queueTimeout)
	defer cancel()

	select {
	case a.semaphore <- struct{}{}:
		defer func() { <-a.semaphore }()
	case <-waitCtx.Done():
		return nil, internalError("analysis queue is full", waitCtx.Err())
	}

	tmp, err := os.CreateTemp("", "mask-*.tif")
	if err != nil {
		return nil, internalError("create temp file", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			utils.Logger.Warn("failed to delete temp file",
				zap.String("file", tmpPath),
				zap.Error(err))
		} else {
			utils.Logger.Debug("temp file deleted",
				zap.String("file", tmpPath))
		}
	}()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil {
		return nil, internalError("write temp file", werr)
	}
	if cerr != nil {
		return nil, internalError("close temp file", cerr)
	}

	raw, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, internalError("read temp file", err)
	}
	raster, err := DecodeGeoTIFF(raw)
	if err != nil {
		return nil, internalError("decode mask", err)
	}

	utils.Logger.Info("mask loaded",
		zap.Ints("shape", []int{raster.Height, raster.Width}),
		zap.String("dtype", raster.DType),
		zap.Float64("resolution", raster.Resolution),
		zap.String("crs", raster.CRS()))

	return a.processor.Analyze(raster)
}

// saveVisualizations is best effort; failures are logged and skipped.
func (a *MaskAnalyzer) saveVisualizations(ctx context.Context, analysis *MaskAnalysis, rgbURL string, headers http.Header) *model.Visualizations {
	vis := &model.Visualizations{}

	if path, err := a.visualizer.RenderMask(analysis); err != nil {
		utils.Logger.Warn("failed to render mask", zap.Error(err))
	} else {
		vis.MaskProcessing = path
	}

	if rgbURL != "" {
		data, err := a.fetcher.Download(ctx, rgbURL, headers)
		if err != nil {
			utils.Logger.Warn("failed to download rgb layer", zap.Error(err))
		} else if path, err := a.visualizer.RenderRGB(data); err != nil {
			utils.Logger.Warn("failed to render rgb layer", zap.Error(err))
		} else {
			vis.RGBImage = path
		}
	}

	if vis.MaskProcessing == "" && vis.RGBImage == "" {
		return nil
	}
	return vis
}
