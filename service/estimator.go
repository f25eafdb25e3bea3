package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Tilak559/solar/model"
	"github.com/Tilak559/solar/utils"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Method names, in fallback order.
const (
	MethodFootprint        = "footprint"
	MethodBuildingInsights = "buildingInsights"
	MethodDataLayers       = "dataLayers"
)

const errAllMethodsFailed = "All estimation methods failed"

type Geocoder interface {
	Geocode(ctx context.Context, address string) (*model.GeocodeResult, error)
}

type TokenProvider interface {
	AuthHeaders(ctx context.Context) (http.Header, error)
}

type SolarAPI interface {
	BuildingInsights(ctx context.Context, placeID string, headers http.Header) (*model.BuildingInsights, error)
	DataLayers(ctx context.Context, loc model.LatLng, headers http.Header) (*model.DataLayers, error)
}

// FootprintSource finds the building polygon containing a point. region is
// the first level administrative area and may be empty.
type FootprintSource interface {
	Name() string
	FindContaining(ctx context.Context, pt orb.Point, region string) (orb.Ring, error)
}

type RegionResolver interface {
	Region(ctx context.Context, loc model.LatLng) (string, error)
}

type RasterAnalyzer interface {
	EstimateGutterLength(ctx context.Context, layers *model.DataLayers, headers http.Header, opts AnalyzeOptions) *model.Estimate
}

// EstimatorDeps wires the collaborators of an Estimator. Footprints and
// Regions are optional; without Footprints the polygon method is skipped.
type EstimatorDeps struct {
	Geocoder     Geocoder
	Tokens       TokenProvider
	Solar        SolarAPI
	Footprints   FootprintSource
	Regions      RegionResolver
	Calculator   *FootprintCalculator
	Raster       RasterAnalyzer
	Cache        Cache
	CostPerMeter float64
}

// Estimator runs the fallback chain for an address and caches every result,
// successful or not, by normalized address.
type Estimator struct {
	deps  EstimatorDeps
	group singleflight.Group
}

func NewEstimator(deps EstimatorDeps) *Estimator {
	if deps.Cache == nil {
		deps.Cache = NoopCache{}
	}
	return &Estimator{deps: deps}
}

// Estimate returns an error only for invalid input or an internal fault;
// method failures come back as error shaped estimates.
func (e *Estimator) Estimate(ctx context.Context, address string, opts AnalyzeOptions) (*model.Estimate, error) {
	if strings.TrimSpace(address) == "" {
		return nil, inputError("Address is required")
	}

	cacheKey := utils.AddressKey(address)
	if opts.SaveVisualizations {
		cacheKey += ":viz"
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if est, ok := e.cached(ctx, cacheKey); ok {
		utils.Logger.Info("cache hit", zap.String("cache_key", cacheKey))
		return est, nil
	}

	// the flight outlives any one caller; each caller waits on its own ctx
	flightCtx := context.WithoutCancel(ctx)
	ch := e.group.DoChan(cacheKey, func() (any, error) {
		// another flight may have filled the entry meanwhile
		if est, ok := e.cached(flightCtx, cacheKey); ok {
			return est, nil
		}

		est, err := e.run(flightCtx, address, opts)
		if err != nil {
			return nil, err
		}
		if err := e.deps.Cache.Set(flightCtx, cacheKey, est); err != nil {
			utils.Logger.Warn("failed to set cache", zap.Error(err))
		}
		return est, nil
	})

	select {
	case <-ctx.Done():
		utils.Logger.Debug("estimate abandoned by caller",
			zap.String("cache_key", cacheKey),
			zap.Error(ctx.Err()))
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			utils.Logger.Debug("estimate shared with concurrent request", zap.String("cache_key", cacheKey))
		}
		return res.Val.(*model.Estimate), nil
	}
}

func (e *Estimator) cached(ctx context.Context, key string) (*model.Estimate, bool) {
	est, ok, err := e.deps.Cache.Get(ctx, key)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
		return nil, false
	}
	return est, ok && est != nil
}

func (e *Estimator) run(ctx context.Context, address string, opts AnalyzeOptions) (result *model.Estimate, runErr error) {
	defer func() {
		if r := recover(); r != nil {
			utils.Logger.Error("estimate panicked", zap.Any("panic", r))
			result, runErr = nil, internalError("estimate failed", fmt.Errorf("%v", r))
		}
	}()

	start := time.Now()
	geo, err := e.deps.Geocoder.Geocode(ctx, address)
	if err != nil {
		utils.Logger.Warn("geocoding failed", zap.String("address", address), zap.Error(err))
		return model.ErrorEstimate(messageOf(err)), nil
	}

	var failures []model.MethodFailure
	fail := func(method string, err error) {
		utils.Logger.Info("estimation method failed",
			zap.String("method", method),
			zap.Error(err))
		failures = append(failures, model.MethodFailure{Method: method, Error: messageOf(err)})
	}
	done := func(est *model.Estimate) *model.Estimate {
		utils.Logger.Info("estimate complete",
			zap.String("method", est.Method),
			zap.Float64("gutter_length_m", est.Summary.TotalGutterLengthM),
			zap.Duration("cost", time.Since(start)))
		return est
	}

	if e.deps.Footprints != nil && e.deps.Calculator != nil {
		est, err := e.fromFootprint(ctx, geo)
		if err == nil {
			return done(est), nil
		}
		fail(MethodFootprint, err)
	}

	headers, err := e.deps.Tokens.AuthHeaders(ctx)
	if err != nil {
		fail(MethodBuildingInsights, err)
		fail(MethodDataLayers, err)
		return &model.Estimate{Error: errAllMethodsFailed, Failures: failures}, nil
	}

	est, err := e.fromInsights(ctx, geo, headers)
	if err == nil {
		return done(est), nil
	}
	fail(MethodBuildingInsights, err)

	est, err = e.fromDataLayers(ctx, geo, headers, opts)
	if err == nil {
		return done(est), nil
	}
	fail(MethodDataLayers, err)

	return &model.Estimate{Error: errAllMethodsFailed, Failures: failures}, nil
}

func (e *Estimator) fromFootprint(ctx context.Context, geo *model.GeocodeResult) (*model.Estimate, error) {
	region := ""
	if e.deps.Regions != nil {
		r, err := e.deps.Regions.Region(ctx, geo.Location)
		if err != nil {
			utils.Logger.Debug("region lookup failed", zap.Error(err))
		}
		region = r
	}

	pt := orb.Point{geo.Location.Lng, geo.Location.Lat}
	ring, err := e.deps.Footprints.FindContaining(ctx, pt, region)
	if err != nil {
		return nil, err
	}

	est, err := e.deps.Calculator.Calculate(ring)
	if err != nil {
		return nil, err
	}
	est.TechnicalDetails.Source = e.deps.Footprints.Name()
	return est, nil
}

func (e *Estimator) fromInsights(ctx context.Context, geo *model.GeocodeResult, headers http.Header) (*model.Estimate, error) {
	if geo.PlaceID == "" {
		return nil, dataError("No place id for building insights")
	}
	insights, err := e.deps.Solar.BuildingInsights(ctx, geo.PlaceID, headers)
	if err != nil {
		return nil, err
	}
	return ExtractBuildingMeasurements(insights, e.deps.CostPerMeter)
}

func (e *Estimator) fromDataLayers(ctx context.Context, geo *model.GeocodeResult, headers http.Header, opts AnalyzeOptions) (*model.Estimate, error) {
	layers, err := e.deps.Solar.DataLayers(ctx, geo.Location, headers)
	if err != nil {
		return nil, err
	}
	est := e.deps.Raster.EstimateGutterLength(ctx, layers, headers, opts)
	if est.IsError() {
		return nil, dataError(est.Error)
	}
	return est, nil
}
