package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/Tilak559/solar/config"
	"github.com/Tilak559/solar/handler"
	"github.com/Tilak559/solar/middleware"
	"github.com/Tilak559/solar/service"
	"github.com/Tilak559/solar/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	BuildID   = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	address := flag.String("address", "", "estimate one address, print the result and exit")
	visualize := flag.Bool("visualize", false, "with -address, also write visualization PNGs")
	flag.Parse()

	cfg, loadErr := config.LoadOrEnv(*configPath)

	if err := utils.InitLogger(cfg.Server.Mode); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer utils.Sync()

	if loadErr != nil {
		utils.Logger.Warn("config file not loaded, using environment and defaults",
			zap.String("path", *configPath),
			zap.Error(loadErr))
	}

	utils.Logger.Info("starting solar gutter estimator",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("git_branch", GitBranch))

	cache, closeCache := newCache(cfg)
	defer closeCache()

	visualizer := service.NewVisualizer(cfg.Visualization.Dir)
	estimator := newEstimator(cfg, cache, visualizer)

	if *address != "" {
		code := runOnce(estimator, *address, *visualize)
		closeCache()
		utils.Sync()
		os.Exit(code)
	}

	if err := os.MkdirAll(cfg.Visualization.Dir, 0755); err != nil {
		utils.Logger.Fatal("failed to create visualization directory", zap.Error(err))
	}

	solarHandler := handler.NewSolarHandler(estimator, visualizer)

	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	r.GET("/version", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"version":    Version,
			"build_time": BuildTime,
			"build_id":   BuildID,
			"git_commit": GitCommit,
			"git_branch": GitBranch,
		})
	})

	solarHandler.Register(r)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	utils.Logger.Info("server starting", zap.String("port", cfg.Server.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		utils.Logger.Fatal("failed to start server", zap.Error(err))
	}
}

// newCache picks the configured backend. Redis falls back to memory when the
// server is unreachable.
func newCache(cfg *config.Config) (service.Cache, func()) {
	switch cfg.Cache.Backend {
	case "none":
		utils.Logger.Info("result cache disabled")
		return service.NoopCache{}, func() {}
	case "redis":
		redisCache := service.NewRedisCache(&cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := redisCache.Ping(ctx); err != nil {
			utils.Logger.Warn("redis connection failed, using memory cache", zap.Error(err))
			_ = redisCache.Close()
			break
		}
		utils.Logger.Info("redis connected successfully")
		return redisCache, func() { _ = redisCache.Close() }
	}
	return service.NewMemoryCache(cfg.Cache.MaxEntries), func() {}
}

func newEstimator(cfg *config.Config, cache service.Cache, visualizer *service.Visualizer) *service.Estimator {
	httpClient := &http.Client{Timeout: cfg.Solar.HTTPTimeout}

	geocoder := service.NewGoogleGeocoder(cfg.Google.GeocodeURL, cfg.Google.APIKey, httpClient)
	solar := service.NewSolarClient(&cfg.Solar, httpClient)

	var maxArea *float64
	if cfg.Raster.MaxAreaM2 > 0 {
		v := cfg.Raster.MaxAreaM2
		maxArea = &v
	}
	processor := service.NewMaskProcessor(service.NewContourFinder(), cfg.Raster.MinAreaM2, maxArea, cfg.Solar.CostPerMeter)
	analyzer := service.NewMaskAnalyzer(solar, processor, visualizer, cfg.Raster.MaxConcurrent, cfg.Raster.QueueTimeout)

	deps := service.EstimatorDeps{
		Geocoder:     geocoder,
		Tokens:       service.NewServiceAccountTokens(cfg.Google.CredentialsPath, cfg.Google.ScopesList(), cfg.Google.ProjectID),
		Solar:        solar,
		Calculator:   service.NewFootprintCalculator(cfg.Footprint.CostPerFoot),
		Raster:       analyzer,
		Cache:        cache,
		CostPerMeter: cfg.Solar.CostPerMeter,
	}

	switch cfg.Footprint.Source {
	case service.FootprintSourceLocal:
		deps.Footprints = service.NewLocalFootprintSource(cfg.Footprint.Path)
		deps.Regions = service.NewStateRegionResolver(geocoder)
	case service.FootprintSourceSTAC:
		deps.Footprints = service.NewSTACFootprintSource(cfg.Footprint.STACURL, cfg.Footprint.STACCollection, httpClient)
	}
	utils.Logger.Info("footprint source", zap.String("source", cfg.Footprint.Source))

	return service.NewEstimator(deps)
}

// runOnce estimates a single address and prints the result as JSON.
func runOnce(estimator *service.Estimator, address string, visualize bool) int {
	est, err := estimator.Estimate(context.Background(), address, service.AnalyzeOptions{SaveVisualizations: visualize})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	out, err := json.MarshalIndent(est, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(string(out))

	if est.IsError() {
		return 2
	}
	return 0
}
