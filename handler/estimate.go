package handler

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/Tilak559/solar/model"
	"github.com/Tilak559/solar/service"
	"github.com/Tilak559/solar/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Estimator is the part of service.Estimator the handlers need.
type Estimator interface {
	Estimate(ctx context.Context, address string, opts service.AnalyzeOptions) (*model.Estimate, error)
}

type SolarHandler struct {
	estimator  Estimator
	visualizer *service.Visualizer
}

func NewSolarHandler(estimator Estimator, visualizer *service.Visualizer) *SolarHandler {
	return &SolarHandler{
		estimator:  estimator,
		visualizer: visualizer,
	}
}

// Estimate handles POST /api/solar/estimate.
func (h *SolarHandler) Estimate(c *gin.Context) {
	var req model.EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Logger.Debug("invalid estimate request", zap.Error(err))
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Address is required"})
		return
	}

	h.respond(c, req.Address, service.AnalyzeOptions{SaveVisualizations: req.SaveVisualizations})
}

// Measurements handles GET /api/solar/measurements?address=.
func (h *SolarHandler) Measurements(c *gin.Context) {
	h.respond(c, c.Query("address"), service.AnalyzeOptions{})
}

func (h *SolarHandler) respond(c *gin.Context, address string, opts service.AnalyzeOptions) {
	utils.Logger.Info("estimate requested",
		zap.String("address", address),
		zap.Bool("save_visualizations", opts.SaveVisualizations))

	est, err := h.estimator.Estimate(c.Request.Context(), address, opts)
	if err != nil {
		if service.KindOf(err) == service.KindInput {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: errorText(err)})
			return
		}
		utils.Logger.Error("failed to estimate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, est)
}

// Visualization serves the PNG artifacts of the last raster analysis.
func (h *SolarHandler) Visualization(c *gin.Context) {
	path, err := h.visualizer.Path(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: errorText(err)})
		return
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, model.ErrorResponse{
				Error: "Visualization not found. Run analysis with save_visualizations=true first",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.Header("Content-Type", "image/png")
	c.File(path)
}

// Health handles GET /api/solar/health.
func (h *SolarHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, model.HealthResponse{Status: "healthy", Service: "solar-analysis"})
}

func errorText(err error) string {
	var ee *service.EstimateError
	if errors.As(err, &ee) {
		return ee.Message
	}
	return err.Error()
}

// Register mounts the solar routes under /api/solar.
func (h *SolarHandler) Register(r gin.IRouter) {
	api := r.Group("/api/solar")
	{
		api.POST("/estimate", h.Estimate)
		api.GET("/measurements", h.Measurements)
		api.GET("/visualization/:type", h.Visualization)
		api.GET("/health", h.Health)
	}
}
