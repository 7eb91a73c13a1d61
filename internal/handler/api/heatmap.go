package api

import (
	"encoding/json"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/domain/repository"
	icache "MacroPulse/internal/service/cache"
	"MacroPulse/internal/service/metrics"
	xhttp "MacroPulse/pkg/http"
	xlogger "MacroPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// HeatmapHandler serves published scores.
type HeatmapHandler struct {
	logger   *xlogger.Logger
	scores   repository.ScoreStore
	cache    icache.BytesCache
	cacheTTL time.Duration
}

// NewHeatmapHandler creates a heatmap handler.
func NewHeatmapHandler(logger *xlogger.Logger, scores repository.ScoreStore) *HeatmapHandler {
	metrics.Register()
	return &HeatmapHandler{logger: logger, scores: scores, cacheTTL: 30 * time.Second}
}

// SetCache attaches a response cache.
func (h *HeatmapHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

// RegisterRoutes wires the score read routes.
func (h *HeatmapHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/heatmap", h.Heatmap)
	e.GET("/api/heatmap/:asset", h.AssetScore)
}

// Heatmap returns the latest published score of every asset.
func (h *HeatmapHandler) Heatmap(c echo.Context) error {
	start := time.Now()
	endpoint := "heatmap"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	const cacheKey = "heatmap:all"
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err != nil {
			h.logger.Warn("heatmap cache_get_error", xlogger.Error(err))
		} else if ok {
			return c.JSONBlob(200, b)
		}
	}

	all := h.scores.LatestAll(c.Request().Context())
	body, err := json.Marshal(xhttp.APIResponse{Status: 200, Message: "OK", Data: all})
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		return xhttp.InternalServerErrorResponse(c)
	}

	if h.cache != nil {
		if err := h.cache.SetBytes(cacheKey, body, h.cacheTTL); err != nil {
			h.logger.Warn("heatmap cache_set_error", xlogger.Error(err))
		}
	}
	return c.JSONBlob(200, body)
}

// AssetScore returns the latest published score for one asset.
func (h *HeatmapHandler) AssetScore(c echo.Context) error {
	start := time.Now()
	endpoint := "heatmap_asset"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.HeatmapRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	score, ok := h.scores.Latest(c.Request().Context(), req.Asset)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no published score for asset %s", req.Asset))
	}
	return xhttp.SuccessResponse(c, score)
}
