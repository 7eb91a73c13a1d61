package api

import (
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/domain/repository"
	"MacroPulse/internal/service/metrics"
	"MacroPulse/internal/services/mapping"
	"MacroPulse/internal/usecase"
	xhttp "MacroPulse/pkg/http"
	xlogger "MacroPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AdminHandler serves recompute, mapping and health endpoints.
type AdminHandler struct {
	logger      *xlogger.Logger
	coordinator *usecase.Coordinator
	registry    *mapping.Registry
	staleness   *usecase.StalenessChecker
	mappingPath string
	archive     repository.EventArchive
}

// NewAdminHandler creates an admin handler. mappingPath is the rules file
// reloaded by POST /api/mapping/reload.
func NewAdminHandler(
	logger *xlogger.Logger,
	coordinator *usecase.Coordinator,
	registry *mapping.Registry,
	staleness *usecase.StalenessChecker,
	mappingPath string,
) *AdminHandler {
	metrics.Register()
	return &AdminHandler{
		logger:      logger,
		coordinator: coordinator,
		registry:    registry,
		staleness:   staleness,
		mappingPath: mappingPath,
	}
}

// SetArchive attaches the event archive for health reporting.
func (h *AdminHandler) SetArchive(a repository.EventArchive) { h.archive = a }

// RegisterRoutes wires the admin routes.
func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/recompute", h.Recompute)
	e.POST("/api/mapping/reload", h.ReloadMapping)
	e.GET("/api/mapping/summary", h.MappingSummary)
	e.GET("/api/staleness", h.Staleness)
	e.GET("/healthz", h.Health)
}

// Recompute triggers a scoring pass for the requested assets, or all
// mapped assets when the list is empty.
func (h *AdminHandler) Recompute(c echo.Context) error {
	start := time.Now()
	endpoint := "recompute"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.RecomputeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	summary, err := h.coordinator.Recompute(c.Request().Context(), req.Assets)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("recompute error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, summary)
}

// ReloadMapping loads and activates the mapping rules file. An invalid
// document is rejected wholesale and the previous snapshot stays active.
func (h *AdminHandler) ReloadMapping(c echo.Context) error {
	start := time.Now()
	endpoint := "mapping_reload"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	snap, err := h.registry.ReloadFromFile(h.mappingPath)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("mapping reload rejected: %v", err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"version": snap.Version(),
		"rules":   snap.Size(),
		"assets":  snap.Assets(),
	})
}

type pillarSummary struct {
	Pillar       string  `json:"pillar"`
	Indicators   int     `json:"indicators"`
	PillarWeight float64 `json:"pillar_weight"`
}

type assetSummary struct {
	Asset   string          `json:"asset"`
	Pillars []pillarSummary `json:"pillars"`
}

// MappingSummary reports the active snapshot's shape per asset and pillar.
func (h *AdminHandler) MappingSummary(c echo.Context) error {
	snap := h.registry.Active()

	out := make([]assetSummary, 0)
	for _, asset := range snap.Assets() {
		counts := make(map[string]int)
		weights := make(map[string]float64)
		order := []string{}
		for _, rule := range snap.RulesForAsset(asset) {
			if _, seen := counts[rule.Pillar]; !seen {
				order = append(order, rule.Pillar)
			}
			counts[rule.Pillar]++
			weights[rule.Pillar] = rule.PillarWeight
		}
		pillars := make([]pillarSummary, 0, len(order))
		for _, p := range order {
			pillars = append(pillars, pillarSummary{Pillar: p, Indicators: counts[p], PillarWeight: weights[p]})
		}
		out = append(out, assetSummary{Asset: asset, Pillars: pillars})
	}

	return xhttp.SuccessResponse(c, map[string]interface{}{
		"version": snap.Version(),
		"assets":  out,
	})
}

// Staleness reports score freshness per asset.
func (h *AdminHandler) Staleness(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.staleness.Check(c.Request().Context()))
}

// Health reports liveness plus the active mapping version and archive
// connectivity when configured.
func (h *AdminHandler) Health(c echo.Context) error {
	body := map[string]interface{}{
		"status":          "ok",
		"mapping_version": h.registry.Active().Version(),
	}
	if h.archive != nil {
		if err := h.archive.Health(c.Request().Context()); err != nil {
			body["archive"] = "unreachable"
		} else {
			body["archive"] = "ok"
		}
	}
	return xhttp.SuccessResponse(c, body)
}
