package api

import (
	"net/http"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/service/metrics"
	"MacroPulse/internal/service/ratelimit"
	"MacroPulse/internal/usecase"
	xhttp "MacroPulse/pkg/http"
	xlogger "MacroPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// EventsHandler serves the event ingestion endpoint.
type EventsHandler struct {
	logger   *xlogger.Logger
	ingestor *usecase.Ingestor
	rl       *ratelimit.Limiter
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(logger *xlogger.Logger, ingestor *usecase.Ingestor) *EventsHandler {
	metrics.Register()
	return &EventsHandler{logger: logger, ingestor: ingestor, rl: ratelimit.New()}
}

// RegisterRoutes wires the ingestion routes.
func (h *EventsHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/events", h.Ingest)
}

// Ingest accepts a batch of raw indicator events. With dry_run the batch
// is classified without being committed.
func (h *EventsHandler) Ingest(c echo.Context) error {
	start := time.Now()
	endpoint := "events"
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if !h.rl.Allow(c.RealIP()+":events", 20, 10) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}

	req := &models.IngestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.ingestor.Ingest(c.Request().Context(), req.Events, req.DryRun)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("ingest usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
