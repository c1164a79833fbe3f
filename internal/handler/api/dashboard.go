package api

import (
	"net/http"
	"time"

	"PolyPulse/internal/domain/models"
	"PolyPulse/internal/usecase"
	xhttp "PolyPulse/pkg/http"
	xlogger "PolyPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DashboardHandler serves the aggregated dashboard state over HTTP.
// Every endpoint reads the refresher's latest snapshot; nothing here
// touches an upstream.
type DashboardHandler struct {
	logger    *xlogger.Logger
	refresher *usecase.Refresher
}

func NewDashboardHandler(logger *xlogger.Logger, refresher *usecase.Refresher) *DashboardHandler {
	return &DashboardHandler{logger: logger, refresher: refresher}
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/positions", h.Positions)
	g.GET("/topics", h.Topics)
	g.GET("/feed", h.Feed)
	g.GET("/spikes", h.Spikes)
	e.GET("/healthz", h.Health)
}

func (h *DashboardHandler) Positions(c echo.Context) error {
	snap := h.refresher.Snapshot()
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, snap.Positions)
}

func (h *DashboardHandler) Topics(c echo.Context) error {
	snap := h.refresher.Snapshot()
	return xhttp.SuccessResponse(c, snap.Topics)
}

// Feed returns the aggregated items for one topic (?topic=key), or all
// topics keyed by topic when the parameter is absent.
func (h *DashboardHandler) Feed(c echo.Context) error {
	req := &models.FeedRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap := h.refresher.Snapshot()
	if req.Topic == "" {
		return xhttp.SuccessResponse(c, snap.Feeds)
	}

	items, ok := snap.Feeds[req.Topic]
	if !ok {
		return xhttp.NotFoundResponse(c, "unknown topic: "+req.Topic)
	}
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}
	return xhttp.SuccessResponse(c, items)
}

func (h *DashboardHandler) Spikes(c echo.Context) error {
	req := &models.SpikesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap := h.refresher.Snapshot()
	if !req.OnlySpikes {
		return xhttp.SuccessResponse(c, snap.Spikes)
	}
	spiking := make([]models.SpikeResult, 0, len(snap.Spikes))
	for _, s := range snap.Spikes {
		if s.IsSpike {
			spiking = append(spiking, s)
		}
	}
	return xhttp.SuccessResponse(c, spiking)
}

// Health reports readiness: healthy once the first refresh cycle has
// completed, degraded before that.
func (h *DashboardHandler) Health(c echo.Context) error {
	snap := h.refresher.Snapshot()
	status := "ok"
	code := http.StatusOK
	if snap.UpdatedAt.IsZero() {
		status = "warming_up"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"status":     status,
		"updated_at": snap.UpdatedAt.Format(time.RFC3339),
	})
}
