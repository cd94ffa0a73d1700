package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-neo-watch/internal/config"
	"github.com/mr1hm/go-neo-watch/internal/models"
	"github.com/mr1hm/go-neo-watch/internal/selection"
)

// NEOService is the read side of the NEO data service.
type NEOService interface {
	ListNEOs(ctx context.Context, pageIndex, pageSize int) models.Page
	GetNEODetails(ctx context.Context, id string) *models.NEO
}

// MetricsSource publishes live metrics snapshots.
type MetricsSource interface {
	Current() models.LiveMetricsSnapshot
	Subscribe() (uint64, <-chan models.LiveMetricsSnapshot)
	Unsubscribe(id uint64)
}

type Handler struct {
	neos    NEOService
	live    MetricsSource
	metrics http.Handler
}

// NewHandler wires the routes. metrics may be nil, in which case /metrics is
// not served.
func NewHandler(neos NEOService, live MetricsSource, metrics http.Handler) *Handler {
	return &Handler{
		neos:    neos,
		live:    live,
		metrics: metrics,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)
	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}

	api := r.Group("/api")
	api.GET("/neos", h.listNEOs)
	api.GET("/neos/:id", h.getNEO)

	sel := api.Group("/selection")
	sel.GET("", h.getSelection)
	sel.PUT("/asteroid", h.putAsteroid)
	sel.POST("/asteroid/:id", h.selectAsteroid)
	sel.DELETE("/asteroid", h.clearAsteroid)
	sel.PUT("/coordinates", h.putCoordinates)
	sel.DELETE("/coordinates", h.clearCoordinates)
	sel.PUT("/simulation", h.putSimulation)
	sel.PUT("/step", h.putStep)

	api.GET("/metrics/live", h.liveMetrics)
	api.GET("/metrics/stream", h.streamMetrics)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) listNEOs(c *gin.Context) {
	pageIndex, pageSize := 0, 0

	if p := c.Query("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			badRequest(c, "page must be a non-negative integer")
			return
		}
		pageIndex = n
	}
	if s := c.Query("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > config.MaxPageSize {
			badRequest(c, "size must be an integer between 1 and "+strconv.Itoa(config.MaxPageSize))
			return
		}
		pageSize = n
	}

	c.JSON(http.StatusOK, h.neos.ListNEOs(c.Request.Context(), pageIndex, pageSize))
}

func (h *Handler) getNEO(c *gin.Context) {
	n := h.neos.GetNEODetails(c.Request.Context(), c.Param("id"))
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data"})
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h *Handler) getSelection(c *gin.Context) {
	c.JSON(http.StatusOK, store(c).Snapshot())
}

func (h *Handler) putAsteroid(c *gin.Context) {
	var a models.AsteroidSummary
	if err := c.ShouldBindJSON(&a); err != nil {
		badRequest(c, "invalid asteroid: "+err.Error())
		return
	}
	s := store(c)
	s.SetSelectedAsteroid(&a)
	c.JSON(http.StatusOK, s.Snapshot())
}

// selectAsteroid selects a catalogue record by id.
func (h *Handler) selectAsteroid(c *gin.Context) {
	n := h.neos.GetNEODetails(c.Request.Context(), c.Param("id"))
	if n == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no data"})
		return
	}
	summary := models.SummaryFromNEO(n)
	s := store(c)
	s.SetSelectedAsteroid(&summary)
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) clearAsteroid(c *gin.Context) {
	s := store(c)
	s.SetSelectedAsteroid(nil)
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) putCoordinates(c *gin.Context) {
	var body struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid coordinates: "+err.Error())
		return
	}
	if body.Lat == nil || body.Lng == nil {
		badRequest(c, "lat and lng are required")
		return
	}
	s := store(c)
	s.SetImpactCoordinates(&models.Coordinates{Lat: *body.Lat, Lng: *body.Lng})
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) clearCoordinates(c *gin.Context) {
	s := store(c)
	s.SetImpactCoordinates(nil)
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) putSimulation(c *gin.Context) {
	var body struct {
		Active *bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Active == nil {
		badRequest(c, `body must be {"active": true|false}`)
		return
	}
	s := store(c)
	s.SetSimulationActive(*body.Active)
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) putStep(c *gin.Context) {
	var body struct {
		Step string `json:"step"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid body: "+err.Error())
		return
	}
	step, err := models.ParseSimulationStep(body.Step)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	s := store(c)
	s.SetSimulationStep(step)
	c.JSON(http.StatusOK, s.Snapshot())
}

func (h *Handler) liveMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.live.Current())
}

// streamMetrics sends the current snapshot, then every published one, as
// server-sent events named "metrics".
func (h *Handler) streamMetrics(c *gin.Context) {
	id, ch := h.live.Subscribe()
	defer h.live.Unsubscribe(id)

	current := h.live.Current()
	last := current.Sequence
	c.SSEvent("metrics", current)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			if snap.Sequence <= last {
				return true
			}
			last = snap.Sequence
			c.SSEvent("metrics", snap)
			return true
		}
	})
}

func store(c *gin.Context) *selection.Store {
	return selection.FromContext(c.Request.Context())
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
