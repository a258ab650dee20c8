package handler

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rdallagnolo/repo-fad-tracking/internal/models"
	"github.com/rdallagnolo/repo-fad-tracking/internal/pipeline"
	"github.com/rdallagnolo/repo-fad-tracking/internal/spatial"
	"github.com/rdallagnolo/repo-fad-tracking/pkg/response"
)

// Runner is the part of pipeline.Runner the handlers use
type Runner interface {
	Latest() *pipeline.Result
	LastRun() (time.Time, error)
	TryRun(ctx context.Context) (*pipeline.Result, error)
}

// BuoyHandler serves the latest run's state to the viewer
type BuoyHandler struct {
	runner Runner
}

// NewBuoyHandler creates a new buoy handler
func NewBuoyHandler(runner Runner) *BuoyHandler {
	return &BuoyHandler{runner: runner}
}

// BuoyView is one buoy in the list endpoint
type BuoyView struct {
	BuoyID            string    `json:"buoyId"`
	Active            bool      `json:"active"`
	LastSeen          time.Time `json:"lastSeen"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	InDeploymentZone  bool      `json:"inDeploymentZone"`
	InOperationalZone bool      `json:"inOperationalZone"`
	FixCount          int       `json:"fixCount"`
	AgeHours          float64   `json:"ageHours"`
}

// TrackView is one active buoy's track
type TrackView struct {
	BuoyID   string       `json:"buoyId"`
	Start    time.Time    `json:"start"`
	End      time.Time    `json:"end"`
	NPoints  int          `json:"nPoints"`
	LengthKm float64      `json:"lengthKm"`
	Fixes    []models.Fix `json:"fixes"`
}

// ZoneView is a loaded zone with a point to center a map on
type ZoneView struct {
	*models.Zone
	Center spatial.Point `json:"center"`
}

func (h *BuoyHandler) latest(c *gin.Context) *pipeline.Result {
	res := h.runner.Latest()
	if res == nil {
		msg := "no completed run yet"
		if _, err := h.runner.LastRun(); err != nil {
			msg += ": " + err.Error()
		}
		response.Unavailable(c, msg)
	}
	return res
}

// GetSummary handles GET /api/v1/summary
func (h *BuoyHandler) GetSummary(c *gin.Context) {
	res := h.latest(c)
	if res == nil {
		return
	}
	response.Success(c, res.Summary)
}

// ListBuoys handles GET /api/v1/buoys?status=active|inactive
func (h *BuoyHandler) ListBuoys(c *gin.Context) {
	status := c.DefaultQuery("status", "all")
	if status != "all" && status != "active" && status != "inactive" {
		response.BadRequest(c, "status must be active, inactive or all")
		return
	}
	res := h.latest(c)
	if res == nil {
		return
	}

	var statuses []models.BuoyStatus
	if status != "inactive" {
		statuses = append(statuses, res.Activity.Active...)
	}
	if status != "active" {
		statuses = append(statuses, res.Activity.Inactive...)
	}

	views := make([]BuoyView, 0, len(statuses))
	for _, s := range statuses {
		views = append(views, BuoyView{
			BuoyID:            s.BuoyID,
			Active:            s.IsActive,
			LastSeen:          s.Latest.Timestamp,
			Latitude:          s.Latest.Latitude,
			Longitude:         s.Latest.Longitude,
			InDeploymentZone:  s.Latest.InDeploymentZone,
			InOperationalZone: s.Latest.InOperationalZone,
			FixCount:          s.FixCount,
			AgeHours:          math.Round(s.Age.Hours()*10) / 10,
		})
	}
	response.Success(c, views)
}

// GetTrack handles GET /api/v1/tracks/:id
func (h *BuoyHandler) GetTrack(c *gin.Context) {
	id := c.Param("id")
	res := h.latest(c)
	if res == nil {
		return
	}

	for _, tr := range res.Activity.Tracks {
		if tr.BuoyID != id {
			continue
		}
		path := make([]spatial.Point, len(tr.Fixes))
		for i, f := range tr.Fixes {
			path[i] = spatial.Point{Lat: f.Latitude, Lon: f.Longitude}
		}
		response.Success(c, TrackView{
			BuoyID:   tr.BuoyID,
			Start:    tr.Start(),
			End:      tr.End(),
			NPoints:  len(tr.Fixes),
			LengthKm: math.Round(spatial.PathLengthKm(path)*1000) / 1000,
			Fixes:    tr.Fixes,
		})
		return
	}
	response.NotFound(c, "no track for buoy "+id+" (unknown or inactive)")
}

// ListZones handles GET /api/v1/zones
func (h *BuoyHandler) ListZones(c *gin.Context) {
	res := h.latest(c)
	if res == nil {
		return
	}
	zones := make([]ZoneView, 0, len(res.Zones))
	for _, z := range res.Zones {
		ring := z.Vertices
		if len(ring) > 1 && ring[0].Equal(ring[len(ring)-1]) {
			ring = ring[:len(ring)-1]
		}
		zones = append(zones, ZoneView{Zone: z, Center: spatial.Centroid(ring)})
	}
	response.Success(c, zones)
}

// TriggerRun handles POST /api/v1/runs
func (h *BuoyHandler) TriggerRun(c *gin.Context) {
	res, err := h.runner.TryRun(c.Request.Context())
	if errors.Is(err, pipeline.ErrRunInProgress) {
		response.Conflict(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}
	response.Success(c, res.Summary)
}
