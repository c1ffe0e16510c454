package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/events"
	"github.com/USA-RedDragon/camper-server/internal/google"
	"github.com/USA-RedDragon/camper-server/internal/metrics"
	"github.com/USA-RedDragon/camper-server/internal/planner"
	"github.com/USA-RedDragon/camper-server/internal/triplog"
	"github.com/gin-gonic/gin"
)

// planStatus maps a planning failure to an HTTP status.
func planStatus(err error) int {
	var verr *planner.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, google.ErrNoRoute):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func failedResult(message string) planner.Result {
	return planner.Result{
		DailyItinerary: []planner.DailyPlan{},
		DebugLog:       []string{},
		Error:          message,
	}
}

func POSTItinerary(c *gin.Context) {
	p, ok := fromContext[*planner.Planner](c, "planner")
	if !ok {
		return
	}
	logs, ok := fromContext[*triplog.Queue](c, "triplog")
	if !ok {
		return
	}
	publisher, ok := fromContext[events.Publisher](c, "events")
	if !ok {
		return
	}
	m, ok := fromContext[*metrics.Metrics](c, "metrics")
	if !ok {
		return
	}

	var req planner.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failedResult("Invalid request"))
		return
	}

	status := http.StatusOK
	outcome := "ok"
	result, err := p.Plan(c.Request.Context(), req)
	if err != nil {
		status = planStatus(err)
		outcome = "error"
		result.Error = err.Error()
		if status == http.StatusBadGateway {
			slog.Error("Failed to plan itinerary", "origin", req.Origin, "destination", req.Destination, "error", err)
		}
	}
	m.IncrementItineraries(outcome)
	m.AddItineraryDays(result.DrivingDays(), len(result.DailyItinerary)-result.DrivingDays())

	logs.Add(req, result)
	publisher.Publish(events.ItineraryComputedEvent{
		Trip:        triplog.TripName(req),
		Origin:      req.Origin,
		Destination: req.Destination,
		DistanceKm:  result.DistanceKm,
		Days:        len(result.DailyItinerary),
		DrivingDays: result.DrivingDays(),
		Error:       result.Error,
		At:          time.Now().UTC(),
	})

	c.JSON(status, result)
}

type segmentRequest struct {
	Polyline    string  `json:"polyline" binding:"required"`
	Stops       []int   `json:"stops"`
	KmMaximoDia float64 `json:"kmMaximoDia"`
	FechaInicio string  `json:"fechaInicio"`
}

// POSTSegmentPolyline segments the polyline a client rendered, so both sides agree on
// where each day ends.
func POSTSegmentPolyline(c *gin.Context) {
	p, ok := fromContext[*planner.Planner](c, "planner")
	if !ok {
		return
	}

	var req segmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failedResult("Invalid request"))
		return
	}

	result, err := p.SegmentPolyline(c.Request.Context(), req.Polyline, req.Stops, req.KmMaximoDia, req.FechaInicio)
	if err != nil {
		result.Error = err.Error()
		c.JSON(planStatus(err), result)
		return
	}
	c.JSON(http.StatusOK, result)
}
