package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/db/models"
	"github.com/USA-RedDragon/camper-server/internal/events"
	"github.com/USA-RedDragon/camper-server/internal/planner"
	"github.com/USA-RedDragon/camper-server/internal/supabase"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const supabaseTripsTable = "trips"

type tripRequest struct {
	ID string `json:"id"`
	planner.Request
	DailyItinerary   []planner.DailyPlan `json:"dailyItinerary"`
	DistanceKm       float64             `json:"distanceKm"`
	OverviewPolyline string              `json:"overviewPolyline"`
	// Recompute plans the itinerary again even when one is supplied
	Recompute bool `json:"recompute"`
}

type supabaseTrip struct {
	ID               string              `json:"id"`
	UserID           *string             `json:"user_id"`
	Name             string              `json:"name"`
	Origin           string              `json:"origin"`
	Destination      string              `json:"destination"`
	Waypoints        []string            `json:"waypoints"`
	TravelMode       string              `json:"travel_mode"`
	KmMaximoDia      float64             `json:"km_maximo_dia"`
	FechaInicio      string              `json:"fecha_inicio"`
	FechaRegreso     *string             `json:"fecha_regreso"`
	DistanceKm       float64             `json:"distance_km"`
	DailyItinerary   []planner.DailyPlan `json:"daily_itinerary"`
	OverviewPolyline string              `json:"overview_polyline"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func toSupabaseTrip(trip models.Trip) supabaseTrip {
	row := supabaseTrip{
		ID:               trip.ID,
		Name:             trip.Name,
		Origin:           trip.Origin,
		Destination:      trip.Destination,
		Waypoints:        trip.Waypoints,
		TravelMode:       trip.TravelMode,
		KmMaximoDia:      trip.KmPerDay,
		FechaInicio:      trip.StartDate,
		DistanceKm:       trip.DistanceKm,
		DailyItinerary:   trip.Itinerary,
		OverviewPolyline: trip.OverviewPolyline,
		UpdatedAt:        trip.UpdatedAt.UTC(),
	}
	if trip.OwnerID.Valid() {
		owner := trip.OwnerID.StringValue()
		row.UserID = &owner
	}
	if trip.ReturnDate != "" {
		returnDate := trip.ReturnDate
		row.FechaRegreso = &returnDate
	}
	return row
}

func GETTrips(c *gin.Context) {
	db, ok := fromContext[*gorm.DB](c, "db")
	if !ok {
		return
	}
	trips, err := models.ListTrips(db, owner(c))
	if err != nil {
		slog.Error("Failed to list trips", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips})
}

func GETTrip(c *gin.Context) {
	db, ok := fromContext[*gorm.DB](c, "db")
	if !ok {
		return
	}
	trip, err := models.FindTripByID(db, c.Param("id"), owner(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		slog.Error("Failed to find trip", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, trip)
}

// POSTTrip creates a trip, or updates it when the body carries the id of an existing one.
func POSTTrip(c *gin.Context) {
	db, ok := fromContext[*gorm.DB](c, "db")
	if !ok {
		return
	}
	p, ok := fromContext[*planner.Planner](c, "planner")
	if !ok {
		return
	}
	sb, ok := fromContext[*supabase.Client](c, "supabase")
	if !ok {
		return
	}
	publisher, ok := fromContext[events.Publisher](c, "events")
	if !ok {
		return
	}

	var req tripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination are required"})
		return
	}

	trip := models.Trip{OwnerID: owner(c)}
	created := true
	if req.ID != "" {
		existing, err := models.FindTripByID(db, req.ID, owner(c))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
				return
			}
			slog.Error("Failed to find trip", "id", req.ID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
			return
		}
		trip = existing
		created = false
	}

	if req.Recompute || len(req.DailyItinerary) == 0 {
		result, err := p.Plan(c.Request.Context(), req.Request)
		if err != nil {
			c.JSON(planStatus(err), gin.H{"error": err.Error(), "debugLog": result.DebugLog})
			return
		}
		req.DailyItinerary = result.DailyItinerary
		req.DistanceKm = result.DistanceKm
		req.OverviewPolyline = result.OverviewPolyline
	}

	trip.Name = strings.TrimSpace(req.TripName)
	if trip.Name == "" {
		trip.Name = req.Origin + " - " + req.Destination
	}
	trip.Origin = req.Origin
	trip.Destination = req.Destination
	trip.Waypoints = req.Waypoints
	trip.TravelMode = req.TravelMode
	trip.KmPerDay = req.KmMaximoDia
	trip.StartDate = req.FechaInicio
	trip.ReturnDate = req.FechaRegreso
	trip.DistanceKm = req.DistanceKm
	trip.Itinerary = req.DailyItinerary
	trip.OverviewPolyline = req.OverviewPolyline

	if err := models.SaveTrip(db, &trip); err != nil {
		slog.Error("Failed to save trip", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	mirrorTrip(c.Request.Context(), sb, trip)
	publisher.Publish(events.TripSavedEvent{
		TripID:     trip.ID,
		OwnerID:    trip.OwnerID.StringValue(),
		Name:       trip.Name,
		DistanceKm: trip.DistanceKm,
		Days:       len(trip.Itinerary),
		At:         time.Now().UTC(),
	})

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, trip)
}

// mirrorTrip copies a saved trip to Supabase. The local database stays authoritative, so
// failures are only logged.
func mirrorTrip(ctx context.Context, sb *supabase.Client, trip models.Trip) {
	if !sb.Enabled() {
		return
	}
	if err := sb.Upsert(ctx, supabaseTripsTable, []supabaseTrip{toSupabaseTrip(trip)}, "id"); err != nil {
		slog.Warn("Failed to mirror trip to supabase", "id", trip.ID, "error", err)
	}
}

func DELETETrip(c *gin.Context) {
	db, ok := fromContext[*gorm.DB](c, "db")
	if !ok {
		return
	}
	sb, ok := fromContext[*supabase.Client](c, "supabase")
	if !ok {
		return
	}
	publisher, ok := fromContext[events.Publisher](c, "events")
	if !ok {
		return
	}

	id := c.Param("id")
	if err := models.DeleteTrip(db, id, owner(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Trip not found"})
			return
		}
		slog.Error("Failed to delete trip", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	if sb.Enabled() {
		if err := sb.Delete(c.Request.Context(), supabaseTripsTable, map[string]string{"id": id}); err != nil {
			slog.Warn("Failed to delete trip from supabase", "id", id, "error", err)
		}
	}
	ownerID := owner(c)
	publisher.Publish(events.TripDeletedEvent{
		TripID:  id,
		OwnerID: ownerID.StringValue(),
		At:      time.Now().UTC(),
	})
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}
