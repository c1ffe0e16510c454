package planner

import (
	"fmt"

	"github.com/USA-RedDragon/camper-server/internal/utils"
)

const DateLayout = "2006-01-02"

type Request struct {
	TripName     string   `json:"tripName,omitempty"`
	Origin       string   `json:"origin"`
	Destination  string   `json:"destination"`
	Waypoints    []string `json:"waypoints"`
	TravelMode   string   `json:"travel_mode"`
	KmMaximoDia  float64  `json:"kmMaximoDia"`
	FechaInicio  string   `json:"fechaInicio"`
	FechaRegreso string   `json:"fechaRegreso"`
}

// DailyPlan is one day of an itinerary.
type DailyPlan struct {
	Day              int           `json:"day"`
	Date             string        `json:"date"`
	From             string        `json:"from"`
	To               string        `json:"to"`
	DistanceKm       float64       `json:"distanceKm"`
	IsDriving        bool          `json:"isDriving"`
	Coordinates      *utils.LatLng `json:"coordinates,omitempty"`
	StartCoordinates *utils.LatLng `json:"startCoordinates,omitempty"`
}

type Fuel struct {
	Liters   float64 `json:"liters"`
	Cost     float64 `json:"cost"`
	Currency string  `json:"currency"`
}

type Result struct {
	DailyItinerary   []DailyPlan `json:"dailyItinerary"`
	DistanceKm       float64     `json:"distanceKm"`
	DurationSeconds  float64     `json:"durationSeconds"`
	OverviewPolyline string      `json:"overviewPolyline,omitempty"`
	Fuel             *Fuel       `json:"fuel,omitempty"`
	DebugLog         []string    `json:"debugLog"`
	Error            string      `json:"error,omitempty"`
}

func (r Result) DrivingDays() int {
	n := 0
	for _, day := range r.DailyItinerary {
		if day.IsDriving {
			n++
		}
	}
	return n
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
