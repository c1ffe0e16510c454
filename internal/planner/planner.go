package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/google"
	"github.com/USA-RedDragon/camper-server/internal/utils"
	"golang.org/x/sync/errgroup"
)

// MinKmPerDay keeps segmentation from producing absurd numbers of days.
const MinKmPerDay = 10

const geocodeConcurrency = 4

type Router interface {
	Route(ctx context.Context, q google.RouteQuery) (*google.Route, error)
}

type Geocoder interface {
	CityName(ctx context.Context, lat, lng float64) (string, error)
}

type Planner struct {
	router   Router
	geocoder Geocoder
	config   config.Planner
}

// NewPlanner wires the route source and the stop labeler. geocoder may be nil, in which
// case overnight stops are labeled by their coordinates.
func NewPlanner(router Router, geocoder Geocoder, cfg config.Planner) *Planner {
	if cfg.DefaultKmPerDay <= 0 {
		cfg.DefaultKmPerDay = config.DefaultPlannerKmPerDay
	}
	return &Planner{
		router:   router,
		geocoder: geocoder,
		config:   cfg,
	}
}

type validated struct {
	waypoints []string
	maxKm     float64
	start     time.Time
	end       *time.Time
	mode      string
}

func (p *Planner) validate(req Request) (validated, error) {
	var v validated
	if strings.TrimSpace(req.Origin) == "" {
		return v, &ValidationError{Field: "origin", Message: "is required"}
	}
	if strings.TrimSpace(req.Destination) == "" {
		return v, &ValidationError{Field: "destination", Message: "is required"}
	}
	for _, wp := range req.Waypoints {
		if strings.TrimSpace(wp) != "" {
			v.waypoints = append(v.waypoints, strings.TrimSpace(wp))
		}
	}

	maxKm, err := p.maxKm(req.KmMaximoDia)
	if err != nil {
		return v, err
	}
	v.maxKm = maxKm

	switch strings.ToLower(req.TravelMode) {
	case "", "driving":
		v.mode = "driving"
	case "walking", "bicycling":
		v.mode = strings.ToLower(req.TravelMode)
	default:
		return v, &ValidationError{Field: "travel_mode", Message: "must be driving, walking or bicycling"}
	}

	if req.FechaInicio == "" {
		return v, &ValidationError{Field: "fechaInicio", Message: "is required"}
	}
	v.start, err = time.Parse(DateLayout, req.FechaInicio)
	if err != nil {
		return v, &ValidationError{Field: "fechaInicio", Message: "must be a YYYY-MM-DD date"}
	}
	if req.FechaRegreso != "" {
		end, err := time.Parse(DateLayout, req.FechaRegreso)
		if err != nil {
			return v, &ValidationError{Field: "fechaRegreso", Message: "must be a YYYY-MM-DD date"}
		}
		if end.Before(v.start) {
			return v, &ValidationError{Field: "fechaRegreso", Message: "must not be before fechaInicio"}
		}
		v.end = &end
	}
	return v, nil
}

func (p *Planner) maxKm(requested float64) (float64, error) {
	switch {
	case requested < 0:
		return 0, &ValidationError{Field: "kmMaximoDia", Message: "must not be negative"}
	case requested == 0:
		return p.config.DefaultKmPerDay, nil
	case requested < MinKmPerDay:
		return 0, &ValidationError{Field: "kmMaximoDia", Message: fmt.Sprintf("must be at least %d", MinKmPerDay)}
	default:
		return requested, nil
	}
}

// Plan computes the day by day itinerary for a trip request.
func (p *Planner) Plan(ctx context.Context, req Request) (Result, error) {
	result := Result{DailyItinerary: []DailyPlan{}, DebugLog: []string{}}

	v, err := p.validate(req)
	if err != nil {
		return result, err
	}
	result.DebugLog = append(result.DebugLog, fmt.Sprintf("origin %q, destination %q, %d waypoints, %.0f km/day, mode %s",
		req.Origin, req.Destination, len(v.waypoints), v.maxKm, v.mode))

	route, err := p.router.Route(ctx, google.RouteQuery{
		Origin:      strings.TrimSpace(req.Origin),
		Destination: strings.TrimSpace(req.Destination),
		Waypoints:   v.waypoints,
		Mode:        v.mode,
	})
	if err != nil {
		return result, fmt.Errorf("failed to compute route: %w", err)
	}
	result.DebugLog = append(result.DebugLog, fmt.Sprintf("router returned %d legs", len(route.Legs)))

	stops := append(append([]string{strings.TrimSpace(req.Origin)}, v.waypoints...), strings.TrimSpace(req.Destination))

	stages, debug := Segment(route.Legs, v.maxKm)
	result.DebugLog = append(result.DebugLog, debug...)

	totalMeters := 0.0
	var fullPath []utils.LatLng
	for _, leg := range route.Legs {
		totalMeters += leg.DistanceMeters
		result.DurationSeconds += leg.Duration.Seconds()
		path := leg.Path
		if len(fullPath) > 0 && len(path) > 0 && fullPath[len(fullPath)-1] == path[0] {
			path = path[1:]
		}
		fullPath = append(fullPath, path...)
	}
	result.OverviewPolyline = utils.EncodePolyline(fullPath)
	if result.OverviewPolyline == "" {
		result.OverviewPolyline = route.OverviewPolyline
	}
	result.DistanceKm = utils.Round(totalMeters/1000, 1)

	labels := p.labelStages(ctx, stages, stops, &result.DebugLog)
	result.DailyItinerary = p.schedule(ctx, route.Legs, stages, labels, stops, v, &result.DebugLog)

	liters := result.DistanceKm * p.config.FuelConsumption / 100
	result.Fuel = &Fuel{
		Liters:   utils.Round(liters, 2),
		Cost:     utils.Round(liters*p.config.FuelPrice, 2),
		Currency: p.config.Currency,
	}

	return result, nil
}

// SegmentPolyline runs the same segmentation on a polyline drawn by the client, breaking
// days at the given vertex indices. No dates are attached beyond the optional start date.
func (p *Planner) SegmentPolyline(ctx context.Context, encoded string, stopIndices []int, kmPerDay float64, startDate string) (Result, error) {
	result := Result{DailyItinerary: []DailyPlan{}, DebugLog: []string{}}

	maxKm, err := p.maxKm(kmPerDay)
	if err != nil {
		return result, err
	}
	legs, err := SplitPolyline(encoded, stopIndices)
	if err != nil {
		return result, &ValidationError{Field: "polyline", Message: err.Error()}
	}
	v := validated{maxKm: maxKm}
	if startDate != "" {
		v.start, err = time.Parse(DateLayout, startDate)
		if err != nil {
			return result, &ValidationError{Field: "fechaInicio", Message: "must be a YYYY-MM-DD date"}
		}
	}

	stages, debug := Segment(legs, maxKm)
	result.DebugLog = append(result.DebugLog, debug...)

	total := 0.0
	for _, leg := range legs {
		total += leg.DistanceMeters
	}
	result.DistanceKm = utils.Round(total/1000, 1)
	result.OverviewPolyline = encoded

	labels := p.labelStages(ctx, stages, nil, &result.DebugLog)
	result.DailyItinerary = p.schedule(ctx, legs, stages, labels, nil, v, &result.DebugLog)
	if startDate == "" {
		for i := range result.DailyItinerary {
			result.DailyItinerary[i].Date = ""
		}
	}
	return result, nil
}

// labelStages returns the end label of every stage. Leg ends take the stop names when
// known; every other end is reverse geocoded.
func (p *Planner) labelStages(ctx context.Context, stages []Stage, stops []string, debugLog *[]string) []string {
	labels := make([]string, len(stages))
	failures := make([]string, len(stages))

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(geocodeConcurrency)
	for i, stage := range stages {
		if stage.EndsLeg && stage.LegIndex+1 < len(stops) {
			labels[i] = stops[stage.LegIndex+1]
			continue
		}
		grp.Go(func() error {
			labels[i], failures[i] = p.cityName(grpCtx, stage.End)
			return nil
		})
	}
	_ = grp.Wait()

	for i, failure := range failures {
		if failure != "" {
			*debugLog = append(*debugLog, fmt.Sprintf("day %d: %s", i+1, failure))
		}
	}
	return labels
}

func (p *Planner) cityName(ctx context.Context, point utils.LatLng) (string, string) {
	fallback := fmt.Sprintf("%.4f, %.4f", point.Lat, point.Lng)
	if p.geocoder == nil {
		return fallback, ""
	}
	city, err := p.geocoder.CityName(ctx, point.Lat, point.Lng)
	if err != nil {
		slog.Warn("Failed to label overnight stop", "lat", point.Lat, "lng", point.Lng, "error", err)
		return fallback, fmt.Sprintf("could not geocode %s: %v", fallback, err)
	}
	return city, ""
}

func (p *Planner) schedule(ctx context.Context, legs []google.Leg, stages []Stage, labels []string, stops []string, v validated, debugLog *[]string) []DailyPlan {
	days := make([]DailyPlan, 0, len(stages))
	from := ""
	if len(stops) > 0 {
		from = stops[0]
	}
	for i, stage := range stages {
		if i == 0 && from == "" {
			from, _ = p.cityName(ctx, stage.Start)
		}
		start := stage.Start
		end := stage.End
		days = append(days, DailyPlan{
			Day:              i + 1,
			Date:             v.start.AddDate(0, 0, i).Format(DateLayout),
			From:             from,
			To:               labels[i],
			DistanceKm:       utils.Round(stage.Meters/1000, 1),
			IsDriving:        true,
			Coordinates:      &end,
			StartCoordinates: &start,
		})
		from = labels[i]
	}

	if v.end == nil {
		return days
	}

	drivingDays := len(days)
	windowDays := int(v.end.Sub(v.start).Hours()/24) + 1
	if drivingDays > windowDays {
		*debugLog = append(*debugLog, fmt.Sprintf("driving needs %d days but the window %s to %s has %d",
			drivingDays, v.start.Format(DateLayout), v.end.Format(DateLayout), windowDays))
		return days
	}

	stayAt := from
	var stayCoords *utils.LatLng
	switch {
	case len(stages) > 0:
		last := stages[len(stages)-1].End
		stayCoords = &last
	case len(legs) > 0:
		// No driving at all: the whole window is spent at the destination
		last := legs[len(legs)-1].End
		stayCoords = &last
		if len(stops) > 0 {
			stayAt = stops[len(stops)-1]
		} else {
			stayAt, _ = p.cityName(ctx, last)
		}
	}
	for i := drivingDays; i < windowDays; i++ {
		days = append(days, DailyPlan{
			Day:         i + 1,
			Date:        v.start.AddDate(0, 0, i).Format(DateLayout),
			From:        stayAt,
			To:          stayAt,
			DistanceKm:  0,
			IsDriving:   false,
			Coordinates: stayCoords,
		})
	}
	if windowDays > drivingDays {
		*debugLog = append(*debugLog, fmt.Sprintf("%d stay days at %s", windowDays-drivingDays, stayAt))
	}
	return days
}
