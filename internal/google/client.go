package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/metrics"
	"github.com/USA-RedDragon/camper-server/internal/utils"
	"googlemaps.github.io/maps"
)

var (
	ErrNoRoute         = errors.New("no route found between the given places")
	ErrInvalidMode     = errors.New("unsupported travel mode")
	ErrInvalidPlaceArg = errors.New("invalid nearby search arguments")
)

// ErrNoResults is returned when reverse geocoding finds nothing at a point.
type ErrNoResults struct {
	Lat float64
	Lng float64
}

func (e *ErrNoResults) Error() string {
	return fmt.Sprintf("no geocoding results for %.4f,%.4f", e.Lat, e.Lng)
}

type Client struct {
	maps    *maps.Client
	metrics *metrics.Metrics
}

// NewClient builds a Maps client using the server key when present, falling back to the public key.
func NewClient(cfg *config.Config, metrics *metrics.Metrics, opts ...maps.ClientOption) (*Client, error) {
	options := append([]maps.ClientOption{maps.WithAPIKey(cfg.Google.APIKey())}, opts...)
	mapsClient, err := maps.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Client{
		maps:    mapsClient,
		metrics: metrics,
	}, nil
}

type RouteQuery struct {
	Origin      string
	Destination string
	Waypoints   []string
	Mode        string
}

type Leg struct {
	StartAddress   string
	EndAddress     string
	Start          utils.LatLng
	End            utils.LatLng
	DistanceMeters float64
	Duration       time.Duration
	Path           []utils.LatLng
}

type Route struct {
	Summary          string
	OverviewPolyline string
	Legs             []Leg
}

func (c *Client) record(api string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.IncrementGoogleRequests(api, status)
}

func travelMode(mode string) (maps.Mode, error) {
	switch strings.ToLower(mode) {
	case "", "driving":
		return maps.TravelModeDriving, nil
	case "walking":
		return maps.TravelModeWalking, nil
	case "bicycling":
		return maps.TravelModeBicycling, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
}

// Route asks Directions for a route visiting the waypoints in the given order.
func (c *Client) Route(ctx context.Context, q RouteQuery) (*Route, error) {
	mode, err := travelMode(q.Mode)
	if err != nil {
		return nil, err
	}

	routes, _, err := c.maps.Directions(ctx, &maps.DirectionsRequest{
		Origin:      q.Origin,
		Destination: q.Destination,
		Waypoints:   q.Waypoints,
		Mode:        mode,
	})
	c.record("directions", err)
	if err != nil {
		// NOT_FOUND means one of the places could not be geocoded
		if strings.HasPrefix(err.Error(), "maps: NOT_FOUND") {
			return nil, fmt.Errorf("%w: %v", ErrNoRoute, err)
		}
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}

	route := routes[0]
	result := &Route{
		Summary:          route.Summary,
		OverviewPolyline: route.OverviewPolyline.Points,
		Legs:             make([]Leg, 0, len(route.Legs)),
	}
	for i, leg := range route.Legs {
		path, err := legPath(leg)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		// A single leg without steps can still use the overview geometry
		if len(path) < 2 && len(route.Legs) == 1 && route.OverviewPolyline.Points != "" {
			path, err = utils.DecodePolyline(route.OverviewPolyline.Points)
			if err != nil {
				return nil, fmt.Errorf("overview polyline: %w", err)
			}
		}
		start := utils.LatLng{Lat: leg.StartLocation.Lat, Lng: leg.StartLocation.Lng}
		end := utils.LatLng{Lat: leg.EndLocation.Lat, Lng: leg.EndLocation.Lng}
		if len(path) < 2 {
			path = []utils.LatLng{start, end}
		}
		result.Legs = append(result.Legs, Leg{
			StartAddress:   leg.StartAddress,
			EndAddress:     leg.EndAddress,
			Start:          start,
			End:            end,
			DistanceMeters: float64(leg.Meters),
			Duration:       leg.Duration,
			Path:           path,
		})
	}
	return result, nil
}

func legPath(leg *maps.Leg) ([]utils.LatLng, error) {
	var path []utils.LatLng
	for _, step := range leg.Steps {
		points, err := utils.DecodePolyline(step.Polyline.Points)
		if err != nil {
			return nil, err
		}
		// Consecutive steps share their joint vertex
		if len(path) > 0 && len(points) > 0 && path[len(path)-1] == points[0] {
			points = points[1:]
		}
		path = append(path, points...)
	}
	return path, nil
}

var cityComponentOrder = []string{
	"locality",
	"postal_town",
	"administrative_area_level_2",
	"administrative_area_level_1",
}

// CityFromResults picks the most specific city-like name across all results.
func CityFromResults(results []maps.GeocodingResult) string {
	for _, componentType := range cityComponentOrder {
		for _, result := range results {
			for _, component := range result.AddressComponents {
				for _, t := range component.Types {
					if t == componentType && component.LongName != "" {
						return component.LongName
					}
				}
			}
		}
	}
	for _, result := range results {
		if result.FormattedAddress != "" {
			return result.FormattedAddress
		}
	}
	return ""
}

func (c *Client) CityName(ctx context.Context, lat, lng float64) (string, error) {
	results, err := c.maps.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	c.record("geocode", err)
	if err != nil {
		return "", fmt.Errorf("reverse geocoding failed: %w", err)
	}
	city := CityFromResults(results)
	if city == "" {
		return "", &ErrNoResults{Lat: lat, Lng: lng}
	}
	return city, nil
}

type Place struct {
	PlaceID          string       `json:"placeId"`
	Name             string       `json:"name"`
	Address          string       `json:"address,omitempty"`
	Location         utils.LatLng `json:"location"`
	Rating           float32      `json:"rating,omitempty"`
	UserRatingsTotal int          `json:"userRatingsTotal,omitempty"`
	Types            []string     `json:"types,omitempty"`
	BusinessStatus   string       `json:"businessStatus,omitempty"`
}

func (c *Client) NearbySearch(ctx context.Context, center utils.LatLng, radius uint, placeType string) ([]Place, error) {
	if radius == 0 || placeType == "" {
		return nil, ErrInvalidPlaceArg
	}
	resp, err := c.maps.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: center.Lat, Lng: center.Lng},
		Radius:   radius,
		Type:     maps.PlaceType(placeType),
	})
	c.record("places", err)
	if err != nil {
		return nil, fmt.Errorf("nearby search for %s failed: %w", placeType, err)
	}

	places := make([]Place, 0, len(resp.Results))
	for _, result := range resp.Results {
		places = append(places, Place{
			PlaceID:          result.PlaceID,
			Name:             result.Name,
			Address:          result.Vicinity,
			Location:         utils.LatLng{Lat: result.Geometry.Location.Lat, Lng: result.Geometry.Location.Lng},
			Rating:           result.Rating,
			UserRatingsTotal: result.UserRatingsTotal,
			Types:            result.Types,
			BusinessStatus:   result.BusinessStatus,
		})
	}
	return places, nil
}
