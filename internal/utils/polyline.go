package utils

import (
	"errors"
	"fmt"

	"github.com/twpayne/go-polyline"
)

var ErrTrailingPolylineData = errors.New("trailing data after polyline")

// DecodePolyline decodes a Google encoded polyline (precision 5).
func DecodePolyline(encoded string) ([]LatLng, error) {
	if encoded == "" {
		return nil, nil
	}
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}
	if len(rest) != 0 {
		return nil, ErrTrailingPolylineData
	}
	points := make([]LatLng, 0, len(coords))
	for _, c := range coords {
		points = append(points, LatLng{Lat: c[0], Lng: c[1]})
	}
	return points, nil
}

func EncodePolyline(points []LatLng) string {
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lng})
	}
	return string(polyline.EncodeCoords(coords))
}
