package utils

import "math"

const earthRadiusMeters = 6371000

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l LatLng) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180 &&
		!math.IsNaN(l.Lat) && !math.IsNaN(l.Lng)
}

func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the distance between two GPS coordinates in meters.
func Haversine(start, end LatLng) float64 {
	phi1 := degToRad(start.Lat)
	phi2 := degToRad(end.Lat)
	deltaPhi := degToRad(end.Lat - start.Lat)
	deltaLambda := degToRad(end.Lng - start.Lng)

	a := math.Pow(math.Sin(deltaPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*
		math.Pow(math.Sin(deltaLambda/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// PathLength sums the haversine distance of consecutive points in meters.
func PathLength(points []LatLng) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i])
	}
	return total
}

// Interpolate returns the point at fraction f (0..1) of the way from a to b.
// Polyline vertices are close enough together that a linear blend is used. The blend
// takes the short way around when the segment crosses the antimeridian.
func Interpolate(a, b LatLng, f float64) LatLng {
	switch {
	case f <= 0:
		return a
	case f >= 1:
		return b
	}
	deltaLng := b.Lng - a.Lng
	if deltaLng > 180 {
		deltaLng -= 360
	} else if deltaLng < -180 {
		deltaLng += 360
	}
	return LatLng{
		Lat: a.Lat + (b.Lat-a.Lat)*f,
		Lng: wrapLng(a.Lng + deltaLng*f),
	}
}

// wrapLng brings a longitude back into [-180, 180].
func wrapLng(lng float64) float64 {
	if lng > 180 {
		return lng - 360
	}
	if lng < -180 {
		return lng + 360
	}
	return lng
}

func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
