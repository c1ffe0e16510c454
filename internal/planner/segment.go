package planner

import (
	"fmt"
	"math"
	"sort"

	"github.com/USA-RedDragon/camper-server/internal/google"
	"github.com/USA-RedDragon/camper-server/internal/utils"
)

// Days may overshoot the limit by this many meters before a cut is forced.
const toleranceMeters = 1.0

// Stage is one driving day before labels and dates are attached.
type Stage struct {
	Start    utils.LatLng
	End      utils.LatLng
	Meters   float64
	LegIndex int
	// Set when the stage starts or ends exactly at a leg boundary
	StartsLeg bool
	EndsLeg   bool
}

// Segment cuts legs into driving days of at most maxKm. Distances along each leg are
// polyline distances scaled to the leg length reported by the router, so the cut points
// lie on the drawn route and stage meters add up to the router total. Every leg end is a
// forced overnight stop. maxKm <= 0 disables the daily limit.
func Segment(legs []google.Leg, maxKm float64) ([]Stage, []string) {
	maxMeters := maxKm * 1000
	if maxKm <= 0 {
		maxMeters = math.Inf(1)
	}

	var (
		stages []Stage
		debug  []string
	)
	for li, leg := range legs {
		if leg.DistanceMeters <= 0 {
			debug = append(debug, fmt.Sprintf("leg %d has zero length, no day produced", li+1))
			continue
		}

		path := leg.Path
		if len(path) < 2 {
			path = []utils.LatLng{leg.Start, leg.End}
		}
		polyMeters := utils.PathLength(path)
		scale := 1.0
		if polyMeters > 0 {
			scale = leg.DistanceMeters / polyMeters
		} else {
			path = []utils.LatLng{path[0], path[len(path)-1]}
		}
		debug = append(debug, fmt.Sprintf("leg %d: %.1f km by router, %.1f km by polyline, scale %.4f",
			li+1, leg.DistanceMeters/1000, polyMeters/1000, scale))

		dayStart := path[0]
		dayMeters := 0.0
		startsLeg := true
		for i := 1; i < len(path); i++ {
			a, b := path[i-1], path[i]
			segMeters := utils.Haversine(a, b) * scale
			if polyMeters == 0 {
				// Degenerate geometry carries the whole router distance in one segment
				segMeters = leg.DistanceMeters
			}
			consumed := 0.0
			for dayMeters+(segMeters-consumed) > maxMeters+toleranceMeters {
				need := math.Max(0, maxMeters-dayMeters)
				consumed += need
				cut := b
				if segMeters > 0 {
					cut = utils.Interpolate(a, b, consumed/segMeters)
				}
				stages = append(stages, Stage{
					Start:     dayStart,
					End:       cut,
					Meters:    dayMeters + need,
					LegIndex:  li,
					StartsLeg: startsLeg,
				})
				debug = append(debug, fmt.Sprintf("day %d ends at %.5f,%.5f after %.1f km (daily limit)",
					len(stages), cut.Lat, cut.Lng, (dayMeters+need)/1000))
				dayStart = cut
				dayMeters = 0
				startsLeg = false
			}
			dayMeters += segMeters - consumed
		}

		if dayMeters > 0 {
			stages = append(stages, Stage{
				Start:     dayStart,
				End:       path[len(path)-1],
				Meters:    dayMeters,
				LegIndex:  li,
				StartsLeg: startsLeg,
				EndsLeg:   true,
			})
			debug = append(debug, fmt.Sprintf("day %d ends at stop %d after %.1f km", len(stages), li+1, dayMeters/1000))
		}
	}
	return stages, debug
}

// SplitPolyline turns a client-rendered polyline into legs, breaking at the given vertex
// indices (waypoints). Out of range and duplicate indices are ignored.
func SplitPolyline(encoded string, stops []int) ([]google.Leg, error) {
	path, err := utils.DecodePolyline(encoded)
	if err != nil {
		return nil, err
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("polyline needs at least two points, got %d", len(path))
	}

	cuts := make([]int, 0, len(stops))
	seen := map[int]bool{}
	for _, s := range stops {
		if s <= 0 || s >= len(path)-1 || seen[s] {
			continue
		}
		seen[s] = true
		cuts = append(cuts, s)
	}
	sort.Ints(cuts)
	cuts = append(cuts, len(path)-1)

	legs := make([]google.Leg, 0, len(cuts))
	from := 0
	for _, to := range cuts {
		legPath := path[from : to+1]
		legs = append(legs, google.Leg{
			Start:          legPath[0],
			End:            legPath[len(legPath)-1],
			DistanceMeters: utils.PathLength(legPath),
			Path:           legPath,
		})
		from = to
	}
	return legs, nil
}
