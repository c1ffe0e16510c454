package places

import (
	"sort"

	"github.com/USA-RedDragon/camper-server/internal/utils"
	"github.com/go-errors/errors"
)

const (
	DefaultRadius = 5000
	MaxRadius     = 50000
)

var supercats = map[string][]string{
	"camping":  {"campground", "rv_park"},
	"fuel":     {"gas_station"},
	"supplies": {"supermarket", "convenience_store", "hardware_store"},
	"services": {"car_repair", "laundry", "car_wash"},
	"food":     {"restaurant", "cafe"},
	"tourism":  {"tourist_attraction", "museum", "park"},
	"health":   {"pharmacy", "hospital"},
}

var (
	ErrUnknownSupercat = errors.New("Unknown supercat")
	ErrInvalidCenter   = errors.New("Center must be a valid lat/lng")
	ErrInvalidRadius   = errors.New("Radius must be between 1 and 50000 meters")
)

// Types returns the Google place types grouped under a supercat.
func Types(supercat string) ([]string, bool) {
	types, ok := supercats[supercat]
	if !ok {
		return nil, false
	}
	return append([]string(nil), types...), true
}

func Supercats() []string {
	names := make([]string, 0, len(supercats))
	for name := range supercats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Request struct {
	TripName string        `json:"tripName"`
	TripID   string        `json:"tripId"`
	Supercat string        `json:"supercat"`
	Center   *utils.LatLng `json:"center"`
	Radius   int           `json:"radius"`
}

func (r *Request) Validate() error {
	if _, ok := supercats[r.Supercat]; !ok {
		return ErrUnknownSupercat
	}
	if r.Center == nil || !r.Center.Valid() {
		return ErrInvalidCenter
	}
	if r.Radius == 0 {
		r.Radius = DefaultRadius
	}
	if r.Radius < 1 || r.Radius > MaxRadius {
		return ErrInvalidRadius
	}
	return nil
}
