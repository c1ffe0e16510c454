package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics methods are safe to call on a nil receiver so packages can run without them in tests.
type Metrics struct {
	itineraries       *prometheus.CounterVec
	itineraryDays     *prometheus.CounterVec
	geocodeCache      *prometheus.CounterVec
	placesCache       *prometheus.CounterVec
	googleRequests    *prometheus.CounterVec
	tripLogQueueSize  prometheus.Gauge
	tripLogActiveJobs prometheus.Gauge
	tripLogErrors     *prometheus.CounterVec
	devServerRunning  prometheus.Gauge
	eventsPublished   *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		itineraries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camper_itineraries_total",
			Help: "The total number of itinerary computations",
		}, []string{"outcome"}),
		itineraryDays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camper_itinerary_days_total",
			Help: "The total number of itinerary days produced",
		}, []string{"kind"}),
		geocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camper_geocode_cache_lookups_total",
			Help: "Geocoding cache lookups by result",
		}, []string{"result"}),
		placesCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camper_places_lookups_total",
			Help: "Places lookups by the layer that answered",
		}, []string{"source"}),
		googleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camper_google_requests_total",
			Help: "Google Maps API requests",
		}, []string{"api", "status"}),
		tripLogQueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camper_triplog_queue_size",
			Help: "The number of trip logs waiting to be written",
		}),
		tripLogActiveJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camper_triplog_active_jobs",
			Help: "The number of trip logs being written",
		}),
		tripLogErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camper_triplog_errors_total",
			Help: "Trip log write failures",
		}, []string{"stage"}),
		devServerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "camper_devserver_running",
			Help: "Whether the development server process is running",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camper_events_published_total",
			Help: "Trip events published",
		}, []string{"type", "status"}),
	}
	metrics.register()
	return metrics
}

func (m *Metrics) register() {
	m.itineraries = registerOrReuse(m.itineraries)
	m.itineraryDays = registerOrReuse(m.itineraryDays)
	m.geocodeCache = registerOrReuse(m.geocodeCache)
	m.placesCache = registerOrReuse(m.placesCache)
	m.googleRequests = registerOrReuse(m.googleRequests)
	m.tripLogQueueSize = registerOrReuse(m.tripLogQueueSize)
	m.tripLogActiveJobs = registerOrReuse(m.tripLogActiveJobs)
	m.tripLogErrors = registerOrReuse(m.tripLogErrors)
	m.devServerRunning = registerOrReuse(m.devServerRunning)
	m.eventsPublished = registerOrReuse(m.eventsPublished)
}

func registerOrReuse[T prometheus.Collector](c T) T {
	err := prometheus.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(err)
}

func (m *Metrics) IncrementItineraries(outcome string) {
	if m == nil {
		return
	}
	m.itineraries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddItineraryDays(driving, stay int) {
	if m == nil {
		return
	}
	m.itineraryDays.WithLabelValues("driving").Add(float64(driving))
	m.itineraryDays.WithLabelValues("stay").Add(float64(stay))
}

func (m *Metrics) IncrementGeocodeCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.geocodeCache.WithLabelValues("hit").Inc()
	} else {
		m.geocodeCache.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) IncrementPlacesLookup(source string) {
	if m == nil {
		return
	}
	m.placesCache.WithLabelValues(source).Inc()
}

func (m *Metrics) IncrementGoogleRequests(api, status string) {
	if m == nil {
		return
	}
	m.googleRequests.WithLabelValues(api, status).Inc()
}

func (m *Metrics) SetTripLogQueueSize(size float64) {
	if m == nil {
		return
	}
	m.tripLogQueueSize.Set(size)
}

func (m *Metrics) SetTripLogActiveJobs(jobs float64) {
	if m == nil {
		return
	}
	m.tripLogActiveJobs.Set(jobs)
}

func (m *Metrics) IncrementTripLogErrors(stage string) {
	if m == nil {
		return
	}
	m.tripLogErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) SetDevServerRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.devServerRunning.Set(1)
	} else {
		m.devServerRunning.Set(0)
	}
}

func (m *Metrics) IncrementEventsPublished(eventType, status string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType, status).Inc()
}
