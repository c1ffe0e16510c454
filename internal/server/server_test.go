package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/db"
	"github.com/USA-RedDragon/camper-server/internal/devserver"
	"github.com/USA-RedDragon/camper-server/internal/events"
	"github.com/USA-RedDragon/camper-server/internal/geocache"
	"github.com/USA-RedDragon/camper-server/internal/google"
	"github.com/USA-RedDragon/camper-server/internal/places"
	"github.com/USA-RedDragon/camper-server/internal/planner"
	"github.com/USA-RedDragon/camper-server/internal/searchindex"
	"github.com/USA-RedDragon/camper-server/internal/server"
	"github.com/USA-RedDragon/camper-server/internal/storage"
	"github.com/USA-RedDragon/camper-server/internal/triplog"
	"github.com/USA-RedDragon/camper-server/internal/utils"
	"github.com/gin-gonic/gin"
)

type fakeRouter struct {
	err error
}

// One 100 km leg along the equator
func (f *fakeRouter) Route(_ context.Context, _ google.RouteQuery) (*google.Route, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := []utils.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.5}, {Lat: 0, Lng: 1}}
	return &google.Route{
		Legs: []google.Leg{{
			Start:          path[0],
			End:            path[len(path)-1],
			DistanceMeters: 100000,
			Duration:       time.Hour,
			Path:           path,
		}},
	}, nil
}

type fakeReverse struct {
	calls atomic.Int32
}

func (f *fakeReverse) CityName(_ context.Context, lat, _ float64) (string, error) {
	f.calls.Add(1)
	if lat > 80 {
		return "", &google.ErrNoResults{Lat: lat}
	}
	return "Madrid", nil
}

type fakeSearcher struct{}

func (fakeSearcher) NearbySearch(_ context.Context, center utils.LatLng, _ uint, placeType string) ([]google.Place, error) {
	return []google.Place{{PlaceID: placeType + "-1", Name: placeType, Location: center}}, nil
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	config *config.Config
	deps   server.Dependencies
	bus    *events.EventBus
	router *gin.Engine
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.Persistence.Database.Driver = config.DatabaseDriverSQLite
	cfg.Persistence.Database.Database = filepath.Join(t.TempDir(), "test.db")
	cfg.Persistence.Storage.Driver = config.StorageDriverFilesystem
	cfg.Persistence.Storage.Filesystem.Directory = t.TempDir()
	cfg.Search.IndexPath = filepath.Join(t.TempDir(), "missing.json")
	if mutate != nil {
		mutate(cfg)
	}

	database, err := db.MakeDB(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store, err := storage.NewStorage(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cache, err := geocache.Load(context.Background(), store, cfg.GeocodeCache)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bus := events.NewEventBus()
	deps := server.Dependencies{
		DB:        database,
		Planner:   planner.NewPlanner(&fakeRouter{}, nil, config.Planner{DefaultKmPerDay: 300, Currency: "EUR"}),
		Geocoder:  geocache.NewCachedGeocoder(cache, &fakeReverse{}, nil),
		Places:    places.NewService(fakeSearcher{}, cfg.Places, nil, nil, nil),
		TripLogs:  triplog.NewQueue(store, cfg.Logs, nil),
		DevServer: devserver.NewSupervisor(cfg.DevServer, nil),
		Events:    bus,
		Search:    searchindex.NewLoader(cfg.Search.IndexPath),
	}
	return &testEnv{
		config: cfg,
		deps:   deps,
		bus:    bus,
		router: server.NewRouter(cfg, deps),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return v
}

func itineraryRequest() planner.Request {
	return planner.Request{
		Origin:       "Madrid",
		Destination:  "Toledo",
		KmMaximoDia:  300,
		FechaInicio:  "2025-06-01",
		FechaRegreso: "2025-06-03",
	}
}

func TestHealthAndNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || w.Body.String() != "OK" {
		t.Errorf("health: %d %q", w.Code, w.Body.String())
	}
	w = env.do(t, http.MethodGet, "/api/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestItinerary(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/itinerary", itineraryRequest())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	result := decode[planner.Result](t, w)
	if len(result.DailyItinerary) != 3 {
		t.Fatalf("expected 3 days, got %d", len(result.DailyItinerary))
	}
	if day := result.DailyItinerary[0]; day.From != "Madrid" || day.To != "Toledo" || day.DistanceKm != 100 {
		t.Errorf("unexpected first day %+v", day)
	}
	if result.DailyItinerary[2].IsDriving {
		t.Errorf("expected the last day to be a stay day")
	}
	if result.Error != "" {
		t.Errorf("unexpected error %q", result.Error)
	}

	select {
	case event := <-env.bus.GetChannel():
		computed, ok := event.(events.ItineraryComputedEvent)
		if !ok {
			t.Fatalf("unexpected event %T", event)
		}
		if computed.Trip != "Madrid to Toledo" || computed.DrivingDays != 1 {
			t.Errorf("unexpected event %+v", computed)
		}
	default:
		t.Errorf("expected an itinerary event")
	}
}

func TestItineraryErrors(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	req := itineraryRequest()
	req.Origin = ""
	w := env.do(t, http.MethodPost, "/api/itinerary", req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if result := decode[planner.Result](t, w); !strings.Contains(result.Error, "origin") {
		t.Errorf("expected an origin error, got %q", result.Error)
	}

	env.deps.Planner = planner.NewPlanner(&fakeRouter{err: google.ErrNoRoute}, nil, config.Planner{})
	env.router = server.NewRouter(env.config, env.deps)
	w = env.do(t, http.MethodPost, "/api/itinerary", itineraryRequest())
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", w.Code)
	}
	result := decode[planner.Result](t, w)
	if result.Error == "" || result.DailyItinerary == nil {
		t.Errorf("expected an error in the result shape, got %+v", result)
	}
}

func TestSegmentPolyline(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	encoded := utils.EncodePolyline([]utils.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}})
	w := env.do(t, http.MethodPost, "/api/itinerary/segment", map[string]any{
		"polyline":    encoded,
		"kmMaximoDia": 50,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if result := decode[planner.Result](t, w); len(result.DailyItinerary) != 3 {
		t.Errorf("expected 3 days, got %d", len(result.DailyItinerary))
	}

	w = env.do(t, http.MethodPost, "/api/itinerary/segment", map[string]any{"polyline": "!!"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestReverseGeocode(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	type response struct {
		City  string `json:"city"`
		Key   string `json:"key"`
		Cache struct {
			Hit    bool   `json:"hit"`
			Source string `json:"source"`
		} `json:"cache"`
	}

	w := env.do(t, http.MethodGet, "/api/geocode/reverse?lat=40.41678&lng=-3.70379", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	first := decode[response](t, w)
	if first.City != "Madrid" || first.Cache.Hit || first.Cache.Source != "google" || first.Key != "40.4168,-3.7038" {
		t.Errorf("unexpected first response %+v", first)
	}

	second := decode[response](t, env.do(t, http.MethodGet, "/api/geocode/reverse?lat=40.41678&lng=-3.70379", nil))
	if !second.Cache.Hit || second.Cache.Source != "cache" {
		t.Errorf("expected a cache hit, got %+v", second)
	}

	if w := env.do(t, http.MethodGet, "/api/geocode/reverse?lat=91&lng=0", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/geocode/reverse?lat=85&lng=0", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestPlaces(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/places-supercat", nil)
	listing := decode[struct {
		Supercats map[string][]string `json:"supercats"`
	}](t, w)
	if len(listing.Supercats["camping"]) != 2 {
		t.Errorf("expected camping types, got %v", listing.Supercats)
	}

	body := map[string]any{
		"tripName": "Iberia",
		"supercat": "camping",
		"center":   map[string]float64{"lat": 40.4, "lng": -3.7},
	}
	w = env.do(t, http.MethodPost, "/api/places-supercat", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[places.Response](t, w)
	if resp.Cache.Source != places.SourceGoogle || len(resp.Categories["rv_park"]) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	resp = decode[places.Response](t, env.do(t, http.MethodPost, "/api/places-supercat", body))
	if !resp.Cache.Hit || resp.Cache.Source != places.SourceMemory {
		t.Errorf("expected a memory hit, got %+v", resp.Cache)
	}

	body["supercat"] = "casino"
	if w := env.do(t, http.MethodPost, "/api/places-supercat", body); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestTripsCRUD(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/trips", itineraryRequest())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[map[string]any](t, w)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("expected an id in %v", created)
	}
	if created["name"] != "Madrid - Toledo" {
		t.Errorf("unexpected name %v", created["name"])
	}
	if itinerary, _ := created["itinerary"].([]any); len(itinerary) != 3 {
		t.Errorf("expected the planned itinerary, got %v", created["itinerary"])
	}

	update := map[string]any{
		"id":          id,
		"tripName":    "Weekend",
		"origin":      "Madrid",
		"destination": "Toledo",
		"fechaInicio": "2025-06-01",
		"recompute":   true,
	}
	if w := env.do(t, http.MethodPost, "/api/trips", update); w.Code != http.StatusOK {
		t.Errorf("expected 200 on update, got %d", w.Code)
	}

	list := decode[struct {
		Trips []map[string]any `json:"trips"`
	}](t, env.do(t, http.MethodGet, "/api/trips", nil))
	if len(list.Trips) != 1 || list.Trips[0]["name"] != "Weekend" {
		t.Errorf("unexpected trips %v", list.Trips)
	}

	if w := env.do(t, http.MethodGet, "/api/trips/"+id, nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/trips/"+id, nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/trips/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/trips/"+id, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", w.Code)
	}

	update["id"] = "does-not-exist"
	if w := env.do(t, http.MethodPost, "/api/trips", update); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown id, got %d", w.Code)
	}

	var saved, deleted bool
	for len(env.bus.GetChannel()) > 0 {
		switch (<-env.bus.GetChannel()).GetType() {
		case events.EventTypeTripSaved:
			saved = true
		case events.EventTypeTripDeleted:
			deleted = true
		}
	}
	if !saved || !deleted {
		t.Errorf("expected saved and deleted events, got saved=%v deleted=%v", saved, deleted)
	}
}

func TestTripsAreScopedToTheUser(t *testing.T) {
	t.Parallel()
	const secret = "test-secret"
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Supabase.JWTSecret = secret
	})

	if w := env.do(t, http.MethodGet, "/api/trips", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/trips", nil, "Authorization", "Bearer garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with a bad token, got %d", w.Code)
	}

	alice, err := utils.GenerateJWT(secret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bob, err := utils.GenerateJWT(secret, "bob", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := env.do(t, http.MethodPost, "/api/trips", itineraryRequest(), "Authorization", "Bearer "+alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	id, _ := decode[map[string]any](t, w)["id"].(string)

	if w := env.do(t, http.MethodGet, "/api/trips/"+id, nil, "Authorization", "Bearer "+bob); w.Code != http.StatusNotFound {
		t.Errorf("expected another user to get 404, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/trips/"+id, nil, "Authorization", "Bearer "+alice); w.Code != http.StatusOK {
		t.Errorf("expected the owner to get 200, got %d", w.Code)
	}

	// Anonymous itinerary computation stays open
	if w := env.do(t, http.MethodPost, "/api/itinerary", itineraryRequest()); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestLogs(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	go env.deps.TripLogs.Start()
	if w := env.do(t, http.MethodPost, "/api/itinerary", itineraryRequest()); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	env.deps.TripLogs.Stop()

	w := env.do(t, http.MethodGet, "/api/logs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	listing := decode[struct {
		Logs    []triplog.Entry     `json:"logs"`
		Summary []map[string]string `json:"summary"`
	}](t, w)
	if len(listing.Logs) != 1 || listing.Logs[0].Trip != "Madrid to Toledo" {
		t.Errorf("unexpected logs %+v", listing.Logs)
	}
	if len(listing.Summary) != 1 || listing.Summary[0]["origin"] != "Madrid" {
		t.Errorf("unexpected summary %v", listing.Summary)
	}

	if w := env.do(t, http.MethodGet, "/api/logs/madrid-to-toledo", nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/logs/nowhere", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestDevServerRoutes(t *testing.T) {
	t.Parallel()

	disabled := newTestEnv(t, nil)
	if w := disabled.do(t, http.MethodGet, "/api/dev-server", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 when disabled, got %d", w.Code)
	}

	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.DevServer.Enabled = true
	})
	w := env.do(t, http.MethodGet, "/api/dev-server", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if status := decode[devserver.Status](t, w); status.Running {
		t.Errorf("expected the server to be stopped")
	}
	if w := env.do(t, http.MethodPost, "/api/dev-server", map[string]string{"action": "start"}); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without a command, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/dev-server", map[string]string{"action": "stop"}); w.Code != http.StatusConflict {
		t.Errorf("expected 409 when not running, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/dev-server", map[string]string{"action": "restart"}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()

	missing := newTestEnv(t, nil)
	if w := missing.do(t, http.MethodGet, "/api/search?q=camping", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without an index, got %d", w.Code)
	}

	docs := t.TempDir()
	err := os.WriteFile(filepath.Join(docs, "camping.md"), []byte("# Camping areas\n\nOvernight parking for motorhomes.\n"), 0o600)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	index, err := searchindex.Build(docs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	indexPath := filepath.Join(t.TempDir(), "index.json")
	if err := index.Write(indexPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Search.IndexPath = indexPath
	})
	if w := env.do(t, http.MethodGet, "/api/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", w.Code)
	}
	w := env.do(t, http.MethodGet, "/api/search?q=motorhomes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[struct {
		Query   string                 `json:"query"`
		Results []searchindex.Document `json:"results"`
	}](t, w)
	if len(resp.Results) != 1 || resp.Results[0].Title != "Camping areas" {
		t.Errorf("unexpected results %+v", resp.Results)
	}
}

func TestMissingDependencyIsAServerError(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)
	env.deps.Events = nil
	env.router = server.NewRouter(env.config, env.deps)

	w := env.do(t, http.MethodPost, "/api/itinerary", itineraryRequest())
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Try again later") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}
