package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/google"
	"github.com/USA-RedDragon/camper-server/internal/metrics"
	"github.com/USA-RedDragon/camper-server/internal/supabase"
	"github.com/USA-RedDragon/camper-server/internal/utils"
	"github.com/bluele/gcache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	SourceMemory   = "memory"
	SourceRedis    = "redis"
	SourceSupabase = "supabase"
	SourceGoogle   = "google"

	supabaseTable = "places_cache"
	redisPrefix   = "places:"
)

type Searcher interface {
	NearbySearch(ctx context.Context, center utils.LatLng, radius uint, placeType string) ([]google.Place, error)
}

type CacheInfo struct {
	Hit    bool   `json:"hit"`
	Source string `json:"source"`
}

type Response struct {
	Supercat   string                    `json:"supercat"`
	Categories map[string][]google.Place `json:"categories"`
	Cache      CacheInfo                 `json:"cache"`
}

type cacheRow struct {
	CacheKey   string                    `json:"cache_key"`
	Supercat   string                    `json:"supercat"`
	Lat        float64                   `json:"lat"`
	Lng        float64                   `json:"lng"`
	Radius     int                       `json:"radius"`
	TripID     *string                   `json:"trip_id"`
	TripName   *string                   `json:"trip_name"`
	Categories map[string][]google.Place `json:"categories"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}

// Service answers supercat searches through a stack of caches in front of Google.
// redis and db may be nil.
type Service struct {
	searcher Searcher
	memory   gcache.Cache
	redis    *redis.Client
	db       *supabase.Client
	ttl      time.Duration
	metrics  *metrics.Metrics
}

func NewService(searcher Searcher, cfg config.Places, redisClient *redis.Client, db *supabase.Client, m *metrics.Metrics) *Service {
	size := cfg.CacheSize
	if size <= 0 {
		size = config.DefaultPlacesCacheSize
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = config.DefaultPlacesCacheTTL
	}
	return &Service{
		searcher: searcher,
		memory:   gcache.New(size).LRU().Expiration(ttl).Build(),
		redis:    redisClient,
		db:       db,
		ttl:      ttl,
		metrics:  m,
	}
}

// CacheKey identifies a search by supercat, center rounded to 3 decimals and radius.
func CacheKey(supercat string, center utils.LatLng, radius int) string {
	return fmt.Sprintf("%s:%.3f,%.3f:%d", supercat, center.Lat, center.Lng, radius)
}

func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	key := CacheKey(req.Supercat, *req.Center, req.Radius)
	resp := &Response{Supercat: req.Supercat}

	if categories, ok := s.fromMemory(key); ok {
		resp.Categories = categories
		resp.Cache = CacheInfo{Hit: true, Source: SourceMemory}
		s.metrics.IncrementPlacesLookup(SourceMemory)
		return resp, nil
	}

	if categories, ok := s.fromRedis(ctx, key); ok {
		s.toMemory(key, categories)
		resp.Categories = categories
		resp.Cache = CacheInfo{Hit: true, Source: SourceRedis}
		s.metrics.IncrementPlacesLookup(SourceRedis)
		return resp, nil
	}

	if categories, ok := s.fromSupabase(ctx, key); ok {
		s.toMemory(key, categories)
		s.toRedis(ctx, key, categories)
		resp.Categories = categories
		resp.Cache = CacheInfo{Hit: true, Source: SourceSupabase}
		s.metrics.IncrementPlacesLookup(SourceSupabase)
		return resp, nil
	}

	categories, err := s.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	s.toMemory(key, categories)
	s.toRedis(ctx, key, categories)
	s.toSupabase(ctx, key, req, categories)
	resp.Categories = categories
	resp.Cache = CacheInfo{Hit: false, Source: SourceGoogle}
	s.metrics.IncrementPlacesLookup(SourceGoogle)
	return resp, nil
}

// fetch runs one nearby search per place type. A place listed under several types is
// kept only in the first of them.
func (s *Service) fetch(ctx context.Context, req Request) (map[string][]google.Place, error) {
	types := supercats[req.Supercat]
	results := make([][]google.Place, len(types))

	grp, grpCtx := errgroup.WithContext(ctx)
	for i, placeType := range types {
		grp.Go(func() error {
			found, err := s.searcher.NearbySearch(grpCtx, *req.Center, uint(req.Radius), placeType)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	categories := make(map[string][]google.Place, len(types))
	for i, placeType := range types {
		unique := make([]google.Place, 0, len(results[i]))
		for _, place := range results[i] {
			if place.PlaceID != "" {
				if seen[place.PlaceID] {
					continue
				}
				seen[place.PlaceID] = true
			}
			unique = append(unique, place)
		}
		categories[placeType] = unique
	}
	return categories, nil
}

func (s *Service) fromMemory(key string) (map[string][]google.Place, bool) {
	value, err := s.memory.Get(key)
	if err != nil {
		return nil, false
	}
	categories, ok := value.(map[string][]google.Place)
	return categories, ok
}

func (s *Service) toMemory(key string, categories map[string][]google.Place) {
	if err := s.memory.Set(key, categories); err != nil {
		slog.Warn("Failed to cache places in memory", "key", key, "error", err)
	}
}

func (s *Service) fromRedis(ctx context.Context, key string) (map[string][]google.Place, bool) {
	if s.redis == nil {
		return nil, false
	}
	data, err := s.redis.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Failed to read places from redis", "key", key, "error", err)
		}
		return nil, false
	}
	var categories map[string][]google.Place
	if err := json.Unmarshal(data, &categories); err != nil {
		slog.Warn("Discarding corrupt places entry in redis", "key", key, "error", err)
		return nil, false
	}
	return categories, true
}

func (s *Service) toRedis(ctx context.Context, key string, categories map[string][]google.Place) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(categories)
	if err != nil {
		slog.Error("Failed to encode places", "error", err)
		return
	}
	if err := s.redis.Set(ctx, redisPrefix+key, data, s.ttl).Err(); err != nil {
		slog.Warn("Failed to write places to redis", "key", key, "error", err)
	}
}

func (s *Service) fromSupabase(ctx context.Context, key string) (map[string][]google.Place, bool) {
	if !s.db.Enabled() {
		return nil, false
	}
	var rows []cacheRow
	if err := s.db.Select(ctx, supabaseTable, map[string]string{"cache_key": key}, &rows); err != nil {
		slog.Warn("Failed to read places from supabase", "key", key, "error", err)
		return nil, false
	}
	if len(rows) == 0 || time.Since(rows[0].UpdatedAt) > s.ttl {
		return nil, false
	}
	return rows[0].Categories, true
}

func (s *Service) toSupabase(ctx context.Context, key string, req Request, categories map[string][]google.Place) {
	if !s.db.Enabled() {
		return
	}
	row := cacheRow{
		CacheKey:   key,
		Supercat:   req.Supercat,
		Lat:        utils.Round(req.Center.Lat, 3),
		Lng:        utils.Round(req.Center.Lng, 3),
		Radius:     req.Radius,
		Categories: categories,
		UpdatedAt:  time.Now().UTC(),
	}
	if req.TripID != "" {
		row.TripID = &req.TripID
	}
	if req.TripName != "" {
		row.TripName = &req.TripName
	}
	if err := s.db.Upsert(ctx, supabaseTable, []cacheRow{row}, "cache_key"); err != nil {
		slog.Warn("Failed to write places to supabase", "key", key, "error", err)
	}
}
