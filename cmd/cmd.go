package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/USA-RedDragon/camper-server/internal/config"
	"github.com/USA-RedDragon/camper-server/internal/db"
	"github.com/USA-RedDragon/camper-server/internal/devserver"
	"github.com/USA-RedDragon/camper-server/internal/events"
	"github.com/USA-RedDragon/camper-server/internal/geocache"
	"github.com/USA-RedDragon/camper-server/internal/google"
	"github.com/USA-RedDragon/camper-server/internal/metrics"
	"github.com/USA-RedDragon/camper-server/internal/places"
	"github.com/USA-RedDragon/camper-server/internal/planner"
	"github.com/USA-RedDragon/camper-server/internal/searchindex"
	"github.com/USA-RedDragon/camper-server/internal/server"
	"github.com/USA-RedDragon/camper-server/internal/storage"
	"github.com/USA-RedDragon/camper-server/internal/supabase"
	"github.com/USA-RedDragon/camper-server/internal/triplog"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/ztrue/shutdown"
	"golang.org/x/sync/errgroup"
)

func NewCommand(version, commit string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "camper-server",
		Version: fmt.Sprintf("%s - %s", version, commit),
		Annotations: map[string]string{
			"version": version,
			"commit":  commit,
		},
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(cmd)
	cmd.AddCommand(newSearchIndexCommand())
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	slog.Info("camper-server", "version", cmd.Annotations["version"], "commit", cmd.Annotations["commit"])

	config, err := config.LoadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx := cmd.Context()

	metrics := metrics.NewMetrics()

	store, err := storage.NewStorage(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()
	logStore, err := store.Sub(config.Logs.Prefix)
	if err != nil {
		return fmt.Errorf("failed to open log storage: %w", err)
	}

	var redis *redis.Client
	if config.Redis.Enabled {
		redis = connectRedis(config)
		defer redis.Close()
	}

	db, err := db.MakeDB(config)
	if err != nil {
		return fmt.Errorf("failed to make database: %w", err)
	}
	slog.Info("Database connection established")

	googleClient, err := google.NewClient(config, metrics)
	if err != nil {
		return fmt.Errorf("failed to create Google Maps client: %w", err)
	}

	cache, err := geocache.Load(ctx, store, config.GeocodeCache)
	if err != nil {
		return fmt.Errorf("failed to load geocoding cache: %w", err)
	}
	geocoder := geocache.NewCachedGeocoder(cache, googleClient, metrics)

	sb := supabase.NewClient(config.Supabase)
	if sb.Enabled() {
		slog.Info("Supabase persistence enabled", "url", config.Supabase.URL)
	}

	publisher, err := connectEvents(config, metrics)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	tripLogs := triplog.NewQueue(logStore, config.Logs, metrics)
	go tripLogs.Start()

	var supervisor *devserver.Supervisor
	if config.DevServer.Enabled {
		supervisor = devserver.NewSupervisor(config.DevServer, metrics)
	}

	slog.Info("Starting HTTP server")
	server := server.NewServer(config, server.Dependencies{
		DB:        db,
		Metrics:   metrics,
		Planner:   planner.NewPlanner(googleClient, geocoder, config.Planner),
		Geocoder:  geocoder,
		Places:    places.NewService(googleClient, config.Places, redis, sb, metrics),
		TripLogs:  tripLogs,
		DevServer: supervisor,
		Supabase:  sb,
		Events:    publisher,
		Search:    searchindex.NewLoader(config.Search.IndexPath),
	})
	err = server.Start()
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	stop := func(_ os.Signal) {
		slog.Info("Shutting down")

		errGrp := errgroup.Group{}

		errGrp.Go(func() error {
			return server.Stop()
		})

		if supervisor != nil {
			errGrp.Go(func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				err := supervisor.Stop(ctx)
				if errors.Is(err, devserver.ErrNotRunning) {
					return nil
				}
				return err
			})
		}

		err := errGrp.Wait()
		if err != nil {
			slog.Error("Shutdown error", "error", err.Error())
		}

		// Requests are finished, flush what they queued
		tripLogs.Stop()
		if err := cache.Flush(context.Background()); err != nil {
			slog.Error("Failed to flush geocoding cache", "error", err)
		}
		publisher.Close()
		slog.Info("Shutdown complete")
	}

	if cmd.Annotations["version"] == "testing" {
		doneChannel := make(chan struct{})
		go func() {
			slog.Info("Sleeping for 5 seconds")
			time.Sleep(5 * time.Second)
			slog.Info("Sending SIGTERM")
			stop(syscall.SIGTERM)
			doneChannel <- struct{}{}
		}()
		<-doneChannel
	} else {
		shutdown.AddWithParam(stop)
		shutdown.Listen(syscall.SIGINT, syscall.SIGKILL, syscall.SIGTERM, syscall.SIGQUIT)
	}

	return nil
}

func connectRedis(config *config.Config) *redis.Client {
	if config.Redis.Sentinel.Enabled {
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       config.Redis.Sentinel.MasterName,
			SentinelAddrs:    config.Redis.Sentinel.Addresses,
			SentinelUsername: config.Redis.Sentinel.Username,
			SentinelPassword: config.Redis.Sentinel.Password,
			Password:         config.Redis.Password,
			Username:         config.Redis.Username,
			DB:               config.Redis.Database,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:     config.Redis.Address,
		Username: config.Redis.Username,
		Password: config.Redis.Password,
		DB:       config.Redis.Database,
	})
}

// connectEvents publishes to NATS when enabled. Otherwise events stay in process and are
// only logged.
func connectEvents(config *config.Config, metrics *metrics.Metrics) (events.Publisher, error) {
	if config.NATS.Enabled {
		publisher, err := events.Connect(config.NATS, metrics)
		if err != nil {
			return nil, err
		}
		slog.Info("Publishing events to NATS", "url", config.NATS.URL, "prefix", config.NATS.SubjectPrefix)
		return publisher, nil
	}
	bus := events.NewEventBus()
	go func() {
		for event := range bus.GetChannel() {
			slog.Debug("Event", "type", event.GetType(), "event", event)
		}
	}()
	return bus, nil
}
