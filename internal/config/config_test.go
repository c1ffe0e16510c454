package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/USA-RedDragon/camper-server/cmd"
	"github.com/USA-RedDragon/camper-server/internal/config"
)

//nolint:golint,gochecknoglobals
var requiredFlags = []string{
	"--google.server_api_key", "dummy",
}

func TestExampleConfig(t *testing.T) {
	t.Parallel()
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	err := cmd.ParseFlags([]string{"--config", "../../config.example.yaml"})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if testConfig.Planner.DefaultKmPerDay != 300 {
		t.Errorf("unexpected default km per day: %f", testConfig.Planner.DefaultKmPerDay)
	}
	if testConfig.GeocodeCache.TTL != 0 {
		t.Errorf("unexpected geocode cache TTL: %s", testConfig.GeocodeCache.TTL)
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	err := cmd.ParseFlags(append([]string{"--config", ""}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if testConfig.Persistence.Database.Driver != config.DatabaseDriverSQLite {
		t.Errorf("unexpected database driver: %s", testConfig.Persistence.Database.Driver)
	}
	if testConfig.Persistence.Storage.Driver != config.StorageDriverFilesystem {
		t.Errorf("unexpected storage driver: %s", testConfig.Persistence.Storage.Driver)
	}
	if testConfig.Places.CacheTTL != 24*time.Hour {
		t.Errorf("unexpected places cache TTL: %s", testConfig.Places.CacheTTL)
	}
	if testConfig.Logs.ParallelWriters != 2 {
		t.Errorf("unexpected parallel writers: %d", testConfig.Logs.ParallelWriters)
	}
}

func TestMissingOLTPEndpoint(t *testing.T) {
	t.Parallel()

	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	err := cmd.ParseFlags(append([]string{"--config", "", "--http.tracing.enabled", "true"}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); !errors.Is(err, config.ErrOTLPEndpointRequired) {
		t.Errorf("unexpected error: %v", err)
	}

	err = cmd.ParseFlags(append([]string{"--http.tracing.enabled", "true", "--http.tracing.otlp_endpoint", "dummy"}, requiredFlags...))
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err = config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGoogleKeys(t *testing.T) {
	t.Parallel()
	baseCmd := cmd.NewCommand("testing", "deadbeef")
	baseCmd.SetContext(context.Background())
	err := baseCmd.ParseFlags([]string{"--config", ""})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err := config.LoadConfig(baseCmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); !errors.Is(err, config.ErrGoogleAPIKeyRequired) {
		t.Errorf("unexpected error: %v", err)
	}

	baseCmd = cmd.NewCommand("testing", "deadbeef")
	baseCmd.SetContext(context.Background())
	err = baseCmd.ParseFlags([]string{"--config", "", "--google.public_api_key", "public"})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err = config.LoadConfig(baseCmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := testConfig.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if testConfig.Google.APIKey() != "public" {
		t.Errorf("unexpected API key: %s", testConfig.Google.APIKey())
	}

	baseCmd = cmd.NewCommand("testing", "deadbeef")
	baseCmd.SetContext(context.Background())
	err = baseCmd.ParseFlags([]string{"--config", "", "--google.public_api_key", "public", "--google.server_api_key", "server"})
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	testConfig, err = config.LoadConfig(baseCmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if testConfig.Google.APIKey() != "server" {
		t.Errorf("unexpected API key: %s", testConfig.Google.APIKey())
	}
}

func TestValidationErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		flags []string
		err   error
	}{
		{"postgres without host", []string{"--persistence.database.driver", "postgres"}, config.ErrDBHostRequired},
		{"bad database driver", []string{"--persistence.database.driver", "oracle"}, config.ErrInvalidDatabaseDriver},
		{"bad storage driver", []string{"--persistence.storage.driver", "ftp"}, config.ErrInvalidStorageDriver},
		{"s3 without bucket", []string{"--persistence.storage.driver", "s3", "--persistence.storage.s3.region", "eu-west-1"}, config.ErrS3BucketRequired},
		{"s3 without region", []string{"--persistence.storage.driver", "s3", "--persistence.storage.s3.bucket", "trips"}, config.ErrS3RegionRequired},
		{"supabase without key", []string{"--supabase.url", "https://example.supabase.co"}, config.ErrSupabaseAnonKeyRequired},
		{"sentinel without master", []string{"--redis.enabled", "true", "--redis.sentinel.enabled", "true"}, config.ErrRedisSentinelRequired},
		{"nats without url", []string{"--nats.enabled", "true"}, config.ErrNATSURLRequired},
		{"negative km per day", []string{"--planner.default_km_per_day", "-5"}, config.ErrInvalidKmPerDay},
		{"dev server without command", []string{"--devserver.enabled", "true"}, config.ErrDevServerCommandRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cmd := cmd.NewCommand("testing", "deadbeef")
			cmd.SetContext(context.Background())
			err := cmd.ParseFlags(append(append([]string{"--config", ""}, requiredFlags...), tc.flags...))
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			testConfig, err := config.LoadConfig(cmd)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err := testConfig.Validate(); !errors.Is(err, tc.err) {
				t.Errorf("expected %v, got %v", tc.err, err)
			}
		})
	}
}

// Parallel tests are not allowed with t.Setenv
//
//nolint:golint,paralleltest
func TestEnvConfig(t *testing.T) {
	cmd := cmd.NewCommand("testing", "deadbeef")
	cmd.SetContext(context.Background())
	t.Setenv("CONFIG", "")
	t.Setenv("HTTP__PORT", "8087")
	t.Setenv("HTTP__METRICS__PORT", "8088")
	t.Setenv("HTTP__METRICS__IPV4_HOST", "0.0.0.0")
	t.Setenv("HTTP__METRICS__IPV6_HOST", "::0")
	t.Setenv("HTTP__IPV4_HOST", "127.0.0.1")
	t.Setenv("HTTP__IPV6_HOST", "::1")
	t.Setenv("HTTP__PPROF__ENABLED", "true")
	t.Setenv("HTTP__TRUSTED_PROXIES", "127.0.0.1,127.0.0.2")
	t.Setenv("HTTP__METRICS__ENABLED", "true")
	t.Setenv("HTTP__TRACING__ENABLED", "true")
	t.Setenv("HTTP__TRACING__OTLP_ENDPOINT", "http://localhost:4317")
	t.Setenv("HTTP__CORS_HOSTS", "http://localhost:8080,http://localhost:8081")
	t.Setenv("PERSISTENCE__DATABASE__DRIVER", "postgres")
	t.Setenv("PERSISTENCE__DATABASE__DATABASE", "camper")
	t.Setenv("PERSISTENCE__DATABASE__HOST", "host")
	t.Setenv("PERSISTENCE__DATABASE__PORT", "5432")
	t.Setenv("PERSISTENCE__DATABASE__USERNAME", "user")
	t.Setenv("PERSISTENCE__DATABASE__PASSWORD", "password")
	t.Setenv("PERSISTENCE__DATABASE__EXTRA_PARAMETERS", "sslmode=require")
	t.Setenv("PERSISTENCE__STORAGE__DRIVER", "s3")
	t.Setenv("PERSISTENCE__STORAGE__S3__REGION", "eu-west-1")
	t.Setenv("PERSISTENCE__STORAGE__S3__BUCKET", "camper-trips")
	t.Setenv("GOOGLE__SERVER_API_KEY", "serverkey")
	t.Setenv("SUPABASE__URL", "https://example.supabase.co")
	t.Setenv("SUPABASE__ANON_KEY", "anon")
	t.Setenv("SUPABASE__JWT_SECRET", "secret")
	t.Setenv("REDIS__ENABLED", "true")
	t.Setenv("REDIS__ADDRESS", "localhost:6379")
	t.Setenv("REDIS__USERNAME", "user123")
	t.Setenv("REDIS__PASSWORD", "password")
	t.Setenv("REDIS__DATABASE", "0")
	t.Setenv("REDIS__SENTINEL__ENABLED", "true")
	t.Setenv("REDIS__SENTINEL__ADDRESSES", "localhost:26379,localhost:26380")
	t.Setenv("REDIS__SENTINEL__MASTER_NAME", "master")
	t.Setenv("REDIS__SENTINEL__USERNAME", "user")
	t.Setenv("REDIS__SENTINEL__PASSWORD", "password")
	t.Setenv("NATS__ENABLED", "true")
	t.Setenv("NATS__URL", "nats://localhost:4222")
	t.Setenv("PLANNER__DEFAULT_KM_PER_DAY", "450")
	t.Setenv("GEOCODE_CACHE__TTL", "720h")
	t.Setenv("DEVSERVER__ENABLED", "true")
	t.Setenv("DEVSERVER__COMMAND", "npm,run,dev")

	config, err := config.LoadConfig(cmd)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if config.HTTP.Port != 8087 {
		t.Errorf("unexpected HTTP port: %d", config.HTTP.Port)
	}
	if config.HTTP.Metrics.Port != 8088 {
		t.Errorf("unexpected HTTP metrics port: %d", config.HTTP.Metrics.Port)
	}
	if config.HTTP.Metrics.IPV4Host != "0.0.0.0" {
		t.Errorf("unexpected HTTP metrics IPv4 host: %s", config.HTTP.Metrics.IPV4Host)
	}
	if config.HTTP.Metrics.IPV6Host != "::0" {
		t.Errorf("unexpected HTTP metrics IPv6 host: %s", config.HTTP.Metrics.IPV6Host)
	}
	if config.HTTP.IPV4Host != "127.0.0.1" {
		t.Errorf("unexpected HTTP IPv4 host: %s", config.HTTP.IPV4Host)
	}
	if config.HTTP.IPV6Host != "::1" {
		t.Errorf("unexpected HTTP IPv6 host: %s", config.HTTP.IPV6Host)
	}
	if !config.HTTP.PProf.Enabled {
		t.Error("unexpected HTTP pprof enabled")
	}
	if len(config.HTTP.TrustedProxies) != 2 {
		t.Errorf("unexpected HTTP trusted proxies: %v", config.HTTP.TrustedProxies)
	}
	if !config.HTTP.Metrics.Enabled {
		t.Error("unexpected HTTP metrics enabled")
	}
	if !config.HTTP.Tracing.Enabled {
		t.Error("unexpected HTTP tracing enabled")
	}
	if config.HTTP.Tracing.OTLPEndpoint != "http://localhost:4317" {
		t.Errorf("unexpected HTTP tracing OTLP endpoint: %s", config.HTTP.Tracing.OTLPEndpoint)
	}
	if len(config.HTTP.CORSHosts) != 2 {
		t.Errorf("unexpected HTTP CORS hosts: %v", config.HTTP.CORSHosts)
	}
	if config.Persistence.Database.Driver != "postgres" {
		t.Errorf("unexpected persistence driver: %s", config.Persistence.Database.Driver)
	}
	if config.Persistence.Database.Host != "host" {
		t.Errorf("unexpected persistence host: %s", config.Persistence.Database.Host)
	}
	if config.Persistence.Database.Port != 5432 {
		t.Errorf("unexpected persistence port: %d", config.Persistence.Database.Port)
	}
	if config.Persistence.Database.ExtraParameters != "sslmode=require" {
		t.Errorf("unexpected persistence extra parameters: %s", config.Persistence.Database.ExtraParameters)
	}
	if config.Persistence.Storage.Driver != "s3" {
		t.Errorf("unexpected storage driver: %s", config.Persistence.Storage.Driver)
	}
	if config.Persistence.Storage.S3.Bucket != "camper-trips" {
		t.Errorf("unexpected S3 bucket: %s", config.Persistence.Storage.S3.Bucket)
	}
	if config.Google.ServerAPIKey != "serverkey" {
		t.Errorf("unexpected Google server key: %s", config.Google.ServerAPIKey)
	}
	if !config.Supabase.Enabled() {
		t.Error("unexpected Supabase disabled")
	}
	if config.Supabase.JWTSecret != "secret" {
		t.Errorf("unexpected Supabase JWT secret: %s", config.Supabase.JWTSecret)
	}
	if !config.Redis.Enabled {
		t.Error("unexpected Redis enabled")
	}
	if config.Redis.Username != "user123" {
		t.Errorf("unexpected Redis username: %s", config.Redis.Username)
	}
	if len(config.Redis.Sentinel.Addresses) != 2 {
		t.Errorf("unexpected Redis sentinel hosts: %v", config.Redis.Sentinel.Addresses)
	}
	if config.Redis.Sentinel.MasterName != "master" {
		t.Errorf("unexpected Redis sentinel master: %s", config.Redis.Sentinel.MasterName)
	}
	if !config.NATS.Enabled || config.NATS.URL != "nats://localhost:4222" {
		t.Errorf("unexpected NATS config: %+v", config.NATS)
	}
	if config.Planner.DefaultKmPerDay != 450 {
		t.Errorf("unexpected default km per day: %f", config.Planner.DefaultKmPerDay)
	}
	if config.GeocodeCache.TTL != 720*time.Hour {
		t.Errorf("unexpected geocode cache TTL: %s", config.GeocodeCache.TTL)
	}
	if len(config.DevServer.Command) != 3 || config.DevServer.Command[0] != "npm" {
		t.Errorf("unexpected dev server command: %v", config.DevServer.Command)
	}
}
