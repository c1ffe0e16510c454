package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP         HTTP         `json:"http"`
	Persistence  Persistence  `json:"persistence"`
	Google       Google       `json:"google"`
	Supabase     Supabase     `json:"supabase"`
	Redis        Redis        `json:"redis"`
	NATS         NATS         `json:"nats"`
	Planner      Planner      `json:"planner"`
	GeocodeCache GeocodeCache `json:"geocode_cache" yaml:"geocode_cache"`
	Places       Places       `json:"places"`
	Logs         Logs         `json:"logs"`
	DevServer    DevServer    `json:"devserver" yaml:"devserver"`
	Search       Search       `json:"search"`
}

// Google holds the Maps Platform keys. The server key is preferred, the public
// (browser) key is only used when no server key is configured.
type Google struct {
	ServerAPIKey string `json:"server_api_key" yaml:"server_api_key"`
	PublicAPIKey string `json:"public_api_key" yaml:"public_api_key"`
}

func (g Google) APIKey() string {
	if g.ServerAPIKey != "" {
		return g.ServerAPIKey
	}
	return g.PublicAPIKey
}

type Supabase struct {
	URL        string `json:"url"`
	AnonKey    string `json:"anon_key" yaml:"anon_key"`
	ServiceKey string `json:"service_key" yaml:"service_key"`
	JWTSecret  string `json:"jwt_secret" yaml:"jwt_secret"`
}

func (s Supabase) Enabled() bool {
	return s.URL != ""
}

type Sentinel struct {
	Enabled    bool     `json:"enabled"`
	Addresses  []string `json:"addresses"`
	MasterName string   `json:"master_name" yaml:"master_name"`
	Username   string   `json:"username"`
	Password   string   `json:"password"`
}

type Redis struct {
	Enabled  bool     `json:"enabled"`
	Address  string   `json:"address"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Database int      `json:"database"`
	Sentinel Sentinel `json:"sentinel"`
}

type NATS struct {
	Enabled       bool   `json:"enabled"`
	URL           string `json:"url"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
}

type Planner struct {
	DefaultKmPerDay float64 `json:"default_km_per_day" yaml:"default_km_per_day"`
	// Liters per 100 km
	FuelConsumption float64 `json:"fuel_consumption" yaml:"fuel_consumption"`
	FuelPrice       float64 `json:"fuel_price" yaml:"fuel_price"`
	Currency        string  `json:"currency"`
}

type GeocodeCache struct {
	File string `json:"file"`
	// Zero means entries never expire
	TTL time.Duration `json:"ttl"`
}

type Places struct {
	CacheSize int           `json:"cache_size" yaml:"cache_size"`
	CacheTTL  time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

type Logs struct {
	Prefix          string `json:"prefix"`
	ParallelWriters uint   `json:"parallel_writers" yaml:"parallel_writers"`
}

type DevServer struct {
	Enabled   bool     `json:"enabled"`
	Command   []string `json:"command"`
	Directory string   `json:"directory"`
	HealthURL string   `json:"health_url" yaml:"health_url"`
}

type Search struct {
	IndexPath string `json:"index_path" yaml:"index_path"`
}

type Persistence struct {
	Database Database `json:"database"`
	Storage  Storage  `json:"storage"`
}

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

type Database struct {
	Driver          DatabaseDriver `json:"driver"`
	Database        string         `json:"database"`
	Username        string         `json:"username"`
	Password        string         `json:"password"`
	Host            string         `json:"host"`
	Port            uint16         `json:"port"`
	ExtraParameters string         `json:"extra_parameters" yaml:"extra_parameters"`
}

type StorageDriver string

const (
	StorageDriverFilesystem StorageDriver = "filesystem"
	StorageDriverS3         StorageDriver = "s3"
)

type FilesystemOptions struct {
	Directory string `json:"directory"`
}

type S3Options struct {
	Region   string `json:"region"`
	Bucket   string `json:"bucket"`
	Endpoint string `json:"endpoint"`
}

type Storage struct {
	Driver     StorageDriver     `json:"driver"`
	Filesystem FilesystemOptions `json:"filesystem"`
	S3         S3Options         `json:"s3"`
}

type HTTPListener struct {
	IPV4Host string `json:"ipv4_host" yaml:"ipv4_host"`
	IPV6Host string `json:"ipv6_host" yaml:"ipv6_host"`
	Port     uint16 `json:"port"`
}

type Tracing struct {
	Enabled      bool   `json:"enabled"`
	OTLPEndpoint string `json:"otlp_endpoint" yaml:"otlp_endpoint"`
}

type PProf struct {
	Enabled bool `json:"enabled"`
}

type Metrics struct {
	HTTPListener `yaml:",inline"`
	Enabled      bool `json:"enabled"`
}

type HTTP struct {
	HTTPListener   `yaml:",inline"`
	Tracing        Tracing  `json:"tracing"`
	PProf          PProf    `json:"pprof"`
	TrustedProxies []string `json:"trusted_proxies" yaml:"trusted_proxies"`
	Metrics        Metrics  `json:"metrics"`
	CORSHosts      []string `json:"cors_hosts" yaml:"cors_hosts"`
}

//nolint:golint,gochecknoglobals
var (
	ConfigFileKey                        = "config"
	HTTPIPV4HostKey                      = "http.ipv4_host"
	HTTPIPV6HostKey                      = "http.ipv6_host"
	HTTPPortKey                          = "http.port"
	HTTPTracingEnabledKey                = "http.tracing.enabled"
	HTTPTracingOTLPEndKey                = "http.tracing.otlp_endpoint"
	HTTPPProfEnabledKey                  = "http.pprof.enabled"
	HTTPTrustedProxiesKey                = "http.trusted_proxies"
	HTTPMetricsEnabledKey                = "http.metrics.enabled"
	HTTPMetricsIPV4HostKey               = "http.metrics.ipv4_host"
	HTTPMetricsIPV6HostKey               = "http.metrics.ipv6_host"
	HTTPMetricsPortKey                   = "http.metrics.port"
	HTTPCORSHostsKey                     = "http.cors_hosts"
	PersistenceDatabaseDriverKey         = "persistence.database.driver"
	PersistenceDatabaseDatabaseKey       = "persistence.database.database"
	PersistenceDatabaseUsernameKey       = "persistence.database.username"
	PersistenceDatabasePasswordKey       = "persistence.database.password"
	PersistenceDatabaseHostKey           = "persistence.database.host"
	PersistenceDatabasePortKey           = "persistence.database.port"
	PersistenceDatabaseExtraParamsKey    = "persistence.database.extra_parameters"
	PersistenceStorageDriverKey          = "persistence.storage.driver"
	PersistenceStorageDirectoryKey       = "persistence.storage.filesystem.directory"
	PersistenceStorageS3RegionKey        = "persistence.storage.s3.region"
	PersistenceStorageS3BucketKey        = "persistence.storage.s3.bucket"
	PersistenceStorageS3EndpointKey      = "persistence.storage.s3.endpoint"
	GoogleServerAPIKeyKey                = "google.server_api_key"
	GooglePublicAPIKeyKey                = "google.public_api_key"
	SupabaseURLKey                       = "supabase.url"
	SupabaseAnonKeyKey                   = "supabase.anon_key"
	SupabaseServiceKeyKey                = "supabase.service_key"
	SupabaseJWTSecretKey                 = "supabase.jwt_secret"
	RedisEnabledKey                      = "redis.enabled"
	RedisAddressKey                      = "redis.address"
	RedisUsernameKey                     = "redis.username"
	RedisPasswordKey                     = "redis.password"
	RedisDatabaseKey                     = "redis.database"
	RedisSentinelEnabledKey              = "redis.sentinel.enabled"
	RedisSentinelAddressesKey            = "redis.sentinel.addresses"
	RedisSentinelMasterNameKey           = "redis.sentinel.master_name"
	RedisSentinelUsernameKey             = "redis.sentinel.username"
	RedisSentinelPasswordKey             = "redis.sentinel.password"
	NATSEnabledKey                       = "nats.enabled"
	NATSURLKey                           = "nats.url"
	NATSSubjectPrefixKey                 = "nats.subject_prefix"
	PlannerDefaultKmPerDayKey            = "planner.default_km_per_day"
	PlannerFuelConsumptionKey            = "planner.fuel_consumption"
	PlannerFuelPriceKey                  = "planner.fuel_price"
	PlannerCurrencyKey                   = "planner.currency"
	GeocodeCacheFileKey                  = "geocode_cache.file"
	GeocodeCacheTTLKey                   = "geocode_cache.ttl"
	PlacesCacheSizeKey                   = "places.cache_size"
	PlacesCacheTTLKey                    = "places.cache_ttl"
	LogsPrefixKey                        = "logs.prefix"
	LogsParallelWritersKey               = "logs.parallel_writers"
	DevServerEnabledKey                  = "devserver.enabled"
	DevServerCommandKey                  = "devserver.command"
	DevServerDirectoryKey                = "devserver.directory"
	DevServerHealthURLKey                = "devserver.health_url"
	SearchIndexPathKey                   = "search.index_path"
)

const (
	DefaultConfigPath                  = "config.yaml"
	DefaultHTTPIPV4Host                = "0.0.0.0"
	DefaultHTTPIPV6Host                = "::"
	DefaultHTTPPort                    = 8080
	DefaultHTTPMetricsIPV4Host         = "127.0.0.1"
	DefaultHTTPMetricsIPV6Host         = "::1"
	DefaultHTTPMetricsPort             = 8081
	DefaultPersistenceDatabaseDriver   = DatabaseDriverSQLite
	DefaultPersistenceDatabaseDatabase = "camper.db"
	DefaultPersistenceStorageDriver    = StorageDriverFilesystem
	DefaultPersistenceStorageDirectory = "data/"
	DefaultRedisAddress                = "localhost:6379"
	DefaultNATSSubjectPrefix           = "camper"
	DefaultPlannerKmPerDay             = 300
	DefaultPlannerFuelConsumption      = 12
	DefaultPlannerFuelPrice            = 1.6
	DefaultPlannerCurrency             = "EUR"
	DefaultGeocodeCacheFile            = "geocode-cache.json"
	DefaultPlacesCacheSize             = 1000
	DefaultPlacesCacheTTL              = 24 * time.Hour
	DefaultLogsPrefix                  = "logs"
	DefaultLogsParallelWriters         = 2
	DefaultDevServerHealthURL          = "http://localhost:3000"
	DefaultSearchIndexPath             = "search-index.json"
)

func RegisterFlags(cmd *cobra.Command) {
	cmd.Flags().StringP(ConfigFileKey, "c", DefaultConfigPath, "Config file path")
	cmd.Flags().String(HTTPIPV4HostKey, DefaultHTTPIPV4Host, "HTTP server IPv4 host")
	cmd.Flags().String(HTTPIPV6HostKey, DefaultHTTPIPV6Host, "HTTP server IPv6 host")
	cmd.Flags().Uint16(HTTPPortKey, DefaultHTTPPort, "HTTP server port")
	cmd.Flags().Bool(HTTPTracingEnabledKey, false, "Enable Open Telemetry tracing")
	cmd.Flags().String(HTTPTracingOTLPEndKey, "", "Open Telemetry endpoint")
	cmd.Flags().Bool(HTTPPProfEnabledKey, false, "Enable pprof")
	cmd.Flags().StringSlice(HTTPTrustedProxiesKey, []string{}, "Comma-separated list of trusted proxies")
	cmd.Flags().Bool(HTTPMetricsEnabledKey, false, "Enable metrics server")
	cmd.Flags().String(HTTPMetricsIPV4HostKey, DefaultHTTPMetricsIPV4Host, "Metrics server IPv4 host")
	cmd.Flags().String(HTTPMetricsIPV6HostKey, DefaultHTTPMetricsIPV6Host, "Metrics server IPv6 host")
	cmd.Flags().Uint16(HTTPMetricsPortKey, DefaultHTTPMetricsPort, "Metrics server port")
	cmd.Flags().StringSlice(HTTPCORSHostsKey, []string{}, "Comma-separated list of CORS hosts")
	cmd.Flags().String(PersistenceDatabaseDriverKey, string(DefaultPersistenceDatabaseDriver), "Database driver")
	cmd.Flags().String(PersistenceDatabaseDatabaseKey, DefaultPersistenceDatabaseDatabase, "Database name or path")
	cmd.Flags().String(PersistenceDatabaseUsernameKey, "", "Database username")
	cmd.Flags().String(PersistenceDatabasePasswordKey, "", "Database password")
	cmd.Flags().String(PersistenceDatabaseHostKey, "", "Database host")
	cmd.Flags().Uint16(PersistenceDatabasePortKey, 0, "Database port")
	cmd.Flags().String(PersistenceDatabaseExtraParamsKey, "", "Database extra parameters")
	cmd.Flags().String(PersistenceStorageDriverKey, string(DefaultPersistenceStorageDriver), "Storage driver (filesystem or s3)")
	cmd.Flags().String(PersistenceStorageDirectoryKey, DefaultPersistenceStorageDirectory, "Storage directory for the filesystem driver")
	cmd.Flags().String(PersistenceStorageS3RegionKey, "", "S3 region")
	cmd.Flags().String(PersistenceStorageS3BucketKey, "", "S3 bucket")
	cmd.Flags().String(PersistenceStorageS3EndpointKey, "", "S3 endpoint override")
	cmd.Flags().String(GoogleServerAPIKeyKey, "", "Google Maps server API key")
	cmd.Flags().String(GooglePublicAPIKeyKey, "", "Google Maps public API key")
	cmd.Flags().String(SupabaseURLKey, "", "Supabase project URL")
	cmd.Flags().String(SupabaseAnonKeyKey, "", "Supabase anon key")
	cmd.Flags().String(SupabaseServiceKeyKey, "", "Supabase service role key")
	cmd.Flags().String(SupabaseJWTSecretKey, "", "Supabase JWT secret used to verify user tokens")
	cmd.Flags().Bool(RedisEnabledKey, false, "Enable Redis")
	cmd.Flags().String(RedisAddressKey, DefaultRedisAddress, "Redis address")
	cmd.Flags().String(RedisUsernameKey, "", "Redis username")
	cmd.Flags().String(RedisPasswordKey, "", "Redis password")
	cmd.Flags().Int(RedisDatabaseKey, 0, "Redis database")
	cmd.Flags().Bool(RedisSentinelEnabledKey, false, "Enable Redis sentinel")
	cmd.Flags().StringSlice(RedisSentinelAddressesKey, []string{}, "Comma-separated list of Redis sentinel addresses")
	cmd.Flags().String(RedisSentinelMasterNameKey, "", "Redis sentinel master name")
	cmd.Flags().String(RedisSentinelUsernameKey, "", "Redis sentinel username")
	cmd.Flags().String(RedisSentinelPasswordKey, "", "Redis sentinel password")
	cmd.Flags().Bool(NATSEnabledKey, false, "Publish trip events to NATS")
	cmd.Flags().String(NATSURLKey, "", "NATS server URL")
	cmd.Flags().String(NATSSubjectPrefixKey, DefaultNATSSubjectPrefix, "NATS subject prefix")
	cmd.Flags().Float64(PlannerDefaultKmPerDayKey, DefaultPlannerKmPerDay, "Default maximum driving distance per day in km")
	cmd.Flags().Float64(PlannerFuelConsumptionKey, DefaultPlannerFuelConsumption, "Fuel consumption in liters per 100 km")
	cmd.Flags().Float64(PlannerFuelPriceKey, DefaultPlannerFuelPrice, "Fuel price per liter")
	cmd.Flags().String(PlannerCurrencyKey, DefaultPlannerCurrency, "Currency of the fuel price")
	cmd.Flags().String(GeocodeCacheFileKey, DefaultGeocodeCacheFile, "Geocoding cache file name inside the storage")
	cmd.Flags().Duration(GeocodeCacheTTLKey, 0, "Geocoding cache entry lifetime (0 never expires)")
	cmd.Flags().Int(PlacesCacheSizeKey, DefaultPlacesCacheSize, "In-memory places cache size")
	cmd.Flags().Duration(PlacesCacheTTLKey, DefaultPlacesCacheTTL, "Places cache entry lifetime")
	cmd.Flags().String(LogsPrefixKey, DefaultLogsPrefix, "Storage prefix for trip logs")
	cmd.Flags().Uint(LogsParallelWritersKey, DefaultLogsParallelWriters, "Number of parallel trip log writers")
	cmd.Flags().Bool(DevServerEnabledKey, false, "Enable the development server control endpoint")
	cmd.Flags().StringSlice(DevServerCommandKey, []string{}, "Development server command and arguments")
	cmd.Flags().String(DevServerDirectoryKey, "", "Development server working directory")
	cmd.Flags().String(DevServerHealthURLKey, DefaultDevServerHealthURL, "Development server health check URL")
	cmd.Flags().String(SearchIndexPathKey, DefaultSearchIndexPath, "Documentation search index path")
}

var (
	ErrGoogleAPIKeyRequired      = errors.New("Google Maps API key is required")
	ErrOTLPEndpointRequired      = errors.New("OTLP endpoint is required when tracing is enabled")
	ErrDBHostRequired            = errors.New("Database host is required")
	ErrDBDatabaseRequired        = errors.New("Database name is required")
	ErrDatabaseDriverRequired    = errors.New("Database driver is required")
	ErrInvalidDatabaseDriver     = errors.New("Database driver must be sqlite, mysql or postgres")
	ErrInvalidStorageDriver      = errors.New("Storage driver must be filesystem or s3")
	ErrStorageDirectoryRequired  = errors.New("Storage directory is required")
	ErrS3BucketRequired          = errors.New("S3 bucket is required")
	ErrS3RegionRequired          = errors.New("S3 region is required")
	ErrSupabaseAnonKeyRequired   = errors.New("Supabase anon key is required when a Supabase URL is set")
	ErrRedisAddressRequired      = errors.New("Redis address is required")
	ErrRedisSentinelRequired     = errors.New("Redis sentinel addresses and master name are required")
	ErrNATSURLRequired           = errors.New("NATS URL is required when NATS is enabled")
	ErrInvalidKmPerDay           = errors.New("Default km per day must be greater than zero")
	ErrDevServerCommandRequired  = errors.New("Development server command is required")
	ErrLogsParallelWritersNeeded = errors.New("At least one trip log writer is required")
)

func (c *Config) Validate() error {
	if c.Google.APIKey() == "" {
		return ErrGoogleAPIKeyRequired
	}
	if c.HTTP.Tracing.Enabled && c.HTTP.Tracing.OTLPEndpoint == "" {
		return ErrOTLPEndpointRequired
	}
	if c.Persistence.Database.Driver == "" {
		return ErrDatabaseDriverRequired
	}
	switch c.Persistence.Database.Driver {
	case DatabaseDriverSQLite, DatabaseDriverMySQL, DatabaseDriverPostgres:
	default:
		return ErrInvalidDatabaseDriver
	}
	if c.Persistence.Database.Driver != DatabaseDriverSQLite && c.Persistence.Database.Host == "" {
		return ErrDBHostRequired
	}
	if c.Persistence.Database.Database == "" {
		return ErrDBDatabaseRequired
	}
	switch c.Persistence.Storage.Driver {
	case StorageDriverFilesystem:
		if c.Persistence.Storage.Filesystem.Directory == "" {
			return ErrStorageDirectoryRequired
		}
	case StorageDriverS3:
		if c.Persistence.Storage.S3.Bucket == "" {
			return ErrS3BucketRequired
		}
		if c.Persistence.Storage.S3.Region == "" {
			return ErrS3RegionRequired
		}
	default:
		return ErrInvalidStorageDriver
	}
	if c.Supabase.Enabled() && c.Supabase.AnonKey == "" {
		return ErrSupabaseAnonKeyRequired
	}
	if c.Redis.Enabled {
		if c.Redis.Sentinel.Enabled {
			if len(c.Redis.Sentinel.Addresses) == 0 || c.Redis.Sentinel.MasterName == "" {
				return ErrRedisSentinelRequired
			}
		} else if c.Redis.Address == "" {
			return ErrRedisAddressRequired
		}
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return ErrNATSURLRequired
	}
	if c.Planner.DefaultKmPerDay <= 0 {
		return ErrInvalidKmPerDay
	}
	if c.DevServer.Enabled && len(c.DevServer.Command) == 0 {
		return ErrDevServerCommandRequired
	}
	if c.Logs.ParallelWriters == 0 {
		return ErrLogsParallelWritersNeeded
	}

	return nil
}

func LoadConfig(cmd *cobra.Command) (*Config, error) {
	var config Config

	// Load flags from envs
	ctx, cancel := context.WithCancelCause(cmd.Context())
	defer cancel(nil)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if ctx.Err() != nil {
			return
		}
		optName := strings.ReplaceAll(strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_"), ".", "__")
		if val, ok := os.LookupEnv(optName); !f.Changed && ok {
			if err := f.Value.Set(val); err != nil {
				cancel(err)
			}
			f.Changed = true
		}
	})
	if ctx.Err() != nil {
		return &config, fmt.Errorf("failed to load env: %w", context.Cause(ctx))
	}

	configPath, err := cmd.Flags().GetString(ConfigFileKey)
	if err != nil {
		return &config, fmt.Errorf("failed to get config path: %w", err)
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return &config, fmt.Errorf("failed to read config: %w", err)
		} else if err == nil {
			if err := yaml.Unmarshal(data, &config); err != nil {
				return &config, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	err = overrideFlags(&config, cmd)
	if err != nil {
		return &config, fmt.Errorf("failed to override flags: %w", err)
	}

	applyDefaults(&config)

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.HTTP.IPV4Host == "" {
		config.HTTP.IPV4Host = DefaultHTTPIPV4Host
	}
	if config.HTTP.IPV6Host == "" {
		config.HTTP.IPV6Host = DefaultHTTPIPV6Host
	}
	if config.HTTP.Port == 0 {
		config.HTTP.Port = DefaultHTTPPort
	}
	if config.HTTP.Metrics.IPV4Host == "" {
		config.HTTP.Metrics.IPV4Host = DefaultHTTPMetricsIPV4Host
	}
	if config.HTTP.Metrics.IPV6Host == "" {
		config.HTTP.Metrics.IPV6Host = DefaultHTTPMetricsIPV6Host
	}
	if config.HTTP.Metrics.Port == 0 {
		config.HTTP.Metrics.Port = DefaultHTTPMetricsPort
	}
	if config.Persistence.Database.Driver == "" {
		config.Persistence.Database.Driver = DefaultPersistenceDatabaseDriver
	}
	if config.Persistence.Database.Database == "" {
		config.Persistence.Database.Database = DefaultPersistenceDatabaseDatabase
	}
	if config.Persistence.Storage.Driver == "" {
		config.Persistence.Storage.Driver = DefaultPersistenceStorageDriver
	}
	if config.Persistence.Storage.Filesystem.Directory == "" {
		config.Persistence.Storage.Filesystem.Directory = DefaultPersistenceStorageDirectory
	}
	if config.Redis.Address == "" {
		config.Redis.Address = DefaultRedisAddress
	}
	if config.NATS.SubjectPrefix == "" {
		config.NATS.SubjectPrefix = DefaultNATSSubjectPrefix
	}
	if config.Planner.DefaultKmPerDay == 0 {
		config.Planner.DefaultKmPerDay = DefaultPlannerKmPerDay
	}
	if config.Planner.FuelConsumption == 0 {
		config.Planner.FuelConsumption = DefaultPlannerFuelConsumption
	}
	if config.Planner.FuelPrice == 0 {
		config.Planner.FuelPrice = DefaultPlannerFuelPrice
	}
	if config.Planner.Currency == "" {
		config.Planner.Currency = DefaultPlannerCurrency
	}
	if config.GeocodeCache.File == "" {
		config.GeocodeCache.File = DefaultGeocodeCacheFile
	}
	if config.Places.CacheSize == 0 {
		config.Places.CacheSize = DefaultPlacesCacheSize
	}
	if config.Places.CacheTTL == 0 {
		config.Places.CacheTTL = DefaultPlacesCacheTTL
	}
	if config.Logs.Prefix == "" {
		config.Logs.Prefix = DefaultLogsPrefix
	}
	if config.Logs.ParallelWriters == 0 {
		config.Logs.ParallelWriters = DefaultLogsParallelWriters
	}
	if config.DevServer.HealthURL == "" {
		config.DevServer.HealthURL = DefaultDevServerHealthURL
	}
	if config.Search.IndexPath == "" {
		config.Search.IndexPath = DefaultSearchIndexPath
	}
}

//nolint:golint,gocyclo
func overrideFlags(config *Config, cmd *cobra.Command) error {
	var err error
	flags := cmd.Flags()

	if flags.Changed(HTTPIPV4HostKey) {
		config.HTTP.IPV4Host, err = flags.GetString(HTTPIPV4HostKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP IPv4 host: %w", err)
		}
	}

	if flags.Changed(HTTPIPV6HostKey) {
		config.HTTP.IPV6Host, err = flags.GetString(HTTPIPV6HostKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP IPv6 host: %w", err)
		}
	}

	if flags.Changed(HTTPPortKey) {
		config.HTTP.Port, err = flags.GetUint16(HTTPPortKey)
		if err != nil {
			return fmt.Errorf("failed to get HTTP port: %w", err)
		}
	}

	if flags.Changed(HTTPPProfEnabledKey) {
		config.HTTP.PProf.Enabled, err = flags.GetBool(HTTPPProfEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get pprof enabled: %w", err)
		}
	}

	if flags.Changed(HTTPTrustedProxiesKey) {
		config.HTTP.TrustedProxies, err = flags.GetStringSlice(HTTPTrustedProxiesKey)
		if err != nil {
			return fmt.Errorf("failed to get trusted proxies: %w", err)
		}
	}

	if flags.Changed(HTTPMetricsEnabledKey) {
		config.HTTP.Metrics.Enabled, err = flags.GetBool(HTTPMetricsEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics enabled: %w", err)
		}
	}

	if flags.Changed(HTTPMetricsIPV4HostKey) {
		config.HTTP.Metrics.IPV4Host, err = flags.GetString(HTTPMetricsIPV4HostKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics IPv4 host: %w", err)
		}
	}

	if flags.Changed(HTTPMetricsIPV6HostKey) {
		config.HTTP.Metrics.IPV6Host, err = flags.GetString(HTTPMetricsIPV6HostKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics IPv6 host: %w", err)
		}
	}

	if flags.Changed(HTTPMetricsPortKey) {
		config.HTTP.Metrics.Port, err = flags.GetUint16(HTTPMetricsPortKey)
		if err != nil {
			return fmt.Errorf("failed to get metrics port: %w", err)
		}
	}

	if flags.Changed(HTTPTracingEnabledKey) {
		config.HTTP.Tracing.Enabled, err = flags.GetBool(HTTPTracingEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get tracing enabled: %w", err)
		}
	}

	if flags.Changed(HTTPTracingOTLPEndKey) {
		config.HTTP.Tracing.OTLPEndpoint, err = flags.GetString(HTTPTracingOTLPEndKey)
		if err != nil {
			return fmt.Errorf("failed to get tracing OTLP endpoint: %w", err)
		}
	}

	if flags.Changed(HTTPCORSHostsKey) {
		config.HTTP.CORSHosts, err = flags.GetStringSlice(HTTPCORSHostsKey)
		if err != nil {
			return fmt.Errorf("failed to get CORS hosts: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabaseDriverKey) {
		drvr, err := flags.GetString(PersistenceDatabaseDriverKey)
		if err != nil {
			return fmt.Errorf("failed to get database driver: %w", err)
		}
		config.Persistence.Database.Driver = DatabaseDriver(strings.ToLower(drvr))
	}

	if flags.Changed(PersistenceDatabaseDatabaseKey) {
		config.Persistence.Database.Database, err = flags.GetString(PersistenceDatabaseDatabaseKey)
		if err != nil {
			return fmt.Errorf("failed to get database name: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabaseUsernameKey) {
		config.Persistence.Database.Username, err = flags.GetString(PersistenceDatabaseUsernameKey)
		if err != nil {
			return fmt.Errorf("failed to get database username: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabasePasswordKey) {
		config.Persistence.Database.Password, err = flags.GetString(PersistenceDatabasePasswordKey)
		if err != nil {
			return fmt.Errorf("failed to get database password: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabaseHostKey) {
		config.Persistence.Database.Host, err = flags.GetString(PersistenceDatabaseHostKey)
		if err != nil {
			return fmt.Errorf("failed to get database host: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabasePortKey) {
		config.Persistence.Database.Port, err = flags.GetUint16(PersistenceDatabasePortKey)
		if err != nil {
			return fmt.Errorf("failed to get database port: %w", err)
		}
	}

	if flags.Changed(PersistenceDatabaseExtraParamsKey) {
		config.Persistence.Database.ExtraParameters, err = flags.GetString(PersistenceDatabaseExtraParamsKey)
		if err != nil {
			return fmt.Errorf("failed to get database extra parameters: %w", err)
		}
	}

	if flags.Changed(PersistenceStorageDriverKey) {
		drvr, err := flags.GetString(PersistenceStorageDriverKey)
		if err != nil {
			return fmt.Errorf("failed to get storage driver: %w", err)
		}
		config.Persistence.Storage.Driver = StorageDriver(strings.ToLower(drvr))
	}

	if flags.Changed(PersistenceStorageDirectoryKey) {
		config.Persistence.Storage.Filesystem.Directory, err = flags.GetString(PersistenceStorageDirectoryKey)
		if err != nil {
			return fmt.Errorf("failed to get storage directory: %w", err)
		}
	}

	if flags.Changed(PersistenceStorageS3RegionKey) {
		config.Persistence.Storage.S3.Region, err = flags.GetString(PersistenceStorageS3RegionKey)
		if err != nil {
			return fmt.Errorf("failed to get S3 region: %w", err)
		}
	}

	if flags.Changed(PersistenceStorageS3BucketKey) {
		config.Persistence.Storage.S3.Bucket, err = flags.GetString(PersistenceStorageS3BucketKey)
		if err != nil {
			return fmt.Errorf("failed to get S3 bucket: %w", err)
		}
	}

	if flags.Changed(PersistenceStorageS3EndpointKey) {
		config.Persistence.Storage.S3.Endpoint, err = flags.GetString(PersistenceStorageS3EndpointKey)
		if err != nil {
			return fmt.Errorf("failed to get S3 endpoint: %w", err)
		}
	}

	if flags.Changed(GoogleServerAPIKeyKey) {
		config.Google.ServerAPIKey, err = flags.GetString(GoogleServerAPIKeyKey)
		if err != nil {
			return fmt.Errorf("failed to get Google server API key: %w", err)
		}
	}

	if flags.Changed(GooglePublicAPIKeyKey) {
		config.Google.PublicAPIKey, err = flags.GetString(GooglePublicAPIKeyKey)
		if err != nil {
			return fmt.Errorf("failed to get Google public API key: %w", err)
		}
	}

	if flags.Changed(SupabaseURLKey) {
		config.Supabase.URL, err = flags.GetString(SupabaseURLKey)
		if err != nil {
			return fmt.Errorf("failed to get Supabase URL: %w", err)
		}
	}

	if flags.Changed(SupabaseAnonKeyKey) {
		config.Supabase.AnonKey, err = flags.GetString(SupabaseAnonKeyKey)
		if err != nil {
			return fmt.Errorf("failed to get Supabase anon key: %w", err)
		}
	}

	if flags.Changed(SupabaseServiceKeyKey) {
		config.Supabase.ServiceKey, err = flags.GetString(SupabaseServiceKeyKey)
		if err != nil {
			return fmt.Errorf("failed to get Supabase service key: %w", err)
		}
	}

	if flags.Changed(SupabaseJWTSecretKey) {
		config.Supabase.JWTSecret, err = flags.GetString(SupabaseJWTSecretKey)
		if err != nil {
			return fmt.Errorf("failed to get Supabase JWT secret: %w", err)
		}
	}

	if flags.Changed(RedisEnabledKey) {
		config.Redis.Enabled, err = flags.GetBool(RedisEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get Redis enabled: %w", err)
		}
	}

	if flags.Changed(RedisAddressKey) {
		config.Redis.Address, err = flags.GetString(RedisAddressKey)
		if err != nil {
			return fmt.Errorf("failed to get Redis address: %w", err)
		}
	}

	if flags.Changed(RedisUsernameKey) {
		config.Redis.Username, err = flags.GetString(RedisUsernameKey)
		if err != nil {
			return fmt.Errorf("failed to get Redis username: %w", err)
		}
	}

	if flags.Changed(RedisPasswordKey) {
		config.Redis.Password, err = flags.GetString(RedisPasswordKey)
		if err != nil {
			return fmt.Errorf("failed to get Redis password: %w", err)
		}
	}

	if flags.Changed(RedisDatabaseKey) {
		config.Redis.Database, err = flags.GetInt(RedisDatabaseKey)
		if err != nil {
			return fmt.Errorf("failed to get Redis database: %w", err)
		}
	}

	if flags.Changed(RedisSentinelEnabledKey) {
		config.Redis.Sentinel.Enabled, err = flags.GetBool(RedisSentinelEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get Redis sentinel enabled: %w", err)
		}
	}

	if flags.Changed(RedisSentinelAddressesKey) {
		config.Redis.Sentinel.Addresses, err = flags.GetStringSlice(RedisSentinelAddressesKey)
		if err != nil {
			return fmt.Errorf("failed to get Redis sentinel addresses: %w", err)
		}
	}

	if flags.Changed(RedisSentinelMasterNameKey) {
		config.Redis.Sentinel.MasterName, err = flags.GetString(RedisSentinelMasterNameKey)
		if err != nil {
			return fmt.Errorf("failed to get Redis sentinel master name: %w", err)
		}
	}

	if flags.Changed(RedisSentinelUsernameKey) {
		config.Redis.Sentinel.Username, err = flags.GetString(RedisSentinelUsernameKey)
		if err != nil {
			return fmt.Errorf("failed to get Redis sentinel username: %w", err)
		}
	}

	if flags.Changed(RedisSentinelPasswordKey) {
		config.Redis.Sentinel.Password, err = flags.GetString(RedisSentinelPasswordKey)
		if err != nil {
			return fmt.Errorf("failed to get Redis sentinel password: %w", err)
		}
	}

	if flags.Changed(NATSEnabledKey) {
		config.NATS.Enabled, err = flags.GetBool(NATSEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS enabled: %w", err)
		}
	}

	if flags.Changed(NATSURLKey) {
		config.NATS.URL, err = flags.GetString(NATSURLKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS URL: %w", err)
		}
	}

	if flags.Changed(NATSSubjectPrefixKey) {
		config.NATS.SubjectPrefix, err = flags.GetString(NATSSubjectPrefixKey)
		if err != nil {
			return fmt.Errorf("failed to get NATS subject prefix: %w", err)
		}
	}

	if flags.Changed(PlannerDefaultKmPerDayKey) {
		config.Planner.DefaultKmPerDay, err = flags.GetFloat64(PlannerDefaultKmPerDayKey)
		if err != nil {
			return fmt.Errorf("failed to get default km per day: %w", err)
		}
	}

	if flags.Changed(PlannerFuelConsumptionKey) {
		config.Planner.FuelConsumption, err = flags.GetFloat64(PlannerFuelConsumptionKey)
		if err != nil {
			return fmt.Errorf("failed to get fuel consumption: %w", err)
		}
	}

	if flags.Changed(PlannerFuelPriceKey) {
		config.Planner.FuelPrice, err = flags.GetFloat64(PlannerFuelPriceKey)
		if err != nil {
			return fmt.Errorf("failed to get fuel price: %w", err)
		}
	}

	if flags.Changed(PlannerCurrencyKey) {
		config.Planner.Currency, err = flags.GetString(PlannerCurrencyKey)
		if err != nil {
			return fmt.Errorf("failed to get currency: %w", err)
		}
	}

	if flags.Changed(GeocodeCacheFileKey) {
		config.GeocodeCache.File, err = flags.GetString(GeocodeCacheFileKey)
		if err != nil {
			return fmt.Errorf("failed to get geocode cache file: %w", err)
		}
	}

	if flags.Changed(GeocodeCacheTTLKey) {
		config.GeocodeCache.TTL, err = flags.GetDuration(GeocodeCacheTTLKey)
		if err != nil {
			return fmt.Errorf("failed to get geocode cache TTL: %w", err)
		}
	}

	if flags.Changed(PlacesCacheSizeKey) {
		config.Places.CacheSize, err = flags.GetInt(PlacesCacheSizeKey)
		if err != nil {
			return fmt.Errorf("failed to get places cache size: %w", err)
		}
	}

	if flags.Changed(PlacesCacheTTLKey) {
		config.Places.CacheTTL, err = flags.GetDuration(PlacesCacheTTLKey)
		if err != nil {
			return fmt.Errorf("failed to get places cache TTL: %w", err)
		}
	}

	if flags.Changed(LogsPrefixKey) {
		config.Logs.Prefix, err = flags.GetString(LogsPrefixKey)
		if err != nil {
			return fmt.Errorf("failed to get logs prefix: %w", err)
		}
	}

	if flags.Changed(LogsParallelWritersKey) {
		config.Logs.ParallelWriters, err = flags.GetUint(LogsParallelWritersKey)
		if err != nil {
			return fmt.Errorf("failed to get parallel log writers: %w", err)
		}
	}

	if flags.Changed(DevServerEnabledKey) {
		config.DevServer.Enabled, err = flags.GetBool(DevServerEnabledKey)
		if err != nil {
			return fmt.Errorf("failed to get dev server enabled: %w", err)
		}
	}

	if flags.Changed(DevServerCommandKey) {
		config.DevServer.Command, err = flags.GetStringSlice(DevServerCommandKey)
		if err != nil {
			return fmt.Errorf("failed to get dev server command: %w", err)
		}
	}

	if flags.Changed(DevServerDirectoryKey) {
		config.DevServer.Directory, err = flags.GetString(DevServerDirectoryKey)
		if err != nil {
			return fmt.Errorf("failed to get dev server directory: %w", err)
		}
	}

	if flags.Changed(DevServerHealthURLKey) {
		config.DevServer.HealthURL, err = flags.GetString(DevServerHealthURLKey)
		if err != nil {
			return fmt.Errorf("failed to get dev server health URL: %w", err)
		}
	}

	if flags.Changed(SearchIndexPathKey) {
		config.Search.IndexPath, err = flags.GetString(SearchIndexPathKey)
		if err != nil {
			return fmt.Errorf("failed to get search index path: %w", err)
		}
	}

	return nil
}
