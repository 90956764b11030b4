package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Search       SearchConfig
	Geo          GeoConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NEARMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"NEARMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NEARMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NEARMARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NEARMARKET_DB_DSN"`
	Driver string `envconfig:"NEARMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NEARMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"NEARMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NEARMARKET_DB_USER"`
	LegacyPassword string `envconfig:"NEARMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"NEARMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"NEARMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NEARMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NEARMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NEARMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NEARMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NEARMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NEARMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"NEARMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"NEARMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NEARMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NEARMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NEARMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NEARMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NEARMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NEARMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NEARMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NEARMARKET_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SearchConfig tunes the marketplace browse pipeline.
type SearchConfig struct {
	DefaultRadiusKm float64 `envconfig:"NEARMARKET_SEARCH_DEFAULT_RADIUS_KM" default:"25"`
	MaxRadiusKm     float64 `envconfig:"NEARMARKET_SEARCH_MAX_RADIUS_KM" default:"500"`
	MinQueryLength  int     `envconfig:"NEARMARKET_SEARCH_MIN_QUERY_LENGTH" default:"3"`
	MaxPageSize     int     `envconfig:"NEARMARKET_SEARCH_MAX_PAGE_SIZE" default:"100"`
}

// GeoConfig controls the geocoding resolver.
type GeoConfig struct {
	GoogleMapsAPIKey string        `envconfig:"NEARMARKET_GOOGLE_MAPS_API_KEY"`
	ResolveTimeout   time.Duration `envconfig:"NEARMARKET_GEO_RESOLVE_TIMEOUT" default:"5s"`
	LocationCacheTTL time.Duration `envconfig:"NEARMARKET_GEO_LOCATION_CACHE_TTL" default:"5m"`
}

type RateLimitConfig struct {
	BrowseWindow time.Duration `envconfig:"NEARMARKET_RATE_LIMIT_BROWSE_WINDOW" default:"1m"`
	BrowseLimit  int64         `envconfig:"NEARMARKET_RATE_LIMIT_BROWSE_LIMIT" default:"120"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NEARMARKET_AUTO_MIGRATE" default:"false"`
	UseSQLite   bool `envconfig:"NEARMARKET_USE_SQLITE" default:"false"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"NEARMARKET_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"NEARMARKET_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	MarketplaceTopic         string `envconfig:"NEARMARKET_PUBSUB_MARKETPLACE_TOPIC" default:"nm-marketplace-events"`
	NotificationSubscription string `envconfig:"NEARMARKET_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset           string `envconfig:"NEARMARKET_BIGQUERY_DATASET" default:"nearmarket"`
	SearchEventsTable string `envconfig:"NEARMARKET_BIGQUERY_SEARCH_TABLE" default:"search_events"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
