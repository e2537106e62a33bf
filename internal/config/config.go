package config

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	pkgconfig "github.com/pulse-social/pulse/pkg/config"
	"github.com/pulse-social/pulse/pkg/jwt"
	"github.com/pulse-social/pulse/pkg/log"
	"github.com/pulse-social/pulse/pkg/middleware"
	"github.com/pulse-social/pulse/pkg/pubsub"
	"github.com/pulse-social/pulse/pkg/storage"
)

const (
	BackendDatabase = "database"
	BackendMock     = "mock"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Backend    BackendConfig
	Redis      RedisConfig
	Cache      CacheConfig
	PubSub     pubsub.Config  `mapstructure:"pubsub"`
	Storage    storage.Config `mapstructure:"storage"`
	Media      MediaConfig
	Search     SearchConfig
	JWT        jwt.Config                 `mapstructure:"jwt"`
	RateLimit  middleware.RateLimitConfig `mapstructure:"rate_limit"`
	Reconciler ReconcilerConfig
	WebSocket  WebSocketConfig `mapstructure:"websocket"`
	Log        LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	FilePath        string        `mapstructure:"file_path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime int           `mapstructure:"conn_max_lifetime"`
	LogLevel        string        `mapstructure:"log_level"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

// BackendConfig selects between a real database and the seeded in-memory mock.
type BackendConfig struct {
	Mode      string        `mapstructure:"mode"`
	MockDelay time.Duration `mapstructure:"mock_delay"`
}

// RedisConfig is shared by the user cache and the search cache. An empty
// address disables both.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Prefix    string        `mapstructure:"prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
	SearchTTL time.Duration `mapstructure:"search_ttl"`
}

type MediaConfig struct {
	AvatarPrefix   string `mapstructure:"avatar_prefix"`
	JpegQuality    int    `mapstructure:"jpeg_quality"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	// URLExpiry only matters for presigned S3 URLs.
	URLExpiry time.Duration `mapstructure:"url_expiry"`
}

// SearchConfig enables Elasticsearch-backed user search when Addresses is set.
type SearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	IndexUsers string   `mapstructure:"index_users"`
}

type ReconcilerConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
}

type WebSocketConfig struct {
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// IsMock reports whether the service runs on seeded fixtures.
func (c *Config) IsMock() bool {
	return c.Backend.Mode == BackendMock
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.shutdown_timeout": "30s",

		"database.driver":            "sqlite",
		"database.host":              "localhost",
		"database.port":              5432,
		"database.user":              "postgres",
		"database.password":          "postgres",
		"database.dbname":            "pulse",
		"database.sslmode":           "disable",
		"database.file_path":         "./data/pulse.db",
		"database.max_idle_conns":    10,
		"database.max_open_conns":    100,
		"database.conn_max_lifetime": 60,
		"database.log_level":         "warn",
		"database.slow_threshold":    "200ms",

		"backend.mode":       BackendDatabase,
		"backend.mock_delay": "300ms",

		"redis.address":  "",
		"redis.password": "",
		"redis.db":       0,

		"cache.prefix":     "pulse",
		"cache.ttl":        "30s",
		"cache.search_ttl": "10s",

		"pubsub.driver":              "memory",
		"pubsub.redis.address":       "localhost:6379",
		"pubsub.redis.pool_size":     10,
		"pubsub.redis.read_timeout":  "3s",
		"pubsub.redis.write_timeout": "3s",
		"pubsub.kafka.group_id":      "pulse",
		"pubsub.kafka.partitions":    4,

		"storage.driver":          "local",
		"storage.local.base_path": "./data/media",
		"storage.local.base_url":  "/media",
		"storage.s3.region":       "us-east-1",
		"storage.s3.bucket":       "pulse-media",

		"media.avatar_prefix":    "avatars/",
		"media.jpeg_quality":     85,
		"media.max_upload_bytes": 5 << 20,
		"media.url_expiry":       "168h",

		"search.index_users": "pulse-users",

		"jwt.secret":           "change-me",
		"jwt.issuer":           "pulse",
		"jwt.access_duration":  "15m",
		"jwt.refresh_duration": "168h",

		"rate_limit.enabled":             true,
		"rate_limit.requests_per_second": 20,
		"rate_limit.burst":               40,
		"rate_limit.idle_ttl":            "5m",

		"reconciler.enabled":      true,
		"reconciler.interval":     "5m",
		"reconciler.run_on_start": true,

		"websocket.max_message_size": 4096,
		"websocket.pong_wait":        "60s",
		"websocket.ping_interval":    "54s",
		"websocket.write_wait":       "10s",

		"log.level":  "info",
		"log.pretty": false,
	}
}

var envBindings = map[string]string{
	"server.port":                  "PORT",
	"database.driver":              "DB_DRIVER",
	"database.host":                "DB_HOST",
	"database.port":                "DB_PORT",
	"database.user":                "DB_USER",
	"database.password":            "DB_PASSWORD",
	"database.dbname":              "DB_NAME",
	"database.sslmode":             "DB_SSLMODE",
	"database.file_path":           "DB_FILE_PATH",
	"database.log_level":           "DB_LOG_LEVEL",
	"backend.mode":                 "PULSE_BACKEND",
	"backend.mock_delay":           "PULSE_MOCK_DELAY",
	"redis.address":                "REDIS_ADDRESS",
	"redis.password":               "REDIS_PASSWORD",
	"pubsub.driver":                "PUBSUB_DRIVER",
	"pubsub.redis.address":         "PUBSUB_REDIS_ADDRESS",
	"pubsub.kafka.brokers":         "KAFKA_BROKERS",
	"storage.driver":               "STORAGE_DRIVER",
	"storage.s3.endpoint":          "S3_ENDPOINT",
	"storage.s3.bucket":            "S3_BUCKET",
	"storage.s3.access_key_id":     "S3_ACCESS_KEY_ID",
	"storage.s3.secret_access_key": "S3_SECRET_ACCESS_KEY",
	"storage.s3.public_url":        "S3_PUBLIC_URL",
	"search.addresses":             "ELASTICSEARCH_ADDRESSES",
	"jwt.secret":                   "JWT_SECRET",
	"log.level":                    "LOG_LEVEL",
}

// Load reads ./config/config.yaml (optional) and the environment.
func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(dir string) (*Config, error) {
	cfg, _, err := load(dir)
	return cfg, err
}

// LoadAndWatch is LoadFrom, and afterwards calls onChange with the re-read
// config whenever the file changes. Only settings read per use, such as the
// log level, take effect without a restart.
func LoadAndWatch(dir string, onChange func(*Config)) (*Config, error) {
	cfg, v, err := load(dir)
	if err != nil {
		return nil, err
	}

	pkgconfig.Watch(v, func(fsnotify.Event) {
		var next Config
		if err := v.Unmarshal(&next); err != nil {
			l := log.L()
			l.Warn().Err(err).Str("file", v.ConfigFileUsed()).Msg("ignoring unreadable config change")
			return
		}
		onChange(&next)
	})
	return cfg, nil
}

func load(dir string) (*Config, *viper.Viper, error) {
	v, err := pkgconfig.Load(pkgconfig.Options{
		Paths:    []string{dir},
		Name:     "config",
		Defaults: defaults(),
	})
	if err != nil {
		return nil, nil, err
	}
	if err := pkgconfig.BindEnvs(v, envBindings); err != nil {
		return nil, nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, err
	}
	return &cfg, v, nil
}
