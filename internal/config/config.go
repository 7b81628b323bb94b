// Package config loads the storefront configuration from environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

type KVBackend string

const (
	KVMemory KVBackend = "memory"
	KVRedis  KVBackend = "redis"
)

type Config struct {
	HTTP     HTTPConfig
	Auth     AuthConfig
	Backend  Backend
	Remote   RemoteConfig
	KV       KVConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Catalog  CatalogConfig
	Kafka    KafkaConfig
	Logging  LoggingConfig

	LocationDataset string
}

type HTTPConfig struct {
	Port               string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	MetricsEnabled     bool
}

type AuthConfig struct {
	JWTSecret string
}

// RemoteConfig points at the remote store API used when Backend is remote.
type RemoteConfig struct {
	BaseURL     string
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
}

type KVConfig struct {
	Backend  KVBackend
	Addr     string
	Password string
	Prefix   string
}

type MongoConfig struct {
	URI            string
	DBName         string
	ConnectTimeout time.Duration
	MaxPoolSize    int
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

type CatalogConfig struct {
	DBPath string
}

// KafkaConfig lists the brokers for order events. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string
	// each instance needs its own group to observe every event
	GroupID string
}

type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
	Service       string
}

const (
	defaultHTTPPort        = "8080"
	defaultRequestTimeout  = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultRemoteTimeout   = 10 * time.Second
	defaultOpenTimeout     = 30 * time.Second
	defaultMaxFailures     = 5
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Port:               getEnv("HTTP_PORT", defaultHTTPPort),
			RequestTimeout:     getDuration("REQUEST_TIMEOUT", defaultRequestTimeout),
			ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
			MaxRequestBodySize: 1 << 20, // 1MB
			MetricsEnabled:     getBool("METRICS_ENABLED", true),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Backend: Backend(strings.ToLower(getEnv("BACKEND", string(BackendLocal)))),
		Remote: RemoteConfig{
			BaseURL:     strings.TrimRight(os.Getenv("REMOTE_API_URL"), "/"),
			Timeout:     getDuration("REMOTE_TIMEOUT", defaultRemoteTimeout),
			MaxFailures: uint32(getInt("REMOTE_MAX_FAILURES", defaultMaxFailures)),
			OpenTimeout: getDuration("REMOTE_OPEN_TIMEOUT", defaultOpenTimeout),
		},
		KV: KVConfig{
			Backend:  KVBackend(strings.ToLower(getEnv("KV_BACKEND", string(KVMemory)))),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			Prefix:   getEnv("REDIS_PREFIX", "storefront:"),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			DBName:         getEnv("MONGO_DB_NAME", "storefront"),
			ConnectTimeout: getDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			MaxPoolSize:    getInt("MONGO_MAX_POOL_SIZE", 100),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "storefront"),
		},
		Catalog: CatalogConfig{
			DBPath: getEnv("CATALOG_DB_PATH", "./catalog.db"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			GroupID: getEnv("KAFKA_GROUP_ID", defaultGroupID()),
		},
		Logging: LoggingConfig{
			Level:         getEnv("LOG_LEVEL", "info"),
			Format:        getEnv("LOG_FORMAT", "text"),
			IncludeCaller: getBool("LOG_INCLUDE_CALLER", false),
			Service:       getEnv("SERVICE_NAME", "storefront"),
		},
		LocationDataset: os.Getenv("LOCATION_DATASET"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Backend {
	case BackendRemote:
		if c.Remote.BaseURL == "" {
			return fmt.Errorf("REMOTE_API_URL is required when BACKEND=%s", BackendRemote)
		}
	case BackendLocal:
	default:
		return fmt.Errorf("unknown BACKEND %q (want remote or local)", c.Backend)
	}

	switch c.KV.Backend {
	case KVMemory, KVRedis:
	default:
		return fmt.Errorf("unknown KV_BACKEND %q (want memory or redis)", c.KV.Backend)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func defaultGroupID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "storefront"
	}
	return "storefront-" + host
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
