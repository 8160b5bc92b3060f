package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	Queue     QueueConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	Engine    EngineConfig
	Cache     CacheConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
}

// QueueConfig holds message queue configuration
type QueueConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Vhost    string
	Exchange string
	Name     string
	Prefetch int
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level      string
	Format     string
	Output     string
	TimeFormat string
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	Enabled bool
	RPS     int
	Burst   int
}

// EngineConfig tunes the timeline and playback engine
type EngineConfig struct {
	DefaultDuration     float64
	SecondsPer100vh     float64
	ResizeDebounce      time.Duration
	ProgressDebounce    time.Duration
	FrameInterval       time.Duration
	MobileBreakpoint    int
	VisibilityThreshold float64
	// WorkerConcurrency bounds artefact uploads per record
	WorkerConcurrency int
}

// CacheConfig holds record cache configuration
type CacheConfig struct {
	Enabled   bool
	RecordTTL time.Duration
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.readTimeout", "30s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "scrolly")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxConns", 25)
	viper.SetDefault("database.minConns", 5)

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Storage defaults
	viper.SetDefault("storage.endpoint", "localhost:9000")
	viper.SetDefault("storage.accessKeyID", "minioadmin")
	viper.SetDefault("storage.secretAccessKey", "minioadmin")
	viper.SetDefault("storage.bucketName", "embeds")
	viper.SetDefault("storage.region", "us-east-1")
	viper.SetDefault("storage.useSSL", false)

	// Queue defaults
	viper.SetDefault("queue.host", "localhost")
	viper.SetDefault("queue.port", 5672)
	viper.SetDefault("queue.user", "guest")
	viper.SetDefault("queue.password", "guest")
	viper.SetDefault("queue.vhost", "/")
	viper.SetDefault("queue.exchange", "scrolly")
	viper.SetDefault("queue.name", "record.saved")
	viper.SetDefault("queue.prefetch", 1)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.timeFormat", "RFC3339")

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.serviceName", "scrolly")
	viper.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9091)

	// Rate limit defaults
	viper.SetDefault("rateLimit.enabled", true)
	viper.SetDefault("rateLimit.rps", 20)
	viper.SetDefault("rateLimit.burst", 40)

	// Engine defaults
	viper.SetDefault("engine.defaultDuration", 10.0)
	viper.SetDefault("engine.secondsPer100vh", 1.5)
	viper.SetDefault("engine.resizeDebounce", "300ms")
	viper.SetDefault("engine.progressDebounce", "300ms")
	viper.SetDefault("engine.frameInterval", "16ms")
	viper.SetDefault("engine.mobileBreakpoint", 768)
	viper.SetDefault("engine.visibilityThreshold", 0.0)
	viper.SetDefault("engine.workerConcurrency", 3)

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.recordTTL", "5m")
}
