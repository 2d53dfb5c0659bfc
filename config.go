package main

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the whole application configuration.
// Values come from .env (if present) and then the process environment.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upstream  UpstreamConfig
	Logo      LogoConfig
	Logging   LoggingConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	PprofEnabled bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Path string
}

type UpstreamConfig struct {
	APIKey    string
	BaseURL   string
	RelayURL  string
	Transport string // direct, relay
	Timeout   time.Duration
	CacheKey  string
}

type LogoConfig struct {
	Token  string
	APIURL string
	ImgURL string
}

type LoggingConfig struct {
	Level  string
	Format string
	Dir    string
}

type SchedulerConfig struct {
	Enabled bool
	Spec    string
}

const (
	TransportDirect = "direct"
	TransportRelay  = "relay"

	defaultUniverseCacheKey = "fd_symbol_universe_v10_sequential"
)

// LoadConfig loads configuration from .env and the environment.
func LoadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		log.Debug().Msg(".env file not found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			PprofEnabled: getEnvBool("PPROF_ENABLED", false),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "market_explorer.db"),
		},
		Upstream: UpstreamConfig{
			APIKey:    getEnv("FD_API_KEY", ""),
			BaseURL:   strings.TrimRight(getEnv("FD_BASE_URL", "https://financialdata.net"), "/"),
			RelayURL:  getEnv("FD_RELAY_URL", "https://api.allorigins.win/raw"),
			Transport: strings.ToLower(getEnv("FD_TRANSPORT", TransportDirect)),
			Timeout:   getEnvDuration("FD_TIMEOUT", 30*time.Second),
			CacheKey:  getEnv("UNIVERSE_CACHE_KEY", defaultUniverseCacheKey),
		},
		Logo: LogoConfig{
			Token:  getEnv("LOGO_TOKEN", ""),
			APIURL: strings.TrimRight(getEnv("LOGO_API_URL", "https://api.logokit.com"), "/"),
			ImgURL: strings.TrimRight(getEnv("LOGO_IMG_URL", "https://img.logokit.com"), "/"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "pretty"),
			Dir:    getEnv("LOG_DIR", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled: getEnvBool("SCHEDULER_ENABLED", false),
			Spec:    getEnv("UNIVERSE_WARM_CRON", "@every 1h"),
		},
	}

	if cfg.Upstream.Transport != TransportRelay {
		cfg.Upstream.Transport = TransportDirect
	}

	return cfg, nil
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid boolean, using default")
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}
