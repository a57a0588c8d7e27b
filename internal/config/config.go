package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                 string
	AppEnv                  string
	AppPort                 string
	DatabaseURL             string
	RedisURL                string
	NATSURL                 string
	JWTSecret               string
	JWTRefreshSecret        string
	AccessTokenTTL          time.Duration
	RefreshTokenTTL         time.Duration
	CloudinaryCloudName     string
	CloudinaryAPIKey        string
	CloudinaryAPISecret     string
	CloudinaryUploadFolder  string
	CacheDriver             string
	CacheTTL                time.Duration
	LiveAwayAfter           time.Duration
	OpenAIAPIKey            string
	AIModel                 string
	UploadMaxBytes          int64
	BootstrapCoordinator    string
	BootstrapCoordinatorPwd string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GCQ")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GC Quest API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.access_ttl", "1h")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("cloudinary.folder", "gcquest/resources")
	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("live.away_after", "20s")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("upload.max_bytes", 20<<20)

	durations := map[string]*time.Duration{}
	var accessTTL, refreshTTL, cacheTTL, awayAfter time.Duration
	durations["jwt.access_ttl"] = &accessTTL
	durations["jwt.refresh_ttl"] = &refreshTTL
	durations["cache.ttl"] = &cacheTTL
	durations["live.away_after"] = &awayAfter

	for key, target := range durations {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("%s must be positive", key)
		}
		*target = parsed
	}

	cfg := Config{
		AppName:                 v.GetString("app.name"),
		AppEnv:                  v.GetString("app.env"),
		AppPort:                 v.GetString("app.port"),
		DatabaseURL:             v.GetString("database.url"),
		RedisURL:                v.GetString("redis.url"),
		NATSURL:                 v.GetString("nats.url"),
		JWTSecret:               v.GetString("jwt.secret"),
		JWTRefreshSecret:        v.GetString("jwt.refresh_secret"),
		AccessTokenTTL:          accessTTL,
		RefreshTokenTTL:         refreshTTL,
		CloudinaryCloudName:     v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:        v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:     v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder:  v.GetString("cloudinary.folder"),
		CacheDriver:             strings.ToLower(v.GetString("cache.driver")),
		CacheTTL:                cacheTTL,
		LiveAwayAfter:           awayAfter,
		OpenAIAPIKey:            v.GetString("openai_api_key"),
		AIModel:                 v.GetString("ai.model"),
		UploadMaxBytes:          v.GetInt64("upload.max_bytes"),
		BootstrapCoordinator:    strings.ToLower(strings.TrimSpace(v.GetString("bootstrap.coordinator_email"))),
		BootstrapCoordinatorPwd: v.GetString("bootstrap.coordinator_password"),
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	if cfg.CacheDriver != "redis" && cfg.CacheDriver != "memory" {
		return Config{}, fmt.Errorf("unsupported cache driver %q", cfg.CacheDriver)
	}

	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 20 << 20
	}

	return cfg, nil
}
