package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
//
// Provider credentials are intentionally NOT validated here: a missing API
// key or endpoint id surfaces as a configuration error on first use, so the
// service can boot with only the features that are configured.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string
	AdminAPIKey string
	GeoIPDBPath string
	RedisURL    string

	ComfyDeployAPIKey       string
	ComfyDeployDeploymentID string
	ComfyDeployBaseURL      string

	RunPodAPIKey         string
	RunPodEndpointID     string
	RunPodTalkEndpointID string
	RunPodBaseURL        string
	RunPodSyncTimeout    time.Duration

	ElevenLabsAPIKey string

	// WebhookBaseURL is the public origin the orchestration provider can
	// reach to push completion events.
	WebhookBaseURL string

	JobPollInterval time.Duration
	JobMaxWait      time.Duration

	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	CORSAllowedOrigins string
	RateLimitPerMin    int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),
		GeoIPDBPath: os.Getenv("GEOIP_DB_PATH"),
		RedisURL:    os.Getenv("REDIS_URL"),

		ComfyDeployAPIKey:       os.Getenv("COMFYDEPLOY_API_KEY"),
		ComfyDeployDeploymentID: os.Getenv("COMFYDEPLOY_DEPLOYMENT_ID"),
		ComfyDeployBaseURL:      getEnv("COMFYDEPLOY_BASE_URL", "https://api.comfydeploy.com/api"),

		RunPodAPIKey:         os.Getenv("RUNPOD_API_KEY"),
		RunPodEndpointID:     os.Getenv("RUNPOD_ENDPOINT_ID"),
		RunPodTalkEndpointID: os.Getenv("RUNPOD_AITALK_ENDPOINT_ID"),
		RunPodBaseURL:        getEnv("BASE_URL_RUNPOD", "https://api.runpod.ai/v2"),
		RunPodSyncTimeout:    time.Second * time.Duration(getEnvInt("RUNPOD_SYNC_TIMEOUT_SECONDS", 300)),

		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),

		WebhookBaseURL: os.Getenv("WEBHOOK_BASE_URL"),

		JobPollInterval: time.Second * time.Duration(getEnvInt("JOB_POLL_INTERVAL_SECONDS", 3)),
		JobMaxWait:      time.Minute * time.Duration(getEnvInt("JOB_MAX_WAIT_MINUTES", 30)),

		// Write timeout must exceed the sync-mode ceiling or those
		// responses are cut off mid-wait.
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 330)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// Production reports whether the service runs in production mode.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
