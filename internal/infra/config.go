package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	PublicBaseURL    string
	StoreBaseURL     string
	StoreAPIToken    string
	StoreTable       string
	WaveSpeedAPIKey  string
	WaveSpeedBaseURL string
	WaveSpeedModel   string
	FalAPIKey        string
	FalBaseURL       string
	FalModel         string
	MaxBatchCount    int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Every external endpoint and credential the relay
// depends on is required; a missing value is a startup failure.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		PublicBaseURL:    strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		StoreBaseURL:     strings.TrimRight(os.Getenv("STORE_BASE_URL"), "/"),
		StoreAPIToken:    os.Getenv("STORE_API_TOKEN"),
		StoreTable:       getEnv("STORE_TABLE", "Batches"),
		WaveSpeedAPIKey:  os.Getenv("WAVESPEED_API_KEY"),
		WaveSpeedBaseURL: getEnv("WAVESPEED_BASE_URL", "https://api.wavespeed.ai/api/v3"),
		WaveSpeedModel:   getEnv("WAVESPEED_MODEL", "bytedance/seedream-v4"),
		FalAPIKey:        os.Getenv("FAL_API_KEY"),
		FalBaseURL:       getEnv("FAL_BASE_URL", "https://queue.fal.run"),
		FalModel:         getEnv("FAL_MODEL", "fal-ai/flux/dev"),
		MaxBatchCount:    getEnvInt("MAX_BATCH_COUNT", 8),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("PUBLIC_BASE_URL is required")
	}
	if cfg.StoreBaseURL == "" {
		return nil, fmt.Errorf("STORE_BASE_URL is required")
	}
	if cfg.StoreAPIToken == "" {
		return nil, fmt.Errorf("STORE_API_TOKEN is required")
	}
	if cfg.WaveSpeedAPIKey == "" {
		return nil, fmt.Errorf("WAVESPEED_API_KEY is required")
	}
	if cfg.FalAPIKey == "" {
		return nil, fmt.Errorf("FAL_API_KEY is required")
	}
	if cfg.MaxBatchCount <= 0 {
		cfg.MaxBatchCount = 1
	}

	return cfg, nil
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
