package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultModel = "google/gemini-2.5-flash-image-preview"

type Config struct {
	// OpenRouter
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	DefaultModel      string

	// Image storage
	ImageStore            string // local | supabase | gcs
	UploadDir             string
	PublicBaseURL         string
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string
	SupabaseStoragePublic bool
	SupabaseRealtimeTable string
	GCSBucket             string

	// Events
	RedisAddr    string
	RedisChannel string

	// Auth
	JWTSecret string

	// Database
	DatabaseURL string

	// Server
	Port          string
	Environment   string
	BaseURL       string
	CORSOrigins   []string
	StaleJobAfter time.Duration
	ShutdownGrace time.Duration
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		DefaultModel:      getEnv("DEFAULT_MODEL", DefaultModel),

		ImageStore:            getEnv("IMAGE_STORE", "local"),
		UploadDir:             getEnv("UPLOAD_DIR", "uploads"),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", ""),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "images"),
		SupabaseStoragePublic: getEnvBool("SUPABASE_STORAGE_PUBLIC", false),
		SupabaseRealtimeTable: getEnv("SUPABASE_REALTIME_TABLE", ""),
		GCSBucket:             getEnv("GCS_BUCKET", ""),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RedisChannel: getEnv("REDIS_CHANNEL", "processing-jobs"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Port:          getEnv("PORT", "8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		CORSOrigins:   splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		StaleJobAfter: getEnvDuration("STALE_JOB_AFTER", 15*time.Minute),
		ShutdownGrace: getEnvDuration("SHUTDOWN_GRACE", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate only rejects combinations the server cannot start with. A missing
// OpenRouter key is allowed: it surfaces later as a failed job.
func (c *Config) Validate() error {
	switch c.ImageStore {
	case "local":
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for the local image store")
		}
	case "supabase":
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required for the supabase image store")
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required for the supabase image store")
		}
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required for the gcs image store")
		}
	default:
		return fmt.Errorf("IMAGE_STORE must be one of local, supabase, gcs (got %q)", c.ImageStore)
	}
	if c.SupabaseRealtimeTable != "" && (c.SupabaseURL == "" || c.SupabaseServiceKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when SUPABASE_REALTIME_TABLE is set")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return b
	}
	return defaultValue
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
