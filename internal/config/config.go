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
	AppName                string
	AppEnv                 string
	AppPort                string
	CORSAllowOrigins       string
	SubmitRateLimit        int
	AssignmentRateLimit    int
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	EventChannel           string
	AssignmentCacheTTL     time.Duration
	MaxUploadMB            int
	WorkDir                string
	WorkerURL              string
	WorkerTimeout          time.Duration
	StorageEndpoint        string
	StorageRegion          string
	StorageAccessKey       string
	StorageSecretKey       string
	StorageBucket          string
	StorageBaseURL         string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	OpenAIAPIKey           string
	OpenAIModel            string
	OpenAIBaseURL          string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// MaxUploadBytes converts the upload limit into bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}

// IsDevelopment reports whether the service runs in the development environment.
func (c Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// ArchiveBackupEnabled reports whether Cloudinary credentials were supplied.
func (c Config) ArchiveBackupEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("ONEWAVE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Connectable API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("ratelimit.submissions_per_minute", 10)
	v.SetDefault("ratelimit.assignments_per_minute", 5)
	v.SetDefault("events.channel", "connectable")
	v.SetDefault("assignment.cache_ttl", "10m")
	v.SetDefault("upload.max_mb", 50)
	v.SetDefault("worker.timeout_seconds", 60)
	v.SetDefault("storage.region", "auto")
	v.SetDefault("cloudinary.folder", "connectable/archives")
	v.SetDefault("openai.model", "gpt-4o-mini")

	ttlString := v.GetString("assignment.cache_ttl")
	if ttlString == "" {
		ttlString = "10m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid assignment cache ttl: %w", err)
	}

	timeoutSeconds := v.GetInt("worker.timeout_seconds")
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		SubmitRateLimit:        v.GetInt("ratelimit.submissions_per_minute"),
		AssignmentRateLimit:    v.GetInt("ratelimit.assignments_per_minute"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		EventChannel:           v.GetString("events.channel"),
		AssignmentCacheTTL:     ttl,
		MaxUploadMB:            v.GetInt("upload.max_mb"),
		WorkDir:                v.GetString("upload.work_dir"),
		WorkerURL:              strings.TrimRight(v.GetString("worker.url"), "/"),
		WorkerTimeout:          time.Duration(timeoutSeconds) * time.Second,
		StorageEndpoint:        v.GetString("storage.endpoint"),
		StorageRegion:          v.GetString("storage.region"),
		StorageAccessKey:       v.GetString("storage.access_key"),
		StorageSecretKey:       v.GetString("storage.secret_key"),
		StorageBucket:          v.GetString("storage.bucket"),
		StorageBaseURL:         strings.TrimRight(v.GetString("storage.base_url"), "/"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		OpenAIAPIKey:           v.GetString("openai.api_key"),
		OpenAIModel:            v.GetString("openai.model"),
		OpenAIBaseURL:          v.GetString("openai.base_url"),
	}

	if cfg.WorkerURL == "" {
		return Config{}, fmt.Errorf("grading worker url must be provided")
	}

	if cfg.StorageBucket == "" || cfg.StorageBaseURL == "" {
		return Config{}, fmt.Errorf("storage bucket and base url must be provided")
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 50
	}

	return cfg, nil
}
