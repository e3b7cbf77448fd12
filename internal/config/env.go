package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// LibraryConfig locates the manifest and the per-page PDF files.
type LibraryConfig struct {
	DataDir      string
	ManifestRef  string // path, file://, http(s):// or s3://
	PagePattern  string
	ProbeOnStart bool
}

// RenderConfig defines page rasterization defaults.
type RenderConfig struct {
	DefaultZoom float64
	Format      string // "png" | "jpeg"
	ColorMode   string // "rgb" | "gray"
	JPEGQuality int
	MaxInflight int
}

// CacheConfig defines the optional Redis render/text cache.
type CacheConfig struct {
	RedisURL string
	Enabled  bool
	TTL      time.Duration
}

// ExportConfig defines the section export pipeline.
type ExportConfig struct {
	Workers   int
	ResultDir string
	S3Bucket  string
	JobTTL    time.Duration
}

// QueueConfig defines export queue connectivity and names.
type QueueConfig struct {
	RedisURL     string
	Stream       string
	Group        string
	PollInterval time.Duration
}

// ServerConfig defines the HTTP surface.
type ServerConfig struct {
	Port        string
	WebUsername string
	WebPassword string
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	Library LibraryConfig
	Render  RenderConfig
	Cache   CacheConfig
	Export  ExportConfig
	Queue   QueueConfig
	Server  ServerConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/docsections.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_docsections",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.Library = LibraryConfig{
		DataDir:      getEnv("DATA_DIR", "data"),
		ManifestRef:  getEnv("MANIFEST_REF", "data_detail.txt"),
		PagePattern:  getEnv("PAGE_PATTERN", "page_%03d.pdf"),
		ProbeOnStart: parseBool(getEnv("PROBE_ON_START", "0")),
	}

	cfg.Render = RenderConfig{
		DefaultZoom: parseFloat(getEnv("RENDER_DEFAULT_ZOOM", "1.5"), 1.5),
		Format:      getEnv("RENDER_FORMAT", "png"),
		ColorMode:   getEnv("RENDER_COLOR_MODE", "rgb"),
		JPEGQuality: parseInt(getEnv("RENDER_JPEG_QUALITY", "85"), 85),
		MaxInflight: parseInt(getEnv("RENDER_MAX_INFLIGHT", "4"), 4),
	}

	redisURL := getEnv("REDIS_URL", "redis://localhost:6379")
	cfg.Cache = CacheConfig{
		RedisURL: redisURL,
		Enabled:  parseBool(getEnv("CACHE_ENABLED", "1")),
		TTL:      parseDuration(getEnv("CACHE_TTL", "24h"), 24*time.Hour),
	}

	cfg.Export = ExportConfig{
		Workers:   parseInt(getEnv("EXPORT_WORKERS", "2"), 2),
		ResultDir: getEnv("RESULT_DIR", "results"),
		S3Bucket:  getEnv("AWS_S3_BUCKET", ""),
		JobTTL:    parseDuration(getEnv("EXPORT_JOB_TTL", "168h"), 168*time.Hour),
	}

	cfg.Queue = QueueConfig{
		RedisURL:     redisURL,
		Stream:       getEnv("QUEUE_STREAM", "jobs:section:exports"),
		Group:        getEnv("QUEUE_GROUP", "workers:exports"),
		PollInterval: parseDuration(getEnv("QUEUE_POLL_INTERVAL", "100ms"), 100*time.Millisecond),
	}

	cfg.Server = ServerConfig{
		Port:        getEnv("PORT", "8080"),
		WebUsername: getEnv("WEB_USERNAME", ""),
		WebPassword: getEnv("WEB_PASSWORD", ""),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
