package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Storage
	DBPath string `yaml:"db_path"`

	// Remote parser backend (optional)
	RemoteParserURL    string `yaml:"remote_parser_url"`
	RemoteParserAPIKey string `yaml:"remote_parser_api_key"`

	// Routing
	Backends    []string `yaml:"backends"`     // fallback chain, highest fidelity first
	UseSemantic bool     `yaml:"use_semantic"` // structure-aware chunking even without explicit elements

	// Retry policy for each parser client
	RetryMaxAttempts  int           `yaml:"retry_max_attempts"`
	RetryInitialDelay time.Duration `yaml:"retry_initial_delay"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay"`
	RetryMultiplier   float64       `yaml:"retry_multiplier"`
	RetryDeadline     time.Duration `yaml:"retry_deadline"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Chunking defaults
	ChunkTokenNum  int `yaml:"chunk_token_num"`
	OverlapPercent int `yaml:"overlap_percent"`

	// Migration
	MigrationBatchSize int `yaml:"migration_batch_size"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`
}

// Load reads configuration from the environment, optionally layered over a
// YAML file named by DOCBRIDGE_CONFIG. Environment variables win.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("DOCBRIDGE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCBRIDGE_API_KEY", cfg.APIKey)
	cfg.DBPath = envOr("DOCBRIDGE_DB", cfg.DBPath)
	cfg.RemoteParserURL = envOr("REMOTE_PARSER_URL", cfg.RemoteParserURL)
	cfg.RemoteParserAPIKey = envOr("REMOTE_PARSER_API_KEY", cfg.RemoteParserAPIKey)
	if v := os.Getenv("BACKENDS"); v != "" {
		cfg.Backends = splitList(v)
	}
	cfg.UseSemantic = envBool("USE_SEMANTIC", cfg.UseSemantic)
	cfg.RetryMaxAttempts = envInt("RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	cfg.RetryInitialDelay = envDuration("RETRY_INITIAL_DELAY", cfg.RetryInitialDelay)
	cfg.RetryMaxDelay = envDuration("RETRY_MAX_DELAY", cfg.RetryMaxDelay)
	cfg.RetryDeadline = envDuration("RETRY_DEADLINE", cfg.RetryDeadline)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.ChunkTokenNum = envInt("CHUNK_TOKEN_NUM", cfg.ChunkTokenNum)
	cfg.OverlapPercent = envInt("OVERLAP_PERCENT", cfg.OverlapPercent)
	cfg.MigrationBatchSize = envInt("MIGRATION_BATCH_SIZE", cfg.MigrationBatchSize)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	cfg.clamp()
	return cfg, nil
}

func defaults() Config {
	return Config{
		Port:               "8090",
		DBPath:             "docbridge.db",
		Backends:           []string{"remote", "markdown", "plaintext"},
		RetryMaxAttempts:   3,
		RetryInitialDelay:  time.Second,
		RetryMaxDelay:      30 * time.Second,
		RetryMultiplier:    2,
		RetryDeadline:      2 * time.Minute,
		WorkerCount:        4,
		MaxQueueSize:       100,
		MaxUploadBytes:     52428800, // 50MB
		ChunkTokenNum:      512,
		OverlapPercent:     10,
		MigrationBatchSize: 1000,
		JobTTL:             time.Hour,
	}
}

func (c *Config) clamp() {
	d := defaults()
	if c.RetryMaxAttempts <= 0 {
		c.RetryMaxAttempts = d.RetryMaxAttempts
	}
	if c.RetryInitialDelay <= 0 {
		c.RetryInitialDelay = d.RetryInitialDelay
	}
	if c.RetryMultiplier <= 0 {
		c.RetryMultiplier = d.RetryMultiplier
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = d.WorkerCount
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = d.MaxQueueSize
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = d.MaxUploadBytes
	}
	if c.ChunkTokenNum <= 0 {
		c.ChunkTokenNum = d.ChunkTokenNum
	}
	if c.OverlapPercent < 0 || c.OverlapPercent >= 100 {
		c.OverlapPercent = d.OverlapPercent
	}
	if c.MigrationBatchSize <= 0 {
		c.MigrationBatchSize = d.MigrationBatchSize
	}
	if c.JobTTL <= 0 {
		c.JobTTL = d.JobTTL
	}
	if len(c.Backends) == 0 {
		c.Backends = d.Backends
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCBRIDGE_API_KEY is required")
	}
	for _, b := range c.Backends {
		if b == "remote" && c.RemoteParserURL == "" {
			return fmt.Errorf("REMOTE_PARSER_URL is required when the remote backend is configured")
		}
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
