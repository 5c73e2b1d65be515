package common

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Paths   PathsConfig
	Fetch   FetchConfig
	LLM     LLMConfig
	PerfLog PerfLogConfig
}

// PathsConfig holds the base directory layout. Everything else is derived
// from BaseDir the same way across runs so cached artifacts stay stable.
type PathsConfig struct {
	BaseDir      string
	CacheDir     string
	InputsDir    string
	OutDir       string
	Jurisdiction string
}

// FetchConfig holds network behavior for the tiered fetcher.
type FetchConfig struct {
	UserAgent   string
	APITimeout  time.Duration
	PageTimeout time.Duration
	DocTimeout  time.Duration
}

// LLMConfig holds settings for the optional LLM extraction path.
type LLMConfig struct {
	Model          string
	APIKey         string
	BaseURL        string
	Temperature    float32
	Timeout        time.Duration
	MaxConcurrency int
}

// PerfLogConfig holds the performance log location.
type PerfLogConfig struct {
	Path string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	baseDir := getEnv("RULINGS_BASE_DIR", "")
	if baseDir == "" {
		baseDir, _ = os.Getwd()
	}
	return &Config{
		Paths: PathsConfig{
			BaseDir:      baseDir,
			CacheDir:     getEnv("RULINGS_CACHE_DIR", filepath.Join(baseDir, "cache")),
			InputsDir:    getEnv("RULINGS_IN_DIR", filepath.Join(baseDir, "in")),
			OutDir:       getEnv("RULINGS_OUT_DIR", filepath.Join(baseDir, "out")),
			Jurisdiction: getEnv("RULINGS_JURISDICTION", "ny"),
		},
		Fetch: FetchConfig{
			UserAgent:   getEnv("RULINGS_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"),
			APITimeout:  getEnvAsDuration("RULINGS_API_TIMEOUT", 20*time.Second),
			PageTimeout: getEnvAsDuration("RULINGS_PAGE_TIMEOUT", 20*time.Second),
			DocTimeout:  getEnvAsDuration("RULINGS_DOC_TIMEOUT", 60*time.Second),
		},
		LLM: LLMConfig{
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature:    getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 90*time.Second),
			MaxConcurrency: getEnvAsInt("OPENAI_MAX_CONCURRENCY", 2),
		},
		PerfLog: PerfLogConfig{
			Path: getEnv("RULINGS_PERFLOG_PATH", filepath.Join(baseDir, "out", "performance.db")),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks settings that must be present before a run can start.
// The LLM key is intentionally not required here; the pipeline degrades to
// regex-only extraction when it is absent.
func (c *Config) Validate() error {
	if c.Paths.BaseDir == "" {
		return NewAppError("CONFIG_ERROR", "base directory is required", ErrInvalidInput)
	}
	if c.Paths.Jurisdiction == "" {
		return NewAppError("CONFIG_ERROR", "jurisdiction is required", ErrInvalidInput)
	}
	return nil
}
