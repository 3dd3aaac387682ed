package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the prodsearch API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Backend    BackendConfig    `yaml:"backend"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Retry      RetryConfig      `yaml:"retry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings. Required only for the
// vector backend and the LLM response cache.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CatalogConfig points at the product table export.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// BackendConfig selects and tunes the retrieval backend.
type BackendConfig struct {
	Driver   string         `yaml:"driver"` // lexical, vector, ensemble (default: lexical)
	TopK     int            `yaml:"top_k"`
	Vector   VectorConfig   `yaml:"vector"`
	Ensemble EnsembleConfig `yaml:"ensemble"`
}

// VectorConfig holds the Redis vector index knobs.
type VectorConfig struct {
	IndexName       string  `yaml:"index_name"`
	KeyPrefix       string  `yaml:"key_prefix"`
	Dimensions      int     `yaml:"dimensions"`
	Type            string  `yaml:"type"` // FLOAT32, FLOAT16 (default: FLOAT32)
	HNSWM           int     `yaml:"hnsw_m"`
	HNSWEFConstruct int     `yaml:"hnsw_ef_construction"`
	PrefetchK       int     `yaml:"prefetch_k"`
	ScoreThreshold  float64 `yaml:"score_threshold"`
}

// EnsembleConfig holds the in-memory ensemble knobs. Weights are ordered
// [similarity, lexical, mmr].
type EnsembleConfig struct {
	Weights        []float64 `yaml:"weights"`
	FetchK         int       `yaml:"fetch_k"`
	LambdaMult     float64   `yaml:"lambda_mult"`
	ScoreThreshold float64   `yaml:"score_threshold"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// ExtractionConfig holds the specification extraction LLM settings.
type ExtractionConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	CacheTTL int    `yaml:"cache_ttl_sec"` // 0 = responses cached forever
}

// RetryConfig bounds retries of embedding and extraction calls.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts"`
	BaseDelayMS int     `yaml:"base_delay_ms"`
	Multiplier  float64 `yaml:"multiplier"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Backend.Driver == "" {
		c.Backend.Driver = "lexical"
	}
	if c.Backend.TopK <= 0 {
		c.Backend.TopK = 3
	}
	if c.Backend.Vector.IndexName == "" {
		c.Backend.Vector.IndexName = "products:idx"
	}
	if c.Backend.Vector.KeyPrefix == "" {
		c.Backend.Vector.KeyPrefix = "products:"
	}
	if c.Backend.Vector.Type == "" {
		c.Backend.Vector.Type = "FLOAT32"
	}
	if c.Backend.Vector.HNSWM <= 0 {
		c.Backend.Vector.HNSWM = 32
	}
	if c.Backend.Vector.HNSWEFConstruct <= 0 {
		c.Backend.Vector.HNSWEFConstruct = 200
	}
	if c.Backend.Vector.PrefetchK <= 0 {
		c.Backend.Vector.PrefetchK = 20
	}
	if len(c.Backend.Ensemble.Weights) == 0 {
		c.Backend.Ensemble.Weights = []float64{0.5, 0.3, 0.2}
	}
	if c.Backend.Ensemble.FetchK <= 0 {
		c.Backend.Ensemble.FetchK = 20
	}
	if c.Backend.Ensemble.LambdaMult <= 0 {
		c.Backend.Ensemble.LambdaMult = 0.25
	}
	if c.Backend.Ensemble.ScoreThreshold <= 0 {
		c.Backend.Ensemble.ScoreThreshold = 0.75
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelayMS <= 0 {
		c.Retry.BaseDelayMS = 500
	}
	if c.Retry.Multiplier <= 0 {
		c.Retry.Multiplier = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}

	switch c.Backend.Driver {
	case "lexical", "ensemble":
		// in-memory, no store required
	case "vector":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the vector backend")
		}
		if c.Backend.Vector.Dimensions <= 0 {
			return fmt.Errorf("backend.vector.dimensions is required for the vector backend")
		}
		switch c.Backend.Vector.Type {
		case "FLOAT32", "FLOAT16":
			// ok
		default:
			return fmt.Errorf("backend.vector.type must be FLOAT32 or FLOAT16, got %q", c.Backend.Vector.Type)
		}
	default:
		return fmt.Errorf("backend.driver must be lexical, vector or ensemble, got %q", c.Backend.Driver)
	}

	if n := len(c.Backend.Ensemble.Weights); n != 3 {
		return fmt.Errorf("backend.ensemble.weights must have 3 entries [similarity, lexical, mmr], got %d", n)
	}
	if l := c.Backend.Ensemble.LambdaMult; l < 0 || l > 1 {
		return fmt.Errorf("backend.ensemble.lambda_mult must be in [0, 1], got %g", l)
	}

	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
