package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr          string        `yaml:"addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	APITimeout    time.Duration `yaml:"timeout"`
	DatabasePath  string        `yaml:"database_path"`
	TokenDuration time.Duration `yaml:"token_duration"`
	StorageDir    string        `yaml:"storage_dir"`
	WorkerCount   int           `yaml:"worker_count"`
	Rates         RatesConfig   `yaml:"rates"`
}

type RatesConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	BaseCurrency            string        `yaml:"base_currency"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CacheTTL                time.Duration `yaml:"cache_ttl"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

// DefaultRatesConfig returns sensible defaults for the rates client.
func DefaultRatesConfig() RatesConfig {
	return RatesConfig{
		BaseURL:                 "https://api.exchangerate.host",
		BaseCurrency:            "USD",
		Timeout:                 10 * time.Second,
		Retries:                 3,
		Backoff:                 500 * time.Millisecond,
		CacheTTL:                time.Hour,
		CircuitFailureThreshold: 5,
		CircuitReset:            30 * time.Second,
	}
}

// LoadConfig builds the configuration from environment variables with an
// optional YAML overlay. A `.env` file in the working directory is loaded
// first when present.
func LoadConfig(path string) (*Config, error) {
	// best-effort; missing .env is not an error
	_ = godotenv.Load()

	cfg := &Config{
		Addr:          getEnv("BACKOFFICE_ADDR", ":8080"),
		JWTSecret:     getEnv("BACKOFFICE_JWT_SECRET", "supersecretkey"),
		APITimeout:    15 * time.Second,
		DatabasePath:  getEnv("BACKOFFICE_DATABASE_PATH", "backoffice.db"),
		TokenDuration: 1 * time.Hour,
		StorageDir:    getEnv("BACKOFFICE_STORAGE_DIR", "uploads"),
		WorkerCount:   getEnvInt("BACKOFFICE_WORKERS", 4),
		Rates:         DefaultRatesConfig(),
	}
	if v := os.Getenv("BACKOFFICE_RATES_URL"); v != "" {
		cfg.Rates.BaseURL = v
	}

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return def
}
