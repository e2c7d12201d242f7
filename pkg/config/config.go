package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its configuration.
const DefaultPath = "configs/wikifetch.yaml"

// Config holds the application configuration.
type Config struct {
	Request  RequestConfig  `yaml:"request"`
	Log      LogConfig      `yaml:"log"`
	Cache    CacheConfig    `yaml:"cache"`
	Wikidata WikidataConfig `yaml:"wikidata"`
	Output   OutputConfig   `yaml:"output"`
	Plan     PlanConfig     `yaml:"plan"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries   int           `yaml:"retries" env:"WIKIFETCH_REQUEST_RETRIES" validate:"gte=1,lte=10"`
	Timeout   Duration      `yaml:"timeout" env:"WIKIFETCH_REQUEST_TIMEOUT" validate:"gt=0"`
	UserAgent string        `yaml:"user_agent" env:"WIKIFETCH_USER_AGENT"` // empty = built-in default
	Backoff   BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay" validate:"gt=0"`
	MaxDelay  Duration `yaml:"max_delay" validate:"gtefield=BaseDelay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path" validate:"required"`
	Level string `yaml:"level" env:"WIKIFETCH_LOG_LEVEL"`
}

// CacheConfig holds settings for the response cache.
type CacheConfig struct {
	Enabled bool     `yaml:"enabled" env:"WIKIFETCH_CACHE_ENABLED"`
	Path    string   `yaml:"path" env:"WIKIFETCH_CACHE_PATH" validate:"required_if=Enabled true"`
	TTL     Duration `yaml:"ttl" validate:"gte=0"`
}

// WikidataConfig holds Wikibase API settings.
type WikidataConfig struct {
	APIEndpoint string `yaml:"api_endpoint" env:"WIKIFETCH_API_ENDPOINT" validate:"required,url"`
	SearchLimit int    `yaml:"search_limit" validate:"gte=1,lte=50"`
}

// OutputConfig selects where raw entity dumps go.
type OutputConfig struct {
	Mode string `yaml:"mode" env:"WIKIFETCH_OUTPUT_MODE" validate:"oneof=console directory"`
	Dir  string `yaml:"dir" env:"WIKIFETCH_OUTPUT_DIR" validate:"required_if=Mode directory"`
}

// PlanConfig holds the literal inputs of each report scenario.
type PlanConfig struct {
	EntityID         string   `yaml:"entity_id" validate:"entityid"`
	LabelLanguage    string   `yaml:"label_language" validate:"langcode"`
	EntityIDs        []string `yaml:"entity_ids" validate:"min=1,dive,entityid"`
	TitleSite        string   `yaml:"title_site" validate:"required"`
	Titles           []string `yaml:"titles" validate:"min=1,dive,required"`
	SearchTerm       string   `yaml:"search_term" validate:"required"`
	SearchLanguage   string   `yaml:"search_language" validate:"langcode"`
	FilteredEntityID string   `yaml:"filtered_entity_id" validate:"entityid"`
	FilterLanguage   string   `yaml:"filter_language" validate:"langcode"`
	FilterSite       string   `yaml:"filter_site" validate:"required"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(60 * time.Second),
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/wikifetch.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    "./data/wikifetch.db",
			TTL:     Duration(Day),
		},
		Wikidata: WikidataConfig{
			APIEndpoint: "https://www.wikidata.org/w/api.php",
			SearchLimit: 7,
		},
		Output: OutputConfig{
			Mode: "console",
			Dir:  "./results",
		},
		Plan: PlanConfig{
			EntityID:         "Q42",
			LabelLanguage:    "en",
			EntityIDs:        []string{"Q42", "P31"},
			TitleSite:        "enwiki",
			Titles:           []string{"Terry Pratchett", "Neil Gaiman"},
			SearchTerm:       "Douglas Adams",
			SearchLanguage:   "fr",
			FilteredEntityID: "Q8",
			FilterLanguage:   "fr",
			FilterSite:       "enwiki",
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it is created with default values.
// Values from a .env file next to the working directory and from the
// process environment override the file; the result is validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Environment overrides are applied in memory only, never saved back.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# wikifetch configuration
# ----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# Environment overrides: WIKIFETCH_* (see README), also read from .env

`)
	data = append(header, data...)

	reMode := regexp.MustCompile(`(?m)^(\s+)mode:`)
	data = reMode.ReplaceAll(data, []byte("${1}# Options: console, directory\n${1}mode:"))

	reTTL := regexp.MustCompile(`(?m)^(\s+)ttl:`)
	data = reTTL.ReplaceAll(data, []byte("${1}# 0s keeps cached responses forever\n${1}ttl:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
