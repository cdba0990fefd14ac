package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultUserAgent is a desktop Chrome user agent string
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// EnvPrefix prefixes every environment variable the scraper reads
const EnvPrefix = "LISTINGSCRAPER_"

// Config holds all configuration options for the scraper
type Config struct {
	// HTTP client settings
	HTTP HTTPConfig `yaml:"http" json:"http"`

	// Output layout
	Output OutputConfig `yaml:"output" json:"output"`

	// Download loop settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// HTTPConfig holds HTTP client configuration
type HTTPConfig struct {
	UserAgent string        `yaml:"user_agent" json:"user_agent" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout" validate:"gt=0"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory  string `yaml:"base_directory" json:"base_directory" validate:"required"`
	MetadataFormat string `yaml:"metadata_format" json:"metadata_format" validate:"metaformat"`
	RelocateSource bool   `yaml:"relocate_source" json:"relocate_source"`
}

// DownloadConfig holds download loop configuration
type DownloadConfig struct {
	Site        string        `yaml:"site" json:"site" validate:"sitehint"`
	SkipImages  bool          `yaml:"skip_images" json:"skip_images"`
	Delay       time.Duration `yaml:"delay" json:"delay" validate:"gte=0"`
	RandomDelay bool          `yaml:"random_delay" json:"random_delay"`
	MinDelay    time.Duration `yaml:"min_delay" json:"min_delay" validate:"gte=0"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay" validate:"gtefield=MinDelay"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level" validate:"loglevel"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" validate:"gte=0"`
	MaxAge     int    `yaml:"max_age" json:"max_age" validate:"gte=0"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// TextFile is written in Prometheus text format at the end of a run when set
	TextFile string `yaml:"text_file" json:"text_file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			UserAgent: DefaultUserAgent,
			Timeout:   30 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory:  "scraped_data",
			MetadataFormat: "text",
			RelocateSource: false,
		},
		Download: DownloadConfig{
			Site:        "auto",
			SkipImages:  false,
			Delay:       2 * time.Second,
			RandomDelay: false,
			MinDelay:    2 * time.Second,
			MaxDelay:    7 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   false,
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if ua := getenv("USER_AGENT"); ua != "" {
		c.HTTP.UserAgent = ua
	}
	if timeout := getenv("TIMEOUT"); timeout != "" {
		d, err := parseSeconds(timeout)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %w", EnvPrefix, err)
		}
		c.HTTP.Timeout = d
	}

	if outputDir := getenv("OUTPUT_DIR"); outputDir != "" {
		c.Output.BaseDirectory = outputDir
	}
	if format := getenv("METADATA_FORMAT"); format != "" {
		c.Output.MetadataFormat = strings.ToLower(format)
	}
	if err := envBool("RELOCATE_SOURCE", &c.Output.RelocateSource); err != nil {
		return err
	}

	if site := getenv("SITE"); site != "" {
		c.Download.Site = strings.ToLower(site)
	}
	if delay := getenv("DELAY"); delay != "" {
		d, err := parseSeconds(delay)
		if err != nil {
			return fmt.Errorf("invalid %sDELAY: %w", EnvPrefix, err)
		}
		c.Download.Delay = d
	}
	if err := envBool("SKIP_IMAGES", &c.Download.SkipImages); err != nil {
		return err
	}
	if err := envBool("RANDOM_DELAY", &c.Download.RandomDelay); err != nil {
		return err
	}
	if err := envDuration("MIN_DELAY", &c.Download.MinDelay); err != nil {
		return err
	}
	if err := envDuration("MAX_DELAY", &c.Download.MaxDelay); err != nil {
		return err
	}

	if logLevel := getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := getenv("LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	if metricsFile := getenv("METRICS_FILE"); metricsFile != "" {
		c.Metrics.TextFile = metricsFile
	}

	return nil
}

func getenv(key string) string {
	return os.Getenv(EnvPrefix + key)
}

func envBool(key string, dst *bool) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	d, err := parseSeconds(v)
	if err != nil {
		return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	*dst = d
	return nil
}

// parseSeconds accepts either a bare integer number of seconds or a Go duration string
func parseSeconds(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative duration %q", s)
		}
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".listingscraper.yaml",
		".listingscraper.yml",
		filepath.Join(home, ".config", "listingscraper", "config.yaml"),
		filepath.Join(home, ".config", "listingscraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "warning": true, "error": true, "disabled": true,
}

var validMetadataFormats = map[string]bool{
	"text": true, "json": true, "yaml": true,
}

var validSites = map[string]bool{
	"auto": true, "generic": true, "compass": true, "zillow": true,
}

func newValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		return validLogLevels[strings.ToLower(fl.Field().String())]
	})
	_ = validate.RegisterValidation("metaformat", func(fl validator.FieldLevel) bool {
		return validMetadataFormats[strings.ToLower(fl.Field().String())]
	})
	_ = validate.RegisterValidation("sitehint", func(fl validator.FieldLevel) bool {
		return validSites[strings.ToLower(fl.Field().String())]
	})

	return validate
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	err := newValidator().Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, e := range verrs {
		errs = append(errs, fmt.Errorf("%s: invalid value %v (rule %s)", e.Namespace(), e.Value(), e.Tag()))
	}
	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override the loaded values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["format"].(string); ok && v != "" {
		c.Output.MetadataFormat = strings.ToLower(v)
	}
	if v, ok := flags["relocate-source"].(bool); ok {
		c.Output.RelocateSource = v
	}
	if v, ok := flags["site"].(string); ok && v != "" {
		c.Download.Site = strings.ToLower(v)
	}
	if v, ok := flags["skip-images"].(bool); ok {
		c.Download.SkipImages = v
	}
	if v, ok := flags["delay"].(int); ok {
		c.Download.Delay = time.Duration(v) * time.Second
	}
	if v, ok := flags["random-delay"].(bool); ok {
		c.Download.RandomDelay = v
	}
	if v, ok := flags["min-delay"].(int); ok {
		c.Download.MinDelay = time.Duration(v) * time.Second
	}
	if v, ok := flags["max-delay"].(int); ok {
		c.Download.MaxDelay = time.Duration(v) * time.Second
	}
	if v, ok := flags["timeout"].(int); ok {
		c.HTTP.Timeout = time.Duration(v) * time.Second
	}
	if v, ok := flags["user-agent"].(string); ok && v != "" {
		c.HTTP.UserAgent = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
	if v, ok := flags["metrics-file"].(string); ok && v != "" {
		c.Metrics.TextFile = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".listingscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
