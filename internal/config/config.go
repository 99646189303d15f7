package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable, e.g. COSTCMP_SERVER_PORT.
const EnvPrefix = "COSTCMP"

// ConfigFileEnv points Load at an explicit YAML file.
const ConfigFileEnv = "COSTCMP_CONFIG_FILE"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Data      DataConfig      `yaml:"data" envconfig:"DATA"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Store     StoreConfig     `yaml:"store" envconfig:"STORE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Format   string `yaml:"format" envconfig:"FORMAT"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// DataConfig describes the three reference datasets and how to read them.
type DataConfig struct {
	Dir        string `yaml:"dir" envconfig:"DIR"`
	SalaryFile string `yaml:"salary_file" envconfig:"SALARY_FILE"`
	CostFile   string `yaml:"cost_file" envconfig:"COST_FILE"`
	DetailFile string `yaml:"detail_file" envconfig:"DETAIL_FILE"`

	Delimiter string `yaml:"delimiter" envconfig:"DELIMITER"`
	// KeyCase is "upper" or "preserve".
	KeyCase string `yaml:"key_case" envconfig:"KEY_CASE"`
	Workers int    `yaml:"workers" envconfig:"WORKERS"`
	// SalaryMonthly multiplies salary values by 12 while loading.
	SalaryMonthly bool `yaml:"salary_monthly" envconfig:"SALARY_MONTHLY"`

	// Cost columns select key and value in cost_file. Pointing cost_file at
	// the wide detail file with cost_key_column 1 and cost_value_column 13
	// averages the total cost per state.
	CostKeyColumn   int `yaml:"cost_key_column" envconfig:"COST_KEY_COLUMN"`
	CostValueColumn int `yaml:"cost_value_column" envconfig:"COST_VALUE_COLUMN"`
	CostMinColumns  int `yaml:"cost_min_columns" envconfig:"COST_MIN_COLUMNS"`

	DetailKeyColumn   int      `yaml:"detail_key_column" envconfig:"DETAIL_KEY_COLUMN"`
	DetailFirstColumn int      `yaml:"detail_first_column" envconfig:"DETAIL_FIRST_COLUMN"`
	DetailLastColumn  int      `yaml:"detail_last_column" envconfig:"DETAIL_LAST_COLUMN"`
	DetailMinColumns  int      `yaml:"detail_min_columns" envconfig:"DETAIL_MIN_COLUMNS"`
	CategoryLabels    []string `yaml:"category_labels" envconfig:"CATEGORY_LABELS"`

	MaxLoggedRejections int `yaml:"max_logged_rejections" envconfig:"MAX_LOGGED_REJECTIONS"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO"`
}

// IncludeStackTraces reports whether error responses carry stack traces.
func (t TelemetryConfig) IncludeStackTraces() bool {
	return strings.EqualFold(t.Environment, "development")
}

// StoreConfig configures the load history database.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled" envconfig:"ENABLED"`
	Path    string `yaml:"path" envconfig:"DB_PATH"`
}

// DefaultCategoryLabels name the seven cost columns of the reference dataset.
var DefaultCategoryLabels = []string{
	"housing_cost",
	"food_cost",
	"transportation_cost",
	"healthcare_cost",
	"other_necessities_cost",
	"childcare_cost",
	"taxes",
}

// Load builds the configuration from defaults, then the YAML file if one
// is found, then COSTCMP_* environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := loadFromFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg. Keys absent from the file
// keep their current value.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}
	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Security.RateLimit.Enabled && (c.Security.RateLimit.RPS <= 0 || c.Security.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit rps and burst must be positive when enabled")
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %q", c.Logging.Output)
	}

	// Only JSON logs are emitted.
	c.Logging.Format = "json"

	if err := c.Data.validate(); err != nil {
		return err
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %q", c.Telemetry.TraceExporter)
	}
	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %q", c.Telemetry.MetricExporter)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio must be within [0, 1], got %v", c.Telemetry.SampleRatio)
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store path is required when the store is enabled")
	}

	return nil
}

func (d *DataConfig) validate() error {
	if d.SalaryFile == "" || d.CostFile == "" || d.DetailFile == "" {
		return fmt.Errorf("data salary_file, cost_file and detail_file are required")
	}

	if len([]rune(d.Delimiter)) != 1 {
		return fmt.Errorf("data delimiter must be a single character, got %q", d.Delimiter)
	}
	if d.Delimiter == `"` || d.Delimiter == "\n" || d.Delimiter == "\r" {
		return fmt.Errorf("data delimiter %q is not allowed", d.Delimiter)
	}

	switch strings.ToLower(d.KeyCase) {
	case "upper", "preserve":
	default:
		return fmt.Errorf("data key_case must be upper or preserve, got %q", d.KeyCase)
	}

	if d.Workers < 1 {
		return fmt.Errorf("data workers must be at least 1, got %d", d.Workers)
	}

	if d.CostKeyColumn < 0 || d.CostValueColumn < 0 {
		return fmt.Errorf("data cost columns must be non-negative")
	}
	if d.CostKeyColumn == d.CostValueColumn {
		return fmt.Errorf("data cost_key_column and cost_value_column are both %d", d.CostKeyColumn)
	}

	if d.DetailKeyColumn < 0 || d.DetailFirstColumn < 0 {
		return fmt.Errorf("data detail columns must be non-negative")
	}
	if d.DetailLastColumn < d.DetailFirstColumn {
		return fmt.Errorf("data detail_last_column %d is before detail_first_column %d", d.DetailLastColumn, d.DetailFirstColumn)
	}
	if n := d.DetailWidth(); len(d.CategoryLabels) != n {
		return fmt.Errorf("data category_labels has %d labels for %d detail columns", len(d.CategoryLabels), n)
	}

	return nil
}

// DetailWidth is the number of cost category columns in the detail table.
func (d DataConfig) DetailWidth() int {
	return d.DetailLastColumn - d.DetailFirstColumn + 1
}

// DelimiterRune returns the configured field separator.
func (d DataConfig) DelimiterRune() rune {
	for _, r := range d.Delimiter {
		return r
	}
	return ','
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(ConfigFileEnv); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if FileExists(location) {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/app.log",
		},
		Data: DataConfig{
			Dir:                 "data",
			SalaryFile:          "salaries.csv",
			CostFile:            "cost_of_living.csv",
			DetailFile:          "cost_of_living_us.csv",
			Delimiter:           ",",
			KeyCase:             "upper",
			Workers:             1,
			CostKeyColumn:       0,
			CostValueColumn:     1,
			CostMinColumns:      2,
			DetailKeyColumn:     1,
			DetailFirstColumn:   6,
			DetailLastColumn:    12,
			DetailMinColumns:    13,
			CategoryLabels:      append([]string(nil), DefaultCategoryLabels...),
			MaxLoggedRejections: 10,
		},
		Telemetry: TelemetryConfig{
			Environment:    "production",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "data/loads.db",
		},
	}
}
