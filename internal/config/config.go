package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment override, e.g. DPT_AGGREGATE_STRICT.
const EnvPrefix = "DPT"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Aggregate AggregateConfig `yaml:"aggregate" envconfig:"AGGREGATE"`
	Convert   ConvertConfig   `yaml:"convert" envconfig:"CONVERT"`
	JDE       JDEConfig       `yaml:"jde" envconfig:"JDE"`
	Locator   LocatorConfig   `yaml:"locator" ignored:"true"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DATABASE"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`

	// ST maps logical field keys (field_mid ... field_dt) to header text.
	ST map[string]string `yaml:"st" ignored:"true"`
	// Range maps range list names (range_jmj_local ...) to "N" or "N-M" entries.
	Range map[string][]string `yaml:"range" ignored:"true"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir string `yaml:"data_dir" envconfig:"DATA_DIR"`
	LogsDir string `yaml:"logs_dir" envconfig:"LOGS_DIR"`
}

// AggregateConfig controls ST aggregation runs.
type AggregateConfig struct {
	Encoding string `yaml:"encoding" envconfig:"ENCODING" validate:"oneof=UTF8 GBK GB18030"`
	Strict   bool   `yaml:"strict" envconfig:"STRICT"`
	// Warehouses are the seven repository ids broken out in the brand report.
	Warehouses []uint16 `yaml:"warehouses" envconfig:"WAREHOUSES" validate:"len=7,unique"`
}

// ConvertConfig controls xlsx to csv conversion.
type ConvertConfig struct {
	Sheet    string `yaml:"sheet" envconfig:"SHEET" validate:"required"`
	Encoding string `yaml:"encoding" envconfig:"ENCODING" validate:"oneof=UTF8 GBK GB18030"`
	Workers  int    `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
}

// JDEConfig contains ERP login and browser settings.
type JDEConfig struct {
	Address  string `yaml:"address" envconfig:"ADDRESS"`
	Username string `yaml:"username" envconfig:"USERNAME"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	Company  string `yaml:"company" envconfig:"COMPANY"`
	// LocalRepo is the repository whose same-day records are fetched separately.
	LocalRepo   string        `yaml:"local_repo" envconfig:"LOCAL_REPO"`
	BrowserPath string        `yaml:"browser_path" envconfig:"BROWSER_PATH"`
	Headless    bool          `yaml:"headless" envconfig:"HEADLESS"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
}

// LocatorConfig holds the CSS selectors used to drive the ERP web client.
type LocatorConfig struct {
	MainFrame           string `yaml:"main_frame"`
	UsernameField       string `yaml:"username_field"`
	PasswordField       string `yaml:"password_field"`
	LoginBtn            string `yaml:"login_btn"`
	FavBtn              string `yaml:"fav_btn"`
	FavItem             string `yaml:"fav_item"`
	ExportDataBtn       string `yaml:"export_data_btn"`
	QueryBtn            string `yaml:"query_btn"`
	CloseBtn            string `yaml:"close_btn"`
	GridDownBtn         string `yaml:"grid_down_btn"`
	DownloadBtn         string `yaml:"download_btn"`
	STOrderTypeField    string `yaml:"st_order_type_field"`
	STCompanyField      string `yaml:"st_company_field"`
	STRepoField         string `yaml:"st_repo_field"`
	STExpectedDateField string `yaml:"st_expected_date_field"`
}

// DatabaseConfig configures the optional report sink.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn" envconfig:"DSN"`
	MaxConns int32  `yaml:"max_conns" envconfig:"MAX_CONNS" validate:"gte=0"`
}

// TelemetryConfig configures tracing and metrics.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=none stdout"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
}

// Load builds the configuration from defaults, the first config file found,
// .env and DPT_* environment variables, in that order.
func Load() (*Config, error) {
	return LoadFile(getConfigFilePath())
}

// LoadFile is Load with an explicit config file. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// .env is optional; variables already set in the process win.
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// validate validates the configuration
func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(c.Paths.LogsDir, "dpt.log")
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	var locations []string
	if paths, err := GetPaths(); err == nil {
		locations = append(locations, filepath.Join(paths.ExecutableDir, "config.yaml"))
	}
	locations = append(locations,
		"config.yaml",
		"configs/config.yaml",
	)

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  256 << 20,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     10,
				Burst:   20,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/dpt.log",
		},
		Paths: PathsConfig{
			DataDir: "data",
			LogsDir: "logs",
		},
		Aggregate: AggregateConfig{
			Encoding:   "GB18030",
			Warehouses: []uint16{11751, 11752, 11753, 11754, 11755, 11756, 11759},
		},
		Convert: ConvertConfig{
			Sheet:    "Sheet1",
			Encoding: "GB18030",
		},
		JDE: JDEConfig{
			Company:   "00117",
			LocalRepo: "11751",
			Headless:  true,
			Timeout:   5 * time.Minute,
		},
		Locator: DefaultLocators(),
		Database: DatabaseConfig{
			MaxConns: 4,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "dpt",
			TraceExporter:  "none",
			MetricsEnabled: true,
		},
	}
}

// DefaultLocators returns the selectors of the stock E1 web client.
func DefaultLocators() LocatorConfig {
	return LocatorConfig{
		MainFrame:           "#e1menuAppIframe",
		UsernameField:       "#User",
		PasswordField:       "#Password",
		LoginBtn:            ".buttonstylenormal.margin-top5",
		FavBtn:              "#drop_fav_menus",
		FavItem:             "#fav_menus li:nth-child(2) a",
		ExportDataBtn:       "#jdehtmlExportData",
		QueryBtn:            "#hc_Find",
		CloseBtn:            "#hc_Close",
		GridDownBtn:         "#GOTOLAST0_1",
		DownloadBtn:         "#hc1",
		STOrderTypeField:    "#C0_13",
		STCompanyField:      "input[name='qbe0_1.9']",
		STRepoField:         "input[name='qbe0_1.10']",
		STExpectedDateField: "input[name='qbe0_1.11']",
	}
}
