package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "QAJA"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Backup    BackupConfig    `yaml:"backup" envconfig:"BACKUP"`
	Export    ExportConfig    `yaml:"export" envconfig:"EXPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Cache     CacheConfig     `yaml:"cache" envconfig:"CACHE"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"3000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"20s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" envconfig:"MAX_BODY_BYTES" default:"10485760"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"*"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
	KeyGuard       KeyGuardConfig  `yaml:"key_guard" envconfig:"KEY_GUARD"`
	// AdminKeyHashes holds bcrypt hashes of the keys accepted on /admin.
	// An empty list leaves the admin routes open.
	AdminKeyHashes []string `yaml:"admin_key_hashes" envconfig:"ADMIN_KEY_HASHES"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"50"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"100"`
}

// KeyGuardConfig limits unknown-key validations per client
type KeyGuardConfig struct {
	Enabled       bool          `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	MaxFailures   int           `yaml:"max_failures" envconfig:"MAX_FAILURES" default:"20"`
	Window        time.Duration `yaml:"window" envconfig:"WINDOW" default:"10m"`
	BlockDuration time.Duration `yaml:"block_duration" envconfig:"BLOCK_DURATION" default:"15m"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/license-server.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir             string `yaml:"data_dir" envconfig:"DATA_DIR" default:"."`
	DatabaseFile        string `yaml:"database_file" envconfig:"DATABASE_FILE" default:"licenses.json"`
	EmergencyBackupFile string `yaml:"emergency_backup_file" envconfig:"EMERGENCY_BACKUP_FILE" default:"emergency_backup.json"`
	LogsDir             string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// StorageConfig selects the medium holding the license document
type StorageConfig struct {
	Driver        string `yaml:"driver" envconfig:"DRIVER" default:"file"`
	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB" default:"0"`
	RedisKey      string `yaml:"redis_key" envconfig:"REDIS_KEY" default:"qaja:licenses"`
	// EnvSeed is a base64 encoded document used to bootstrap an empty store.
	// It keeps the legacy variable name so existing deployments keep working.
	EnvSeed string `yaml:"-" envconfig:"DATABASE_BACKUP" ignored:"true"`
}

// BackupConfig contains the scheduled backup configuration
type BackupConfig struct {
	Enabled   bool     `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	Schedule  string   `yaml:"schedule" envconfig:"SCHEDULE" default:"@daily"`
	TimeZone  string   `yaml:"time_zone" envconfig:"TIME_ZONE"`
	LocalDir  string   `yaml:"local_dir" envconfig:"LOCAL_DIR" default:"backups"`
	Retention int      `yaml:"retention" envconfig:"RETENTION" default:"14"`
	S3        S3Config `yaml:"s3" envconfig:"S3"`
}

// S3Config describes an optional off-host backup bucket
type S3Config struct {
	Enabled         bool   `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	Bucket          string `yaml:"bucket" envconfig:"BUCKET"`
	Prefix          string `yaml:"prefix" envconfig:"PREFIX" default:"license-backups/"`
	Region          string `yaml:"region" envconfig:"REGION" default:"us-east-1"`
	Endpoint        string `yaml:"endpoint" envconfig:"ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `yaml:"use_path_style" envconfig:"USE_PATH_STYLE" default:"false"`
}

// ExportConfig contains customer export targets
type ExportConfig struct {
	SheetsSpreadsheetID string `yaml:"sheets_spreadsheet_id" envconfig:"SHEETS_SPREADSHEET_ID"`
	SheetsSheetName     string `yaml:"sheets_sheet_name" envconfig:"SHEETS_SHEET_NAME" default:"Customers"`
	SheetsCredentials   string `yaml:"sheets_credentials" envconfig:"SHEETS_CREDENTIALS"`
}

// TelemetryConfig contains OpenTelemetry exporter selection
type TelemetryConfig struct {
	Environment    string  `yaml:"environment" envconfig:"ENVIRONMENT" default:"production"`
	TraceExporter  string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string  `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	SampleRatio    float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" default:"1.0"`
}

// CacheConfig controls the read cache used by reporting endpoints
type CacheConfig struct {
	SnapshotTTL time.Duration `yaml:"snapshot_ttl" envconfig:"SNAPSHOT_TTL" default:"5s"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
}

// Load loads configuration from environment variables and an optional YAML file.
// Environment variables take precedence over the file, the file over defaults.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	cfg.Storage.EnvSeed = os.Getenv(EnvSeedVariable)

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays non-zero file values onto envConfig for every field
// whose environment variable was not explicitly set.
func mergeConfigs(fileConfig, envConfig Config) Config {
	mergeStruct(reflect.ValueOf(&envConfig).Elem(), reflect.ValueOf(fileConfig), EnvPrefix)
	return envConfig
}

func mergeStruct(dst, src reflect.Value, prefix string) {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("envconfig")
		if tag == "" || field.Tag.Get("ignored") == "true" {
			continue
		}
		key := prefix + "_" + tag

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			mergeStruct(dst.Field(i), src.Field(i), key)
			continue
		}

		if _, set := os.LookupEnv(key); set {
			continue
		}
		if !src.Field(i).IsZero() {
			dst.Field(i).Set(src.Field(i))
		}
	}
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

	if c.Paths.DatabaseFile == "" {
		return fmt.Errorf("database file must be specified")
	}

	switch c.Storage.Driver {
	case StorageDriverFile, StorageDriverRedis:
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}

	if c.Backup.Enabled && strings.TrimSpace(c.Backup.Schedule) == "" {
		return fmt.Errorf("backup schedule must be set when backups are enabled")
	}

	if c.Backup.S3.Enabled && c.Backup.S3.Bucket == "" {
		return fmt.Errorf("backup s3 bucket must be set when the s3 target is enabled")
	}

	if c.Security.KeyGuard.Enabled && c.Security.KeyGuard.MaxFailures <= 0 {
		return fmt.Errorf("key guard max failures must be positive")
	}

	if c.Security.RateLimit.Enabled && c.Security.RateLimit.RPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if explicit := os.Getenv(EnvPrefix + "_CONFIG_FILE"); explicit != "" {
		return explicit
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

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
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  20 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   100,
			},
			KeyGuard: KeyGuardConfig{
				Enabled:       true,
				MaxFailures:   20,
				Window:        10 * time.Minute,
				BlockDuration: 15 * time.Minute,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/license-server.log",
		},
		Paths: PathsConfig{
			DataDir:             ".",
			DatabaseFile:        "licenses.json",
			EmergencyBackupFile: "emergency_backup.json",
			LogsDir:             "logs",
		},
		Storage: StorageConfig{
			Driver:    StorageDriverFile,
			RedisAddr: "localhost:6379",
			RedisKey:  "qaja:licenses",
		},
		Backup: BackupConfig{
			Enabled:   true,
			Schedule:  "@daily",
			LocalDir:  "backups",
			Retention: 14,
			S3: S3Config{
				Prefix: "license-backups/",
				Region: "us-east-1",
			},
		},
		Export: ExportConfig{
			SheetsSheetName: "Customers",
		},
		Telemetry: TelemetryConfig{
			Environment:    "production",
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			SampleRatio:    1.0,
		},
		Cache: CacheConfig{
			SnapshotTTL: 5 * time.Second,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}
