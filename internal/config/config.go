package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Convert    ConvertConfig
	Worker     WorkerConfig
	SMTP       SMTPConfig
	Prometheus PrometheusConfig
}

// AppConfig holds application settings
type AppConfig struct {
	Env          string
	Port         int
	Name         string
	LogLevel     string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

// DatabaseConfig holds database settings. An empty Host keeps jobs in memory.
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// ConvertConfig holds conversion settings
type ConvertConfig struct {
	UploadPath    string
	OutputPath    string
	SampleLines   int
	MaxFileSizeMB int
	SheetName     string
	Pattern       string
}

// WorkerConfig holds worker pool settings
type WorkerConfig struct {
	Workers   int
	QueueSize int
}

// SMTPConfig holds outgoing mail settings
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	TLSPolicy string // mandatory, opportunistic, none
	Timeout   time.Duration
	// MailTo is the comma or semicolon separated default recipient list
	MailTo string
}

// PrometheusConfig holds Prometheus settings
type PrometheusConfig struct {
	Enabled bool
}

// Load loads configuration from environment variables, seeding them from a
// .env file in the working directory when one exists.
func Load() (*Config, error) {
	// Existing environment variables win over the file
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env:          getEnv("APP_ENV", "development"),
			Port:         getEnvAsInt("APP_PORT", 8080),
			Name:         getEnv("APP_NAME", "sheetconv"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ReadTimeout:  getEnvAsInt("APP_READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("APP_WRITE_TIMEOUT", 120),
			IdleTimeout:  getEnvAsInt("APP_IDLE_TIMEOUT", 120),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", ""),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "sheetconv"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Convert: ConvertConfig{
			UploadPath:    getEnv("UPLOAD_PATH", "./uploads"),
			OutputPath:    getEnv("OUTPUT_PATH", "./converted"),
			SampleLines:   getEnvAsInt("SAMPLE_LINES", 2),
			MaxFileSizeMB: getEnvAsInt("MAX_FILE_SIZE_MB", 100),
			SheetName:     getEnv("SHEET_NAME", ""),
			Pattern:       getEnv("INPUT_PATTERN", ""),
		},
		Worker: WorkerConfig{
			Workers:   getEnvAsInt("CONVERT_WORKERS", 4),
			QueueSize: getEnvAsInt("WORKER_QUEUE_SIZE", 100),
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			From:      getEnv("SMTP_FROM", ""),
			TLSPolicy: getEnv("SMTP_TLS_POLICY", "mandatory"),
			Timeout:   time.Duration(getEnvAsInt("SMTP_TIMEOUT_SECONDS", 30)) * time.Second,
			MailTo:    getEnv("MAIL_TO", ""),
		},
		Prometheus: PrometheusConfig{
			Enabled: getEnvAsBool("PROMETHEUS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail later in confusing ways
func (c *Config) Validate() error {
	if c.Convert.SampleLines < 1 {
		return fmt.Errorf("SAMPLE_LINES must be at least 1, got %d", c.Convert.SampleLines)
	}
	if c.Worker.Workers < 1 {
		return fmt.Errorf("CONVERT_WORKERS must be at least 1, got %d", c.Worker.Workers)
	}
	if c.Worker.QueueSize < 1 {
		return fmt.Errorf("WORKER_QUEUE_SIZE must be at least 1, got %d", c.Worker.QueueSize)
	}
	switch c.SMTP.TLSPolicy {
	case "mandatory", "opportunistic", "none":
	default:
		return fmt.Errorf("SMTP_TLS_POLICY must be mandatory, opportunistic or none, got %q", c.SMTP.TLSPolicy)
	}
	return nil
}

// EnsureDirs creates the upload and output directories
func (c *ConvertConfig) EnsureDirs() error {
	if err := os.MkdirAll(c.UploadPath, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.MkdirAll(c.OutputPath, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// MaxFileSize returns the upload limit in bytes
func (c *ConvertConfig) MaxFileSize() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Enabled reports whether a database has been configured
func (c *DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Enabled reports whether outgoing mail has been configured
func (c *SMTPConfig) Enabled() bool {
	return c.Host != ""
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(strValue)
	if err != nil {
		return defaultValue
	}
	return boolValue
}
