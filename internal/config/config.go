package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"hoteldesk/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Audit      AuditConfig      `yaml:"audit"`
	Redis      RedisConfig      `yaml:"redis"`
	Billing    BillingConfig    `yaml:"billing"`
	API        APIConfig        `yaml:"api"`
	RateLimits RateLimitsConfig `yaml:"rate_limits"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuditConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Path           string        `yaml:"path"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BillingConfig struct {
	InvoicePrefix      string  `yaml:"invoice_prefix"`
	Sequencer          string  `yaml:"sequencer"` // scan | counter
	CodeAttempts       int     `yaml:"code_attempts"`
	InsertRetries      int     `yaml:"insert_retries"`
	FinePerHour        float64 `yaml:"fine_per_hour"`
	GracePeriodMinutes int     `yaml:"grace_period_minutes"`
	Timezone           string  `yaml:"timezone"`
}

// Location resolves the hotel timezone, falling back to Local.
func (b BillingConfig) Location() *time.Location {
	if b.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// RateWindow is a fixed-window limit: at most Max requests per Window.
type RateWindow struct {
	Window  time.Duration `yaml:"window"`
	Max     int           `yaml:"max"`
	Message string        `yaml:"message"`
}

type RateLimitsConfig struct {
	Enabled   bool       `yaml:"enabled"`
	API       RateWindow `yaml:"api"`
	Strict    RateWindow `yaml:"strict"`
	Dashboard RateWindow `yaml:"dashboard"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
	Timezone string `yaml:"timezone"`
}

type TelegramConfig struct {
	BotToken     string  `yaml:"bot_token"`
	ManagerChats []int64 `yaml:"manager_chats"`
	Debug        bool    `yaml:"debug"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string          `yaml:"credentials_file"`
	BookingSpreadSheetID  string          `yaml:"bookings_spreadsheet_id"`
	CacheRefresh          time.Duration   `yaml:"cache_refresh"`
	SyncRetry             SyncRetryConfig `yaml:"sync_retry"`
}

// SyncRetryConfig bounds retries of failed Sheets sync tasks. Zero fields use worker defaults.
type SyncRetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	switch c.Billing.Sequencer {
	case "scan", "counter":
	default:
		return fmt.Errorf("unknown billing.sequencer %q", c.Billing.Sequencer)
	}
	if c.Billing.Sequencer == "counter" && c.Redis.Address == "" {
		return errors.New("billing.sequencer=counter requires redis.address")
	}

	if strings.Contains(c.Billing.InvoicePrefix, "/") {
		return errors.New("billing.invoice_prefix must not contain '/'")
	}
	if c.Billing.Timezone != "" {
		if _, err := time.LoadLocation(c.Billing.Timezone); err != nil {
			return fmt.Errorf("billing.timezone: %w", err)
		}
	}
	if c.Billing.FinePerHour < 0 || c.Billing.GracePeriodMinutes < 0 {
		return errors.New("billing fine settings must not be negative")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "hoteldesk"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Audit.Path == "" && c.Database.Path != "" {
		c.Audit.Path = c.Database.Path + ".audit"
	}
	if c.Audit.ConnectTimeout == 0 {
		c.Audit.ConnectTimeout = 5 * time.Second
	}

	// Billing defaults
	if c.Billing.InvoicePrefix == "" {
		c.Billing.InvoicePrefix = models.DefaultInvoicePrefix
	}
	if c.Billing.Sequencer == "" {
		c.Billing.Sequencer = "scan"
	}
	if c.Billing.CodeAttempts == 0 {
		c.Billing.CodeAttempts = 10
	}
	if c.Billing.InsertRetries == 0 {
		c.Billing.InsertRetries = 3
	}
	if c.Billing.FinePerHour == 0 {
		c.Billing.FinePerHour = models.DefaultFinePerHour
	}
	if c.Billing.GracePeriodMinutes == 0 {
		c.Billing.GracePeriodMinutes = models.DefaultGracePeriodMinutes
	}

	// Rate limit tiers
	applyWindowDefaults(&c.RateLimits.API, 15*time.Minute, 100, "Too many requests from this IP, please try again later.")
	applyWindowDefaults(&c.RateLimits.Strict, time.Minute, 10, "Too many requests, please slow down.")
	applyWindowDefaults(&c.RateLimits.Dashboard, 30*time.Second, 20, "Dashboard requests limited, please wait.")

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Logging.Timezone == "" {
		c.Logging.Timezone = c.Billing.Timezone
	}
	if c.Google.CacheRefresh == 0 {
		c.Google.CacheRefresh = 10 * time.Minute
	}
}

func applyWindowDefaults(w *RateWindow, window time.Duration, max int, msg string) {
	if w.Window == 0 {
		w.Window = window
	}
	if w.Max == 0 {
		w.Max = max
	}
	if w.Message == "" {
		w.Message = msg
	}
}
