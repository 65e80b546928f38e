package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"roombook/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig         `yaml:"app"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Backup      BackupConfig      `yaml:"backup"`
	Monitoring  MonitoringConfig  `yaml:"monitoring"`
	Logging     LoggingConfig     `yaml:"logging"`
	API         APIConfig         `yaml:"api"`
	Booking     BookingConfig     `yaml:"booking"`
	AutoRelease AutoReleaseConfig `yaml:"auto_release"`
	Rooms       []models.Room     `yaml:"rooms"`
}

type BookingConfig struct {
	OpenHour          int    `yaml:"open_hour"`
	CloseHour         int    `yaml:"close_hour"`
	Timezone          string `yaml:"timezone"`
	GraceMinutes      int    `yaml:"grace_minutes"`
	CodePrefix        string `yaml:"code_prefix"`
	CreateRateLimit   int    `yaml:"create_rate_limit"`
	CreateRateWindow  int    `yaml:"create_rate_window"`
	QuickSlotsLimit   int    `yaml:"quick_slots_limit"`
	MaxAdvanceDays    int    `yaml:"max_advance_days"`
	AllowPastBookings bool   `yaml:"allow_past_bookings"`
}

// Location resolves the configured time zone; empty means UTC.
func (b BookingConfig) Location() (*time.Location, error) {
	if b.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(b.Timezone)
}

func (b BookingConfig) GracePeriod() time.Duration {
	return time.Duration(b.GraceMinutes) * time.Minute
}

type AutoReleaseConfig struct {
	Enabled  bool        `yaml:"enabled"`
	Interval string      `yaml:"interval"`
	LockTTL  string      `yaml:"lock_ttl"`
	Retry    RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxRetries    int     `yaml:"max_retries"`
	InitialDelay  string  `yaml:"initial_delay"`
	MaxDelay      string  `yaml:"max_delay"`
	BackoffFactor float64 `yaml:"backoff_factor"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
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
	HeaderUserID string         `yaml:"header_user_id"`
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

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path        string `yaml:"path"`
	BusyTimeout int    `yaml:"busy_timeout_ms"`
}

type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
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
}

func Load(configPath string) (*Config, error) {
	// .env is optional; values already in the environment win.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
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

	b := c.Booking
	if b.OpenHour < 0 || b.CloseHour > 24 || b.OpenHour >= b.CloseHour {
		return fmt.Errorf("invalid booking hours %d-%d", b.OpenHour, b.CloseHour)
	}
	if b.GraceMinutes <= 0 {
		return errors.New("booking grace_minutes must be positive")
	}
	if _, err := b.Location(); err != nil {
		return fmt.Errorf("invalid booking timezone %q: %w", b.Timezone, err)
	}

	for _, raw := range []string{c.AutoRelease.Interval, c.AutoRelease.LockTTL, c.AutoRelease.Retry.InitialDelay, c.AutoRelease.Retry.MaxDelay} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid auto_release duration %q: %w", raw, err)
		}
	}

	return ValidateRooms(c.Rooms)
}

func ValidateRooms(rooms []models.Room) error {
	ids := make(map[string]bool)
	for _, room := range rooms {
		if room.ID == "" {
			return fmt.Errorf("room '%s' has empty ID", room.Name)
		}
		if ids[room.ID] {
			return fmt.Errorf("duplicate room ID found: %s", room.ID)
		}
		ids[room.ID] = true

		if !models.IsValidRoomType(room.Type) {
			return fmt.Errorf("room %s has unknown type %q", room.ID, room.Type)
		}
		if room.Capacity <= 0 {
			return fmt.Errorf("room %s has non-positive capacity %d", room.ID, room.Capacity)
		}
	}
	return nil
}

// Duration parses a config duration, falling back to def when empty or invalid.
func Duration(raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "roombook"
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
	if c.API.Auth.HeaderUserID == "" {
		c.API.Auth.HeaderUserID = "x-user-id"
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = 5000
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "roombook"
	}

	// Booking defaults
	if c.Booking.OpenHour == 0 && c.Booking.CloseHour == 0 {
		c.Booking.OpenHour = models.DefaultOpenHour
		c.Booking.CloseHour = models.DefaultCloseHour
	}
	if c.Booking.GraceMinutes == 0 {
		c.Booking.GraceMinutes = models.DefaultGraceMinutes
	}
	if c.Booking.CodePrefix == "" {
		c.Booking.CodePrefix = models.DefaultCodePrefix
	}
	if c.Booking.CreateRateLimit == 0 {
		c.Booking.CreateRateLimit = models.DefaultCreateRateLimit
	}
	if c.Booking.CreateRateWindow == 0 {
		c.Booking.CreateRateWindow = models.DefaultCreateRateWindow
	}
	if c.Booking.QuickSlotsLimit == 0 {
		c.Booking.QuickSlotsLimit = models.DefaultQuickSlotsLimit
	}

	if c.AutoRelease.Interval == "" {
		c.AutoRelease.Interval = fmt.Sprintf("%ds", models.DefaultAutoReleaseInterval)
	}
	if c.AutoRelease.LockTTL == "" {
		c.AutoRelease.LockTTL = "1m"
	}
	if c.AutoRelease.Retry.MaxRetries == 0 {
		c.AutoRelease.Retry.MaxRetries = 3
	}
	if c.AutoRelease.Retry.InitialDelay == "" {
		c.AutoRelease.Retry.InitialDelay = "5s"
	}
	if c.AutoRelease.Retry.MaxDelay == "" {
		c.AutoRelease.Retry.MaxDelay = "1m"
	}

	if c.Backup.Enabled && c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
}
