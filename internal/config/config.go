package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gigworks/marketplace-core/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Gateway  GatewayConfig  `yaml:"gateway"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Payments PaymentsConfig `yaml:"payments"`
	Sweeps   SweepsConfig   `yaml:"sweeps"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds the notification publisher configuration.
// The core only publishes; delivery is an external collaborator.
type RabbitMQConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	User              string        `yaml:"user"`
	Password          string        `yaml:"password"`
	VHost             string        `yaml:"vhost"`
	Exchange          string        `yaml:"exchange"`
	NotifyRoutingKey  string        `yaml:"notify_routing_key"`
	AdminRoutingKey   string        `yaml:"admin_routing_key"`
	ReportRoutingKey  string        `yaml:"report_routing_key"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// GatewayConfig holds the payment gateway adapter configuration.
type GatewayConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	WebhookSecret  string        `yaml:"webhook_secret"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ScoringConfig holds quality score weights and windows.
type ScoringConfig struct {
	Weights          domain.ScoreWeights `yaml:"weights"`
	LockHours        int                 `yaml:"lock_hours"`
	MinimumForPayout float64             `yaml:"minimum_for_payout"`
}

// ComplaintWindow is the duration a customer may dispute quality.
func (s ScoringConfig) ComplaintWindow() time.Duration {
	return time.Duration(s.LockHours) * time.Hour
}

// PaymentsConfig holds split percentages and release timing.
type PaymentsConfig struct {
	CheckinPercent        int `yaml:"checkin_percent"`
	CompletionPercent     int `yaml:"completion_percent"`
	ReleaseHours          int `yaml:"release_hours"`
	TransferExpiryMinutes int `yaml:"transfer_expiry_minutes"`
}

// TransferExpiry is the age past which a pending direct offer expires.
func (p PaymentsConfig) TransferExpiry() time.Duration {
	return time.Duration(p.TransferExpiryMinutes) * time.Minute
}

// SweepsConfig holds the three sweep schedules in cron syntax.
type SweepsConfig struct {
	ReleaseSchedule        string `yaml:"release_schedule"`
	TransferExpirySchedule string `yaml:"transfer_expiry_schedule"`
	ReportSchedule         string `yaml:"report_schedule"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// ValidateAPIConfig checks the fields the API service depends on.
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateShared(); err != nil {
		return err
	}

	if c.Gateway.WebhookSecret == "" {
		return fmt.Errorf("gateway webhook secret is required")
	}

	return nil
}

// ValidateSweeperConfig checks the fields the sweeper service depends on.
func (c *Config) ValidateSweeperConfig() error {
	if err := c.validateShared(); err != nil {
		return err
	}

	if c.Sweeps.ReleaseSchedule == "" {
		return fmt.Errorf("release sweep schedule is required")
	}

	if c.Sweeps.TransferExpirySchedule == "" {
		return fmt.Errorf("transfer expiry sweep schedule is required")
	}

	if c.Sweeps.ReportSchedule == "" {
		return fmt.Errorf("report schedule is required")
	}

	return nil
}

func (c *Config) validateShared() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	return c.ValidateBusinessRules()
}

// ValidateBusinessRules checks the scoring and payment invariants.
// A weight sum other than exactly 1.0 must never reach runtime.
func (c *Config) ValidateBusinessRules() error {
	if math.Abs(c.Scoring.Weights.Sum()-1.0) > 1e-9 {
		return domain.NewInvariantViolation("score weights sum to %v, want 1.0", c.Scoring.Weights.Sum())
	}

	if c.Scoring.LockHours <= 0 {
		return fmt.Errorf("scoring lock_hours must be greater than 0")
	}

	if c.Scoring.MinimumForPayout < domain.ScoreMin || c.Scoring.MinimumForPayout > domain.ScoreMax {
		return fmt.Errorf("scoring minimum_for_payout must be within [%v, %v]", domain.ScoreMin, domain.ScoreMax)
	}

	if c.Payments.CheckinPercent <= 0 || c.Payments.CompletionPercent <= 0 {
		return fmt.Errorf("split percentages must be greater than 0")
	}

	if c.Payments.CheckinPercent+c.Payments.CompletionPercent != 100 {
		return fmt.Errorf("split percentages sum to %d, want 100", c.Payments.CheckinPercent+c.Payments.CompletionPercent)
	}

	if c.Payments.ReleaseHours < c.Scoring.LockHours {
		return fmt.Errorf("release_hours (%d) must not precede lock_hours (%d)", c.Payments.ReleaseHours, c.Scoring.LockHours)
	}

	if c.Payments.TransferExpiryMinutes <= 0 {
		return fmt.Errorf("transfer_expiry_minutes must be greater than 0")
	}

	return nil
}
