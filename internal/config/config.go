package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	IMAP        IMAPConfig        `mapstructure:"imap"`
	SMTP        SMTPConfig        `mapstructure:"smtp"`
	Triage      TriageConfig      `mapstructure:"triage"`
	Automation  AutomationConfig  `mapstructure:"automation"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Report      ReportConfig      `mapstructure:"report"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds SQLite database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// IMAPConfig holds the mailbox account configuration
type IMAPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// SMTPConfig holds the outbound mail transport configuration
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// TriageConfig holds classification and link extraction settings
type TriageConfig struct {
	SenderFilter string `mapstructure:"sender_filter"`
	LinkPattern  string `mapstructure:"link_pattern"`
	LinkPath     string `mapstructure:"link_path"`
}

// AutomationConfig holds browser automation settings
type AutomationConfig struct {
	ButtonSelector string `mapstructure:"button_selector"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	CacheDir       string `mapstructure:"cache_dir"`
}

// SchedulerConfig holds cycle scheduling configuration
type SchedulerConfig struct {
	IntervalSeconds int  `mapstructure:"interval_seconds"`
	RunOnce         bool `mapstructure:"run_once"`
}

// MaintenanceConfig holds retention and cleanup configuration
type MaintenanceConfig struct {
	RetentionDays     int    `mapstructure:"retention_days"`
	CacheIntervalDays int    `mapstructure:"cache_interval_days"`
	StateDir          string `mapstructure:"state_dir"`
}

// ReportConfig holds export artifact configuration
type ReportConfig struct {
	ExportPath string `mapstructure:"export_path"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.path", "rpa_database.db")

	viper.SetDefault("imap.host", "imap.gmail.com")
	viper.SetDefault("imap.port", 993)

	viper.SetDefault("smtp.host", "smtp.gmail.com")
	viper.SetDefault("smtp.port", 587)

	viper.SetDefault("triage.sender_filter", "netflix.com")
	viper.SetDefault("triage.link_pattern", `https?://[^\s<>"]+`)
	viper.SetDefault("triage.link_path", "/account/update-primary-location")

	viper.SetDefault("automation.button_selector", "button")
	viper.SetDefault("automation.timeout_seconds", 10)
	viper.SetDefault("automation.cache_dir", "")

	viper.SetDefault("scheduler.interval_seconds", 60)
	viper.SetDefault("scheduler.run_once", false)

	viper.SetDefault("maintenance.retention_days", 30)
	viper.SetDefault("maintenance.cache_interval_days", 7)
	viper.SetDefault("maintenance.state_dir", ".")

	viper.SetDefault("report.export_path", "reporte_rpa.xlsx")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("database.path", "DATABASE_PATH")

	viper.BindEnv("imap.host", "IMAP_SERVER")
	viper.BindEnv("imap.port", "IMAP_PORT")
	viper.BindEnv("imap.user", "EMAIL_ADDRESS")
	viper.BindEnv("imap.password", "EMAIL_PASSWORD")

	viper.BindEnv("smtp.host", "EMAIL_HOST")
	viper.BindEnv("smtp.port", "EMAIL_PORT")
	viper.BindEnv("smtp.user", "EMAIL_USER")
	viper.BindEnv("smtp.password", "EMAIL_PASS")

	viper.BindEnv("triage.sender_filter", "SENDER_FILTER")
	viper.BindEnv("triage.link_pattern", "LINK_PATTERN")
	viper.BindEnv("triage.link_path", "LINK_PATH")

	viper.BindEnv("automation.button_selector", "BUTTON_SELECTOR")
	viper.BindEnv("automation.timeout_seconds", "TIMEOUT_SECONDS")
	viper.BindEnv("automation.cache_dir", "BROWSER_CACHE_DIR")

	viper.BindEnv("scheduler.interval_seconds", "CYCLE_INTERVAL_SECONDS")
	viper.BindEnv("scheduler.run_once", "RUN_ONCE")

	viper.BindEnv("maintenance.retention_days", "RETENTION_DAYS")
	viper.BindEnv("maintenance.cache_interval_days", "CACHE_CLEANUP_DAYS")
	viper.BindEnv("maintenance.state_dir", "STATE_DIR")

	viper.BindEnv("report.export_path", "EXPORT_PATH")
}

// Timeout returns the automation wait timeout as a duration.
func (c *AutomationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Interval returns the inter-cycle delay as a duration.
func (c *SchedulerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.IMAP.User == "" || c.IMAP.Password == "" {
		return fmt.Errorf("EMAIL_ADDRESS and EMAIL_PASSWORD are required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if c.Scheduler.IntervalSeconds <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	if c.Automation.TimeoutSeconds <= 0 {
		return fmt.Errorf("automation timeout must be greater than 0")
	}

	if c.Maintenance.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be greater than 0")
	}

	if c.Maintenance.CacheIntervalDays <= 0 {
		return fmt.Errorf("cache cleanup interval must be greater than 0")
	}

	return nil
}
