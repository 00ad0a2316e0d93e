package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{Path: "rpa_database.db"},
		IMAP: IMAPConfig{
			Host:     "imap.gmail.com",
			Port:     993,
			User:     "bot@example.com",
			Password: "secret",
		},
		Automation: AutomationConfig{ButtonSelector: "button", TimeoutSeconds: 10},
		Scheduler:  SchedulerConfig{IntervalSeconds: 60},
		Maintenance: MaintenanceConfig{
			RetentionDays:     30,
			CacheIntervalDays: 7,
			StateDir:          ".",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfigValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing credentials", func(c *Config) { c.IMAP.User = "" }},
		{"missing password", func(c *Config) { c.IMAP.Password = "" }},
		{"missing database path", func(c *Config) { c.Database.Path = "" }},
		{"zero interval", func(c *Config) { c.Scheduler.IntervalSeconds = 0 }},
		{"zero timeout", func(c *Config) { c.Automation.TimeoutSeconds = 0 }},
		{"zero retention", func(c *Config) { c.Maintenance.RetentionDays = 0 }},
		{"zero cache interval", func(c *Config) { c.Maintenance.CacheIntervalDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	auto := AutomationConfig{TimeoutSeconds: 10}
	assert.Equal(t, 10*time.Second, auto.Timeout())

	sched := SchedulerConfig{IntervalSeconds: 60}
	assert.Equal(t, time.Minute, sched.Interval())
}
