package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/claude/posetrack/internal/motion"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Tracking  TrackingConfig  `yaml:"tracking"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// TailscaleConfig serves the API on a tailnet instead of a plain listener.
type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
	AuthKey  string `yaml:"auth_key"`
}

// TrackingConfig tunes the frame pipeline. Defaults are loaded before the
// YAML file, so a config file only states what it changes. Profiles override
// the defaults per exercise type.
type TrackingConfig struct {
	SmoothingAlpha float64  `yaml:"smoothing_alpha"`
	MinConfidence  float64  `yaml:"min_confidence"`
	UpperThreshold float64  `yaml:"upper_threshold"`
	LowerThreshold float64  `yaml:"lower_threshold"`
	CooldownMs     int      `yaml:"cooldown_ms"`
	Joints         []string `yaml:"joints"`
	Axis           string   `yaml:"axis"`
	CountOn        string   `yaml:"count_on"`

	// IdleTimeoutSec auto-finalizes live sessions that stop receiving
	// frames. 0 disables the sweep.
	IdleTimeoutSec int `yaml:"idle_timeout_sec"`

	Profiles map[string]TrackingProfile `yaml:"profiles"`
}

// TrackingProfile overrides individual tracking settings for one exercise
// type. Nil fields inherit the defaults.
type TrackingProfile struct {
	SmoothingAlpha *float64 `yaml:"smoothing_alpha"`
	MinConfidence  *float64 `yaml:"min_confidence"`
	UpperThreshold *float64 `yaml:"upper_threshold"`
	LowerThreshold *float64 `yaml:"lower_threshold"`
	CooldownMs     *int     `yaml:"cooldown_ms"`
	Joints         []string `yaml:"joints"`
	Axis           *string  `yaml:"axis"`
	CountOn        *string  `yaml:"count_on"`
}

// DefaultTracking mirrors motion.DefaultConfig in config-file form.
func DefaultTracking() TrackingConfig {
	base := motion.DefaultConfig()
	return TrackingConfig{
		SmoothingAlpha: base.SmoothingAlpha,
		MinConfidence:  base.MinConfidence,
		UpperThreshold: base.UpperThreshold,
		LowerThreshold: base.LowerThreshold,
		CooldownMs:     int(base.Cooldown / time.Millisecond),
		Joints:         base.Joints,
		Axis:           string(base.Axis),
		CountOn:        string(base.CountOn),
		IdleTimeoutSec: 120,
	}
}

// Resolve returns the motion config for an exercise type, applying its
// profile over the defaults.
func (t TrackingConfig) Resolve(exerciseType string) motion.Config {
	cfg := motion.Config{
		SmoothingAlpha: t.SmoothingAlpha,
		MinConfidence:  t.MinConfidence,
		UpperThreshold: t.UpperThreshold,
		LowerThreshold: t.LowerThreshold,
		Cooldown:       time.Duration(t.CooldownMs) * time.Millisecond,
		Joints:         t.Joints,
		Axis:           motion.Axis(t.Axis),
		CountOn:        motion.CountDirection(t.CountOn),
	}

	p, ok := t.Profiles[exerciseType]
	if !ok {
		return cfg
	}
	if p.SmoothingAlpha != nil {
		cfg.SmoothingAlpha = *p.SmoothingAlpha
	}
	if p.MinConfidence != nil {
		cfg.MinConfidence = *p.MinConfidence
	}
	if p.UpperThreshold != nil {
		cfg.UpperThreshold = *p.UpperThreshold
	}
	if p.LowerThreshold != nil {
		cfg.LowerThreshold = *p.LowerThreshold
	}
	if p.CooldownMs != nil {
		cfg.Cooldown = time.Duration(*p.CooldownMs) * time.Millisecond
	}
	if len(p.Joints) > 0 {
		cfg.Joints = p.Joints
	}
	if p.Axis != nil {
		cfg.Axis = motion.Axis(*p.Axis)
	}
	if p.CountOn != nil {
		cfg.CountOn = motion.CountDirection(*p.CountOn)
	}
	return cfg
}

// IdleTimeout returns the live-session idle sweep threshold, 0 when disabled.
func (t TrackingConfig) IdleTimeout() time.Duration {
	return time.Duration(t.IdleTimeoutSec) * time.Second
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix POSETRACK_ and underscore-separated paths:
//
//	POSETRACK_SERVER_HOST, POSETRACK_SERVER_PORT,
//	POSETRACK_DB_HOST, POSETRACK_DB_PORT, POSETRACK_DB_NAME,
//	POSETRACK_DB_USER, POSETRACK_DB_PASSWORD, POSETRACK_DB_SSLMODE,
//	POSETRACK_AUTH_API_KEY, POSETRACK_TS_HOSTNAME, POSETRACK_TS_AUTHKEY
//
// Tracking tuning has no env form; it lives in the file.
func Load(path string) (*Config, error) {
	cfg := &Config{Tracking: DefaultTracking()}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POSETRACK_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("POSETRACK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("POSETRACK_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("POSETRACK_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("POSETRACK_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("POSETRACK_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("POSETRACK_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("POSETRACK_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("POSETRACK_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("POSETRACK_TS_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("POSETRACK_TS_AUTHKEY"); v != "" {
		cfg.Tailscale.AuthKey = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	if err := c.Tracking.Resolve("").Validate(); err != nil {
		return fmt.Errorf("tracking defaults: %w", err)
	}
	for name := range c.Tracking.Profiles {
		if err := c.Tracking.Resolve(name).Validate(); err != nil {
			return fmt.Errorf("tracking profile %q: %w", name, err)
		}
	}
	return nil
}
