package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DemoConfig holds configuration for the authbridge-demo host command.
type DemoConfig struct {
	AppID            string        `yaml:"app_id"`
	SurfaceOrigin    string        `yaml:"surface_origin"`
	Network          string        `yaml:"network"`
	Scopes           []string      `yaml:"scopes"`
	PreferPopup      bool          `yaml:"prefer_popup"`
	Timeout          time.Duration `yaml:"timeout"`
	DetectionTimeout time.Duration `yaml:"detection_timeout"`
	Debug            bool          `yaml:"debug"`
	LogLevel         string        `yaml:"log_level"`
	RedisAddr        string        `yaml:"redis_addr"`
	MetricsAddr      string        `yaml:"metrics_addr"`
	ConfigFile       string        `yaml:"-"`
}

// SetDefaults initializes c with built-in defaults.
func (c *DemoConfig) SetDefaults() {
	if c.Network == "" {
		c.Network = "primary"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Scopes == nil {
		c.Scopes = []string{"identity"}
	}
}

// ApplyEnv overlays environment variables onto the current values.
func (c *DemoConfig) ApplyEnv() {
	if v := getEnv("CONFIG_FILE", ""); v != "" {
		c.ConfigFile = v
	}
	if v := getEnv("APP_ID", ""); v != "" {
		c.AppID = v
	}
	if v := getEnv("SURFACE_ORIGIN", ""); v != "" {
		c.SurfaceOrigin = v
	}
	if v := getEnv("NETWORK", ""); v != "" {
		c.Network = v
	}
	if v := getEnv("SCOPES", ""); v != "" {
		c.Scopes = splitComma(v)
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("REDIS_ADDR", ""); v != "" {
		c.RedisAddr = v
	}
	if v := getEnv("METRICS_ADDR", ""); v != "" {
		c.MetricsAddr = v
	}
	if v := getEnv("TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v := getEnv("DETECTION_TIMEOUT", ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.DetectionTimeout = d
		}
	}
}

// BindFlags binds command line flags using the current values as
// defaults so main can call flag.Parse().
func (c *DemoConfig) BindFlags() {
	flag.StringVar(&c.ConfigFile, "config", c.ConfigFile, "config file path")
	flag.StringVar(&c.AppID, "app-id", c.AppID, "application identifier sent to the surface")
	flag.StringVar(&c.SurfaceOrigin, "surface-origin", c.SurfaceOrigin, "override the surface origin (must be allow-listed)")
	flag.StringVar(&c.Network, "network", c.Network, "surface network (primary, secondary-test)")
	flag.Func("scopes", "comma separated list of requested scopes", func(v string) error {
		c.Scopes = splitComma(v)
		return nil
	})
	flag.BoolVar(&c.PreferPopup, "prefer-popup", c.PreferPopup, "skip the embedded attempt and open a window directly")
	flag.DurationVar(&c.Timeout, "timeout", c.Timeout, "overall session timeout")
	flag.DurationVar(&c.DetectionTimeout, "detection-timeout", c.DetectionTimeout, "embedded transport detection window")
	flag.BoolVar(&c.Debug, "debug", c.Debug, "log dropped protocol messages")
	flag.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log verbosity (all, debug, info, warn, error, fatal, none)")
	flag.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "redis address for the profile cache; empty disables caching")
	flag.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "prometheus metrics listen address; empty disables metrics")
}

// LoadFile overlays values from the YAML config file, if one is set
// and exists.
func (c *DemoConfig) LoadFile() error {
	if c.ConfigFile == "" {
		return nil
	}
	b, err := os.ReadFile(c.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(b, c)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitComma(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
