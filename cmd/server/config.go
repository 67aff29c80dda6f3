package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/hazyhaar/ckan-mcp/pkg/ckan"
	"gopkg.in/yaml.v3"
)

const (
	transportStdio   = "stdio"
	transportHTTP    = "http"
	transportQUIC    = "quic"
	transportChassis = "chassis"
)

type config struct {
	Transport     string        `yaml:"transport"`
	Addr          string        `yaml:"addr"`
	PortalsFile   string        `yaml:"portals_file"`
	LogLevel      string        `yaml:"log_level"`
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	CheckInterval time.Duration `yaml:"check_interval"`
	TLSCert       string        `yaml:"tls_cert"`
	TLSKey        string        `yaml:"tls_key"`
}

func defaultConfig() config {
	return config{
		Transport: transportStdio,
		Addr:      ":3000",
		LogLevel:  "info",
		Timeout:   ckan.DefaultTimeout,
		UserAgent: ckan.DefaultUserAgent,
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

// applyEnv lets TRANSPORT and PORT override the file.
func (c *config) applyEnv(getenv func(string) string) {
	if t := strings.TrimSpace(getenv("TRANSPORT")); t != "" {
		c.Transport = strings.ToLower(t)
	}
	if p := strings.TrimSpace(getenv("PORT")); p != "" {
		c.Addr = ":" + p
	}
}

func (c config) validate() error {
	switch c.Transport {
	case transportStdio, transportHTTP, transportQUIC, transportChassis:
	default:
		return fmt.Errorf("unknown transport %q (want stdio, http, quic or chassis)", c.Transport)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("tls_cert and tls_key must be set together")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
