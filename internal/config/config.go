// Package config loads the settings of the ddssim and ddsctl commands: a JSON
// file overlaid with environment variables, validated before use.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"dds-rpc/loadbalance"
	"dds-rpc/simulator"

	"go.uber.org/zap"
)

// DefaultPath is read when no path is given and the file exists. ddssim and
// ddsctl share it.
const DefaultPath = "dds.json"

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig     `json:"server"`
	Portmap   PortmapConfig    `json:"portmap"`
	Registry  RegistryConfig   `json:"registry"`
	Gateway   GatewayConfig    `json:"gateway"`
	Log       LogConfig        `json:"log"`
	Simulator simulator.Config `json:"simulator"`
}

// ServerConfig holds the ONC RPC listener of the simulator.
type ServerConfig struct {
	Listen          string   `json:"listen"`
	Advertise       string   `json:"advertise"` // address registered in etcd; defaults to Listen
	ServiceName     string   `json:"serviceName"`
	Weight          int      `json:"weight"`
	RateLimit       float64  `json:"rateLimit"` // calls per second, 0 disables
	RateBurst       int      `json:"rateBurst"`
	CallTimeout     Duration `json:"callTimeout"`
	ShutdownTimeout Duration `json:"shutdownTimeout"`
}

// PortmapConfig enables the built-in portmapper.
type PortmapConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
}

// RegistryConfig points at the etcd cluster. No endpoints disables it.
type RegistryConfig struct {
	Endpoints []string `json:"endpoints"`
	TTL       int64    `json:"ttl"`
	Balancer  string   `json:"balancer"`
}

// GatewayConfig holds the JSON-RPC listener of ddsctl gateway.
type GatewayConfig struct {
	Listen string `json:"listen"`
}

type LogConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// Duration is a time.Duration written as "25s" in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load builds the configuration from defaults, the JSON file at path and
// the environment, in that order. An empty path reads DefaultPath when it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = DefaultPath
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
	case path == "" && errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := applyEnvironmentOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvironmentOverrides overlays the environment. DDS_* variables are
// read by both commands, DDSSIM_* only matter to the simulator and DDSCTL_*
// to ddsctl.
func applyEnvironmentOverrides(cfg *Config) error {
	if v, ok := os.LookupEnv("DDSSIM_LISTEN"); ok {
		cfg.Server.Listen = v
	}
	if v, ok := os.LookupEnv("DDSSIM_PORTMAP_LISTEN"); ok {
		cfg.Portmap.Listen = v
		cfg.Portmap.Enabled = v != ""
	}
	if v, ok := os.LookupEnv("DDS_REGISTRY_ENDPOINTS"); ok {
		cfg.Registry.Endpoints = splitList(v)
	}
	if v, ok := os.LookupEnv("DDS_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv("DDSSIM_RATE_LIMIT"); ok {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("DDSSIM_RATE_LIMIT: %w", err)
		}
		cfg.Server.RateLimit = r
	}
	if v, ok := os.LookupEnv("DDSCTL_GATEWAY_LISTEN"); ok {
		cfg.Gateway.Listen = v
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("server.listen: %w", err)
	}
	if c.Server.ServiceName == "" {
		return errors.New("server.serviceName is empty")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit %v is negative", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("server.rateBurst must be at least 1 when rate limiting")
	}
	if c.Server.CallTimeout < 0 || c.Server.ShutdownTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if c.Portmap.Enabled {
		if _, _, err := net.SplitHostPort(c.Portmap.Listen); err != nil {
			return fmt.Errorf("portmap.listen: %w", err)
		}
	}
	if len(c.Registry.Endpoints) > 0 && c.Registry.TTL <= 0 {
		return fmt.Errorf("registry.ttl %d must be positive", c.Registry.TTL)
	}
	if _, err := loadbalance.New(c.Registry.Balancer); err != nil {
		return fmt.Errorf("registry.balancer: %w", err)
	}
	if _, _, err := net.SplitHostPort(c.Gateway.Listen); err != nil {
		return fmt.Errorf("gateway.listen: %w", err)
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if err := c.Simulator.Validate(); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	return nil
}

// AdvertiseAddr is the address registered in etcd.
func (c *Config) AdvertiseAddr() string {
	if c.Server.Advertise != "" {
		return c.Server.Advertise
	}
	return c.Server.Listen
}
