package config

import (
	"fmt"
	"time"
)

// Config is the daemon configuration.
type Config struct {
	Host           string `json:"host" toml:"host"`
	Port           int    `json:"port" toml:"port"`
	APIPrefix      string `json:"apiPrefix" toml:"api_prefix"`
	LogLevel       string `json:"logLevel" toml:"log_level"`
	MaxBodySize    int64  `json:"maxBodySize" toml:"max_body_size"`
	RequestTimeout int    `json:"requestTimeout" toml:"request_timeout"` // ms
	EnableWS       bool   `json:"enableWs" toml:"enable_ws"`
}

// Default values
const (
	DefaultHost           = "localhost"
	DefaultPort           = 8080
	DefaultLogLevel       = "info"
	DefaultMaxBodySize    = int64(0) // 0 means no limit
	DefaultRequestTimeout = 5000     // ms
)

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
