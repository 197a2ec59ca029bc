package config

import (
	"fmt"
	"time"
)

const (
	TransportWS   = "ws"
	TransportGRPC = "grpc"

	UploaderMultipart = "multipart"
	UploaderPresigned = "presigned"
)

// Config holds runtime settings for the chat CLI.
type Config struct {
	ServerURL    string
	WebSocketURL string
	GRPCAddr     string
	Transport    string

	Username string

	CacheDSN   string
	AllowMedia bool
	Uploader   string

	AckTimeout       time.Duration
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
	RequestTimeout   time.Duration

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.WebSocketURL = "ws://127.0.0.1:8080/ws"
	c.GRPCAddr = "127.0.0.1:50051"
	c.Transport = TransportWS
	c.CacheDSN = "chatcache/messages.db"
	c.AllowMedia = true
	c.Uploader = UploaderMultipart
	c.AckTimeout = 10 * time.Second
	c.ReconnectInitial = 500 * time.Millisecond
	c.ReconnectMax = 30 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.LogLevel = "info"
}

// Validate rejects unknown enum values and non-positive timeouts.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportWS, TransportGRPC:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	switch c.Uploader {
	case UploaderMultipart, UploaderPresigned:
	default:
		return fmt.Errorf("unknown uploader %q", c.Uploader)
	}
	if c.AckTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.ReconnectMax < c.ReconnectInitial {
		return fmt.Errorf("reconnect_max %s is below reconnect_initial %s", c.ReconnectMax, c.ReconnectInitial)
	}
	return nil
}

// Load builds a Config from defaults, the JSON file named by -c/-config and
// the flags in args (without the program name).
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
