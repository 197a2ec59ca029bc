// Package config handles configuration for the relay server, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"fmt"
	"time"
)

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
	LogFormatZap  = "zap"
)

// Config holds runtime settings for the relay.
//
// Fields:
//   - HTTPAddr / GRPCAddr: bind addresses of the REST+WebSocket and gRPC endpoints.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory repositories.
//   - SecretKey: HMAC secret for signing JWTs (HS256).
//   - S3*: object storage settings. An empty S3Bucket disables uploads.
//   - PublicURL: base URL clients use to fetch uploaded files.
//   - AMQPURL / AMQPExchange: optional RabbitMQ event publishing.
//   - HistoryLimit: number of messages replayed to a peer on join.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	DatabaseDSN string

	SecretKey                   string
	AccessTokenValidityDuration time.Duration

	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	PublicURL      string
	MaxUploadSize  int64

	AMQPURL      string
	AMQPExchange string

	HistoryLimit int
	FAQPath      string

	LogFormat string
	LogLevel  string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret and S3 credentials are insecure and must be overridden in production.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.GRPCAddr = ":50051"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 24 * time.Hour
	c.S3AccessKey = "admin"
	c.S3SecretKey = "secretpassword"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.PublicURL = "http://127.0.0.1:8080"
	c.MaxUploadSize = 25 << 20
	c.AMQPExchange = "auctionchat.events"
	c.HistoryLimit = 50
	c.LogFormat = LogFormatText
	c.LogLevel = "info"
}

// Validate rejects unknown log formats and unusable limits.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON, LogFormatZap:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key is required")
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("access token validity must be positive")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history limit must not be negative")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	return nil
}

// MediaEnabled reports whether object storage is configured.
func (c *Config) MediaEnabled() bool {
	return c.S3Bucket != ""
}

// Load builds a Config by applying defaults, then overlaying values from
// the JSON file named by -c/-config and finally from the flags in args.
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
