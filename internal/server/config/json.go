package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/auctionchat/internal/flagx"
	"github.com/dmitrijs2005/auctionchat/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. Durations accept both "1s" strings and integer
// nanoseconds. Absent fields keep the values already in Config.
type JsonConfig struct {
	HTTPAddr                    string         `json:"http_addr"`
	GRPCAddr                    string         `json:"grpc_addr"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	S3AccessKey                 string         `json:"s3_access_key"`
	S3SecretKey                 string         `json:"s3_secret_key"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	PublicURL                   string         `json:"public_url"`
	MaxUploadSize               int64          `json:"max_upload_size"`
	AMQPURL                     string         `json:"amqp_url"`
	AMQPExchange                string         `json:"amqp_exchange"`
	HistoryLimit                *int           `json:"history_limit"`
	FAQPath                     string         `json:"faq_path"`
	LogFormat                   string         `json:"log_format"`
	LogLevel                    string         `json:"log_level"`
}

// parseJSON overlays the file named by -c or -config, if any.
func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var j JsonConfig
	if err := json.Unmarshal(b, &j); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.HTTPAddr, j.HTTPAddr)
	setString(&cfg.GRPCAddr, j.GRPCAddr)
	setString(&cfg.DatabaseDSN, j.DatabaseDSN)
	setString(&cfg.SecretKey, j.SecretKey)
	setString(&cfg.S3AccessKey, j.S3AccessKey)
	setString(&cfg.S3SecretKey, j.S3SecretKey)
	setString(&cfg.S3Bucket, j.S3Bucket)
	setString(&cfg.S3Region, j.S3Region)
	setString(&cfg.S3BaseEndpoint, j.S3BaseEndpoint)
	setString(&cfg.PublicURL, j.PublicURL)
	setString(&cfg.AMQPURL, j.AMQPURL)
	setString(&cfg.AMQPExchange, j.AMQPExchange)
	setString(&cfg.FAQPath, j.FAQPath)
	setString(&cfg.LogFormat, j.LogFormat)
	setString(&cfg.LogLevel, j.LogLevel)
	if j.AccessTokenValidityDuration.Duration > 0 {
		cfg.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	}
	if j.MaxUploadSize > 0 {
		cfg.MaxUploadSize = j.MaxUploadSize
	}
	if j.HistoryLimit != nil {
		cfg.HistoryLimit = *j.HistoryLimit
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
