package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/auctionchat/internal/flagx"
	"github.com/dmitrijs2005/auctionchat/internal/timex"
)

// JsonConfig is a DTO used only for JSON unmarshalling. Absent fields keep
// the values already in Config.
type JsonConfig struct {
	ServerURL        string         `json:"server_url"`
	WebSocketURL     string         `json:"ws_url"`
	GRPCAddr         string         `json:"grpc_addr"`
	Transport        string         `json:"transport"`
	Username         string         `json:"username"`
	CacheDSN         string         `json:"cache_dsn"`
	AllowMedia       *bool          `json:"allow_media"`
	Uploader         string         `json:"uploader"`
	AckTimeout       timex.Duration `json:"ack_timeout"`
	ReconnectInitial timex.Duration `json:"reconnect_initial"`
	ReconnectMax     timex.Duration `json:"reconnect_max"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	LogLevel         string         `json:"log_level"`
}

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

	setString(&cfg.ServerURL, j.ServerURL)
	setString(&cfg.WebSocketURL, j.WebSocketURL)
	setString(&cfg.GRPCAddr, j.GRPCAddr)
	setString(&cfg.Transport, j.Transport)
	setString(&cfg.Username, j.Username)
	setString(&cfg.CacheDSN, j.CacheDSN)
	setString(&cfg.Uploader, j.Uploader)
	setString(&cfg.LogLevel, j.LogLevel)
	if j.AllowMedia != nil {
		cfg.AllowMedia = *j.AllowMedia
	}
	if j.AckTimeout.Duration > 0 {
		cfg.AckTimeout = j.AckTimeout.Duration
	}
	if j.ReconnectInitial.Duration > 0 {
		cfg.ReconnectInitial = j.ReconnectInitial.Duration
	}
	if j.ReconnectMax.Duration > 0 {
		cfg.ReconnectMax = j.ReconnectMax.Duration
	}
	if j.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = j.RequestTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
