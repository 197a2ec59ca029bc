package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/auctionchat/internal/flagx"
)

var knownFlags = []string{"-s", "-w", "-g", "-t", "-u", "-d", "-m", "-U", "-k", "-l"}

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "relay HTTP base URL")
	fs.StringVar(&cfg.WebSocketURL, "w", cfg.WebSocketURL, "relay WebSocket endpoint")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "relay gRPC address")
	fs.StringVar(&cfg.Transport, "t", cfg.Transport, "channel transport (ws|grpc)")
	fs.StringVar(&cfg.Username, "u", cfg.Username, "username")
	fs.StringVar(&cfg.CacheDSN, "d", cfg.CacheDSN, "local message cache path")
	fs.BoolVar(&cfg.AllowMedia, "m", cfg.AllowMedia, "allow media library access")
	fs.StringVar(&cfg.Uploader, "U", cfg.Uploader, "uploader (multipart|presigned)")
	fs.DurationVar(&cfg.AckTimeout, "k", cfg.AckTimeout, "acknowledgment timeout")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, knownFlags...))
}
