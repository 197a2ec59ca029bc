package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/auctionchat/internal/flagx"
)

// Supported flags (short forms):
//
//	-a string    HTTP bind address
//	-g string    gRPC bind address
//	-d string    PostgreSQL DSN (empty: in-memory)
//	-s string    JWT HMAC secret key
//	-t duration  access token validity
//	-b string    S3 bucket (empty: uploads disabled)
//	-e string    S3 base endpoint
//	-p string    public base URL
//	-q string    AMQP URL (empty: no event publishing)
//	-n int       history replay limit
//	-f string    log format (text|json|zap)
//	-l string    log level
var knownFlags = []string{"-a", "-g", "-d", "-s", "-t", "-b", "-e", "-p", "-q", "-n", "-f", "-l"}

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "HTTP bind address")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "gRPC bind address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.DurationVar(&cfg.AccessTokenValidityDuration, "t", cfg.AccessTokenValidityDuration, "access token validity")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.PublicURL, "p", cfg.PublicURL, "public base URL")
	fs.StringVar(&cfg.AMQPURL, "q", cfg.AMQPURL, "AMQP URL")
	fs.IntVar(&cfg.HistoryLimit, "n", cfg.HistoryLimit, "history replay limit")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (text|json|zap)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, knownFlags...))
}
