// Package config loads runtime configuration for the chat CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-s string     relay HTTP base URL
//	-w string     relay WebSocket endpoint
//	-g string     relay gRPC address
//	-t string     channel transport: ws | grpc
//	-u string     username to sign in with
//	-d string     path of the local message cache
//	-m bool       allow media library access
//	-U string     uploader: multipart | presigned
//	-k duration   acknowledgment timeout
//	-l string     log level: debug | info | warn | error
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "3s" or integer
// nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "ws_url": "ws://127.0.0.1:8080/ws",
//	  "transport": "ws",
//	  "ack_timeout": "10s",
//	  "reconnect_max": "30s"
//	}
package config
