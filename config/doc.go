// Package config provides configuration loading and validation for hearth.
//
// The package handles YAML or JSON configuration files, environment variables,
// and CLI flags with automatic merging and validation using
// go-playground/validator. Everything is resolved once at startup; nothing is
// re-read while requests are being served.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (HEARTH_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"hearth.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
// # Environment Variables
//
// All config keys map to environment variables with HEARTH_ prefix:
//   - server.port → HEARTH_SERVER_PORT
//   - server.idle_timeout → HEARTH_SERVER_IDLE_TIMEOUT
//   - storage.root → HEARTH_STORAGE_ROOT
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: host, port, idle_timeout, read_buffer_size, max_connections
//   - Storage: the static file root (must exist; made absolute on load)
//   - Transfer: stream_threshold, chunk_size, gzip_level
//   - Routes: list of {path, handler} bindings to built-in handlers
//   - Log: level and format (text or json)
//   - Metrics: OTLP gRPC endpoint and export interval
package config
