package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for hearth.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Transfer TransferConfig `mapstructure:"transfer" yaml:"transfer"`
	Routes   []RouteConfig  `mapstructure:"routes" yaml:"routes" validate:"dive"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// ServerConfig holds listener and connection settings.
type ServerConfig struct {
	Host           string        `mapstructure:"host" yaml:"host"`
	Port           int           `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"gt=0"`
	ReadBufferSize int           `mapstructure:"read_buffer_size" yaml:"read_buffer_size" validate:"min=512"`
	MaxConnections int64         `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds the static file root.
type StorageConfig struct {
	Root string `mapstructure:"root" yaml:"root" validate:"required,dir"`
}

// TransferConfig holds response delivery settings.
type TransferConfig struct {
	StreamThreshold int64 `mapstructure:"stream_threshold" yaml:"stream_threshold" validate:"min=1"`
	ChunkSize       int   `mapstructure:"chunk_size" yaml:"chunk_size" validate:"min=1024"`
	GzipLevel       int   `mapstructure:"gzip_level" yaml:"gzip_level" validate:"min=1,max=9"`
}

// RouteConfig binds an exact request path to a named built-in handler.
type RouteConfig struct {
	Path    string `mapstructure:"path" yaml:"path" validate:"required,startswith=/"`
	Handler string `mapstructure:"handler" yaml:"handler" validate:"required"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`
}

// MetricsConfig holds OpenTelemetry export configuration.
type MetricsConfig struct {
	OTLPEndpoint string        `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint" validate:"omitempty,hostname_port"`
	Insecure     bool          `mapstructure:"insecure" yaml:"insecure"`
	Interval     time.Duration `mapstructure:"interval" yaml:"interval" validate:"gt=0"`
}

// RouteMap returns the routes as a path -> handler-name map. Later entries
// for the same path win.
func (c *Config) RouteMap() map[string]string {
	m := make(map[string]string, len(c.Routes))
	for _, r := range c.Routes {
		m[r.Path] = r.Handler
	}
	return m
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"host":         "server.host",
	"port":         "server.port",
	"idle-timeout": "server.idle_timeout",
	"root":         "storage.root",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey, ok := flagToViperKey[f.Name]
		if !ok {
			return
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// DefaultRoutes are bound when no routes are configured.
func DefaultRoutes() []RouteConfig {
	return []RouteConfig{
		{Path: "/", Handler: "welcome"},
		{Path: "/hello", Handler: "hello"},
		{Path: "/time", Handler: "time"},
	}
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.idle_timeout", 500*time.Millisecond)
	v.SetDefault("server.read_buffer_size", 8*1024)
	v.SetDefault("server.max_connections", 0) // 0 means no limit

	v.SetDefault("storage.root", ".")

	v.SetDefault("transfer.stream_threshold", 1_000_000)
	v.SetDefault("transfer.chunk_size", 64*1024)
	v.SetDefault("transfer.gzip_level", 6)

	routes := make([]map[string]any, 0, 3)
	for _, r := range DefaultRoutes() {
		routes = append(routes, map[string]any{"path": r.Path, "handler": r.Handler})
	}
	v.SetDefault("routes", routes)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.otlp_endpoint", "")
	v.SetDefault("metrics.insecure", false)
	v.SetDefault("metrics.interval", 10*time.Second)
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("hearth")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("HEARTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// 7. Resolve the storage root once so request handling never re-derives it
	root, err := filepath.Abs(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	cfg.Storage.Root = root

	return &cfg, nil
}
