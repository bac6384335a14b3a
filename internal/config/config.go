// Package config loads tool settings from flags, an optional config file,
// the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"azfinsim/internal/logging"
	"azfinsim/internal/storage"
	"azfinsim/internal/telemetry"
)

// ErrInvalidConfig is returned when settings fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrHelp is returned when -h or --help was requested.
var ErrHelp = pflag.ErrHelp

// Tool names. Each tool registers a different flag set.
const (
	ToolGenerator = "generator"
	ToolEngine    = "azfinsim"
	ToolLoad      = "load"
)

// EnvPrefix is the prefix of environment overrides, e.g. AZFINSIM_CACHE_NAME.
const EnvPrefix = "AZFINSIM"

// fileKeyPrefix is stripped from config file keys.
const fileKeyPrefix = "azfinsim-"

// Algorithms accepted by --algorithm.
var Algorithms = []string{"deltavega", "pvonly", "synthetic"}

// Metric sinks accepted by --metrics-sink.
const (
	SinkLog        = telemetry.SinkLog
	SinkPrometheus = telemetry.SinkPrometheus
	SinkPostgres   = telemetry.SinkPostgres
	SinkClickhouse = telemetry.SinkClickhouse
	SinkNone       = telemetry.SinkNone
)

// Config holds the settings of one tool invocation.
type Config struct {
	Tool string `mapstructure:"-"`

	// Cache
	CacheType     string `mapstructure:"cache-type"`
	CacheName     string `mapstructure:"cache-name"`
	CachePort     int    `mapstructure:"cache-port"`
	CacheKey      string `mapstructure:"cache-key"`
	CacheSSL      string `mapstructure:"cache-ssl"`
	CacheInsecure bool   `mapstructure:"cache-insecure"`
	CacheDB       int    `mapstructure:"cache-db"`
	CachePath     string `mapstructure:"cache-path"`

	// Trades
	StartTrade  int64 `mapstructure:"start-trade"`
	TradeWindow int64 `mapstructure:"trade-window"`

	// Generator and load
	Threads   int  `mapstructure:"threads"`
	BatchSize int  `mapstructure:"batch-size"`
	Dump      bool `mapstructure:"dump"`

	// Engine
	Algorithm    string  `mapstructure:"algorithm"`
	DelayStart   int     `mapstructure:"delay-start"`   // seconds
	MemUsage     int     `mapstructure:"mem-usage"`     // MB
	TaskDuration int     `mapstructure:"task-duration"` // milliseconds
	Failure      float64 `mapstructure:"failure"`

	// Logs and metrics
	Verbose        bool              `mapstructure:"verbose"`
	LogLevel       string            `mapstructure:"log-level"`
	LogFile        string            `mapstructure:"log-file"`
	Tags           map[string]string `mapstructure:"-"`
	MetricsSinks   []string          `mapstructure:"metrics-sink"`
	PostgresDSN    string            `mapstructure:"postgres-dsn"`
	ClickhouseDSN  string            `mapstructure:"clickhouse-dsn"`
	PushgatewayURL string            `mapstructure:"pushgateway-url"`
}

// NewFlagSet registers the flags of tool.
func NewFlagSet(tool string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(tool, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.String("config", "", "read extra arguments from the config file (json or yaml)")
	fs.Bool("verbose", false, "verbose output")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-file", "", "also write logs to this rotated file")

	fs.String("cache-type", string(storage.KindRedis), "cache type: redis, filesystem or memory")
	fs.String("cache-name", "", "redis hostname/ip address")
	fs.Int("cache-port", storage.DefaultRedisPort, "redis port number")
	fs.String("cache-key", "", "cache access key")
	fs.String("cache-ssl", "yes", "use SSL for redis cache access: yes or no")
	fs.Bool("cache-insecure", false, "skip TLS certificate verification")
	fs.Int("cache-db", 0, "redis database index")
	fs.String("cache-path", "", "filesystem path for cache")

	fs.Int64P("start-trade", "s", 0, "trade range to process: starting trade number")
	fs.Int64P("trade-window", "w", 0, "number of trades to process")

	switch tool {
	case ToolGenerator:
		fs.Int("threads", 0, "worker count (default: logical cores)")
		fs.Int("batch-size", 0, "trades per pipeline (default: window/threads, at most 10000)")
	case ToolEngine:
		fs.StringP("algorithm", "a", "deltavega", "pricing algorithm: deltavega, pvonly or synthetic")
		fs.IntP("delay-start", "d", 0, "delay startup time in seconds")
		fs.IntP("mem-usage", "m", 16, "memory usage for task in MB")
		fs.Int("task-duration", 20, "task duration in milliseconds")
		fs.Float64("failure", 0.0, "inject random task failure with this probability")
	case ToolLoad:
		fs.Bool("dump", false, "copy from the redis cache into --cache-path instead of loading it")
		fs.Int("batch-size", 10000, "trades per pipeline")
	}

	fs.String("tags", "", "tags to add to metrics: comma-separated key=value pairs")
	fs.StringSlice("metrics-sink", []string{SinkLog}, "metric sinks: log, prometheus, postgres, clickhouse or none")
	fs.String("postgres-dsn", "", "postgres DSN for the postgres metric sink")
	fs.String("clickhouse-dsn", "", "clickhouse DSN for the clickhouse metric sink")
	fs.String("pushgateway-url", "", "push prometheus metrics to this gateway")

	return fs
}

// Load parses args for tool and layers flags over environment over config file
// over defaults. A .env file in the working directory is loaded best-effort.
func Load(tool string, args []string) (*Config, error) {
	fs := NewFlagSet(tool)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	_ = godotenv.Load() // ignore a missing .env

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		settings, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return nil, fmt.Errorf("merge config file: %w", err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	cfg := &Config{Tool: tool}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	tags, err := ParseTags(v.GetString("tags"))
	if err != nil {
		return nil, err
	}
	cfg.Tags = tags

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readConfigFile reads a json or yaml file into flat flag-named settings.
// Keys are lower-cased and lose an "azfinsim-" or leading "-" prefix.
func readConfigFile(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: config file: %w", ErrInvalidConfig, err)
	}

	fv := viper.New()
	fv.SetConfigFile(path)
	if err := fv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	settings := make(map[string]any)
	for key, value := range fv.AllSettings() {
		key = strings.ToLower(key)
		key = strings.TrimPrefix(key, fileKeyPrefix)
		key = strings.TrimLeft(key, "-")
		settings[key] = value
	}
	return settings, nil
}

// ParseTags parses "k=v,k2=v2". Keys and values are trimmed; an empty string yields no tags.
func ParseTags(s string) (map[string]string, error) {
	tags := map[string]string{}
	if strings.TrimSpace(s) == "" {
		return tags, nil
	}

	for _, pair := range strings.Split(s, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: tag %q is not key=value", ErrInvalidConfig, pair)
		}
		tags[key] = strings.TrimSpace(value)
	}
	return tags, nil
}

// Validate checks the settings relevant to the tool.
func (c *Config) Validate() error {
	kind, err := storage.ParseKind(c.CacheType)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	switch kind {
	case storage.KindRedis:
		if c.CacheName == "" {
			return fmt.Errorf("%w: --cache-name is required for redis", ErrInvalidConfig)
		}
		if c.CachePort <= 0 || c.CachePort > 65535 {
			return fmt.Errorf("%w: invalid cache port %d", ErrInvalidConfig, c.CachePort)
		}
	case storage.KindFile:
		if c.CachePath == "" {
			return fmt.Errorf("%w: --cache-path is required for filesystem", ErrInvalidConfig)
		}
	}
	if _, err := parseYesNo(c.CacheSSL); err != nil {
		return err
	}

	if c.StartTrade < 0 {
		return fmt.Errorf("%w: negative start trade %d", ErrInvalidConfig, c.StartTrade)
	}
	if c.TradeWindow < 0 {
		return fmt.Errorf("%w: negative trade window %d", ErrInvalidConfig, c.TradeWindow)
	}
	if c.Threads < 0 || c.BatchSize < 0 {
		return fmt.Errorf("%w: threads and batch size must not be negative", ErrInvalidConfig)
	}

	switch c.Tool {
	case ToolEngine:
		if !isAlgorithm(c.Algorithm) {
			return fmt.Errorf("%w: unknown algorithm %q", ErrInvalidConfig, c.Algorithm)
		}
		if c.Failure < 0 || c.Failure > 1 {
			return fmt.Errorf("%w: failure probability %v outside [0, 1]", ErrInvalidConfig, c.Failure)
		}
		if c.DelayStart < 0 || c.MemUsage < 0 || c.TaskDuration < 0 {
			return fmt.Errorf("%w: delay, memory and duration must not be negative", ErrInvalidConfig)
		}
	case ToolLoad:
		if kind != storage.KindRedis {
			return fmt.Errorf("%w: load needs --cache-type redis", ErrInvalidConfig)
		}
		if c.CachePath == "" {
			return fmt.Errorf("%w: load needs --cache-path", ErrInvalidConfig)
		}
	}

	for _, s := range c.MetricsSinks {
		switch s {
		case SinkLog, SinkPrometheus, SinkNone:
		case SinkPostgres:
			if c.PostgresDSN == "" {
				return fmt.Errorf("%w: --postgres-dsn is required for the postgres sink", ErrInvalidConfig)
			}
		case SinkClickhouse:
			if c.ClickhouseDSN == "" {
				return fmt.Errorf("%w: --clickhouse-dsn is required for the clickhouse sink", ErrInvalidConfig)
			}
		default:
			return fmt.Errorf("%w: unknown metrics sink %q", ErrInvalidConfig, s)
		}
	}
	return nil
}

// Store returns the store settings.
func (c *Config) Store() storage.Config {
	tls, _ := parseYesNo(c.CacheSSL)
	return storage.Config{
		Kind:               storage.Kind(strings.ToLower(c.CacheType)),
		Host:               c.CacheName,
		Port:               c.CachePort,
		Password:           c.CacheKey,
		TLS:                tls,
		InsecureSkipVerify: c.CacheInsecure,
		DB:                 c.CacheDB,
		PoolSize:           c.Threads,
		DialTimeout:        storage.DefaultDialTimeout,
		Path:               c.CachePath,
	}
}

// Logging returns the logger settings.
func (c *Config) Logging() logging.Config {
	return logging.Config{
		Level:    c.LogLevel,
		Verbose:  c.Verbose,
		FilePath: c.LogFile,
	}
}

// Telemetry returns the metric sink settings.
func (c *Config) Telemetry() telemetry.Settings {
	return telemetry.Settings{
		Sinks:          c.MetricsSinks,
		PostgresDSN:    c.PostgresDSN,
		ClickhouseDSN:  c.ClickhouseDSN,
		PushgatewayURL: c.PushgatewayURL,
	}
}

// TaskDurationValue returns --task-duration as a duration.
func (c *Config) TaskDurationValue() time.Duration {
	return time.Duration(c.TaskDuration) * time.Millisecond
}

// DelayStartValue returns --delay-start as a duration.
func (c *Config) DelayStartValue() time.Duration {
	return time.Duration(c.DelayStart) * time.Second
}

// HasSink reports whether the named metrics sink is enabled.
func (c *Config) HasSink(name string) bool {
	for _, s := range c.MetricsSinks {
		if s == name {
			return true
		}
	}
	return false
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "on":
		return true, nil
	case "no", "false", "0", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%w: expected yes or no, got %q", ErrInvalidConfig, s)
	}
}

func isAlgorithm(s string) bool {
	for _, a := range Algorithms {
		if a == s {
			return true
		}
	}
	return false
}
