package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/dshills/undoredo/internal/config/loader"
	"github.com/dshills/undoredo/internal/engine/history"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "UNDOREDO_"

// Config holds all runtime settings.
type Config struct {
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Lua     LuaConfig     `mapstructure:"lua" yaml:"lua"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// HistoryConfig configures the action recorder.
type HistoryConfig struct {
	// MaxActions caps the number of entries kept in history.
	MaxActions int `mapstructure:"max_actions" yaml:"max_actions"`

	// MergeWindow limits merging to commits this close together. Zero means no limit.
	MergeWindow time.Duration `mapstructure:"merge_window" yaml:"merge_window"`

	// DefaultMergeMode is used by scripts that create actions without a mode.
	DefaultMergeMode history.MergeMode `mapstructure:"default_merge_mode" yaml:"default_merge_mode"`

	// Strict turns recorder misuse into panics.
	Strict bool `mapstructure:"strict" yaml:"strict"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// LuaConfig configures script execution.
type LuaConfig struct {
	// Timeout bounds a single script run. Zero disables the limit.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr      string `mapstructure:"addr" yaml:"addr"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			MaxActions:       history.DefaultMaxActions,
			DefaultMergeMode: history.MergeDisable,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Lua: LuaConfig{
			Timeout: 5 * time.Second,
		},
		Metrics: MetricsConfig{
			Namespace: "undoredo",
		},
	}
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	fs      loader.FileSystem
	env     *loader.EnvLoader
	skipEnv bool
}

// WithFileSystem reads the config file from fs instead of the OS.
func WithFileSystem(fs loader.FileSystem) Option {
	return func(o *loadOptions) {
		if fs != nil {
			o.fs = fs
		}
	}
}

// WithEnviron reads environment variables from environ instead of os.Environ.
func WithEnviron(environ func() []string) Option {
	return func(o *loadOptions) {
		o.env = loader.NewEnvLoader(EnvPrefix).WithEnviron(environ)
	}
}

// WithoutEnv skips the environment layer.
func WithoutEnv() Option {
	return func(o *loadOptions) {
		o.skipEnv = true
	}
}

// Load builds a Config from defaults, the file at path (if path is not
// empty) and the environment, then validates it.
func Load(path string, opts ...Option) (*Config, error) {
	o := loadOptions{
		fs:  loader.DefaultFS(),
		env: loader.NewEnvLoader(EnvPrefix),
	}
	for _, opt := range opts {
		opt(&o)
	}

	merged, err := Default().Map()
	if err != nil {
		return nil, err
	}

	if path != "" {
		l, err := loader.ForPath(o.fs, path)
		if err != nil {
			return nil, err
		}
		file, err := l.Load()
		if err != nil {
			return nil, err
		}
		if file == nil {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		merged = loader.DeepMerge(merged, file)
	}

	if !o.skipEnv {
		env, err := o.env.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, env)
	}

	cfg, err := Decode(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode converts a nested settings map into a Config. Unknown keys are
// rejected.
func Decode(data map[string]any) (*Config, error) {
	cfg := &Config{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return cfg, nil
}

// Map returns the settings as a nested map using the file key names.
func (c *Config) Map() (map[string]any, error) {
	data, err := c.YAML()
	if err != nil {
		return nil, err
	}
	return loader.ParseYAML("<config>", data)
}

// YAML renders the settings as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Changed lists the dot-separated keys whose values differ from other.
func (c *Config) Changed(other *Config) []string {
	a, errA := c.Map()
	b, errB := other.Map()
	if errA != nil || errB != nil {
		return nil
	}
	return loader.Diff(a, b)
}

// Validate checks every setting and returns all failures joined.
func (c *Config) Validate() error {
	var errs []error
	fail := func(path, msg string, value any, code ValidationErrorCode) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value, Code: code})
	}

	if c.History.MaxActions < 1 {
		fail("history.max_actions", "must be at least 1", c.History.MaxActions, ErrCodeOutOfRange)
	}
	if c.History.MergeWindow < 0 {
		fail("history.merge_window", "must not be negative", c.History.MergeWindow, ErrCodeOutOfRange)
	}
	switch c.History.DefaultMergeMode {
	case history.MergeDisable, history.MergeEnds, history.MergeAll:
	default:
		fail("history.default_merge_mode", "must be disable, ends or all", c.History.DefaultMergeMode, ErrCodeInvalidEnum)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		fail("logging.level", "must be debug, info, warn or error", c.Logging.Level, ErrCodeInvalidEnum)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		fail("logging.format", "must be text or json", c.Logging.Format, ErrCodeInvalidEnum)
	}

	if c.Lua.Timeout < 0 {
		fail("lua.timeout", "must not be negative", c.Lua.Timeout, ErrCodeOutOfRange)
	}

	if c.Metrics.Addr != "" && c.Metrics.Namespace == "" {
		fail("metrics.namespace", "required when metrics.addr is set", c.Metrics.Namespace, ErrCodeRequiredMissing)
	}

	return errors.Join(errs...)
}
