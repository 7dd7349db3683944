// Package config loads plockd's configuration: environment variables
// (PLOCKD_*) > YAML file > built-in defaults, matching the teacher's
// pkg/config/config.go layering with viper + mapstructure + validator.
// No configuration value is taken from CLI flags; the only flag is the
// config file path.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/clusterfs/plockd/internal/bytesize"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is plockd's full runtime configuration.
type Config struct {
	// NodeID is this node's cluster member id, carried in every lock
	// identity and cluster message header.
	NodeID uint32 `mapstructure:"node_id" yaml:"node_id" validate:"required"`

	// GroupName is the mount group this daemon instance coordinates
	// locks for.
	GroupName string `mapstructure:"group_name" yaml:"group_name" validate:"required"`

	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Admin      AdminConfig      `mapstructure:"admin" yaml:"admin"`
	Checkpoint CheckpointConfig `mapstructure:"checkpoint" yaml:"checkpoint"`
	Device     DeviceConfig     `mapstructure:"device" yaml:"device"`
	Lock       LockConfig       `mapstructure:"lock" yaml:"lock"`
}

// LoggingConfig controls internal/logger's output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=DEBUG INFO WARN ERROR"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
	Output string `mapstructure:"output" yaml:"output"`
}

// TelemetryConfig controls internal/telemetry's OTLP/gRPC exporter.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Endpoint    string `mapstructure:"endpoint" yaml:"endpoint"`
}

// MetricsConfig controls whether the daemon constructs its lock
// metrics. pkg/admin serves /metrics whatever this is set to.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// AdminConfig controls pkg/admin's HTTP listener.
type AdminConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr" validate:"required"`
}

// CheckpointConfig controls pkg/checkpoint's Badger-backed store.
type CheckpointConfig struct {
	Dir      string        `mapstructure:"dir" yaml:"dir" validate:"required"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval" validate:"gt=0"`

	// MaxSectionSize bounds a single resource's packed checkpoint
	// section; see checkpoint.Store.SetMaxSectionSize. Accepts
	// human-readable sizes like "4Mi" via bytesize.ByteSize.
	MaxSectionSize bytesize.ByteSize `mapstructure:"max_section_size" yaml:"max_section_size"`
}

// DeviceConfig controls pkg/devchannel's device node.
type DeviceConfig struct {
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
	Name string `mapstructure:"name" yaml:"name" validate:"required"`
}

// LockConfig holds per-resource lock and waiter limits, shaped like the
// teacher's LockConfig (pkg/config/config.go). They are loaded and
// validated only; rangelock.Engine does not read them and enforces no
// per-resource limit.
type LockConfig struct {
	MaxLocksPerResource int `mapstructure:"max_locks_per_resource" yaml:"max_locks_per_resource" validate:"gt=0"`
	MaxWaitersPerResource int `mapstructure:"max_waiters_per_resource" yaml:"max_waiters_per_resource" validate:"gt=0"`
}

// Default returns the built-in defaults, used whenever no config file
// is found (matching the teacher's GetDefaultConfig fallback).
func Default() *Config {
	return &Config{
		NodeID:    1,
		GroupName: "default",
		Logging: LoggingConfig{
			Level: "INFO", Format: "text", Output: "stdout",
		},
		Telemetry: TelemetryConfig{
			Enabled: false, ServiceName: "plockd", Endpoint: "localhost:4317",
		},
		Metrics: MetricsConfig{Enabled: true},
		Admin:   AdminConfig{ListenAddr: ":9700"},
		Checkpoint: CheckpointConfig{
			Dir: "/var/lib/plockd/checkpoints", Interval: 30 * time.Second,
			MaxSectionSize: 4 * bytesize.MiB,
		},
		Device: DeviceConfig{
			Path: "/dev/plock_dev", Name: "plock_dev",
		},
		Lock: LockConfig{
			MaxLocksPerResource: 10000, MaxWaitersPerResource: 1000,
		},
	}
}

// Load reads configuration from configPath (YAML), overlaid with
// PLOCKD_* environment variables. When no file is found it returns
// Default() as is, without consulting the environment. The result is
// always validated before being returned.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := Default()
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("config: built-in defaults failed validation: %w", err)
		}
		return cfg, nil
	}

	cfg := Default()
	decoder := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	)
	if err := v.Unmarshal(cfg, viper.DecodeHook(decoder)); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("PLOCKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/plockd")
		v.AddConfigPath(".")
	}
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

var validate = validator.New()

// Validate runs struct-tag validation over cfg, matching the teacher's
// use of go-playground/validator for config validation.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}
