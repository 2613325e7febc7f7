package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Demo app kinds accepted in AppSpec.Kind.
const (
	KindBlinker   = "blinker"
	KindCountdown = "countdown"
	KindSpawner   = "spawner"
)

// Config holds configuration for the appsched command.
type Config struct {
	SchedulerName    string        `yaml:"scheduler_name"`
	TickInterval     time.Duration `yaml:"tick_interval"`     // Time between Updates (default 100ms)
	Ticks            int           `yaml:"ticks"`             // Stop after this many ticks, 0 runs until interrupted
	LogLevel         string        `yaml:"log_level"`         // debug, info, warn, error
	LogFormat        string        `yaml:"log_format"`        // text, json
	MetricsAddr      string        `yaml:"metrics_addr"`      // Listen address for /metrics, empty disables it
	MetricsNamespace string        `yaml:"metrics_namespace"` // Prometheus namespace (default "appscheduler")
	HistoryCapacity  int           `yaml:"history_capacity"`
	RecoverPanics    bool          `yaml:"recover_panics"` // Install the logging PanicHandler
	Apps             []AppSpec     `yaml:"apps"`
}

// AppSpec describes one demo app to install at startup.
type AppSpec struct {
	Kind     string    `yaml:"kind"`
	Name     string    `yaml:"name"`
	Lifetime int       `yaml:"lifetime"` // Ticks in the running state before the app kills itself, 0 means forever
	Children []AppSpec `yaml:"children"` // Apps a spawner installs from its OnSetup
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		SchedulerName:    "appsched",
		TickInterval:     100 * time.Millisecond,
		LogLevel:         "info",
		LogFormat:        "text",
		MetricsNamespace: "appscheduler",
		HistoryCapacity:  100,
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default() and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and app kinds.
func (c Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.TickInterval)
	}
	if c.Ticks < 0 {
		return fmt.Errorf("ticks must not be negative, got %d", c.Ticks)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	if c.HistoryCapacity < 0 {
		return fmt.Errorf("history_capacity must not be negative, got %d", c.HistoryCapacity)
	}
	for i, app := range c.Apps {
		if err := app.validate(fmt.Sprintf("apps[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}

func (a AppSpec) validate(path string) error {
	switch a.Kind {
	case KindBlinker, KindSpawner:
	case KindCountdown:
		if a.Lifetime <= 0 {
			return fmt.Errorf("%s: countdown needs a positive lifetime", path)
		}
	case "":
		return fmt.Errorf("%s: kind is required", path)
	default:
		return fmt.Errorf("%s: unknown kind %q", path, a.Kind)
	}
	if a.Lifetime < 0 {
		return fmt.Errorf("%s: lifetime must not be negative", path)
	}
	if len(a.Children) > 0 && a.Kind != KindSpawner {
		return fmt.Errorf("%s: only a spawner may have children", path)
	}
	for i, child := range a.Children {
		if err := child.validate(fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}
