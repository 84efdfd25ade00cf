package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration file.
type Config struct {
	// DataDir holds the SQLite database. Required.
	DataDir string `yaml:"data_dir"`

	// PeerName is the name announced to endpoints. Defaults to "driftsync".
	PeerName string `yaml:"peer_name,omitempty"`

	// Policy is an optional path to a CUE access-control policy file.
	Policy string `yaml:"policy,omitempty"`

	// TickInterval is the timer feeding Tick events. Defaults to 1s.
	TickInterval Duration `yaml:"tick_interval,omitempty"`

	// LogLevel is one of debug, info, warn, error. Defaults to info.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Duration parses time.Duration from YAML strings like "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// LoadConfig reads and validates a YAML config file. Unknown fields are
// rejected so typos fail at startup, not in production behavior.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("tick_interval must be positive")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.PeerName == "" {
		c.PeerName = "driftsync"
	}
	if c.TickInterval == 0 {
		c.TickInterval = Duration(time.Second)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
