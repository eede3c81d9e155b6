package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/smallstep/agentctl/pkg/authority"
	"gopkg.in/yaml.v3"
)

// Environment variables consulted when the file leaves a value empty
const (
	EnvAPIToken = "SMALLSTEP_API_TOKEN"
	EnvAPIHost  = "SMALLSTEP_API_HOST"
)

// Config represents the agentctl configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Log     LogConfig     `yaml:"log"`
	Journal JournalConfig `yaml:"journal"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig contains Smallstep API connection settings
type APIConfig struct {
	Host         string   `yaml:"host"`
	Token        string   `yaml:"token"`
	Timeout      Duration `yaml:"timeout"`
	RateLimitRPS float64  `yaml:"rate_limit_rps"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// JournalConfig contains run history settings
type JournalConfig struct {
	Path      string   `yaml:"path"`
	Retention Duration `yaml:"retention"` // entries older than this are pruned
	Disabled  bool     `yaml:"disabled"`
}

// MetricsConfig contains metrics export settings
type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // empty disables the export
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Dir returns the agentctl configuration directory
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}
	return filepath.Join(base, "agentctl")
}

// DefaultPath returns the configuration file used when none is given
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads and parses the configuration file. An empty path loads the
// default file, which may be missing; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.API.Token == "" {
		c.API.Token = os.Getenv(EnvAPIToken)
	}
	if c.API.Host == "" {
		c.API.Host = os.Getenv(EnvAPIHost)
	}
}

func (c *Config) applyDefaults() {
	if c.API.Host == "" {
		c.API.Host = authority.DefaultHost
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(30 * time.Second)
	}
	if c.API.RateLimitRPS == 0 {
		c.API.RateLimitRPS = 10.0
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Journal.Path == "" {
		c.Journal.Path = filepath.Join(Dir(), "journal.db")
	}
	c.Journal.Path = expandHome(c.Journal.Path)
	if c.Journal.Retention == 0 {
		c.Journal.Retention = Duration(30 * 24 * time.Hour)
	}

	c.Metrics.Textfile = expandHome(c.Metrics.Textfile)
}

// RequireToken fails when no API token is configured
func (c *Config) RequireToken() error {
	if c.API.Token == "" {
		return fmt.Errorf("no API token configured: set api.token, %s or --api-token", EnvAPIToken)
	}
	return nil
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if val := os.Getenv(parts[1]); val != "" {
			return val
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
