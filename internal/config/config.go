package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/gatewire-dev/gatewire/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "gatewire.json"

	// DefaultDebugAddr is the default debug HTTP listen address.
	DefaultDebugAddr = "127.0.0.1:6060"

	// DefaultLogLevel is the default log verbosity.
	DefaultLogLevel = "info"

	// DefaultLogFormat is the default log output format.
	DefaultLogFormat = "text"

	// DefaultStatus is the default presence status.
	DefaultStatus = "online"
)

// Config represents the complete gatewire.json configuration. Every
// field can be overridden through a GATEWIRE_* environment variable,
// which takes precedence over the file.
type Config struct {
	// Token is the bot token. Prefer GATEWIRE_TOKEN over committing it
	// to the file.
	Token string `json:"token,omitempty" env:"GATEWIRE_TOKEN"`

	// Intents is the event-group subscription bitmask. Zero selects the
	// library default set.
	Intents uint32 `json:"intents,omitempty" env:"GATEWIRE_INTENTS"`

	// Shards is the number of shards to run. Zero asks the API for its
	// recommendation.
	Shards int `json:"shards,omitempty" env:"GATEWIRE_SHARDS"`

	// GatewayURL pins the gateway URL, skipping HTTP resolution.
	GatewayURL string `json:"gatewayUrl,omitempty" env:"GATEWIRE_GATEWAY_URL"`

	// APIURL overrides the REST API root used for URL resolution.
	APIURL string `json:"apiUrl,omitempty" env:"GATEWIRE_API_URL"`

	// Presence is the presence announced at identify.
	Presence PresenceConfig `json:"presence,omitempty"`

	// Debug contains debug HTTP server configuration.
	Debug DebugConfig `json:"debug,omitempty"`

	// Log contains logging configuration.
	Log LogConfig `json:"log,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// PresenceConfig describes the presence announced at identify.
type PresenceConfig struct {
	// Status is one of: online, dnd, idle, invisible.
	Status string `json:"status,omitempty" env:"GATEWIRE_PRESENCE_STATUS"`

	// Activity is the name of the activity shown on the bot profile.
	Activity string `json:"activity,omitempty" env:"GATEWIRE_PRESENCE_ACTIVITY"`

	// AFK marks the connection as away.
	AFK bool `json:"afk,omitempty" env:"GATEWIRE_PRESENCE_AFK"`
}

// DebugConfig contains debug HTTP server settings.
type DebugConfig struct {
	// Enabled starts the debug HTTP server alongside the gateway
	// connections.
	Enabled bool `json:"enabled,omitempty" env:"GATEWIRE_DEBUG"`

	// Addr is the address the debug server binds to.
	Addr string `json:"addr,omitempty" env:"GATEWIRE_DEBUG_ADDR"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `json:"level,omitempty" env:"GATEWIRE_LOG_LEVEL"`

	// Format is one of: text, json.
	Format string `json:"format,omitempty" env:"GATEWIRE_LOG_FORMAT"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Presence: PresenceConfig{
			Status: DefaultStatus,
		},
		Debug: DebugConfig{
			Addr: DefaultDebugAddr,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads configuration from the specified directory.
// It looks for gatewire.json in the directory.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No gatewire.json found in " + filepath.Dir(path)).
				WithSuggestion("Run 'gatewire init' to create one, or configure through GATEWIRE_* environment variables")
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E101").
			WithDetail("Failed to parse gatewire.json: " + err.Error()).
			WithSuggestion("Check that gatewire.json is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// Resolve builds the effective configuration for a directory: the file
// if one exists, overlaid with GATEWIRE_* environment variables, then
// validated. This is what the CLI commands use.
func Resolve(dir string) (*Config, error) {
	cfg := New()
	if Exists(dir) {
		loaded, err := Load(dir)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays GATEWIRE_* environment variables onto the config.
// Set variables win over file values.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return errors.New("E102").Wrap(err)
	}
	return nil
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E101").Wrap(err)
	}

	// Add newline at end of file
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E101").Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Presence.Status == "" {
		c.Presence.Status = DefaultStatus
	}
	if c.Debug.Addr == "" {
		c.Debug.Addr = DefaultDebugAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("E103").
			WithSuggestion("Set GATEWIRE_TOKEN or add a token field to gatewire.json")
	}
	if c.Shards < 0 {
		return errors.New("E104").
			WithDetail("Shard count " + itoa(c.Shards) + " is negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("E105").
			WithDetail("Unknown log level " + c.Log.Level)
	}
	switch c.Presence.Status {
	case "online", "dnd", "idle", "invisible":
	default:
		return errors.New("E106").
			WithDetail("Unknown presence status " + c.Presence.Status)
	}
	return nil
}

// SlogLevel returns the configured level as a slog.Level. Unknown
// values fall back to info; Validate catches them first.
func (c *Config) SlogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w in the configured format and
// level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	var handler slog.Handler
	if c.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
// Returns the directory containing gatewire.json, or an error if not
// found.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E100").
				WithDetail("No gatewire.json found in " + startDir + " or any parent directory").
				WithSuggestion("Run 'gatewire init' to create one")
		}
		dir = parent
	}
}

// itoa converts int to string without importing strconv.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	digits := make([]byte, 0, 10)
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	// Reverse
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
