package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/oauth2grant/internal/grant"
	"github.com/florianilch/oauth2grant/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// GrantStorageType represents the different storage types supported for grants.
type GrantStorageType string

const (
	GrantStorageTypeFile    GrantStorageType = "file"
	GrantStorageTypeEnv     GrantStorageType = "env"
	GrantStorageTypeKeyring GrantStorageType = "keyring"
)

// keyringService is the service name grants are stored under in the OS keyring.
const keyringService = "oauth2grant"

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigLogExporter     = "none"
	DefaultConfigGrantScheme     = grant.SchemeBearer
	DefaultConfigMACAlgorithm    = grant.MACAlgorithmHMACSHA256
	DefaultConfigStorage         = GrantStorageTypeFile
	DefaultConfigHTTPTimeout     = 30 * time.Second
	DefaultConfigRefreshStyle    = "auto"
	DefaultConfigConcurrency     = 4
	DefaultConfigShutdownTimeout = 5 * time.Second
)

// GrantConfig holds defaults for grants created from the command line.
type GrantConfig struct {
	Scheme       grant.Scheme       `json:"scheme" validate:"oneof=bearer mac legacy"`
	MACAlgorithm grant.MACAlgorithm `json:"mac_algorithm" validate:"oneof=hmac-sha-1 hmac-sha-256"`
}

// StorageConfig describes where the grant is persisted.
type StorageConfig struct {
	Type GrantStorageType `json:"type" validate:"required,oneof=file env keyring"`

	// Storage-specific settings (mutually exclusive based on Type)
	File        string `json:"file,omitempty"`         // For file storage: path to grant file
	EnvKey      string `json:"env_key,omitempty"`      // For env storage: environment variable name
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewGrantStore creates a GrantStore from the storage configuration.
func (s *StorageConfig) NewGrantStore() (tokenstore.GrantStore, error) {
	switch s.Type {
	case GrantStorageTypeFile:
		return tokenstore.NewFileStore(s.File)
	case GrantStorageTypeEnv:
		return tokenstore.NewEnvStore(s.EnvKey)
	case GrantStorageTypeKeyring:
		return tokenstore.NewKeyringStore(keyringService, s.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", s.Type)
	}
}

// RefreshConfig holds the token endpoint used to refresh grants.
// Refresh is disabled when TokenURL is empty.
type RefreshConfig struct {
	TokenURL     string   `json:"token_url" validate:"omitempty,url"`
	ClientID     string   `json:"client_id" validate:"required_with=TokenURL"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	// AuthStyle selects how client credentials are sent.
	AuthStyle string `json:"auth_style" validate:"oneof=auto header params"`
}

// HTTPConfig configures the client every grant owns.
type HTTPConfig struct {
	Timeout          time.Duration `json:"timeout" validate:"gte=0"`
	UserAgent        string        `json:"user_agent"`
	TracePropagation bool          `json:"trace_propagation"`
}

// RedirectConfig holds the registered redirect URI.
type RedirectConfig struct {
	BaseURI string `json:"base_uri" validate:"omitempty,url"`
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for flushing telemetry on exit.
	Timeout time.Duration `json:"timeout"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel    slog.Level     `json:"log_level"`
	LogFormat   LogFormat      `json:"log_format" validate:"oneof=text json"`
	LogExporter string         `json:"log_exporter" validate:"oneof=none stdout otlp-http otlp-grpc"`
	Grant       GrantConfig    `json:"grant"`
	Storage     StorageConfig  `json:"storage"`
	Refresh     RefreshConfig  `json:"refresh"`
	HTTP        HTTPConfig     `json:"http"`
	Redirect    RedirectConfig `json:"redirect"`
	Shutdown    ShutdownConfig `json:"shutdown"`
	// Concurrency bounds parallel requests.
	Concurrency int `json:"concurrency" validate:"gte=1,lte=64"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.LogExporter == "" {
		c.LogExporter = DefaultConfigLogExporter
	}
	if c.Grant.Scheme == "" {
		c.Grant.Scheme = DefaultConfigGrantScheme
	}
	if c.Grant.MACAlgorithm == "" {
		c.Grant.MACAlgorithm = DefaultConfigMACAlgorithm
	}
	if c.Storage.Type == "" {
		c.Storage.Type = DefaultConfigStorage
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = DefaultConfigHTTPTimeout
	}
	if c.Refresh.AuthStyle == "" {
		c.Refresh.AuthStyle = DefaultConfigRefreshStyle
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConfigConcurrency
	}

	// Dynamic defaults based on storage type
	switch c.Storage.Type {
	case GrantStorageTypeFile:
		if c.Storage.File == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return fmt.Errorf("storage.file required (auto-detect failed: %w)", err)
			}
			c.Storage.File = filepath.Join(configDir, "oauth2grant", "grant.json")
		}
	case GrantStorageTypeKeyring:
		if c.Storage.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("storage.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Storage.KeyringUser = currentUser.Username
		}
	case GrantStorageTypeEnv:
		// env_key must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	// Refresh requires writable storage (env is read-only)
	if c.Refresh.TokenURL != "" && c.Storage.Type == GrantStorageTypeEnv {
		return errors.New("refresh requires writable storage, env is read-only")
	}

	switch c.Storage.Type {
	case GrantStorageTypeFile:
		if c.Storage.File == "" {
			return errors.New("file path required for file storage")
		}
	case GrantStorageTypeEnv:
		if c.Storage.EnvKey == "" {
			return errors.New("env_key required for env storage")
		}
	case GrantStorageTypeKeyring:
		if c.Storage.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
