package internal

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Merge strategies for the front matter engine.
const (
	MergeStrategyText = "text"
	MergeStrategyYAML = "yaml"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Vault      VaultConfig       `yaml:"vault"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	Timestamps TimestampsConfig  `yaml:"timestamps"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Timestamps.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// TimestampsConfig controls the front matter timestamp behaviour.
type TimestampsConfig struct {
	// CreatedKey and ModifiedKey are the front matter field names.
	CreatedKey  string `yaml:"created_key"`
	ModifiedKey string `yaml:"modified_key"`

	// AutoUpdate enables stamping when a tracked document changes.
	AutoUpdate bool `yaml:"auto_update"`

	// StampNewFiles enables stamping of freshly created documents.
	StampNewFiles bool `yaml:"stamp_new_files"`

	// AllowNonEmptyNewFiles treats a new file as stampable even when it
	// already carries content (template plugins populate files fast).
	AllowNonEmptyNewFiles bool `yaml:"allow_non_empty_new_files"`

	// NewFileDelayMs is how long to wait before stamping a new file, so
	// content-populating tools can finish first.
	NewFileDelayMs int `yaml:"new_file_delay_ms"`

	// ExcludedFolders lists vault-relative folder paths that are never
	// stamped. Matching is by whole path segments, not substrings.
	ExcludedFolders []string `yaml:"excluded_folders"`

	// DateFormat is the Go layout used to render stamp values.
	DateFormat string `yaml:"date_format"`

	// UTC renders stamps in UTC instead of local time.
	UTC bool `yaml:"utc"`

	// MergeStrategy selects the header merge engine: "text" rewrites
	// lines in place byte-for-byte, "yaml" goes through a parsed view.
	MergeStrategy string `yaml:"merge_strategy"`

	// PostStampCommand is an optional host-side command identifier to
	// run after a stamp. The daemon only records and surfaces it.
	PostStampCommand string `yaml:"post_stamp_command"`
}

// Validate validates the timestamps configuration.
func (c *TimestampsConfig) Validate() error {
	if c.MergeStrategy == "" {
		c.MergeStrategy = MergeStrategyText
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.CreatedKey, validation.Required),
		validation.Field(&c.ModifiedKey, validation.Required),
		validation.Field(&c.DateFormat, validation.Required),
		validation.Field(&c.NewFileDelayMs, validation.Min(0)),
		validation.Field(&c.MergeStrategy, validation.Required, validation.In(MergeStrategyText, MergeStrategyYAML)),
	)
}

// NewFileDelay returns the configured new-file delay as a duration.
func (c *TimestampsConfig) NewFileDelay() time.Duration {
	return time.Duration(c.NewFileDelayMs) * time.Millisecond
}

// Excluded reports whether a vault-relative path falls under one of the
// excluded folders. A path is excluded iff some prefix of its
// slash-separated segments exactly equals an excluded entry; substring
// matches within a segment do not count ("drafts" does not exclude
// "projects/drafts/note.md").
func (c *TimestampsConfig) Excluded(p string) bool {
	segs := splitSegments(p)
	for _, ex := range c.ExcludedFolders {
		exSegs := splitSegments(ex)
		if len(exSegs) == 0 || len(exSegs) > len(segs) {
			continue
		}
		match := true
		for i := range exSegs {
			if exSegs[i] != segs[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func splitSegments(p string) []string {
	p = strings.Trim(path.Clean("/"+p), "/")
	if p == "" || p == "." {
		return nil
	}
	return strings.Split(p, "/")
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./fmts.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Timestamps: TimestampsConfig{
			CreatedKey:     "created",
			ModifiedKey:    "modified",
			AutoUpdate:     true,
			StampNewFiles:  true,
			NewFileDelayMs: 1200,
			DateFormat:     "2006-01-02T15:04:05Z07:00",
			UTC:            true,
			MergeStrategy:  MergeStrategyText,
		},
	}
}
