package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/chronicle/internal/engine"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app" toml:"app"`
	Vault  VaultConfig       `yaml:"vault" toml:"vault"`
	GC     GCConfig          `yaml:"gc" toml:"gc"`
	Git    GitConfig         `yaml:"git" toml:"git"`
	Daily  DailyConfig       `yaml:"daily" toml:"daily"`
	Search SearchConfig      `yaml:"search" toml:"search"`
	Auth   AuthConfig        `yaml:"auth" toml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.GC.Validate(); err != nil {
		return fmt.Errorf("gc: %w", err)
	}
	if err := c.Git.Validate(); err != nil {
		return fmt.Errorf("git: %w", err)
	}
	if err := c.Daily.Validate(); err != nil {
		return fmt.Errorf("daily: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return c.Auth.Validate()
}

// Engine maps the configuration onto the engine settings.
func (c *Config) Engine() engine.Config {
	return engine.Config{
		VaultPath:        c.Vault.Path,
		GCGrace:          c.GC.Grace,
		GitEnabled:       c.Git.Enabled,
		GitBinary:        c.Git.Binary,
		GitName:          c.Git.AuthorName,
		GitEmail:         c.Git.AuthorEmail,
		DoneHeading:      c.Daily.DoneHeading,
		TomorrowHeading:  c.Daily.TomorrowHeading,
		SearchPerPage:    c.Search.PerPage,
		SearchMaxPerPage: c.Search.MaxPerPage,
	}
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
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
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// GCConfig holds asset garbage collection settings.
type GCConfig struct {
	// Grace is the minimum age of an unreferenced image before it is deleted.
	Grace time.Duration `yaml:"grace" toml:"grace"`
}

// Validate validates the GC configuration.
func (c *GCConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Grace, validation.Min(time.Duration(0))),
	)
}

// GitConfig holds version history settings.
type GitConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	Binary      string `yaml:"binary" toml:"binary"`
	AuthorName  string `yaml:"author_name" toml:"author_name"`
	AuthorEmail string `yaml:"author_email" toml:"author_email"`
}

// Validate validates the git configuration.
func (c *GitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.AuthorName, validation.Length(0, 128)),
		validation.Field(&c.AuthorEmail, is.EmailFormat),
	)
}

// DailyConfig holds the section headings of daily reports.
type DailyConfig struct {
	DoneHeading     string `yaml:"done_heading" toml:"done_heading"`
	TomorrowHeading string `yaml:"tomorrow_heading" toml:"tomorrow_heading"`
}

// Validate validates the daily configuration.
func (c *DailyConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.DoneHeading, validation.Length(0, 100)),
		validation.Field(&c.TomorrowHeading, validation.Length(0, 100)),
	); err != nil {
		return err
	}
	if c.DoneHeading != "" && c.DoneHeading == c.TomorrowHeading {
		return fmt.Errorf("done_heading and tomorrow_heading must differ")
	}
	return nil
}

// SearchConfig holds search pagination limits. Zero means the built-in
// default.
type SearchConfig struct {
	PerPage    int `yaml:"per_page" toml:"per_page"`
	MaxPerPage int `yaml:"max_per_page" toml:"max_per_page"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.PerPage, validation.Min(0)),
		validation.Field(&c.MaxPerPage, validation.Min(0)),
	); err != nil {
		return err
	}
	if c.PerPage > 0 && c.MaxPerPage > 0 && c.PerPage > c.MaxPerPage {
		return fmt.Errorf("per_page %d exceeds max_per_page %d", c.PerPage, c.MaxPerPage)
	}
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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
		GC: GCConfig{
			Grace: 5 * time.Minute,
		},
		Git: GitConfig{
			Enabled: true,
			Binary:  "git",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
