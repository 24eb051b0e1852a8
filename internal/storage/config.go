// Manages server configuration stored in config.yml.

package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "config.yml"

// ServerConfig stores all server-wide configuration.
// Loaded from config.yml, created with defaults if missing.
type ServerConfig struct {
	// JWTSecret is the hex encoded secret used to sign JWT tokens.
	// Auto-generated if empty on first load.
	JWTSecret string `yaml:"jwt_secret"`

	// MaxUploadBytes limits the size of an uploaded image or document body.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	RateLimits RateLimits `yaml:"rate_limits"`
	Git        GitConfig  `yaml:"git"`
	Markdown   Markdown   `yaml:"markdown"`
}

// RateLimits defines rate limiting configuration (requests per minute).
type RateLimits struct {
	// AuthRatePerMin limits sign-in and sign-up attempts per IP.
	// 0 means unlimited.
	AuthRatePerMin int `yaml:"auth_rate_per_min"`

	// WriteRatePerMin limits mutations per user.
	// 0 means unlimited.
	WriteRatePerMin int `yaml:"write_rate_per_min"`
}

// Validate checks that rate limit values are non-negative.
func (r *RateLimits) Validate() error {
	if r.AuthRatePerMin < 0 {
		return errors.New("auth_rate_per_min must be non-negative")
	}
	if r.WriteRatePerMin < 0 {
		return errors.New("write_rate_per_min must be non-negative")
	}
	return nil
}

// DefaultRateLimits returns the default rate limits.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		AuthRatePerMin:  5,  // 5 req/min for auth
		WriteRatePerMin: 60, // 60 req/min for writes
	}
}

// GitConfig configures the audit mirror.
type GitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Validate checks the author identity when the mirror is enabled.
func (g *GitConfig) Validate() error {
	if !g.Enabled {
		return nil
	}
	if g.AuthorName == "" {
		return errors.New("author_name is required")
	}
	if _, err := mail.ParseAddress(g.AuthorEmail); err != nil {
		return fmt.Errorf("author_email: %w", err)
	}
	return nil
}

// Markdown configures rendering.
type Markdown struct {
	// Extensions lists goldmark extensions by name. Empty means the defaults.
	Extensions []string `yaml:"extensions,omitempty"`
	HardWraps  bool     `yaml:"hard_wraps"`
	// Unsafe lets raw HTML in documents through to the rendered page.
	Unsafe bool `yaml:"unsafe"`
}

// DefaultServerConfig returns the configuration written on first start.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MaxUploadBytes: 10 * 1024 * 1024, // 10 MiB
		RateLimits:     DefaultRateLimits(),
		Git: GitConfig{
			AuthorName:  "mdcms",
			AuthorEmail: "mdcms@localhost",
		},
	}
}

// JWTKey returns the decoded signing key.
func (c *ServerConfig) JWTKey() []byte {
	b, _ := hex.DecodeString(c.JWTSecret)
	return b
}

// Validate checks that the configuration is valid.
func (c *ServerConfig) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	b, err := hex.DecodeString(c.JWTSecret)
	if err != nil {
		return fmt.Errorf("jwt_secret: %w", err)
	}
	if len(b) < 32 {
		return errors.New("jwt_secret must be at least 32 bytes")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if err := c.RateLimits.Validate(); err != nil {
		return fmt.Errorf("rate_limits: %w", err)
	}
	if err := c.Git.Validate(); err != nil {
		return fmt.Errorf("git: %w", err)
	}
	return nil
}

// LoadServerConfig loads configuration from dataDir/config.yml.
// Creates the file with defaults if it doesn't exist.
// Auto-generates JWTSecret if empty.
func LoadServerConfig(dataDir string) (*ServerConfig, error) {
	path := filepath.Join(dataDir, configFileName)

	cfg := DefaultServerConfig()
	missing := false
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is constructed from dataDir, not user input
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", configFileName, err)
		}
		missing = true
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configFileName, err)
	}

	modified := false
	if cfg.JWTSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.JWTSecret = hex.EncodeToString(b)
		modified = true
	}

	if modified || missing {
		if err := cfg.Save(dataDir); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", configFileName, err)
	}
	return &cfg, nil
}

// Save saves configuration to dataDir/config.yml.
func (c *ServerConfig) Save(dataDir string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, configFileName), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configFileName, err)
	}
	return nil
}
