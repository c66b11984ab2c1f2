package goSession

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/finchett/goSession/claims"
)

// Config defines all session policy. Configure it once before Build; the
// Session treats it as immutable afterwards.
type Config struct {
	API      APIConfig
	Tokens   TokenConfig
	Identity IdentityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the auth backend this session authenticates against.
type APIConfig struct {
	// BaseURL is the backend origin, e.g. "https://api.example.org".
	BaseURL string
	// Endpoint paths, joined onto BaseURL. Defaults cover the standard
	// /auth/* layout.
	LoginPath   string
	RefreshPath string
	StatusPath  string
	LogoutPath  string
	// Timeout bounds every network call. A timed-out refresh or status
	// query is handled exactly like an explicit failure response.
	Timeout time.Duration
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls token storage and expiry policy.
type TokenConfig struct {
	// StoragePrefix namespaces the two storage keys, keeping them distinct
	// from any other data sharing the backend.
	StoragePrefix string
	// AccessExpiryBuffer treats an access token as expired this long before
	// its literal deadline so a refresh can complete in time. The refresh
	// token is always checked against its literal deadline.
	AccessExpiryBuffer time.Duration
}

/*
====================================
IDENTITY CONFIG
====================================
*/

// IdentityConfig controls the cached status query.
type IdentityConfig struct {
	// FreshnessWindow is how long one status response may be reused by all
	// consumers before the backend is asked again.
	FreshnessWindow time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the policy carried by the session out of the box:
// /auth/* endpoints, a 5-minute access expiry buffer, a 5-second identity
// freshness window, 10-second network timeout.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			LoginPath:   "/auth/login",
			RefreshPath: "/auth/refresh",
			StatusPath:  "/auth/status",
			LogoutPath:  "/auth/logout",
			Timeout:     10 * time.Second,
		},
		Tokens: TokenConfig{
			StoragePrefix:      "goSession",
			AccessExpiryBuffer: claims.AccessExpiryBuffer,
		},
		Identity: IdentityConfig{
			FreshnessWindow: 5 * time.Second,
		},
		Audit: AuditConfig{
			BufferSize: 64,
			DropIfFull: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	// All fields are values; a shallow copy is a full copy.
	return cfg
}

func fillConfigDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.API.LoginPath == "" {
		cfg.API.LoginPath = def.API.LoginPath
	}
	if cfg.API.RefreshPath == "" {
		cfg.API.RefreshPath = def.API.RefreshPath
	}
	if cfg.API.StatusPath == "" {
		cfg.API.StatusPath = def.API.StatusPath
	}
	if cfg.API.LogoutPath == "" {
		cfg.API.LogoutPath = def.API.LogoutPath
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = def.API.Timeout
	}
	if cfg.Tokens.StoragePrefix == "" {
		cfg.Tokens.StoragePrefix = def.Tokens.StoragePrefix
	}
	if cfg.Tokens.AccessExpiryBuffer == 0 {
		cfg.Tokens.AccessExpiryBuffer = def.Tokens.AccessExpiryBuffer
	}
	if cfg.Identity.FreshnessWindow == 0 {
		cfg.Identity.FreshnessWindow = def.Identity.FreshnessWindow
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		return errors.New("API.BaseURL is required")
	}
	parsed, err := url.Parse(cfg.API.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errors.New("API.BaseURL must be an absolute URL")
	}
	if cfg.API.Timeout < 0 {
		return errors.New("API.Timeout must not be negative")
	}
	if cfg.Tokens.AccessExpiryBuffer < 0 {
		return errors.New("Tokens.AccessExpiryBuffer must not be negative")
	}
	if cfg.Identity.FreshnessWindow < 0 {
		return errors.New("Identity.FreshnessWindow must not be negative")
	}
	return nil
}
