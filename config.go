package postgate

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/avessi/postgate/session"
)

// SiteConfig holds all configuration for a postgate console.
type SiteConfig struct {
	Name string `env:"SITE_NAME" envDefault:"Admin Console"`
	URL  string `env:"SITE_URL" envDefault:"http://localhost:3000"`

	Addr             string `env:"ADDR" envDefault:":3000"`
	DatabasePath     string `env:"DATABASE_PATH" envDefault:"data/posts.db"`
	AuthDatabasePath string `env:"AUTH_DATABASE_PATH" envDefault:"data/auth.db"`

	AuditEnabled       bool   `env:"AUDIT_ENABLED" envDefault:"true"`
	AuditDatabasePath  string `env:"AUDIT_DATABASE_PATH" envDefault:"data/audit.db"`
	AuditRetentionDays int    `env:"AUDIT_RETENTION_DAYS" envDefault:"365"`

	SessionSecret string   `env:"SESSION_SECRET"`                // Required: cookie encryption secret
	CookieSecure  bool     `env:"COOKIE_SECURE"`                 // Set true for HTTPS
	AdminEmails   []string `env:"ADMIN_EMAILS" envSeparator:","` // Admin allow-list; demo default when empty
}

// LoadConfig builds a SiteConfig from environment variables.
func LoadConfig() (SiteConfig, error) {
	var cfg SiteConfig
	if err := env.Parse(&cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

// setDefaults fills zero values for programmatic (non-env) embedding.
func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Admin Console"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/posts.db"
	}
	if c.AuthDatabasePath == "" {
		c.AuthDatabasePath = "data/auth.db"
	}
	if c.AuditDatabasePath == "" {
		c.AuditDatabasePath = "data/audit.db"
	}
	if c.AuditRetentionDays == 0 {
		c.AuditRetentionDays = 365
	}
	if len(c.AdminEmails) == 0 {
		c.AdminEmails = session.DefaultAllowList
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance. The
// callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for caller-owned static assets
// (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithAuthClient substitutes the auth backend. Any session.Client works;
// without this option postgate uses its own SQLite AuthStore.
func WithAuthClient(c session.Client) Option {
	return func(a *App) {
		a.authClient = c
	}
}

// WithAuthorizer replaces the allow-list admin check.
func WithAuthorizer(auth session.Authorizer) Option {
	return func(a *App) {
		a.authorizer = auth
	}
}

// WithNotifier sets the notifier the session provider emits to, in addition
// to the per-request flash messages the handlers manage.
func WithNotifier(n session.Notifier) Option {
	return func(a *App) {
		a.notifier = n
	}
}
