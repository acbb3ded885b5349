// Package postgate is an embeddable blog admin console built with Go, Echo,
// and templ. It provides an authentication gate over a substitutable auth
// backend, a post editor, image uploads, and an audit trail.
//
// Callers provide their own templ templates via the ViewFuncs struct;
// postgate handles handler logic, middleware, sessions, and persistence.
package postgate

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/avessi/postgate/audit"
	"github.com/avessi/postgate/session"
)

// ViewFuncs holds caller-provided templ components that the console calls
// when rendering pages. This is the inversion-of-control mechanism that
// lets callers own and customize all templates.
type ViewFuncs struct {
	AdminLogin     func(showError bool, errorMsg string, csrfToken string) templ.Component
	AdminDashboard func(posts []BlogPost, flash session.Notification, csrfToken string) templ.Component
	AdminPostForm  func(post BlogPost, submitLabel string, categories []string, csrfToken string) templ.Component
	AdminImages    func(images []Image, csrfToken string) templ.Component
	AdminAudit     func(entries []audit.Entry, csrfToken string) templ.Component
	NotFound       func() templ.Component
	ServerError    func() templ.Component
}

// App is the central postgate application. It wires together the stores,
// the session provider, handlers, middleware, and caller-provided
// templates.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Store    *Store
	Auth     session.Client
	Provider *session.Provider
	Audit    *audit.Store
	Views    ViewFuncs

	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	staticDir    string

	authClient session.Client
	authorizer session.Authorizer
	notifier   session.Notifier
	authStore  *AuthStore
	stopAudit  func()
}

// New creates a postgate App with the given configuration and view
// functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Start initializes the stores, session provider, middleware, and routes,
// then starts the server.
func (a *App) Start() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("postgate: SessionSecret is required")
	}

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("postgate: init store: %w", err)
	}
	a.Store = store

	// Auth backend: caller-substituted client or the built-in SQLite one.
	a.Auth = a.authClient
	if a.Auth == nil {
		authStore, err := NewAuthStore(a.Config.AuthDatabasePath)
		if err != nil {
			return fmt.Errorf("postgate: init auth store: %w", err)
		}
		a.authStore = authStore
		a.Auth = authStore
	}

	if a.authorizer == nil {
		a.authorizer = session.AllowList(a.Config.AdminEmails)
	}
	if a.notifier == nil {
		a.notifier = session.LogNotifier{}
	}

	a.Provider = session.NewProvider(a.Auth,
		session.WithAuthorizer(a.authorizer),
		session.WithNotifier(a.notifier),
	)

	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	if a.Config.AuditEnabled {
		auditStore, err := audit.NewStore(a.Config.AuditDatabasePath)
		if err != nil {
			return fmt.Errorf("postgate: init audit: %w", err)
		}
		a.Audit = auditStore
		a.stopAudit = auditStore.StartCleanupScheduler(a.Config.AuditRetentionDays, 24*time.Hour)
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Caller's static assets, including /public/uploads/ images.
	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/", handleRootRedirect)

	// Admin routes
	e.GET("/admin/", a.handleAdmin)
	e.POST("/admin/login/", a.handleAdminLogin)
	e.POST("/admin/logout/", a.handleAdminLogout)
	e.GET("/admin/post/new/", a.handleAdminPostNew)
	e.GET("/admin/post/:id/", a.handleAdminPost)
	e.POST("/admin/save/", a.handleAdminSave)
	e.DELETE("/admin/post/:id/", a.handleAdminDelete)
	e.GET("/admin/images/", a.handleImageList)
	e.POST("/admin/images/upload/", a.handleImageUpload)
	e.DELETE("/admin/images/:filename/", a.handleImageDelete)
	e.GET("/admin/audit/", a.handleAudit)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.Provider != nil {
		a.Provider.Close()
	}
	if a.stopAudit != nil {
		a.stopAudit()
	}
	if a.Store != nil {
		a.Store.Close()
	}
	if a.authStore != nil {
		a.authStore.Close()
	}
	if a.Audit != nil {
		a.Audit.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if
// empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally
// exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("postgate: required environment variable %s is not set", key)
	}
	return v
}
