package http

import (
	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/config"
	"github.com/mrlokans/librarydesk/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Lending  LendingService
	Catalog  CatalogService
	Accounts AccountService

	// Authentication (all optional)
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	RateLimiter    *auth.RateLimiter
	CSRFSecret     []byte
	SecureCookies  bool
	AuthConfig     config.Auth

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Number of books shown in the top rated panel
	TopRatedLimit int

	// Task queue (optional)
	ScanRunner ScanRunner
	TaskStatus TaskStatusReader

	// Application info
	Version string
}
