package http

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/auth"
	"github.com/mrlokans/librarydesk/internal/catalog"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(31536000))
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	authMiddleware := cfg.AuthMiddleware
	if authMiddleware == nil {
		authMiddleware = auth.NewMiddleware(cfg.SessionManager, cfg.AuthConfig)
	}
	router.Use(authMiddleware.Handler())

	router.SetHTMLTemplate(template.Must(LoadTemplates(cfg.TemplatesPath)))
	if cfg.StaticPath != "" {
		router.Static("/static", cfg.StaticPath)
	}

	topRated := cfg.TopRatedLimit
	if topRated <= 0 {
		topRated = catalog.DefaultLimit
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	ui := NewUIController(cfg.Catalog, cfg.Lending, cfg.SessionManager, topRated)
	accountsController := NewAccountsController(cfg.Accounts, cfg.SessionManager, cfg.RateLimiter)
	catalogController := NewCatalogController(cfg.Catalog, topRated)
	lendingController := NewLendingController(cfg.Lending)

	requireClient := authMiddleware.RequireClient()
	requireLibrarian := authMiddleware.RequireLibrarian()

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", Ping)

	// Catalog pages
	router.GET("/", ui.Index)
	router.GET("/main_menu", ui.MainMenu)
	router.POST("/main_menu", ui.MainMenuSearch)
	router.GET("/book_detail/:id", ui.BookDetail)
	router.GET("/search", ui.SearchPage)
	router.POST("/search", ui.Search)

	// Account pages
	router.GET("/signup", accountsController.SignupPage)
	router.POST("/signup", accountsController.Signup)
	signin := router.Group("/signin")
	if cfg.RateLimiter != nil {
		signin.Use(cfg.RateLimiter.RateLimitMiddleware())
	}
	signin.GET("/:user_type", accountsController.SigninPage)
	signin.POST("/:user_type", accountsController.Signin)
	router.POST("/logout", accountsController.Logout)

	// Client pages
	router.GET("/client_home", ui.ClientHome)
	client := router.Group("", requireClient)
	client.GET("/client_return/:email", ui.ClientReturn)
	client.POST("/client_return/:email", ui.ReturnDocument)
	client.GET("/pay_fee/:email", ui.PayFeePage)
	client.POST("/pay_fee/:email", ui.PayFee)

	// Catalog API
	router.GET("/api/documents/search", catalogController.Search)
	router.POST("/api/documents/full-text", catalogController.FullText)
	router.GET("/api/documents/top-rated", catalogController.TopRated)
	router.GET("/api/documents/:id", catalogController.Document)

	// Lending API
	clientAPI := router.Group("/api/clients/:email", requireClient)
	clientAPI.GET("/loans", lendingController.Loans)
	clientAPI.POST("/loans", lendingController.Borrow)
	clientAPI.GET("/loans/:id/lend-date", lendingController.LendDate)
	clientAPI.POST("/returns", lendingController.Return)
	clientAPI.POST("/fees/pay", lendingController.PayFee)
	clientAPI.GET("/balance", lendingController.Balance)
	clientAPI.POST("/balance/settle", lendingController.Settle)
	router.GET("/api/loans/overdue", requireLibrarian, lendingController.Overdue)

	// Task management endpoints
	if cfg.ScanRunner != nil && cfg.TaskStatus != nil {
		tasksController := NewTasksController(cfg.ScanRunner, cfg.TaskStatus)
		router.POST("/api/tasks/overdue-scan/run", requireLibrarian, tasksController.RunOverdueScan)
		router.GET("/api/tasks/:id", requireLibrarian, tasksController.GetTaskStatus)
	}

	return router
}
