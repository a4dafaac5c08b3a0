package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.AuthConfig.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}

	// Session runs after CSRF so session context isn't overwritten by CSRF's request replacement
	var flasher Flasher
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
		flasher = cfg.SessionManager
	}

	authMiddleware := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager)
	router.Use(authMiddleware.Handler())

	if cfg.AuthService != nil && cfg.SessionManager != nil {
		authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig)
		authController.RegisterRoutes(router)
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	patron := NewPatronController(cfg.Circulation, cfg.Actions, flasher, cfg.Loans)
	throttle := NewThrottle(cfg.Throttle).Middleware()

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", Ping)

	// Patron pages and actions
	router.GET("/", patron.Welcome)
	router.GET("/dashboard", patron.Dashboard)
	router.POST("/borrow", throttle, patron.Borrow)
	router.POST("/return", throttle, patron.Return)

	// Patron API
	router.GET("/api/books/available", patron.AvailableBooks)
	router.GET("/api/loans", patron.Loans)
	router.POST("/api/loans", throttle, patron.Borrow)
	router.POST("/api/loans/return", throttle, patron.Return)

	// Admin pages, actions and API
	requireAdmin := authMiddleware.RequireRole(entities.UserRoleAdmin)
	adminController := NewAdminController(cfg.Librarian, cfg.Actions, flasher)

	router.GET("/admin", requireAdmin, adminController.Dashboard)
	router.POST("/add_book", requireAdmin, adminController.AddBook)
	router.POST("/update_book", requireAdmin, adminController.UpdateBook)
	router.POST("/delete_book", requireAdmin, adminController.DeleteBook)
	router.POST("/create_user", requireAdmin, adminController.CreateUser)

	adminAPI := router.Group("/api/admin", requireAdmin)
	adminAPI.GET("/books", adminController.ListBooks)
	adminAPI.POST("/books", adminController.AddBook)
	adminAPI.PATCH("/books/:id", adminController.UpdateBook)
	adminAPI.DELETE("/books/:id", adminController.DeleteBook)
	adminAPI.GET("/stats", adminController.Stats)
	adminAPI.GET("/users", adminController.ListUsers)
	adminAPI.POST("/users", adminController.CreateUser)
	adminAPI.GET("/transactions", adminController.ListTransactions)
	adminAPI.GET("/logs", adminController.Logs)

	// Task management endpoints
	if cfg.TaskRunner != nil {
		tasksController := NewTasksController(cfg.TaskRunner, cfg.LogRetentionDays)
		adminAPI.GET("/tasks/types", tasksController.ListTaskTypes)
		adminAPI.GET("/tasks/:id", tasksController.GetTaskStatus)
		adminAPI.POST("/tasks/:type/run", tasksController.RunTask)
	}

	return router
}
