// Package auth provides authentication and authorization for the library.
//
// Accounts live in the users table with bcrypt password hashes and one of
// two roles: "user" (patron) and "admin" (librarian). Browsers authenticate
// with a session cookie managed by scs; sessions are stored in the main
// SQLite database, or in memory when running on PostgreSQL.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # CSRF key, auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//	AUTH_CSRF_ENABLED=true              # CSRF tokens on form posts
//
// # Usage
//
//	authService := auth.NewService(db.DB, cfg.Auth)
//	sessions, err := auth.NewSessionManager(sqlDB, cfg.Database.Driver, cfg.Auth)
//	authMiddleware := auth.NewMiddleware(authService, sessions)
//	router.Use(sessions.SessionLoadSave(), authMiddleware.Handler())
//	admin := router.Group("/", authMiddleware.RequireRole(entities.UserRoleAdmin))
//
// Extract user in handlers:
//
//	userID := auth.GetUserID(c)  // 0 when not logged in
package auth
