package http

import (
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database    *database.Database
	Circulation Circulation
	Librarian   Librarian
	Actions     ActionLog

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	CSRFSecret     []byte // CSRF protection is off when empty

	// Loan lengths offered to patrons
	Loans config.Loans

	// Per-client limit on borrow and return requests
	Throttle config.Throttle

	// Task queue (optional)
	TaskRunner       TaskRunner
	LogRetentionDays int

	// Application info
	Version string
}
