package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyRole     = "auth_role"
)

// Where browsers are sent when they lack a session or the required role.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
	AdminPath     = "/admin"
)

// Middleware handles authentication for HTTP requests.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	publicPaths    map[string]bool
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	publicPaths := map[string]bool{
		"/":            true,
		"/health":      true,
		"/ping":        true,
		"/login":       true,
		"/signup":      true,
		"/favicon.ico": true,
	}

	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		publicPaths:    publicPaths,
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
// Public paths pass through, with the user attached when a session exists.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := m.trySessionAuth(c)
		if user != nil {
			setUserContext(c, user)
			c.Next()
			return
		}

		if m.publicPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		if IsAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.Path))
		c.Abort()
	}
}

// trySessionAuth resolves the session to a current user record, so that
// deleted accounts and role changes take effect immediately.
func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	user, err := m.service.GetUserByID(userID)
	if err != nil {
		return nil
	}

	return user
}

func setUserContext(c *gin.Context, user *entities.User) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyRole, user.Role)
}

// IsAPIRequest determines if this is an API request vs web browser request.
func IsAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// RequireRole returns a middleware that requires one of the given roles.
// Browsers without the role are sent back to the patron dashboard.
func (m *Middleware) RequireRole(roles ...entities.UserRole) gin.HandlerFunc {
	roleSet := make(map[entities.UserRole]bool)
	for _, r := range roles {
		roleSet[r] = true
	}

	return func(c *gin.Context) {
		if GetUserID(c) == 0 {
			if IsAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "authentication required",
				})
				return
			}
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		if !roleSet[GetUserRole(c)] {
			if IsAPIRequest(c) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
					"error": "insufficient permissions",
				})
				return
			}
			c.Redirect(http.StatusFound, DashboardPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// HomePath returns the landing page for a role.
func HomePath(role entities.UserRole) string {
	if role == entities.UserRoleAdmin {
		return AdminPath
	}
	return DashboardPath
}

// Helper functions to extract auth data from Gin context

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 if not authenticated.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	if name, exists := c.Get(ContextKeyUsername); exists {
		if username, ok := name.(string); ok {
			return username
		}
	}
	return ""
}

// GetUserRole retrieves the authenticated user's role from the context.
func GetUserRole(c *gin.Context) entities.UserRole {
	if r, exists := c.Get(ContextKeyRole); exists {
		if role, ok := r.(entities.UserRole); ok {
			return role
		}
	}
	return ""
}

// IsAuthenticated returns true if the request carries a logged-in user.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != 0
}
