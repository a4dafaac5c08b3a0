package auth

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/config"
)

// isLocalPath validates that a redirect path is local to prevent open redirect attacks.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// Reject protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, falling back when invalid.
func sanitizeRedirectPath(path, fallback string) string {
	if isLocalPath(path) {
		return path
	}
	return fallback
}

type credentialsRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Next     string `form:"next" json:"next"`
}

// AuthController handles login, signup and logout.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *LoginLimiter
}

// NewAuthController creates a new authentication controller.
func NewAuthController(service *Service, sessionManager *SessionManager, cfg config.Auth) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter:    NewLoginLimiter(cfg),
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET("/login", ac.LoginPage)
	router.POST("/login", ac.Login)
	router.POST("/signup", ac.Signup)
	router.POST("/logout", ac.Logout)
	router.GET("/logout", ac.Logout) // Support GET for simple logout links
}

// LoginPage describes the login form. Logged-in users are sent to their home page.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, HomePath(GetUserRole(c)))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":      "Login",
		"next":       sanitizeRedirectPath(c.Query("next"), ""),
		"csrf_token": GetCSRFToken(c),
		"flash":      ac.sessionManager.PopFlash(c.Request),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		ac.respond(c, http.StatusBadRequest, "Invalid login request", "/")
		return
	}
	clientIP := c.ClientIP()

	if ac.rateLimiter != nil {
		allowed, retryAfter := ac.rateLimiter.Allow(clientIP, req.Username)
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second)/time.Second)))
			ac.respond(c, http.StatusTooManyRequests, "Too many login attempts. Please try again later.", "/")
			return
		}
	}

	user, err := ac.service.Authenticate(req.Username, req.Password)
	if err != nil {
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, req.Username)
		}

		switch {
		case errors.Is(err, ErrAccountLocked):
			ac.respond(c, http.StatusForbidden, "Account is locked. Please try again later.", "/")
		case IsCredentialError(err):
			ac.respond(c, http.StatusUnauthorized, "Invalid credentials", "/")
		default:
			log.Printf("Login failed for %q: %v", req.Username, err)
			ac.respond(c, http.StatusInternalServerError, "Login failed", "/")
		}
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, req.Username)
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session for %s: %v", user.Username, err)
		ac.respond(c, http.StatusInternalServerError, "Failed to create session", "/")
		return
	}

	home := HomePath(user.Role)
	if IsAPIRequest(c) {
		c.JSON(http.StatusOK, gin.H{
			"message":  "Login successful",
			"user":     user,
			"redirect": home,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, sanitizeRedirectPath(req.Next, home))
}

// Signup creates a patron account. The new user still has to log in.
func (ac *AuthController) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		ac.respond(c, http.StatusBadRequest, "Invalid signup request", "/")
		return
	}

	user, err := ac.service.Register(req.Username, req.Password)
	if err != nil {
		status, message := http.StatusBadRequest, "Signup failed"
		switch {
		case errors.Is(err, ErrUserExists):
			status, message = http.StatusConflict, "Username already exists"
		case errors.Is(err, ErrUsernameRequired):
			message = "Username is required"
		case errors.Is(err, ErrUsernameInvalid):
			message = "Username must be 3-64 characters, alphanumeric with underscore/hyphen only"
		case errors.Is(err, ErrPasswordRequired):
			message = "Password is required"
		case errors.Is(err, ErrPasswordTooShort):
			message = "Password must be at least 8 characters"
		case errors.Is(err, ErrPasswordTooLong):
			message = "Password exceeds maximum length of 72 characters"
		default:
			log.Printf("Signup failed for %q: %v", req.Username, err)
			status = http.StatusInternalServerError
		}
		ac.respond(c, status, message, "/")
		return
	}

	if IsAPIRequest(c) {
		c.JSON(http.StatusCreated, gin.H{
			"message": "Account created! Please login.",
			"user":    user,
		})
		return
	}
	ac.sessionManager.Flash(c.Request, "Account created! Please login.")
	c.Redirect(http.StatusSeeOther, "/")
}

// Logout destroys the session and returns to the welcome page.
func (ac *AuthController) Logout(c *gin.Context) {
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
	}
	ac.respond(c, http.StatusOK, "Logged out successfully", "/")
}

// respond answers API clients with JSON and browsers with a flash message
// followed by a redirect.
func (ac *AuthController) respond(c *gin.Context, status int, message, redirect string) {
	if IsAPIRequest(c) {
		key := "message"
		if status >= http.StatusBadRequest {
			key = "error"
		}
		c.JSON(status, gin.H{key: message})
		return
	}
	ac.sessionManager.Flash(c.Request, message)
	c.Redirect(http.StatusSeeOther, redirect)
}
