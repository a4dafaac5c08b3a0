package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

// usernamePattern allows 3-64 characters, alphanumeric plus underscore and hyphen.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

// maxFailedLogins is the number of consecutive failures that locks an account.
const maxFailedLogins = 5

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-64 characters, alphanumeric and underscore/hyphen only")
)

// IsCredentialError reports whether err means the username/password pair was
// rejected. Callers show a single message for all of them.
func IsCredentialError(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrInvalidPassword)
}

// Service handles authentication and account provisioning.
type Service struct {
	db     *gorm.DB
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

// Register creates a self-service patron account. Patrons always get the
// "user" role; administrators are provisioned through CreateUser.
func (s *Service) Register(username, password string) (*entities.User, error) {
	return s.CreateUser(username, password, entities.UserRoleUser)
}

// CreateUser creates a new account with the given role.
func (s *Service) CreateUser(username, password string, role entities.UserRole) (*entities.User, error) {
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if !usernamePattern.MatchString(username) {
		return nil, ErrUsernameInvalid
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	var existing entities.User
	err := s.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	passwordHash, err := HashPassword(password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
	}

	if err := s.db.Create(user).Error; err != nil {
		// Lost a race with a concurrent signup for the same name.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate validates credentials and returns the user with its role.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(username, password string) (*entities.User, error) {
	var user entities.User
	err := s.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.IsLocked(s.now()) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(&user)
		return nil, err
	}

	now := s.now()
	if err := s.db.Model(&user).Updates(map[string]any{
		"last_login_at":      now,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error; err != nil {
		log.Printf("Failed to record login of %s: %v", user.Username, err)
	}
	user.LastLoginAt = &now

	return &user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(user *entities.User) {
	user.FailedLoginCount++

	updates := map[string]any{
		"failed_login_count": user.FailedLoginCount,
	}

	if user.FailedLoginCount >= maxFailedLogins {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		updates["locked_until"] = s.now().Add(lockoutDuration)
	}

	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		log.Printf("Failed to record failed login of %s: %v", user.Username, err)
	}
}

// GetUserByID retrieves a user by their ID.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := s.db.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ResolveUserID maps a username to its numeric identity.
func (s *Service) ResolveUserID(username string) (uint, error) {
	var user entities.User
	err := s.db.Select("id").Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return user.ID, nil
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	var count int64
	err := s.db.Model(&entities.User{}).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
