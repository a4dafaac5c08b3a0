// Package users provides read access to library accounts.
//
// Account creation and credential checks live in the auth package; this
// repository serves listings and lookups.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByUsername("alice")
package users

import (
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every account ordered by username.
func (r *Repository) ListUsers() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Order("username ASC").Find(&users).Error
	return users, err
}

// CountByRole returns how many accounts hold the given role.
func (r *Repository) CountByRole(role entities.UserRole) (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}
