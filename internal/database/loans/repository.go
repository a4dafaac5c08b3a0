// Package loans provides read access to borrowing transactions.
//
// Loans are opened and closed by the circulation service inside a database
// transaction; this repository only reports on them.
package loans

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

const recordColumns = "t.id AS transaction_id, t.book_id, COALESCE(b.title, '') AS title, " +
	"t.user_id, t.username, t.borrow_date, t.due_date, t.return_date"

// Repository handles loan reporting queries.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new loans repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) records() *gorm.DB {
	return r.db.Table("transactions AS t").
		Select(recordColumns).
		Joins("LEFT JOIN books AS b ON b.id = t.book_id")
}

// GetHistoryForUser returns every loan of a user, open or closed, newest first.
func (r *Repository) GetHistoryForUser(ctx context.Context, userID uint) ([]entities.LoanRecord, error) {
	var records []entities.LoanRecord
	err := r.records().WithContext(ctx).
		Where("t.user_id = ?", userID).
		Order("t.borrow_date DESC, t.id DESC").
		Scan(&records).Error
	return records, err
}

// GetAllRecords returns the loans of every user, newest first.
func (r *Repository) GetAllRecords() ([]entities.LoanRecord, error) {
	var records []entities.LoanRecord
	err := r.records().
		Order("t.borrow_date DESC, t.id DESC").
		Scan(&records).Error
	return records, err
}

// GetOverdue returns open loans whose due date is before now, oldest due first.
func (r *Repository) GetOverdue(now time.Time) ([]entities.LoanRecord, error) {
	var records []entities.LoanRecord
	err := r.records().
		Where("t.return_date IS NULL AND t.due_date < ?", now.UTC()).
		Order("t.due_date ASC").
		Scan(&records).Error
	return records, err
}

// CountOpen returns the number of loans not yet returned.
func (r *Repository) CountOpen() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Transaction{}).Where("return_date IS NULL").Count(&count).Error
	return count, err
}
