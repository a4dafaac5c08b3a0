// Package books provides database operations for the library catalog.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	available, err := repo.SearchAvailable(ctx, "tolkien")
package books

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

var (
	ErrBookNotFound = errors.New("book not found")
	ErrBookOnLoan   = errors.New("book is currently on loan")
	ErrInvalidField = errors.New("field cannot be updated")
)

// UpdatableFields are the book columns an administrator may edit.
// Status is owned by the circulation workflow and is never edited directly.
var UpdatableFields = map[string]bool{
	"title":    true,
	"author":   true,
	"category": true,
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateBook inserts a new book. New books always start out available.
func (r *Repository) CreateBook(book *entities.Book) error {
	book.Status = entities.BookStatusAvailable
	return r.db.Create(book).Error
}

// GetBookByID retrieves a book by its ID.
func (r *Repository) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetAllBooks returns the whole catalog regardless of status.
func (r *Repository) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Order("id ASC").Find(&books).Error
	return books, err
}

// SearchAvailable returns available books whose title or author contains
// query, ignoring case. An empty query returns every available book.
// The query is matched literally; % and _ carry no wildcard meaning.
func (r *Repository) SearchAvailable(ctx context.Context, query string) ([]entities.Book, error) {
	var books []entities.Book
	q := r.db.WithContext(ctx).Where("status = ?", entities.BookStatusAvailable)

	if query != "" {
		pattern := "%" + likeEscaper.Replace(query) + "%"
		q = q.Where(`LOWER(title) LIKE LOWER(?) ESCAPE '\' OR LOWER(author) LIKE LOWER(?) ESCAPE '\'`, pattern, pattern)
	}

	err := q.Order("id ASC").Find(&books).Error
	return books, err
}

// UpdateBookField sets one editable column of a book.
// The field is checked against UpdatableFields before any query runs.
func (r *Repository) UpdateBookField(id uint, field, value string) error {
	if !UpdatableFields[field] {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}

	result := r.db.Model(&entities.Book{}).Where("id = ?", id).Update(field, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// DeleteBook removes a book from the catalog. Books that are currently on
// loan cannot be deleted; their closed loan history is kept.
func (r *Repository) DeleteBook(id uint) error {
	result := r.db.Where("id = ? AND status = ?", id, entities.BookStatusAvailable).Delete(&entities.Book{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.Model(&entities.Book{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrBookNotFound
	}
	return ErrBookOnLoan
}

// CountByStatus returns the number of books per status.
func (r *Repository) CountByStatus() (map[entities.BookStatus]int64, error) {
	var rows []struct {
		Status entities.BookStatus
		Count  int64
	}
	err := r.db.Model(&entities.Book{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[entities.BookStatus]int64{
		entities.BookStatusAvailable: 0,
		entities.BookStatusBorrowed:  0,
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
