// Package circulation implements the borrowing workflow of the library:
// searching the available catalog, lending a book, taking it back and
// reporting a patron's borrowing history.
//
// Borrow and Return each run as a single database transaction. A book's
// status is "borrowed" exactly when it has an open loan, and a book has at
// most one open loan at a time.
package circulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

// CatalogSearcher finds books that can currently be borrowed.
type CatalogSearcher interface {
	SearchAvailable(ctx context.Context, query string) ([]entities.Book, error)
}

// HistoryReader lists a patron's loans.
type HistoryReader interface {
	GetHistoryForUser(ctx context.Context, userID uint) ([]entities.LoanRecord, error)
}

// BorrowRequest describes a patron asking to take a book home for Days days.
type BorrowRequest struct {
	UserID   uint
	Username string
	BookID   uint
	Days     int
}

type Service struct {
	db      *gorm.DB
	catalog CatalogSearcher
	history HistoryReader
	maxDays int
	now     func() time.Time
}

func NewService(db *gorm.DB, catalog CatalogSearcher, history HistoryReader, cfg config.Loans) *Service {
	return &Service{
		db:      db,
		catalog: catalog,
		history: history,
		maxDays: cfg.MaxDays,
		now:     time.Now,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// timestamp returns the current time as stored in loan rows.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// SearchAvailable returns the books that can be borrowed right now, filtered
// by a case-insensitive substring of title or author. An empty query lists
// every available book.
func (s *Service) SearchAvailable(ctx context.Context, query string) ([]entities.Book, error) {
	books, err := s.catalog.SearchAvailable(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search available books: %w", err)
	}
	return books, nil
}

// ValidateLoanDays checks a requested loan length without touching the store.
func (s *Service) ValidateLoanDays(days int) error {
	if days <= 0 {
		return ErrInvalidLoanDays
	}
	if s.maxDays > 0 && days > s.maxDays {
		return fmt.Errorf("%w of %d days", ErrLoanTooLong, s.maxDays)
	}
	return nil
}

// Borrow lends a book to a patron. The book's status flip and the new loan
// row commit together; concurrent borrowers of the same book see exactly one
// success and ErrBookUnavailable for everyone else.
func (s *Service) Borrow(ctx context.Context, req BorrowRequest) (*entities.Transaction, error) {
	if err := s.ValidateLoanDays(req.Days); err != nil {
		return nil, err
	}
	if req.UserID == 0 {
		return nil, ErrUserRequired
	}

	borrowedAt := s.timestamp()
	loan := &entities.Transaction{
		UserID:     req.UserID,
		Username:   req.Username,
		BookID:     req.BookID,
		BorrowDate: borrowedAt,
		DueDate:    borrowedAt.AddDate(0, 0, req.Days),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.Book{}).
			Where("id = ? AND status = ?", req.BookID, entities.BookStatusAvailable).
			Update("status", entities.BookStatusBorrowed)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return bookUnavailableReason(tx, req.BookID)
		}

		return tx.Create(loan).Error
	})
	if err != nil {
		return nil, wrapUnexpected("borrow book", err)
	}
	return loan, nil
}

// Return closes the patron's open loan of a book and makes the book
// available again. Returning a book twice fails with ErrNoOpenLoan.
func (s *Service) Return(ctx context.Context, userID, bookID uint) (*entities.Transaction, error) {
	returnedAt := s.timestamp()
	var loan entities.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND book_id = ? AND return_date IS NULL", userID, bookID).
			Order("borrow_date DESC").
			First(&loan).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNoOpenLoan
		}
		if err != nil {
			return err
		}

		// Guarded on return_date so that a concurrent return of the same
		// loan cannot close it twice.
		result := tx.Model(&entities.Transaction{}).
			Where("id = ? AND return_date IS NULL", loan.ID).
			Update("return_date", returnedAt)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNoOpenLoan
		}

		return tx.Model(&entities.Book{}).
			Where("id = ?", bookID).
			Update("status", entities.BookStatusAvailable).Error
	})
	if err != nil {
		return nil, wrapUnexpected("return book", err)
	}

	loan.ReturnDate = &returnedAt
	return &loan, nil
}

// History lists every loan of a patron, open or closed, newest first.
func (s *Service) History(ctx context.Context, userID uint) ([]entities.LoanRecord, error) {
	records, err := s.history.GetHistoryForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("borrowing history: %w", err)
	}
	return records, nil
}

// bookUnavailableReason tells a missing book apart from one that is already lent out.
func bookUnavailableReason(tx *gorm.DB, bookID uint) error {
	var count int64
	if err := tx.Model(&entities.Book{}).Where("id = ?", bookID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrBookNotFound
	}
	return ErrBookUnavailable
}

// wrapUnexpected adds context to storage failures while leaving the
// package's own sentinel errors untouched.
func wrapUnexpected(op string, err error) error {
	switch {
	case errors.Is(err, ErrBookNotFound),
		errors.Is(err, ErrBookUnavailable),
		errors.Is(err, ErrNoOpenLoan):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
