// Package admin implements the librarian's catalog and account management.
// Every successful mutation is recorded in the action log.
package admin

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/entities"
)

var (
	ErrTitleRequired  = errors.New("title is required")
	ErrAuthorRequired = errors.New("author is required")
	ErrValueRequired  = errors.New("new value is required")
)

// Catalog is the book storage used by the admin service.
type Catalog interface {
	CreateBook(book *entities.Book) error
	GetBookByID(id uint) (*entities.Book, error)
	GetAllBooks() ([]entities.Book, error)
	UpdateBookField(id uint, field, value string) error
	DeleteBook(id uint) error
	CountByStatus() (map[entities.BookStatus]int64, error)
}

// LoanLedger reads loan records across all patrons.
type LoanLedger interface {
	GetAllRecords() ([]entities.LoanRecord, error)
	GetOverdue(now time.Time) ([]entities.LoanRecord, error)
	CountOpen() (int64, error)
}

// AccountCreator creates user accounts with an explicit role.
type AccountCreator interface {
	CreateUser(username, password string, role entities.UserRole) (*entities.User, error)
}

// UserDirectory lists existing accounts.
type UserDirectory interface {
	ListUsers() ([]entities.User, error)
	CountByRole(role entities.UserRole) (int64, error)
}

// ActionLogger appends entries to the action log.
type ActionLogger interface {
	Log(action, details string) error
}

// OverdueReport summarizes open loans past their due date.
type OverdueReport struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Count       int                   `json:"count"`
	Loans       []entities.LoanRecord `json:"loans"`
}

// Stats is a snapshot of the library for the admin overview.
type Stats struct {
	Books     map[entities.BookStatus]int64 `json:"books"`
	OpenLoans int64                         `json:"open_loans"`
	Admins    int64                         `json:"admins"`
	Patrons   int64                         `json:"patrons"`
}

type Service struct {
	catalog   Catalog
	ledger    LoanLedger
	accounts  AccountCreator
	directory UserDirectory
	actions   ActionLogger
}

func NewService(catalog Catalog, ledger LoanLedger, accounts AccountCreator, directory UserDirectory, actions ActionLogger) *Service {
	return &Service{
		catalog:   catalog,
		ledger:    ledger,
		accounts:  accounts,
		directory: directory,
		actions:   actions,
	}
}

// AddBook adds a new available book to the catalog.
func (s *Service) AddBook(title, author, category string) (*entities.Book, error) {
	title = strings.TrimSpace(title)
	author = strings.TrimSpace(author)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if author == "" {
		return nil, ErrAuthorRequired
	}

	book := &entities.Book{
		Title:    title,
		Author:   author,
		Category: strings.TrimSpace(category),
	}
	if err := s.catalog.CreateBook(book); err != nil {
		return nil, fmt.Errorf("failed to add book: %w", err)
	}

	s.record(audit.ActionAddBook, fmt.Sprintf("Added book %d: %s by %s", book.ID, book.Title, book.Author))
	return book, nil
}

// UpdateBookField changes one editable column of a book.
func (s *Service) UpdateBookField(id uint, field, value string) (*entities.Book, error) {
	if !books.UpdatableFields[field] {
		return nil, books.ErrInvalidField
	}
	value = strings.TrimSpace(value)
	if value == "" && field != "category" {
		return nil, ErrValueRequired
	}

	if err := s.catalog.UpdateBookField(id, field, value); err != nil {
		return nil, err
	}

	book, err := s.catalog.GetBookByID(id)
	if err != nil {
		return nil, err
	}

	s.record(audit.ActionUpdateBook, fmt.Sprintf("Updated book %d: %s = %q", id, field, value))
	return book, nil
}

// DeleteBook removes a book that is not on loan.
func (s *Service) DeleteBook(id uint) error {
	book, err := s.catalog.GetBookByID(id)
	if err != nil {
		return err
	}
	if err := s.catalog.DeleteBook(id); err != nil {
		return err
	}

	s.record(audit.ActionDeleteBook, fmt.Sprintf("Deleted book %d: %s", id, book.Title))
	return nil
}

// CreateUser creates an account with the given role.
func (s *Service) CreateUser(username, password string, role entities.UserRole) (*entities.User, error) {
	user, err := s.accounts.CreateUser(strings.TrimSpace(username), password, role)
	if err != nil {
		return nil, err
	}

	s.record(audit.ActionCreateUser, fmt.Sprintf("Created user %s with role %s", user.Username, user.Role))
	return user, nil
}

// ListUsers returns every account ordered by username.
func (s *Service) ListUsers() ([]entities.User, error) {
	return s.directory.ListUsers()
}

// Stats counts books by status, open loans and accounts by role.
func (s *Service) Stats() (*Stats, error) {
	byStatus, err := s.catalog.CountByStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to count books: %w", err)
	}
	open, err := s.ledger.CountOpen()
	if err != nil {
		return nil, fmt.Errorf("failed to count open loans: %w", err)
	}
	admins, err := s.directory.CountByRole(entities.UserRoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	patrons, err := s.directory.CountByRole(entities.UserRoleUser)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	return &Stats{
		Books:     byStatus,
		OpenLoans: open,
		Admins:    admins,
		Patrons:   patrons,
	}, nil
}

func (s *Service) ListBooks() ([]entities.Book, error) {
	return s.catalog.GetAllBooks()
}

// ListTransactions returns every loan of every patron, newest first.
func (s *Service) ListTransactions() ([]entities.LoanRecord, error) {
	return s.ledger.GetAllRecords()
}

// RecordOverdueLoans finds open loans past due at now and logs a summary.
func (s *Service) RecordOverdueLoans(now time.Time) (*OverdueReport, error) {
	overdue, err := s.ledger.GetOverdue(now)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}

	report := &OverdueReport{
		GeneratedAt: now.UTC(),
		Count:       len(overdue),
		Loans:       overdue,
	}

	details := fmt.Sprintf("%d overdue loan(s)", report.Count)
	if report.Count > 0 {
		ids := make([]string, 0, len(overdue))
		for _, loan := range overdue {
			ids = append(ids, fmt.Sprintf("%d", loan.BookID))
		}
		details += ": books " + strings.Join(ids, ", ")
	}
	if err := s.actions.Log(audit.ActionOverdueReport, details); err != nil {
		return nil, fmt.Errorf("failed to record overdue report: %w", err)
	}
	return report, nil
}

// record logs a completed mutation. The mutation already happened, so a
// logging failure is reported but not returned.
func (s *Service) record(action, details string) {
	if s.actions == nil {
		return
	}
	if err := s.actions.Log(action, details); err != nil {
		log.Printf("Failed to record %s: %v", action, err)
	}
}
