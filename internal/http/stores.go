package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/library/internal/admin"
	"github.com/mrlokans/library/internal/circulation"
	"github.com/mrlokans/library/internal/entities"
)

// Each controller depends on the narrow set of operations it uses.

// Circulation is the borrowing workflow used by the patron pages.
type Circulation interface {
	SearchAvailable(ctx context.Context, query string) ([]entities.Book, error)
	Borrow(ctx context.Context, req circulation.BorrowRequest) (*entities.Transaction, error)
	Return(ctx context.Context, userID, bookID uint) (*entities.Transaction, error)
	History(ctx context.Context, userID uint) ([]entities.LoanRecord, error)
}

// Librarian covers catalog and account management.
type Librarian interface {
	AddBook(title, author, category string) (*entities.Book, error)
	UpdateBookField(id uint, field, value string) (*entities.Book, error)
	DeleteBook(id uint) error
	CreateUser(username, password string, role entities.UserRole) (*entities.User, error)
	ListBooks() ([]entities.Book, error)
	ListTransactions() ([]entities.LoanRecord, error)
	ListUsers() ([]entities.User, error)
	Stats() (*admin.Stats, error)
}

// ActionLog records and lists application actions.
type ActionLog interface {
	LogAsync(action, details string)
	Recent(limit, offset int) ([]entities.LogEntry, int64, error)
	RecentByAction(action string, limit, offset int) ([]entities.LogEntry, int64, error)
}

// TaskRunner enqueues background tasks and reports on them.
type TaskRunner interface {
	Enqueue(ctx context.Context, tasks ...backlite.Task) ([]string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}
