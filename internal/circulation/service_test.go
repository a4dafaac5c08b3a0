package circulation

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/entities"
)

var clock = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "circulation.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db.DB, books.NewRepository(db.DB), loans.NewRepository(db.DB), config.Loans{DefaultDays: 14, MaxDays: 90}).
		WithClock(func() time.Time { return clock })
	return svc, db.DB
}

func addBook(t *testing.T, db *gorm.DB, title, author string) uint {
	t.Helper()
	book := entities.Book{Title: title, Author: author, Status: entities.BookStatusAvailable}
	require.NoError(t, db.Create(&book).Error)
	return book.ID
}

func bookStatus(t *testing.T, db *gorm.DB, id uint) entities.BookStatus {
	t.Helper()
	var book entities.Book
	require.NoError(t, db.First(&book, id).Error)
	return book.Status
}

// assertCatalogConsistent checks that a book is borrowed exactly when it has
// one open loan, and never more than one.
func assertCatalogConsistent(t *testing.T, db *gorm.DB) {
	t.Helper()
	var all []entities.Book
	require.NoError(t, db.Find(&all).Error)
	for _, book := range all {
		var open int64
		require.NoError(t, db.Model(&entities.Transaction{}).
			Where("book_id = ? AND return_date IS NULL", book.ID).Count(&open).Error)
		assert.LessOrEqual(t, open, int64(1), "book %d has several open loans", book.ID)
		assert.Equal(t, book.Status == entities.BookStatusBorrowed, open == 1,
			"book %d status %s with %d open loans", book.ID, book.Status, open)
	}
}

func TestBorrow_DueDate(t *testing.T) {
	for _, days := range []int{1, 7, 14, 90} {
		svc, db := setupService(t)
		bookID := addBook(t, db, "Dune", "Frank Herbert")

		loan, err := svc.Borrow(context.Background(), BorrowRequest{UserID: 7, Username: "alice", BookID: bookID, Days: days})
		require.NoError(t, err, "days=%d", days)

		assert.True(t, loan.BorrowDate.Equal(clock))
		assert.Equal(t, time.Duration(days)*24*time.Hour, loan.DueDate.Sub(loan.BorrowDate))
		assert.Nil(t, loan.ReturnDate)
		assert.Equal(t, "alice", loan.Username)
		assert.Equal(t, entities.BookStatusBorrowed, bookStatus(t, db, bookID))
		assertCatalogConsistent(t, db)
	}
}

func TestBorrow_RejectsInvalidLength(t *testing.T) {
	svc, db := setupService(t)
	bookID := addBook(t, db, "Dune", "Frank Herbert")

	tests := []struct {
		name string
		days int
		want error
	}{
		{"zero days", 0, ErrInvalidLoanDays},
		{"negative days", -3, ErrInvalidLoanDays},
		{"beyond maximum", 91, ErrLoanTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan, err := svc.Borrow(context.Background(), BorrowRequest{UserID: 7, Username: "alice", BookID: bookID, Days: tt.days})
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, loan)
			assert.True(t, IsInvalidRequest(err))
			assert.Equal(t, entities.BookStatusAvailable, bookStatus(t, db, bookID))

			var count int64
			require.NoError(t, db.Model(&entities.Transaction{}).Count(&count).Error)
			assert.Zero(t, count)
		})
	}
}

func TestBorrow_Failures(t *testing.T) {
	svc, db := setupService(t)
	bookID := addBook(t, db, "Dune", "Frank Herbert")
	ctx := context.Background()

	_, err := svc.Borrow(ctx, BorrowRequest{UserID: 7, Username: "alice", BookID: 999, Days: 14})
	assert.ErrorIs(t, err, ErrBookNotFound)
	assert.Error(t, err)

	_, err = svc.Borrow(ctx, BorrowRequest{UserID: 7, Username: "alice", BookID: bookID, Days: 14})
	require.NoError(t, err)

	_, err = svc.Borrow(ctx, BorrowRequest{UserID: 8, Username: "bob", BookID: bookID, Days: 14})
	assert.ErrorIs(t, err, ErrBookUnavailable)

	_, err = svc.Borrow(ctx, BorrowRequest{UserID: 7, Username: "alice", BookID: bookID, Days: 14})
	assert.ErrorIs(t, err, ErrBookUnavailable, "a patron cannot borrow the same copy twice")

	_, err = svc.Borrow(ctx, BorrowRequest{Username: "ghost", BookID: bookID, Days: 14})
	assert.ErrorIs(t, err, ErrUserRequired)

	var count int64
	require.NoError(t, db.Model(&entities.Transaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assertCatalogConsistent(t, db)
}

func TestReturn(t *testing.T) {
	svc, db := setupService(t)
	bookID := addBook(t, db, "Dune", "Frank Herbert")
	ctx := context.Background()

	_, err := svc.Borrow(ctx, BorrowRequest{UserID: 7, Username: "alice", BookID: bookID, Days: 14})
	require.NoError(t, err)

	t.Run("another patron cannot return it", func(t *testing.T) {
		_, err := svc.Return(ctx, 8, bookID)
		assert.ErrorIs(t, err, ErrNoOpenLoan)
		assert.Equal(t, entities.BookStatusBorrowed, bookStatus(t, db, bookID))
	})

	t.Run("borrower returns it", func(t *testing.T) {
		loan, err := svc.Return(ctx, 7, bookID)
		require.NoError(t, err)
		require.NotNil(t, loan.ReturnDate)
		assert.True(t, loan.ReturnDate.Equal(clock))
		assert.Equal(t, entities.BookStatusAvailable, bookStatus(t, db, bookID))
		assertCatalogConsistent(t, db)
	})

	t.Run("second return fails", func(t *testing.T) {
		_, err := svc.Return(ctx, 7, bookID)
		assert.ErrorIs(t, err, ErrNoOpenLoan)
		assert.Error(t, err)
	})

	t.Run("never borrowed", func(t *testing.T) {
		other := addBook(t, db, "Emma", "Jane Austen")
		_, err := svc.Return(ctx, 7, other)
		assert.ErrorIs(t, err, ErrNoOpenLoan)
		assert.Equal(t, entities.BookStatusAvailable, bookStatus(t, db, other))
	})

	t.Run("book can be borrowed again", func(t *testing.T) {
		_, err := svc.Borrow(ctx, BorrowRequest{UserID: 8, Username: "bob", BookID: bookID, Days: 3})
		require.NoError(t, err)
		assertCatalogConsistent(t, db)
	})
}

func TestHistory(t *testing.T) {
	svc, db := setupService(t)
	dune := addBook(t, db, "Dune", "Frank Herbert")
	emma := addBook(t, db, "Emma", "Jane Austen")
	ctx := context.Background()

	now := clock
	svc.WithClock(func() time.Time { return now })

	_, err := svc.Borrow(ctx, BorrowRequest{UserID: 7, Username: "alice", BookID: dune, Days: 14})
	require.NoError(t, err)
	now = now.Add(24 * time.Hour)
	_, err = svc.Return(ctx, 7, dune)
	require.NoError(t, err)
	now = now.Add(24 * time.Hour)
	_, err = svc.Borrow(ctx, BorrowRequest{UserID: 7, Username: "alice", BookID: emma, Days: 7})
	require.NoError(t, err)
	_, err = svc.Borrow(ctx, BorrowRequest{UserID: 8, Username: "bob", BookID: dune, Days: 7})
	require.NoError(t, err)

	history, err := svc.History(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "Emma", history[0].Title)
	assert.Nil(t, history[0].ReturnDate)
	assert.Equal(t, "Dune", history[1].Title)
	require.NotNil(t, history[1].ReturnDate)
	assert.True(t, history[1].ReturnDate.Equal(clock.Add(24*time.Hour)))

	empty, err := svc.History(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSearchAvailable(t *testing.T) {
	svc, db := setupService(t)
	hobbit := addBook(t, db, "The Hobbit", "J.R.R. Tolkien")
	addBook(t, db, "Dune", "Frank Herbert")
	ctx := context.Background()

	found, err := svc.SearchAvailable(ctx, "hobbit")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, hobbit, found[0].ID)

	_, err = svc.Borrow(ctx, BorrowRequest{UserID: 7, Username: "alice", BookID: hobbit, Days: 14})
	require.NoError(t, err)

	found, err = svc.SearchAvailable(ctx, "hobbit")
	require.NoError(t, err)
	assert.Empty(t, found)

	all, err := svc.SearchAvailable(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Dune", all[0].Title)
}

func TestReads_HonorCanceledContext(t *testing.T) {
	svc, db := setupService(t)
	addBook(t, db, "Dune", "Frank Herbert")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.SearchAvailable(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.History(ctx, 7)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBorrow_Concurrent(t *testing.T) {
	svc, db := setupService(t)
	bookID := addBook(t, db, "Dune", "Frank Herbert")

	const borrowers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		errs      []error
	)

	for i := 0; i < borrowers; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := svc.Borrow(context.Background(), BorrowRequest{UserID: userID, Username: "patron", BookID: bookID, Days: 14})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			errs = append(errs, err)
		}(uint(i + 1))
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	require.Len(t, errs, borrowers-1)
	for _, err := range errs {
		assert.ErrorIs(t, err, ErrBookUnavailable)
	}
	assertCatalogConsistent(t, db)
}

func TestEndToEnd(t *testing.T) {
	svc, db := setupService(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&entities.User{ID: 7, Username: "alice", PasswordHash: "x", Role: entities.UserRoleUser}).Error)
	require.NoError(t, db.Create(&entities.Book{ID: 1, Title: "Dune", Author: "Frank Herbert", Status: entities.BookStatusAvailable}).Error)

	found, err := svc.SearchAvailable(ctx, "dune")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, uint(1), found[0].ID)

	loan, err := svc.Borrow(ctx, BorrowRequest{UserID: 7, Username: "alice", BookID: 1, Days: 14})
	require.NoError(t, err)
	assert.True(t, loan.DueDate.Equal(clock.AddDate(0, 0, 14)))

	found, err = svc.SearchAvailable(ctx, "dune")
	require.NoError(t, err)
	assert.Empty(t, found)

	history, err := svc.History(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Dune", history[0].Title)
	assert.Nil(t, history[0].ReturnDate)

	_, err = svc.Return(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusAvailable, bookStatus(t, db, 1))

	history, err = svc.History(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.NotNil(t, history[0].ReturnDate)

	_, err = svc.Return(ctx, 7, 1)
	assert.Error(t, err)
	assertCatalogConsistent(t, db)
}
