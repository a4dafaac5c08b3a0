package entities

import "time"

type BookStatus string

const (
	BookStatusAvailable BookStatus = "available"
	BookStatusBorrowed  BookStatus = "borrowed"
)

type Book struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"index;size:512;not null" json:"title"`
	Author    string     `gorm:"index;size:256;not null" json:"author"`
	Category  string     `gorm:"size:128" json:"category,omitempty"`
	Status    BookStatus `gorm:"index;size:20;not null;default:available" json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Transaction is a single loan. It is open while ReturnDate is nil.
// Username is copied from the borrower at borrow time.
type Transaction struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	Username   string     `gorm:"size:100;not null" json:"username"`
	BookID     uint       `gorm:"index;not null" json:"book_id"`
	BorrowDate time.Time  `gorm:"index;not null" json:"borrow_date"`
	DueDate    time.Time  `gorm:"not null" json:"due_date"`
	ReturnDate *time.Time `gorm:"index" json:"return_date,omitempty"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// LoanRecord is a transaction joined with the title of the borrowed book.
// Title is empty when the book has since been removed from the catalog.
type LoanRecord struct {
	TransactionID uint       `json:"transaction_id"`
	BookID        uint       `json:"book_id"`
	Title         string     `json:"title"`
	UserID        uint       `json:"user_id"`
	Username      string     `json:"username"`
	BorrowDate    time.Time  `json:"borrow_date"`
	DueDate       time.Time  `json:"due_date"`
	ReturnDate    *time.Time `json:"return_date,omitempty"`
}

// LogEntry is one row of the append-only administrative action log.
type LogEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"index;not null" json:"timestamp"`
	Action    string    `gorm:"index;size:100;not null" json:"action"`
	Details   string    `gorm:"type:text" json:"details"`
}

func (LogEntry) TableName() string {
	return "logs"
}
