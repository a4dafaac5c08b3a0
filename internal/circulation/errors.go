package circulation

import "errors"

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrBookUnavailable = errors.New("book is not available")
	ErrNoOpenLoan      = errors.New("no open loan for this book")
	ErrInvalidLoanDays = errors.New("loan length must be a positive number of days")
	ErrLoanTooLong     = errors.New("loan length exceeds the maximum")
	ErrUserRequired    = errors.New("borrower is required")
)

// IsInvalidRequest reports whether err was caused by the caller's input
// rather than by the state of the catalog.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidLoanDays) || errors.Is(err, ErrLoanTooLong) || errors.Is(err, ErrUserRequired)
}
