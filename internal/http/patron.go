package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/circulation"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entities"
)

const borrowUnavailableMessage = "Failed to borrow book. It may be unavailable."

var (
	errInvalidBookID = errors.New("invalid book ID")
	errInvalidDays   = errors.New("invalid number of days")
)

// loanRequest is the body of borrow and return requests. Days is nil when
// the client did not choose a loan length.
type loanRequest struct {
	BookID uint `json:"book_id"`
	Days   *int `json:"days_to_borrow"`
}

// PatronController serves the welcome page, the patron dashboard and the
// borrow and return actions.
type PatronController struct {
	circulation Circulation
	actions     ActionLog
	flasher     Flasher
	loans       config.Loans
}

func NewPatronController(circ Circulation, actions ActionLog, flasher Flasher, loans config.Loans) *PatronController {
	return &PatronController{
		circulation: circ,
		actions:     actions,
		flasher:     flasher,
		loans:       loans,
	}
}

// Welcome handles GET /. Logged-in users are sent to their home page.
func (pc *PatronController) Welcome(c *gin.Context) {
	if auth.IsAuthenticated(c) {
		c.Redirect(http.StatusFound, auth.HomePath(auth.GetUserRole(c)))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":      "Welcome to the Library",
		"flash":      popFlash(c, pc.flasher),
		"csrf_token": auth.GetCSRFToken(c),
	})
}

// Dashboard handles GET /dashboard. Available books are listed only when the
// patron searched or asked to see all of them.
func (pc *PatronController) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	search := strings.TrimSpace(c.Query("search"))
	showAll := c.Query("show_all") == "true"

	availableBooks := []entities.Book{}
	if search != "" || showAll {
		books, err := pc.circulation.SearchAvailable(ctx, search)
		if err != nil {
			respondInternalError(c, err, "search available books")
			return
		}
		availableBooks = books
	}

	history, err := pc.circulation.History(ctx, auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "borrowing history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":        auth.GetUsername(c),
		"search":          search,
		"show_all":        showAll,
		"available_books": availableBooks,
		"history":         history,
		"default_days":    pc.loans.DefaultDays,
		"max_days":        pc.loans.MaxDays,
		"flash":           popFlash(c, pc.flasher),
		"csrf_token":      auth.GetCSRFToken(c),
	})
}

// Borrow handles POST /borrow and POST /api/loans.
func (pc *PatronController) Borrow(c *gin.Context) {
	req, err := pc.bindLoanRequest(c)
	if err != nil {
		pc.respondInvalid(c, err)
		return
	}

	days := pc.loans.DefaultDays
	if req.Days != nil {
		days = *req.Days
	}

	username := auth.GetUsername(c)
	loan, err := pc.circulation.Borrow(c.Request.Context(), circulation.BorrowRequest{
		UserID:   auth.GetUserID(c),
		Username: username,
		BookID:   req.BookID,
		Days:     days,
	})
	if err != nil {
		status, message := pc.borrowFailure(err)
		if status == http.StatusInternalServerError {
			respondInternalError(c, err, "borrow book")
			return
		}
		respondAction(c, pc.flasher, status, message, auth.DashboardPath, nil)
		return
	}

	pc.logAction(audit.ActionBorrow, fmt.Sprintf("User %s borrowed book %d until %s",
		username, loan.BookID, loan.DueDate.Format("2006-01-02")))
	respondAction(c, pc.flasher, http.StatusCreated, "Book borrowed successfully!", auth.DashboardPath, gin.H{"loan": loan})
}

// Return handles POST /return and POST /api/loans/return.
func (pc *PatronController) Return(c *gin.Context) {
	req, err := pc.bindLoanRequest(c)
	if err != nil {
		pc.respondInvalid(c, err)
		return
	}

	loan, err := pc.circulation.Return(c.Request.Context(), auth.GetUserID(c), req.BookID)
	if errors.Is(err, circulation.ErrNoOpenLoan) {
		respondAction(c, pc.flasher, http.StatusNotFound,
			"Failed to return book. Check if the ID is correct.", auth.DashboardPath, nil)
		return
	}
	if err != nil {
		respondInternalError(c, err, "return book")
		return
	}

	pc.logAction(audit.ActionReturn, fmt.Sprintf("User %s returned book %d", auth.GetUsername(c), loan.BookID))
	respondAction(c, pc.flasher, http.StatusOK, "Book returned successfully!", auth.DashboardPath, gin.H{"loan": loan})
}

// AvailableBooks handles GET /api/books/available?q=.
func (pc *PatronController) AvailableBooks(c *gin.Context) {
	books, err := pc.circulation.SearchAvailable(c.Request.Context(), strings.TrimSpace(c.Query("q")))
	if err != nil {
		respondInternalError(c, err, "search available books")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"books": books,
		"count": len(books),
	})
}

// Loans handles GET /api/loans with the caller's borrowing history.
func (pc *PatronController) Loans(c *gin.Context) {
	history, err := pc.circulation.History(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "borrowing history")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"loans": history,
		"count": len(history),
	})
}

// bindLoanRequest reads a loan request from JSON or from form fields.
func (pc *PatronController) bindLoanRequest(c *gin.Context) (loanRequest, error) {
	var req loanRequest
	if c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) && typeErr.Field == "days_to_borrow" {
				return req, errInvalidDays
			}
			return req, errInvalidBookID
		}
	} else {
		bookID, err := parseID(strings.TrimSpace(c.PostForm("book_id")))
		if err != nil {
			return req, errInvalidBookID
		}
		req.BookID = bookID

		if raw := strings.TrimSpace(c.PostForm("days_to_borrow")); raw != "" {
			days, err := strconv.Atoi(raw)
			if err != nil {
				return req, errInvalidDays
			}
			req.Days = &days
		}
	}

	if req.BookID == 0 {
		return req, errInvalidBookID
	}
	return req, nil
}

func (pc *PatronController) respondInvalid(c *gin.Context, err error) {
	message := "Invalid book ID."
	if errors.Is(err, errInvalidDays) {
		message = "Invalid number of days."
	}
	respondAction(c, pc.flasher, http.StatusBadRequest, message, auth.DashboardPath, nil)
}

// borrowFailure maps a borrow error to a response. Missing and lent-out
// books share one message so patrons cannot tell them apart.
func (pc *PatronController) borrowFailure(err error) (int, string) {
	switch {
	case errors.Is(err, circulation.ErrBookNotFound):
		return http.StatusNotFound, borrowUnavailableMessage
	case errors.Is(err, circulation.ErrBookUnavailable):
		return http.StatusConflict, borrowUnavailableMessage
	case errors.Is(err, circulation.ErrUserRequired):
		return http.StatusUnauthorized, "Please log in to access this page."
	case errors.Is(err, circulation.ErrLoanTooLong):
		return http.StatusBadRequest, fmt.Sprintf("Books can be borrowed for at most %d days.", pc.loans.MaxDays)
	case circulation.IsInvalidRequest(err):
		return http.StatusBadRequest, "Invalid number of days."
	default:
		return http.StatusInternalServerError, ""
	}
}

func (pc *PatronController) logAction(action, details string) {
	if pc.actions != nil {
		pc.actions.LogAsync(action, details)
	}
}
