package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/admin"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/entities"
)

type bookRequest struct {
	Title    string `form:"title" json:"title"`
	Author   string `form:"author" json:"author"`
	Category string `form:"category" json:"category"`
}

type updateBookRequest struct {
	BookID   string `form:"book_id" json:"-"`
	Field    string `form:"field" json:"field"`
	NewValue string `form:"new_value" json:"new_value"`
}

type createUserRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Role     string `form:"role" json:"role"`
}

// AdminController serves the librarian dashboard and the catalog and
// account management actions.
type AdminController struct {
	librarian Librarian
	actions   ActionLog
	flasher   Flasher
}

func NewAdminController(librarian Librarian, actions ActionLog, flasher Flasher) *AdminController {
	return &AdminController{
		librarian: librarian,
		actions:   actions,
		flasher:   flasher,
	}
}

// Dashboard handles GET /admin with every book and every loan.
func (ac *AdminController) Dashboard(c *gin.Context) {
	allBooks, err := ac.librarian.ListBooks()
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	transactions, err := ac.librarian.ListTransactions()
	if err != nil {
		respondInternalError(c, err, "list transactions")
		return
	}
	stats, err := ac.librarian.Stats()
	if err != nil {
		respondInternalError(c, err, "library stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":     auth.GetUsername(c),
		"stats":        stats,
		"books":        allBooks,
		"transactions": transactions,
		"flash":        popFlash(c, ac.flasher),
		"csrf_token":   auth.GetCSRFToken(c),
	})
}

// Stats handles GET /api/admin/stats.
func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.librarian.Stats()
	if err != nil {
		respondInternalError(c, err, "library stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ListUsers handles GET /api/admin/users.
func (ac *AdminController) ListUsers(c *gin.Context) {
	accounts, err := ac.librarian.ListUsers()
	if err != nil {
		respondInternalError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": accounts,
		"count": len(accounts),
	})
}

// ListBooks handles GET /api/admin/books.
func (ac *AdminController) ListBooks(c *gin.Context) {
	allBooks, err := ac.librarian.ListBooks()
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"books": allBooks,
		"count": len(allBooks),
	})
}

// ListTransactions handles GET /api/admin/transactions.
func (ac *AdminController) ListTransactions(c *gin.Context) {
	transactions, err := ac.librarian.ListTransactions()
	if err != nil {
		respondInternalError(c, err, "list transactions")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// AddBook handles POST /add_book and POST /api/admin/books.
func (ac *AdminController) AddBook(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBind(&req); err != nil {
		respondAction(c, ac.flasher, http.StatusBadRequest, "Invalid book details.", auth.AdminPath, nil)
		return
	}

	book, err := ac.librarian.AddBook(req.Title, req.Author, req.Category)
	switch {
	case errors.Is(err, admin.ErrTitleRequired), errors.Is(err, admin.ErrAuthorRequired):
		respondAction(c, ac.flasher, http.StatusBadRequest, "Title and author are required.", auth.AdminPath, nil)
		return
	case err != nil:
		respondInternalError(c, err, "add book")
		return
	}

	respondAction(c, ac.flasher, http.StatusCreated, "New book added successfully!", auth.AdminPath, gin.H{"book": book})
}

// UpdateBook handles POST /update_book (book_id in the form) and
// PATCH /api/admin/books/:id.
func (ac *AdminController) UpdateBook(c *gin.Context) {
	var req updateBookRequest
	if err := c.ShouldBind(&req); err != nil {
		respondAction(c, ac.flasher, http.StatusBadRequest, "Invalid update request.", auth.AdminPath, nil)
		return
	}

	id, ok := ac.bookID(c, req.BookID)
	if !ok {
		return
	}

	book, err := ac.librarian.UpdateBookField(id, strings.TrimSpace(req.Field), req.NewValue)
	switch {
	case errors.Is(err, books.ErrInvalidField):
		respondAction(c, ac.flasher, http.StatusBadRequest,
			fmt.Sprintf("Update failed. Field %q cannot be updated.", req.Field), auth.AdminPath, nil)
		return
	case errors.Is(err, admin.ErrValueRequired):
		respondAction(c, ac.flasher, http.StatusBadRequest, "Update failed. A new value is required.", auth.AdminPath, nil)
		return
	case errors.Is(err, books.ErrBookNotFound):
		respondAction(c, ac.flasher, http.StatusNotFound,
			fmt.Sprintf("Update failed. Book with ID %d not found.", id), auth.AdminPath, nil)
		return
	case err != nil:
		respondInternalError(c, err, "update book")
		return
	}

	respondAction(c, ac.flasher, http.StatusOK,
		fmt.Sprintf("Book ID %d was updated successfully!", id), auth.AdminPath, gin.H{"book": book})
}

// DeleteBook handles POST /delete_book and DELETE /api/admin/books/:id.
func (ac *AdminController) DeleteBook(c *gin.Context) {
	id, ok := ac.bookID(c, c.PostForm("book_id"))
	if !ok {
		return
	}

	err := ac.librarian.DeleteBook(id)
	switch {
	case errors.Is(err, books.ErrBookNotFound):
		respondAction(c, ac.flasher, http.StatusNotFound,
			fmt.Sprintf("Delete failed. Book with ID %d not found.", id), auth.AdminPath, nil)
		return
	case errors.Is(err, books.ErrBookOnLoan):
		respondAction(c, ac.flasher, http.StatusConflict,
			fmt.Sprintf("Delete failed. Book with ID %d is currently on loan.", id), auth.AdminPath, nil)
		return
	case err != nil:
		respondInternalError(c, err, "delete book")
		return
	}

	respondAction(c, ac.flasher, http.StatusOK, fmt.Sprintf("Book ID %d has been deleted.", id), auth.AdminPath, nil)
}

// CreateUser handles POST /create_user and POST /api/admin/users.
func (ac *AdminController) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBind(&req); err != nil {
		respondAction(c, ac.flasher, http.StatusBadRequest, "Invalid account details.", auth.AdminPath, nil)
		return
	}

	role := entities.UserRole(strings.TrimSpace(req.Role))
	if role == "" {
		role = entities.UserRoleUser
	}

	user, err := ac.librarian.CreateUser(req.Username, req.Password, role)
	if err != nil {
		status, message := createUserFailure(err)
		if status == http.StatusInternalServerError {
			respondInternalError(c, err, "create user")
			return
		}
		respondAction(c, ac.flasher, status, message, auth.AdminPath, nil)
		return
	}

	respondAction(c, ac.flasher, http.StatusCreated,
		fmt.Sprintf("Account for %s created successfully.", user.Username), auth.AdminPath, gin.H{"user": user})
}

// Logs handles GET /api/admin/logs?action=&limit=&offset=.
func (ac *AdminController) Logs(c *gin.Context) {
	if ac.actions == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "action log not configured"})
		return
	}

	limit, offset := parsePagination(c, 50, 500)
	var (
		entries []entities.LogEntry
		total   int64
		err     error
	)
	if action := c.Query("action"); action != "" {
		entries, total, err = ac.actions.RecentByAction(action, limit, offset)
	} else {
		entries, total, err = ac.actions.Recent(limit, offset)
	}
	if err != nil {
		respondInternalError(c, err, "list logs")
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(entries)) < total,
	})
}

// bookID takes the book ID from the :id route parameter or, for form
// routes, from the given form value. It answers the request when invalid.
func (ac *AdminController) bookID(c *gin.Context, formValue string) (uint, bool) {
	raw := c.Param("id")
	if raw == "" {
		raw = strings.TrimSpace(formValue)
	}
	id, err := parseID(raw)
	if err != nil {
		respondAction(c, ac.flasher, http.StatusBadRequest, "Invalid book ID.", auth.AdminPath, nil)
		return 0, false
	}
	return id, true
}

func createUserFailure(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict, "Failed to create account. Username may be taken."
	case errors.Is(err, auth.ErrInvalidRole):
		return http.StatusBadRequest, "Failed to create account. Role must be user or admin."
	case errors.Is(err, auth.ErrUsernameRequired), errors.Is(err, auth.ErrPasswordRequired):
		return http.StatusBadRequest, "Failed to create account. Username and password are required."
	case errors.Is(err, auth.ErrUsernameInvalid):
		return http.StatusBadRequest, "Failed to create account. Username must be 3-64 characters, alphanumeric with underscore/hyphen only."
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		return http.StatusBadRequest, fmt.Sprintf("Failed to create account. Password must be %d-72 characters.", auth.MinPasswordLength)
	default:
		return http.StatusInternalServerError, ""
	}
}
