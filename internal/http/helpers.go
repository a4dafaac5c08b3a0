package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data    any   `json:"data"`
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// Flasher stores one-shot messages for the next page a browser opens.
type Flasher interface {
	Flash(r *http.Request, message string)
	PopFlash(r *http.Request) string
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondAction finishes a state-changing request. API clients get JSON with
// the given status; browsers get the message as a flash and a 303 redirect.
// payload is merged into successful JSON responses.
func respondAction(c *gin.Context, flasher Flasher, status int, message, redirect string, payload gin.H) {
	if auth.IsAPIRequest(c) || flasher == nil {
		if status >= http.StatusBadRequest {
			c.JSON(status, ErrorResponse{Error: message})
			return
		}
		body := gin.H{"message": message}
		for k, v := range payload {
			body[k] = v
		}
		c.JSON(status, body)
		return
	}

	flasher.Flash(c.Request, message)
	c.Redirect(http.StatusSeeOther, redirect)
}

// popFlash returns the pending flash message, if any.
func popFlash(c *gin.Context, flasher Flasher) string {
	if flasher == nil {
		return ""
	}
	return flasher.PopFlash(c.Request)
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := parseID(c.Param(paramName))
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return id, true
}

// parseID parses a positive database ID.
func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, strconv.ErrRange
	}
	return uint(id), nil
}

// parsePagination reads limit and offset query parameters.
func parsePagination(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err = strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
