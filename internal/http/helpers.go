package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarydesk/internal/accounts"
	"github.com/mrlokans/librarydesk/internal/catalog"
	"github.com/mrlokans/librarydesk/internal/ledger"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"` // machine-readable error code
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeNotFound           = "not_found"
	CodeValidation         = "validation_error"
	CodeConflict           = "conflict"
	CodeAlreadyBorrowed    = "already_borrowed"
	CodeUnavailable        = "unavailable"
	CodeClientExists       = "client_exists"
	CodeNoGenres           = "no_genres"
	CodeInvalidCredentials = "invalid_credentials"
	CodeDataAccess         = "data_access"
	CodeInternal           = "internal"
)

// errorStatus maps a service error onto an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, catalog.ErrNoGenres):
		return http.StatusNotFound, CodeNoGenres
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, catalog.ErrNotFound), errors.Is(err, accounts.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ledger.ErrValidation), errors.Is(err, catalog.ErrValidation), errors.Is(err, accounts.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, ledger.ErrAlreadyBorrowed):
		return http.StatusConflict, CodeAlreadyBorrowed
	case errors.Is(err, ledger.ErrUnavailable):
		return http.StatusConflict, CodeUnavailable
	case errors.Is(err, accounts.ErrClientExists):
		return http.StatusConflict, CodeClientExists
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, accounts.ErrUnknownEmail), errors.Is(err, accounts.ErrInvalidCredentials):
		return http.StatusUnauthorized, CodeInvalidCredentials
	case errors.Is(err, ledger.ErrDataAccess):
		return http.StatusInternalServerError, CodeDataAccess
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeValidation})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: CodeInternal})
}

// respondServiceError sends the status matching the error kind. Client errors
// carry the error text; server errors are logged and hidden.
func respondServiceError(c *gin.Context, err error, context string) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("Internal error (%s): %v", context, err)
		c.JSON(status, ErrorResponse{Error: "internal server error", Code: code})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
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

func parseID(value string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, errors.New("id must be positive")
	}
	return uint(id), nil
}

// parseDate parses a YYYY-MM-DD date. An empty value gives the zero time.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, errors.New("dates must use the YYYY-MM-DD format")
	}
	return d, nil
}

// parseOptionalInt parses a positive query value, 0 when absent.
func parseOptionalInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

// emailParam returns the :email route parameter normalized like stored emails.
func emailParam(c *gin.Context) string {
	return strings.ToLower(strings.TrimSpace(c.Param("email")))
}

// isXHRRequest reports requests sent by page scripts that expect JSON back.
func isXHRRequest(c *gin.Context) bool {
	return c.GetHeader("X-Requested-With") == "XMLHttpRequest" ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}
