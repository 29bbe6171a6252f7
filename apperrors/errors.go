package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Machine-readable error codes returned to API callers.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidTransition    = "INVALID_STATUS_TRANSITION"
	CodeOrderLocked          = "ORDER_LOCKED_BY_INVOICE"
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeIntegrityViolation   = "INTEGRITY_VIOLATION"
	CodePaymentExceedsTotal  = "PAYMENT_EXCEEDS_TOTAL"
	CodeDuplicateValue       = "DUPLICATE_VALUE"
	CodeForeignKeyViolation  = "FOREIGN_KEY_VIOLATION"
	CodeNotNullViolation     = "NOT_NULL_VIOLATION"
	CodeGenerationInProgress = "GENERATION_IN_PROGRESS"
	CodeInternal             = "INTERNAL_ERROR"
)

// Error is an application error with an HTTP status, a machine-readable code
// and optional structured details the caller can use to self-correct.
type Error struct {
	Status  int                    `json:"-"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails attaches structured details and returns the error.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// New creates a new Error.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, CodeValidation, message)
}

func NotFound(resource string) *Error {
	return New(http.StatusNotFound, CodeNotFound, resource+" not found")
}

func Internal(err error) *Error {
	e := New(http.StatusInternalServerError, CodeInternal, "Internal server error")
	e.Err = err
	return e
}

// Postgres SQLSTATE codes for constraint violations.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// FromDB translates a storage error into a domain error. Constraint
// violations are matched structurally via pgconn.PgError, never by message
// text, so storage-engine wording is not leaked to callers.
func FromDB(err error) *Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return New(http.StatusNotFound, CodeNotFound, "Record not found")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			e := New(http.StatusConflict, CodeDuplicateValue, "A record with this value already exists")
			e.Err = err
			return e
		case pgForeignKeyViolation:
			e := New(http.StatusBadRequest, CodeForeignKeyViolation, "Referenced record does not exist")
			e.Err = err
			return e
		case pgNotNullViolation:
			e := New(http.StatusBadRequest, CodeNotNullViolation, "A required field is missing")
			e.Err = err
			return e
		case pgCheckViolation:
			e := New(http.StatusConflict, CodeIntegrityViolation, "Stored data violates an integrity constraint")
			e.Err = err
			return e
		}
	}

	return Internal(err)
}

// Respond writes the error to a Gin context in the standard envelope.
func Respond(c *gin.Context, e *Error) {
	body := gin.H{"error": e.Message, "code": e.Code}
	if len(e.Details) > 0 {
		body["details"] = e.Details
	}
	c.JSON(e.Status, body)
}
