package apperror

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Card Lifecycle (CARD) ----

func ErrCardNotFound(id uuid.UUID) *AppError {
	return New("CARD_001", fmt.Sprintf("Card %s not found", id), http.StatusNotFound)
}

func ErrCardNotOwned() *AppError {
	return New("CARD_002", "Card does not belong to the requesting user", http.StatusForbidden)
}

func ErrCardAlreadyBlocked() *AppError {
	return New("CARD_003", "Card is already blocked", http.StatusConflict)
}

func ErrIllegalStatusTransition(target string) *AppError {
	return New("CARD_004", fmt.Sprintf("Card status cannot be set to %s", target), http.StatusBadRequest)
}

func ErrDuplicateCardNumber() *AppError {
	return New("CARD_005", "Card number is already taken", http.StatusConflict)
}

func ErrHolderNotFound(id uuid.UUID) *AppError {
	return New("CARD_006", fmt.Sprintf("User %s not found", id), http.StatusNotFound)
}

// ---- Transfers (TRF) ----

func ErrInvalidAmount() *AppError {
	return New("TRF_001", "Transfer amount must be positive with at most four decimal places", http.StatusBadRequest)
}

func ErrSameCardTransfer() *AppError {
	return New("TRF_002", "Source and destination card must differ", http.StatusBadRequest)
}

func ErrCardNotActive(id uuid.UUID) *AppError {
	return New("TRF_003", fmt.Sprintf("Card %s is not active", id), http.StatusConflict)
}

func ErrInsufficientFunds() *AppError {
	return New("TRF_004", "Source card does not have enough money", http.StatusPaymentRequired)
}

func ErrConcurrentModification() *AppError {
	return New("TRF_005", "Card was modified concurrently, retry the operation", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrUsernameExists() *AppError {
	return New("AUTH_002", "Username already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAdminRequired() *AppError {
	return New("AUTH_004", "Administrator role required", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrCryptoFailure(err error) *AppError {
	return Wrap("SYS_003", "Cryptographic operation failed", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}
