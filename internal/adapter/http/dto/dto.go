package dto

import (
	"time"

	"card-vault/internal/core/domain"
	"card-vault/internal/core/ports"
)

// SignUpRequest is the request body for cardholder registration.
type SignUpRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is the response body for signup and login.
type AuthResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CreateCardRequest is the admin request body for issuing a card.
type CreateCardRequest struct {
	HolderID       string `json:"holder_id" binding:"required,uuid"`
	Number         string `json:"number" binding:"required,card_number"`
	Expiry         string `json:"expiry" binding:"required,card_expiry"`
	InitialBalance string `json:"initial_balance,omitempty"`
}

// SetStatusRequest is the admin request body for a status transition.
// EXPIRED is deliberately not accepted; it is owned by the expiry sweep.
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=ACTIVE BLOCKED"`
}

// TransferRequest is the request body for a balance transfer.
type TransferRequest struct {
	SourceID      string `json:"source_id" binding:"required,uuid"`
	DestinationID string `json:"destination_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required"`
}

// CardResponse is the card projection returned to clients. The number
// only ever appears masked.
type CardResponse struct {
	ID           string `json:"id"`
	MaskedNumber string `json:"masked_number"`
	Expiry       string `json:"expiry"` // MM/YY
	Status       string `json:"status"`
	Balance      string `json:"balance"`
	HolderID     string `json:"holder_id"`
	Version      int64  `json:"version"`
	CreatedAt    string `json:"created_at"`
}

// CardListResponse wraps a paginated card list.
type CardListResponse struct {
	Items      []CardResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// UserResponse is the user projection returned to admins.
type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// UserListResponse wraps a paginated user list.
type UserListResponse struct {
	Items      []UserResponse `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

// FromCardView maps a service card view to its response shape.
func FromCardView(v *ports.CardView) CardResponse {
	return CardResponse{
		ID:           v.Card.ID.String(),
		MaskedNumber: v.MaskedNumber,
		Expiry:       v.Card.Expiry.String(),
		Status:       string(v.Card.Status),
		Balance:      v.Card.Balance.StringFixed(domain.BalanceScale),
		HolderID:     v.Card.HolderID.String(),
		Version:      v.Card.Version,
		CreatedAt:    v.Card.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// FromUser maps a domain user to its response shape.
func FromUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// TotalPages computes the page count for a paginated response.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		pages++
	}
	return pages
}
