package ports

import (
	"context"
	"time"

	"card-vault/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CryptoService protects the stored card number. Encrypt/Decrypt are the
// reversible pair used for authorized display; Hash is the one-way peppered
// digest used for uniqueness lookup without decrypting.
type CryptoService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
	Hash(plaintext string) string
}

// PasswordHasher handles password hashing (Argon2id).
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(user *domain.User) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID   uuid.UUID
	Username string
	Role     domain.Role
}

// --- Service Ports (Business Logic) ---

// CardView is a card projection safe for callers: the number appears only
// in masked form.
type CardView struct {
	Card         *domain.Card
	MaskedNumber string
}

// CreateCardRequest holds validated input for administrative card creation.
type CreateCardRequest struct {
	HolderID       uuid.UUID
	Number         string
	Expiry         domain.CardExpiry
	InitialBalance decimal.Decimal
}

// CardListQuery holds filter + pagination for listing a holder's cards.
type CardListQuery struct {
	HolderID *uuid.UUID
	Status   *domain.CardStatus
	LastFour string
	Page     int
	PageSize int
}

// CardService covers card lifecycle: creation, status transitions,
// deletion, and masked display.
type CardService interface {
	Create(ctx context.Context, req CreateCardRequest) (*CardView, error)
	Block(ctx context.Context, cardID, requesterID uuid.UUID) (*CardView, error)
	SetStatusAdmin(ctx context.Context, cardID uuid.UUID, newStatus domain.CardStatus) (*CardView, error)
	Delete(ctx context.Context, cardID uuid.UUID) error
	List(ctx context.Context, q CardListQuery) ([]CardView, int64, error)
}

// TransferRequest holds validated input for a two-card balance movement.
type TransferRequest struct {
	RequesterID   uuid.UUID
	SourceID      uuid.UUID
	DestinationID uuid.UUID
	Amount        decimal.Decimal
}

// TransferService moves balance between two cards of the same holder,
// atomically or not at all.
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) error
}

// AuthService defines authentication business logic.
type AuthService interface {
	SignUp(ctx context.Context, username, password string) (string, time.Time, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error)
}

// UserService defines administrative user queries.
type UserService interface {
	List(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
}
