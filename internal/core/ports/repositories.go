package ports

import (
	"context"
	"errors"

	"card-vault/internal/core/domain"

	"github.com/google/uuid"
)

// ErrVersionConflict is returned by version-checked writes when the stored
// version no longer matches the version the caller loaded. The write did
// not happen; the caller must re-read and retry.
var ErrVersionConflict = errors.New("card version conflict")

// ErrDuplicateHash is returned by Create when another card already carries
// the same number hash.
var ErrDuplicateHash = errors.New("card number hash already exists")

// ErrDuplicateUsername is returned by UserRepository.Create on a username
// collision.
var ErrDuplicateUsername = errors.New("username already exists")

// CardWithVersion pairs a mutated card with the version it was loaded at,
// making the compare-and-swap contract explicit at every call site.
type CardWithVersion struct {
	Card            *domain.Card
	ExpectedVersion int64
}

// CardListParams holds filter + pagination for listing cards.
type CardListParams struct {
	HolderID *uuid.UUID
	Status   *domain.CardStatus
	Page     int
	PageSize int
}

// CardRepository is the card store: the only component permitted to touch
// persisted card state. All concurrency discipline funnels through its
// version-check contract.
type CardRepository interface {
	Create(ctx context.Context, card *domain.Card) error
	// GetByID returns nil, nil when no card exists with the given id.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	// GetManyByID loads a set of cards in one batched read. Missing ids are
	// simply absent from the result; the caller checks completeness.
	GetManyByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Card, error)
	ExistsByHash(ctx context.Context, numberHash string) (bool, error)
	// Save persists the card only if the stored version equals
	// expectedVersion, incrementing the version on success. Returns the
	// updated record, nil+nil when the card no longer exists, or
	// ErrVersionConflict without writing.
	Save(ctx context.Context, card *domain.Card, expectedVersion int64) (*domain.Card, error)
	// SaveAll applies every version-checked write or none of them. This is
	// the primitive transfers rely on for atomicity; implementations must
	// execute the version comparison and write indivisibly (serializable
	// transaction, or a lock spanning the batch).
	SaveAll(ctx context.Context, cards []CardWithVersion) error
	// Delete removes the card if the version matches. Returns false when no
	// card exists with the given id.
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int64) (bool, error)
	List(ctx context.Context, params CardListParams) ([]domain.Card, int64, error)
	// ExpireDue transitions every card whose expiry lies strictly before the
	// given month/year to EXPIRED, bumping each card's version. This is the
	// only path to the EXPIRED status. Returns the number of cards expired.
	ExpireDue(ctx context.Context, month, year int) (int64, error)
}

// UserRepository defines persistence operations for card holders.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
}
