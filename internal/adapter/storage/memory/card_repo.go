// Package memory provides an in-process CardRepository backed by a
// mutex-guarded map. It honors the same version-check contract as the
// PostgreSQL implementation and backs the concurrency tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"card-vault/internal/core/domain"
	"card-vault/internal/core/ports"

	"github.com/google/uuid"
)

// CardRepo implements ports.CardRepository in memory.
type CardRepo struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*domain.Card
}

// NewCardRepo creates an empty in-memory card store.
func NewCardRepo() *CardRepo {
	return &CardRepo{cards: make(map[uuid.UUID]*domain.Card)}
}

func cloneCard(c *domain.Card) *domain.Card {
	cp := *c
	return &cp
}

// Create inserts a new card, rejecting number-hash duplicates.
func (r *CardRepo) Create(_ context.Context, c *domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.cards {
		if existing.NumberHash == c.NumberHash {
			return ports.ErrDuplicateHash
		}
	}
	r.cards[c.ID] = cloneCard(c)
	return nil
}

// GetByID returns a copy of the stored card, or nil, nil when absent.
func (r *CardRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cards[id]
	if !ok {
		return nil, nil
	}
	return cloneCard(c), nil
}

// GetManyByID returns copies of the stored cards keyed by id. Missing ids
// are absent from the map.
func (r *CardRepo) GetManyByID(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make(map[uuid.UUID]*domain.Card, len(ids))
	for _, id := range ids {
		if c, ok := r.cards[id]; ok {
			result[id] = cloneCard(c)
		}
	}
	return result, nil
}

// ExistsByHash reports whether any card carries the given number hash.
func (r *CardRepo) ExistsByHash(_ context.Context, numberHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.cards {
		if c.NumberHash == numberHash {
			return true, nil
		}
	}
	return false, nil
}

// Save applies a version-checked write. The comparison and the write
// happen under one lock acquisition.
func (r *CardRepo) Save(_ context.Context, c *domain.Card, expectedVersion int64) (*domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.cards[c.ID]
	if !ok {
		return nil, nil
	}
	if stored.Version != expectedVersion {
		return nil, ports.ErrVersionConflict
	}

	updated := cloneCard(c)
	updated.Version = expectedVersion + 1
	updated.UpdatedAt = time.Now().UTC()
	r.cards[c.ID] = updated
	return cloneCard(updated), nil
}

// SaveAll applies every version-checked write or none. The lock spans the
// whole batch, so all version comparisons and writes are indivisible.
func (r *CardRepo) SaveAll(_ context.Context, cards []ports.CardWithVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cv := range cards {
		stored, ok := r.cards[cv.Card.ID]
		if !ok || stored.Version != cv.ExpectedVersion {
			return ports.ErrVersionConflict
		}
	}

	now := time.Now().UTC()
	for _, cv := range cards {
		updated := cloneCard(cv.Card)
		updated.Version = cv.ExpectedVersion + 1
		updated.UpdatedAt = now
		r.cards[cv.Card.ID] = updated
	}
	return nil
}

// Delete removes the card if the version matches.
func (r *CardRepo) Delete(_ context.Context, id uuid.UUID, expectedVersion int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.cards[id]
	if !ok {
		return false, nil
	}
	if stored.Version != expectedVersion {
		return true, ports.ErrVersionConflict
	}
	delete(r.cards, id)
	return true, nil
}

// List returns a filtered, paginated page of cards ordered newest first.
func (r *CardRepo) List(_ context.Context, params ports.CardListParams) ([]domain.Card, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Card
	for _, c := range r.cards {
		if params.HolderID != nil && c.HolderID != *params.HolderID {
			continue
		}
		if params.Status != nil && c.Status != *params.Status {
			continue
		}
		matched = append(matched, *cloneCard(c))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (params.Page - 1) * params.PageSize
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// ExpireDue transitions every card expiring strictly before month/year to
// EXPIRED.
func (r *CardRepo) ExpireDue(_ context.Context, month, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired int64
	now := time.Now().UTC()
	for _, c := range r.cards {
		if c.Status == domain.CardStatusExpired {
			continue
		}
		if c.Expiry.Before(month, year) {
			c.Status = domain.CardStatusExpired
			c.Version++
			c.UpdatedAt = now
			expired++
		}
	}
	return expired, nil
}
