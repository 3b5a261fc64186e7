package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"card-vault/internal/core/domain"
	"card-vault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCard(t *testing.T, repo *CardRepo, balance string) *domain.Card {
	t.Helper()
	c := &domain.Card{
		ID:              uuid.New(),
		Version:         0,
		NumberEncrypted: "enc-" + uuid.New().String(),
		NumberHash:      "hash-" + uuid.New().String(),
		Expiry:          domain.CardExpiry{Month: 12, Year: 2030},
		Status:          domain.CardStatusActive,
		Balance:         decimal.RequireFromString(balance),
		HolderID:        uuid.New(),
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func TestCardRepo_CreateAndGet(t *testing.T) {
	repo := NewCardRepo()
	c := seedCard(t, repo, "100.0000")

	got, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, got.ID)
	assert.True(t, c.Balance.Equal(got.Balance))

	missing, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCardRepo_Create_DuplicateHash(t *testing.T) {
	repo := NewCardRepo()
	c := seedCard(t, repo, "100.0000")

	dup := *c
	dup.ID = uuid.New()
	err := repo.Create(context.Background(), &dup)
	assert.ErrorIs(t, err, ports.ErrDuplicateHash)
}

func TestCardRepo_Save_BumpsVersion(t *testing.T) {
	repo := NewCardRepo()
	c := seedCard(t, repo, "100.0000")

	c.Status = domain.CardStatusBlocked
	updated, err := repo.Save(context.Background(), c, 0)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, int64(1), updated.Version)
	assert.Equal(t, domain.CardStatusBlocked, updated.Status)

	// Stale version after the first write.
	_, err = repo.Save(context.Background(), c, 0)
	assert.ErrorIs(t, err, ports.ErrVersionConflict)
}

func TestCardRepo_Save_MissingCard(t *testing.T) {
	repo := NewCardRepo()
	ghost := &domain.Card{ID: uuid.New()}

	updated, err := repo.Save(context.Background(), ghost, 0)
	assert.NoError(t, err)
	assert.Nil(t, updated)
}

func TestCardRepo_SaveAll_AllOrNothing(t *testing.T) {
	repo := NewCardRepo()
	src := seedCard(t, repo, "100.0000")
	dst := seedCard(t, repo, "50.0000")

	src.Balance = decimal.RequireFromString("70.0000")
	dst.Balance = decimal.RequireFromString("80.0000")

	// Second entry carries a stale version: nothing may change.
	err := repo.SaveAll(context.Background(), []ports.CardWithVersion{
		{Card: src, ExpectedVersion: 0},
		{Card: dst, ExpectedVersion: 7},
	})
	require.ErrorIs(t, err, ports.ErrVersionConflict)

	stored, err := repo.GetByID(context.Background(), src.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("100.0000")))
	assert.Equal(t, int64(0), stored.Version)

	// Matching versions: both change together.
	err = repo.SaveAll(context.Background(), []ports.CardWithVersion{
		{Card: src, ExpectedVersion: 0},
		{Card: dst, ExpectedVersion: 0},
	})
	require.NoError(t, err)

	stored, err = repo.GetByID(context.Background(), dst.ID)
	require.NoError(t, err)
	assert.True(t, stored.Balance.Equal(decimal.RequireFromString("80.0000")))
	assert.Equal(t, int64(1), stored.Version)
}

func TestCardRepo_Delete(t *testing.T) {
	repo := NewCardRepo()
	c := seedCard(t, repo, "0.0000")

	found, err := repo.Delete(context.Background(), c.ID, 5)
	assert.ErrorIs(t, err, ports.ErrVersionConflict)
	assert.True(t, found)

	found, err = repo.Delete(context.Background(), c.ID, 0)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.Delete(context.Background(), c.ID, 0)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCardRepo_List_FiltersAndPaginates(t *testing.T) {
	repo := NewCardRepo()
	holder := uuid.New()
	for i := 0; i < 5; i++ {
		c := seedCard(t, repo, "10.0000")
		c.HolderID = holder
		_, err := repo.Save(context.Background(), c, 0)
		require.NoError(t, err)
	}
	other := seedCard(t, repo, "10.0000")
	other.Status = domain.CardStatusBlocked
	_, err := repo.Save(context.Background(), other, 0)
	require.NoError(t, err)

	cards, total, err := repo.List(context.Background(), ports.CardListParams{
		HolderID: &holder, Page: 1, PageSize: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, cards, 3)

	cards, total, err = repo.List(context.Background(), ports.CardListParams{
		HolderID: &holder, Page: 2, PageSize: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, cards, 2)

	blocked := domain.CardStatusBlocked
	cards, total, err = repo.List(context.Background(), ports.CardListParams{
		Status: &blocked, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, cards, 1)
	assert.Equal(t, other.ID, cards[0].ID)
}

func TestCardRepo_ExpireDue(t *testing.T) {
	repo := NewCardRepo()
	past := seedCard(t, repo, "0.0000")
	past.Expiry = domain.CardExpiry{Month: 7, Year: 2026}
	_, err := repo.Save(context.Background(), past, 0)
	require.NoError(t, err)
	future := seedCard(t, repo, "0.0000")

	n, err := repo.ExpireDue(context.Background(), 8, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := repo.GetByID(context.Background(), past.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusExpired, stored.Status)
	assert.Equal(t, int64(2), stored.Version)

	stored, err = repo.GetByID(context.Background(), future.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusActive, stored.Status)

	// Idempotent: already-expired cards are left alone.
	n, err = repo.ExpireDue(context.Background(), 8, 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCardRepo_ConcurrentSave_OneWinner(t *testing.T) {
	repo := NewCardRepo()
	c := seedCard(t, repo, "100.0000")

	const writers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, conflicts int

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mutated := *c
			mutated.Status = domain.CardStatusBlocked
			_, err := repo.Save(context.Background(), &mutated, 0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ports.ErrVersionConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}

func TestCardRepo_ConcurrentTransfers_ConserveTotal(t *testing.T) {
	repo := NewCardRepo()
	a := seedCard(t, repo, "500.0000")
	b := seedCard(t, repo, "500.0000")
	amount := decimal.RequireFromString("1.0000")

	transfer := func(srcID, dstID uuid.UUID) {
		for {
			cards, err := repo.GetManyByID(context.Background(), []uuid.UUID{srcID, dstID})
			require.NoError(t, err)
			src, dst := cards[srcID], cards[dstID]

			srcVer, dstVer := src.Version, dst.Version
			src.Balance = src.Balance.Sub(amount)
			dst.Balance = dst.Balance.Add(amount)

			err = repo.SaveAll(context.Background(), []ports.CardWithVersion{
				{Card: src, ExpectedVersion: srcVer},
				{Card: dst, ExpectedVersion: dstVer},
			})
			if err == nil {
				return
			}
			require.ErrorIs(t, err, ports.ErrVersionConflict)
		}
	}

	const rounds = 50
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			transfer(a.ID, b.ID)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			transfer(b.ID, a.ID)
		}
	}()
	wg.Wait()

	finalA, err := repo.GetByID(context.Background(), a.ID)
	require.NoError(t, err)
	finalB, err := repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)

	total := finalA.Balance.Add(finalB.Balance)
	assert.True(t, total.Equal(decimal.RequireFromString("1000.0000")),
		"total balance drifted: %s", total)
}
