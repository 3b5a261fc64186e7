package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"card-vault/internal/core/domain"
	"card-vault/internal/core/ports"
	"card-vault/internal/core/ports/mocks"
	"card-vault/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func newCardServiceMocks(t *testing.T) (*mocks.MockCardRepository, *mocks.MockUserRepository, *mocks.MockCryptoService, *CardServiceImpl) {
	ctrl := gomock.NewController(t)
	cardRepo := mocks.NewMockCardRepository(ctrl)
	userRepo := mocks.NewMockUserRepository(ctrl)
	crypto := mocks.NewMockCryptoService(ctrl)
	svc := NewCardService(cardRepo, userRepo, crypto, zerolog.Nop())
	return cardRepo, userRepo, crypto, svc
}

func activeCard(holderID uuid.UUID) *domain.Card {
	return &domain.Card{
		ID:              uuid.New(),
		Version:         2,
		NumberEncrypted: "enc",
		NumberHash:      "hash",
		Expiry:          domain.CardExpiry{Month: 12, Year: 2030},
		Status:          domain.CardStatusActive,
		Balance:         decimal.RequireFromString("100.0000"),
		HolderID:        holderID,
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
}

func TestCardService_Create_Success(t *testing.T) {
	cardRepo, userRepo, crypto, svc := newCardServiceMocks(t)
	holderID := uuid.New()
	number := "4111111111111111"

	userRepo.EXPECT().GetByID(gomock.Any(), holderID).Return(&domain.User{ID: holderID}, nil)
	crypto.EXPECT().Hash(number).Return("numhash")
	cardRepo.EXPECT().ExistsByHash(gomock.Any(), "numhash").Return(false, nil)
	crypto.EXPECT().Encrypt(number).Return("numenc", nil)
	cardRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, c *domain.Card) error {
			assert.Equal(t, int64(0), c.Version)
			assert.Equal(t, domain.CardStatusActive, c.Status)
			assert.Equal(t, "numenc", c.NumberEncrypted)
			assert.Equal(t, "numhash", c.NumberHash)
			assert.True(t, c.Balance.Equal(decimal.RequireFromString("25.5000")))
			return nil
		})

	view, err := svc.Create(context.Background(), ports.CreateCardRequest{
		HolderID:       holderID,
		Number:         number,
		Expiry:         domain.CardExpiry{Month: 12, Year: 2030},
		InitialBalance: decimal.RequireFromString("25.5000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "************1111", view.MaskedNumber)
	assert.Equal(t, holderID, view.Card.HolderID)
}

func TestCardService_Create_RejectsBadBalance(t *testing.T) {
	_, _, _, svc := newCardServiceMocks(t)

	tests := []struct {
		name    string
		balance decimal.Decimal
	}{
		{"negative", decimal.RequireFromString("-1")},
		{"too precise", decimal.RequireFromString("1.00001")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), ports.CreateCardRequest{
				HolderID:       uuid.New(),
				Number:         "4111111111111111",
				Expiry:         domain.CardExpiry{Month: 12, Year: 2030},
				InitialBalance: tt.balance,
			})
			assertAppCode(t, err, "TRF_001")
		})
	}
}

func TestCardService_Create_HolderNotFound(t *testing.T) {
	_, userRepo, _, svc := newCardServiceMocks(t)

	userRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := svc.Create(context.Background(), ports.CreateCardRequest{
		HolderID:       uuid.New(),
		Number:         "4111111111111111",
		Expiry:         domain.CardExpiry{Month: 12, Year: 2030},
		InitialBalance: decimal.Zero,
	})
	assertAppCode(t, err, "CARD_006")
}

func TestCardService_Create_DuplicateNumber(t *testing.T) {
	cardRepo, userRepo, crypto, svc := newCardServiceMocks(t)
	holderID := uuid.New()

	userRepo.EXPECT().GetByID(gomock.Any(), holderID).Return(&domain.User{ID: holderID}, nil)
	crypto.EXPECT().Hash(gomock.Any()).Return("numhash")
	cardRepo.EXPECT().ExistsByHash(gomock.Any(), "numhash").Return(true, nil)

	_, err := svc.Create(context.Background(), ports.CreateCardRequest{
		HolderID:       holderID,
		Number:         "4111111111111111",
		Expiry:         domain.CardExpiry{Month: 12, Year: 2030},
		InitialBalance: decimal.Zero,
	})
	assertAppCode(t, err, "CARD_005")
}

func TestCardService_Create_DuplicateRace(t *testing.T) {
	cardRepo, userRepo, crypto, svc := newCardServiceMocks(t)
	holderID := uuid.New()

	userRepo.EXPECT().GetByID(gomock.Any(), holderID).Return(&domain.User{ID: holderID}, nil)
	crypto.EXPECT().Hash(gomock.Any()).Return("numhash")
	cardRepo.EXPECT().ExistsByHash(gomock.Any(), "numhash").Return(false, nil)
	crypto.EXPECT().Encrypt(gomock.Any()).Return("numenc", nil)
	cardRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(ports.ErrDuplicateHash)

	_, err := svc.Create(context.Background(), ports.CreateCardRequest{
		HolderID:       holderID,
		Number:         "4111111111111111",
		Expiry:         domain.CardExpiry{Month: 12, Year: 2030},
		InitialBalance: decimal.Zero,
	})
	assertAppCode(t, err, "CARD_005")
}

func TestCardService_Block_Success(t *testing.T) {
	cardRepo, _, crypto, svc := newCardServiceMocks(t)
	holderID := uuid.New()
	card := activeCard(holderID)

	cardRepo.EXPECT().GetByID(gomock.Any(), card.ID).Return(card, nil)
	cardRepo.EXPECT().Save(gomock.Any(), gomock.Any(), int64(2)).DoAndReturn(
		func(_ context.Context, c *domain.Card, _ int64) (*domain.Card, error) {
			assert.Equal(t, domain.CardStatusBlocked, c.Status)
			updated := *c
			updated.Version = 3
			return &updated, nil
		})
	crypto.EXPECT().Decrypt("enc").Return("4111111111111111", nil)

	view, err := svc.Block(context.Background(), card.ID, holderID)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusBlocked, view.Card.Status)
	assert.Equal(t, int64(3), view.Card.Version)
	assert.Equal(t, "************1111", view.MaskedNumber)
}

func TestCardService_Block_NotFound(t *testing.T) {
	cardRepo, _, _, svc := newCardServiceMocks(t)

	cardRepo.EXPECT().GetByID(gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := svc.Block(context.Background(), uuid.New(), uuid.New())
	assertAppCode(t, err, "CARD_001")
}

func TestCardService_Block_NotOwned(t *testing.T) {
	cardRepo, _, _, svc := newCardServiceMocks(t)
	card := activeCard(uuid.New())

	cardRepo.EXPECT().GetByID(gomock.Any(), card.ID).Return(card, nil)

	_, err := svc.Block(context.Background(), card.ID, uuid.New())
	assertAppCode(t, err, "CARD_002")
}

func TestCardService_Block_AlreadyBlocked(t *testing.T) {
	cardRepo, _, _, svc := newCardServiceMocks(t)
	holderID := uuid.New()
	card := activeCard(holderID)
	card.Status = domain.CardStatusBlocked

	cardRepo.EXPECT().GetByID(gomock.Any(), card.ID).Return(card, nil)

	_, err := svc.Block(context.Background(), card.ID, holderID)
	assertAppCode(t, err, "CARD_003")
}

func TestCardService_Block_VersionConflict(t *testing.T) {
	cardRepo, _, _, svc := newCardServiceMocks(t)
	holderID := uuid.New()
	card := activeCard(holderID)

	cardRepo.EXPECT().GetByID(gomock.Any(), card.ID).Return(card, nil)
	cardRepo.EXPECT().Save(gomock.Any(), gomock.Any(), int64(2)).Return(nil, ports.ErrVersionConflict)

	_, err := svc.Block(context.Background(), card.ID, holderID)
	assertAppCode(t, err, "TRF_005")
}

func TestCardService_SetStatusAdmin_Success(t *testing.T) {
	cardRepo, _, crypto, svc := newCardServiceMocks(t)
	card := activeCard(uuid.New())
	card.Status = domain.CardStatusBlocked

	cardRepo.EXPECT().GetByID(gomock.Any(), card.ID).Return(card, nil)
	cardRepo.EXPECT().Save(gomock.Any(), gomock.Any(), int64(2)).DoAndReturn(
		func(_ context.Context, c *domain.Card, _ int64) (*domain.Card, error) {
			assert.Equal(t, domain.CardStatusActive, c.Status)
			updated := *c
			updated.Version = 3
			return &updated, nil
		})
	crypto.EXPECT().Decrypt("enc").Return("4111111111111111", nil)

	view, err := svc.SetStatusAdmin(context.Background(), card.ID, domain.CardStatusActive)
	require.NoError(t, err)
	assert.Equal(t, domain.CardStatusActive, view.Card.Status)
}

func TestCardService_SetStatusAdmin_ExpiredNotAssignable(t *testing.T) {
	_, _, _, svc := newCardServiceMocks(t)

	_, err := svc.SetStatusAdmin(context.Background(), uuid.New(), domain.CardStatusExpired)
	assertAppCode(t, err, "CARD_004")
}

func TestCardService_Delete_Success(t *testing.T) {
	cardRepo, _, _, svc := newCardServiceMocks(t)
	card := activeCard(uuid.New())

	cardRepo.EXPECT().GetByID(gomock.Any(), card.ID).Return(card, nil)
	cardRepo.EXPECT().Delete(gomock.Any(), card.ID, int64(2)).Return(true, nil)

	err := svc.Delete(context.Background(), card.ID)
	assert.NoError(t, err)
}

func TestCardService_Delete_VersionConflict(t *testing.T) {
	cardRepo, _, _, svc := newCardServiceMocks(t)
	card := activeCard(uuid.New())

	cardRepo.EXPECT().GetByID(gomock.Any(), card.ID).Return(card, nil)
	cardRepo.EXPECT().Delete(gomock.Any(), card.ID, int64(2)).Return(true, ports.ErrVersionConflict)

	err := svc.Delete(context.Background(), card.ID)
	assertAppCode(t, err, "TRF_005")
}

func TestCardService_List_MasksAndFiltersLastFour(t *testing.T) {
	cardRepo, _, crypto, svc := newCardServiceMocks(t)
	holderID := uuid.New()
	a := activeCard(holderID)
	a.NumberEncrypted = "enc-a"
	b := activeCard(holderID)
	b.NumberEncrypted = "enc-b"

	cardRepo.EXPECT().List(gomock.Any(), ports.CardListParams{
		HolderID: &holderID, Page: 1, PageSize: 20,
	}).Return([]domain.Card{*a, *b}, int64(2), nil)
	crypto.EXPECT().Decrypt("enc-a").Return("4111111111111111", nil)
	crypto.EXPECT().Decrypt("enc-b").Return("5500000000000004", nil)

	views, total, err := svc.List(context.Background(), ports.CardListQuery{
		HolderID: &holderID,
		LastFour: "0004",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, views, 1)
	assert.Equal(t, "************0004", views[0].MaskedNumber)
	assert.Equal(t, b.ID, views[0].Card.ID)
}

func TestCardService_List_RepoError(t *testing.T) {
	cardRepo, _, _, svc := newCardServiceMocks(t)

	cardRepo.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, int64(0), errors.New("db down"))

	_, _, err := svc.List(context.Background(), ports.CardListQuery{})
	assertAppCode(t, err, "SYS_001")
}
