package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"card-vault/internal/core/domain"
	"card-vault/internal/core/ports"
	"card-vault/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CardServiceImpl implements ports.CardService: creation, the status state
// machine, deletion, and masked listing.
type CardServiceImpl struct {
	cardRepo ports.CardRepository
	userRepo ports.UserRepository
	crypto   ports.CryptoService
	log      zerolog.Logger
}

// NewCardService creates a new CardServiceImpl.
func NewCardService(
	cardRepo ports.CardRepository,
	userRepo ports.UserRepository,
	crypto ports.CryptoService,
	log zerolog.Logger,
) *CardServiceImpl {
	return &CardServiceImpl{
		cardRepo: cardRepo,
		userRepo: userRepo,
		crypto:   crypto,
		log:      log,
	}
}

// Create issues a new card for a holder (administrative). The number is
// stored encrypted plus a peppered digest; uniqueness is checked against
// the digest and backed by the unique index.
func (s *CardServiceImpl) Create(ctx context.Context, req ports.CreateCardRequest) (*ports.CardView, error) {
	if req.InitialBalance.IsNegative() || !req.InitialBalance.Round(domain.BalanceScale).Equal(req.InitialBalance) {
		return nil, apperror.ErrInvalidAmount()
	}

	holder, err := s.userRepo.GetByID(ctx, req.HolderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find holder: %w", err))
	}
	if holder == nil {
		return nil, apperror.ErrHolderNotFound(req.HolderID)
	}

	numberHash := s.crypto.Hash(req.Number)

	taken, err := s.cardRepo.ExistsByHash(ctx, numberHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check number hash: %w", err))
	}
	if taken {
		return nil, apperror.ErrDuplicateCardNumber()
	}

	numberEnc, err := s.crypto.Encrypt(req.Number)
	if err != nil {
		return nil, apperror.ErrCryptoFailure(fmt.Errorf("encrypt card number: %w", err))
	}

	now := time.Now().UTC()
	card := &domain.Card{
		ID:              uuid.New(),
		Version:         0,
		NumberEncrypted: numberEnc,
		NumberHash:      numberHash,
		Expiry:          req.Expiry,
		Status:          domain.CardStatusActive,
		Balance:         req.InitialBalance,
		HolderID:        req.HolderID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.cardRepo.Create(ctx, card); err != nil {
		// The unique index may race the ExistsByHash check above.
		if errors.Is(err, ports.ErrDuplicateHash) {
			return nil, apperror.ErrDuplicateCardNumber()
		}
		return nil, apperror.InternalError(fmt.Errorf("create card: %w", err))
	}

	s.log.Info().
		Str("card_id", card.ID.String()).
		Str("holder_id", req.HolderID.String()).
		Msg("card created")

	return &ports.CardView{Card: card, MaskedNumber: domain.MaskNumber(req.Number)}, nil
}

// Block sets a card to BLOCKED on behalf of its holder. Blocking an
// already-blocked card is rejected rather than treated as a no-op.
func (s *CardServiceImpl) Block(ctx context.Context, cardID, requesterID uuid.UUID) (*ports.CardView, error) {
	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find card: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrCardNotFound(cardID)
	}

	if !card.OwnedBy(requesterID) {
		return nil, apperror.ErrCardNotOwned()
	}

	if card.Status == domain.CardStatusBlocked {
		return nil, apperror.ErrCardAlreadyBlocked()
	}

	loadedVersion := card.Version
	card.Status = domain.CardStatusBlocked

	updated, err := s.cardRepo.Save(ctx, card, loadedVersion)
	if err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, apperror.ErrConcurrentModification()
		}
		return nil, apperror.InternalError(fmt.Errorf("save card: %w", err))
	}
	if updated == nil {
		return nil, apperror.ErrCardNotFound(cardID)
	}

	s.log.Info().
		Str("card_id", cardID.String()).
		Str("holder_id", requesterID.String()).
		Msg("card blocked by holder")

	return s.view(updated)
}

// SetStatusAdmin writes a card status without an ownership check
// (administrative). EXPIRED is never assignable here: that transition
// belongs exclusively to the expiry sweep.
func (s *CardServiceImpl) SetStatusAdmin(ctx context.Context, cardID uuid.UUID, newStatus domain.CardStatus) (*ports.CardView, error) {
	if !domain.AssignableStatus(newStatus) {
		return nil, apperror.ErrIllegalStatusTransition(string(newStatus))
	}

	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find card: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrCardNotFound(cardID)
	}

	loadedVersion := card.Version
	card.Status = newStatus

	updated, err := s.cardRepo.Save(ctx, card, loadedVersion)
	if err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return nil, apperror.ErrConcurrentModification()
		}
		return nil, apperror.InternalError(fmt.Errorf("save card: %w", err))
	}
	if updated == nil {
		return nil, apperror.ErrCardNotFound(cardID)
	}

	s.log.Info().
		Str("card_id", cardID.String()).
		Str("status", string(newStatus)).
		Msg("card status updated by admin")

	return s.view(updated)
}

// Delete removes a card (administrative, terminal). The delete is
// version-checked like any other mutation.
func (s *CardServiceImpl) Delete(ctx context.Context, cardID uuid.UUID) error {
	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find card: %w", err))
	}
	if card == nil {
		return apperror.ErrCardNotFound(cardID)
	}

	found, err := s.cardRepo.Delete(ctx, cardID, card.Version)
	if err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return apperror.ErrConcurrentModification()
		}
		return apperror.InternalError(fmt.Errorf("delete card: %w", err))
	}
	if !found {
		return apperror.ErrCardNotFound(cardID)
	}

	s.log.Info().Str("card_id", cardID.String()).Msg("card deleted")
	return nil
}

// List returns masked card views. The last-four search runs against the
// decrypted number of the fetched page, since the stored form is
// ciphertext.
func (s *CardServiceImpl) List(ctx context.Context, q ports.CardListQuery) ([]ports.CardView, int64, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}

	cards, total, err := s.cardRepo.List(ctx, ports.CardListParams{
		HolderID: q.HolderID,
		Status:   q.Status,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list cards: %w", err))
	}

	views := make([]ports.CardView, 0, len(cards))
	for i := range cards {
		v, err := s.view(&cards[i])
		if err != nil {
			return nil, 0, err
		}
		if q.LastFour != "" && !strings.HasSuffix(v.MaskedNumber, q.LastFour) {
			continue
		}
		views = append(views, *v)
	}

	return views, total, nil
}

// view decrypts the card number and wraps the card in a masked projection.
func (s *CardServiceImpl) view(card *domain.Card) (*ports.CardView, error) {
	plain, err := s.crypto.Decrypt(card.NumberEncrypted)
	if err != nil {
		return nil, apperror.ErrCryptoFailure(fmt.Errorf("decrypt card number: %w", err))
	}
	return &ports.CardView{Card: card, MaskedNumber: domain.MaskNumber(plain)}, nil
}
