package service

import (
	"context"
	"errors"
	"fmt"

	"card-vault/internal/core/domain"
	"card-vault/internal/core/ports"
	"card-vault/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransferServiceImpl implements ports.TransferService. It orchestrates the
// two-card balance movement; all isolation discipline lives in the card
// store's batched version-checked write.
type TransferServiceImpl struct {
	cardRepo ports.CardRepository
	log      zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(cardRepo ports.CardRepository, log zerolog.Logger) *TransferServiceImpl {
	return &TransferServiceImpl{cardRepo: cardRepo, log: log}
}

// Transfer moves amount from the source card to the destination card.
// Both cards must exist, belong to the requester, and be ACTIVE; the source
// must cover the amount. Versions captured at load gate the final write:
// a conflict on either card fails the whole operation with no partial
// mutation, and the caller decides whether to retry.
func (s *TransferServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) error {
	if req.SourceID == req.DestinationID {
		return apperror.ErrSameCardTransfer()
	}

	// Re-checked here even though the HTTP boundary validates it: a
	// non-positive or over-precise amount must never reach the store.
	if !req.Amount.IsPositive() || !req.Amount.Round(domain.BalanceScale).Equal(req.Amount) {
		return apperror.ErrInvalidAmount()
	}

	cards, err := s.cardRepo.GetManyByID(ctx, []uuid.UUID{req.SourceID, req.DestinationID})
	if err != nil {
		return apperror.InternalError(fmt.Errorf("load cards: %w", err))
	}

	source, ok := cards[req.SourceID]
	if !ok {
		return apperror.ErrCardNotFound(req.SourceID)
	}
	destination, ok := cards[req.DestinationID]
	if !ok {
		return apperror.ErrCardNotFound(req.DestinationID)
	}

	if !source.OwnedBy(req.RequesterID) || !destination.OwnedBy(req.RequesterID) {
		return apperror.ErrCardNotOwned()
	}

	if !source.IsActive() {
		return apperror.ErrCardNotActive(source.ID)
	}
	if !destination.IsActive() {
		return apperror.ErrCardNotActive(destination.ID)
	}

	if source.Balance.LessThan(req.Amount) {
		return apperror.ErrInsufficientFunds()
	}

	sourceVersion := source.Version
	destinationVersion := destination.Version

	source.Balance = source.Balance.Sub(req.Amount)
	destination.Balance = destination.Balance.Add(req.Amount)

	err = s.cardRepo.SaveAll(ctx, []ports.CardWithVersion{
		{Card: source, ExpectedVersion: sourceVersion},
		{Card: destination, ExpectedVersion: destinationVersion},
	})
	if err != nil {
		if errors.Is(err, ports.ErrVersionConflict) {
			return apperror.ErrConcurrentModification()
		}
		return apperror.InternalError(fmt.Errorf("save cards: %w", err))
	}

	s.log.Info().
		Str("source_id", req.SourceID.String()).
		Str("destination_id", req.DestinationID.String()).
		Str("amount", req.Amount.StringFixed(domain.BalanceScale)).
		Msg("transfer completed")

	return nil
}
