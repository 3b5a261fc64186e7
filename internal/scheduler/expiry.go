package scheduler

import (
	"context"
	"time"

	"card-vault/internal/core/ports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ExpirySweeper periodically transitions cards whose expiry lies in the
// past to EXPIRED. The transition runs through the card store's bulk
// version-bumping update; no other code path may write that status.
type ExpirySweeper struct {
	cardRepo ports.CardRepository
	cron     *cron.Cron
	log      zerolog.Logger
}

// NewExpirySweeper creates a sweeper bound to the given card repository.
func NewExpirySweeper(cardRepo ports.CardRepository, log zerolog.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		cardRepo: cardRepo,
		cron:     cron.New(),
		log:      log,
	}
}

// Start schedules sweeps per the cron spec (e.g. "@daily") and runs one
// sweep immediately to catch cards that expired while the process was down.
func (s *ExpirySweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	go s.sweep()
	return nil
}

// Stop halts the schedule. A sweep already in flight finishes.
func (s *ExpirySweeper) Stop() {
	s.cron.Stop()
}

func (s *ExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s.Run(ctx)
}

// Run executes a single sweep against the current month.
func (s *ExpirySweeper) Run(ctx context.Context) {
	now := time.Now().UTC()
	expired, err := s.cardRepo.ExpireDue(ctx, int(now.Month()), now.Year())
	if err != nil {
		s.log.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	if expired > 0 {
		s.log.Info().Int64("expired", expired).Msg("expiry sweep transitioned cards")
	}
}
