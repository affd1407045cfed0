package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-brackets/metrics"
	"github.com/Dosada05/tournament-brackets/repositories"
	"github.com/go-co-op/gocron/v2"
)

// BracketSweeper periodically generates round one for tournaments whose
// signup deadline passed while nobody read them.
type BracketSweeper struct {
	scheduler      gocron.Scheduler
	interval       time.Duration
	tournamentRepo repositories.TournamentRepository
	bracketService BracketService
	metrics        *metrics.Manager
	logger         *slog.Logger
	now            func() time.Time
}

func NewBracketSweeper(
	interval time.Duration,
	tournamentRepo repositories.TournamentRepository,
	bracketService BracketService,
	metricsManager *metrics.Manager,
	logger *slog.Logger,
) (*BracketSweeper, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &BracketSweeper{
		scheduler:      sched,
		interval:       interval,
		tournamentRepo: tournamentRepo,
		bracketService: bracketService,
		metrics:        metricsManager,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// Start schedules the sweep. A zero interval leaves the sweeper idle.
func (s *BracketSweeper) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("bracket sweeper disabled")
		return nil
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, s.interval)
			defer cancel()
			err := s.Sweep(runCtx)
			s.metrics.SweepRun(err)
			if err != nil {
				s.logger.Error("bracket sweep failed", slog.Any("error", err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule bracket sweep: %w", err)
	}

	s.scheduler.Start()
	s.logger.Info("bracket sweeper started", slog.Duration("interval", s.interval))
	return nil
}

// Sweep runs one pass. Failures on one tournament do not stop the others.
func (s *BracketSweeper) Sweep(ctx context.Context) error {
	ids, err := s.tournamentRepo.ListAwaitingBracket(ctx, s.now())
	if err != nil {
		return err
	}

	var errs []error
	generated := 0
	for _, id := range ids {
		created, err := s.bracketService.EnsureRoundOneBracket(ctx, id, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("tournament %d: %w", id, err))
			continue
		}
		if created {
			generated++
		}
	}
	if generated > 0 {
		s.logger.Info("bracket sweep generated brackets", slog.Int("count", generated))
	}
	return errors.Join(errs...)
}

func (s *BracketSweeper) Shutdown() error {
	return s.scheduler.Shutdown()
}
