package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-brackets/models"
	"github.com/Dosada05/tournament-brackets/repositories"
	"github.com/Dosada05/tournament-brackets/storage"
	"golang.org/x/sync/errgroup"
)

type UserService interface {
	GetProfile(ctx context.Context, userID int) (*models.User, error)
	// ListRegisteredTournaments returns the tournaments the user signed up
	// for, earliest start first.
	ListRegisteredTournaments(ctx context.Context, userID int) ([]models.Tournament, error)
	GetDashboard(ctx context.Context, userID int) (*models.PlayerDashboard, error)
}

type userService struct {
	userRepo       repositories.UserRepository
	tournamentRepo repositories.TournamentRepository
	matchService   MatchService
	uploader       storage.FileUploader
	logger         *slog.Logger
}

func NewUserService(
	userRepo repositories.UserRepository,
	tournamentRepo repositories.TournamentRepository,
	matchService MatchService,
	uploader storage.FileUploader,
	logger *slog.Logger,
) UserService {
	return &userService{
		userRepo:       userRepo,
		tournamentRepo: tournamentRepo,
		matchService:   matchService,
		uploader:       uploader,
		logger:         logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, userID int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return user, nil
}

func (s *userService) ListRegisteredTournaments(ctx context.Context, userID int) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.ListByParticipantUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		fillLogoURL(s.uploader, &tournaments[i])
	}
	return tournaments, nil
}

func (s *userService) GetDashboard(ctx context.Context, userID int) (*models.PlayerDashboard, error) {
	dashboard := &models.PlayerDashboard{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := s.GetProfile(gctx, userID)
		dashboard.User = user
		return err
	})
	g.Go(func() error {
		tournaments, err := s.ListRegisteredTournaments(gctx, userID)
		dashboard.Tournaments = tournaments
		return err
	})
	g.Go(func() error {
		matches, err := s.matchService.ListOpenMatchesForUser(gctx, userID)
		dashboard.Matches = matches
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "dashboard loaded",
		slog.Int("user_id", userID),
		slog.Int("tournaments", len(dashboard.Tournaments)),
		slog.Int("open_matches", len(dashboard.Matches)),
	)
	return dashboard, nil
}
