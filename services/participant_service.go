package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/tournament-brackets/models"
	"github.com/Dosada05/tournament-brackets/repositories"
)

const maxLicenseNumberLength = 50

type RegisterParticipantInput struct {
	LicenseNumber string `json:"license_number"`
	Ranking       int    `json:"ranking"`
}

type ParticipantService interface {
	RegisterParticipant(ctx context.Context, userID, tournamentID int, input RegisterParticipantInput) (*models.Participant, error)
	ListParticipants(ctx context.Context, tournamentID int) ([]*models.Participant, error)
}

type participantService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	logger          *slog.Logger
	now             func() time.Time
}

func NewParticipantService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	logger *slog.Logger,
) ParticipantService {
	return &participantService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *participantService) RegisterParticipant(ctx context.Context, userID, tournamentID int, input RegisterParticipantInput) (*models.Participant, error) {
	license := strings.TrimSpace(input.LicenseNumber)
	if license == "" || utf8.RuneCountInString(license) > maxLicenseNumberLength {
		return nil, ErrLicenseNumberInvalid
	}
	if input.Ranking < 1 {
		return nil, ErrRankingInvalid
	}

	participant := &models.Participant{
		TournamentID:  tournamentID,
		UserID:        userID,
		LicenseNumber: license,
		Ranking:       input.Ranking,
		Status:        models.ParticipantRegistered,
	}

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.LockForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if tournament.OrganizerID == userID {
			return ErrOrganizerCannotSignUp
		}
		if tournament.Status == models.StatusCanceled || tournament.SignupClosed(s.now()) {
			return ErrRegistrationClosed
		}

		generated, err := s.matchRepo.CountByRound(ctx, exec, tournamentID, 1)
		if err != nil {
			return err
		}
		if generated > 0 {
			return ErrRegistryFrozen
		}

		count, err := s.participantRepo.CountByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if count >= tournament.MaxParticipants {
			return ErrTournamentFull
		}

		return mapParticipantRepoError(s.participantRepo.Create(ctx, exec, participant))
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "participant registered",
		slog.Int("tournament_id", tournamentID),
		slog.Int("participant_id", participant.ID),
		slog.Int("ranking", participant.Ranking),
	)
	return participant, nil
}

func (s *participantService) ListParticipants(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	return s.participantRepo.ListRanked(ctx, nil, tournamentID)
}

func mapParticipantRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrParticipantLicenseConflict):
		return ErrLicenseNumberTaken
	case errors.Is(err, repositories.ErrParticipantRankingConflict):
		return ErrRankingTaken
	case errors.Is(err, repositories.ErrParticipantConflict):
		return ErrRegistrationConflict
	case errors.Is(err, repositories.ErrParticipantTournamentInvalid):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrParticipantUserInvalid):
		return ErrUserNotFound
	}
	return err
}
