package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Dosada05/tournament-brackets/brackets"
	"github.com/Dosada05/tournament-brackets/metrics"
	"github.com/Dosada05/tournament-brackets/models"
	"github.com/Dosada05/tournament-brackets/repositories"
)

// ReportResult is what a player gets back after reporting a result.
type ReportResult struct {
	Status brackets.Outcome `json:"status"`
	Reason string           `json:"reason,omitempty"`
	Match  *models.Match    `json:"match,omitempty"`
}

type MatchService interface {
	// ReportMatchResult records userID's claim that declaredWinnerID won the
	// match. Rejections come back as a ReportResult with status rejected
	// together with the error describing them.
	ReportMatchResult(ctx context.Context, matchID, userID, declaredWinnerID int) (ReportResult, error)
	GetMatch(ctx context.Context, matchID int) (*models.Match, error)
	ListOpenMatchesForUser(ctx context.Context, userID int) ([]models.OpenMatch, error)
}

type matchService struct {
	tx              repositories.Transactor
	matchRepo       repositories.MatchRepository
	participantRepo repositories.ParticipantRepository
	bracketService  BracketService
	notifier        Notifier
	metrics         *metrics.Manager
	logger          *slog.Logger
}

func NewMatchService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.ParticipantRepository,
	bracketService BracketService,
	notifier Notifier,
	metricsManager *metrics.Manager,
	logger *slog.Logger,
) MatchService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &matchService{
		tx:              tx,
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		bracketService:  bracketService,
		notifier:        notifier,
		metrics:         metricsManager,
		logger:          logger,
	}
}

func (s *matchService) ReportMatchResult(ctx context.Context, matchID, userID, declaredWinnerID int) (ReportResult, error) {
	var (
		outcome brackets.Outcome
		match   *models.Match
	)

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		m, err := s.matchRepo.GetByIDForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return err
		}
		if err := brackets.CheckReportable(m); err != nil {
			return err
		}

		participant, err := s.participantRepo.FindByUserAndTournament(ctx, userID, m.TournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrNotMatchParticipant
			}
			return err
		}
		reporter, ok := brackets.SlotOf(m, participant.ID)
		if !ok {
			return ErrNotMatchParticipant
		}

		outcome, err = brackets.ApplyReport(m, reporter, declaredWinnerID)
		if err != nil {
			return err
		}
		if err := s.matchRepo.SaveReports(ctx, exec, m); err != nil {
			return err
		}

		if outcome == brackets.OutcomeConfirmed {
			set, err := s.matchRepo.SetWinner(ctx, exec, m.ID, *m.WinnerID)
			if err != nil {
				return err
			}
			if !set {
				return brackets.ErrAlreadyConfirmed
			}
			if err := s.bracketService.AdvanceWinner(ctx, exec, m); err != nil {
				return err
			}
		}
		match = m
		return nil
	})
	if err != nil {
		if isRejection(err) {
			s.metrics.ReportOutcome(string(brackets.OutcomeRejected))
			s.logger.InfoContext(ctx, "match report rejected",
				slog.Int("match_id", matchID),
				slog.Int("user_id", userID),
				slog.String("reason", err.Error()),
			)
			return ReportResult{Status: brackets.OutcomeRejected, Reason: err.Error()}, err
		}
		return ReportResult{}, err
	}

	s.metrics.ReportOutcome(string(outcome))
	s.logger.InfoContext(ctx, "match report recorded",
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("match_id", match.ID),
		slog.Int("user_id", userID),
		slog.String("outcome", string(outcome)),
	)
	s.notifier.MatchUpdated(ctx, match, outcome)

	return ReportResult{Status: outcome, Match: match}, nil
}

func isRejection(err error) bool {
	return errors.Is(err, brackets.ErrAlreadyConfirmed) ||
		errors.Is(err, brackets.ErrNotReportable) ||
		errors.Is(err, brackets.ErrMalformedSubmission) ||
		errors.Is(err, ErrNotMatchParticipant)
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *matchService) ListOpenMatchesForUser(ctx context.Context, userID int) ([]models.OpenMatch, error) {
	open, err := s.matchRepo.ListOpenByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range open {
		om := &open[i]
		om.RoundLabel = brackets.RoundLabel(om.RoundNumber, brackets.TotalRounds(om.FirstRoundSize))
		if slot, ok := brackets.SlotOf(&om.Match, om.OwnParticipant); ok {
			if slot == brackets.SlotA {
				om.AlreadyReported = om.PlayerAReportedWinnerID != nil
			} else {
				om.AlreadyReported = om.PlayerBReportedWinnerID != nil
			}
		}
	}
	return open, nil
}
