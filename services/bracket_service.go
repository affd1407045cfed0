package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/tournament-brackets/brackets"
	"github.com/Dosada05/tournament-brackets/metrics"
	"github.com/Dosada05/tournament-brackets/models"
	"github.com/Dosada05/tournament-brackets/repositories"
	"golang.org/x/sync/errgroup"
)

type BracketService interface {
	// EnsureRoundOneBracket creates the round-one matches once. It returns
	// false without error when the deadline gate is closed, the bracket
	// already exists or fewer than two players signed up.
	EnsureRoundOneBracket(ctx context.Context, tournamentID int, ignoreDeadline bool) (bool, error)
	// GenerateNow is the organizer override that skips the deadline gate.
	GenerateNow(ctx context.Context, tournamentID, userID int) (bool, error)
	AdvanceWinner(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error
	Champion(ctx context.Context, tournamentID int) (*models.Participant, error)
	GetBracket(ctx context.Context, tournamentID int) (*BracketView, error)
}

type RoundView struct {
	Round   int             `json:"round"`
	Label   string          `json:"label"`
	Matches []*models.Match `json:"matches"`
}

type BracketView struct {
	Tournament   *models.Tournament    `json:"tournament"`
	Participants []*models.Participant `json:"participants"`
	TotalRounds  int                   `json:"total_rounds"`
	Rounds       []RoundView           `json:"rounds"`
	Champion     *models.Participant   `json:"champion,omitempty"`
}

const (
	skipGateNotMet       = "gate_not_met"
	skipAlreadyGenerated = "already_generated"
	skipInsufficient     = "insufficient_participants"
	skipCanceled         = "tournament_canceled"
)

type bracketService struct {
	tx              repositories.Transactor
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	notifier        Notifier
	metrics         *metrics.Manager
	logger          *slog.Logger
	now             func() time.Time
}

func NewBracketService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	notifier Notifier,
	metricsManager *metrics.Manager,
	logger *slog.Logger,
) BracketService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &bracketService{
		tx:              tx,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		notifier:        notifier,
		metrics:         metricsManager,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *bracketService) EnsureRoundOneBracket(ctx context.Context, tournamentID int, ignoreDeadline bool) (bool, error) {
	var skipped string
	var byes int

	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.LockForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if tournament.Status == models.StatusCanceled {
			skipped = skipCanceled
			return nil
		}
		if !ignoreDeadline && !tournament.SignupClosed(s.now()) {
			skipped = skipGateNotMet
			return nil
		}

		existing, err := s.matchRepo.CountByRound(ctx, exec, tournamentID, 1)
		if err != nil {
			return err
		}
		if existing > 0 {
			skipped = skipAlreadyGenerated
			return nil
		}

		participants, err := s.participantRepo.ListRanked(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		ranked := make([]int, len(participants))
		for i, p := range participants {
			ranked[i] = p.ID
		}
		pairings := brackets.SeedRoundOne(ranked)
		if len(pairings) == 0 {
			skipped = skipInsufficient
			return nil
		}

		roundOne := make([]*models.Match, 0, len(pairings))
		for _, pairing := range pairings {
			playerA := pairing.PlayerA
			m := &models.Match{
				TournamentID:    tournamentID,
				RoundNumber:     1,
				BracketPosition: pairing.Position,
				PlayerAID:       &playerA,
				PlayerBID:       pairing.PlayerB,
			}
			if pairing.PlayerB == nil {
				m.WinnerID = &playerA
			}
			if err := s.matchRepo.Create(ctx, exec, m); err != nil {
				if errors.Is(err, repositories.ErrMatchSlotConflict) {
					return ErrConcurrencyConflict
				}
				return err
			}
			roundOne = append(roundOne, m)
		}

		for _, m := range roundOne {
			if !m.Decided() {
				continue
			}
			byes++
			if err := s.advance(ctx, exec, m, len(roundOne)); err != nil {
				return fmt.Errorf("failed to advance bye of match %d: %w", m.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if skipped != "" {
		s.metrics.BracketSkipped(skipped)
		s.logger.DebugContext(ctx, "round one not generated",
			slog.Int("tournament_id", tournamentID),
			slog.String("reason", skipped),
		)
		return false, nil
	}

	for i := 0; i < byes; i++ {
		s.metrics.ByeResolved()
	}
	s.metrics.BracketGenerated()
	s.logger.InfoContext(ctx, "round one bracket generated",
		slog.Int("tournament_id", tournamentID),
		slog.Bool("ignore_deadline", ignoreDeadline),
	)

	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		s.logger.WarnContext(ctx, "bracket generated but reload for notification failed",
			slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return true, nil
	}
	s.notifier.BracketGenerated(ctx, tournamentID, matches)
	return true, nil
}

func (s *bracketService) GenerateNow(ctx context.Context, tournamentID, userID int) (bool, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return false, mapTournamentRepoError(err)
	}
	if tournament.OrganizerID != userID {
		return false, ErrForbiddenOperation
	}
	return s.EnsureRoundOneBracket(ctx, tournamentID, true)
}

func (s *bracketService) AdvanceWinner(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	if match == nil || !match.Decided() {
		return nil
	}
	firstRound, err := s.matchRepo.CountByRound(ctx, exec, match.TournamentID, 1)
	if err != nil {
		return err
	}
	return s.advance(ctx, exec, match, firstRound)
}

// advance moves the winner of match into its next-round slot. When the
// receiving match can never get a second player it is decided on the spot
// and its winner moves on as well.
func (s *bracketService) advance(ctx context.Context, exec repositories.SQLExecutor, match *models.Match, firstRound int) error {
	if !match.Decided() {
		return nil
	}
	if firstRound < 1 {
		return fmt.Errorf("tournament %d has no round one", match.TournamentID)
	}
	if brackets.IsFinalRound(firstRound, match.RoundNumber) {
		return nil
	}

	dest := brackets.NextSlot(match.RoundNumber, match.BracketPosition)
	next, err := s.matchRepo.GetOrCreate(ctx, exec, match.TournamentID, dest.Round, dest.Position)
	if err != nil {
		return err
	}

	filled, err := s.matchRepo.FillSlot(ctx, exec, next.ID, dest.Slot, *match.WinnerID)
	if err != nil {
		return err
	}
	if !filled {
		return nil
	}
	winner := *match.WinnerID
	if dest.Slot == brackets.SlotA {
		next.PlayerAID = &winner
	} else {
		next.PlayerBID = &winner
	}
	s.metrics.WinnerAdvanced()
	s.logger.DebugContext(ctx, "winner advanced",
		slog.Int("tournament_id", match.TournamentID),
		slog.Int("match_id", match.ID),
		slog.Int("next_match_id", next.ID),
		slog.String("slot", dest.Slot.String()),
	)

	if brackets.HasSecondFeeder(firstRound, dest.Round, dest.Position) || next.Decided() || next.PlayerAID == nil {
		return nil
	}

	set, err := s.matchRepo.SetWinner(ctx, exec, next.ID, *next.PlayerAID)
	if err != nil {
		return err
	}
	if !set {
		return nil
	}
	byeWinner := *next.PlayerAID
	next.WinnerID = &byeWinner
	s.metrics.ByeResolved()
	return s.advance(ctx, exec, next, firstRound)
}

func (s *bracketService) Champion(ctx context.Context, tournamentID int) (*models.Participant, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	firstRound, err := s.matchRepo.CountByRound(ctx, nil, tournamentID, 1)
	if err != nil {
		return nil, err
	}
	if firstRound == 0 {
		return nil, nil
	}
	// The final has not been created while the highest round is short of it.
	maxRound, err := s.matchRepo.MaxRound(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	if maxRound != brackets.TotalRounds(firstRound) {
		return nil, nil
	}

	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID)
	if err != nil {
		return nil, err
	}
	winnerID, ok := brackets.ChampionID(matches)
	if !ok {
		return nil, nil
	}
	p, err := s.participantRepo.GetByID(ctx, nil, winnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load champion %d: %w", winnerID, err)
	}
	return p, nil
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	if _, err := s.EnsureRoundOneBracket(ctx, tournamentID, false); err != nil {
		return nil, err
	}

	view := &BracketView{}
	var matches []*models.Match

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gctx, tournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		view.Tournament = t
		return nil
	})
	g.Go(func() error {
		participants, err := s.participantRepo.ListRanked(gctx, nil, tournamentID)
		view.Participants = participants
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = s.matchRepo.ListByTournament(gctx, nil, tournamentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	firstRound := 0
	for _, m := range matches {
		if m.RoundNumber == 1 {
			firstRound++
		}
	}
	view.TotalRounds = brackets.TotalRounds(firstRound)
	view.Rounds = groupRounds(matches, view.TotalRounds)

	if winnerID, ok := brackets.ChampionID(matches); ok {
		for _, p := range view.Participants {
			if p.ID == winnerID {
				view.Champion = p
				break
			}
		}
	}
	return view, nil
}

// groupRounds buckets matches, already ordered by round and position, into
// one entry per round of the bracket including rounds not created yet.
func groupRounds(matches []*models.Match, totalRounds int) []RoundView {
	rounds := make([]RoundView, totalRounds)
	for i := range rounds {
		rounds[i] = RoundView{
			Round:   i + 1,
			Label:   brackets.RoundLabel(i+1, totalRounds),
			Matches: []*models.Match{},
		}
	}
	for _, m := range matches {
		if m.RoundNumber >= 1 && m.RoundNumber <= totalRounds {
			rounds[m.RoundNumber-1].Matches = append(rounds[m.RoundNumber-1].Matches, m)
		}
	}
	return rounds
}

func mapTournamentRepoError(err error) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}
