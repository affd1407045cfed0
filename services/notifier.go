package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-brackets/brackets"
	"github.com/Dosada05/tournament-brackets/models"
	"github.com/Dosada05/tournament-brackets/repositories"
)

const (
	MessageBracketGenerated = "BRACKET_GENERATED"
	MessageMatchUpdated     = "MATCH_UPDATED"
)

// Notifier receives engine events after their transaction committed.
// Implementations must not fail the caller.
type Notifier interface {
	BracketGenerated(ctx context.Context, tournamentID int, matches []*models.Match)
	MatchUpdated(ctx context.Context, match *models.Match, outcome brackets.Outcome)
}

type nopNotifier struct{}

func (nopNotifier) BracketGenerated(context.Context, int, []*models.Match) {}
func (nopNotifier) MatchUpdated(context.Context, *models.Match, brackets.Outcome) {}

// MultiNotifier fans every event out to each notifier in order.
type MultiNotifier []Notifier

func (mn MultiNotifier) BracketGenerated(ctx context.Context, tournamentID int, matches []*models.Match) {
	for _, n := range mn {
		n.BracketGenerated(ctx, tournamentID, matches)
	}
}

func (mn MultiNotifier) MatchUpdated(ctx context.Context, match *models.Match, outcome brackets.Outcome) {
	for _, n := range mn {
		n.MatchUpdated(ctx, match, outcome)
	}
}

// HubNotifier pushes events to the tournament's websocket room.
type HubNotifier struct {
	hub *brackets.Hub
}

func NewHubNotifier(hub *brackets.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

type MatchUpdatedPayload struct {
	Match   *models.Match    `json:"match"`
	Outcome brackets.Outcome `json:"outcome"`
}

func (n *HubNotifier) BracketGenerated(_ context.Context, tournamentID int, matches []*models.Match) {
	n.hub.Publish(tournamentID, MessageBracketGenerated, matches)
}

func (n *HubNotifier) MatchUpdated(_ context.Context, match *models.Match, outcome brackets.Outcome) {
	n.hub.Publish(match.TournamentID, MessageMatchUpdated, MatchUpdatedPayload{Match: match, Outcome: outcome})
}

// MailNotifier emails both players when their match is confirmed or the
// reports conflict. Mail goes out on a background goroutine.
type MailNotifier struct {
	mailer          Mailer
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	userRepo        repositories.UserRepository
	publicURL       string
	logger          *slog.Logger
}

func NewMailNotifier(
	mailer Mailer,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	publicURL string,
	logger *slog.Logger,
) *MailNotifier {
	return &MailNotifier{
		mailer:          mailer,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		userRepo:        userRepo,
		publicURL:       publicURL,
		logger:          logger,
	}
}

func (n *MailNotifier) BracketGenerated(context.Context, int, []*models.Match) {}

func (n *MailNotifier) MatchUpdated(ctx context.Context, match *models.Match, outcome brackets.Outcome) {
	if outcome != brackets.OutcomeConfirmed && outcome != brackets.OutcomeConflict {
		return
	}
	m := *match
	go func() {
		if err := n.sendResult(context.WithoutCancel(ctx), &m, outcome); err != nil {
			n.logger.Warn("match result email not sent",
				slog.Int("match_id", m.ID),
				slog.String("outcome", string(outcome)),
				slog.Any("error", err),
			)
		}
	}()
}

func (n *MailNotifier) sendResult(ctx context.Context, match *models.Match, outcome brackets.Outcome) error {
	if !match.HasBothPlayers() {
		return nil
	}
	tournament, err := n.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return err
	}
	firstRound, err := n.matchRepo.CountByRound(ctx, nil, match.TournamentID, 1)
	if err != nil {
		return err
	}

	data := MatchResultEmail{
		TournamentName: tournament.Name,
		RoundLabel:     brackets.RoundLabel(match.RoundNumber, brackets.TotalRounds(firstRound)),
		Confirmed:      outcome == brackets.OutcomeConfirmed,
		MatchLink:      fmt.Sprintf("%s/tournaments/%d/bracket", n.publicURL, tournament.ID),
	}

	var recipients []string
	for _, pid := range []int{*match.PlayerAID, *match.PlayerBID} {
		p, err := n.participantRepo.GetByID(ctx, nil, pid)
		if err != nil {
			return err
		}
		u, err := n.userRepo.GetByID(ctx, p.UserID)
		if err != nil {
			return err
		}
		if match.WinnerID != nil && *match.WinnerID == pid {
			data.WinnerName = u.FirstName + " " + u.LastName
		}
		recipients = append(recipients, u.Email)
	}

	for _, to := range recipients {
		if err := n.mailer.SendMatchResultEmail(ctx, to, data); err != nil {
			return fmt.Errorf("send to %s: %w", to, err)
		}
	}
	return nil
}
