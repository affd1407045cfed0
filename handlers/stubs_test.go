package handlers

import (
	"context"
	"io"

	"github.com/Dosada05/tournament-brackets/models"
	"github.com/Dosada05/tournament-brackets/repositories"
	"github.com/Dosada05/tournament-brackets/services"
)

type stubMatchService struct {
	report func(ctx context.Context, matchID, userID, winnerID int) (services.ReportResult, error)
	get    func(ctx context.Context, matchID int) (*models.Match, error)
	open   func(ctx context.Context, userID int) ([]models.OpenMatch, error)
}

func (s *stubMatchService) ReportMatchResult(ctx context.Context, matchID, userID, winnerID int) (services.ReportResult, error) {
	return s.report(ctx, matchID, userID, winnerID)
}

func (s *stubMatchService) GetMatch(ctx context.Context, matchID int) (*models.Match, error) {
	return s.get(ctx, matchID)
}

func (s *stubMatchService) ListOpenMatchesForUser(ctx context.Context, userID int) ([]models.OpenMatch, error) {
	return s.open(ctx, userID)
}

type stubParticipantService struct {
	register func(ctx context.Context, userID, tournamentID int, in services.RegisterParticipantInput) (*models.Participant, error)
	list     func(ctx context.Context, tournamentID int) ([]*models.Participant, error)
}

func (s *stubParticipantService) RegisterParticipant(ctx context.Context, userID, tournamentID int, in services.RegisterParticipantInput) (*models.Participant, error) {
	return s.register(ctx, userID, tournamentID, in)
}

func (s *stubParticipantService) ListParticipants(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	return s.list(ctx, tournamentID)
}

type stubBracketService struct {
	generate func(ctx context.Context, tournamentID, userID int) (bool, error)
	view     func(ctx context.Context, tournamentID int) (*services.BracketView, error)
}

func (s *stubBracketService) EnsureRoundOneBracket(context.Context, int, bool) (bool, error) {
	panic("not used by handlers")
}

func (s *stubBracketService) GenerateNow(ctx context.Context, tournamentID, userID int) (bool, error) {
	return s.generate(ctx, tournamentID, userID)
}

func (s *stubBracketService) AdvanceWinner(context.Context, repositories.SQLExecutor, *models.Match) error {
	panic("not used by handlers")
}

func (s *stubBracketService) Champion(context.Context, int) (*models.Participant, error) {
	panic("not used by handlers")
}

func (s *stubBracketService) GetBracket(ctx context.Context, tournamentID int) (*services.BracketView, error) {
	return s.view(ctx, tournamentID)
}

type stubTournamentService struct {
	services.TournamentService
	list   func(ctx context.Context, params services.ListTournamentsParams) (*services.TournamentPage, error)
	upload func(ctx context.Context, id, userID int, file io.Reader, contentType string) (*models.Tournament, error)
	del    func(ctx context.Context, id, userID int) error
}

func (s *stubTournamentService) List(ctx context.Context, params services.ListTournamentsParams) (*services.TournamentPage, error) {
	return s.list(ctx, params)
}

func (s *stubTournamentService) UploadLogo(ctx context.Context, id, userID int, file io.Reader, contentType string) (*models.Tournament, error) {
	return s.upload(ctx, id, userID, file, contentType)
}

func (s *stubTournamentService) Delete(ctx context.Context, id, userID int) error {
	return s.del(ctx, id, userID)
}

type stubAuthService struct {
	services.AuthService
	login func(ctx context.Context, in services.LoginInput) (*models.User, string, error)
	reset func(ctx context.Context, email string) error
}

func (s *stubAuthService) Login(ctx context.Context, in services.LoginInput) (*models.User, string, error) {
	return s.login(ctx, in)
}

func (s *stubAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.reset(ctx, email)
}

type stubUserService struct {
	services.UserService
	dashboard   func(ctx context.Context, userID int) (*models.PlayerDashboard, error)
	tournaments func(ctx context.Context, userID int) ([]models.Tournament, error)
}

func (s *stubUserService) GetDashboard(ctx context.Context, userID int) (*models.PlayerDashboard, error) {
	return s.dashboard(ctx, userID)
}

func (s *stubUserService) ListRegisteredTournaments(ctx context.Context, userID int) ([]models.Tournament, error) {
	return s.tournaments(ctx, userID)
}
