package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Dosada05/tournament-brackets/metrics"
	"github.com/Dosada05/tournament-brackets/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	store        *fakeStore
	tx           *fakeTransactor
	users        *fakeUserRepo
	tournaments  *fakeTournamentRepo
	participants *fakeParticipantRepo
	matches      *fakeMatchRepo
	notifier     *recordingNotifier
	metrics      *metrics.Manager

	bracket     *bracketService
	match       *matchService
	participant *participantService

	now time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := newFakeStore()
	e := &testEnv{
		store:        st,
		tx:           &fakeTransactor{store: st},
		users:        &fakeUserRepo{st: st},
		tournaments:  &fakeTournamentRepo{st: st},
		participants: &fakeParticipantRepo{st: st},
		matches:      &fakeMatchRepo{st: st},
		notifier:     &recordingNotifier{},
		metrics:      metrics.NewManager(metrics.WithRegistry(prometheus.NewRegistry())),
		now:          baseTime,
	}
	clock := func() time.Time { return e.now }

	e.bracket = NewBracketService(e.tx, e.tournaments, e.participants, e.matches, e.notifier, e.metrics, discardLogger()).(*bracketService)
	e.bracket.now = clock
	e.match = NewMatchService(e.tx, e.matches, e.participants, e.bracket, e.notifier, e.metrics, discardLogger()).(*matchService)
	e.participant = NewParticipantService(e.tx, e.tournaments, e.participants, e.matches, discardLogger()).(*participantService)
	e.participant.now = clock
	return e
}

func (e *testEnv) addUser(t *testing.T, label string) models.User {
	t.Helper()
	u := &models.User{
		FirstName:    label,
		LastName:     "Player",
		Email:        fmt.Sprintf("%s@example.com", label),
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return *u
}

// addTournament stores a tournament whose signup closes one day after the
// current clock.
func (e *testEnv) addTournament(t *testing.T, organizerID, maxParticipants int) models.Tournament {
	t.Helper()
	tournament := &models.Tournament{
		OrganizerID:     organizerID,
		Name:            "Spring Open",
		Discipline:      models.DisciplineTennis,
		VenueName:       "Central Courts",
		StartAt:         e.now.Add(72 * time.Hour),
		SignupDeadline:  e.now.Add(24 * time.Hour),
		MaxParticipants: maxParticipants,
		Status:          models.StatusPublished,
	}
	require.NoError(t, e.tournaments.Create(context.Background(), tournament))
	return *tournament
}

// seededTournament is a tournament with n entrants registered through the
// participant service. players[i] holds ranking i+1.
type seededTournament struct {
	tournament models.Tournament
	organizer  models.User
	players    []models.Participant
	userOf     map[int]int
}

func (e *testEnv) seed(t *testing.T, n int) seededTournament {
	t.Helper()
	ctx := context.Background()
	organizer := e.addUser(t, fmt.Sprintf("organizer%d", e.store.nextID+1))
	tournament := e.addTournament(t, organizer.ID, 64)

	s := seededTournament{tournament: tournament, organizer: organizer, userOf: map[int]int{}}
	// Register in reverse ranking order so storage order differs from rank order.
	regs := make([]models.Participant, n)
	for rank := n; rank >= 1; rank-- {
		u := e.addUser(t, fmt.Sprintf("t%dp%d", tournament.ID, rank))
		p, err := e.participant.RegisterParticipant(ctx, u.ID, tournament.ID, RegisterParticipantInput{
			LicenseNumber: fmt.Sprintf("LIC-%d-%d", tournament.ID, rank),
			Ranking:       rank,
		})
		require.NoError(t, err)
		regs[rank-1] = *p
		s.userOf[p.ID] = u.ID
	}
	s.players = regs
	return s
}

func (e *testEnv) passDeadline(s seededTournament) {
	e.now = s.tournament.SignupDeadline.Add(time.Minute)
}

func (e *testEnv) matchAt(t *testing.T, tournamentID, round, position int) *models.Match {
	t.Helper()
	all, err := e.matches.ListByTournament(context.Background(), nil, tournamentID)
	require.NoError(t, err)
	for _, m := range all {
		if m.RoundNumber == round && m.BracketPosition == position {
			return m
		}
	}
	return nil
}

func (e *testEnv) roundCount(t *testing.T, tournamentID, round int) int {
	t.Helper()
	n, err := e.matches.CountByRound(context.Background(), nil, tournamentID, round)
	require.NoError(t, err)
	return n
}
