package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/tournament-brackets/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(e *testEnv, uploader *fakeUploader) UserService {
	if uploader == nil {
		return NewUserService(e.users, e.tournaments, e.match, nil, discardLogger())
	}
	return NewUserService(e.users, e.tournaments, e.match, uploader, discardLogger())
}

func TestGetDashboardListsTournamentsAndOpenMatches(t *testing.T) {
	ctx := context.Background()
	e, s := generatedTournament(t, 4)
	player := s.players[0]
	userID := s.userOf[player.ID]

	// A second entry that starts before the seeded tournament.
	key := "tournaments/logo.png"
	earlier := &models.Tournament{
		OrganizerID:     s.organizer.ID,
		Name:            "Winter Qualifier",
		Discipline:      models.DisciplineTennis,
		VenueName:       "Indoor Hall",
		StartAt:         e.now.Add(48 * time.Hour),
		SignupDeadline:  e.now.Add(24 * time.Hour),
		MaxParticipants: 8,
		Status:          models.StatusPublished,
		LogoKey:         &key,
	}
	require.NoError(t, e.tournaments.Create(ctx, earlier))
	_, err := e.participant.RegisterParticipant(ctx, userID, earlier.ID, RegisterParticipantInput{LicenseNumber: "W-1", Ranking: 1})
	require.NoError(t, err)

	svc := newUserService(e, &fakeUploader{})
	dashboard, err := svc.GetDashboard(ctx, userID)
	require.NoError(t, err)

	require.NotNil(t, dashboard.User)
	assert.Equal(t, userID, dashboard.User.ID)

	require.Len(t, dashboard.Tournaments, 2)
	assert.Equal(t, earlier.ID, dashboard.Tournaments[0].ID, "earliest start first")
	assert.Equal(t, s.tournament.ID, dashboard.Tournaments[1].ID)
	require.NotNil(t, dashboard.Tournaments[0].LogoURL)
	assert.Equal(t, "https://cdn.test/tournaments/logo.png", *dashboard.Tournaments[0].LogoURL)

	require.Len(t, dashboard.Matches, 1)
	assert.Equal(t, "Semifinal", dashboard.Matches[0].RoundLabel)
	assert.Equal(t, player.ID, dashboard.Matches[0].OwnParticipant)
}

func TestGetDashboardOfNewcomerIsEmpty(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	newcomer := e.addUser(t, "newcomer")
	svc := newUserService(e, nil)

	dashboard, err := svc.GetDashboard(ctx, newcomer.ID)
	require.NoError(t, err)
	assert.NotNil(t, dashboard.Tournaments)
	assert.Empty(t, dashboard.Tournaments)
	assert.NotNil(t, dashboard.Matches)
	assert.Empty(t, dashboard.Matches)

	_, err = svc.GetDashboard(ctx, 4040)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListRegisteredTournamentsExcludesOrganizedOnes(t *testing.T) {
	ctx := context.Background()
	e, s := generatedTournament(t, 2)
	svc := newUserService(e, nil)

	organized, err := svc.ListRegisteredTournaments(ctx, s.organizer.ID)
	require.NoError(t, err)
	assert.Empty(t, organized)

	entered, err := svc.ListRegisteredTournaments(ctx, s.userOf[s.players[1].ID])
	require.NoError(t, err)
	require.Len(t, entered, 1)
	assert.Equal(t, "Spring Open", entered[0].Name)
}
