package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/tournament-brackets/models"
	"github.com/Dosada05/tournament-brackets/repositories"
	"github.com/Dosada05/tournament-brackets/storage"
	"github.com/google/uuid"
)

const maxTournamentNameLength = 255

// CreateTournamentInput is the organizer's form. GoogleMapsURL accepts a
// plain link or a pasted embed iframe.
type CreateTournamentInput struct {
	Name            string            `json:"name"`
	Discipline      models.Discipline `json:"discipline"`
	Description     *string           `json:"description"`
	VenueName       string            `json:"venue_name"`
	LocationLat     *float64          `json:"location_lat"`
	LocationLng     *float64          `json:"location_lng"`
	GoogleMapsURL   *string           `json:"google_maps_url"`
	SponsorLogos    []string          `json:"sponsor_logos"`
	StartAt         time.Time         `json:"start_at"`
	SignupDeadline  time.Time         `json:"signup_deadline"`
	MaxParticipants int               `json:"max_participants"`
}

type UpdateTournamentInput struct {
	Name            *string                  `json:"name"`
	Discipline      *models.Discipline       `json:"discipline"`
	Description     *string                  `json:"description"`
	VenueName       *string                  `json:"venue_name"`
	LocationLat     *float64                 `json:"location_lat"`
	LocationLng     *float64                 `json:"location_lng"`
	GoogleMapsURL   *string                  `json:"google_maps_url"`
	SponsorLogos    *[]string                `json:"sponsor_logos"`
	StartAt         *time.Time               `json:"start_at"`
	SignupDeadline  *time.Time               `json:"signup_deadline"`
	MaxParticipants *int                     `json:"max_participants"`
	Status          *models.TournamentStatus `json:"status"`
}

type ListTournamentsParams struct {
	Query       string
	Page        int
	OrganizerID *int
	// IncludePast lists tournaments that already started as well.
	IncludePast bool
}

type TournamentPage struct {
	Tournaments []models.Tournament `json:"tournaments"`
	Total       int                 `json:"total"`
	Page        int                 `json:"page"`
	PerPage     int                 `json:"per_page"`
	TotalPages  int                 `json:"total_pages"`
}

type TournamentService interface {
	Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	// GetByID loads a tournament, generating its bracket first if the signup
	// deadline has passed.
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, params ListTournamentsParams) (*TournamentPage, error)
	Update(ctx context.Context, id, userID int, input UpdateTournamentInput) (*models.Tournament, error)
	Delete(ctx context.Context, id, userID int) error
	UploadLogo(ctx context.Context, id, userID int, file io.Reader, contentType string) (*models.Tournament, error)
}

type tournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	bracketService  BracketService
	uploader        storage.FileUploader
	perPage         int
	logger          *slog.Logger
	now             func() time.Time
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	bracketService BracketService,
	uploader storage.FileUploader,
	perPage int,
	logger *slog.Logger,
) TournamentService {
	if perPage <= 0 {
		perPage = 10
	}
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		bracketService:  bracketService,
		uploader:        uploader,
		perPage:         perPage,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *tournamentService) Create(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	t := &models.Tournament{
		OrganizerID:     organizerID,
		Name:            strings.TrimSpace(input.Name),
		Discipline:      input.Discipline,
		Description:     trimOptional(input.Description),
		VenueName:       strings.TrimSpace(input.VenueName),
		LocationLat:     input.LocationLat,
		LocationLng:     input.LocationLng,
		GoogleMapsURL:   input.GoogleMapsURL,
		SponsorLogos:    input.SponsorLogos,
		StartAt:         input.StartAt,
		SignupDeadline:  input.SignupDeadline,
		MaxParticipants: input.MaxParticipants,
		Status:          models.StatusDraft,
	}
	if err := validateTournament(t); err != nil {
		return nil, err
	}
	if err := validateSchedule(t.StartAt, t.SignupDeadline, s.now()); err != nil {
		return nil, err
	}

	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentInvalidOrg) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	s.logger.InfoContext(ctx, "tournament created", slog.Int("tournament_id", t.ID), slog.Int("organizer_id", organizerID))
	return t, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if t.SignupClosed(s.now()) && t.Status != models.StatusCanceled {
		if _, err := s.bracketService.EnsureRoundOneBracket(ctx, id, false); err != nil {
			s.logger.WarnContext(ctx, "automatic bracket generation failed", slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	s.populateLogoURL(t)
	return t, nil
}

func (s *tournamentService) List(ctx context.Context, params ListTournamentsParams) (*TournamentPage, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	filter := repositories.ListTournamentsFilter{
		Search:      strings.TrimSpace(params.Query),
		OrganizerID: params.OrganizerID,
		Limit:       s.perPage,
		Offset:      (page - 1) * s.perPage,
	}
	if !params.IncludePast {
		now := s.now()
		filter.UpcomingAt = &now
	}

	tournaments, total, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateLogoURL(&tournaments[i])
	}

	return &TournamentPage{
		Tournaments: tournaments,
		Total:       total,
		Page:        page,
		PerPage:     s.perPage,
		TotalPages:  (total + s.perPage - 1) / s.perPage,
	}, nil
}

func (s *tournamentService) Update(ctx context.Context, id, userID int, input UpdateTournamentInput) (*models.Tournament, error) {
	t, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	scheduleChanged := input.StartAt != nil || input.SignupDeadline != nil || input.MaxParticipants != nil
	if scheduleChanged {
		generated, err := s.matchRepo.CountByRound(ctx, nil, id, 1)
		if err != nil {
			return nil, err
		}
		if generated > 0 {
			return nil, ErrTournamentBracketLocked
		}
	}

	if input.Name != nil {
		t.Name = strings.TrimSpace(*input.Name)
	}
	if input.Discipline != nil {
		t.Discipline = *input.Discipline
	}
	if input.Description != nil {
		t.Description = trimOptional(input.Description)
	}
	if input.VenueName != nil {
		t.VenueName = strings.TrimSpace(*input.VenueName)
	}
	if input.LocationLat != nil {
		t.LocationLat = input.LocationLat
	}
	if input.LocationLng != nil {
		t.LocationLng = input.LocationLng
	}
	if input.GoogleMapsURL != nil {
		t.GoogleMapsURL = input.GoogleMapsURL
	}
	if input.SponsorLogos != nil {
		t.SponsorLogos = *input.SponsorLogos
	}
	if input.StartAt != nil {
		t.StartAt = *input.StartAt
	}
	if input.SignupDeadline != nil {
		t.SignupDeadline = *input.SignupDeadline
	}
	if input.MaxParticipants != nil {
		t.MaxParticipants = *input.MaxParticipants
	}
	if input.Status != nil {
		if !input.Status.Valid() || !isValidStatusTransition(t.Status, *input.Status) {
			return nil, ErrTournamentInvalidStatus
		}
		t.Status = *input.Status
	}

	if err := validateTournament(t); err != nil {
		return nil, err
	}
	if input.StartAt != nil || input.SignupDeadline != nil {
		if err := validateSchedule(t.StartAt, t.SignupDeadline, s.now()); err != nil {
			return nil, err
		}
	}
	if input.MaxParticipants != nil {
		count, err := s.participantRepo.CountByTournament(ctx, nil, id)
		if err != nil {
			return nil, err
		}
		if t.MaxParticipants < count {
			return nil, ErrTournamentCapacityBelowCount
		}
	}

	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, mapTournamentRepoError(err)
	}
	s.populateLogoURL(t)
	return t, nil
}

func (s *tournamentService) Delete(ctx context.Context, id, userID int) error {
	t, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return mapTournamentRepoError(err)
	}
	if t.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *t.LogoKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete tournament logo", slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.Int("tournament_id", id))
	return nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, id, userID int, file io.Reader, contentType string) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	t, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	ext, err := logoExtension(contentType)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("tournaments/%d/logo-%s%s", id, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, file); err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}
	if err := s.tournamentRepo.UpdateLogoKey(ctx, id, &key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "failed to clean up orphaned logo", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, mapTournamentRepoError(err)
	}

	if t.LogoKey != nil && *t.LogoKey != key {
		if err := s.uploader.Delete(ctx, *t.LogoKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous logo", slog.String("key", *t.LogoKey), slog.Any("error", err))
		}
	}
	t.LogoKey = &key
	s.populateLogoURL(t)
	return t, nil
}

func (s *tournamentService) getOwned(ctx context.Context, id, userID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if t.OrganizerID != userID {
		return nil, ErrForbiddenOperation
	}
	return t, nil
}

func (s *tournamentService) populateLogoURL(t *models.Tournament) {
	fillLogoURL(s.uploader, t)
}

func fillLogoURL(uploader storage.FileUploader, t *models.Tournament) {
	if t == nil || t.LogoKey == nil || *t.LogoKey == "" || uploader == nil {
		return
	}
	if url := uploader.GetPublicURL(*t.LogoKey); url != "" {
		t.LogoURL = &url
	}
}

// validateTournament checks t and normalizes its maps link and sponsor
// logos in place.
func validateTournament(t *models.Tournament) error {
	if t.Name == "" || utf8.RuneCountInString(t.Name) > maxTournamentNameLength {
		return ErrTournamentNameRequired
	}
	if !t.Discipline.Valid() {
		return ErrTournamentInvalidDiscipline
	}
	if t.VenueName == "" {
		return ErrTournamentVenueRequired
	}
	if t.MaxParticipants < 2 {
		return ErrTournamentInvalidCapacity
	}

	if (t.LocationLat == nil) != (t.LocationLng == nil) {
		return ErrTournamentInvalidLocation
	}
	if t.LocationLat != nil && (math.Abs(*t.LocationLat) > 90 || math.Abs(*t.LocationLng) > 180) {
		return ErrTournamentInvalidLocation
	}

	mapsURL, err := normalizeMapsURL(t.GoogleMapsURL)
	if err != nil {
		return err
	}
	t.GoogleMapsURL = mapsURL

	logos, err := normalizeSponsorLogos(t.SponsorLogos)
	if err != nil {
		return err
	}
	t.SponsorLogos = logos
	return nil
}

func validateSchedule(start, deadline, now time.Time) error {
	if start.IsZero() || !start.After(now) {
		return ErrTournamentInvalidStart
	}
	if deadline.IsZero() || !deadline.After(now) || !deadline.Before(start) {
		return ErrTournamentInvalidRegDate
	}
	return nil
}

func logoExtension(contentType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg", nil
	case "image/png":
		return ".png", nil
	case "image/gif":
		return ".gif", nil
	case "image/webp":
		return ".webp", nil
	}
	return "", ErrInvalidLogoType
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
