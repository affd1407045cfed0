package models

import "time"

type TournamentStatus string

const (
	StatusDraft     TournamentStatus = "draft"
	StatusPublished TournamentStatus = "published"
	StatusCanceled  TournamentStatus = "canceled"
)

func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCanceled:
		return true
	}
	return false
}

type Discipline string

const (
	DisciplineTennis   Discipline = "tennis"
	DisciplineChess    Discipline = "chess"
	DisciplineFootball Discipline = "football"
	DisciplinePaddle   Discipline = "paddle"
)

func (d Discipline) Valid() bool {
	switch d {
	case DisciplineTennis, DisciplineChess, DisciplineFootball, DisciplinePaddle:
		return true
	}
	return false
}

type Tournament struct {
	ID              int              `json:"id" db:"id"`
	OrganizerID     int              `json:"organizer_id" db:"organizer_id"`
	Name            string           `json:"name" db:"name"`
	Discipline      Discipline       `json:"discipline" db:"discipline"`
	Description     *string          `json:"description,omitempty" db:"description"`
	VenueName       string           `json:"venue_name" db:"venue_name"`
	LocationLat     *float64         `json:"location_lat,omitempty" db:"location_lat"`
	LocationLng     *float64         `json:"location_lng,omitempty" db:"location_lng"`
	GoogleMapsURL   *string          `json:"google_maps_url,omitempty" db:"google_maps_url"`
	SponsorLogos    []string         `json:"sponsor_logos,omitempty" db:"sponsor_logos"`
	StartAt         time.Time        `json:"start_at" db:"start_at"`
	SignupDeadline  time.Time        `json:"signup_deadline" db:"signup_deadline"`
	MaxParticipants int              `json:"max_participants" db:"max_participants"`
	Status          TournamentStatus `json:"status" db:"status"`
	LogoKey         *string          `json:"-" db:"logo_key"`
	LogoURL         *string          `json:"logo_url,omitempty" db:"-"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// SignupClosed reports whether the signup deadline has passed at now.
func (t *Tournament) SignupClosed(now time.Time) bool {
	return !now.Before(t.SignupDeadline)
}
