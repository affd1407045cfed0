package models

import "time"

type ParticipantStatus string

const (
	ParticipantRegistered ParticipantStatus = "registered"
)

// Participant is an entrant of exactly one tournament. LicenseNumber and
// Ranking are unique within the tournament.
type Participant struct {
	ID            int               `json:"id" db:"id"`
	TournamentID  int               `json:"tournament_id" db:"tournament_id"`
	UserID        int               `json:"user_id" db:"user_id"`
	LicenseNumber string            `json:"license_number" db:"license_number"`
	Ranking       int               `json:"ranking" db:"ranking"`
	Status        ParticipantStatus `json:"status" db:"status"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}
