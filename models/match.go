package models

import "time"

// Match is one node of a single-elimination bracket. A nil player slot is
// either a bye or a slot still waiting for the winner of a previous round.
type Match struct {
	ID                      int       `json:"id" db:"id"`
	TournamentID            int       `json:"tournament_id" db:"tournament_id"`
	RoundNumber             int       `json:"round_number" db:"round_number"`
	BracketPosition         int       `json:"bracket_position" db:"bracket_position"`
	PlayerAID               *int      `json:"player_a_id,omitempty" db:"player_a_id"`
	PlayerBID               *int      `json:"player_b_id,omitempty" db:"player_b_id"`
	WinnerID                *int      `json:"winner_id,omitempty" db:"winner_id"`
	PlayerAReportedWinnerID *int      `json:"player_a_reported_winner_id,omitempty" db:"player_a_reported_winner_id"`
	PlayerBReportedWinnerID *int      `json:"player_b_reported_winner_id,omitempty" db:"player_b_reported_winner_id"`
	CreatedAt               time.Time `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}

func (m *Match) Decided() bool {
	return m.WinnerID != nil
}

// IsBye reports whether exactly one player slot is filled.
func (m *Match) IsBye() bool {
	return (m.PlayerAID == nil) != (m.PlayerBID == nil)
}

func (m *Match) HasBothPlayers() bool {
	return m.PlayerAID != nil && m.PlayerBID != nil
}

// OpenMatch is a match waiting for results from the requesting player, as
// shown on their dashboard.
type OpenMatch struct {
	Match
	TournamentName  string `json:"tournament_name"`
	RoundLabel      string `json:"round_label"`
	FirstRoundSize  int    `json:"-"`
	OwnParticipant  int    `json:"participant_id"`
	AlreadyReported bool   `json:"already_reported"`
}
