package models

// PlayerDashboard is a signed-in player's overview: the tournaments they
// entered and the matches waiting on them.
type PlayerDashboard struct {
	User        *User        `json:"user"`
	Tournaments []Tournament `json:"tournaments"`
	Matches     []OpenMatch  `json:"matches"`
}
