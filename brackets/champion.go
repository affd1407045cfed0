package brackets

import "github.com/Dosada05/tournament-brackets/models"

// ChampionID returns the winner of the championship match of a bracket.
// The bracket is decided only when its highest round is the structural final,
// that round holds exactly one match, and that match has a winner.
func ChampionID(matches []*models.Match) (int, bool) {
	firstRound, maxRound := 0, 0
	for _, m := range matches {
		if m.RoundNumber == 1 {
			firstRound++
		}
		if m.RoundNumber > maxRound {
			maxRound = m.RoundNumber
		}
	}
	if firstRound == 0 || maxRound != TotalRounds(firstRound) {
		return 0, false
	}

	var final *models.Match
	for _, m := range matches {
		if m.RoundNumber != maxRound {
			continue
		}
		if final != nil {
			return 0, false
		}
		final = m
	}
	if final == nil || final.WinnerID == nil {
		return 0, false
	}
	return *final.WinnerID, true
}
