// Package brackets holds the single-elimination bracket rules: round-1
// seeding, winner advancement geometry, the two-party result confirmation
// protocol, and the websocket hub used to push bracket updates.
package brackets

// Pairing is one round-1 match produced by SeedRoundOne. PlayerB is nil for
// the bye.
type Pairing struct {
	Position int
	PlayerA  int
	PlayerB  *int
}

// SeedRoundOne pairs a ranking-ordered list of participant IDs strongest
// against weakest: position k gets ranked[k-1] and ranked[n-k]. With an odd
// count the middle participant lands alone in the last position.
// Fewer than two participants produce no pairings.
func SeedRoundOne(ranked []int) []Pairing {
	n := len(ranked)
	if n < 2 {
		return nil
	}

	pairings := make([]Pairing, 0, (n+1)/2)
	position := 1
	for lo, hi := 0, n-1; lo <= hi; lo, hi = lo+1, hi-1 {
		p := Pairing{Position: position, PlayerA: ranked[lo]}
		if lo != hi {
			opponent := ranked[hi]
			p.PlayerB = &opponent
		}
		pairings = append(pairings, p)
		position++
	}
	return pairings
}

// RoundOneSize is ceil(n/2).
func RoundOneSize(participants int) int {
	if participants < 2 {
		return 0
	}
	return (participants + 1) / 2
}
