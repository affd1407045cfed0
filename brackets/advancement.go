package brackets

import "fmt"

// Slot is one of the two player positions of a match.
type Slot int

const (
	SlotA Slot = iota + 1
	SlotB
)

func (s Slot) String() string {
	switch s {
	case SlotA:
		return "A"
	case SlotB:
		return "B"
	default:
		return fmt.Sprintf("Slot(%d)", int(s))
	}
}

// Destination addresses the slot a match winner moves into.
type Destination struct {
	Round    int
	Position int
	Slot     Slot
}

// NextSlot maps positions 2k-1 and 2k of a round to slots A and B of
// position k in the following round.
func NextSlot(round, position int) Destination {
	d := Destination{
		Round:    round + 1,
		Position: (position + 1) / 2,
		Slot:     SlotB,
	}
	if position%2 == 1 {
		d.Slot = SlotA
	}
	return d
}

// RoundSizes returns the number of matches in every round of a bracket whose
// first round has firstRound matches. The last element is always 1.
func RoundSizes(firstRound int) []int {
	if firstRound < 1 {
		return nil
	}
	sizes := []int{firstRound}
	for n := firstRound; n > 1; {
		n = (n + 1) / 2
		sizes = append(sizes, n)
	}
	return sizes
}

// TotalRounds is the number of rounds including the final.
func TotalRounds(firstRound int) int {
	return len(RoundSizes(firstRound))
}

// RoundSize returns the match count of round, or 0 if the bracket has no
// such round.
func RoundSize(firstRound, round int) int {
	sizes := RoundSizes(firstRound)
	if round < 1 || round > len(sizes) {
		return 0
	}
	return sizes[round-1]
}

// IsFinalRound reports whether round is the championship round.
func IsFinalRound(firstRound, round int) bool {
	return firstRound > 0 && round == TotalRounds(firstRound)
}

// HasSecondFeeder reports whether position in round receives a player for
// slot B. When the previous round has an odd number of matches its last
// winner has no opponent and the fed match is a bye.
func HasSecondFeeder(firstRound, round, position int) bool {
	if round <= 1 {
		return true
	}
	return 2*position <= RoundSize(firstRound, round-1)
}

// RoundLabel names a round for display.
func RoundLabel(round, totalRounds int) string {
	switch totalRounds - round {
	case 0:
		return "Final"
	case 1:
		return "Semifinal"
	case 2:
		return "Quarterfinal"
	default:
		return fmt.Sprintf("Round %d", round)
	}
}
