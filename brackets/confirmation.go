package brackets

import (
	"errors"

	"github.com/Dosada05/tournament-brackets/models"
)

// Outcome is the protocol state reported back to a submitting player.
type Outcome string

const (
	OutcomeAwaiting  Outcome = "awaiting"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeConflict  Outcome = "conflict"
	OutcomeRejected  Outcome = "rejected"
)

var (
	ErrAlreadyConfirmed    = errors.New("match result already confirmed")
	ErrNotReportable       = errors.New("match has an empty slot and cannot be reported by players")
	ErrMalformedSubmission = errors.New("declared winner must be one of the match players")
)

// CheckReportable rejects matches that are decided or still miss a player.
func CheckReportable(m *models.Match) error {
	if m.Decided() {
		return ErrAlreadyConfirmed
	}
	if !m.HasBothPlayers() {
		return ErrNotReportable
	}
	return nil
}

// SlotOf returns the slot participantID occupies in m.
func SlotOf(m *models.Match, participantID int) (Slot, bool) {
	switch {
	case m.PlayerAID != nil && *m.PlayerAID == participantID:
		return SlotA, true
	case m.PlayerBID != nil && *m.PlayerBID == participantID:
		return SlotB, true
	}
	return 0, false
}

// ApplyReport records the declaration of the player in slot reporter and
// settles the match when both declarations are present. Agreement sets
// WinnerID; disagreement clears both declarations. m is modified in place
// only when no error is returned.
func ApplyReport(m *models.Match, reporter Slot, declaredWinnerID int) (Outcome, error) {
	if err := CheckReportable(m); err != nil {
		return OutcomeRejected, err
	}
	if _, ok := SlotOf(m, declaredWinnerID); !ok {
		return OutcomeRejected, ErrMalformedSubmission
	}

	declared := declaredWinnerID
	switch reporter {
	case SlotA:
		m.PlayerAReportedWinnerID = &declared
	case SlotB:
		m.PlayerBReportedWinnerID = &declared
	default:
		return OutcomeRejected, ErrMalformedSubmission
	}

	a, b := m.PlayerAReportedWinnerID, m.PlayerBReportedWinnerID
	if a == nil || b == nil {
		return OutcomeAwaiting, nil
	}
	if *a != *b {
		m.PlayerAReportedWinnerID = nil
		m.PlayerBReportedWinnerID = nil
		return OutcomeConflict, nil
	}

	winner := *a
	m.WinnerID = &winner
	return OutcomeConfirmed, nil
}
