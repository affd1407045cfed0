package services

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/Dosada05/tournament-brackets/models"
)

const (
	maxMapsInputLength = 2000
	maxStoredURLLength = 500
	maxSponsorLogos    = 20
)

var iframeSrcPattern = regexp.MustCompile(`src=["']([^"']+)["']`)

func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusDraft:     {models.StatusPublished, models.StatusCanceled},
		models.StatusPublished: {models.StatusCanceled},
		models.StatusCanceled:  {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// normalizeMapsURL returns the link to store for raw. A pasted iframe is
// reduced to its src attribute; blank input clears the link.
func normalizeMapsURL(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	text := strings.TrimSpace(*raw)
	if text == "" {
		return nil, nil
	}
	if len(text) > maxMapsInputLength {
		return nil, ErrTournamentInvalidMapsURL
	}
	if m := iframeSrcPattern.FindStringSubmatch(text); m != nil {
		text = html.UnescapeString(strings.TrimSpace(m[1]))
	}
	if !isHTTPURL(text) {
		return nil, ErrTournamentInvalidMapsURL
	}
	return &text, nil
}

// normalizeSponsorLogos trims every entry and drops blank ones.
func normalizeSponsorLogos(logos []string) ([]string, error) {
	if logos == nil {
		return nil, nil
	}
	out := make([]string, 0, len(logos))
	for _, logo := range logos {
		logo = strings.TrimSpace(logo)
		if logo == "" {
			continue
		}
		if !isHTTPURL(logo) {
			return nil, ErrTournamentInvalidSponsorLogo
		}
		out = append(out, logo)
	}
	if len(out) > maxSponsorLogos {
		return nil, ErrTournamentInvalidSponsorLogo
	}
	return out, nil
}

func isHTTPURL(raw string) bool {
	if len(raw) > maxStoredURLLength {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
