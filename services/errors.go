package services

import "errors"

// Service-level errors shared by the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	ErrValidationFailed   = errors.New("validation failed")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters long")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountNotActive   = errors.New("account email address is not confirmed yet")
	ErrInvalidToken       = errors.New("invalid or expired token")

	ErrUserEmailConflict = errors.New("email address is already in use")

	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	ErrUserNotFound        = errors.New("user not found")
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrParticipantNotFound = errors.New("participant registration not found")
	ErrMatchNotFound       = errors.New("match not found")

	ErrTournamentNameRequired       = errors.New("tournament name is required and must be at most 255 characters")
	ErrTournamentInvalidDiscipline  = errors.New("tournament discipline must be one of tennis, chess, football, paddle")
	ErrTournamentVenueRequired      = errors.New("tournament venue is required")
	ErrTournamentInvalidStart       = errors.New("tournament start must be in the future")
	ErrTournamentInvalidRegDate     = errors.New("signup deadline must be in the future and before the tournament start")
	ErrTournamentInvalidCapacity    = errors.New("tournament max participants must be at least 2")
	ErrTournamentInvalidStatus      = errors.New("invalid tournament status provided")
	ErrTournamentBracketLocked      = errors.New("tournament schedule cannot change once the bracket exists")
	ErrTournamentCapacityBelowCount = errors.New("max participants cannot be lower than the current number of participants")
	ErrTournamentInvalidLocation    = errors.New("tournament location needs both latitude (-90..90) and longitude (-180..180)")
	ErrTournamentInvalidMapsURL     = errors.New("google maps link must be an http(s) URL or an embed iframe")
	ErrTournamentInvalidSponsorLogo = errors.New("sponsor logos must be http(s) URLs")

	ErrLicenseNumberInvalid  = errors.New("license number is required and must be at most 50 characters")
	ErrRankingInvalid        = errors.New("ranking must be a positive integer")
	ErrRegistrationClosed    = errors.New("tournament signup deadline has passed")
	ErrRegistryFrozen        = errors.New("bracket already generated, registrations are closed")
	ErrTournamentFull        = errors.New("tournament registration is full")
	ErrOrganizerCannotSignUp = errors.New("organizer cannot register for their own tournament")
	ErrRegistrationConflict  = errors.New("user is already registered for this tournament")
	ErrLicenseNumberTaken    = errors.New("license number already registered for this tournament")
	ErrRankingTaken          = errors.New("ranking already taken in this tournament")

	// ErrConcurrencyConflict reports a lost race on a unique constraint. The
	// transaction was rolled back and the request can be retried.
	ErrConcurrencyConflict = errors.New("concurrent update detected, try again")

	ErrNotMatchParticipant = errors.New("only the two players of a match can report its result")

	ErrUploadsDisabled = errors.New("file uploads are not configured")
	ErrInvalidLogoType = errors.New("logo must be a jpeg, png, gif or webp image")
)
