package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-brackets/brackets"
	"github.com/Dosada05/tournament-brackets/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "the requested resource could not be found"
	errorResponse(w, r, http.StatusNotFound, message)
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

// errorStatus picks the HTTP status for a service error. Zero means the
// error is unexpected and must be reported as a server error.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrParticipantNotFound),
		errors.Is(err, services.ErrMatchNotFound):
		return http.StatusNotFound

	case errors.Is(err, services.ErrUserEmailConflict),
		errors.Is(err, services.ErrRegistrationConflict),
		errors.Is(err, services.ErrLicenseNumberTaken),
		errors.Is(err, services.ErrRankingTaken),
		errors.Is(err, services.ErrTournamentFull),
		errors.Is(err, services.ErrRegistryFrozen),
		errors.Is(err, services.ErrTournamentBracketLocked),
		errors.Is(err, services.ErrTournamentCapacityBelowCount),
		errors.Is(err, services.ErrConcurrencyConflict),
		errors.Is(err, brackets.ErrAlreadyConfirmed),
		errors.Is(err, brackets.ErrNotReportable):
		return http.StatusConflict

	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrTournamentInvalidDiscipline),
		errors.Is(err, services.ErrTournamentVenueRequired),
		errors.Is(err, services.ErrTournamentInvalidStart),
		errors.Is(err, services.ErrTournamentInvalidRegDate),
		errors.Is(err, services.ErrTournamentInvalidCapacity),
		errors.Is(err, services.ErrTournamentInvalidStatus),
		errors.Is(err, services.ErrTournamentInvalidLocation),
		errors.Is(err, services.ErrTournamentInvalidMapsURL),
		errors.Is(err, services.ErrTournamentInvalidSponsorLogo),
		errors.Is(err, services.ErrLicenseNumberInvalid),
		errors.Is(err, services.ErrRankingInvalid),
		errors.Is(err, services.ErrRegistrationClosed),
		errors.Is(err, services.ErrInvalidLogoType),
		errors.Is(err, brackets.ErrMalformedSubmission):
		return http.StatusBadRequest

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrAuthenticationFailed):
		return http.StatusUnauthorized

	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrAccountNotActive),
		errors.Is(err, services.ErrOrganizerCannotSignUp),
		errors.Is(err, services.ErrNotMatchParticipant):
		return http.StatusForbidden

	case errors.Is(err, services.ErrUploadsDisabled):
		return http.StatusServiceUnavailable
	}
	return 0
}

func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	switch status {
	case 0:
		serverErrorResponse(w, r, err)
	case http.StatusNotFound:
		notFoundResponse(w, r)
	default:
		errorResponse(w, r, status, err.Error())
	}
}

func getIDFromURL(r *http.Request, paramName string) (int, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s in URL path", paramName)
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %q", paramName, idStr)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid %s value: %d", paramName, id)
	}

	return id, nil
}
