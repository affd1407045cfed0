package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dosada05/tournament-brackets/middleware"
	"github.com/Dosada05/tournament-brackets/services"
)

const maxLogoUploadBytes = 5 << 20

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: ts}
}

// Create handles POST /tournaments. Any authenticated user can organize.
func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to create tournament")
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List handles GET /tournaments?q=&page=&organizer_id=&include_past=.
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	params := services.ListTournamentsParams{Query: query.Get("q")}

	if pageStr := query.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			badRequestResponse(w, r, errors.New("invalid page query parameter"))
			return
		}
		params.Page = page
	}
	if organizerIDStr := query.Get("organizer_id"); organizerIDStr != "" {
		id, err := strconv.Atoi(organizerIDStr)
		if err != nil || id <= 0 {
			badRequestResponse(w, r, errors.New("invalid organizer_id query parameter"))
			return
		}
		params.OrganizerID = &id
	}
	if pastStr := query.Get("include_past"); pastStr != "" {
		past, err := strconv.ParseBool(pastStr)
		if err != nil {
			badRequestResponse(w, r, errors.New("invalid include_past query parameter"))
			return
		}
		params.IncludePast = past
	}

	page, err := h.tournamentService.List(r.Context(), params)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, page, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to update tournament")
		return
	}

	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Update(r.Context(), id, currentUserID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to delete tournament")
		return
	}

	if err := h.tournamentService.Delete(r.Context(), id, currentUserID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadLogo handles POST /tournaments/{tournamentID}/logo with a multipart
// "logo" file field.
func (h *TournamentHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required for logo upload")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLogoUploadBytes)
	if err := r.ParseMultipartForm(maxLogoUploadBytes); err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, fmt.Errorf("failed to get logo file from form: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		badRequestResponse(w, r, errors.New("content-type header is required for logo"))
		return
	}

	tournament, err := h.tournamentService.UploadLogo(r.Context(), id, currentUserID, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
