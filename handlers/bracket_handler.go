package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-brackets/middleware"
	"github.com/Dosada05/tournament-brackets/services"
)

type BracketHandler struct {
	bracketService services.BracketService
}

func NewBracketHandler(bs services.BracketService) *BracketHandler {
	return &BracketHandler{bracketService: bs}
}

// Get returns the bracket view. Reading it after the signup deadline
// generates round one if it does not exist yet.
func (h *BracketHandler) Get(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.bracketService.GetBracket(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Generate lets the organizer build round one before the deadline.
func (h *BracketHandler) Generate(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to generate a bracket")
		return
	}

	created, err := h.bracketService.GenerateNow(r.Context(), tournamentID, currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	if err := writeJSON(w, status, jsonResponse{"created": created}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
