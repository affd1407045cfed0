package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-brackets/middleware"
	"github.com/Dosada05/tournament-brackets/services"
)

type ParticipantHandler struct {
	participantService services.ParticipantService
}

func NewParticipantHandler(ps services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: ps}
}

// Register godoc
// @Summary Sign up for a tournament
// @Tags participants
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param body body services.RegisterParticipantInput true "License number and ranking"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Invalid input or signup closed"
// @Failure 403 {object} map[string]string "Organizer of the tournament"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "Full, frozen, or duplicate license, ranking or user"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/participants [post]
func (h *ParticipantHandler) Register(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.RegisterParticipantInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participant, err := h.participantService.RegisterParticipant(r.Context(), currentUserID, tournamentID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// List godoc
// @Summary Ranked participants of a tournament
// @Tags participants
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /tournaments/{tournamentID}/participants [get]
func (h *ParticipantHandler) List(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.participantService.ListParticipants(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
