package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-brackets/brackets"
	"github.com/Dosada05/tournament-brackets/middleware"
	"github.com/Dosada05/tournament-brackets/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

type reportMatchRequest struct {
	WinnerID int `json:"winner_id"`
}

func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Report godoc
// @Summary Report the winner of one of your matches
// @Description The winner is set once both players report the same result.
// @Description Different reports clear both declarations.
// @Tags matches
// @Accept json
// @Produce json
// @Param matchID path int true "Match ID"
// @Param body body reportMatchRequest true "Declared winner participant id"
// @Success 200 {object} services.ReportResult "awaiting, confirmed or conflict"
// @Failure 400 {object} map[string]interface{} "Declared winner is not a player of the match"
// @Failure 403 {object} map[string]interface{} "Requester does not play this match"
// @Failure 409 {object} map[string]interface{} "Result already confirmed"
// @Security BearerAuth
// @Router /matches/{matchID}/report [post]
func (h *MatchHandler) Report(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to report a result")
		return
	}

	var input reportMatchRequest
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.matchService.ReportMatchResult(r.Context(), matchID, currentUserID, input.WinnerID)
	if err != nil {
		if result.Status != brackets.OutcomeRejected {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		body := jsonResponse{"status": result.Status, "reason": result.Reason, "error": result.Reason}
		if err := writeJSON(w, errorStatus(err), body, nil); err != nil {
			serverErrorResponse(w, r, err)
		}
		return
	}

	if err := writeJSON(w, http.StatusOK, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// MyMatches handles GET /me/matches: undecided matches of the current user
// that have both players.
func (h *MatchHandler) MyMatches(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	matches, err := h.matchService.ListOpenMatchesForUser(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
