package handlers

import (
	"net/http"

	"github.com/Dosada05/tournament-brackets/middleware"
	"github.com/Dosada05/tournament-brackets/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(us services.UserService) *UserHandler {
	return &UserHandler{
		userService: us,
	}
}

// Dashboard godoc
// @Summary Current player's dashboard
// @Description Profile, tournaments entered (earliest start first) and matches awaiting a result.
// @Tags users
// @Produce json
// @Success 200 {object} models.PlayerDashboard
// @Failure 401 {object} map[string]interface{}
// @Security BearerAuth
// @Router /me [get]
func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	dashboard, err := h.userService.GetDashboard(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, dashboard, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *UserHandler) MyTournaments(w http.ResponseWriter, r *http.Request) {
	currentUserID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	tournaments, err := h.userService.ListRegisteredTournaments(r.Context(), currentUserID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"tournaments": tournaments,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
