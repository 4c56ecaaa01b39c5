package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/keygate-dev/keygate/internal/api"
	"github.com/keygate-dev/keygate/internal/domain"
	"github.com/keygate-dev/keygate/internal/utils"
)

func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.Users()
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	view := make([]api.User, len(users))
	for i, u := range users {
		view[i] = api.NewUser(u)
	}

	utils.WriteJSON(w, http.StatusOK, api.UsersResponse{Success: true, Count: len(view), Users: view})
}

func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	id, ok := userIdParam(w, r)
	if !ok {
		return
	}

	user, err := h.users.User(id)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, api.UserResponse{Success: true, User: api.NewUser(user)})
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIdParam(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(id); err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, api.MessageResponse{Success: true, Message: "User deleted successfully"})
}

func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := userIdParam(w, r)
	if !ok {
		return
	}

	var body api.UpdateRoleRequest
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	user, err := h.users.UpdateRole(id, domain.Role(body.Role))
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, api.UserResponse{Success: true, User: api.NewUser(user)})
}

// userIdParam parses the {id} route parameter. A non-numeric id cannot
// reference any user, so it reports 404 like an unknown one.
func userIdParam(w http.ResponseWriter, r *http.Request) (domain.UserId, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusNotFound, api.ErrorResponse{Success: false, Message: "User not found"})
		return 0, false
	}
	return id, true
}
