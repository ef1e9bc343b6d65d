package handler

import (
	"errors"
	"fmt"
	"net/http"
	"todo_collab/internal/api/middleware"
	"todo_collab/internal/api/validate"
	"todo_collab/internal/app/service"
	"todo_collab/internal/common"
	"todo_collab/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService     *service.UserService
	securityService *service.SecurityService
	auth            *AuthHandler
}

func NewUserHandler(userService *service.UserService, securityService *service.SecurityService, auth *AuthHandler) *UserHandler {
	return &UserHandler{userService: userService, securityService: securityService, auth: auth}
}

// UserFormView backs the create and update forms. Create leaves User empty.
type UserFormView struct {
	User  *model.User  `json:"user,omitempty"`
	Roles []model.Role `json:"roles"`
}

// ChangePasswordView backs the change-password form.
type ChangePasswordView struct {
	User    *model.User `json:"user"`
	Error   bool        `json:"error"`
	Success bool        `json:"success"`
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/change-password", h.changePasswordForm)
	r.Post("/change-password", h.changePassword)
	r.Get("/{userID}/read", h.getUser)
	r.Get("/{userID}/update", h.updateForm)
	r.Post("/{userID}/update", h.updateUser)
	r.Post("/{userID}/delete", h.deleteUser)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminOnly)
		admin.Get("/create", h.createForm)
		admin.Post("/create", h.createUser)
		admin.Get("/all", h.listUsers)
	})
}

func (h *UserHandler) createForm(w http.ResponseWriter, r *http.Request) {
	// New accounts always start as USER.
	common.RespondWithJSON(w, http.StatusOK, UserFormView{Roles: []model.Role{model.RoleUser}})
}

func (h *UserHandler) createUser(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if err := validate.Decode(r, validate.UserCreate, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	user, err := h.userService.Create(r.Context(), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/todos/all/users/%d", user.ID))
}

func (h *UserHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, users)
}

func (h *UserHandler) getUser(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if allow, err := h.securityService.IsAdminOrCurrentUser(ident, userID); !allowed(w, r, allow, err) {
		return
	}

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *UserHandler) updateForm(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if allow, err := h.securityService.IsAdminOrCurrentUser(ident, userID); !allowed(w, r, allow, err) {
		return
	}

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, UserFormView{User: user, Roles: model.Roles()})
}

func (h *UserHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if allow, err := h.securityService.IsAdminOrCurrentUser(ident, userID); !allowed(w, r, allow, err) {
		return
	}

	var req service.UpdateUserRequest
	if err := validate.Decode(r, validate.UserUpdate, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if _, err := h.userService.Update(r.Context(), ident, userID, req); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/users/%d/read", userID))
}

func (h *UserHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if allow, err := h.securityService.IsAdminOrCurrentUser(ident, userID); !allowed(w, r, allow, err) {
		return
	}

	// A failed revocation must leave the account in place.
	self := userID == ident.UserID
	if self {
		if err := h.auth.endSession(w, r, ident); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	if err := h.userService.Delete(r.Context(), userID); err != nil {
		respondErr(w, r, err)
		return
	}
	if self {
		common.Redirect(w, r, "/login")
		return
	}
	common.Redirect(w, r, "/users/all")
}

func (h *UserHandler) changePasswordForm(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	user, err := h.userService.Get(r.Context(), ident.UserID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	q := r.URL.Query()
	common.RespondWithJSON(w, http.StatusOK, ChangePasswordView{
		User:    user,
		Error:   q.Get("error") == "true",
		Success: q.Get("success") == "true",
	})
}

func (h *UserHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	var req service.ChangePasswordRequest
	if err := validate.Decode(r, validate.ChangePassword, &req); err != nil {
		respondErr(w, r, err)
		return
	}

	if _, err := h.userService.ChangePassword(r.Context(), ident.UserID, req); err != nil {
		if errors.Is(err, common.ErrValidation) {
			common.Redirect(w, r, "/users/change-password?error=true")
			return
		}
		respondErr(w, r, err)
		return
	}
	if ident.IsAdmin() {
		common.Redirect(w, r, "/users/all?success=true")
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/todos/all/users/%d?success=true", ident.UserID))
}
