package handler

import (
	"fmt"
	"net/http"
	"todo_collab/internal/api/validate"
	"todo_collab/internal/app/service"
	"todo_collab/internal/common"
	"todo_collab/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ToDoHandler struct {
	todoService     *service.ToDoService
	userService     *service.UserService
	securityService *service.SecurityService
}

func NewToDoHandler(todoService *service.ToDoService, userService *service.UserService, securityService *service.SecurityService) *ToDoHandler {
	return &ToDoHandler{todoService: todoService, userService: userService, securityService: securityService}
}

// ToDoView is the read page of a single list.
type ToDoView struct {
	ToDo  *model.ToDo  `json:"todo"`
	Tasks []model.Task `json:"tasks"`
	Users []model.User `json:"users"`
}

// UserToDosView lists everything a user owns or collaborates on.
type UserToDosView struct {
	User  *model.User  `json:"user"`
	ToDos []model.ToDo `json:"todos"`
}

// ToDoFormView backs the create and update forms. Create leaves ToDo empty.
type ToDoFormView struct {
	ToDo  *model.ToDo `json:"todo,omitempty"`
	Owner *model.User `json:"owner"`
}

func (h *ToDoHandler) RegisterRoutes(r chi.Router) {
	r.Get("/create/users/{ownerID}", h.createForm)
	r.Post("/create/users/{ownerID}", h.createToDo)
	r.Get("/all/users/{userID}", h.listToDos)
	r.Get("/{todoID}/read", h.getToDo)
	r.Get("/{todoID}/update/users/{ownerID}", h.updateForm)
	r.Post("/{todoID}/update/users/{ownerID}", h.updateToDo)
	r.Post("/{todoID}/delete/users/{ownerID}", h.deleteToDo)
	r.Post("/{todoID}/add", h.addCollaborator)
	r.Post("/{todoID}/remove", h.removeCollaborator)
}

func (h *ToDoHandler) createForm(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	ownerID, err := pathID(r, "ownerID")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if allow, err := h.securityService.IsCurrentUserAndOwner(ident, ownerID); !allowed(w, r, allow, err) {
		return
	}

	owner, err := h.userService.Get(r.Context(), ownerID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, ToDoFormView{Owner: owner})
}

func (h *ToDoHandler) createToDo(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	ownerID, err := pathID(r, "ownerID")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if allow, err := h.securityService.IsCurrentUserAndOwner(ident, ownerID); !allowed(w, r, allow, err) {
		return
	}

	var req service.ToDoRequest
	if err := validate.Decode(r, validate.ToDo, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if _, err := h.todoService.Create(r.Context(), ownerID, req); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/todos/all/users/%d", ownerID))
}

func (h *ToDoHandler) getToDo(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	todoID, err := pathID(r, "todoID")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if allow, err := h.securityService.IsOwnerOrCollaborator(r.Context(), ident, todoID); !allowed(w, r, allow, err) {
		return
	}

	todo, err := h.todoService.Get(r.Context(), todoID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	users, err := h.todoService.CandidateCollaborators(r.Context(), todo)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, ToDoView{ToDo: todo, Tasks: todo.Tasks, Users: users})
}

// ownerGuard requires the caller to be ownerID and to own todoID.
func (h *ToDoHandler) ownerGuard(w http.ResponseWriter, r *http.Request) (todoID, ownerID int64, ok bool) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return 0, 0, false
	}
	todoID, err := pathID(r, "todoID")
	if err != nil {
		respondErr(w, r, err)
		return 0, 0, false
	}
	ownerID, err = pathID(r, "ownerID")
	if err != nil {
		respondErr(w, r, err)
		return 0, 0, false
	}
	if allow, err := h.securityService.IsCurrentUserAndOwner(ident, ownerID); !allowed(w, r, allow, err) {
		return 0, 0, false
	}
	if allow, err := h.securityService.IsTodoOwner(r.Context(), ident, todoID); !allowed(w, r, allow, err) {
		return 0, 0, false
	}
	return todoID, ownerID, true
}

func (h *ToDoHandler) updateForm(w http.ResponseWriter, r *http.Request) {
	todoID, ownerID, ok := h.ownerGuard(w, r)
	if !ok {
		return
	}
	todo, err := h.todoService.Get(r.Context(), todoID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	owner, err := h.userService.Get(r.Context(), ownerID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, ToDoFormView{ToDo: todo, Owner: owner})
}

func (h *ToDoHandler) updateToDo(w http.ResponseWriter, r *http.Request) {
	todoID, ownerID, ok := h.ownerGuard(w, r)
	if !ok {
		return
	}

	var req service.ToDoRequest
	if err := validate.Decode(r, validate.ToDo, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if _, err := h.todoService.Update(r.Context(), todoID, req); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/todos/all/users/%d", ownerID))
}

func (h *ToDoHandler) deleteToDo(w http.ResponseWriter, r *http.Request) {
	todoID, ownerID, ok := h.ownerGuard(w, r)
	if !ok {
		return
	}
	if err := h.todoService.Delete(r.Context(), todoID); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/todos/all/users/%d", ownerID))
}

func (h *ToDoHandler) listToDos(w http.ResponseWriter, r *http.Request) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return
	}
	userID, err := pathID(r, "userID")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if allow, err := h.securityService.IsCurrentUserAndOwner(ident, userID); !allowed(w, r, allow, err) {
		return
	}

	user, err := h.userService.Get(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	todos, err := h.todoService.ListForUser(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, UserToDosView{User: user, ToDos: todos})
}

// collaboratorGuard requires the caller to own todoID and returns the
// user_id query parameter.
func (h *ToDoHandler) collaboratorGuard(w http.ResponseWriter, r *http.Request) (todoID, userID int64, ok bool) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return 0, 0, false
	}
	todoID, err := pathID(r, "todoID")
	if err != nil {
		respondErr(w, r, err)
		return 0, 0, false
	}
	if allow, err := h.securityService.IsTodoOwner(r.Context(), ident, todoID); !allowed(w, r, allow, err) {
		return 0, 0, false
	}
	userID, err = queryID(r, "user_id")
	if err != nil {
		respondErr(w, r, err)
		return 0, 0, false
	}
	return todoID, userID, true
}

func (h *ToDoHandler) addCollaborator(w http.ResponseWriter, r *http.Request) {
	todoID, userID, ok := h.collaboratorGuard(w, r)
	if !ok {
		return
	}
	if _, err := h.todoService.AddCollaborator(r.Context(), todoID, userID); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/todos/%d/read", todoID))
}

func (h *ToDoHandler) removeCollaborator(w http.ResponseWriter, r *http.Request) {
	todoID, userID, ok := h.collaboratorGuard(w, r)
	if !ok {
		return
	}
	if _, err := h.todoService.RemoveCollaborator(r.Context(), todoID, userID); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/todos/%d/read", todoID))
}
