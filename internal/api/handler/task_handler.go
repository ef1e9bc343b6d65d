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

type TaskHandler struct {
	taskService     *service.TaskService
	todoService     *service.ToDoService
	stateService    *service.StateService
	securityService *service.SecurityService
}

func NewTaskHandler(
	taskService *service.TaskService,
	todoService *service.ToDoService,
	stateService *service.StateService,
	securityService *service.SecurityService,
) *TaskHandler {
	return &TaskHandler{
		taskService:     taskService,
		todoService:     todoService,
		stateService:    stateService,
		securityService: securityService,
	}
}

// TaskFormView backs the create form.
type TaskFormView struct {
	ToDo       *model.ToDo          `json:"todo"`
	Priorities []model.TaskPriority `json:"priorities"`
}

// TaskEditView backs the update form.
type TaskEditView struct {
	Task       *model.Task          `json:"task"`
	ToDo       *model.ToDo          `json:"todo"`
	Priorities []model.TaskPriority `json:"priorities"`
	States     []model.State        `json:"states"`
}

func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Get("/create/todos/{todoID}", h.createForm)
	r.Post("/create/todos/{todoID}", h.createTask)
	r.Get("/{taskID}/update/todos/{todoID}", h.updateForm)
	r.Post("/{taskID}/update/todos/{todoID}", h.updateTask)
	r.Post("/{taskID}/delete/todos/{todoID}", h.deleteTask)
}

// todoGuard requires the caller to own or collaborate on the path todo.
func (h *TaskHandler) todoGuard(w http.ResponseWriter, r *http.Request) (int64, bool) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return 0, false
	}
	todoID, err := pathID(r, "todoID")
	if err != nil {
		respondErr(w, r, err)
		return 0, false
	}
	if allow, err := h.securityService.IsOwnerOrCollaborator(r.Context(), ident, todoID); !allowed(w, r, allow, err) {
		return 0, false
	}
	return todoID, true
}

// taskGuard requires access to the task through its todo. Whether the task
// sits in the path todo is checked by the service call that follows.
func (h *TaskHandler) taskGuard(w http.ResponseWriter, r *http.Request) (todoID, taskID int64, ok bool) {
	ident, ok := currentIdentity(w, r)
	if !ok {
		return 0, 0, false
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		respondErr(w, r, err)
		return 0, 0, false
	}
	todoID, err = pathID(r, "todoID")
	if err != nil {
		respondErr(w, r, err)
		return 0, 0, false
	}
	if allow, err := h.securityService.IsOwnerTask(r.Context(), ident, taskID); !allowed(w, r, allow, err) {
		return 0, 0, false
	}
	return todoID, taskID, true
}

func (h *TaskHandler) createForm(w http.ResponseWriter, r *http.Request) {
	todoID, ok := h.todoGuard(w, r)
	if !ok {
		return
	}
	todo, err := h.todoService.Get(r.Context(), todoID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, TaskFormView{ToDo: todo, Priorities: model.Priorities()})
}

func (h *TaskHandler) createTask(w http.ResponseWriter, r *http.Request) {
	todoID, ok := h.todoGuard(w, r)
	if !ok {
		return
	}
	var req service.CreateTaskRequest
	if err := validate.Decode(r, validate.TaskCreate, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if _, err := h.taskService.Create(r.Context(), todoID, req); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/todos/%d/read", todoID))
}

func (h *TaskHandler) updateForm(w http.ResponseWriter, r *http.Request) {
	todoID, taskID, ok := h.taskGuard(w, r)
	if !ok {
		return
	}
	task, err := h.taskService.Get(r.Context(), todoID, taskID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	todo, err := h.todoService.Get(r.Context(), todoID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	states, err := h.stateService.List(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, TaskEditView{
		Task:       task,
		ToDo:       todo,
		Priorities: model.Priorities(),
		States:     states,
	})
}

func (h *TaskHandler) updateTask(w http.ResponseWriter, r *http.Request) {
	todoID, taskID, ok := h.taskGuard(w, r)
	if !ok {
		return
	}
	var req service.UpdateTaskRequest
	if err := validate.Decode(r, validate.TaskUpdate, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if _, err := h.taskService.Update(r.Context(), todoID, taskID, req); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/todos/%d/read", todoID))
}

func (h *TaskHandler) deleteTask(w http.ResponseWriter, r *http.Request) {
	todoID, taskID, ok := h.taskGuard(w, r)
	if !ok {
		return
	}
	if err := h.taskService.Delete(r.Context(), todoID, taskID); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, fmt.Sprintf("/todos/%d/read", todoID))
}
