package handler

import (
	"net/http"
	"todo_collab/internal/api/middleware"
	"todo_collab/internal/api/validate"
	"todo_collab/internal/app/service"
	"todo_collab/internal/common"

	"github.com/go-chi/chi/v5"
)

type StateHandler struct {
	stateService *service.StateService
}

func NewStateHandler(stateService *service.StateService) *StateHandler {
	return &StateHandler{stateService: stateService}
}

func (h *StateHandler) RegisterRoutes(r chi.Router) {
	r.Get("/all", h.listStates)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminOnly)
		admin.Post("/create", h.createState)
		admin.Post("/{stateID}/update", h.updateState)
		admin.Post("/{stateID}/delete", h.deleteState)
	})
}

func (h *StateHandler) listStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.stateService.List(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, states)
}

func (h *StateHandler) createState(w http.ResponseWriter, r *http.Request) {
	var req service.StateRequest
	if err := validate.Decode(r, validate.State, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if _, err := h.stateService.Create(r.Context(), req); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, "/states/all")
}

func (h *StateHandler) updateState(w http.ResponseWriter, r *http.Request) {
	stateID, err := pathID(r, "stateID")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req service.StateRequest
	if err := validate.Decode(r, validate.State, &req); err != nil {
		respondErr(w, r, err)
		return
	}
	if _, err := h.stateService.Update(r.Context(), stateID, req); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, "/states/all")
}

func (h *StateHandler) deleteState(w http.ResponseWriter, r *http.Request) {
	stateID, err := pathID(r, "stateID")
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.stateService.Delete(r.Context(), stateID); err != nil {
		respondErr(w, r, err)
		return
	}
	common.Redirect(w, r, "/states/all")
}
