package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"todo_collab/internal/common"
	"todo_collab/internal/domain/model"
	"todo_collab/internal/domain/repository"

	"github.com/charmbracelet/log"
	"github.com/gosimple/slug"
	"github.com/thejerf/abtime"
)

type ToDoService struct {
	todoRepo repository.ToDoRepository
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	clock    abtime.AbstractTime
}

func NewToDoService(
	todoRepo repository.ToDoRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	clock abtime.AbstractTime,
) *ToDoService {
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	return &ToDoService{
		todoRepo: todoRepo,
		taskRepo: taskRepo,
		userRepo: userRepo,
		clock:    clock,
	}
}

type ToDoRequest struct {
	Title string `json:"title"`
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("title is required: %w", common.ErrValidation)
	}
	return title, nil
}

func (s *ToDoService) Create(ctx context.Context, ownerID int64, req ToDoRequest) (*model.ToDo, error) {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByID(ctx, ownerID); err != nil {
		return nil, err
	}

	todo := &model.ToDo{
		Title:         title,
		Slug:          slug.Make(title),
		CreatedAt:     s.clock.Now().UTC(),
		OwnerID:       ownerID,
		Collaborators: model.NewCollaboratorSet(),
	}
	if err := s.todoRepo.Create(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", err)
	}
	log.Info("todo created", "todo_id", todo.ID, "owner_id", ownerID)
	return todo, nil
}

// Get returns the todo with its tasks.
func (s *ToDoService) Get(ctx context.Context, id int64) (*model.ToDo, error) {
	todo, err := s.todoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tasks, err := s.taskRepo.ListByToDo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	todo.Tasks = tasks
	return todo, nil
}

// Update changes the title; owner and collaborators are kept as stored.
func (s *ToDoService) Update(ctx context.Context, id int64, req ToDoRequest) (*model.ToDo, error) {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return nil, err
	}
	todo, err := s.todoRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	todo.Title = title
	todo.Slug = slug.Make(title)
	if err := s.todoRepo.Update(ctx, todo); err != nil {
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}
	log.Info("todo updated", "todo_id", id)
	return todo, nil
}

func (s *ToDoService) Delete(ctx context.Context, id int64) error {
	if err := s.todoRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	log.Info("todo deleted", "todo_id", id)
	return nil
}

// ListForUser returns the todos userID owns or collaborates on.
func (s *ToDoService) ListForUser(ctx context.Context, userID int64) ([]model.ToDo, error) {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.todoRepo.ListByUser(ctx, userID)
}

// CandidateCollaborators lists users that could still be added to todo.
func (s *ToDoService) CandidateCollaborators(ctx context.Context, todo *model.ToDo) ([]model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]model.User, 0, len(users))
	for _, u := range users {
		if todo.IsOwner(u.ID) || todo.IsCollaborator(u.ID) {
			continue
		}
		candidates = append(candidates, u)
	}
	return candidates, nil
}

// AddCollaborator puts userID into the collaborator set of todoID. Repeats
// are no-ops; the owner is rejected.
func (s *ToDoService) AddCollaborator(ctx context.Context, todoID, userID int64) (*model.ToDo, error) {
	todo, err := s.todoRepo.FindByID(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	changed, err := todo.AddCollaborator(userID)
	if err != nil {
		if errors.Is(err, model.ErrOwnerAsCollaborator) {
			return nil, fmt.Errorf("%w: %w", err, common.ErrValidation)
		}
		return nil, err
	}
	if !changed {
		return todo, nil
	}
	if err := s.todoRepo.AddCollaborator(ctx, todoID, userID); err != nil {
		return nil, fmt.Errorf("failed to add collaborator: %w", err)
	}
	log.Info("collaborator added", "todo_id", todoID, "user_id", userID)
	return todo, nil
}

// RemoveCollaborator takes userID out of the collaborator set. Removing a
// non-member changes nothing.
func (s *ToDoService) RemoveCollaborator(ctx context.Context, todoID, userID int64) (*model.ToDo, error) {
	todo, err := s.todoRepo.FindByID(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	if !todo.RemoveCollaborator(userID) {
		return todo, nil
	}
	if err := s.todoRepo.RemoveCollaborator(ctx, todoID, userID); err != nil {
		return nil, fmt.Errorf("failed to remove collaborator: %w", err)
	}
	log.Info("collaborator removed", "todo_id", todoID, "user_id", userID)
	return todo, nil
}
