package service

import (
	"context"
	"fmt"
	"todo_collab/internal/common"
	"todo_collab/internal/common/security"
	"todo_collab/internal/domain/repository"
)

// SecurityService answers access-control questions for one caller. Every
// decision reads current store state; nothing is cached between calls.
// Missing entities surface as common.ErrNotFound and a missing identity
// as common.ErrUnauthorized, never as a plain false.
type SecurityService struct {
	todoRepo repository.ToDoRepository
	taskRepo repository.TaskRepository
}

func NewSecurityService(todoRepo repository.ToDoRepository, taskRepo repository.TaskRepository) *SecurityService {
	return &SecurityService{todoRepo: todoRepo, taskRepo: taskRepo}
}

func requireIdentity(ident security.Identity) error {
	if !ident.Authenticated() {
		return common.ErrUnauthorized
	}
	return nil
}

// IsTodoOwner reports whether the caller owns the todo.
func (s *SecurityService) IsTodoOwner(ctx context.Context, ident security.Identity, todoID int64) (bool, error) {
	if err := requireIdentity(ident); err != nil {
		return false, err
	}
	todo, err := s.todoRepo.FindByID(ctx, todoID)
	if err != nil {
		return false, fmt.Errorf("isTodoOwner: %w", err)
	}
	return todo.IsOwner(ident.UserID), nil
}

// IsOwnerOrCollaborator reports whether the caller owns the todo or is in
// its collaborator set.
func (s *SecurityService) IsOwnerOrCollaborator(ctx context.Context, ident security.Identity, todoID int64) (bool, error) {
	if err := requireIdentity(ident); err != nil {
		return false, err
	}
	todo, err := s.todoRepo.FindByID(ctx, todoID)
	if err != nil {
		return false, fmt.Errorf("isOwnerOrCollaborator: %w", err)
	}
	return todo.IsOwner(ident.UserID) || todo.IsCollaborator(ident.UserID), nil
}

// IsCurrentUserAndOwner reports whether userID is the caller.
func (s *SecurityService) IsCurrentUserAndOwner(ident security.Identity, userID int64) (bool, error) {
	if err := requireIdentity(ident); err != nil {
		return false, err
	}
	return ident.UserID == userID, nil
}

// IsOwnerTask resolves the task's todo and defers to IsOwnerOrCollaborator.
func (s *SecurityService) IsOwnerTask(ctx context.Context, ident security.Identity, taskID int64) (bool, error) {
	if err := requireIdentity(ident); err != nil {
		return false, err
	}
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("isOwnerTask: %w", err)
	}
	return s.IsOwnerOrCollaborator(ctx, ident, task.TodoID)
}

func (s *SecurityService) IsAdmin(ident security.Identity) bool {
	return ident.IsAdmin()
}

// IsAdminOrCurrentUser is the self-service rule for account endpoints.
func (s *SecurityService) IsAdminOrCurrentUser(ident security.Identity, userID int64) (bool, error) {
	if err := requireIdentity(ident); err != nil {
		return false, err
	}
	if s.IsAdmin(ident) {
		return true, nil
	}
	return s.IsCurrentUserAndOwner(ident, userID)
}
