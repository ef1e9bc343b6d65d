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
)

type TaskService struct {
	taskRepo  repository.TaskRepository
	todoRepo  repository.ToDoRepository
	stateRepo repository.StateRepository
}

func NewTaskService(taskRepo repository.TaskRepository, todoRepo repository.ToDoRepository, stateRepo repository.StateRepository) *TaskService {
	return &TaskService{taskRepo: taskRepo, todoRepo: todoRepo, stateRepo: stateRepo}
}

type CreateTaskRequest struct {
	Name     string `json:"name"`
	Priority string `json:"priority"`
}

type UpdateTaskRequest struct {
	Name     string `json:"name"`
	Priority string `json:"priority"`
	StateID  int64  `json:"state_id"`
}

func validateTask(name, priority string) (string, model.TaskPriority, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", fmt.Errorf("task name is required: %w", common.ErrValidation)
	}
	p, err := model.ParsePriority(priority)
	if err != nil {
		return "", "", fmt.Errorf("%v: %w", err, common.ErrValidation)
	}
	return name, p, nil
}

// Create adds a task to todoID in the default state.
func (s *TaskService) Create(ctx context.Context, todoID int64, req CreateTaskRequest) (*model.Task, error) {
	name, priority, err := validateTask(req.Name, req.Priority)
	if err != nil {
		return nil, err
	}
	if _, err := s.todoRepo.FindByID(ctx, todoID); err != nil {
		return nil, err
	}

	state, err := s.stateRepo.FindByName(ctx, model.DefaultStateName)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("default state %q is not configured: %w", model.DefaultStateName, err)
		}
		return nil, err
	}

	task := &model.Task{
		Name:     name,
		Priority: priority,
		StateID:  state.ID,
		TodoID:   todoID,
		State:    state,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	log.Info("task created", "task_id", task.ID, "todo_id", todoID)
	return task, nil
}

// Get returns the task if it belongs to todoID. A task from another todo is
// reported as not found.
func (s *TaskService) Get(ctx context.Context, todoID, taskID int64) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.TodoID != todoID {
		return nil, fmt.Errorf("task %d in todo %d: %w", taskID, todoID, common.ErrNotFound)
	}
	return task, nil
}

func (s *TaskService) ListByToDo(ctx context.Context, todoID int64) ([]model.Task, error) {
	return s.taskRepo.ListByToDo(ctx, todoID)
}

// Update changes name, priority and state. The owning todo never changes.
func (s *TaskService) Update(ctx context.Context, todoID, taskID int64, req UpdateTaskRequest) (*model.Task, error) {
	name, priority, err := validateTask(req.Name, req.Priority)
	if err != nil {
		return nil, err
	}
	task, err := s.Get(ctx, todoID, taskID)
	if err != nil {
		return nil, err
	}
	state, err := s.stateRepo.FindByID(ctx, req.StateID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("unknown state %d: %w", req.StateID, common.ErrValidation)
		}
		return nil, err
	}

	task.Name = name
	task.Priority = priority
	task.StateID = state.ID
	task.State = state
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	log.Info("task updated", "task_id", taskID, "todo_id", todoID)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, todoID, taskID int64) error {
	if _, err := s.Get(ctx, todoID, taskID); err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	log.Info("task deleted", "task_id", taskID, "todo_id", todoID)
	return nil
}
