package service

import (
	"context"
	"fmt"
	"strings"
	"todo_collab/internal/common"
	"todo_collab/internal/domain/model"
	"todo_collab/internal/domain/repository"

	"github.com/charmbracelet/log"
)

type StateService struct {
	stateRepo repository.StateRepository
}

func NewStateService(stateRepo repository.StateRepository) *StateService {
	return &StateService{stateRepo: stateRepo}
}

type StateRequest struct {
	Name string `json:"name"`
}

func (s *StateService) List(ctx context.Context) ([]model.State, error) {
	return s.stateRepo.List(ctx)
}

func (s *StateService) Get(ctx context.Context, id int64) (*model.State, error) {
	return s.stateRepo.FindByID(ctx, id)
}

func (s *StateService) Create(ctx context.Context, req StateRequest) (*model.State, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("state name is required: %w", common.ErrValidation)
	}
	state := &model.State{Name: name}
	if err := s.stateRepo.Create(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to create state: %w", err)
	}
	log.Info("state created", "state_id", state.ID, "name", name)
	return state, nil
}

func (s *StateService) Update(ctx context.Context, id int64, req StateRequest) (*model.State, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("state name is required: %w", common.ErrValidation)
	}
	state, err := s.stateRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	state.Name = name
	if err := s.stateRepo.Update(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to update state: %w", err)
	}
	log.Info("state updated", "state_id", id, "name", name)
	return state, nil
}

func (s *StateService) Delete(ctx context.Context, id int64) error {
	if err := s.stateRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	log.Info("state deleted", "state_id", id)
	return nil
}
