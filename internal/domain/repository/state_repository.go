package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"todo_collab/internal/common"
	"todo_collab/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type StateRepository interface {
	Create(ctx context.Context, state *model.State) error
	FindByID(ctx context.Context, id int64) (*model.State, error)
	FindByName(ctx context.Context, name string) (*model.State, error)
	List(ctx context.Context) ([]model.State, error)
	Update(ctx context.Context, state *model.State) error
	Delete(ctx context.Context, id int64) error
}

type pgStateRepository struct {
	db *sql.DB
}

func NewPgStateRepository(db *sql.DB) StateRepository {
	return &pgStateRepository{db: db}
}

func (r *pgStateRepository) Create(ctx context.Context, state *model.State) error {
	err := r.db.QueryRowContext(ctx, `INSERT INTO states (name) VALUES ($1) RETURNING id`, state.Name).Scan(&state.ID)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("state %q already exists: %w", state.Name, common.ErrConflict)
		}
		return fmt.Errorf("pgStateRepository.Create: %w", err)
	}
	return nil
}

func (r *pgStateRepository) FindByID(ctx context.Context, id int64) (*model.State, error) {
	state := &model.State{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM states WHERE id = $1`, id).Scan(&state.ID, &state.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("state %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgStateRepository.FindByID: %w", err)
	}
	return state, nil
}

func (r *pgStateRepository) FindByName(ctx context.Context, name string) (*model.State, error) {
	state := &model.State{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM states WHERE name = $1`, name).Scan(&state.ID, &state.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("state %q: %w", name, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgStateRepository.FindByName: %w", err)
	}
	return state, nil
}

func (r *pgStateRepository) List(ctx context.Context) ([]model.State, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM states ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("pgStateRepository.List: %w", err)
	}
	defer rows.Close()

	var states []model.State
	for rows.Next() {
		var s model.State
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("pgStateRepository.List scan: %w", err)
		}
		states = append(states, s)
	}
	return states, rows.Err()
}

func (r *pgStateRepository) Update(ctx context.Context, state *model.State) error {
	res, err := r.db.ExecContext(ctx, `UPDATE states SET name = $1 WHERE id = $2`, state.Name, state.ID)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("state %q already exists: %w", state.Name, common.ErrConflict)
		}
		return fmt.Errorf("pgStateRepository.Update: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("state %d", state.ID))
}

// Delete fails with ErrConflict while tasks still reference the state.
func (r *pgStateRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM states WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // Foreign key violation
			return fmt.Errorf("state %d is still in use: %w", id, common.ErrConflict)
		}
		return fmt.Errorf("pgStateRepository.Delete: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("state %d", id))
}
