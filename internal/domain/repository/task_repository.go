package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"todo_collab/internal/common"
	"todo_collab/internal/domain/model"
)

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id int64) (*model.Task, error)
	ListByToDo(ctx context.Context, todoID int64) ([]model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id int64) error
}

type pgTaskRepository struct {
	db *sql.DB
}

func NewPgTaskRepository(db *sql.DB) TaskRepository {
	return &pgTaskRepository{db: db}
}

func (r *pgTaskRepository) Create(ctx context.Context, task *model.Task) error {
	query := `INSERT INTO tasks (name, priority, state_id, todo_id)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, task.Name, task.Priority, task.StateID, task.TodoID).Scan(&task.ID); err != nil {
		return fmt.Errorf("pgTaskRepository.Create: %w", err)
	}
	return nil
}

func (r *pgTaskRepository) FindByID(ctx context.Context, id int64) (*model.Task, error) {
	query := `
        SELECT t.id, t.name, t.priority, t.state_id, t.todo_id, s.name
        FROM tasks t
        JOIN states s ON s.id = t.state_id
        WHERE t.id = $1`
	task := &model.Task{State: &model.State{}}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&task.ID, &task.Name, &task.Priority, &task.StateID, &task.TodoID, &task.State.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgTaskRepository.FindByID: %w", err)
	}
	task.State.ID = task.StateID
	return task, nil
}

func (r *pgTaskRepository) ListByToDo(ctx context.Context, todoID int64) ([]model.Task, error) {
	query := `
        SELECT t.id, t.name, t.priority, t.state_id, t.todo_id, s.name
        FROM tasks t
        JOIN states s ON s.id = t.state_id
        WHERE t.todo_id = $1
        ORDER BY t.id`
	rows, err := r.db.QueryContext(ctx, query, todoID)
	if err != nil {
		return nil, fmt.Errorf("pgTaskRepository.ListByToDo: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t := model.Task{State: &model.State{}}
		if err := rows.Scan(&t.ID, &t.Name, &t.Priority, &t.StateID, &t.TodoID, &t.State.Name); err != nil {
			return nil, fmt.Errorf("pgTaskRepository.ListByToDo scan: %w", err)
		}
		t.State.ID = t.StateID
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update never touches todo_id.
func (r *pgTaskRepository) Update(ctx context.Context, task *model.Task) error {
	query := `UPDATE tasks SET name = $1, priority = $2, state_id = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, task.Name, task.Priority, task.StateID, task.ID)
	if err != nil {
		return fmt.Errorf("pgTaskRepository.Update: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("task %d", task.ID))
}

func (r *pgTaskRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgTaskRepository.Delete: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("task %d", id))
}
