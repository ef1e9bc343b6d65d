package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"todo_collab/internal/common"
	"todo_collab/internal/domain/model"
)

type ToDoRepository interface {
	Create(ctx context.Context, todo *model.ToDo) error
	FindByID(ctx context.Context, id int64) (*model.ToDo, error)
	// ListByUser returns todos the user owns or collaborates on.
	ListByUser(ctx context.Context, userID int64) ([]model.ToDo, error)
	Update(ctx context.Context, todo *model.ToDo) error
	Delete(ctx context.Context, id int64) error

	AddCollaborator(ctx context.Context, todoID, userID int64) error
	RemoveCollaborator(ctx context.Context, todoID, userID int64) error
}

type pgToDoRepository struct {
	db *sql.DB
}

func NewPgToDoRepository(db *sql.DB) ToDoRepository {
	return &pgToDoRepository{db: db}
}

func (r *pgToDoRepository) Create(ctx context.Context, todo *model.ToDo) error {
	query := `INSERT INTO todos (title, slug, created_at, owner_id)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	err := r.db.QueryRowContext(ctx, query, todo.Title, todo.Slug, todo.CreatedAt, todo.OwnerID).Scan(&todo.ID)
	if err != nil {
		return fmt.Errorf("pgToDoRepository.Create: %w", err)
	}
	if todo.Collaborators == nil {
		todo.Collaborators = model.NewCollaboratorSet()
	}
	return nil
}

func (r *pgToDoRepository) FindByID(ctx context.Context, id int64) (*model.ToDo, error) {
	query := `SELECT id, title, slug, created_at, owner_id FROM todos WHERE id = $1`
	todo := &model.ToDo{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&todo.ID, &todo.Title, &todo.Slug, &todo.CreatedAt, &todo.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("todo %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgToDoRepository.FindByID: %w", err)
	}

	collaborators, err := r.collaboratorIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	todo.Collaborators = model.NewCollaboratorSet(collaborators...)
	return todo, nil
}

func (r *pgToDoRepository) collaboratorIDs(ctx context.Context, todoID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM todo_collaborators WHERE todo_id = $1`, todoID)
	if err != nil {
		return nil, fmt.Errorf("pgToDoRepository.collaboratorIDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgToDoRepository.collaboratorIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgToDoRepository) ListByUser(ctx context.Context, userID int64) ([]model.ToDo, error) {
	query := `
        SELECT t.id, t.title, t.slug, t.created_at, t.owner_id
        FROM todos t
        WHERE t.owner_id = $1
           OR EXISTS (SELECT 1 FROM todo_collaborators c WHERE c.todo_id = t.id AND c.user_id = $1)
        ORDER BY t.created_at, t.id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("pgToDoRepository.ListByUser: %w", err)
	}
	defer rows.Close()

	var todos []model.ToDo
	for rows.Next() {
		var t model.ToDo
		if err := rows.Scan(&t.ID, &t.Title, &t.Slug, &t.CreatedAt, &t.OwnerID); err != nil {
			return nil, fmt.Errorf("pgToDoRepository.ListByUser scan: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Collaborator sets are small; one query per todo keeps the scan simple.
	for i := range todos {
		ids, err := r.collaboratorIDs(ctx, todos[i].ID)
		if err != nil {
			return nil, err
		}
		todos[i].Collaborators = model.NewCollaboratorSet(ids...)
	}
	return todos, nil
}

// Update changes the title and slug only. Owner and collaborators are
// managed through their own paths.
func (r *pgToDoRepository) Update(ctx context.Context, todo *model.ToDo) error {
	res, err := r.db.ExecContext(ctx, `UPDATE todos SET title = $1, slug = $2 WHERE id = $3`, todo.Title, todo.Slug, todo.ID)
	if err != nil {
		return fmt.Errorf("pgToDoRepository.Update: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("todo %d", todo.ID))
}

func (r *pgToDoRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgToDoRepository.Delete: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("todo %d", id))
}

// AddCollaborator is idempotent: the (todo_id, user_id) primary key
// absorbs repeats.
func (r *pgToDoRepository) AddCollaborator(ctx context.Context, todoID, userID int64) error {
	query := `INSERT INTO todo_collaborators (todo_id, user_id)
	          SELECT $1, $2
	          WHERE NOT EXISTS (SELECT 1 FROM todos WHERE id = $1 AND owner_id = $2)
	          ON CONFLICT (todo_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, todoID, userID); err != nil {
		return fmt.Errorf("pgToDoRepository.AddCollaborator: %w", err)
	}
	return nil
}

func (r *pgToDoRepository) RemoveCollaborator(ctx context.Context, todoID, userID int64) error {
	query := `DELETE FROM todo_collaborators WHERE todo_id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, todoID, userID); err != nil {
		return fmt.Errorf("pgToDoRepository.RemoveCollaborator: %w", err)
	}
	return nil
}
