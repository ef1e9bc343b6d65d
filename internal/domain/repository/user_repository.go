package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"todo_collab/internal/common"
	"todo_collab/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id int64) error
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, hashed_password, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, user *model.User) error {
	return row.Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.HashedPassword, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
}

func (r *pgUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (first_name, last_name, email, hashed_password, role)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, user.FirstName, user.LastName, user.Email, user.HashedPassword, user.Role).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Create: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user := &model.User{}
	if err := scanUser(r.db.QueryRowContext(ctx, query, id), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("pgUserRepository.FindByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	user := &model.User{}
	if err := scanUser(r.db.QueryRowContext(ctx, query, email), user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByEmail: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) List(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.List: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("pgUserRepository.List scan: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *pgUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET
	            first_name = $1, last_name = $2, email = $3, hashed_password = $4, role = $5,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $6
	          RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, user.FirstName, user.LastName, user.Email, user.HashedPassword, user.Role, user.ID).
		Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", user.ID, common.ErrNotFound)
		}
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("user with email %s already exists: %w", user.Email, common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.Update: %w", err)
	}
	return nil
}

// Delete removes the user; owned todos, their tasks and collaborator rows
// go with it through ON DELETE CASCADE.
func (r *pgUserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgUserRepository.Delete: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("user %d", id))
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}
