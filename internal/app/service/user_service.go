package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"todo_collab/internal/common"
	"todo_collab/internal/common/security"
	"todo_collab/internal/domain/model"
	"todo_collab/internal/domain/repository"

	"github.com/charmbracelet/log"
)

type UserService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

type CreateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type UpdateUserRequest struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Role      *string `json:"role,omitempty"`     // Admin only
	Password  string  `json:"password,omitempty"` // Optional new password
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func validateProfile(firstName, lastName, email string) error {
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return fmt.Errorf("first and last name are required: %w", common.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email %q: %w", email, common.ErrValidation)
	}
	return nil
}

// Create registers a new account. Accounts created this way always get the
// USER role; promotion goes through Update by an admin.
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	if err := validateProfile(req.FirstName, req.LastName, req.Email); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, fmt.Errorf("password is required: %w", common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		Email:          strings.TrimSpace(req.Email),
		HashedPassword: hashedPassword,
		Role:           model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	log.Info("user created", "user_id", user.ID)
	return user, nil
}

// EnsureAdmin creates an ADMIN account for email unless one with that
// email already exists. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return false, err
	}
	if password == "" {
		return false, fmt.Errorf("admin password is required: %w", common.ErrValidation)
	}

	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("failed to hash password: %w", err)
	}
	admin := &model.User{
		FirstName:      "Admin",
		LastName:       "Admin",
		Email:          strings.TrimSpace(email),
		HashedPassword: hashedPassword,
		Role:           model.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}
	log.Info("admin account created", "user_id", admin.ID, "email", admin.Email)
	return true, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.userRepo.List(ctx)
}

// Update rewrites the profile of user id. Only an admin caller may change
// the role.
func (s *UserService) Update(ctx context.Context, ident security.Identity, id int64, req UpdateUserRequest) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateProfile(req.FirstName, req.LastName, req.Email); err != nil {
		return nil, err
	}

	if req.Role != nil {
		role, err := model.ParseRole(*req.Role)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, common.ErrValidation)
		}
		if role != user.Role && !ident.IsAdmin() {
			return nil, fmt.Errorf("only an admin may change roles: %w", common.ErrForbidden)
		}
		user.Role = role
	}
	if req.Password != "" {
		hashed, err := security.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = hashed
	}

	user.FirstName = strings.TrimSpace(req.FirstName)
	user.LastName = strings.TrimSpace(req.LastName)
	user.Email = strings.TrimSpace(req.Email)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	log.Info("user updated", "user_id", user.ID, "by", ident.UserID)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	log.Info("user deleted", "user_id", id)
	return nil
}

// ChangePassword replaces the password of userID when oldPassword matches.
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req ChangePasswordRequest) (*model.User, error) {
	if req.NewPassword == "" {
		return nil, fmt.Errorf("new password is required: %w", common.ErrValidation)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !security.CheckPasswordHash(req.OldPassword, user.HashedPassword) {
		return nil, fmt.Errorf("old password does not match: %w", common.ErrValidation)
	}

	hashed, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to change password: %w", err)
	}
	log.Info("password changed", "user_id", userID)
	return user, nil
}
