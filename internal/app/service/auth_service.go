package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"todo_collab/internal/common"
	"todo_collab/internal/common/security"
	"todo_collab/internal/domain/model"
	"todo_collab/internal/domain/repository"

	"github.com/charmbracelet/log"
)

type AuthService struct {
	userRepo       repository.UserRepository
	revocationRepo repository.RevocationRepository
}

func NewAuthService(userRepo repository.UserRepository, revocationRepo repository.RevocationRepository) *AuthService {
	return &AuthService{userRepo: userRepo, revocationRepo: revocationRepo}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *model.User           `json:"user"`
	Token string                `json:"token"`
	Issue *security.IssuedToken `json:"-"`
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}

	issued, err := security.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	log.Info("user logged in", "user_id", user.ID)
	return &AuthResponse{User: user, Token: issued.Token, Issue: issued}, nil
}

// Logout revokes the caller's token so the identity cannot be replayed.
func (s *AuthService) Logout(ctx context.Context, ident security.Identity) error {
	if !ident.Authenticated() {
		return common.ErrUnauthorized
	}
	if ident.TokenID == "" {
		return nil
	}
	if err := s.revocationRepo.Revoke(ctx, ident.TokenID, ident.ExpiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	log.Info("user logged out", "user_id", ident.UserID)
	return nil
}

// ResolveIdentity turns verified token claims into the request identity.
// The user must still exist and the token must not be revoked; the role is
// taken from the store so demotions apply immediately.
func (s *AuthService) ResolveIdentity(ctx context.Context, claimed security.Identity) (security.Identity, error) {
	if claimed.TokenID != "" {
		revoked, err := s.revocationRepo.IsRevoked(ctx, claimed.TokenID)
		if err != nil {
			return security.Identity{}, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			return security.Identity{}, fmt.Errorf("token has been revoked: %w", common.ErrUnauthorized)
		}
	}

	user, err := s.userRepo.FindByID(ctx, claimed.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return security.Identity{}, fmt.Errorf("token subject no longer exists: %w", common.ErrUnauthorized)
		}
		return security.Identity{}, err
	}

	claimed.Role = user.Role
	return claimed, nil
}
