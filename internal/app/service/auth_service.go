package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Taka1304/sigza/internal/common"
	"github.com/Taka1304/sigza/internal/common/security"
	"github.com/Taka1304/sigza/internal/domain/model"
	"github.com/Taka1304/sigza/internal/domain/repository"
	"github.com/Taka1304/sigza/internal/platform/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService struct {
	userRepo repository.UserRepository
	log      *zap.SugaredLogger
}

func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo, log: logger.Named("auth_service")}
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LinkProviderRequest struct {
	Provider   string `json:"provider" validate:"required"`
	ProviderID string `json:"provider_id" validate:"required"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Email:          req.Email,
		Name:           req.Name,
		SystemRole:     model.RoleUser,
		HashedPassword: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := security.GenerateToken(user.ID, string(user.SystemRole))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	s.log.Infow("user signed up", "user_id", user.ID)
	return &AuthResponse{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized // Generic message for security
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}

	token, err := security.GenerateToken(user.ID, string(user.SystemRole))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	return &AuthResponse{User: user, Token: token}, nil
}

// LinkProvider binds an external identity to the user. Both uniqueness rules
// are enforced by database constraints, never by a pre-check, so concurrent
// link attempts cannot race past each other.
func (s *AuthService) LinkProvider(ctx context.Context, userID string, req LinkProviderRequest) (*model.UserProvider, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	provider := &model.UserProvider{
		ID:         uuid.NewString(),
		UserID:     userID,
		Provider:   req.Provider,
		ProviderID: req.ProviderID,
	}
	if err := s.userRepo.CreateProvider(ctx, provider); err != nil {
		return nil, err
	}
	return provider, nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}

type UpdateProfileRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=64"`
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,max=64"`
	Grade       *int    `json:"grade,omitempty" validate:"omitempty,min=1,max=12"`
	IconURL     *string `json:"icon_url,omitempty" validate:"omitempty,url"`
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*model.User, error) {
	if err := common.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.DisplayName != nil {
		user.DisplayName = req.DisplayName
	}
	if req.Grade != nil {
		user.Grade = req.Grade
	}
	if req.IconURL != nil {
		user.IconURL = req.IconURL
	}
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	user.HashedPassword = ""
	return user, nil
}
