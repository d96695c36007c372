package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storefront-labs/storefront/internal/auth"
	"github.com/storefront-labs/storefront/internal/entity"
	"github.com/storefront-labs/storefront/internal/repository"
)

// UserService handles registration, login and profile lookup.
type UserService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenIssuer
}

func NewUserService(userRepo repository.UserRepository, tokens *auth.TokenIssuer) *UserService {
	return &UserService{userRepo: userRepo, tokens: tokens}
}

// RegisterInput is a registration request.
type RegisterInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Register creates a new user with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, &entity.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	if in.Name == "" {
		return nil, &entity.ValidationError{Field: "name", Reason: "is required"}
	}
	if len(in.Password) < 8 {
		return nil, &entity.ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("User registered", "user_id", user.ID)
	return user, nil
}

// ErrInvalidCredentials is returned for a wrong email or password; the two
// cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Login verifies credentials and issues an access token.
func (s *UserService) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, entity.ErrNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		return nil, "", err
	}

	slog.Info("User logged in", "user_id", user.ID)
	return user, token, nil
}

// GetProfile returns the user's public profile.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
