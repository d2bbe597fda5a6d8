package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"licenseguard/backend/internal/models"
	"licenseguard/backend/internal/repository"
	"licenseguard/backend/pkg/jwt"
	"licenseguard/backend/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrUserNotFound = errors.New("user not found")

// UserService handles user-related operations
type UserService struct {
	users  repository.UserRepository
	tokens *jwt.Service
	log    *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(users repository.UserRepository, tokens *jwt.Service, log *logger.Logger) *UserService {
	return &UserService{users: users, tokens: tokens, log: log.With("service", "user")}
}

// Register creates a new user and returns it with a token
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	email := models.NormalizeEmail(req.Email)

	// Check if user already exists
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: req.Password,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Info("User registered", "user_id", user.ID.String())
	return &models.AuthResponse{Token: token, User: user}, nil
}

// Login authenticates a user and returns a token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.WithContext(ctx).Warn("Failed to record last login", "user_id", user.ID.String(), "error", err.Error())
	} else {
		user.LastLogin = &now
	}

	return &models.AuthResponse{Token: token, User: user}, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UserExists reports whether the id belongs to a registered user
func (s *UserService) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}
