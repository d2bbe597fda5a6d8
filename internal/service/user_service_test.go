package service

import (
	"context"
	"testing"
	"time"

	"licenseguard/backend/internal/models"
	"licenseguard/backend/internal/repository"
	"licenseguard/backend/internal/testutil"
	"licenseguard/backend/pkg/jwt"
	"licenseguard/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T) (*UserService, *jwt.Service) {
	t.Helper()
	db := testutil.NewDB(t)
	tokens := jwt.NewService("test-secret", time.Hour, "licenseguard")
	return NewUserService(repository.NewGormUserRepository(db), tokens, logger.Discard()), tokens
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	svc, tokens := newUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, &models.RegisterRequest{
		Name:     " Ada ",
		Email:    "Ada@Example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", registered.User.Name)
	assert.Equal(t, "ada@example.com", registered.User.Email)
	assert.NotEqual(t, "correct horse", registered.User.Password)

	claims, err := tokens.ValidateToken(registered.Token)
	require.NoError(t, err)
	subject, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, subject)

	_, err = svc.Register(ctx, &models.RegisterRequest{Name: "Ada", Email: "ada@example.com", Password: "another one"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "ada@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	loggedIn, err := svc.Login(ctx, &models.LoginRequest{Email: "ADA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)
	assert.NotNil(t, loggedIn.User.LastLogin)
	assert.NotEmpty(t, loggedIn.Token)
}

func TestUserService_UserExists(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, &models.RegisterRequest{Name: "Bo", Email: "bo@example.com", Password: "password1"})
	require.NoError(t, err)

	exists, err := svc.UserExists(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.UserExists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = svc.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
