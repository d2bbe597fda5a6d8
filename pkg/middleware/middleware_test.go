package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"licenseguard/backend/pkg/cache"
	"licenseguard/backend/pkg/errors"
	"licenseguard/backend/pkg/jwt"
	"licenseguard/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	known map[uuid.UUID]bool
	calls int
}

func (f *fakeUsers) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	f.calls++
	return f.known[id], nil
}

func newAuthRouter(jwtService *jwt.Service, users UserVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(errors.ErrorHandler())
	r.GET("/me", JWTAuthMiddleware(jwtService, users, cache.NewCache(time.Minute, 10), logger.Discard()), func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.String())
	})
	return r
}

func TestJWTAuthMiddleware(t *testing.T) {
	jwtService := jwt.NewService("secret", time.Hour, "test")
	userID := uuid.New()
	users := &fakeUsers{known: map[uuid.UUID]bool{userID: true}}
	r := newAuthRouter(jwtService, users)

	token, err := jwtService.GenerateToken(userID, "a@b.test")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, userID.String(), w.Body.String())
	}
	assert.Equal(t, 1, users.calls, "existence is cached")
}

func TestJWTAuthMiddleware_Rejects(t *testing.T) {
	jwtService := jwt.NewService("secret", time.Hour, "test")
	r := newAuthRouter(jwtService, &fakeUsers{known: map[uuid.UUID]bool{}})

	unknownToken, err := jwtService.GenerateToken(uuid.New(), "gone@b.test")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
	}{
		{name: "missing header"},
		{name: "garbage token", header: "Bearer nope"},
		{name: "unknown user", header: "Bearer " + unknownToken},
		{name: "query token without upgrade", query: "?token=" + unknownToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), errors.CodeNotAuthenticated)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(logger.Discard(), RateLimiterOptions{
		Limit:          0.0001,
		Burst:          2,
		ExpiryDuration: time.Minute,
	})
	defer limiter.Stop()

	r := gin.New()
	r.Use(errors.ErrorHandler(), limiter.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestIDFromContext(c.Request.Context()))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
