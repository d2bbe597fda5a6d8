package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "licenseguard/backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPIValidator_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	v, err := NewOpenAPIValidator("../../api/openapi.yaml")
	require.NoError(t, err)
	require.NotNil(t, v.Document().Paths.Find("/api/chat/message"))

	r := gin.New()
	r.Use(apperrors.ErrorHandler(), v.Middleware())
	r.POST("/api/chat/message", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/unlisted", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/api/content-checks", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "valid body", method: http.MethodPost, path: "/api/chat/message", body: `{"message":"hi"}`, want: http.StatusOK},
		{name: "missing required field", method: http.MethodPost, path: "/api/chat/message", body: `{"sessionId":"x"}`, want: http.StatusBadRequest},
		{name: "bad query parameter", method: http.MethodGet, path: "/api/content-checks?limit=0", want: http.StatusBadRequest},
		{name: "route outside the document", method: http.MethodGet, path: "/unlisted", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusBadRequest {
				assert.Contains(t, rec.Body.String(), apperrors.CodeValidation)
			}
		})
	}

	require.NoError(t, v.ReloadSchema())
}
