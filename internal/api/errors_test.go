package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"licenseguard/backend/internal/service"
	apperrors "licenseguard/backend/pkg/errors"
	"licenseguard/backend/pkg/lock"

	"github.com/stretchr/testify/assert"
)

func TestToAppError(t *testing.T) {
	lockTimeout := fmt.Errorf("lock chat session: %w", fmt.Errorf("%w: chat-session:x: %v", lock.ErrNotAcquired, context.DeadlineExceeded))

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "validation", err: &service.ValidationError{Field: "type", Message: "is required"}, status: http.StatusBadRequest, code: apperrors.CodeValidation},
		{name: "session closed", err: service.ErrSessionClosed, status: http.StatusConflict, code: apperrors.CodeSessionClosed},
		{name: "reply pending", err: service.ErrReplyPending, status: http.StatusConflict, code: apperrors.CodeReplyPending},
		{name: "analysis unavailable", err: fmt.Errorf("%w: %w", service.ErrAnalysisUnavailable, context.DeadlineExceeded), status: http.StatusBadGateway, code: apperrors.CodeAnalysisUnavailable},
		{name: "analysis lock timeout stays unavailable", err: fmt.Errorf("%w: %w", service.ErrAnalysisUnavailable, lockTimeout), status: http.StatusBadGateway, code: apperrors.CodeAnalysisUnavailable},
		{name: "lock wait expired", err: lockTimeout, status: http.StatusServiceUnavailable, code: apperrors.CodeBusy},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, code: apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.err)
			assert.Equal(t, tt.status, appErr.StatusCode)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}
