package api

import (
	"errors"
	"net/http"
	"strings"

	"licenseguard/backend/internal/service"
	apperrors "licenseguard/backend/pkg/errors"
	"licenseguard/backend/pkg/lock"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ToAppError maps service errors to the codes clients see. Anything not
// listed becomes an opaque internal error.
func ToAppError(err error) *apperrors.AppError {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return apperrors.BadRequestWithDetails(apperrors.CodeValidation, verr.Error(), gin.H{"field": verr.Field})
	case errors.Is(err, service.ErrValidation):
		return apperrors.NewBadRequestError(apperrors.CodeValidation, err.Error())
	case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.NewUnauthorizedError(apperrors.CodeNotAuthenticated, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		return apperrors.NewUnauthorizedError(apperrors.CodeNotAuthenticated, "Account no longer exists")
	case errors.Is(err, service.ErrSessionNotFound):
		return apperrors.NewNotFoundError(apperrors.CodeSessionNotFound, "Chat session not found")
	case errors.Is(err, service.ErrContentCheckNotFound):
		return apperrors.NewNotFoundError(apperrors.CodeContentCheckNotFound, "Content check not found")
	case errors.Is(err, service.ErrSessionClosed):
		return apperrors.NewConflictError(apperrors.CodeSessionClosed, "Chat session is closed")
	case errors.Is(err, service.ErrReplyPending):
		return apperrors.NewConflictError(apperrors.CodeReplyPending, "The previous message has not been answered yet; resend it to retry")
	case errors.Is(err, service.ErrUserAlreadyExists):
		return apperrors.NewConflictError(apperrors.CodeEmailTaken, "A user with this email already exists")
	case errors.Is(err, service.ErrAnalysisUnavailable):
		return apperrors.NewBadGatewayError(apperrors.CodeAnalysisUnavailable, "Content analysis is temporarily unavailable").WithCause(err)
	case errors.Is(err, service.ErrAssistantUnavailable):
		return apperrors.NewBadGatewayError(apperrors.CodeAssistantUnavailable, "The assistant is temporarily unavailable").WithCause(err)
	case errors.Is(err, lock.ErrNotAcquired):
		return apperrors.NewError(http.StatusServiceUnavailable, apperrors.CodeBusy, "The resource is busy, try again").WithCause(err)
	}
	return apperrors.FromError(err)
}

// bindingError turns a gin binding failure into a validation error
func bindingError(err error) *apperrors.AppError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[lowerFirst(fe.Field())] = fe.Tag()
		}
		return apperrors.BadRequestWithDetails(apperrors.CodeValidation, "Invalid request body", gin.H{"fields": fields})
	}
	return apperrors.NewBadRequestError(apperrors.CodeValidation, "Invalid request format").WithCause(err)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func respondError(c *gin.Context, err error) {
	_ = c.Error(ToAppError(err))
}
