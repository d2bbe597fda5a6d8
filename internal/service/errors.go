package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrContentCheckNotFound = errors.New("content check not found")
	ErrSessionNotFound      = errors.New("chat session not found")
	ErrSessionClosed        = errors.New("chat session is closed")
	ErrReplyPending         = errors.New("previous message is still awaiting a reply")
	ErrAnalysisUnavailable  = errors.New("analysis unavailable")
	ErrAssistantUnavailable = errors.New("assistant unavailable")

	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError names the offending field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
