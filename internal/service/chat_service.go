package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"licenseguard/backend/ai"
	"licenseguard/backend/internal/models"
	"licenseguard/backend/internal/repository"
	"licenseguard/backend/pkg/lock"
	"licenseguard/backend/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// ChatOptions tunes the chat service
type ChatOptions struct {
	// HistoryLimit is how many messages are sent to the engine as context
	HistoryLimit int
	// ReplyTimeout bounds each engine call
	ReplyTimeout time.Duration
	// MaxMessageLength is the longest accepted user message, in characters
	MaxMessageLength int
}

// ChatService keeps one active session per user and appends messages to it in order
type ChatService struct {
	chats  repository.ChatRepository
	engine ai.Engine
	locker lock.Locker
	opts   ChatOptions
	log    *logger.Logger
	now    func() time.Time

	tracer   trace.Tracer
	messages metric.Int64Counter
	failures metric.Int64Counter
}

// NewChatService creates a new chat service
func NewChatService(chats repository.ChatRepository, engine ai.Engine, locker lock.Locker, opts ChatOptions, log *logger.Logger) *ChatService {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 30 * time.Second
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = 4000
	}

	meter := otel.Meter("licenseguard/chat")

	return &ChatService{
		chats:    chats,
		engine:   engine,
		locker:   locker,
		opts:     opts,
		log:      log.With("service", "chat"),
		now:      func() time.Time { return time.Now().UTC() },
		tracer:   otel.Tracer("licenseguard/chat"),
		messages: counter(meter, "chat_messages", "Chat messages stored, by role"),
		failures: counter(meter, "assistant_failures", "Failed assistant replies"),
	}
}

func userLockKey(userID uuid.UUID) string {
	return "chat-user:" + userID.String()
}

func sessionLockKey(sessionID uuid.UUID) string {
	return "chat-session:" + sessionID.String()
}

// GetOrCreateActiveSession returns the user's active session with its
// messages oldest-first, creating one when there is none.
func (s *ChatService) GetOrCreateActiveSession(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error) {
	ctx, span := s.tracer.Start(ctx, "ChatService.GetOrCreateActiveSession")
	defer span.End()

	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	release, err := s.locker.Acquire(ctx, userLockKey(userID))
	if err != nil {
		return nil, fmt.Errorf("lock chat user: %w", err)
	}
	defer release()

	return s.findOrCreate(ctx, userID)
}

// findOrCreate must run under the user lock. The partial unique index on
// active sessions catches writers that do not share the lock.
func (s *ChatService) findOrCreate(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error) {
	session, err := s.chats.FindActive(ctx, userID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find active session: %w", err)
	}

	session = &models.ChatSession{UserID: userID, Status: models.SessionActive}
	if err := s.chats.CreateSession(ctx, session); err != nil {
		existing, findErr := s.chats.FindActive(ctx, userID)
		if findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create chat session: %w", err)
	}

	session.Messages = []models.Message{}
	s.log.WithContext(ctx).Info("Chat session started", "session_id", session.ID.String(), "user_id", userID.String())
	return session, nil
}

// PostMessage appends the user's text to the session and returns the
// assistant reply. A nil sessionID targets the user's active session.
// When the engine fails the user message stays and ErrAssistantUnavailable
// is returned. Resending the same text answers that message instead of
// storing it twice.
func (s *ChatService) PostMessage(ctx context.Context, userID uuid.UUID, sessionID *uuid.UUID, text string) (*models.Message, error) {
	ctx, span := s.tracer.Start(ctx, "ChatService.PostMessage")
	defer span.End()

	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("message", "is required")
	}
	if utf8.RuneCountInString(text) > s.opts.MaxMessageLength {
		return nil, invalid("message", fmt.Sprintf("must be at most %d characters", s.opts.MaxMessageLength))
	}

	var target uuid.UUID
	if sessionID == nil {
		session, err := s.GetOrCreateActiveSession(ctx, userID)
		if err != nil {
			return nil, err
		}
		target = session.ID
	} else {
		target = *sessionID
	}
	span.SetAttributes(attribute.String("chat.session_id", target.String()))

	release, err := s.locker.Acquire(ctx, sessionLockKey(target))
	if err != nil {
		return nil, fmt.Errorf("lock chat session: %w", err)
	}
	defer release()

	session, err := s.chats.GetSession(ctx, target)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get chat session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	if !session.Active() {
		return nil, ErrSessionClosed
	}

	history, err := s.chats.History(ctx, session.ID, s.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}

	if n := len(history); n > 0 && history[n-1].Role == models.RoleUser {
		if history[n-1].Content != text {
			return nil, ErrReplyPending
		}
	} else {
		msg, err := s.chats.AppendMessage(ctx, session.ID, models.RoleUser, text)
		if err != nil {
			return nil, fmt.Errorf("store user message: %w", err)
		}
		s.messages.Add(ctx, 1, metric.WithAttributes(attribute.String("role", string(models.RoleUser))))
		history = append(history, *msg)
		if len(history) > s.opts.HistoryLimit {
			history = history[len(history)-s.opts.HistoryLimit:]
		}
	}

	reply, err := s.reply(ctx, history)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		s.failures.Add(ctx, 1)
		s.log.WithContext(ctx).Warn("Assistant reply failed, user message kept",
			"session_id", session.ID.String(),
			"error", err.Error(),
		)
		return nil, fmt.Errorf("%w: %w", ErrAssistantUnavailable, err)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	msg, err := s.chats.AppendMessage(writeCtx, session.ID, models.RoleAssistant, reply)
	if err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}
	s.messages.Add(ctx, 1, metric.WithAttributes(attribute.String("role", string(models.RoleAssistant))))

	return msg, nil
}

func (s *ChatService) reply(ctx context.Context, history []models.Message) (string, error) {
	turns := make([]ai.ChatTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, ai.ChatTurn{Role: string(m.Role), Content: m.Content})
	}

	workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ReplyTimeout)
	defer cancel()

	reply, err := callWithDeadline(workCtx, func(ctx context.Context) (string, error) {
		return s.engine.Converse(ctx, turns)
	})
	if err != nil {
		return "", err
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", errors.New("empty reply")
	}
	return reply, nil
}

// CloseActiveSession closes the user's active session. The next
// GetOrCreateActiveSession starts a new one.
func (s *ChatService) CloseActiveSession(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	release, err := s.locker.Acquire(ctx, userLockKey(userID))
	if err != nil {
		return nil, fmt.Errorf("lock chat user: %w", err)
	}
	defer release()

	active, err := s.chats.FindActive(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("find active session: %w", err)
	}

	// wait for an in-flight reply on the session
	releaseSession, err := s.locker.Acquire(ctx, sessionLockKey(active.ID))
	if err != nil {
		return nil, fmt.Errorf("lock chat session: %w", err)
	}
	defer releaseSession()

	closed, err := s.chats.CloseActive(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("close chat session: %w", err)
	}

	s.log.WithContext(ctx).Info("Chat session closed", "session_id", closed.ID.String(), "user_id", userID.String())
	return closed, nil
}
