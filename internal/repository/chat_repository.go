package repository

import (
	"context"
	"time"

	"licenseguard/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatRepository interface {
	FindActive(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error)
	CreateSession(ctx context.Context, session *models.ChatSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error)
	CloseActive(ctx context.Context, userID uuid.UUID, at time.Time) (*models.ChatSession, error)
	History(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Message, error)
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role models.MessageRole, content string) (*models.Message, error)
}

type GormChatRepository struct {
	db *gorm.DB
}

func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

// FindActive returns the user's active session with messages oldest-first
func (r *GormChatRepository) FindActive(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("user_id = ? AND status = ?", userID, models.SessionActive).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *GormChatRepository) CreateSession(ctx context.Context, session *models.ChatSession) error {
	return r.db.WithContext(ctx).Omit("Messages").Create(session).Error
}

func (r *GormChatRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CloseActive moves the user's active session to closed and returns it.
// gorm.ErrRecordNotFound is returned when there is no active session.
func (r *GormChatRepository) CloseActive(ctx context.Context, userID uuid.UUID, at time.Time) (*models.ChatSession, error) {
	var closed models.ChatSession

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND status = ?", userID, models.SessionActive).First(&closed).Error; err != nil {
			return err
		}

		res := tx.Model(&models.ChatSession{}).
			Where("id = ? AND status = ?", closed.ID, models.SessionActive).
			Updates(map[string]any{"status": models.SessionClosed, "closed_at": at})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		closed.Status = models.SessionClosed
		closed.ClosedAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &closed, nil
}

// History returns up to limit most recent messages, oldest-first
func (r *GormChatRepository) History(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AppendMessage adds a message at the end of the session. Seq is the last
// seq plus one and CreatedAt is kept strictly after the previous message.
func (r *GormChatRepository) AppendMessage(ctx context.Context, sessionID uuid.UUID, role models.MessageRole, content string) (*models.Message, error) {
	msg := &models.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last models.Message
		res := tx.Where("session_id = ?", sessionID).Order("seq DESC").Limit(1).Find(&last)
		if res.Error != nil {
			return res.Error
		}

		now := time.Now().UTC().Truncate(time.Microsecond)
		msg.Seq = 1
		if res.RowsAffected > 0 {
			msg.Seq = last.Seq + 1
			if !now.After(last.CreatedAt) {
				now = last.CreatedAt.UTC().Add(time.Microsecond)
			}
		}
		msg.CreatedAt = now

		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		return tx.Model(&models.ChatSession{}).
			Where("id = ?", sessionID).
			Update("last_message_at", now).Error
	})
	if err != nil {
		return nil, err
	}

	return msg, nil
}
