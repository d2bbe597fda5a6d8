package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a chat session
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// ChatSession is a conversation between a user and the assistant.
// A user has at most one active session at a time.
type ChatSession struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"userId"`
	Status        SessionStatus `gorm:"type:varchar(16);not null;default:active" json:"status"`
	LastMessageAt *time.Time    `json:"lastMessageAt,omitempty"`
	ClosedAt      *time.Time    `json:"closedAt,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
	Messages      []Message     `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"messages"`
}

// BeforeCreate assigns the id
func (s *ChatSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Active reports whether the session accepts messages
func (s *ChatSession) Active() bool {
	return s.Status == SessionActive
}

// MessageRole identifies the author of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of a chat session. Seq is 1-based and strictly
// increasing within a session, and so is CreatedAt.
type Message struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_chat_messages_session_seq,priority:1" json:"sessionId"`
	Seq       int64       `gorm:"not null;uniqueIndex:idx_chat_messages_session_seq,priority:2" json:"seq"`
	Role      MessageRole `gorm:"type:varchar(16);not null" json:"role"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time   `gorm:"not null" json:"createdAt"`
}

// TableName keeps chat messages apart from any other message table
func (Message) TableName() string {
	return "chat_messages"
}

// BeforeCreate assigns the id
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// PostMessageRequest is the body of POST /api/chat/message
type PostMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}
