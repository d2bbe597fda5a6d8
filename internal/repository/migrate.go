package repository

import (
	"fmt"

	"licenseguard/backend/internal/models"

	"gorm.io/gorm"
)

// Migrate creates or updates the schema. The partial unique index is the
// store-level guarantee that a user never has two active chat sessions.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.ContentCheck{},
		&models.License{},
		&models.Violation{},
		&models.ChatSession{},
		&models.Message{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_chat_sessions_one_active ON chat_sessions (user_id) WHERE status = 'active'",
	).Error; err != nil {
		return fmt.Errorf("create active session index: %w", err)
	}

	return nil
}
