package repository_test

import (
	"context"
	"testing"
	"time"

	"licenseguard/backend/internal/models"
	"licenseguard/backend/internal/repository"
	"licenseguard/backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestApplyAnalysis_OnlyOnce(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewGormContentCheckRepository(db)
	ctx := context.Background()

	check := &models.ContentCheck{UserID: uuid.New(), Type: models.ContentTypeText, Content: "text"}
	require.NoError(t, repo.Create(ctx, check))

	analysis := func(score float64) *repository.Analysis {
		return &repository.Analysis{
			RiskScore:  score,
			Summary:    "summary",
			EngineMeta: datatypes.JSON(`{"engine":"test"}`),
			AnalyzedAt: time.Now().UTC(),
			Licenses:   []models.License{{Type: "CC-BY-4.0"}},
			Violations: []models.Violation{{Type: "Copyright", Severity: models.SeverityMedium}},
		}
	}

	applied, err := repo.ApplyAnalysis(ctx, check.ID, analysis(40))
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.ApplyAnalysis(ctx, check.ID, analysis(90))
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := repo.GetByID(ctx, check.ID)
	require.NoError(t, err)
	require.NotNil(t, got.RiskScore)
	assert.Equal(t, 40.0, *got.RiskScore)
	assert.Len(t, got.Licenses, 1)
	assert.Len(t, got.Violations, 1)
	assert.JSONEq(t, `{"engine":"test"}`, string(got.EngineMeta))
}

func TestGetForUser_ScopesByOwner(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewGormContentCheckRepository(db)
	ctx := context.Background()

	owner := uuid.New()
	check := &models.ContentCheck{UserID: owner, Type: models.ContentTypeImage, Content: "https://x.test/a.png"}
	require.NoError(t, repo.Create(ctx, check))

	_, err := repo.GetForUser(ctx, owner, check.ID)
	require.NoError(t, err)

	_, err = repo.GetForUser(ctx, uuid.New(), check.ID)
	assert.Error(t, err)
}

func TestAppendMessage_SequenceAndTime(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewGormChatRepository(db)
	ctx := context.Background()

	session := &models.ChatSession{UserID: uuid.New(), Status: models.SessionActive}
	require.NoError(t, repo.CreateSession(ctx, session))

	var previous *models.Message
	for i := 1; i <= 6; i++ {
		role := models.RoleUser
		if i%2 == 0 {
			role = models.RoleAssistant
		}
		msg, err := repo.AppendMessage(ctx, session.ID, role, "m")
		require.NoError(t, err)
		assert.Equal(t, int64(i), msg.Seq)
		if previous != nil {
			assert.True(t, msg.CreatedAt.After(previous.CreatedAt))
		}
		previous = msg
	}

	history, err := repo.History(ctx, session.ID, 4)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, int64(3), history[0].Seq)
	assert.Equal(t, int64(6), history[3].Seq)

	got, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
}

func TestActiveSessionIndex(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewGormChatRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.CreateSession(ctx, &models.ChatSession{UserID: userID, Status: models.SessionActive}))
	assert.Error(t, repo.CreateSession(ctx, &models.ChatSession{UserID: userID, Status: models.SessionActive}))

	closed, err := repo.CloseActive(ctx, userID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, models.SessionClosed, closed.Status)

	require.NoError(t, repo.CreateSession(ctx, &models.ChatSession{UserID: userID, Status: models.SessionActive}))

	active, err := repo.FindActive(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, closed.ID, active.ID)
}
