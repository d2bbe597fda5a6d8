package repository

import (
	"context"
	"time"

	"licenseguard/backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Analysis is the derived state written when a check is scored
type Analysis struct {
	RiskScore  float64
	Summary    string
	EngineMeta datatypes.JSON
	AnalyzedAt time.Time
	Licenses   []models.License
	Violations []models.Violation
}

type ContentCheckRepository interface {
	Create(ctx context.Context, check *models.ContentCheck) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ContentCheck, error)
	GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.ContentCheck, error)
	ApplyAnalysis(ctx context.Context, id uuid.UUID, analysis *Analysis) (bool, error)
	ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.ContentCheck, error)
	ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]models.ContentCheck, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.CheckStats, error)
}

type GormContentCheckRepository struct {
	db *gorm.DB
}

func NewGormContentCheckRepository(db *gorm.DB) *GormContentCheckRepository {
	return &GormContentCheckRepository{db: db}
}

func withFindings(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Licenses", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Violations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })
}

func (r *GormContentCheckRepository) Create(ctx context.Context, check *models.ContentCheck) error {
	return r.db.WithContext(ctx).Omit("Licenses", "Violations").Create(check).Error
}

func (r *GormContentCheckRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ContentCheck, error) {
	var check models.ContentCheck
	err := withFindings(r.db.WithContext(ctx)).Where("id = ?", id).First(&check).Error
	if err != nil {
		return nil, err
	}
	return &check, nil
}

func (r *GormContentCheckRepository) GetForUser(ctx context.Context, userID, id uuid.UUID) (*models.ContentCheck, error) {
	var check models.ContentCheck
	err := withFindings(r.db.WithContext(ctx)).
		Where("id = ? AND user_id = ?", id, userID).
		First(&check).Error
	if err != nil {
		return nil, err
	}
	return &check, nil
}

// ApplyAnalysis scores a pending check and stores its findings in one
// transaction. It returns false without writing anything when the check
// was already scored.
func (r *GormContentCheckRepository) ApplyAnalysis(ctx context.Context, id uuid.UUID, analysis *Analysis) (bool, error) {
	applied := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ContentCheck{}).
			Where("id = ? AND risk_score IS NULL", id).
			Updates(map[string]any{
				"risk_score":  analysis.RiskScore,
				"summary":     analysis.Summary,
				"engine_meta": analysis.EngineMeta,
				"analyzed_at": analysis.AnalyzedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		for i := range analysis.Licenses {
			analysis.Licenses[i].ContentCheckID = id
			analysis.Licenses[i].CreatedAt = analysis.AnalyzedAt
		}
		for i := range analysis.Violations {
			analysis.Violations[i].ContentCheckID = id
			analysis.Violations[i].CreatedAt = analysis.AnalyzedAt
		}

		if len(analysis.Licenses) > 0 {
			if err := tx.Create(&analysis.Licenses).Error; err != nil {
				return err
			}
		}
		if len(analysis.Violations) > 0 {
			if err := tx.Create(&analysis.Violations).Error; err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

func (r *GormContentCheckRepository) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.ContentCheck, error) {
	checks := []models.ContentCheck{}
	err := withFindings(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&checks).Error
	return checks, err
}

func (r *GormContentCheckRepository) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]models.ContentCheck, error) {
	checks := []models.ContentCheck{}
	err := r.db.WithContext(ctx).
		Where("risk_score IS NULL AND created_at < ?", createdBefore).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&checks).Error
	return checks, err
}

// Stats computes the dashboard counts. The bands are predicates on a
// nullable column, so pending rows never fall into either band.
func (r *GormContentCheckRepository) Stats(ctx context.Context, userID uuid.UUID) (*models.CheckStats, error) {
	var stats models.CheckStats

	err := r.db.WithContext(ctx).Model(&models.ContentCheck{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN risk_score >= ? THEN 1 ELSE 0 END), 0) AS high_risk,
			COALESCE(SUM(CASE WHEN risk_score <= ? THEN 1 ELSE 0 END), 0) AS low_risk,
			COALESCE(SUM(CASE WHEN risk_score IS NULL THEN 1 ELSE 0 END), 0) AS pending`,
			models.HighRiskThreshold, models.LowRiskThreshold).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&models.Violation{}).
		Joins("JOIN content_checks ON content_checks.id = violations.content_check_id").
		Where("content_checks.user_id = ?", userID).
		Count(&stats.TotalViolations).Error
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
