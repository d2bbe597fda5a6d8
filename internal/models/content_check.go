package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContentType is the kind of content submitted for a check
type ContentType string

const (
	ContentTypeText    ContentType = "text"
	ContentTypeArticle ContentType = "article"
	ContentTypeImage   ContentType = "image"
	ContentTypeVideo   ContentType = "video"
	ContentTypeAudio   ContentType = "audio"
)

// ContentTypes lists every accepted content type
var ContentTypes = []ContentType{
	ContentTypeText,
	ContentTypeArticle,
	ContentTypeImage,
	ContentTypeVideo,
	ContentTypeAudio,
}

// ParseContentType normalizes raw input and reports whether it names a known type
func ParseContentType(raw string) (ContentType, bool) {
	t := ContentType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range ContentTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// RequiresURL reports whether the content reference must be a URL
func (t ContentType) RequiresURL() bool {
	return t != ContentTypeText
}

// Severity grades a violation
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Check states exposed to clients
const (
	CheckStatusPending = "pending"
	CheckStatusScored  = "scored"
)

// Risk band thresholds used by the dashboard
const (
	HighRiskThreshold = 70.0
	LowRiskThreshold  = 30.0
)

// ContentCheck is a single risk assessment of submitted content.
// RiskScore stays nil until analysis completes; once set it never changes.
type ContentCheck struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_content_checks_user_created,priority:1" json:"userId"`
	Type       ContentType    `gorm:"type:varchar(16);not null" json:"type"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	RiskScore  *float64       `json:"riskScore"`
	Summary    string         `gorm:"type:text" json:"summary,omitempty"`
	EngineMeta datatypes.JSON `json:"engineMeta,omitempty"`
	AnalyzedAt *time.Time     `json:"analyzedAt,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index:idx_content_checks_user_created,priority:2" json:"createdAt"`
	Licenses   []License      `gorm:"foreignKey:ContentCheckID;constraint:OnDelete:CASCADE" json:"licenses"`
	Violations []Violation    `gorm:"foreignKey:ContentCheckID;constraint:OnDelete:CASCADE" json:"violations"`
}

// BeforeCreate assigns the id
func (c *ContentCheck) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Pending reports whether analysis has not completed yet
func (c *ContentCheck) Pending() bool {
	return c.RiskScore == nil
}

// Status returns "pending" or "scored"
func (c *ContentCheck) Status() string {
	if c.Pending() {
		return CheckStatusPending
	}
	return CheckStatusScored
}

// MarshalJSON adds the derived status to the JSON representation
func (c ContentCheck) MarshalJSON() ([]byte, error) {
	type plain ContentCheck
	return json.Marshal(struct {
		plain
		Status string `json:"status"`
	}{plain(c), c.Status()})
}

// License is a license finding attached to a scored check
type License struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContentCheckID uuid.UUID `gorm:"type:uuid;not null;index" json:"contentCheckId"`
	Type           string    `gorm:"type:varchar(64);not null" json:"type"`
	Description    string    `gorm:"type:text" json:"description"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BeforeCreate assigns the id
func (l *License) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Violation is a copyright or licensing problem attached to a scored check
type Violation struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ContentCheckID uuid.UUID `gorm:"type:uuid;not null;index" json:"contentCheckId"`
	Type           string    `gorm:"type:varchar(64);not null" json:"type"`
	Description    string    `gorm:"type:text" json:"description"`
	Severity       Severity  `gorm:"type:varchar(8);not null" json:"severity"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BeforeCreate assigns the id
func (v *Violation) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// CreateContentCheckRequest is the body of POST /api/content-checks.
// "content" is accepted as an alias of "contentRef".
type CreateContentCheckRequest struct {
	Type       string `json:"type" binding:"required"`
	ContentRef string `json:"contentRef"`
	Content    string `json:"content"`
}

// Ref returns the content reference from whichever field was supplied
func (r CreateContentCheckRequest) Ref() string {
	if strings.TrimSpace(r.ContentRef) != "" {
		return r.ContentRef
	}
	return r.Content
}

// CheckStats are the per-user counts shown on the dashboard
type CheckStats struct {
	Total           int64 `json:"totalChecks"`
	HighRisk        int64 `json:"highRiskChecks"`
	LowRisk         int64 `json:"lowRiskChecks"`
	Pending         int64 `json:"pendingChecks"`
	TotalViolations int64 `json:"totalViolations"`
}

// DashboardOverview is the response of GET /api/dashboard/stats
type DashboardOverview struct {
	CheckStats
	RecentActivity []ContentCheck `json:"recentActivity"`
}
