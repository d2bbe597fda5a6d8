package storage

import (
	"encoding/json"
	"testing"

	"licenseguard/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportKey(t *testing.T) {
	check := &models.ContentCheck{ID: uuid.New(), UserID: uuid.New()}
	assert.Equal(t, "reports/"+check.UserID.String()+"/"+check.ID.String()+".json", ReportKey(check))
}

func TestEncodeReport(t *testing.T) {
	check := &models.ContentCheck{ID: uuid.New(), UserID: uuid.New(), Type: models.ContentTypeText, Content: "hello"}

	_, err := encodeReport(check)
	assert.Error(t, err, "pending checks are not archived")

	score := 42.0
	check.RiskScore = &score
	check.Violations = []models.Violation{{Type: "Copyright", Severity: models.SeverityLow}}

	body, err := encodeReport(check)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "scored", decoded["status"])
	assert.Equal(t, 42.0, decoded["riskScore"])
}
