package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleEngine_AnalyzeContent(t *testing.T) {
	engine := NewRuleEngine()
	ctx := context.Background()

	tests := []struct {
		name           string
		req            ContentRequest
		minScore       float64
		maxScore       float64
		wantLicense    string
		wantViolations int
	}{
		{
			name:           "stock photo",
			req:            ContentRequest{Type: "image", Ref: "https://www.shutterstock.com/image-photo/cat-123"},
			minScore:       70,
			maxScore:       100,
			wantViolations: 1,
		},
		{
			name:        "wikimedia image",
			req:         ContentRequest{Type: "image", Ref: "https://upload.wikimedia.org/wikipedia/commons/a/ab/Cat.jpg"},
			minScore:    0,
			maxScore:    30,
			wantLicense: "CC-BY-SA",
		},
		{
			name:        "public domain text",
			req:         ContentRequest{Type: "text", Ref: "This poem is in the public domain."},
			minScore:    0,
			maxScore:    30,
			wantLicense: "Public Domain",
		},
		{
			name:           "reserved text",
			req:            ContentRequest{Type: "text", Ref: "© 2024 Example Corp. All rights reserved."},
			minScore:       70,
			maxScore:       100,
			wantViolations: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := engine.AnalyzeContent(ctx, tt.req)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, result.RiskScore, tt.minScore)
			assert.LessOrEqual(t, result.RiskScore, tt.maxScore)
			assert.Len(t, result.Violations, tt.wantViolations)
			assert.NotEmpty(t, result.Summary)
			assert.Equal(t, "rules", result.Engine)
			if tt.wantLicense != "" {
				require.NotEmpty(t, result.Licenses)
				assert.Equal(t, tt.wantLicense, result.Licenses[0].Type)
			}
			for _, v := range result.Violations {
				assert.Contains(t, []string{"low", "medium", "high"}, v.Severity)
			}
		})
	}
}

func TestRuleEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRuleEngine().AnalyzeContent(ctx, ContentRequest{Type: "text", Ref: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRuleEngine_Converse(t *testing.T) {
	reply, err := NewRuleEngine().Converse(context.Background(), []ChatTurn{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi"},
		{Role: "user", Content: "Is this fair use?"},
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "Fair use")
}
