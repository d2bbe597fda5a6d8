package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOpenAIServer(t *testing.T, content string, seen *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEngine_AnalyzeContent(t *testing.T) {
	var seen openai.ChatCompletionRequest
	srv := newOpenAIServer(t, `{"riskScore": 40, "summary": "ok", "licenses": [{"type": "MIT", "description": "MIT License"}], "violations": [{"type": "Trademark", "description": "logo", "severity": "LOW"}]}`, &seen)

	engine := NewOpenAIEngine("key", "gpt-4o-mini", srv.URL+"/v1")
	result, err := engine.AnalyzeContent(context.Background(), ContentRequest{Type: "image", Ref: "https://x.test/a.png"})
	require.NoError(t, err)

	assert.Equal(t, 40.0, result.RiskScore)
	assert.Equal(t, "openai", result.Engine)
	assert.Equal(t, "gpt-4o-mini", result.Model)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "low", result.Violations[0].Severity)

	require.NotNil(t, seen.ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONObject, seen.ResponseFormat.Type)
	require.Len(t, seen.Messages, 2)
	assert.Contains(t, seen.Messages[1].Content, "https://x.test/a.png")
}

func TestOpenAIEngine_InvalidJSON(t *testing.T) {
	var seen openai.ChatCompletionRequest
	srv := newOpenAIServer(t, "not json", &seen)

	_, err := NewOpenAIEngine("key", "", srv.URL+"/v1").AnalyzeContent(context.Background(), ContentRequest{Type: "text", Ref: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenAIEngine_Converse(t *testing.T) {
	var seen openai.ChatCompletionRequest
	srv := newOpenAIServer(t, "You need a license.", &seen)

	reply, err := NewOpenAIEngine("key", "gpt-4o-mini", srv.URL+"/v1").Converse(context.Background(), []ChatTurn{
		{Role: "user", Content: "Can I use this?"},
		{Role: "assistant", Content: "Which content?"},
		{Role: "user", Content: "The photo"},
	})
	require.NoError(t, err)
	assert.Equal(t, "You need a license.", reply)

	require.Len(t, seen.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, seen.Messages[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, seen.Messages[2].Role)
}
