package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const (
	openAIEngineName = "openai"
	maxTokens        = 1024
)

// OpenAIEngine asks an OpenAI chat model for JSON analysis results and chat replies
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

// NewOpenAIEngine creates an OpenAIEngine. baseURL may be empty to use the public API.
func NewOpenAIEngine(apiKey, model, baseURL string) *OpenAIEngine {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIEngine{client: openai.NewClientWithConfig(cfg), model: model}
}

func (e *OpenAIEngine) request(messages []openai.ChatCompletionMessage, jsonOutput bool) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model:    e.model,
		Messages: messages,
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// reasoning models reject MaxTokens
	if strings.HasPrefix(e.model, "o1") || strings.HasPrefix(e.model, "o3") || strings.HasPrefix(e.model, "o4") || strings.HasPrefix(e.model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}
	return req
}

func (e *OpenAIEngine) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}

func (e *OpenAIEngine) AnalyzeContent(ctx context.Context, req ContentRequest) (*AnalysisResult, error) {
	content, err := e.complete(ctx, e.request([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: analysisSystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: analysisUserPrompt(req)},
	}, true))
	if err != nil {
		return nil, err
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("%w: decode analysis: %v", ErrUnavailable, err)
	}
	for i := range result.Violations {
		result.Violations[i].Severity = strings.ToLower(strings.TrimSpace(result.Violations[i].Severity))
	}
	result.Engine = openAIEngineName
	result.Model = e.model

	return &result, nil
}

func (e *OpenAIEngine) Converse(ctx context.Context, history []ChatTurn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}

	return e.complete(ctx, e.request(messages, false))
}
