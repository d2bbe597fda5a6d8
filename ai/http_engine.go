package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const httpEngineName = "http"

// HTTPEngine calls an external analysis microservice over JSON/HTTP.
// It expects POST {base}/analyze and POST {base}/converse.
type HTTPEngine struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewHTTPEngine creates an HTTPEngine. The client timeout is a backstop;
// callers bound each call with their own context deadline.
func NewHTTPEngine(baseURL, apiKey string, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type converseRequest struct {
	History []ChatTurn `json:"history"`
}

type converseResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (e *HTTPEngine) AnalyzeContent(ctx context.Context, req ContentRequest) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := e.post(ctx, "/analyze", req, &result); err != nil {
		return nil, err
	}
	if result.Engine == "" {
		result.Engine = httpEngineName
	}
	return &result, nil
}

func (e *HTTPEngine) Converse(ctx context.Context, history []ChatTurn) (string, error) {
	var resp converseResponse
	if err := e.post(ctx, "/converse", converseRequest{History: history}, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, resp.Error)
	}
	return resp.Response, nil
}

func (e *HTTPEngine) post(ctx context.Context, path string, body, out any) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrUnavailable, path, httpResp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrUnavailable, path, err)
	}
	return nil
}
