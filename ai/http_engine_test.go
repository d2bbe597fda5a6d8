package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPEngine_AnalyzeContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req ContentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "article", req.Type)

		_ = json.NewEncoder(w).Encode(AnalysisResult{
			RiskScore:  85,
			Summary:    "S",
			Violations: []ViolationFinding{{Type: "Copyright", Description: "D", Severity: "high"}},
		})
	}))
	defer srv.Close()

	engine := NewHTTPEngine(srv.URL+"/", "secret", time.Second)
	result, err := engine.AnalyzeContent(context.Background(), ContentRequest{Type: "article", Ref: "https://x.test/a"})
	require.NoError(t, err)

	assert.Equal(t, 85.0, result.RiskScore)
	assert.Equal(t, "http", result.Engine)
	require.Len(t, result.Violations, 1)
	assert.Equal(t, "high", result.Violations[0].Severity)
}

func TestHTTPEngine_Converse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req converseRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if !assert.Len(t, req.History, 1) {
			return
		}

		_ = json.NewEncoder(w).Encode(converseResponse{Response: "echo: " + req.History[0].Content})
	}))
	defer srv.Close()

	reply, err := NewHTTPEngine(srv.URL, "", time.Second).Converse(context.Background(), []ChatTurn{{Role: "user", Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", reply)
}

func TestHTTPEngine_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/analyze":
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		case "/converse":
			_ = json.NewEncoder(w).Encode(converseResponse{Error: "model offline"})
		}
	}))
	defer srv.Close()

	engine := NewHTTPEngine(srv.URL, "", time.Second)

	_, err := engine.AnalyzeContent(context.Background(), ContentRequest{Type: "text", Ref: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = engine.Converse(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPEngine_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPEngine(srv.URL, "", 5*time.Second).AnalyzeContent(ctx, ContentRequest{Type: "text", Ref: "x"})
	assert.ErrorIs(t, err, ErrUnavailable)
}
