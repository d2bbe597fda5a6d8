// Package ai holds the analysis engines that score content for
// copyright and licensing risk and answer chat questions.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when an engine cannot produce a result.
// Every engine failure is wrapped with it.
var ErrUnavailable = errors.New("analysis engine unavailable")

// ContentRequest describes the content to analyze
type ContentRequest struct {
	Type string `json:"type"`
	Ref  string `json:"contentRef"`
}

// LicenseFinding is a license detected on the content
type LicenseFinding struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ViolationFinding is a potential infringement. Severity is low, medium or high.
type ViolationFinding struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// AnalysisResult is what an engine returns for a piece of content
type AnalysisResult struct {
	RiskScore  float64            `json:"riskScore"`
	Summary    string             `json:"summary"`
	Licenses   []LicenseFinding   `json:"licenses"`
	Violations []ViolationFinding `json:"violations"`
	// Engine and Model identify who produced the result
	Engine string `json:"engine,omitempty"`
	Model  string `json:"model,omitempty"`
}

// ChatTurn is one message of a conversation passed to Converse
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Engine scores content and converses about it
type Engine interface {
	AnalyzeContent(ctx context.Context, req ContentRequest) (*AnalysisResult, error)
	Converse(ctx context.Context, history []ChatTurn) (string, error)
}
