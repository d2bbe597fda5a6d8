package service

import (
	"context"
	"sync"

	"licenseguard/backend/ai"
)

type fakeEngine struct {
	mu sync.Mutex

	result     *ai.AnalysisResult
	analyzeErr error
	reply      string
	replyErr   error
	// block, when set, holds every call until it is closed or ctx ends
	block chan struct{}

	analyzeCalls int
	conversed    [][]ai.ChatTurn
}

func (f *fakeEngine) wait(ctx context.Context) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block == nil {
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeEngine) AnalyzeContent(ctx context.Context, req ai.ContentRequest) (*ai.AnalysisResult, error) {
	f.mu.Lock()
	f.analyzeCalls++
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	copied := *f.result
	return &copied, nil
}

func (f *fakeEngine) Converse(ctx context.Context, history []ai.ChatTurn) (string, error) {
	f.mu.Lock()
	f.conversed = append(f.conversed, append([]ai.ChatTurn(nil), history...))
	f.mu.Unlock()

	if err := f.wait(ctx); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return "", f.replyErr
	}
	return f.reply, nil
}

func (f *fakeEngine) set(fn func(f *fakeEngine)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.analyzeCalls
}

func highRiskResult() *ai.AnalysisResult {
	return &ai.AnalysisResult{
		RiskScore: 85,
		Summary:   "S",
		Licenses:  []ai.LicenseFinding{},
		Violations: []ai.ViolationFinding{
			{Type: "Copyright", Severity: "high", Description: "D"},
		},
		Engine: "fake",
	}
}
