package ai

import (
	"context"
	"errors"
	"fmt"

	"licenseguard/backend/pkg/resilience"
)

// GuardedEngine puts a circuit breaker in front of an engine and makes
// sure every failure it returns wraps ErrUnavailable.
type GuardedEngine struct {
	next    Engine
	breaker *resilience.CircuitBreaker
}

// NewGuardedEngine wraps next with breaker
func NewGuardedEngine(next Engine, breaker *resilience.CircuitBreaker) *GuardedEngine {
	return &GuardedEngine{next: next, breaker: breaker}
}

// Breaker exposes the circuit breaker for health reporting
func (g *GuardedEngine) Breaker() *resilience.CircuitBreaker {
	return g.breaker
}

func (g *GuardedEngine) AnalyzeContent(ctx context.Context, req ContentRequest) (*AnalysisResult, error) {
	var result *AnalysisResult
	err := g.breaker.Execute(func() error {
		var err error
		result, err = g.next.AnalyzeContent(ctx, req)
		if err == nil && result == nil {
			err = errors.New("empty analysis result")
		}
		return err
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return result, nil
}

func (g *GuardedEngine) Converse(ctx context.Context, history []ChatTurn) (string, error) {
	var reply string
	err := g.breaker.Execute(func() error {
		var err error
		reply, err = g.next.Converse(ctx, history)
		return err
	})
	if err != nil {
		return "", unavailable(err)
	}
	return reply, nil
}

func unavailable(err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
