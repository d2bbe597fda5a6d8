package ai

import (
	"fmt"

	"licenseguard/backend/pkg/config"
	"licenseguard/backend/pkg/logger"
	"licenseguard/backend/pkg/resilience"
)

// NewEngine builds the engine selected by ANALYSIS_PROVIDER, wrapped in a
// circuit breaker.
func NewEngine(cfg *config.Config, log *logger.Logger) (*GuardedEngine, error) {
	var engine Engine

	switch cfg.Analysis.Provider {
	case "", "rules":
		engine = NewRuleEngine()
	case "http":
		if cfg.Analysis.ServiceURL == "" {
			return nil, fmt.Errorf("ANALYSIS_SERVICE_URL is required for the http provider")
		}
		engine = NewHTTPEngine(cfg.Analysis.ServiceURL, cfg.Analysis.APIKey, cfg.Analysis.Timeout)
	case "openai":
		if cfg.Analysis.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		engine = NewOpenAIEngine(cfg.Analysis.OpenAIKey, cfg.Analysis.OpenAIModel, cfg.Analysis.OpenAIBaseURL)
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", cfg.Analysis.Provider)
	}

	breakerCfg := resilience.DefaultCircuitBreakerConfig("analysis-engine")
	if cfg.Analysis.BreakerFailures > 0 {
		breakerCfg.FailureThreshold = uint(cfg.Analysis.BreakerFailures)
	}
	if cfg.Analysis.BreakerResetTime > 0 {
		breakerCfg.RetryTimeout = cfg.Analysis.BreakerResetTime
	}

	log.Info("Analysis engine configured", "provider", cfg.Analysis.Provider)

	return NewGuardedEngine(engine, resilience.NewCircuitBreaker(breakerCfg, log)), nil
}
