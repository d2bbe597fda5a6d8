package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"licenseguard/backend/ai"
	"licenseguard/backend/internal/models"
	"licenseguard/backend/internal/repository"
	"licenseguard/backend/internal/storage"
	"licenseguard/backend/pkg/lock"
	"licenseguard/backend/pkg/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
	MaxTextLength    = 20000
	maxURLLength     = 2048

	writeTimeout   = 10 * time.Second
	archiveTimeout = 10 * time.Second
)

// ContentCheckOptions tunes the content check service
type ContentCheckOptions struct {
	// AnalysisTimeout bounds each engine call
	AnalysisTimeout time.Duration
	// RetryMinAge keeps the retry worker away from checks still being submitted
	RetryMinAge time.Duration
}

// ContentCheckService runs the submit, analyze, persist and read cycle of content checks
type ContentCheckService struct {
	checks  repository.ContentCheckRepository
	engine  ai.Engine
	locker  lock.Locker
	archive storage.ReportArchive
	opts    ContentCheckOptions
	log     *logger.Logger
	now     func() time.Time

	tracer    trace.Tracer
	submitted metric.Int64Counter
	scored    metric.Int64Counter
	failures  metric.Int64Counter
}

// NewContentCheckService creates a new content check service
func NewContentCheckService(
	checks repository.ContentCheckRepository,
	engine ai.Engine,
	locker lock.Locker,
	archive storage.ReportArchive,
	opts ContentCheckOptions,
	log *logger.Logger,
) *ContentCheckService {
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = 30 * time.Second
	}
	if archive == nil {
		archive = storage.NopArchive{}
	}

	meter := otel.Meter("licenseguard/content-checks")

	return &ContentCheckService{
		checks:    checks,
		engine:    engine,
		locker:    locker,
		archive:   archive,
		opts:      opts,
		log:       log.With("service", "content_check"),
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		tracer:    otel.Tracer("licenseguard/content-checks"),
		submitted: counter(meter, "content_checks_submitted", "Content checks accepted for analysis"),
		scored:    counter(meter, "content_checks_scored", "Content checks that received a risk score"),
		failures:  counter(meter, "analysis_failures", "Failed or rejected analysis engine calls"),
	}
}

func checkLockKey(id uuid.UUID) string {
	return "content-check:" + id.String()
}

// ValidateSubmission normalizes the type and reference of a submission.
// Every type except text needs an absolute http(s) URL.
func ValidateSubmission(rawType, ref string) (models.ContentType, string, error) {
	contentType, ok := models.ParseContentType(rawType)
	if !ok {
		return "", "", invalid("type", "must be one of text, article, image, video, audio")
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", invalid("contentRef", "is required")
	}

	if !contentType.RequiresURL() {
		if utf8.RuneCountInString(ref) > MaxTextLength {
			return "", "", invalid("contentRef", fmt.Sprintf("must be at most %d characters", MaxTextLength))
		}
		return contentType, ref, nil
	}

	if len(ref) > maxURLLength {
		return "", "", invalid("contentRef", fmt.Sprintf("must be at most %d characters", maxURLLength))
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", invalid("contentRef", "must be an absolute http(s) URL")
	}

	return contentType, ref, nil
}

// Submit records a new check and analyzes it. When the engine fails the
// pending check is returned together with ErrAnalysisUnavailable.
func (s *ContentCheckService) Submit(ctx context.Context, userID uuid.UUID, rawType, ref string) (*models.ContentCheck, error) {
	ctx, span := s.tracer.Start(ctx, "ContentCheckService.Submit")
	defer span.End()

	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	contentType, ref, err := ValidateSubmission(rawType, ref)
	if err != nil {
		return nil, err
	}

	check := &models.ContentCheck{
		UserID:    userID,
		Type:      contentType,
		Content:   ref,
		CreatedAt: s.now(),
	}
	if err := s.checks.Create(ctx, check); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create content check: %w", err)
	}
	check.Licenses = []models.License{}
	check.Violations = []models.Violation{}

	span.SetAttributes(attribute.String("content_check.id", check.ID.String()), attribute.String("content_check.type", string(contentType)))
	s.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(contentType))))

	scored, err := s.analyze(ctx, check.ID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrAnalysisUnavailable) {
			return check, err
		}
		return nil, err
	}

	return scored, nil
}

// analyze scores a pending check under its lock. A check that is already
// scored is returned unchanged.
func (s *ContentCheckService) analyze(ctx context.Context, id uuid.UUID) (*models.ContentCheck, error) {
	log := s.log.WithContext(ctx).With("content_check_id", id.String())

	// the analysis outlives a cancelled request so the result is not wasted
	base := context.WithoutCancel(ctx)
	workCtx, cancel := context.WithTimeout(base, s.opts.AnalysisTimeout)
	defer cancel()

	release, err := s.locker.Acquire(workCtx, checkLockKey(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
	}
	defer release()

	check, err := s.checks.GetByID(workCtx, id)
	if err != nil {
		return nil, fmt.Errorf("load content check: %w", err)
	}
	if !check.Pending() {
		return check, nil
	}

	start := time.Now()
	result, err := callWithDeadline(workCtx, func(ctx context.Context) (*ai.AnalysisResult, error) {
		return s.engine.AnalyzeContent(ctx, ai.ContentRequest{Type: string(check.Type), Ref: check.Content})
	})
	latency := time.Since(start)
	if err == nil {
		var analysis *repository.Analysis
		analysis, err = toAnalysis(result, latency, s.now())
		if err == nil {
			writeCtx, cancelWrite := context.WithTimeout(base, writeTimeout)
			defer cancelWrite()
			return s.store(writeCtx, log, id, analysis)
		}
	}

	s.failures.Add(ctx, 1)
	log.Warn("Content analysis failed, check stays pending", "error", err.Error(), "latency_ms", latency.Milliseconds())
	return nil, fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
}

func (s *ContentCheckService) store(ctx context.Context, log *logger.Logger, id uuid.UUID, analysis *repository.Analysis) (*models.ContentCheck, error) {
	applied, err := s.checks.ApplyAnalysis(ctx, id, analysis)
	if err != nil {
		return nil, fmt.Errorf("store analysis: %w", err)
	}

	check, err := s.checks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload content check: %w", err)
	}

	if applied {
		s.scored.Add(ctx, 1)
		log.Info("Content check scored",
			"risk_score", analysis.RiskScore,
			"licenses", len(analysis.Licenses),
			"violations", len(analysis.Violations),
		)

		archiveCtx, cancel := context.WithTimeout(ctx, archiveTimeout)
		defer cancel()
		if err := s.archive.Store(archiveCtx, check); err != nil {
			log.Warn("Failed to archive report", "error", err.Error())
		}
	}

	return check, nil
}

// toAnalysis checks the engine result against the engine contract and
// converts it to rows. Nothing is written for a result that breaks it.
func toAnalysis(result *ai.AnalysisResult, latency time.Duration, now time.Time) (*repository.Analysis, error) {
	if result == nil {
		return nil, errors.New("empty analysis result")
	}
	if math.IsNaN(result.RiskScore) || result.RiskScore < 0 || result.RiskScore > 100 {
		return nil, fmt.Errorf("risk score %v outside [0,100]", result.RiskScore)
	}

	licenses := make([]models.License, 0, len(result.Licenses))
	for _, l := range result.Licenses {
		licenseType := strings.TrimSpace(l.Type)
		if licenseType == "" {
			return nil, errors.New("license without type")
		}
		licenses = append(licenses, models.License{Type: licenseType, Description: strings.TrimSpace(l.Description)})
	}

	violations := make([]models.Violation, 0, len(result.Violations))
	for _, v := range result.Violations {
		violationType := strings.TrimSpace(v.Type)
		if violationType == "" {
			return nil, errors.New("violation without type")
		}
		severity := models.Severity(strings.ToLower(strings.TrimSpace(v.Severity)))
		if !severity.Valid() {
			return nil, fmt.Errorf("unknown violation severity %q", v.Severity)
		}
		violations = append(violations, models.Violation{
			Type:        violationType,
			Description: strings.TrimSpace(v.Description),
			Severity:    severity,
		})
	}

	meta, err := json.Marshal(map[string]any{
		"engine":    result.Engine,
		"model":     result.Model,
		"latencyMs": latency.Milliseconds(),
	})
	if err != nil {
		return nil, err
	}

	return &repository.Analysis{
		RiskScore:  result.RiskScore,
		Summary:    strings.TrimSpace(result.Summary),
		EngineMeta: datatypes.JSON(meta),
		AnalyzedAt: now,
		Licenses:   licenses,
		Violations: violations,
	}, nil
}

// Get returns one of the user's checks. A pending check is analyzed again
// on read; if that fails the pending check is returned as is.
func (s *ContentCheckService) Get(ctx context.Context, userID, id uuid.UUID) (*models.ContentCheck, error) {
	ctx, span := s.tracer.Start(ctx, "ContentCheckService.Get")
	defer span.End()

	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	check, err := s.checks.GetForUser(ctx, userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContentCheckNotFound
		}
		return nil, fmt.Errorf("get content check: %w", err)
	}

	if check.Pending() {
		scored, err := s.analyze(ctx, id)
		if err == nil {
			return scored, nil
		}
		s.log.WithContext(ctx).Info("Pending check retry on read failed", "content_check_id", id.String(), "error", err.Error())
	}

	return check, nil
}

// NormalizeLimit applies the default and maximum page size
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ListRecent returns the user's newest checks first, ties broken by id
func (s *ContentCheckService) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]models.ContentCheck, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	checks, err := s.checks.ListRecent(ctx, userID, NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list content checks: %w", err)
	}
	return checks, nil
}

// GetStats returns the user's total, high risk, low risk and pending counts
func (s *ContentCheckService) GetStats(ctx context.Context, userID uuid.UUID) (*models.CheckStats, error) {
	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	stats, err := s.checks.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("content check stats: %w", err)
	}
	return stats, nil
}

// RetryPending analyzes up to batch pending checks, oldest first
func (s *ContentCheckService) RetryPending(ctx context.Context, batch int) (scored, failed int, err error) {
	ctx, span := s.tracer.Start(ctx, "ContentCheckService.RetryPending")
	defer span.End()

	pending, err := s.checks.ListPending(ctx, s.now().Add(-s.opts.RetryMinAge), batch)
	if err != nil {
		return 0, 0, fmt.Errorf("list pending checks: %w", err)
	}

	for _, check := range pending {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.analyze(ctx, check.ID); err != nil {
			failed++
			continue
		}
		scored++
	}

	span.SetAttributes(attribute.Int("retry.scored", scored), attribute.Int("retry.failed", failed))
	return scored, failed, nil
}
