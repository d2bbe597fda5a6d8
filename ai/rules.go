package ai

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	ruleEngineName = "rules"

	baseTextRisk = 20.0
	baseURLRisk  = 35.0
)

type hostRule struct {
	hosts     []string
	license   *LicenseFinding
	violation *ViolationFinding
	risk      float64
}

var hostRules = []hostRule{
	{
		hosts:     []string{"shutterstock.com", "gettyimages.com", "istockphoto.com", "stock.adobe.com", "alamy.com"},
		violation: &ViolationFinding{Type: "Copyright", Description: "Stock media requires a paid license for reuse", Severity: "high"},
		risk:      55,
	},
	{
		hosts:     []string{"youtube.com", "youtu.be", "vimeo.com", "tiktok.com", "instagram.com"},
		violation: &ViolationFinding{Type: "Copyright", Description: "Platform uploads remain owned by the uploader; reuse needs permission", Severity: "medium"},
		risk:      35,
	},
	{
		hosts:     []string{"spotify.com", "soundcloud.com", "music.apple.com"},
		violation: &ViolationFinding{Type: "Copyright", Description: "Recorded music is protected by copyright and neighbouring rights", Severity: "high"},
		risk:      50,
	},
	{
		hosts:   []string{"wikimedia.org", "wikipedia.org"},
		license: &LicenseFinding{Type: "CC-BY-SA", Description: "Creative Commons Attribution-ShareAlike License"},
		risk:    -15,
	},
	{
		hosts:   []string{"unsplash.com", "pexels.com", "pixabay.com"},
		license: &LicenseFinding{Type: "FREE-STOCK", Description: "Free stock license; attribution appreciated, resale of unaltered copies prohibited"},
		risk:    -20,
	},
}

type textRule struct {
	pattern   *regexp.Regexp
	license   *LicenseFinding
	violation *ViolationFinding
	risk      float64
}

var textRules = []textRule{
	{
		pattern:   regexp.MustCompile(`(?i)all rights reserved`),
		violation: &ViolationFinding{Type: "Copyright", Description: "Content is marked all rights reserved", Severity: "high"},
		risk:      45,
	},
	{
		pattern:   regexp.MustCompile(`(?i)(©|\(c\)|copyright\s+(?:\d{4}|by))`),
		violation: &ViolationFinding{Type: "Copyright", Description: "Content carries a copyright notice", Severity: "medium"},
		risk:      25,
	},
	{
		pattern:   regexp.MustCompile(`(?i)(trademark|™|®)`),
		violation: &ViolationFinding{Type: "Trademark", Description: "Content references a registered trademark", Severity: "low"},
		risk:      10,
	},
	{
		pattern: regexp.MustCompile(`(?i)(creative\s*commons|\bcc[- ]by\b)`),
		license: &LicenseFinding{Type: "CC-BY", Description: "Creative Commons Attribution License"},
		risk:    -20,
	},
	{
		pattern: regexp.MustCompile(`(?i)\bmit license\b`),
		license: &LicenseFinding{Type: "MIT", Description: "MIT License"},
		risk:    -20,
	},
	{
		pattern: regexp.MustCompile(`(?i)\bapache license\b`),
		license: &LicenseFinding{Type: "Apache-2.0", Description: "Apache License 2.0"},
		risk:    -20,
	},
	{
		pattern: regexp.MustCompile(`(?i)(public domain|\bcc0\b)`),
		license: &LicenseFinding{Type: "Public Domain", Description: "Dedicated to the public domain"},
		risk:    -30,
	},
}

// RuleEngine scores content with fixed heuristics over the host name and
// the text. It needs no external service and is used for local development.
type RuleEngine struct{}

// NewRuleEngine creates a RuleEngine
func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

func (e *RuleEngine) AnalyzeContent(ctx context.Context, req ContentRequest) (*AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result := &AnalysisResult{
		Licenses:   []LicenseFinding{},
		Violations: []ViolationFinding{},
		Engine:     ruleEngineName,
	}

	score := baseTextRisk
	text := req.Ref

	if req.Type != "text" {
		score = baseURLRisk
		if u, err := url.Parse(req.Ref); err == nil {
			host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
			for _, rule := range hostRules {
				if !matchesHost(host, rule.hosts) {
					continue
				}
				score += rule.risk
				if rule.license != nil {
					result.Licenses = append(result.Licenses, *rule.license)
				}
				if rule.violation != nil {
					result.Violations = append(result.Violations, *rule.violation)
				}
			}
			text, _ = url.PathUnescape(u.Path + " " + u.RawQuery)
		}
	}

	for _, rule := range textRules {
		if !rule.pattern.MatchString(text) {
			continue
		}
		score += rule.risk
		if rule.license != nil {
			result.Licenses = append(result.Licenses, *rule.license)
		}
		if rule.violation != nil {
			result.Violations = append(result.Violations, *rule.violation)
		}
	}

	result.RiskScore = clamp(score, 0, 100)
	result.Summary = summarize(result)

	return result, nil
}

func (e *RuleEngine) Converse(ctx context.Context, history []ChatTurn) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var question string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			question = strings.ToLower(history[i].Content)
			break
		}
	}

	switch {
	case question == "":
		return "Ask me anything about copyright, licensing or one of your content checks.", nil
	case strings.Contains(question, "fair use"):
		return "Fair use depends on the purpose of the use, the nature of the work, how much is used and the effect on the market. Commentary, criticism and teaching weigh in favour; copying whole works for commercial use weighs against.", nil
	case strings.Contains(question, "creative commons") || strings.Contains(question, "cc-by"):
		return "Creative Commons licenses allow reuse under conditions. CC-BY requires attribution, SA requires sharing adaptations under the same license, NC forbids commercial use and ND forbids modifications.", nil
	case strings.Contains(question, "risk") || strings.Contains(question, "score"):
		return "Risk scores range from 0 to 100. Scores of 70 and above are high risk and usually need a license or permission. Scores of 30 and below are low risk.", nil
	case strings.Contains(question, "license") || strings.Contains(question, "licence"):
		return "To reuse protected content you need a license from the rights holder, or content published under an open license such as Creative Commons, MIT or the public domain.", nil
	default:
		return "I can help with copyright and licensing questions. Submit the content as a check to get a risk score, then ask me about the findings.", nil
	}
}

func matchesHost(host string, hosts []string) bool {
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func summarize(r *AnalysisResult) string {
	band := "moderate"
	switch {
	case r.RiskScore >= 70:
		band = "high"
	case r.RiskScore <= 30:
		band = "low"
	}
	return fmt.Sprintf("%s risk: %d license(s) and %d potential violation(s) found.",
		strings.ToUpper(band[:1])+band[1:], len(r.Licenses), len(r.Violations))
}
