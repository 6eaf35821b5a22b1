package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/ai"
	"github.com/neco001/Job-Crusher/internal/logger"
	"github.com/neco001/Job-Crusher/internal/posting"
	"github.com/neco001/Job-Crusher/internal/scoring"
	"github.com/neco001/Job-Crusher/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Analyst writes a structured fit analysis for a posting.
type Analyst struct {
	generator contentGenerator
	profile   string
	logger    *zap.Logger
	maxLogLen int
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength = 200
	// maxDescription bounds the posting text sent to the model.
	maxDescription = 6000
)

func NewAnalyst(generator contentGenerator, profile string, log *zap.Logger, maxLogLength int) *Analyst {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Analyst{
		generator: generator,
		profile:   strings.TrimSpace(profile),
		logger:    logger.WithCommonFields(log, "gemini", generator.Model()),
		maxLogLen: maxLogLength,
	}
}

func (a *Analyst) Analyze(ctx context.Context, p *posting.Posting, result scoring.Result) (*ai.Analysis, error) {
	if p == nil {
		return nil, fmt.Errorf("posting is required")
	}

	postingJSON, err := json.MarshalIndent(map[string]any{
		"title":            p.Title,
		"company":          p.CompanyName,
		"location":         p.Location,
		"work_modes":       p.WorkModes,
		"seniority":        p.SeniorityHint,
		"description":      utils.TruncateForLog(p.Description, maxDescription),
		"requirements":     p.Requirements,
		"responsibilities": p.Responsibilities,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal posting payload: %w", err)
	}

	scoreJSON, err := json.MarshalIndent(map[string]any{
		"total":     result.Total,
		"tier":      result.Tier,
		"breakdown": result.BreakdownMap(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal score payload: %w", err)
	}

	prompt := buildPrompt(string(postingJSON), string(scoreJSON), a.profile)

	a.logger.Debug("gemini generate content request",
		zap.String("link", p.SourceID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("gemini generate content response",
		zap.String("link", p.SourceID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	analysis, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	analysis.Model = a.generator.Model()
	analysis.Raw = raw
	return analysis, nil
}

func buildPrompt(postingJSON, scoreJSON, profile string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Score:\n{{SCORE_JSON}}\n\nPosting:\n{{POSTING_JSON}}\n\nProfile:\n{{PROFILE}}\n\nJSON Response:"
	}
	if profile == "" {
		profile = "(not provided)"
	}
	prompt := strings.ReplaceAll(template, "{{POSTING_JSON}}", postingJSON)
	prompt = strings.ReplaceAll(prompt, "{{SCORE_JSON}}", scoreJSON)
	prompt = strings.ReplaceAll(prompt, "{{PROFILE}}", profile)
	return prompt
}

func parseResponse(raw string) (*ai.Analysis, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	return &ai.Analysis{
		Summary:   coerceString(data["summary"]),
		Strengths: coerceStrings(data["strengths"]),
		Gaps:      coerceStrings(data["gaps"]),
		Questions: coerceStrings(data["questions"]),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

// coerceStrings accepts a JSON list or a single string.
func coerceStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	}
	return nil
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
