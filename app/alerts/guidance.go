package alerts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ponnect/ponnect-alerts/app/llm"
)

const maxGuidanceItems = 5

var bulletPattern = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// GuidanceRequest carries the classified attributes of one alert.
type GuidanceRequest struct {
	Title    string
	Message  string
	Type     Type
	Severity Severity
	Region   Region
}

// GuidanceGenerator produces owner-facing advice for an alert. Callers
// treat any error as "no guidance".
type GuidanceGenerator interface {
	GenerateGuidance(ctx context.Context, req GuidanceRequest) ([]string, error)
}

var (
	typeGuidance = map[Type][]string{
		TypeTick: {
			"Check your dog for ticks daily, especially around the head, ears and paws",
			"Keep tick prevention treatments up to date",
			"Avoid long grass and dense bushland where possible",
		},
		TypeSnake: {
			"Keep dogs on a lead on bush tracks and near long grass",
			"Keep yards clear of debris where snakes can shelter",
		},
		TypeHeatwave: {
			"Walk dogs early in the morning or late in the evening",
			"Provide constant access to fresh water and shade",
		},
		TypeDisease: {
			"Make sure vaccinations are current",
			"Avoid dog parks and shared water bowls in affected areas",
		},
		TypeOther: {
			"Follow updates from local authorities",
		},
	}

	severityGuidance = map[Severity][]string{
		SeverityWarning: {
			"Know the location and hours of your nearest vet",
		},
		SeverityEmergency: {
			"Seek veterinary care immediately if your dog shows any symptoms",
			"Keep your vet's emergency number on hand",
		},
	}

	// ErrNoGuidance is returned when a generator produced nothing usable.
	ErrNoGuidance = errors.New("no guidance generated")
)

// RuleGuidance answers from a static table keyed by alert type, adding
// precautions for WARNING and EMERGENCY.
type RuleGuidance struct{}

func (RuleGuidance) GenerateGuidance(_ context.Context, req GuidanceRequest) ([]string, error) {
	guidance := append([]string(nil), typeGuidance[req.Type]...)
	if len(guidance) == 0 {
		guidance = append(guidance, typeGuidance[TypeOther]...)
	}

	switch req.Severity {
	case SeverityEmergency:
		guidance = append(guidance, severityGuidance[SeverityWarning]...)
		guidance = append(guidance, severityGuidance[SeverityEmergency]...)
	case SeverityWarning:
		guidance = append(guidance, severityGuidance[SeverityWarning]...)
	}

	return guidance, nil
}

// LLMGuidance asks a chat model for advice and falls back to Fallback when
// the call fails or returns nothing usable.
type LLMGuidance struct {
	Client      llm.ChatClient
	Model       string
	Temperature float64
	MaxTokens   int
	Fallback    GuidanceGenerator
}

const guidanceSystemPrompt = `You advise Australian dog owners about safety alerts.
Reply with at most five short, practical precautions, one per line, each starting with "- ".
Do not add any other text.`

func (g LLMGuidance) GenerateGuidance(ctx context.Context, req GuidanceRequest) ([]string, error) {
	guidance, err := g.generate(ctx, req)
	if err == nil {
		return guidance, nil
	}
	if g.Fallback == nil || ctx.Err() != nil {
		return nil, err
	}
	return g.Fallback.GenerateGuidance(ctx, req)
}

func (g LLMGuidance) generate(ctx context.Context, req GuidanceRequest) ([]string, error) {
	if g.Client == nil {
		return nil, fmt.Errorf("llm guidance: no client configured")
	}

	prompt := fmt.Sprintf("Alert: %s\nDetails: %s\nType: %s\nSeverity: %s\nRegion: %s",
		req.Title, req.Message, req.Type, req.Severity, req.Region)

	resp, err := g.Client.ChatCompletion(ctx, llm.ChatCompletionRequest{
		Model: g.Model,
		Messages: []llm.Message{
			{Role: "system", Content: guidanceSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: g.Temperature,
		MaxTokens:   g.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llm guidance: %w", err)
	}

	guidance := parseGuidanceLines(resp.Content())
	if len(guidance) == 0 {
		return nil, ErrNoGuidance
	}
	return guidance, nil
}

// parseGuidanceLines turns a bulleted or numbered list into plain strings.
func parseGuidanceLines(content string) []string {
	var guidance []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(bulletPattern.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		guidance = append(guidance, line)
		if len(guidance) == maxGuidanceItems {
			break
		}
	}
	return guidance
}
