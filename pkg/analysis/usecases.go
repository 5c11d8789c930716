package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// UseCase is one generated AI/automation opportunity.
type UseCase struct {
	UseCase             string          `json:"use_case"`
	MarketTrend         string          `json:"market_trend"`
	ImplementationSteps FlexibleStrings `json:"implementation_steps"`
}

// FlexibleStrings decodes either a JSON string or a list of strings. Models
// return both shapes for free-text list fields.
type FlexibleStrings []string

func (f *FlexibleStrings) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	if strings.TrimSpace(single) == "" {
		*f = nil
	} else {
		*f = FlexibleStrings{single}
	}
	return nil
}

const useCaseSystemPrompt = `You are an AI strategist. Generate innovative AI/GenAI use cases for an industry with given focus areas.
Respond as a JSON list of objects with "use_case", "market_trend", and "implementation_steps".
Provide the JSON directly without markdown formatting.`

// GenerateUseCases proposes use cases for profile. Output that is not a JSON
// list of use cases yields an empty slice.
func (a *Analyzer) GenerateUseCases(ctx context.Context, profile CompanyProfile) ([]UseCase, error) {
	a.Logger.Info("Generating use cases", "industry", profile.Industry)

	input := fmt.Sprintf("Industry: %s\nKey Offerings: %s\nStrategic Focus: %s\nMarket Position: %s",
		profile.Industry,
		strings.Join(profile.KeyOfferings, ", "),
		strings.Join(profile.StrategicFocus, ", "),
		profile.MarketPosition)

	var useCases []UseCase
	if _, err := a.LLM.JSON(ctx, useCaseSystemPrompt, input, &useCases, llms.WithTemperature(0.3)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.Logger.Warn("Use case generation could not be parsed", "error", err)
		return []UseCase{}, nil
	}

	kept := make([]UseCase, 0, len(useCases))
	for _, uc := range useCases {
		if strings.TrimSpace(uc.UseCase) != "" {
			kept = append(kept, uc)
		}
	}

	a.Logger.Info("Use cases generated", "count", len(kept))
	return kept, nil
}
