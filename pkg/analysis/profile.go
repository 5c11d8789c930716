package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/usecase-scout/pkg/llm"
	"github.com/mikeboe/usecase-scout/pkg/research/tools"
)

// CompanyProfile is the structured business profile derived from research
// text. Error and RawResponse are set instead when the model output could not
// be parsed.
type CompanyProfile struct {
	Industry       string   `json:"industry"`
	KeyOfferings   []string `json:"key_offerings"`
	StrategicFocus []string `json:"strategic_focus"`
	MarketPosition string   `json:"market_position"`

	Error       string `json:"error,omitempty"`
	RawResponse string `json:"raw_response,omitempty"`
}

// PaperSearcher looks up research papers for a query.
type PaperSearcher interface {
	SearchPapers(ctx context.Context, query string, maxResults int) ([]tools.Paper, error)
}

// Analyzer turns research text into a profile, use cases and resources.
type Analyzer struct {
	LLM    *llm.Client
	Papers PaperSearcher
	Logger *slog.Logger
}

func NewAnalyzer(client *llm.Client, papers PaperSearcher, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{LLM: client, Papers: papers, Logger: logger}
}

const profileSystemPrompt = `You are a business analyst.
Analyze the company information you are given and extract the information in this JSON format:
{
    "industry": string,
    "key_offerings": [list of strings],
    "strategic_focus": [list of strings],
    "market_position": string
}
Only output JSON. No explanation.`

// AnalyzeCompany derives a CompanyProfile from companyInfo. An unparseable
// response is reported through the profile's Error field rather than as an
// error; only a cancelled context is returned as one.
func (a *Analyzer) AnalyzeCompany(ctx context.Context, companyInfo string) (CompanyProfile, error) {
	a.Logger.Info("Starting company analysis", "input_length", len(companyInfo))

	var profile CompanyProfile
	raw, err := a.LLM.JSON(ctx, profileSystemPrompt,
		fmt.Sprintf("Analyze the following company information:\n%s", companyInfo),
		&profile, llms.WithTemperature(0.5))
	if err != nil {
		if ctx.Err() != nil {
			return CompanyProfile{}, ctx.Err()
		}
		a.Logger.Warn("Company analysis could not be parsed", "error", err)
		return CompanyProfile{Error: "Failed to parse JSON", RawResponse: raw}, nil
	}

	a.Logger.Info("Company analysis complete", "industry", profile.Industry, "offerings", len(profile.KeyOfferings))
	return profile, nil
}
