package analysis

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/usecase-scout/pkg/research/tools"
)

// PlanStep is one step of an implementation plan.
type PlanStep struct {
	Step        int    `json:"step"`
	Description string `json:"description"`
}

// Asset is a dataset or pretrained model reference.
type Asset struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Resources enriches a use case with what is needed to build it.
type Resources struct {
	UseCase            string        `json:"use_case"`
	ImplementationPlan []PlanStep    `json:"implementation_plan"`
	Datasets           []Asset       `json:"datasets"`
	Models             []Asset       `json:"models"`
	ResearchPapers     []tools.Paper `json:"research_papers"`
}

const papersPerUseCase = 3

// ProcessResources builds the plan, datasets, models and papers for uc. Each
// lookup degrades to an empty list on failure.
func (a *Analyzer) ProcessResources(ctx context.Context, uc UseCase) Resources {
	logger := a.Logger.With("use_case", uc.UseCase)
	logger.Info("Collecting resources")

	res := Resources{
		UseCase:            uc.UseCase,
		ImplementationPlan: []PlanStep{},
		Datasets:           []Asset{},
		Models:             []Asset{},
		ResearchPapers:     []tools.Paper{},
	}

	planPrompt := fmt.Sprintf(`You are an AI assistant tasked with creating an implementation plan.
Given the AI use case and market trend below, list the key steps in clear order.
Output as a JSON list of objects with "step" (number) and "description" (brief action).

Use Case: %s
Market Trend: %s`, uc.UseCase, uc.MarketTrend)
	a.safeList(ctx, "implementation_plan", planPrompt, &res.ImplementationPlan)

	datasetPrompt := fmt.Sprintf(`You are an AI assistant tasked with finding datasets.
Find at least 3 datasets related to: %s.
Source them from Kaggle, HuggingFace, or GitHub.
Output as a JSON list of objects with "name", "platform", and "url".`, uc.UseCase)
	a.safeList(ctx, "datasets", datasetPrompt, &res.Datasets)

	modelPrompt := fmt.Sprintf(`You are an AI assistant tasked with finding pre-trained models.
Find at least 3 models suitable for: %s.
Source them from HuggingFace or GitHub.
Output as a JSON list of objects with "name", "platform", and "url".`, uc.UseCase)
	a.safeList(ctx, "models", modelPrompt, &res.Models)

	res.ResearchPapers = a.findPapers(ctx, uc.UseCase)

	res.ImplementationPlan = nonNil(res.ImplementationPlan)
	res.Datasets = nonNil(res.Datasets)
	res.Models = nonNil(res.Models)

	logger.Info("Resources collected",
		"steps", len(res.ImplementationPlan),
		"datasets", len(res.Datasets),
		"models", len(res.Models),
		"papers", len(res.ResearchPapers))
	return res
}

// findPapers asks arXiv first and only falls back to the model when arXiv
// has nothing.
func (a *Analyzer) findPapers(ctx context.Context, useCase string) []tools.Paper {
	if a.Papers != nil {
		papers, err := a.Papers.SearchPapers(ctx, useCase, papersPerUseCase)
		if err != nil {
			a.Logger.Warn("Paper search failed, asking the model instead", "error", err)
		} else if len(papers) > 0 {
			return papers
		}
	}

	papers := []tools.Paper{}
	prompt := fmt.Sprintf(`You are an AI assistant tasked with finding research papers.
Find at least 3 research papers relevant to: %s.
Output as a JSON list of objects with "title", "authors" (list), and "url".`, useCase)
	a.safeList(ctx, "research_papers", prompt, &papers)
	return nonNil(papers)
}

// safeList decodes a JSON list response into out, leaving it untouched when
// the model fails.
func (a *Analyzer) safeList(ctx context.Context, kind, prompt string, out any) {
	if _, err := a.LLM.JSON(ctx, "", prompt, out, llms.WithTemperature(0.3)); err != nil {
		a.Logger.Warn("Resource lookup failed", "kind", kind, "error", err)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
