// Package pipeline runs the company research workflow end to end: research,
// profile analysis, use-case generation and resource enrichment.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikeboe/usecase-scout/pkg/analysis"
	"github.com/mikeboe/usecase-scout/pkg/research"
)

// Stage names reported through OnStateUpdate.
const (
	StageResearch  = "research"
	StageAnalysis  = "analysis"
	StageUseCases  = "use_cases"
	StageResources = "resources"
	StageDone      = "done"
)

// DefaultMaxUseCases is how many use cases get resource enrichment.
const DefaultMaxUseCases = 3

// CompanyResearcher gathers raw text about a company.
type CompanyResearcher interface {
	GetCompanyInfo(ctx context.Context, name string) research.CompanyInfo
}

// CorpusIndexer stores researched text for later retrieval.
type CorpusIndexer interface {
	Index(ctx context.Context, company string, info research.CompanyInfo) (int, error)
}

// State is a snapshot of a running pipeline.
type State struct {
	Company   string    `json:"company"`
	Stage     string    `json:"stage"`
	UseCases  int       `json:"use_cases"`
	Enriched  int       `json:"enriched"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Report is the pipeline output.
type Report struct {
	Company     string                  `json:"company"`
	CompanyInfo research.CompanyInfo    `json:"company_info"`
	Profile     analysis.CompanyProfile `json:"profile"`
	UseCases    []analysis.UseCase      `json:"use_cases"`
	Resources   []analysis.Resources    `json:"resources"`
}

type Pipeline struct {
	Researcher    CompanyResearcher
	Analyzer      *analysis.Analyzer
	Indexer       CorpusIndexer
	MaxUseCases   int
	Logger        *slog.Logger
	OnStateUpdate func(state State)
}

func New(researcher CompanyResearcher, analyzer *analysis.Analyzer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Researcher:  researcher,
		Analyzer:    analyzer,
		MaxUseCases: DefaultMaxUseCases,
		Logger:      logger,
	}
}

// Run executes every stage for company. Research never fails; later stages
// only return an error when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, company string) (*Report, error) {
	state := State{Company: company}
	report := &Report{Company: company}
	p.Logger.Info("Starting pipeline", "company", company)

	p.publish(&state, StageResearch)
	report.CompanyInfo = p.Researcher.GetCompanyInfo(ctx, company)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("research cancelled: %w", err)
	}

	if p.Indexer != nil && len(report.CompanyInfo) > 0 {
		n, err := p.Indexer.Index(ctx, company, report.CompanyInfo)
		if err != nil {
			p.Logger.Error("Failed to index company corpus", "error", err)
		} else {
			p.Logger.Info("Indexed company corpus", "chunks", n)
		}
	}

	p.publish(&state, StageAnalysis)
	profile, err := p.Analyzer.AnalyzeCompany(ctx, research.FormatCompanyInfo(report.CompanyInfo))
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	report.Profile = profile

	p.publish(&state, StageUseCases)
	useCases, err := p.Analyzer.GenerateUseCases(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("use case generation failed: %w", err)
	}
	report.UseCases = useCases
	state.UseCases = len(useCases)

	p.publish(&state, StageResources)
	limit := p.MaxUseCases
	if limit <= 0 || limit > len(useCases) {
		limit = len(useCases)
	}
	report.Resources = make([]analysis.Resources, 0, limit)
	for _, uc := range useCases[:limit] {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("resource collection cancelled: %w", err)
		}
		report.Resources = append(report.Resources, p.Analyzer.ProcessResources(ctx, uc))
		state.Enriched++
		p.publish(&state, StageResources)
	}

	p.publish(&state, StageDone)
	p.Logger.Info("Pipeline complete", "company", company, "use_cases", len(useCases), "enriched", len(report.Resources))
	return report, nil
}

func (p *Pipeline) publish(state *State, stage string) {
	state.Stage = stage
	state.UpdatedAt = time.Now()
	if p.OnStateUpdate != nil {
		p.OnStateUpdate(*state)
	}
}
