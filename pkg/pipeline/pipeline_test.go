package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/usecase-scout/pkg/analysis"
	"github.com/mikeboe/usecase-scout/pkg/llm"
	"github.com/mikeboe/usecase-scout/pkg/research"
)

type stubResearcher struct {
	info research.CompanyInfo
}

func (s stubResearcher) GetCompanyInfo(context.Context, string) research.CompanyInfo {
	return s.info
}

type stubIndexer struct {
	company string
	err     error
}

func (s *stubIndexer) Index(_ context.Context, company string, info research.CompanyInfo) (int, error) {
	s.company = company
	return len(info), s.err
}

type keywordModel struct {
	prompts []string
}

func (m *keywordModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	var prompt strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt.WriteString(text.Text)
			}
		}
	}
	p := prompt.String()
	m.prompts = append(m.prompts, p)

	var reply string
	switch {
	case strings.Contains(p, "business analyst"):
		reply = `{"industry":"Aerospace","key_offerings":["Rockets"],"strategic_focus":["Reuse"],"market_position":"Leader"}`
	case strings.Contains(p, "AI strategist"):
		reply = `[{"use_case":"A","market_trend":"t"},{"use_case":"B","market_trend":"t"},{"use_case":"C","market_trend":"t"},{"use_case":"D","market_trend":"t"}]`
	default:
		reply = `[]`
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func newTestPipeline(info research.CompanyInfo, model llm.Generator) *Pipeline {
	client := llm.NewClient(model, nil)
	client.Backoff = 0
	return New(stubResearcher{info: info}, analysis.NewAnalyzer(client, nil, nil), nil)
}

func TestPipelineRun(t *testing.T) {
	model := &keywordModel{}
	p := newTestPipeline(research.CompanyInfo{research.KeyWikipedia: "Acme builds rockets."}, model)
	indexer := &stubIndexer{}
	p.Indexer = indexer

	var stages []string
	p.OnStateUpdate = func(s State) { stages = append(stages, s.Stage) }

	report, err := p.Run(t.Context(), "Acme")
	require.NoError(t, err)

	assert.Equal(t, "Aerospace", report.Profile.Industry)
	assert.Len(t, report.UseCases, 4)
	require.Len(t, report.Resources, DefaultMaxUseCases)
	assert.Equal(t, []string{"A", "B", "C"}, []string{report.Resources[0].UseCase, report.Resources[1].UseCase, report.Resources[2].UseCase})
	assert.Equal(t, "Acme", indexer.company)

	assert.Equal(t, StageResearch, stages[0])
	assert.Equal(t, StageDone, stages[len(stages)-1])
	assert.Contains(t, stages, StageAnalysis)
	assert.Contains(t, stages, StageUseCases)
	assert.Contains(t, model.prompts[0], "Wikipedia Info:\nAcme builds rockets.")
}

func TestPipelineEmptyResearchStillRuns(t *testing.T) {
	model := &keywordModel{}
	p := newTestPipeline(research.CompanyInfo{}, model)
	indexer := &stubIndexer{}
	p.Indexer = indexer

	report, err := p.Run(t.Context(), "Nobody")
	require.NoError(t, err)

	assert.Empty(t, report.CompanyInfo)
	assert.Empty(t, indexer.company, "empty research is not indexed")
	assert.Contains(t, model.prompts[0], "No information found.")
}

func TestPipelineIndexFailureIsNotFatal(t *testing.T) {
	p := newTestPipeline(research.CompanyInfo{research.KeyWebsite: "site"}, &keywordModel{})
	p.Indexer = &stubIndexer{err: errors.New("db down")}

	_, err := p.Run(t.Context(), "Acme")
	assert.NoError(t, err)
}

func TestPipelineCancelled(t *testing.T) {
	p := newTestPipeline(research.CompanyInfo{}, &keywordModel{})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := p.Run(ctx, "Acme")
	assert.ErrorIs(t, err, context.Canceled)
}
