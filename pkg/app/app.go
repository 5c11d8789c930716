// Package app assembles the research, analysis and corpus components from
// configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikeboe/usecase-scout/pkg/analysis"
	"github.com/mikeboe/usecase-scout/pkg/clients"
	"github.com/mikeboe/usecase-scout/pkg/config"
	"github.com/mikeboe/usecase-scout/pkg/corpus"
	"github.com/mikeboe/usecase-scout/pkg/database"
	"github.com/mikeboe/usecase-scout/pkg/embeddings"
	"github.com/mikeboe/usecase-scout/pkg/llm"
	"github.com/mikeboe/usecase-scout/pkg/pipeline"
	"github.com/mikeboe/usecase-scout/pkg/research"
	"github.com/mikeboe/usecase-scout/pkg/research/tools"
	"github.com/mikeboe/usecase-scout/pkg/splitter"
	"github.com/mikeboe/usecase-scout/pkg/vectorstore"
)

// NewCrawler builds a crawler backed by the HTTP fetcher.
func NewCrawler(cfg *config.Config, logger *slog.Logger) *research.Crawler {
	return research.NewCrawler(tools.NewFetcher(cfg.FetchOptions()), cfg.CrawlOptions(), logger)
}

// NewEngine builds the company research engine. It needs no credentials.
func NewEngine(cfg *config.Config, logger *slog.Logger) *research.Engine {
	fetcher := tools.NewFetcher(cfg.FetchOptions())
	crawler := research.NewCrawler(fetcher, cfg.CrawlOptions(), logger)
	search := tools.NewDuckDuckGoSearch(cfg.UserAgent, cfg.SearchTimeout)
	return research.NewEngine(search, fetcher, crawler, cfg.EngineOptions(), logger)
}

// NewModel connects to the reasoning model.
func NewModel(ctx context.Context, cfg *config.Config) (llm.Generator, error) {
	return clients.GoogleAi(ctx, cfg.GoogleApiKey, clients.ModelType(cfg.ReasoningModel))
}

// NewAnalyzer builds an analyzer on model, looking papers up on arXiv.
func NewAnalyzer(cfg *config.Config, model llm.Generator, logger *slog.Logger) *analysis.Analyzer {
	arxiv := tools.NewArxivClient(cfg.SearchTimeout)
	arxiv.Logger = logger
	return analysis.NewAnalyzer(llm.NewClient(model, logger), arxiv, logger)
}

// PipelineFactory returns a constructor for pipelines that log through the
// logger they are given. indexer may be nil.
func PipelineFactory(cfg *config.Config, model llm.Generator, indexer pipeline.CorpusIndexer) func(*slog.Logger) *pipeline.Pipeline {
	return func(logger *slog.Logger) *pipeline.Pipeline {
		p := pipeline.New(NewEngine(cfg, logger), NewAnalyzer(cfg, model, logger), logger)
		p.MaxUseCases = cfg.MaxUseCases
		if indexer != nil {
			p.Indexer = indexer
		}
		return p
	}
}

// NewCorpus prepares the corpus table in db and returns an indexer over it.
func NewCorpus(ctx context.Context, cfg *config.Config, db *database.PostgresDB, logger *slog.Logger) (*corpus.Indexer, error) {
	embedder, err := embeddings.NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey, embeddings.DefaultDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to init embedder: %w", err)
	}
	if err := db.EnsureVectorExtension(ctx); err != nil {
		return nil, err
	}
	if err := db.CreateEmbeddingsTable(ctx, cfg.CollectionName, embedder.Dimension()); err != nil {
		return nil, err
	}
	store, err := vectorstore.NewPGVectorStore(db.Pool, cfg.CollectionName)
	if err != nil {
		return nil, err
	}
	ts := splitter.NewRecursiveCharacterTextSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	return corpus.NewIndexer(ts, embedder, store, logger), nil
}
