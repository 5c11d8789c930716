// Package corpus chunks, embeds and stores researched company text so it can
// be searched later.
package corpus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikeboe/usecase-scout/pkg/research"
	"github.com/mikeboe/usecase-scout/pkg/splitter"
	"github.com/mikeboe/usecase-scout/pkg/vectorstore"
)

// Embedder turns text into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Store persists and queries embedded chunks.
type Store interface {
	AddDocuments(ctx context.Context, docs []vectorstore.Document) error
	DeleteByCompany(ctx context.Context, company string) (int64, error)
	SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int, company string) ([]vectorstore.SimilaritySearchResult, error)
}

// Hit is one search result.
type Hit struct {
	Company string  `json:"company"`
	Source  string  `json:"source"`
	Kind    string  `json:"kind"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type Indexer struct {
	Splitter *splitter.TextSplitter
	Embedder Embedder
	Store    Store
	Logger   *slog.Logger
}

func NewIndexer(ts *splitter.TextSplitter, embedder Embedder, store Store, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{Splitter: ts, Embedder: embedder, Store: store, Logger: logger}
}

// Index replaces the stored chunks for company with chunks of info and
// returns how many were written.
func (ix *Indexer) Index(ctx context.Context, company string, info research.CompanyInfo) (int, error) {
	var docs []vectorstore.Document
	var texts []string

	for _, kind := range []string{research.KeyWikipedia, research.KeyWebsite} {
		text, ok := info[kind]
		if !ok || text == "" {
			continue
		}
		chunks, err := ix.Splitter.SplitText(text)
		if err != nil {
			return 0, fmt.Errorf("failed to split %s text: %w", kind, err)
		}
		for i, chunk := range chunks {
			docs = append(docs, vectorstore.Document{
				Content: chunk,
				Metadata: map[string]any{
					"company":     company,
					"source":      kind,
					"kind":        kind,
					"chunk_index": i,
				},
			})
			texts = append(texts, chunk)
		}
	}

	if _, err := ix.Store.DeleteByCompany(ctx, company); err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		ix.Logger.Info("Nothing to index", "company", company)
		return 0, nil
	}

	vectors, err := ix.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(docs) {
		return 0, fmt.Errorf("expected %d embeddings, got %d", len(docs), len(vectors))
	}
	for i := range docs {
		docs[i].Embedding = vectors[i]
	}

	if err := ix.Store.AddDocuments(ctx, docs); err != nil {
		return 0, err
	}
	ix.Logger.Info("Indexed company corpus", "company", company, "chunks", len(docs))
	return len(docs), nil
}

// Search embeds query and returns the topK closest chunks, restricted to
// company when it is non-empty.
func (ix *Indexer) Search(ctx context.Context, query string, topK int, company string) ([]Hit, error) {
	vectors, err := ix.Embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}

	results, err := ix.Store.SimilaritySearch(ctx, vectors[0], topK, company)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			Company: metaString(r.Document.Metadata, "company"),
			Source:  metaString(r.Document.Metadata, "source"),
			Kind:    metaString(r.Document.Metadata, "kind"),
			Content: r.Document.Content,
			Score:   r.Score,
		})
	}
	return hits, nil
}

func metaString(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
