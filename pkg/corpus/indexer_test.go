package corpus

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikeboe/usecase-scout/pkg/research"
	"github.com/mikeboe/usecase-scout/pkg/splitter"
	"github.com/mikeboe/usecase-scout/pkg/vectorstore"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

type fakeStore struct {
	docs      []vectorstore.Document
	deleted   []string
	lastTopK  int
	lastScope string
}

func (f *fakeStore) AddDocuments(_ context.Context, docs []vectorstore.Document) error {
	f.docs = append(f.docs, docs...)
	return nil
}

func (f *fakeStore) DeleteByCompany(_ context.Context, company string) (int64, error) {
	f.deleted = append(f.deleted, company)
	return 0, nil
}

func (f *fakeStore) SimilaritySearch(_ context.Context, _ []float32, topK int, company string) ([]vectorstore.SimilaritySearchResult, error) {
	f.lastTopK = topK
	f.lastScope = company
	var out []vectorstore.SimilaritySearchResult
	for _, d := range f.docs {
		out = append(out, vectorstore.SimilaritySearchResult{Document: d, Score: 0.9})
	}
	return out, nil
}

func TestIndexStoresChunksWithMetadata(t *testing.T) {
	store := &fakeStore{}
	ix := NewIndexer(splitter.NewRecursiveCharacterTextSplitter(100, 10), &fakeEmbedder{}, store, nil)

	info := research.CompanyInfo{
		research.KeyWikipedia: "Acme is a maker of anvils and rockets.",
		research.KeyWebsite:   strings.Repeat("Acme builds industrial machinery. ", 10),
	}

	n, err := ix.Index(t.Context(), "Acme", info)
	require.NoError(t, err)
	assert.Equal(t, len(store.docs), n)
	assert.Greater(t, n, 2)
	assert.Equal(t, []string{"Acme"}, store.deleted)

	assert.Equal(t, research.KeyWikipedia, store.docs[0].Metadata["source"])
	for _, d := range store.docs {
		assert.Equal(t, "Acme", d.Metadata["company"])
		assert.NotEmpty(t, d.Embedding)
	}
}

func TestIndexEmptyInfo(t *testing.T) {
	store := &fakeStore{}
	emb := &fakeEmbedder{}
	ix := NewIndexer(splitter.NewRecursiveCharacterTextSplitter(100, 10), emb, store, nil)

	n, err := ix.Index(t.Context(), "Nobody", research.CompanyInfo{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, emb.calls)
	assert.Empty(t, store.docs)
}

func TestIndexEmbedFailure(t *testing.T) {
	store := &fakeStore{}
	ix := NewIndexer(splitter.NewRecursiveCharacterTextSplitter(100, 10), &fakeEmbedder{err: errors.New("quota")}, store, nil)

	_, err := ix.Index(t.Context(), "Acme", research.CompanyInfo{research.KeyWebsite: "Acme builds industrial machinery."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
	assert.Empty(t, store.docs)
}

func TestSearchMapsHits(t *testing.T) {
	store := &fakeStore{docs: []vectorstore.Document{{
		Content:  "Acme builds rockets",
		Metadata: map[string]any{"company": "Acme", "source": "website", "kind": "website"},
	}}}
	ix := NewIndexer(splitter.NewRecursiveCharacterTextSplitter(100, 10), &fakeEmbedder{}, store, nil)

	hits, err := ix.Search(t.Context(), "rockets", 3, "Acme")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, Hit{Company: "Acme", Source: "website", Kind: "website", Content: "Acme builds rockets", Score: 0.9}, hits[0])
	assert.Equal(t, 3, store.lastTopK)
	assert.Equal(t, "Acme", store.lastScope)
}
