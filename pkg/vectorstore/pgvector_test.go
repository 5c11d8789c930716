package vectorstore

import (
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidTableName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"Valid standard", "company_corpus", true},
		{"Valid with numbers", "corpus2024", true},
		{"Valid short", "a", true},
		{"Valid max length", "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_", true}, // 63 chars
		{"Invalid uppercase start", "Corpus", false},
		{"Invalid start with number", "1corpus", false},
		{"Invalid special chars", "company-corpus", false},
		{"Invalid SQL injection", "corpus; DROP TABLE scout_jobs", false},
		{"Invalid empty", "", false},
		{"Invalid too long", "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789__", false}, // 64 chars
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isValidTableName(tt.input))
		})
	}
}

func TestNewPGVectorStoreRejectsBadTable(t *testing.T) {
	_, err := NewPGVectorStore(nil, "bad-name")
	assert.Error(t, err)

	vs, err := NewPGVectorStore(nil, "company_corpus")
	require.NoError(t, err)
	assert.Equal(t, `"company_corpus"`, vs.table())
}

func TestSimilarityQuery(t *testing.T) {
	vec := pgvector.NewVector([]float32{0.1, 0.2})

	query, args := similarityQuery(`"corpus"`, vec, 3, "Acme")
	assert.Contains(t, query, `FROM "corpus"`)
	assert.Contains(t, query, "metadata->>'company' = $2")
	assert.Contains(t, query, "LIMIT $3")
	assert.Equal(t, []any{vec, "Acme", 3}, args)

	query, args = similarityQuery(`"corpus"`, vec, 0, "")
	assert.False(t, strings.Contains(query, "WHERE"))
	assert.Equal(t, []any{vec, 5}, args)
}
