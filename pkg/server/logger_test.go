package server

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDBLogHandlerEnabled(t *testing.T) {
	h := NewDBLogHandler(nil, uuid.New())
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))

	h.MinLevel = slog.LevelWarn
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestDBLogHandlerMetadata(t *testing.T) {
	base := NewDBLogHandler(nil, uuid.New())
	h := base.WithAttrs([]slog.Attr{slog.String("company", "Acme")}).
		WithGroup("crawl").
		WithAttrs([]slog.Attr{slog.Int("depth", 1)}).(*DBLogHandler)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "fetched", 0)
	r.AddAttrs(slog.String("url", "https://acme.test"), slog.Any("error", errors.New("boom")))

	meta := h.metadata(r)
	assert.Equal(t, map[string]any{
		"company":     "Acme",
		"crawl.depth": int64(1),
		"crawl.url":   "https://acme.test",
		"crawl.error": "boom",
	}, meta)

	// the parent handler is unchanged
	assert.Empty(t, base.attrs)
	assert.Empty(t, base.groups)
}
