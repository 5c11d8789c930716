package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mikeboe/usecase-scout/pkg/database"
)

// DBLogHandler is a slog.Handler that writes records to scout_logs for one job.
type DBLogHandler struct {
	DB       *database.PostgresDB
	JobID    uuid.UUID
	MinLevel slog.Level

	attrs  []slog.Attr
	groups []string
}

func NewDBLogHandler(db *database.PostgresDB, jobID uuid.UUID) *DBLogHandler {
	return &DBLogHandler{
		DB:       db,
		JobID:    jobID,
		MinLevel: slog.LevelDebug,
	}
}

func (h *DBLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.MinLevel
}

func (h *DBLogHandler) Handle(_ context.Context, r slog.Record) error {
	metaJSON, err := json.Marshal(h.metadata(r))
	if err != nil {
		metaJSON = []byte("{}")
	}

	query := `
		INSERT INTO scout_logs (job_id, timestamp, level, message, metadata)
		VALUES ($1, $2, $3, $4, $5)
	`
	// Logs outlive the request that started the job.
	_, err = h.DB.Pool.Exec(context.Background(), query, h.JobID, r.Time, r.Level.String(), r.Message, metaJSON)
	return err
}

func (h *DBLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := h.clone()
	for _, a := range attrs {
		next.attrs = append(next.attrs, qualify(h.groups, a))
	}
	return next
}

func (h *DBLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(next.groups, name)
	return next
}

func (h *DBLogHandler) clone() *DBLogHandler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	next.groups = append([]string(nil), h.groups...)
	return &next
}

// metadata flattens handler and record attributes into one map, with group
// names joined by dots.
func (h *DBLogHandler) metadata(r slog.Record) map[string]any {
	meta := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		addAttr(meta, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(meta, "", qualify(h.groups, a))
		return true
	})
	return meta
}

func qualify(groups []string, a slog.Attr) slog.Attr {
	for i := len(groups) - 1; i >= 0; i-- {
		a = slog.Group(groups[i], a)
	}
	return a
}

func addAttr(meta map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(meta, key, ga)
		}
		return
	}
	if err, ok := a.Value.Any().(error); ok {
		meta[key] = err.Error()
		return
	}
	meta[key] = a.Value.Any()
}
