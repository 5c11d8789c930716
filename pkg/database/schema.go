package database

import (
	"context"
	"fmt"
)

// InitSchema creates the job and job log tables used by the server.
func (db *PostgresDB) InitSchema(ctx context.Context) error {
	statements := []struct {
		name  string
		query string
	}{
		{"scout_jobs table", `
			CREATE TABLE IF NOT EXISTS scout_jobs (
				id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
				company TEXT NOT NULL,
				status TEXT NOT NULL DEFAULT 'pending',
				config JSONB,
				state JSONB,
				report JSONB,
				created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
			)`},
		{"scout_logs table", `
			CREATE TABLE IF NOT EXISTS scout_logs (
				id SERIAL PRIMARY KEY,
				job_id UUID NOT NULL REFERENCES scout_jobs(id) ON DELETE CASCADE,
				timestamp TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
				level TEXT NOT NULL,
				message TEXT NOT NULL,
				metadata JSONB
			)`},
		{"scout_logs index", "CREATE INDEX IF NOT EXISTS idx_scout_logs_job_id ON scout_logs(job_id)"},
		{"scout_jobs index", "CREATE INDEX IF NOT EXISTS idx_scout_jobs_created_at ON scout_jobs(created_at DESC)"},
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt.query); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}
	return nil
}
