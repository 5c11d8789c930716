package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mikeboe/usecase-scout/pkg/corpus"
	"github.com/mikeboe/usecase-scout/pkg/database"
	"github.com/mikeboe/usecase-scout/pkg/pipeline"
	"github.com/mikeboe/usecase-scout/pkg/research"
)

// ErrJobNotFound is returned when no job has the requested id.
var ErrJobNotFound = errors.New("job not found")

// ContentSearcher queries the indexed company corpus.
type ContentSearcher interface {
	Search(ctx context.Context, query string, topK int, company string) ([]corpus.Hit, error)
}

// PipelineFactory builds a pipeline that logs through logger.
type PipelineFactory func(logger *slog.Logger) *pipeline.Pipeline

type Service struct {
	DB          *database.PostgresDB
	Researcher  pipeline.CompanyResearcher
	Corpus      ContentSearcher
	NewPipeline PipelineFactory
	Logger      *slog.Logger
	JobConfig   map[string]any
}

func NewService(db *database.PostgresDB, researcher pipeline.CompanyResearcher, searcher ContentSearcher, factory PipelineFactory, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		DB:          db,
		Researcher:  researcher,
		Corpus:      searcher,
		NewPipeline: factory,
		Logger:      logger,
	}
}

type Job struct {
	ID        uuid.UUID       `json:"id"`
	Company   string          `json:"company"`
	Status    string          `json:"status"`
	Report    json.RawMessage `json:"report,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Config    json.RawMessage `json:"config"`
}

type CreateJobRequest struct {
	Company string `json:"company" binding:"required"`
}

func (s *Service) CreateJob(ctx context.Context, req CreateJobRequest) (*Job, error) {
	configJSON, err := json.Marshal(s.JobConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job config: %w", err)
	}

	query := `
		INSERT INTO scout_jobs (id, company, status, config)
		VALUES ($1, $2, 'pending', $3)
		RETURNING id, company, status, created_at, updated_at, config
	`
	job := &Job{}
	err = s.DB.Pool.QueryRow(ctx, query, uuid.New(), req.Company, configJSON).Scan(
		&job.ID, &job.Company, &job.Status, &job.CreatedAt, &job.UpdatedAt, &job.Config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	go s.runWorker(job.ID, req.Company)

	return job, nil
}

const jobColumns = `id, company, status, report, state, created_at, updated_at, config`

func scanJob(row pgx.Row) (Job, error) {
	var job Job
	err := row.Scan(&job.ID, &job.Company, &job.Status, &job.Report, &job.State, &job.CreatedAt, &job.UpdatedAt, &job.Config)
	return job, err
}

func (s *Service) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := s.DB.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM scout_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	rows, err := s.DB.Pool.Query(ctx, `SELECT `+jobColumns+` FROM scout_jobs ORDER BY created_at DESC LIMIT 50`)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type LogEntry struct {
	ID        int             `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Level     string          `json:"level"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata"`
}

func (s *Service) GetJobLogs(ctx context.Context, jobID uuid.UUID) ([]LogEntry, error) {
	query := `
		SELECT id, timestamp, level, message, metadata
		FROM scout_logs
		WHERE job_id = $1
		ORDER BY id ASC
	`
	rows, err := s.DB.Pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}
	defer rows.Close()

	var logs []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Level, &l.Message, &l.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// CompanyInfo runs company research synchronously.
func (s *Service) CompanyInfo(ctx context.Context, name string) research.CompanyInfo {
	return s.Researcher.GetCompanyInfo(ctx, name)
}

// SearchContent queries the corpus.
func (s *Service) SearchContent(ctx context.Context, query string, topK int, company string) ([]corpus.Hit, error) {
	if s.Corpus == nil {
		return nil, errors.New("content search is not configured")
	}
	return s.Corpus.Search(ctx, query, topK, company)
}

func (s *Service) runWorker(jobID uuid.UUID, company string) {
	ctx := context.Background()

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE scout_jobs SET status = 'running', updated_at = NOW() WHERE id = $1", jobID)

	dbLogger := slog.New(NewDBLogHandler(s.DB, jobID)).With("company", company)

	p := s.NewPipeline(dbLogger)
	p.OnStateUpdate = func(state pipeline.State) {
		stateJSON, err := json.Marshal(state)
		if err != nil {
			dbLogger.Error("Failed to marshal state", "error", err)
			return
		}
		_, err = s.DB.Pool.Exec(context.Background(),
			"UPDATE scout_jobs SET state = $2, updated_at = NOW() WHERE id = $1",
			jobID, stateJSON)
		if err != nil {
			dbLogger.Error("Failed to save state to DB", "error", err)
		}
	}

	report, err := p.Run(ctx, company)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Pipeline failed: %v", err))
		return
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		s.failJob(ctx, jobID, fmt.Sprintf("Failed to marshal report: %v", err))
		return
	}

	_, err = s.DB.Pool.Exec(ctx,
		"UPDATE scout_jobs SET status = 'completed', report = $2, updated_at = NOW() WHERE id = $1",
		jobID, reportJSON)
	if err != nil {
		dbLogger.Error("Failed to save final report to DB", "error", err)
	}
	s.Logger.Info("Job completed", "job_id", jobID, "company", company)
}

func (s *Service) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	slog.New(NewDBLogHandler(s.DB, jobID)).Error(reason)
	s.Logger.Error("Job failed", "job_id", jobID, "reason", reason)

	_, _ = s.DB.Pool.Exec(ctx, "UPDATE scout_jobs SET status = 'failed', updated_at = NOW() WHERE id = $1", jobID)
}
