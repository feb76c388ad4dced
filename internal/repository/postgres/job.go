package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docuchat/internal/domain"
	"docuchat/internal/domain/models"
	"docuchat/internal/domain/repositories"
)

const jobColumns = "id, type, status, data, result, error, progress, created_at, updated_at, completed_at"

// PostgresJobRepository implements the JobRepository interface
type PostgresJobRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewJobRepository creates a new job repository
func NewJobRepository(config *RepositoryConfig) repositories.JobRepository {
	return &PostgresJobRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create persists a new pending job
func (r *PostgresJobRepository) Create(ctx context.Context, job *models.Job) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (type, data)
		VALUES ($1, $2)
		RETURNING id, status, progress, created_at, updated_at
	`, r.tables.Jobs)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, job.Type, job.Payload).Scan(
		&job.ID,
		&job.Status,
		&job.Progress,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}

	return nil
}

// Get retrieves a job by ID
func (r *PostgresJobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, jobColumns, r.tables.Jobs)

	executor := GetExecutor(ctx, r.pool)
	job, err := scanJob(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	return job, nil
}

// List retrieves jobs newest first, optionally filtered by status
func (r *PostgresJobRepository) List(ctx context.Context, status string) ([]*models.Job, error) {
	var query string
	var args []interface{}

	if status == "" {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			ORDER BY created_at DESC, id DESC
		`, jobColumns, r.tables.Jobs)
	} else {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE status = $1
			ORDER BY created_at DESC, id DESC
		`, jobColumns, r.tables.Jobs)
		args = append(args, status)
	}

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	return jobs, nil
}

// ClaimPending atomically transitions the oldest pending job to processing.
// SKIP LOCKED keeps concurrent workers from claiming the same row.
func (r *PostgresJobRepository) ClaimPending(ctx context.Context) (*models.Job, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'processing', updated_at = now()
		WHERE id = (
			SELECT id
			FROM %s
			WHERE status = 'pending'
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING %s
	`, r.tables.Jobs, r.tables.Jobs, jobColumns)

	executor := GetExecutor(ctx, r.pool)
	job, err := scanJob(executor.QueryRow(ctx, query))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim pending job: %w", err)
	}

	return job, nil
}

// UpdateProgress sets the progress percentage. Terminal jobs are left
// untouched.
func (r *PostgresJobRepository) UpdateProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET progress = $1, updated_at = now()
		WHERE id = $2 AND status NOT IN ('completed', 'failed')
	`, r.tables.Jobs)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, progress, id); err != nil {
		return fmt.Errorf("update job progress: %w", err)
	}

	return nil
}

// Complete transitions a job to completed with an optional result
func (r *PostgresJobRepository) Complete(ctx context.Context, id string, result map[string]interface{}) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'completed', result = $1, progress = 100, updated_at = now(), completed_at = now()
		WHERE id = $2 AND status NOT IN ('completed', 'failed')
	`, r.tables.Jobs)

	return r.finish(ctx, query, result, id)
}

// Fail transitions a job to failed with an error message
func (r *PostgresJobRepository) Fail(ctx context.Context, id string, errMsg string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = 'failed', error = $1, updated_at = now(), completed_at = now()
		WHERE id = $2 AND status NOT IN ('completed', 'failed')
	`, r.tables.Jobs)

	return r.finish(ctx, query, errMsg, id)
}

// finish runs a terminal transition and distinguishes "already terminal"
// from "no such job" when the guarded update matches nothing.
func (r *PostgresJobRepository) finish(ctx context.Context, query string, arg interface{}, id string) error {
	executor := GetExecutor(ctx, r.pool)
	res, err := executor.Exec(ctx, query, arg, id)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}

	if res.RowsAffected() == 0 {
		existsQuery := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = $1`, r.tables.Jobs)
		var one int
		if err := executor.QueryRow(ctx, existsQuery, id).Scan(&one); err != nil {
			if IsPgNoRowsError(err) {
				return fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
			}
			return fmt.Errorf("finish job: %w", err)
		}
		return fmt.Errorf("job %s already finished: %w", id, domain.ErrConflict)
	}

	return nil
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var job models.Job
	err := row.Scan(
		&job.ID,
		&job.Type,
		&job.Status,
		&job.Payload,
		&job.Result,
		&job.Error,
		&job.Progress,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
