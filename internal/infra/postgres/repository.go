package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stepwise/stepwise-processing-service/internal/domain/entity"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO processing_jobs (
			id, guide_id, video_ref, callback_url, archive_key, status,
			step_count, source, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.GuideID, job.VideoRef, job.CallbackURL, job.ArchiveKey,
		string(job.Status), job.StepCount, string(job.Source),
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE processing_jobs SET
			status=$2, archive_key=$3, step_count=$4, source=$5,
			attempt=$6, error_message=$7, updated_at=$8, completed_at=$9
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.ArchiveKey, job.StepCount,
		string(job.Source), job.Attempt, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, guide_id, video_ref, callback_url, archive_key, status,
			step_count, source, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		FROM processing_jobs WHERE id=$1`

	job := &entity.Job{}
	var status, source string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.GuideID, &job.VideoRef, &job.CallbackURL, &job.ArchiveKey, &status,
		&job.StepCount, &source, &job.Attempt, &job.MaxAttempts,
		&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	job.Source = entity.GuideSource(source)
	return job, nil
}
