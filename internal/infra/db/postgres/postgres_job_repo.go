package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*PostgresJobRepo)(nil)

type PostgresJobRepo struct {
	pool *pgxpool.Pool
	tm   repository.TransactionManager
	now  func() time.Time
}

func NewPostgresJobRepo(pool *pgxpool.Pool, tm repository.TransactionManager) *PostgresJobRepo {
	return &PostgresJobRepo{pool: pool, tm: tm, now: time.Now}
}

const jobColumns = `id, source_url, platform, metadata, status, progress, error_message,
       transcript, transcript_language, ocr_text, frame_analyses, content_summary,
       key_points, created_at, updated_at, completed_at`

func (r *PostgresJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	md, frames, points, err := encodeJSONColumns(job)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO analysis_jobs (source_url, platform, metadata, status, progress, frame_analyses, key_points, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q,
		job.SourceURL, string(job.Platform), md, string(job.Status), job.Progress, frames, points, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return err
	}
	if err := row.Scan(&job.ID); err != nil {
		return fmt.Errorf("%w: create job: %v", domain.ErrOperationFailed, err)
	}
	return nil
}

// Update locks the row, merges the patch through model.Job.Apply and writes
// the result back in the same transaction.
func (r *PostgresJobRepo) Update(ctx context.Context, id int64, patch model.JobPatch) (*model.Job, error) {
	var out *model.Job
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1 FOR UPDATE;`, id)
		if err != nil {
			return err
		}
		job, err := scanJob(row)
		if err != nil {
			return err
		}
		if err := job.Apply(patch, r.now()); err != nil {
			return err
		}
		md, frames, points, err := encodeJSONColumns(job)
		if err != nil {
			return err
		}
		const q = `
UPDATE analysis_jobs SET
  platform = $2, metadata = $3, status = $4, progress = $5, error_message = $6,
  transcript = $7, transcript_language = $8, ocr_text = $9, frame_analyses = $10,
  content_summary = $11, key_points = $12, updated_at = $13, completed_at = $14
WHERE id = $1;`
		if _, err := execSQL(ctx, r.pool, tx, q,
			job.ID, string(job.Platform), md, string(job.Status), job.Progress, job.ErrorMessage,
			job.Transcript, job.TranscriptLanguage, job.OCRText, frames,
			job.ContentSummary, points, job.UpdatedAt, job.CompletedAt,
		); err != nil {
			return fmt.Errorf("%w: update job %d: %v", domain.ErrOperationFailed, id, err)
		}
		out = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresJobRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Job, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM analysis_jobs WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	return scanJob(row)
}

func (r *PostgresJobRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+jobColumns+` FROM analysis_jobs ORDER BY created_at DESC, id DESC LIMIT $1;`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list jobs: %v", domain.ErrOperationFailed, err)
	}
	return collectJobs(rows)
}

func (r *PostgresJobRepo) ListStale(ctx context.Context, tx repository.Tx, before time.Time) ([]*model.Job, error) {
	const q = `SELECT ` + jobColumns + `
  FROM analysis_jobs
 WHERE status NOT IN ('completed', 'failed') AND updated_at < $1
 ORDER BY updated_at;`
	rows, err := queryRows(ctx, r.pool, tx, q, before)
	if err != nil {
		return nil, fmt.Errorf("%w: list stale jobs: %v", domain.ErrOperationFailed, err)
	}
	return collectJobs(rows)
}

func collectJobs(rows pgx.Rows) ([]*model.Job, error) {
	defer rows.Close()
	out := make([]*model.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	return out, nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j                  model.Job
		platform, status   string
		md, frames, points []byte
	)
	err := row.Scan(
		&j.ID, &j.SourceURL, &platform, &md, &status, &j.Progress, &j.ErrorMessage,
		&j.Transcript, &j.TranscriptLanguage, &j.OCRText, &frames, &j.ContentSummary,
		&points, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrReadDatabaseRow, err)
	}
	j.Platform = model.Platform(platform)
	j.Status = model.JobStatus(status)
	if err := json.Unmarshal(md, &j.Metadata); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := json.Unmarshal(frames, &j.FrameAnalyses); err != nil {
		return nil, fmt.Errorf("%w: frame_analyses: %v", domain.ErrReadDatabaseRow, err)
	}
	if err := json.Unmarshal(points, &j.KeyPoints); err != nil {
		return nil, fmt.Errorf("%w: key_points: %v", domain.ErrReadDatabaseRow, err)
	}
	if j.FrameAnalyses == nil {
		j.FrameAnalyses = []model.FrameAnalysis{}
	}
	if j.KeyPoints == nil {
		j.KeyPoints = []string{}
	}
	return &j, nil
}

// encodeJSONColumns renders the JSONB columns as text so pgx casts them server side.
func encodeJSONColumns(j *model.Job) (md, frames, points string, err error) {
	frameList := j.FrameAnalyses
	if frameList == nil {
		frameList = []model.FrameAnalysis{}
	}
	pointList := j.KeyPoints
	if pointList == nil {
		pointList = []string{}
	}
	b1, err := json.Marshal(j.Metadata)
	if err != nil {
		return "", "", "", err
	}
	b2, err := json.Marshal(frameList)
	if err != nil {
		return "", "", "", err
	}
	b3, err := json.Marshal(pointList)
	if err != nil {
		return "", "", "", err
	}
	return string(b1), string(b2), string(b3), nil
}
