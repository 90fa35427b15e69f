package repository

import (
	"context"
	"time"

	"video-analyzer/internal/domain/model"
)

type JobRepository interface {
	// Create inserts a new job and assigns its ID.
	Create(ctx context.Context, tx Tx, job *model.Job) error
	// Update merges patch into the stored job under a row lock and returns the
	// result. Illegal merges surface model.Job.Apply errors.
	Update(ctx context.Context, id int64, patch model.JobPatch) (*model.Job, error)
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Job, error)
	// List returns jobs ordered by creation time, newest first.
	List(ctx context.Context, tx Tx, limit int) ([]*model.Job, error)
	// ListStale returns non-terminal jobs not updated since before.
	ListStale(ctx context.Context, tx Tx, before time.Time) ([]*model.Job, error)
}
