package usecase

import (
	"context"

	"video-analyzer/internal/domain/model"
)

// JobRunner drives one job through the analysis pipeline. Used by background workers.
type JobRunner interface {
	Run(ctx context.Context, jobID int64) error
}

// JobQueue hands a persisted job to the background workers without waiting for it.
type JobQueue interface {
	Enqueue(jobID int64) error
}

// JobUseCase is the inbound surface used by the HTTP API and the CLI.
type JobUseCase interface {
	Submit(ctx context.Context, sourceURL string) (int64, error)
	Get(ctx context.Context, id int64) (*model.Job, error)
	List(ctx context.Context, limit int) ([]*model.Job, error)
	Delete(ctx context.Context, id int64) error
}
