package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/repository"
	"video-analyzer/internal/domain/ports/usecase"
	"video-analyzer/internal/infra/logging"
)

const DeletedMessage = "Deleted by user"

var _ usecase.JobUseCase = (*JobUseCase)(nil)

// CredentialChecker reports whether the metadata provider can be called at all.
type CredentialChecker interface {
	Configured() bool
}

type JobUseCase struct {
	jobs  repository.JobRepository
	queue usecase.JobQueue
	creds CredentialChecker
	now   func() time.Time
	log   *zerolog.Logger
}

// NewJobUseCase wires the job lifecycle. creds may be nil to skip the credential check.
func NewJobUseCase(jobs repository.JobRepository, queue usecase.JobQueue, creds CredentialChecker, logger *zerolog.Logger) *JobUseCase {
	l := logger.With().Str("component", "JobUseCase").Logger()
	return &JobUseCase{jobs: jobs, queue: queue, creds: creds, now: time.Now, log: &l}
}

// Submit validates the URL, persists a pending job and hands it to the
// workers. It returns as soon as the job is stored.
func (uc *JobUseCase) Submit(ctx context.Context, sourceURL string) (int64, error) {
	defer logging.TraceDuration(uc.log, "JobUseCase.Submit")()

	sourceURL = strings.TrimSpace(sourceURL)
	if err := validateURL(sourceURL); err != nil {
		return 0, err
	}
	if uc.creds != nil && !uc.creds.Configured() {
		return 0, fmt.Errorf("%w: TIKHUB_API_TOKEN not set", domain.ErrCredential)
	}
	platform, err := model.ResolvePlatform(sourceURL)
	if err != nil {
		return 0, err
	}

	job := model.NewJob(sourceURL, platform, uc.now())
	if err := uc.jobs.Create(ctx, nil, job); err != nil {
		return 0, fmt.Errorf("create job: %w", err)
	}
	// a rejected enqueue leaves the job pending for the reconciler
	if err := uc.queue.Enqueue(job.ID); err != nil {
		uc.log.Warn().Err(err).Int64("job_id", job.ID).Msg("enqueue failed, job stays pending")
	}
	uc.log.Info().Int64("job_id", job.ID).Str("platform", string(platform)).Msg("job submitted")
	return job.ID, nil
}

func (uc *JobUseCase) Get(ctx context.Context, id int64) (*model.Job, error) {
	return uc.jobs.FindByID(ctx, nil, id)
}

// List returns the newest jobs first.
func (uc *JobUseCase) List(ctx context.Context, limit int) ([]*model.Job, error) {
	return uc.jobs.List(ctx, nil, limit)
}

// Delete is a soft delete: whatever its state, the job ends up failed with
// DeletedMessage. A worker still running it stops at its next write.
func (uc *JobUseCase) Delete(ctx context.Context, id int64) error {
	defer logging.TraceDuration(uc.log, "JobUseCase.Delete")()

	_, err := uc.jobs.Update(ctx, id, model.JobPatch{
		Status:       model.Ptr(model.JobStatusFailed),
		ErrorMessage: model.Ptr(DeletedMessage),
		Force:        true,
	})
	if err != nil {
		return err
	}
	uc.log.Info().Int64("job_id", id).Msg("job deleted")
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q", domain.ErrInvalidURL, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURL, u.Scheme)
	}
	return nil
}
