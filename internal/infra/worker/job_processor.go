package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"video-analyzer/internal/domain/ports/usecase"
	"video-analyzer/internal/infra/metrics"
	red "video-analyzer/internal/infra/redis"
)

var _ usecase.JobQueue = (*JobProcessor)(nil)

// JobProcessor hands job ids to the pool and runs each one under a redis
// lock, so a job redelivered by the reconciler never runs twice at once.
type JobProcessor struct {
	pool    *Pool
	runner  usecase.JobRunner
	locker  red.Locker
	lockTTL time.Duration
	log     *zerolog.Logger
}

func NewJobProcessor(pool *Pool, runner usecase.JobRunner, locker red.Locker, lockTTL time.Duration, logger *zerolog.Logger) *JobProcessor {
	l := logger.With().Str("component", "JobProcessor").Logger()
	return &JobProcessor{pool: pool, runner: runner, locker: locker, lockTTL: lockTTL, log: &l}
}

// Enqueue never blocks. A full queue is reported to the caller; the job stays
// pending and the reconciler retries it later.
func (p *JobProcessor) Enqueue(jobID int64) error {
	err := p.pool.Submit(func(ctx context.Context) error {
		return p.process(ctx, jobID)
	})
	if errors.Is(err, ErrQueueFull) {
		metrics.IncQueueRejected()
		p.log.Warn().Int64("job_id", jobID).Msg("worker queue full, job left pending")
	}
	return err
}

func (p *JobProcessor) process(ctx context.Context, jobID int64) error {
	key := red.JobLockKey(jobID)
	token, err := p.locker.TryLock(ctx, key, p.lockTTL)
	if err != nil {
		if errors.Is(err, red.ErrLocked) {
			metrics.IncLockContention()
			p.log.Debug().Int64("job_id", jobID).Msg("job already running elsewhere")
			return nil
		}
		return err
	}
	defer func() {
		// the run context may already be cancelled on shutdown
		if err := p.locker.Unlock(context.Background(), key, token); err != nil {
			p.log.Warn().Err(err).Int64("job_id", jobID).Msg("failed to release job lock")
		}
	}()

	p.log.Debug().Int64("job_id", jobID).Msg("job picked up")
	return p.runner.Run(ctx, jobID)
}
