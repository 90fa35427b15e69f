package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/repository"
	"video-analyzer/internal/domain/ports/usecase"
	"video-analyzer/internal/infra/metrics"
	red "video-analyzer/internal/infra/redis"
)

const InterruptedMessage = "Processing interrupted"

// Reconciler periodically scans open jobs. Pending jobs that sat in the queue
// too long, or were dropped by a full queue or a restart, are enqueued again.
// Jobs mid-pipeline whose run lock is gone were interrupted and are failed.
type Reconciler struct {
	jobs       repository.JobRepository
	queue      usecase.JobQueue
	locker     red.Locker
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how long a held lock may go without progress before we warn
	now        func() time.Time
	log        *zerolog.Logger
}

func NewReconciler(jobs repository.JobRepository, queue usecase.JobQueue, locker red.Locker, interval, staleAfter time.Duration, logger *zerolog.Logger) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 45 * time.Minute
	}
	l := logger.With().Str("component", "Reconciler").Logger()
	return &Reconciler{jobs: jobs, queue: queue, locker: locker, interval: interval, staleAfter: staleAfter, now: time.Now, log: &l}
}

// Start sweeps once immediately to recover from a restart, then on every tick.
func (w *Reconciler) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("reconciler started")
	w.Tick(ctx, w.now())

	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("reconciler stopping")
			return
		case <-t.C:
			w.Tick(ctx, w.now().Add(-w.interval))
		}
	}
}

// Tick reconciles every open job not updated since cutoff.
func (w *Reconciler) Tick(ctx context.Context, cutoff time.Time) {
	open, err := w.jobs.ListStale(ctx, nil, cutoff)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale jobs failed")
		return
	}
	var requeued, interrupted int
	for _, j := range open {
		if ctx.Err() != nil {
			return
		}
		if j.Status == model.JobStatusPending {
			if err := w.queue.Enqueue(j.ID); err != nil {
				w.log.Warn().Err(err).Int64("job_id", j.ID).Msg("re-enqueue failed")
				continue
			}
			requeued++
			continue
		}

		held, err := w.locker.Held(ctx, red.JobLockKey(j.ID))
		if err != nil {
			w.log.Warn().Err(err).Int64("job_id", j.ID).Msg("lock check failed")
			continue
		}
		if held {
			if w.now().Sub(j.UpdatedAt) > w.staleAfter {
				w.log.Warn().Int64("job_id", j.ID).Time("updated_at", j.UpdatedAt).Msg("job holds its lock but has not progressed")
			}
			continue
		}
		_, err = w.jobs.Update(ctx, j.ID, model.JobPatch{
			Status:       model.Ptr(model.JobStatusFailed),
			ErrorMessage: model.Ptr(InterruptedMessage),
		})
		if err != nil {
			if !errors.Is(err, domain.ErrJobClosed) {
				w.log.Error().Err(err).Int64("job_id", j.ID).Msg("failed to mark interrupted job")
			}
			continue
		}
		interrupted++
		metrics.IncJob(string(model.JobStatusFailed))
		w.log.Info().Int64("job_id", j.ID).Str("status", string(j.Status)).Msg("interrupted job marked failed")
	}
	metrics.IncReconciled("requeued", requeued)
	metrics.IncReconciled("interrupted", interrupted)
}
