package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/repository"
	"video-analyzer/internal/infra/metrics"
	red "video-analyzer/internal/infra/redis"
)

var _ repository.JobRepository = (*jobRepoCacheDecorator)(nil)

// jobRepoCacheDecorator caches single-job reads, which the status endpoint
// hits on every poll. Update writes the committed row through to the cache;
// a read miss only fills an empty slot, so a snapshot taken before a
// concurrent Update can never replace the newer copy.
type jobRepoCacheDecorator struct {
	inner repository.JobRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewJobRepoCacheDecorator(inner repository.JobRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.JobRepository {
	if ttl <= 0 {
		ttl = time.Minute
	}
	l := logger.With().Str("component", "JobCache").Logger()
	return &jobRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: &l}
}

func jobCacheKey(id int64) string { return fmt.Sprintf("job:%d", id) }

func (d *jobRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Job, error) {
	// reads inside a transaction go to the database
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := jobCacheKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var job model.Job
		if json.Unmarshal([]byte(val), &job) == nil {
			metrics.IncCacheRequest("job", "hit")
			return &job, nil
		}
	} else if !errors.Is(err, red.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	metrics.IncCacheRequest("job", "miss")
	job, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(job); err == nil {
		if _, err := d.cache.SetNX(ctx, key, b, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return job, nil
}

func (d *jobRepoCacheDecorator) Update(ctx context.Context, id int64, patch model.JobPatch) (*model.Job, error) {
	job, err := d.inner.Update(ctx, id, patch)
	key := jobCacheKey(id)
	if err == nil && job != nil {
		if b, mErr := json.Marshal(job); mErr == nil {
			setErr := d.cache.Set(ctx, key, b, d.ttl)
			if setErr == nil {
				return job, nil
			}
			d.log.Warn().Err(setErr).Int64("job_id", id).Msg("cache write-through failed")
		}
	}
	if delErr := d.cache.Del(ctx, key); delErr != nil {
		d.log.Warn().Err(delErr).Int64("job_id", id).Msg("cache invalidation failed")
	}
	return job, err
}

func (d *jobRepoCacheDecorator) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	return d.inner.Create(ctx, tx, job)
}

func (d *jobRepoCacheDecorator) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	return d.inner.List(ctx, tx, limit)
}

func (d *jobRepoCacheDecorator) ListStale(ctx context.Context, tx repository.Tx, before time.Time) ([]*model.Job, error) {
	return d.inner.ListStale(ctx, tx, before)
}
