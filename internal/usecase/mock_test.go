//go:build !integration

package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/repository"
)

// memJobRepo is an in-memory JobRepository.
type memJobRepo struct {
	mu     sync.Mutex
	jobs   map[int64]*model.Job
	nextID int64

	CreateErr error
}

var _ repository.JobRepository = (*memJobRepo)(nil)

func newMemJobRepo() *memJobRepo { return &memJobRepo{jobs: map[int64]*model.Job{}} }

func (m *memJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	job.ID = m.nextID
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobRepo) Update(ctx context.Context, id int64, patch model.JobPatch) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := *j
	if err := next.Apply(patch, time.Now()); err != nil {
		return nil, err
	}
	m.jobs[id] = &next
	cp := next
	return &cp, nil
}

func (m *memJobRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memJobRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memJobRepo) ListStale(ctx context.Context, tx repository.Tx, before time.Time) ([]*model.Job, error) {
	return nil, nil
}

type mockQueue struct {
	EnqueueFunc func(jobID int64) error
	ids         []int64
}

func (m *mockQueue) Enqueue(jobID int64) error {
	m.ids = append(m.ids, jobID)
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(jobID)
	}
	return nil
}

type staticCreds bool

func (c staticCreds) Configured() bool { return bool(c) }
