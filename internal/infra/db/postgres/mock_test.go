//go:build !integration

package postgres

import (
	"context"
	"sync"
	"time"

	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/repository"
	red "video-analyzer/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerJobRepo mocks the database repository that the job decorator wraps.
type mockInnerJobRepo struct {
	CreateFunc    func(ctx context.Context, tx repository.Tx, job *model.Job) error
	UpdateFunc    func(ctx context.Context, id int64, patch model.JobPatch) (*model.Job, error)
	FindByIDFunc  func(ctx context.Context, tx repository.Tx, id int64) (*model.Job, error)
	ListFunc      func(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error)
	ListStaleFunc func(ctx context.Context, tx repository.Tx, before time.Time) ([]*model.Job, error)
}

func (m *mockInnerJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	return m.CreateFunc(ctx, tx, job)
}
func (m *mockInnerJobRepo) Update(ctx context.Context, id int64, patch model.JobPatch) (*model.Job, error) {
	return m.UpdateFunc(ctx, id, patch)
}
func (m *mockInnerJobRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Job, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerJobRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	return m.ListFunc(ctx, tx, limit)
}
func (m *mockInnerJobRepo) ListStale(ctx context.Context, tx repository.Tx, before time.Time) ([]*model.Job, error) {
	return m.ListStaleFunc(ctx, tx, before)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc   func(ctx context.Context, key string) (string, error)
	SetFunc   func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelFunc   func(ctx context.Context, keys ...string) error
	PingFunc  func(ctx context.Context) error
	CloseFunc func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", red.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if m.SetNXFunc == nil {
		return true, nil
	}
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Close() error { return m.CloseFunc() }

// newMapRedis returns a mockRedisClient backed by an in-memory map.
func newMapRedis() *mockRedisClient {
	var mu sync.Mutex
	store := map[string]string{}
	return &mockRedisClient{
		GetFunc: func(ctx context.Context, key string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if v, ok := store[key]; ok {
				return v, nil
			}
			return "", red.Nil
		},
		SetFunc: func(ctx context.Context, key string, value interface{}, exp time.Duration) error {
			mu.Lock()
			defer mu.Unlock()
			store[key] = string(value.([]byte))
			return nil
		},
		SetNXFunc: func(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			if _, ok := store[key]; ok {
				return false, nil
			}
			store[key] = string(value.([]byte))
			return true, nil
		},
		DelFunc: func(ctx context.Context, keys ...string) error {
			mu.Lock()
			defer mu.Unlock()
			for _, k := range keys {
				delete(store, k)
			}
			return nil
		},
	}
}
