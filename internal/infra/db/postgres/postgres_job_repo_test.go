//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
)

func TestJobRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewPostgresJobRepo(testPool, NewTxManager(testPool))

	newJob := func(t *testing.T) *model.Job {
		t.Helper()
		job := model.NewJob("https://www.bilibili.com/video/BV1xx411c7mD", model.PlatformBilibili, time.Now())
		if err := repo.Create(ctx, nil, job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		return job
	}

	t.Run("should create and find a job", func(t *testing.T) {
		cleanup(t)
		job := newJob(t)
		if job.ID == 0 {
			t.Fatal("wanted an assigned id, got 0")
		}
		got, err := repo.FindByID(ctx, nil, job.ID)
		if err != nil {
			t.Fatalf("failed to find job: %v", err)
		}
		if got.Status != model.JobStatusPending || got.Progress != 0 || got.Platform != model.PlatformBilibili {
			t.Errorf("unexpected job: %+v", got)
		}
		if got.FrameAnalyses == nil || got.KeyPoints == nil {
			t.Error("wanted empty, non-nil artifact lists")
		}
	})

	t.Run("should merge patches and persist JSON columns", func(t *testing.T) {
		cleanup(t)
		job := newJob(t)
		md := model.Metadata{VideoID: "BV1", Title: "t", DurationSeconds: 70, Hashtags: []string{"a"}}
		if _, err := repo.Update(ctx, job.ID, model.JobPatch{Status: model.Ptr(model.JobStatusDownloading), Progress: model.Ptr(20), Metadata: &md}); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		frames := []model.FrameAnalysis{{Timestamp: 10, Scene: "street", Objects: []string{"car"}}}
		got, err := repo.Update(ctx, job.ID, model.JobPatch{Progress: model.Ptr(5), FrameAnalyses: frames})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if got.Progress != 20 {
			t.Errorf("wanted progress to stay at 20, got %d", got.Progress)
		}
		stored, _ := repo.FindByID(ctx, nil, job.ID)
		if stored.Metadata.Title != "t" || len(stored.FrameAnalyses) != 1 || stored.FrameAnalyses[0].Objects[0] != "car" {
			t.Errorf("JSON columns did not round trip: %+v", stored)
		}
	})

	t.Run("should refuse writes to a terminal job", func(t *testing.T) {
		cleanup(t)
		job := newJob(t)
		if _, err := repo.Update(ctx, job.ID, model.JobPatch{Status: model.Ptr(model.JobStatusFailed), ErrorMessage: model.Ptr("boom")}); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		_, err := repo.Update(ctx, job.ID, model.JobPatch{Progress: model.Ptr(50)})
		if !errors.Is(err, domain.ErrJobClosed) {
			t.Errorf("wanted ErrJobClosed, got %v", err)
		}
	})

	t.Run("should serialize concurrent updates", func(t *testing.T) {
		cleanup(t)
		job := newJob(t)
		var wg sync.WaitGroup
		for p := 1; p <= 20; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				_, _ = repo.Update(ctx, job.ID, model.JobPatch{Progress: model.Ptr(p)})
			}(p)
		}
		wg.Wait()
		got, _ := repo.FindByID(ctx, nil, job.ID)
		if got.Progress != 20 {
			t.Errorf("wanted the highest progress 20, got %d", got.Progress)
		}
	})

	t.Run("should list newest first and find stale jobs", func(t *testing.T) {
		cleanup(t)
		first := newJob(t)
		second := newJob(t)
		list, err := repo.List(ctx, nil, 10)
		if err != nil || len(list) != 2 {
			t.Fatalf("wanted 2 jobs, got %d (%v)", len(list), err)
		}
		if list[0].ID != second.ID {
			t.Errorf("wanted newest job %d first, got %d", second.ID, list[0].ID)
		}
		if _, err := repo.Update(ctx, first.ID, model.JobPatch{Status: model.Ptr(model.JobStatusFailed)}); err != nil {
			t.Fatalf("update failed: %v", err)
		}
		stale, err := repo.ListStale(ctx, nil, time.Now().Add(time.Minute))
		if err != nil {
			t.Fatalf("ListStale failed: %v", err)
		}
		if len(stale) != 1 || stale[0].ID != second.ID {
			t.Errorf("wanted only the open job %d, got %+v", second.ID, stale)
		}
	})

	t.Run("should return not found", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByID(ctx, nil, 999); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("wanted ErrNotFound, got %v", err)
		}
	})
}
