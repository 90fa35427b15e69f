//go:build !integration

package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/adapter"
	"video-analyzer/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// =============================
// Repository
// =============================

// MockJobRepo keeps jobs in memory and applies patches the way the
// Postgres repository does, recording every persisted snapshot.
type MockJobRepo struct {
	mu      sync.Mutex
	jobs    map[int64]*model.Job
	nextID  int64
	History []model.Job

	UpdateFunc func(ctx context.Context, id int64, patch model.JobPatch) (*model.Job, error)
}

var _ repository.JobRepository = (*MockJobRepo)(nil)

func NewMockJobRepo() *MockJobRepo {
	return &MockJobRepo{jobs: map[int64]*model.Job{}}
}

func (m *MockJobRepo) Create(ctx context.Context, tx repository.Tx, job *model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	job.ID = m.nextID
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MockJobRepo) Update(ctx context.Context, id int64, patch model.JobPatch) (*model.Job, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
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
	m.History = append(m.History, next)
	cp := next
	return &cp, nil
}

func (m *MockJobRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *MockJobRepo) List(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockJobRepo) ListStale(ctx context.Context, tx repository.Tx, before time.Time) ([]*model.Job, error) {
	return nil, nil
}

// ForceClose simulates a soft delete from another goroutine.
func (m *MockJobRepo) ForceClose(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := m.jobs[id]
	_ = j.Apply(model.JobPatch{Status: model.Ptr(model.JobStatusFailed), ErrorMessage: model.Ptr("Deleted by user"), Force: true}, time.Now())
}

// =============================
// Adapters
// =============================

type MockMetadata struct {
	FetchFunc func(ctx context.Context, platform model.Platform, sourceURL string) (model.Metadata, error)
}

var _ adapter.MetadataProvider = (*MockMetadata)(nil)

func (m *MockMetadata) Fetch(ctx context.Context, platform model.Platform, sourceURL string) (model.Metadata, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, platform, sourceURL)
	}
	return model.Metadata{
		VideoID:         "v1",
		Title:           "A title",
		Author:          "someone",
		PlayURL:         "https://cdn.example.com/v1.mp4",
		DurationSeconds: 70,
	}, nil
}

type MockDownloader struct {
	mu    sync.Mutex
	Calls int

	DownloadFunc func(ctx context.Context, mediaURL, referer, dest string) (int64, error)
}

var _ adapter.MediaDownloader = (*MockDownloader)(nil)

func (m *MockDownloader) Download(ctx context.Context, mediaURL, referer, dest string) (int64, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, mediaURL, referer, dest)
	}
	data := []byte(strings.Repeat("v", 2048))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// statusErr mimics the downloader's HTTP status error.
type statusErr struct{ code int }

func (e statusErr) Error() string   { return fmt.Sprintf("unexpected status %d", e.code) }
func (e statusErr) Permanent() bool { return e.code >= 400 && e.code < 500 }

type MockTools struct {
	ProbeFunc func(ctx context.Context, path string) (float64, error)
	AudioFunc func(ctx context.Context, videoPath, audioPath string) error
	FrameFunc func(ctx context.Context, videoPath string, at float64, framePath string) error
}

var _ adapter.MediaToolkit = (*MockTools)(nil)

func (m *MockTools) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if m.ProbeFunc != nil {
		return m.ProbeFunc(ctx, path)
	}
	return 70, nil
}

func (m *MockTools) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if m.AudioFunc != nil {
		return m.AudioFunc(ctx, videoPath, audioPath)
	}
	return os.WriteFile(audioPath, []byte("RIFF"), 0o644)
}

func (m *MockTools) ExtractFrame(ctx context.Context, videoPath string, at float64, framePath string) error {
	if m.FrameFunc != nil {
		return m.FrameFunc(ctx, videoPath, at, framePath)
	}
	return os.WriteFile(framePath, []byte("jpeg"), 0o644)
}

type MockRecognizer struct {
	RecognizeFunc func(ctx context.Context, imagePath string) (string, error)
}

func (m *MockRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(ctx, imagePath)
	}
	return "", nil
}

type MockStorage struct {
	mu   sync.Mutex
	Keys []string

	PutFunc func(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

var _ adapter.ObjectStorage = (*MockStorage)(nil)

func (m *MockStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, data, contentType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, key)
	return "https://storage.example.com/" + key, nil
}

type MockGenerator struct {
	mu       sync.Mutex
	Requests []adapter.StructuredRequest

	GenerateFunc func(ctx context.Context, req adapter.StructuredRequest) ([]byte, adapter.Usage, error)
}

var _ adapter.StructuredGenerator = (*MockGenerator)(nil)

func (m *MockGenerator) GenerateJSON(ctx context.Context, req adapter.StructuredRequest) ([]byte, adapter.Usage, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	if req.SchemaName == "content_summary" {
		return []byte(`{"summary":"a short video","keyPoints":["one","two"]}`), adapter.Usage{}, nil
	}
	return []byte(`{"scene":"kitchen","objects":["pan"],"description":"someone cooks"}`), adapter.Usage{}, nil
}

type MockSpeech struct {
	TranscribeFunc func(ctx context.Context, audioURL, hint string) (model.Transcript, error)
}

var _ adapter.SpeechToText = (*MockSpeech)(nil)

func (m *MockSpeech) Transcribe(ctx context.Context, audioURL, hint string) (model.Transcript, error) {
	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audioURL, hint)
	}
	return model.Transcript{Text: "hello there", Language: "en"}, nil
}

// keyTranslator echoes the key and formats any args after it.
type keyTranslator struct{}

func (keyTranslator) T(key string, args ...interface{}) string {
	if len(args) == 0 {
		return key
	}
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return key + "(" + strings.Join(parts, "|") + ")"
}

// wordCounter counts whitespace separated words as tokens.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func (wordCounter) Truncate(text string, maxTokens int) string {
	f := strings.Fields(text)
	if len(f) > maxTokens {
		f = f[:maxTokens]
	}
	return strings.Join(f, " ")
}
