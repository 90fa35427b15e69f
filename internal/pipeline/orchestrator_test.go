//go:build !integration

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/adapter"
)

type orchestratorFixture struct {
	repo  *MockJobRepo
	meta  *MockMetadata
	dl    *MockDownloader
	tools *MockTools
	rec   *MockRecognizer
	store *MockStorage
	gen   *MockGenerator
	stt   *MockSpeech
	root  string
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	return &orchestratorFixture{
		repo:  NewMockJobRepo(),
		meta:  &MockMetadata{},
		dl:    &MockDownloader{},
		tools: &MockTools{},
		rec:   &MockRecognizer{},
		store: &MockStorage{},
		gen:   &MockGenerator{},
		stt:   &MockSpeech{},
		root:  t.TempDir(),
	}
}

func (f *orchestratorFixture) build() *Orchestrator {
	log := newTestLogger()
	acq := NewAcquirer(f.dl, 3, time.Millisecond, 0, log)
	acq.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return NewOrchestrator(Deps{
		Jobs:        f.repo,
		Metadata:    f.meta,
		Acquirer:    acq,
		Audio:       NewAudioExtractor(f.tools, 0),
		Transcriber: NewTranscriber(f.store, f.stt, "zh", 0),
		Frames:      NewFrameSampler(f.tools, DefaultFrameCount, 0, log),
		OCR:         NewTextExtractor(f.rec, 0, log),
		Describer:   NewSceneDescriber(f.gen, f.store, keyTranslator{}, "vision", 0, log),
		Summarizer:  NewSummarizer(f.gen, keyTranslator{}, nil, 4000, "text", 0, log),
		ScratchRoot: f.root,
	}, log)
}

func (f *orchestratorFixture) submit(t *testing.T) int64 {
	t.Helper()
	job := model.NewJob("https://www.douyin.com/video/1", model.PlatformDouyin, time.Now())
	if err := f.repo.Create(context.Background(), nil, job); err != nil {
		t.Fatal(err)
	}
	return job.ID
}

func assertMonotonic(t *testing.T, history []model.Job) {
	t.Helper()
	last := 0
	for i, j := range history {
		if j.Progress < last {
			t.Errorf("progress went down at write %d: %d -> %d", i, last, j.Progress)
		}
		if j.Progress == 100 && j.Status != model.JobStatusCompleted {
			t.Errorf("write %d reports 100%% while %s", i, j.Status)
		}
		last = j.Progress
	}
}

func assertScratchEmpty(t *testing.T, root string) {
	t.Helper()
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("wanted scratch root empty, found %d entries", len(entries))
	}
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("completes the full pipeline", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		f.rec.RecognizeFunc = func(ctx context.Context, imagePath string) (string, error) {
			if strings.HasSuffix(imagePath, "frame_1.jpg") {
				return "HELLO", nil
			}
			return "", nil
		}
		id := f.submit(t)

		if err := f.build().Run(ctx, id); err != nil {
			t.Fatalf("Run returned %v", err)
		}

		job, _ := f.repo.FindByID(ctx, nil, id)
		if job.Status != model.JobStatusCompleted || job.Progress != 100 {
			t.Fatalf("wanted completed/100, got %s/%d (err=%v)", job.Status, job.Progress, job.ErrorMessage)
		}
		if job.CompletedAt == nil {
			t.Error("wanted completedAt to be set")
		}
		if job.Metadata.Title != "A title" {
			t.Errorf("metadata not persisted: %+v", job.Metadata)
		}
		if job.Transcript == nil || *job.Transcript != "hello there" || *job.TranscriptLanguage != "en" {
			t.Errorf("unexpected transcript %v", job.Transcript)
		}
		if job.OCRText == nil || *job.OCRText != "[10s] HELLO" {
			t.Errorf("unexpected ocr text %v", job.OCRText)
		}
		if len(job.FrameAnalyses) != 6 {
			t.Fatalf("wanted 6 frame analyses, got %d", len(job.FrameAnalyses))
		}
		for i, fa := range job.FrameAnalyses {
			if fa.Timestamp != (i+1)*10 {
				t.Errorf("frame %d: wanted ts %d, got %d", i, (i+1)*10, fa.Timestamp)
			}
		}
		if job.ContentSummary == nil || *job.ContentSummary != "a short video" || len(job.KeyPoints) != 2 {
			t.Errorf("unexpected summary %v %v", job.ContentSummary, job.KeyPoints)
		}
		assertMonotonic(t, f.repo.History)
		assertScratchEmpty(t, f.root)
	})

	t.Run("visits statuses in order", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		id := f.submit(t)
		_ = f.build().Run(ctx, id)

		var seq []model.JobStatus
		for _, j := range f.repo.History {
			if len(seq) == 0 || seq[len(seq)-1] != j.Status {
				seq = append(seq, j.Status)
			}
		}
		want := []model.JobStatus{
			model.JobStatusDownloading, model.JobStatusExtracting, model.JobStatusAnalyzing,
			model.JobStatusExtracting, model.JobStatusAnalyzing, model.JobStatusCompleted,
		}
		if len(seq) != len(want) {
			t.Fatalf("wanted %v, got %v", want, seq)
		}
		for i := range want {
			if seq[i] != want[i] {
				t.Errorf("step %d: wanted %s, got %s", i, want[i], seq[i])
			}
		}
	})

	t.Run("transcription failure still completes", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		f.stt.TranscribeFunc = func(ctx context.Context, audioURL, hint string) (model.Transcript, error) {
			return model.Transcript{}, errors.New("whisper unavailable")
		}
		id := f.submit(t)
		_ = f.build().Run(ctx, id)

		job, _ := f.repo.FindByID(ctx, nil, id)
		if job.Status != model.JobStatusCompleted {
			t.Fatalf("wanted completed, got %s", job.Status)
		}
		if job.Transcript != nil {
			t.Errorf("wanted no transcript, got %q", *job.Transcript)
		}
		for _, req := range f.gen.Requests {
			if req.SchemaName == "content_summary" && strings.Contains(req.Prompt, "summary.transcript") {
				t.Errorf("summary prompt should omit the transcript section")
			}
		}
	})

	t.Run("audio failure skips transcription", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		f.tools.AudioFunc = func(ctx context.Context, videoPath, audioPath string) error {
			return errors.New("no audio stream")
		}
		called := false
		f.stt.TranscribeFunc = func(ctx context.Context, audioURL, hint string) (model.Transcript, error) {
			called = true
			return model.Transcript{}, nil
		}
		id := f.submit(t)
		_ = f.build().Run(ctx, id)

		job, _ := f.repo.FindByID(ctx, nil, id)
		if job.Status != model.JobStatusCompleted {
			t.Fatalf("wanted completed, got %s", job.Status)
		}
		if called {
			t.Error("speech-to-text should not run without audio")
		}
	})

	t.Run("acquisition failure fails the job and cleans up", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		f.dl.DownloadFunc = func(ctx context.Context, mediaURL, referer, dest string) (int64, error) {
			if err := os.WriteFile(dest, []byte("partial"), 0o644); err != nil {
				return 0, err
			}
			return 0, errors.New("connection reset")
		}
		id := f.submit(t)
		_ = f.build().Run(ctx, id)

		job, _ := f.repo.FindByID(ctx, nil, id)
		if job.Status != model.JobStatusFailed {
			t.Fatalf("wanted failed, got %s", job.Status)
		}
		if job.ErrorMessage == nil || !strings.Contains(*job.ErrorMessage, "after 3 attempt(s)") {
			t.Errorf("unexpected error message %v", job.ErrorMessage)
		}
		if job.Progress >= 100 {
			t.Errorf("failed job must not report 100, got %d", job.Progress)
		}
		if job.Progress != 25 {
			t.Errorf("wanted progress to stay at 25, got %d", job.Progress)
		}
		assertScratchEmpty(t, f.root)
	})

	t.Run("metadata errors fail the job", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		f.meta.FetchFunc = func(ctx context.Context, platform model.Platform, sourceURL string) (model.Metadata, error) {
			return model.Metadata{}, domain.ErrCredential
		}
		id := f.submit(t)
		_ = f.build().Run(ctx, id)

		job, _ := f.repo.FindByID(ctx, nil, id)
		if job.Status != model.JobStatusFailed || job.ErrorMessage == nil {
			t.Fatalf("wanted failed with message, got %s", job.Status)
		}
		if f.dl.Calls != 0 {
			t.Errorf("download should not start, got %d calls", f.dl.Calls)
		}
	})

	t.Run("unknown duration fails the job", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		f.tools.ProbeFunc = func(ctx context.Context, path string) (float64, error) { return 0, nil }
		f.meta.FetchFunc = func(ctx context.Context, platform model.Platform, sourceURL string) (model.Metadata, error) {
			return model.Metadata{PlayURL: "https://cdn/v.mp4"}, nil
		}
		id := f.submit(t)
		_ = f.build().Run(ctx, id)

		job, _ := f.repo.FindByID(ctx, nil, id)
		if job.Status != model.JobStatusFailed {
			t.Fatalf("wanted failed, got %s", job.Status)
		}
		if !strings.Contains(*job.ErrorMessage, domain.ErrUnknownDuration.Error()) {
			t.Errorf("unexpected error message %q", *job.ErrorMessage)
		}
	})

	t.Run("deleted mid-run stops without overwriting", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		id := f.submit(t)
		f.tools.ProbeFunc = func(ctx context.Context, path string) (float64, error) {
			f.repo.ForceClose(id)
			return 70, nil
		}
		_ = f.build().Run(ctx, id)

		job, _ := f.repo.FindByID(ctx, nil, id)
		if job.Status != model.JobStatusFailed || *job.ErrorMessage != "Deleted by user" {
			t.Errorf("wanted the delete to stick, got %s %v", job.Status, job.ErrorMessage)
		}
		assertScratchEmpty(t, f.root)
	})

	t.Run("non-pending jobs are skipped", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		id := f.submit(t)
		f.repo.ForceClose(id)
		if err := f.build().Run(ctx, id); err != nil {
			t.Fatalf("wanted nil, got %v", err)
		}
		if f.dl.Calls != 0 {
			t.Errorf("wanted no work, got %d downloads", f.dl.Calls)
		}
	})

	t.Run("summary failure completes with fallback", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		f.gen.GenerateFunc = func(ctx context.Context, req adapter.StructuredRequest) ([]byte, adapter.Usage, error) {
			return nil, adapter.Usage{}, errors.New("provider down")
		}
		id := f.submit(t)
		_ = f.build().Run(ctx, id)

		job, _ := f.repo.FindByID(ctx, nil, id)
		if job.Status != model.JobStatusCompleted {
			t.Fatalf("wanted completed, got %s", job.Status)
		}
		if *job.ContentSummary != FallbackSummary {
			t.Errorf("wanted fallback summary, got %q", *job.ContentSummary)
		}
		for _, fa := range job.FrameAnalyses {
			if fa.Scene != FallbackScene {
				t.Errorf("wanted placeholder scene, got %q", fa.Scene)
			}
		}
	})

	t.Run("best-effort stages record degraded outcomes", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		f.rec.RecognizeFunc = func(ctx context.Context, imagePath string) (string, error) {
			return "", errors.New("tesseract crashed")
		}
		f.gen.GenerateFunc = func(ctx context.Context, req adapter.StructuredRequest) ([]byte, adapter.Usage, error) {
			return nil, adapter.Usage{}, errors.New("provider down")
		}
		id := f.submit(t)
		o := f.build()
		outcomes := map[string]string{}
		o.observe = func(stage, outcome string, seconds float64) { outcomes[stage] = outcome }

		if err := o.Run(ctx, id); err != nil {
			t.Fatalf("Run returned %v", err)
		}
		job, _ := f.repo.FindByID(ctx, nil, id)
		if job.Status != model.JobStatusCompleted {
			t.Fatalf("wanted completed, got %s", job.Status)
		}
		for _, s := range []Stage{StageOCR, StageDescribe, StageSummarize} {
			if got := outcomes[string(s)]; got != "degraded" {
				t.Errorf("%s: wanted degraded, got %q", s, got)
			}
		}
		if got := outcomes[string(StageFrames)]; got != "ok" {
			t.Errorf("frames: wanted ok, got %q", got)
		}
	})

	t.Run("healthy stages record ok", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		id := f.submit(t)
		o := f.build()
		outcomes := map[string]string{}
		o.observe = func(stage, outcome string, seconds float64) { outcomes[stage] = outcome }

		if err := o.Run(ctx, id); err != nil {
			t.Fatalf("Run returned %v", err)
		}
		for _, s := range []Stage{StageOCR, StageDescribe, StageSummarize} {
			if got := outcomes[string(s)]; got != "ok" {
				t.Errorf("%s: wanted ok, got %q", s, got)
			}
		}
	})

	t.Run("scratch lives under the configured root", func(t *testing.T) {
		f := newOrchestratorFixture(t)
		var seen string
		f.dl.DownloadFunc = func(ctx context.Context, mediaURL, referer, dest string) (int64, error) {
			seen = dest
			return 0, statusErr{code: 404}
		}
		id := f.submit(t)
		_ = f.build().Run(ctx, id)
		if filepath.Dir(filepath.Dir(seen)) != f.root {
			t.Errorf("download dest %s not under %s", seen, f.root)
		}
	})
}
