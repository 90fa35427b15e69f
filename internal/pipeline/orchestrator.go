package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/adapter"
	"video-analyzer/internal/domain/ports/repository"
	"video-analyzer/internal/domain/ports/usecase"
	"video-analyzer/internal/infra/logging"
	"video-analyzer/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ usecase.JobRunner = (*Orchestrator)(nil)

// Deps groups everything the orchestrator drives.
type Deps struct {
	Jobs        repository.JobRepository
	Metadata    adapter.MetadataProvider
	Acquirer    *Acquirer
	Audio       *AudioExtractor
	Transcriber *Transcriber
	Frames      *FrameSampler
	OCR         *TextExtractor
	Describer   *SceneDescriber
	Summarizer  *Summarizer

	ScratchRoot     string
	MetadataTimeout time.Duration
}

// Orchestrator runs a single job through every stage in order and persists
// status and progress after each one.
type Orchestrator struct {
	d       Deps
	now     func() time.Time
	observe func(stage, outcome string, seconds float64)
	log     *zerolog.Logger
}

func NewOrchestrator(d Deps, logger *zerolog.Logger) *Orchestrator {
	l := logger.With().Str("component", "Orchestrator").Logger()
	return &Orchestrator{d: d, now: time.Now, observe: metrics.ObserveStage, log: &l}
}

// Run processes a pending job to a terminal state. Jobs that are not pending
// are skipped so a redelivered job id is harmless.
func (o *Orchestrator) Run(ctx context.Context, jobID int64) error {
	job, err := o.d.Jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return fmt.Errorf("load job %d: %w", jobID, err)
	}
	if job.Status != model.JobStatusPending {
		o.log.Info().Int64("job_id", jobID).Str("status", string(job.Status)).Msg("job is not pending, skipping")
		return nil
	}

	ctx = logging.WithRunID(logging.WithJobID(ctx, jobID), logging.NewRunID())
	log := logging.With(ctx, o.log)
	log.Info().Str("url", job.SourceURL).Msg("processing job")
	start := o.now()

	scratch, err := NewScratch(o.d.ScratchRoot, jobID)
	if err != nil {
		o.finish(log, jobID, err, start)
		return nil
	}
	defer func() {
		if err := scratch.Release(); err != nil {
			log.Warn().Err(err).Str("dir", scratch.Dir()).Msg("scratch cleanup failed")
		}
	}()

	err = o.execute(ctx, log, job, scratch)
	o.finish(log, jobID, err, start)
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, log *zerolog.Logger, job *model.Job, scratch *Scratch) error {
	id := job.ID

	// 1. metadata + media
	if err := o.persist(ctx, id, model.JobStatusDownloading, 10, model.JobPatch{}); err != nil {
		return err
	}
	var platform model.Platform
	var md model.Metadata
	err := o.stage(ctx, StageMetadata, func(ctx context.Context) error {
		var err error
		platform, md, err = o.fetchMetadata(ctx, job)
		return err
	})
	if err != nil {
		return err
	}
	if err := o.persist(ctx, id, "", 20, model.JobPatch{Platform: &platform, Metadata: &md}); err != nil {
		return err
	}

	if err := o.persist(ctx, id, "", 25, model.JobPatch{}); err != nil {
		return err
	}
	var videoPath string
	err = o.stage(ctx, StageAcquire, func(ctx context.Context) error {
		var err error
		videoPath, err = o.d.Acquirer.Acquire(ctx, md.PlayURL, job.SourceURL, scratch)
		return err
	})
	if err != nil {
		return err
	}
	if err := o.persist(ctx, id, "", 30, model.JobPatch{}); err != nil {
		return err
	}

	// 2. audio
	if err := o.persist(ctx, id, model.JobStatusExtracting, 30, model.JobPatch{}); err != nil {
		return err
	}
	var audioPath string
	err = o.stage(ctx, StageAudio, func(ctx context.Context) error {
		var err error
		audioPath, err = o.d.Audio.Extract(ctx, videoPath, scratch)
		return err
	})
	if err != nil {
		metrics.IncStageDegraded(string(StageAudio))
		log.Warn().Err(err).Msg("audio extraction failed, transcription will be skipped")
		audioPath = ""
	}
	if err := o.persist(ctx, id, "", 35, model.JobPatch{}); err != nil {
		return err
	}

	// 3. transcription
	if err := o.persist(ctx, id, model.JobStatusAnalyzing, 40, model.JobPatch{}); err != nil {
		return err
	}
	var transcript *string
	patch := model.JobPatch{}
	if audioPath != "" {
		var tr *model.Transcript
		err = o.stage(ctx, StageTranscribe, func(ctx context.Context) error {
			var err error
			tr, err = o.d.Transcriber.Transcribe(ctx, id, audioPath)
			return err
		})
		if err != nil {
			metrics.IncStageDegraded(string(StageTranscribe))
			log.Warn().Err(err).Msg("transcription failed, continuing without transcript")
		} else {
			transcript = &tr.Text
			patch.Transcript = &tr.Text
			patch.TranscriptLanguage = &tr.Language
			log.Info().Int("chars", len(tr.Text)).Str("language", tr.Language).Msg("transcription completed")
		}
	}
	if err := o.persist(ctx, id, "", 55, patch); err != nil {
		return err
	}

	// 4. frames + OCR
	if err := o.persist(ctx, id, model.JobStatusExtracting, 60, model.JobPatch{}); err != nil {
		return err
	}
	var frames []Frame
	err = o.stage(ctx, StageFrames, func(ctx context.Context) error {
		var err error
		frames, err = o.d.Frames.Sample(ctx, videoPath, md.DurationSeconds, scratch)
		return err
	})
	if err != nil {
		return err
	}
	log.Info().Int("frames", len(frames)).Msg("frames sampled")
	if err := o.persist(ctx, id, "", 65, model.JobPatch{}); err != nil {
		return err
	}

	var ocrText string
	_ = o.stage(ctx, StageOCR, func(ctx context.Context) error {
		var failed int
		ocrText, failed = o.d.OCR.Extract(ctx, frames)
		if failed > 0 {
			return fmt.Errorf("%w: %d of %d frames unreadable", errDegraded, failed, len(frames))
		}
		return nil
	})
	if err := o.persist(ctx, id, "", 70, model.JobPatch{OCRText: &ocrText}); err != nil {
		return err
	}

	// 5. description + summary
	if err := o.persist(ctx, id, model.JobStatusAnalyzing, 75, model.JobPatch{}); err != nil {
		return err
	}
	var analyses []model.FrameAnalysis
	_ = o.stage(ctx, StageDescribe, func(ctx context.Context) error {
		analyses = o.d.Describer.Describe(ctx, id, frames)
		placeholders := 0
		for _, fa := range analyses {
			if fa.Description == FallbackDescription {
				placeholders++
			}
		}
		if placeholders > 0 || len(analyses) < len(frames) {
			return fmt.Errorf("%w: %d placeholders, %d of %d frames dropped",
				errDegraded, placeholders, len(frames)-len(analyses), len(frames))
		}
		return nil
	})
	if analyses == nil {
		analyses = []model.FrameAnalysis{}
	}
	if err := o.persist(ctx, id, "", 85, model.JobPatch{FrameAnalyses: analyses}); err != nil {
		return err
	}

	var sum Summary
	_ = o.stage(ctx, StageSummarize, func(ctx context.Context) error {
		sum = o.d.Summarizer.Summarize(ctx, md, analyses, ocrText, transcript)
		if sum.Summary == FallbackSummary {
			return fmt.Errorf("%w: fallback summary", errDegraded)
		}
		return nil
	})
	return o.persist(ctx, id, "", 95, model.JobPatch{ContentSummary: &sum.Summary, KeyPoints: sum.KeyPoints})
}

func (o *Orchestrator) fetchMetadata(ctx context.Context, job *model.Job) (model.Platform, model.Metadata, error) {
	platform := job.Platform
	if platform == "" {
		p, err := model.ResolvePlatform(job.SourceURL)
		if err != nil {
			return "", model.Metadata{}, err
		}
		platform = p
	}
	if o.d.MetadataTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.d.MetadataTimeout)
		defer cancel()
	}
	md, err := o.d.Metadata.Fetch(ctx, platform, job.SourceURL)
	if err != nil {
		return "", model.Metadata{}, err
	}
	return platform, md, nil
}

// stage times fn, records the outcome and tags any error with the stage name.
// A degraded result is recorded as such and swallowed.
func (o *Orchestrator) stage(ctx context.Context, s Stage, fn func(ctx context.Context) error) error {
	start := o.now()
	err := fn(ctx)
	outcome := "ok"
	switch {
	case errors.Is(err, errDegraded):
		outcome = "degraded"
		metrics.IncStageDegraded(string(s))
		logging.With(ctx, o.log).Warn().Str("stage", string(s)).Err(err).Msg("stage degraded")
		err = nil
	case err != nil:
		outcome = "error"
		err = wrapStage(s, err)
	}
	o.observe(string(s), outcome, o.now().Sub(start).Seconds())
	return err
}

func (o *Orchestrator) persist(ctx context.Context, id int64, status model.JobStatus, progress int, patch model.JobPatch) error {
	if status != "" {
		patch.Status = &status
	}
	patch.Progress = &progress
	if _, err := o.d.Jobs.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("persist progress %d: %w", progress, err)
	}
	return nil
}

// finish writes the terminal state. It uses a background context so a
// cancelled run still records its outcome.
func (o *Orchestrator) finish(log *zerolog.Logger, id int64, runErr error, start time.Time) {
	ctx := context.Background()
	if errors.Is(runErr, domain.ErrJobClosed) {
		log.Info().Msg("job was closed externally, stopping")
		return
	}

	if runErr == nil {
		now := o.now()
		_, err := o.d.Jobs.Update(ctx, id, model.JobPatch{
			Status:      model.Ptr(model.JobStatusCompleted),
			Progress:    model.Ptr(100),
			CompletedAt: &now,
		})
		if err == nil {
			metrics.IncJob(string(model.JobStatusCompleted))
			log.Info().Dur("duration", o.now().Sub(start)).Msg("job completed")
			return
		}
		if errors.Is(err, domain.ErrJobClosed) {
			log.Info().Msg("job was closed externally, stopping")
			return
		}
		runErr = fmt.Errorf("mark completed: %w", err)
	}

	msg := runErr.Error()
	if _, err := o.d.Jobs.Update(ctx, id, model.JobPatch{
		Status:       model.Ptr(model.JobStatusFailed),
		ErrorMessage: &msg,
	}); err != nil && !errors.Is(err, domain.ErrJobClosed) {
		log.Error().Err(err).Msg("failed to record job failure")
	}
	metrics.IncJob(string(model.JobStatusFailed))
	log.Error().Err(runErr).Dur("duration", o.now().Sub(start)).Msg("job failed")
}
