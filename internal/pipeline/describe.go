package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// SceneDescriber uploads each frame and asks a multimodal model to describe it.
type SceneDescriber struct {
	gen     adapter.StructuredGenerator
	storage adapter.ObjectStorage
	tr      Translator
	model   string
	timeout time.Duration
	log     *zerolog.Logger
}

func NewSceneDescriber(gen adapter.StructuredGenerator, storage adapter.ObjectStorage, tr Translator, modelName string, timeout time.Duration, logger *zerolog.Logger) *SceneDescriber {
	l := logger.With().Str("component", "SceneDescriber").Logger()
	return &SceneDescriber{gen: gen, storage: storage, tr: tr, model: modelName, timeout: timeout, log: &l}
}

type frameDescription struct {
	Scene       string   `json:"scene"`
	Objects     []string `json:"objects"`
	Description string   `json:"description"`
}

// Describe returns one analysis per frame in input order. A frame whose
// description fails gets placeholder values; it is dropped only when it
// cannot be uploaded either.
func (d *SceneDescriber) Describe(ctx context.Context, jobID int64, frames []Frame) []model.FrameAnalysis {
	out := make([]model.FrameAnalysis, 0, len(frames))
	for _, f := range frames {
		fa, err := d.describeOne(ctx, jobID, f)
		if err == nil {
			out = append(out, fa)
			continue
		}
		d.log.Warn().Err(err).Int64("job_id", jobID).Int("frame", f.Index).Msg("frame analysis failed")

		url, upErr := d.upload(ctx, jobID, f)
		if upErr != nil {
			d.log.Error().Err(upErr).Int64("job_id", jobID).Int("frame", f.Index).Msg("frame upload failed, dropping frame")
			continue
		}
		out = append(out, model.FrameAnalysis{
			Timestamp:   floorSeconds(f.Timestamp),
			FrameURL:    url,
			Scene:       FallbackScene,
			Description: FallbackDescription,
			Objects:     []string{},
		})
	}
	return out
}

func (d *SceneDescriber) describeOne(ctx context.Context, jobID int64, f Frame) (model.FrameAnalysis, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return model.FrameAnalysis{}, err
	}
	url, err := d.storage.Put(ctx, frameKey(jobID, f.Index), data, "image/jpeg")
	if err != nil {
		return model.FrameAnalysis{}, fmt.Errorf("upload frame: %w", err)
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	raw, _, err := d.gen.GenerateJSON(ctx, adapter.StructuredRequest{
		Model:      d.model,
		System:     d.tr.T("frame.system"),
		Prompt:     d.tr.T("frame.instruction"),
		ImageURL:   url,
		ImageData:  data,
		ImageMIME:  "image/jpeg",
		SchemaName: "frame_analysis",
		Schema:     frameSchema,
	})
	if err != nil {
		return model.FrameAnalysis{}, err
	}
	var desc frameDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return model.FrameAnalysis{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	if desc.Objects == nil {
		desc.Objects = []string{}
	}
	return model.FrameAnalysis{
		Timestamp:   floorSeconds(f.Timestamp),
		FrameURL:    url,
		Scene:       desc.Scene,
		Description: desc.Description,
		Objects:     desc.Objects,
	}, nil
}

func (d *SceneDescriber) upload(ctx context.Context, jobID int64, f Frame) (string, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", err
	}
	return d.storage.Put(ctx, frameKey(jobID, f.Index), data, "image/jpeg")
}

func frameKey(jobID int64, index int) string {
	return artifactKey(jobID, fmt.Sprintf("frame_%d.jpg", index))
}

func floorSeconds(ts float64) int { return int(math.Floor(ts)) }
