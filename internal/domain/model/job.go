package model

import (
	"time"

	"video-analyzer/internal/domain"
)

type JobStatus string

const (
	JobStatusPending     JobStatus = "pending"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusExtracting  JobStatus = "extracting"
	JobStatusAnalyzing   JobStatus = "analyzing"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
)

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusDownloading, JobStatusExtracting,
		JobStatusAnalyzing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// allowed lists the forward edges of the job lifecycle. Failure is reachable
// from every non-terminal state and is handled separately.
var allowed = map[JobStatus][]JobStatus{
	JobStatusPending:     {JobStatusDownloading},
	JobStatusDownloading: {JobStatusExtracting},
	JobStatusExtracting:  {JobStatusAnalyzing},
	JobStatusAnalyzing:   {JobStatusExtracting, JobStatusCompleted},
}

// CanTransition reports whether a job may move from one status to another.
// Staying in the same non-terminal status is always allowed.
func CanTransition(from, to JobStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if from == to || to == JobStatusFailed {
		return true
	}
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Metadata struct {
	VideoID         string   `json:"videoId"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Author          string   `json:"author"`
	AuthorID        string   `json:"authorId"`
	CoverURL        string   `json:"coverUrl"`
	PlayURL         string   `json:"playUrl"`
	DurationSeconds int      `json:"duration"`
	Hashtags        []string `json:"hashtags"`
	ViewCount       int64    `json:"viewCount"`
	LikeCount       int64    `json:"likeCount"`
	CommentCount    int64    `json:"commentCount"`
	ShareCount      int64    `json:"shareCount"`
}

type FrameAnalysis struct {
	Timestamp   int      `json:"timestamp"`
	FrameURL    string   `json:"frameUrl"`
	Scene       string   `json:"scene"`
	Description string   `json:"description"`
	Objects     []string `json:"objects"`
}

type Transcript struct {
	Text     string
	Language string
}

type Job struct {
	ID                 int64           `json:"id"`
	SourceURL          string          `json:"videoUrl"`
	Platform           Platform        `json:"platform,omitempty"`
	Metadata           Metadata        `json:"metadata"`
	Status             JobStatus       `json:"status"`
	Progress           int             `json:"progress"`
	ErrorMessage       *string         `json:"errorMessage,omitempty"`
	Transcript         *string         `json:"transcript,omitempty"`
	TranscriptLanguage *string         `json:"transcriptLanguage,omitempty"`
	OCRText            *string         `json:"ocrText,omitempty"`
	FrameAnalyses      []FrameAnalysis `json:"frameAnalysis"`
	ContentSummary     *string         `json:"contentSummary,omitempty"`
	KeyPoints          []string        `json:"keyPoints"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
}

// NewJob returns a freshly submitted job with empty artifacts.
func NewJob(sourceURL string, platform Platform, now time.Time) *Job {
	return &Job{
		SourceURL: sourceURL,
		Platform:  platform,
		Status:    JobStatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobPatch is a partial update. Nil fields are left untouched.
type JobPatch struct {
	Status             *JobStatus
	Progress           *int
	Platform           *Platform
	Metadata           *Metadata
	ErrorMessage       *string
	Transcript         *string
	TranscriptLanguage *string
	OCRText            *string
	FrameAnalyses      []FrameAnalysis
	ContentSummary     *string
	KeyPoints          []string
	CompletedAt        *time.Time

	// Force lets a terminal job be rewritten. Only soft delete uses it.
	Force bool
}

// Apply merges p into j. Progress never goes down, and only a completed job
// may report 100.
func (j *Job) Apply(p JobPatch, now time.Time) error {
	if j.Status.IsTerminal() && !p.Force {
		return domain.ErrJobClosed
	}
	if p.Status != nil && *p.Status != j.Status {
		if !p.Status.Valid() {
			return domain.ErrInvalidTransition
		}
		if !p.Force && !CanTransition(j.Status, *p.Status) {
			return domain.ErrInvalidTransition
		}
		j.Status = *p.Status
	}
	if p.Progress != nil && *p.Progress > j.Progress {
		j.Progress = *p.Progress
	}
	if j.Status == JobStatusCompleted {
		j.Progress = 100
	} else if j.Progress >= 100 {
		j.Progress = 99
	}
	if p.Platform != nil {
		j.Platform = *p.Platform
	}
	if p.Metadata != nil {
		j.Metadata = *p.Metadata
	}
	if p.ErrorMessage != nil {
		j.ErrorMessage = p.ErrorMessage
	}
	if p.Transcript != nil {
		j.Transcript = p.Transcript
	}
	if p.TranscriptLanguage != nil {
		j.TranscriptLanguage = p.TranscriptLanguage
	}
	if p.OCRText != nil {
		j.OCRText = p.OCRText
	}
	if p.FrameAnalyses != nil {
		j.FrameAnalyses = p.FrameAnalyses
	}
	if p.ContentSummary != nil {
		j.ContentSummary = p.ContentSummary
	}
	if p.KeyPoints != nil {
		j.KeyPoints = p.KeyPoints
	}
	if p.CompletedAt != nil {
		j.CompletedAt = p.CompletedAt
	}
	j.UpdatedAt = now
	return nil
}

// Ptr is a small helper for building patches.
func Ptr[T any](v T) *T { return &v }
