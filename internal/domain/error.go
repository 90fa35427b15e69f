package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidURL        = errors.New("invalid url")
	ErrInvalidTransition = errors.New("invalid job status transition")
	ErrJobClosed         = errors.New("job is already terminal")

	// Persistence
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrOperationFailed    = errors.New("database operation failed")

	// Pipeline taxonomy
	ErrUnsupportedPlatform   = errors.New("unsupported platform")
	ErrCredential            = errors.New("metadata provider credential missing or rejected")
	ErrMetadataUnavailable   = errors.New("metadata unavailable")
	ErrNoPlayableMedia       = errors.New("no playable media url")
	ErrCorruptMedia          = errors.New("downloaded media is too small, possibly invalid")
	ErrAcquisitionFailed     = errors.New("media acquisition failed")
	ErrAudioExtractionFailed = errors.New("audio extraction failed")
	ErrUnknownDuration       = errors.New("invalid video duration, cannot extract frames")
	ErrStageTimeout          = errors.New("stage timed out")
	ErrGenerationFailed      = errors.New("generation failed")
)
