package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of one transcription job.
type JobStatus string

const (
	JobStatusQueued       JobStatus = "queued"
	JobStatusNormalizing  JobStatus = "normalizing"
	JobStatusTranscribing JobStatus = "transcribing"
	JobStatusAligning     JobStatus = "aligning"
	JobStatusSerializing  JobStatus = "serializing"
	JobStatusDone         JobStatus = "done"
	JobStatusFailed       JobStatus = "failed"
	JobStatusCancelled    JobStatus = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusDone, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Gap is a time range with no recognized words, recorded when a chunk's
// recognition failed or the audio was silent.
type Gap struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// JobRecord is the persisted summary of a finished job, kept for the
// history endpoints.
type JobRecord struct {
	ID           uuid.UUID  `json:"id"`
	SourceName   string     `json:"source_name"`
	Status       JobStatus  `json:"status"`
	ErrorKind    *string    `json:"error_kind,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	Language     *string    `json:"language,omitempty"`
	DurationSec  *float64   `json:"duration_seconds,omitempty"`
	WordCount    int        `json:"word_count"`
	Transcript   *string    `json:"transcript,omitempty"`
	SubtitlePath *string    `json:"subtitle_path,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
