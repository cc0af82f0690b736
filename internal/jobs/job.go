package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"verbatim/internal/model"
)

// Job is one pipeline run: its source, live status, and outputs. All
// mutation goes through the Manager under its lock.
type Job struct {
	ID         uuid.UUID
	SourceName string
	SourcePath string
	Language   string // requested language hint, may be empty

	Status     model.JobStatus
	ErrKind    model.ErrorKind
	ErrMessage string

	Words            []model.Word
	Gaps             []model.Gap
	DetectedLanguage string
	DurationSec      float64
	SubtitlePath     string
	SubtitleFormat   string

	CreatedAt time.Time
	UpdatedAt time.Time

	workspace string
	cancel    context.CancelFunc
}

// Snapshot is a copy of a job's externally visible state.
type Snapshot struct {
	ID               uuid.UUID
	SourceName       string
	Status           model.JobStatus
	ErrKind          model.ErrorKind
	ErrMessage       string
	Words            []model.Word
	Gaps             []model.Gap
	DetectedLanguage string
	DurationSec      float64
	SubtitlePath     string
	SubtitleFormat   string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (j *Job) snapshot() Snapshot {
	s := Snapshot{
		ID:               j.ID,
		SourceName:       j.SourceName,
		Status:           j.Status,
		ErrKind:          j.ErrKind,
		ErrMessage:       j.ErrMessage,
		DetectedLanguage: j.DetectedLanguage,
		DurationSec:      j.DurationSec,
		SubtitlePath:     j.SubtitlePath,
		SubtitleFormat:   j.SubtitleFormat,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
	}
	s.Words = append(s.Words, j.Words...)
	s.Gaps = append(s.Gaps, j.Gaps...)
	return s
}

// isValidTransition enforces the job state machine edges: the pipeline
// stages in order, failed reachable from any active state, cancelled
// from any non-terminal state.
func isValidTransition(from, to model.JobStatus) bool {
	if to == model.JobStatusFailed || to == model.JobStatusCancelled {
		return !from.Terminal()
	}
	switch from {
	case model.JobStatusQueued:
		return to == model.JobStatusNormalizing
	case model.JobStatusNormalizing:
		return to == model.JobStatusTranscribing
	case model.JobStatusTranscribing:
		return to == model.JobStatusAligning
	case model.JobStatusAligning:
		return to == model.JobStatusSerializing
	case model.JobStatusSerializing:
		return to == model.JobStatusDone
	default:
		return false
	}
}
