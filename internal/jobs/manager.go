package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"verbatim/internal/align"
	"verbatim/internal/config"
	"verbatim/internal/media"
	"verbatim/internal/model"
	"verbatim/internal/recognize"
	"verbatim/internal/repository"
	"verbatim/internal/storage"
	"verbatim/internal/subtitle"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

// ErrJobFinished is returned when cancelling a terminal job.
var ErrJobFinished = errors.New("job already finished")

// ErrQueueFull is returned when the submission queue is saturated.
var ErrQueueFull = errors.New("job queue is full")

// Manager owns all jobs: it sequences the pipeline stages for each one,
// bounds concurrency with a worker pool, enforces per-job timeouts, and
// reclaims workspaces and expired results.
type Manager struct {
	cfg        *config.Config
	normalizer *media.Normalizer
	engine     recognize.Engine
	repo       repository.Store // nil when history is disabled
	events     *EventBus

	// inferSem bounds concurrent inference process-wide: Workers slots
	// total, shared by every running job, so two jobs in flight do not
	// multiply the load on the engine.
	inferSem *semaphore.Weighted

	mu   sync.RWMutex
	jobs map[uuid.UUID]*Job

	queue chan uuid.UUID
	wg    sync.WaitGroup
}

// NewManager creates a manager. repo may be nil.
func NewManager(cfg *config.Config, engine recognize.Engine, repo repository.Store, events *EventBus) *Manager {
	return &Manager{
		cfg:        cfg,
		normalizer: media.NewNormalizer(cfg.FFmpegPath, cfg.FFprobePath),
		engine:     engine,
		repo:       repo,
		events:     events,
		inferSem:   semaphore.NewWeighted(int64(cfg.Workers)),
		jobs:       make(map[uuid.UUID]*Job),
		queue:      make(chan uuid.UUID, 64),
	}
}

// Events exposes the bus for API subscribers.
func (m *Manager) Events() *EventBus { return m.events }

// SetNormalizer replaces the media normalizer (for tests).
func (m *Manager) SetNormalizer(n *media.Normalizer) { m.normalizer = n }

// Start launches the worker pool and the retention janitor. Workers stop
// when ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx)
	}
	m.wg.Add(1)
	go m.janitor(ctx)
	log.Printf("[Jobs] Started %d workers (retention=%s, timeout=%s)",
		m.cfg.Workers, m.cfg.Retention, m.cfg.JobTimeout)
}

// Wait blocks until all workers have exited.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Submit registers a new job for an uploaded file and queues it.
func (m *Manager) Submit(sourcePath, sourceName, language string) (uuid.UUID, error) {
	job := &Job{
		ID:             uuid.New(),
		SourceName:     sourceName,
		SourcePath:     sourcePath,
		Language:       language,
		Status:         model.JobStatusQueued,
		SubtitleFormat: m.cfg.SubtitleFormat,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	select {
	case m.queue <- job.ID:
	default:
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
		return uuid.Nil, ErrQueueFull
	}

	m.events.Publish(job.ID, Event{Type: EventTypeStatus, Status: model.JobStatusQueued})
	log.Printf("[Jobs] Submitted job %s (%s)", job.ID, sourceName)
	return job.ID, nil
}

// Get returns a snapshot of a job's visible state.
func (m *Manager) Get(id uuid.UUID) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Snapshot{}, false
	}
	return job.snapshot(), true
}

// Snapshots returns the visible state of every tracked job.
func (m *Manager) Snapshots() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snaps := make([]Snapshot, 0, len(m.jobs))
	for _, job := range m.jobs {
		snaps = append(snaps, job.snapshot())
	}
	return snaps
}

// Cancel stops a queued or running job. In-flight chunk inference is
// interrupted through context cancellation; the workspace is still
// reclaimed by the worker.
func (m *Manager) Cancel(id uuid.UUID) error {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return ErrJobNotFound
	}
	if job.Status.Terminal() {
		m.mu.Unlock()
		return ErrJobFinished
	}
	cancel := job.cancel
	if cancel == nil {
		// Still queued; the worker will observe the terminal state and skip.
		job.Status = model.JobStatusCancelled
		job.ErrKind = model.ErrCancelled
		job.ErrMessage = "job cancelled"
		job.UpdatedAt = time.Now().UTC()
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	} else {
		m.events.Publish(id, Event{Type: EventTypeStatus, Status: model.JobStatusCancelled})
	}
	log.Printf("[Jobs] Cancel requested for job %s", id)
	return nil
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-m.queue:
			m.process(ctx, id)
		}
	}
}

func (m *Manager) process(parent context.Context, id uuid.UUID) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok || job.Status != model.JobStatusQueued {
		m.mu.Unlock()
		return
	}
	jctx, cancel := context.WithTimeout(parent, m.cfg.JobTimeout)
	job.cancel = cancel
	m.mu.Unlock()
	defer cancel()

	workspace, err := storage.CreateWorkspace(m.cfg.WorkDir, id)
	if err != nil {
		m.fail(job, model.NewError(model.ErrIO, "workspace", "failed to create workspace", err))
		return
	}
	m.mu.Lock()
	job.workspace = workspace
	m.mu.Unlock()
	defer func() {
		if err := storage.RemoveWorkspace(workspace); err != nil {
			log.Printf("[Jobs] Failed to remove workspace for job %s: %v", id, err)
		}
	}()

	if err := m.runPipeline(jctx, job); err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.fail(job, model.NewError(model.ErrTimeout, "pipeline",
				fmt.Sprintf("job exceeded %s wall-clock limit", m.cfg.JobTimeout), err))
		case errors.Is(err, context.Canceled):
			m.markCancelled(job)
		default:
			m.fail(job, err)
		}
	}
	m.persist(job)
}

// runPipeline sequences the stages for one job. The wall-clock deadline
// rides on ctx; exec-based stages run under CommandContext so a stuck
// inference call is still interruptible.
func (m *Manager) runPipeline(ctx context.Context, job *Job) error {
	// Normalize
	if err := m.transition(job, model.JobStatusNormalizing); err != nil {
		return err
	}
	buf, _, err := m.normalizer.Normalize(ctx, job.SourcePath, job.workspace)
	if err != nil {
		return err
	}
	m.mu.Lock()
	job.DurationSec = buf.Duration()
	m.mu.Unlock()

	// Recognize
	if err := m.transition(job, model.JobStatusTranscribing); err != nil {
		return err
	}
	transcriber := recognize.NewTranscriber(m.engine, recognize.Options{
		ChunkSeconds:    m.cfg.ChunkSeconds,
		OverlapSeconds:  m.cfg.OverlapSeconds,
		BoundaryMargin:  m.cfg.BoundaryMargin,
		ConfidenceFloor: m.cfg.ConfidenceFloor,
		Language:        job.Language,
		Parallelism:     m.cfg.Workers,
		Sem:             m.inferSem,
	})
	batches, err := transcriber.Run(ctx, buf, job.workspace)
	if err != nil {
		return err
	}

	// Align
	if err := m.transition(job, model.JobStatusAligning); err != nil {
		return err
	}
	words, gaps, err := align.Merge(batches, align.Options{DedupWindow: m.cfg.DedupWindow})
	if err != nil {
		return err
	}
	// The word sequence is visible as soon as alignment completes,
	// independent of serialization.
	m.mu.Lock()
	job.Words = words
	job.Gaps = gaps
	job.DetectedLanguage = recognize.DetectedLanguage(batches)
	m.mu.Unlock()
	m.events.Publish(job.ID, Event{Type: EventTypeResult, Message: fmt.Sprintf("%d words aligned", len(words))})

	// Serialize
	if err := m.transition(job, model.JobStatusSerializing); err != nil {
		return err
	}
	if err := m.serialize(job, words, buf.Duration()); err != nil {
		return err
	}

	return m.transition(job, model.JobStatusDone)
}

// serialize writes the subtitle document into the workspace and only
// moves it to the output directory once complete.
func (m *Manager) serialize(job *Job, words []model.Word, totalDuration float64) error {
	cues := subtitle.BuildCues(words, totalDuration, subtitle.Options{
		MaxChars:     m.cfg.CueMaxChars,
		MaxWords:     m.cfg.CueMaxWords,
		MaxDuration:  m.cfg.CueMaxDuration,
		MinDuration:  m.cfg.CueMinDuration,
		SilenceBreak: m.cfg.CueSilenceBreak,
	})

	workPath := filepath.Join(job.workspace, "subtitle."+job.SubtitleFormat)
	f, err := os.Create(workPath)
	if err != nil {
		return model.NewError(model.ErrIO, "serialize", "cannot create subtitle file", err)
	}
	if err := subtitle.WriteDocument(f, job.SubtitleFormat, cues); err != nil {
		f.Close()
		return model.NewError(model.ErrIO, "serialize", "subtitle write failed", err)
	}
	if err := f.Close(); err != nil {
		return model.NewError(model.ErrIO, "serialize", "subtitle write failed", err)
	}

	finalPath, err := storage.FinalizeSubtitle(workPath, m.cfg.OutputDir, job.ID, job.SubtitleFormat)
	if err != nil {
		return model.NewError(model.ErrIO, "serialize", "failed to publish subtitle document", err)
	}
	m.mu.Lock()
	job.SubtitlePath = finalPath
	m.mu.Unlock()
	return nil
}

// markCancelled moves a job to cancelled and records the kind so the
// result endpoint reports why there is no subtitle.
func (m *Manager) markCancelled(job *Job) {
	if err := m.transition(job, model.JobStatusCancelled); err != nil {
		return
	}
	m.mu.Lock()
	job.ErrKind = model.ErrCancelled
	job.ErrMessage = "job cancelled"
	m.mu.Unlock()
}

// transition validates and applies one state machine edge.
func (m *Manager) transition(job *Job, to model.JobStatus) error {
	m.mu.Lock()
	if !isValidTransition(job.Status, to) {
		from := job.Status
		m.mu.Unlock()
		if from.Terminal() {
			// Cancelled from the outside while a stage was finishing.
			return context.Canceled
		}
		return model.NewError(model.ErrInternal, "pipeline",
			fmt.Sprintf("invalid transition: %s -> %s", from, to), nil)
	}
	job.Status = to
	job.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()

	m.events.Publish(job.ID, Event{Type: EventTypeStatus, Status: to})
	log.Printf("[Jobs] Job %s -> %s", job.ID, to)
	return nil
}

func (m *Manager) fail(job *Job, err error) {
	kind := model.KindOf(err)
	m.mu.Lock()
	if job.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	job.Status = model.JobStatusFailed
	job.ErrKind = kind
	job.ErrMessage = err.Error()
	job.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()

	m.events.Publish(job.ID, Event{Type: EventTypeError, Status: model.JobStatusFailed, Message: err.Error()})
	log.Printf("[Jobs] Job %s failed (%s): %v", job.ID, kind, err)
}

// persist stores a finished job's summary for the history endpoints.
func (m *Manager) persist(job *Job) {
	if m.repo == nil {
		return
	}
	m.mu.RLock()
	rec := recordFromJob(job)
	m.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.repo.Save(ctx, rec); err != nil {
		log.Printf("[Jobs] Failed to persist job %s: %v", job.ID, err)
	}
}

func recordFromJob(job *Job) *model.JobRecord {
	now := time.Now().UTC()
	rec := &model.JobRecord{
		ID:         job.ID,
		SourceName: job.SourceName,
		Status:     job.Status,
		WordCount:  len(job.Words),
		CreatedAt:  job.CreatedAt,
		FinishedAt: &now,
	}
	if job.ErrKind != "" {
		kind := string(job.ErrKind)
		rec.ErrorKind = &kind
		rec.ErrorMessage = &job.ErrMessage
	}
	if job.DetectedLanguage != "" {
		rec.Language = &job.DetectedLanguage
	}
	if job.DurationSec > 0 {
		d := job.DurationSec
		rec.DurationSec = &d
	}
	if len(job.Words) > 0 {
		transcript := ""
		for i, w := range job.Words {
			if i > 0 {
				transcript += " "
			}
			transcript += w.Text
		}
		rec.Transcript = &transcript
	}
	if job.SubtitlePath != "" {
		rec.SubtitlePath = &job.SubtitlePath
	}
	return rec
}

// janitor removes terminal jobs and their artifacts after the retention
// window.
func (m *Manager) janitor(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reapExpired()
		}
	}
}

func (m *Manager) reapExpired() {
	cutoff := time.Now().UTC().Add(-m.cfg.Retention)

	m.mu.Lock()
	var expired []*Job
	for id, job := range m.jobs {
		if job.Status.Terminal() && job.UpdatedAt.Before(cutoff) {
			expired = append(expired, job)
			delete(m.jobs, id)
		}
	}
	m.mu.Unlock()

	for _, job := range expired {
		if job.SubtitlePath != "" {
			if err := os.Remove(job.SubtitlePath); err != nil && !os.IsNotExist(err) {
				log.Printf("[Jobs] Failed to remove subtitle for job %s: %v", job.ID, err)
			}
		}
		if job.SourcePath != "" {
			if err := os.Remove(job.SourcePath); err != nil && !os.IsNotExist(err) {
				log.Printf("[Jobs] Failed to remove upload for job %s: %v", job.ID, err)
			}
		}
		log.Printf("[Jobs] Reclaimed expired job %s", job.ID)
	}
}
