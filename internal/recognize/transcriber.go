package recognize

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"verbatim/internal/media"
	"verbatim/internal/model"
)

// Options controls chunking and confidence flagging for one run.
type Options struct {
	ChunkSeconds    float64
	OverlapSeconds  float64
	BoundaryMargin  float64
	ConfidenceFloor float64
	Language        string
	Parallelism     int

	// Sem, when set, is a process-wide inference budget shared across
	// runs: a chunk acquires a slot before Recognize regardless of which
	// job it belongs to. When nil, Parallelism bounds this run alone.
	Sem *semaphore.Weighted
}

// Transcriber drives an engine over a normalized buffer: it plans
// overlapping chunks, fans recognition out across workers, and collects
// the batches in chunk order.
type Transcriber struct {
	engine Engine
	opts   Options
}

// NewTranscriber creates a transcriber for the given engine.
func NewTranscriber(engine Engine, opts Options) *Transcriber {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &Transcriber{engine: engine, opts: opts}
}

// Run recognizes the whole buffer. Chunk WAV files are written into the
// job workspace and reclaimed with it. A single chunk failure is recorded
// as a failed batch, not an error; Run fails with recognition_error only
// when every chunk failed.
func (t *Transcriber) Run(ctx context.Context, buf *model.PcmBuffer, workspace string) ([]model.TokenBatch, error) {
	spans := SplitBuffer(buf, t.opts.ChunkSeconds, t.opts.OverlapSeconds, t.opts.BoundaryMargin)
	if len(spans) == 0 {
		return nil, model.NewError(model.ErrEmptyInput, "transcribe", "normalized audio is empty", nil)
	}
	log.Printf("[Transcribe] engine=%s chunks=%d duration=%.2fs", t.engine.Name(), len(spans), buf.Duration())

	batches := make([]model.TokenBatch, len(spans))
	g, gctx := errgroup.WithContext(ctx)
	if t.opts.Sem == nil {
		g.SetLimit(t.opts.Parallelism)
	}

	for _, span := range spans {
		span := span
		batches[span.Index] = model.TokenBatch{
			Index:    span.Index,
			Offset:   span.Start,
			Duration: span.End - span.Start,
		}
		g.Go(func() error {
			if t.opts.Sem != nil {
				if err := t.opts.Sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer t.opts.Sem.Release(1)
			}
			res, err := t.recognizeSpan(gctx, buf, span, workspace)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Printf("[Transcribe] chunk %d failed, recording gap %.2fs-%.2fs: %v",
					span.Index, span.Start, span.End, err)
				batches[span.Index].Failed = true
				return nil
			}
			batches[span.Index].Tokens = res.Tokens
			batches[span.Index].Language = res.Language
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	allFailed := true
	for _, b := range batches {
		if !b.Failed {
			allFailed = false
			break
		}
	}
	if allFailed {
		return nil, model.NewError(model.ErrRecognition, "transcribe",
			"recognition failed for every chunk", nil)
	}
	return batches, nil
}

func (t *Transcriber) recognizeSpan(ctx context.Context, buf *model.PcmBuffer, span Span, workspace string) (Result, error) {
	samples := buf.Slice(span.Start, span.End)
	wavPath := filepath.Join(workspace, fmt.Sprintf("chunk_%03d.wav", span.Index))
	if err := media.WriteWAV(wavPath, samples, buf.SampleRate); err != nil {
		return Result{}, err
	}

	chunk := Chunk{
		Index:      span.Index,
		Offset:     span.Start,
		Duration:   span.End - span.Start,
		SampleRate: buf.SampleRate,
		Samples:    samples,
		WavPath:    wavPath,
		Language:   t.opts.Language,
	}
	res, err := t.engine.Recognize(ctx, chunk)
	if err != nil {
		return Result{}, err
	}

	// Low-confidence tokens are flagged, never dropped here. Dropping is
	// caller policy.
	for i := range res.Tokens {
		if res.Tokens[i].Confidence > 0 && res.Tokens[i].Confidence < t.opts.ConfidenceFloor {
			res.Tokens[i].LowConfidence = true
		}
	}
	return res, nil
}

// DetectedLanguage folds per-chunk detections into a single value for
// the job: the most frequent non-empty language wins, earliest chunk
// breaking ties.
func DetectedLanguage(batches []model.TokenBatch) string {
	counts := make(map[string]int)
	best := ""
	for _, b := range batches {
		if b.Language == "" {
			continue
		}
		counts[b.Language]++
		if best == "" || counts[b.Language] > counts[best] {
			best = b.Language
		}
	}
	return best
}
