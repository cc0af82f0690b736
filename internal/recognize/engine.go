package recognize

import (
	"context"

	"verbatim/internal/model"
)

// Chunk is a bounded-duration slice of normalized audio handed to an
// engine. Offset and Duration are global seconds; token times returned by
// an engine are relative to the chunk.
type Chunk struct {
	Index      int
	Offset     float64
	Duration   float64
	SampleRate int
	Samples    []int16
	WavPath    string // chunk audio encoded for the engine
	Language   string // optional hint, empty for auto-detect
}

// Result is one chunk's recognition output. Language carries the
// engine's detection for that chunk so concurrent jobs never read each
// other's state through a shared engine.
type Result struct {
	Tokens   []model.Token
	Language string
}

// Engine is the capability contract every concrete recognition model
// implements: chunk audio in, chunk-local tokens out. Implementations
// must be safe for concurrent Recognize calls.
type Engine interface {
	// Recognize transcribes one chunk and returns its tokens with
	// chunk-relative time spans.
	Recognize(ctx context.Context, chunk Chunk) (Result, error)

	// Name returns the engine name (e.g. "whispercpp", "openai").
	Name() string
}
