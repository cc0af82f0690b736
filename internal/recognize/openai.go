package recognize

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"verbatim/internal/model"
)

// OpenAIEngine sends chunk audio to the OpenAI transcription API with
// word-level timestamp granularity. The client is safe for concurrent
// use and the engine keeps no per-call state.
type OpenAIEngine struct {
	client *openai.Client
	model  string
}

// NewOpenAIEngine creates an OpenAI engine.
func NewOpenAIEngine(apiKey, modelName string) *OpenAIEngine {
	if modelName == "" {
		modelName = openai.Whisper1
	}
	return &OpenAIEngine{client: openai.NewClient(apiKey), model: modelName}
}

// Name returns the engine name.
func (e *OpenAIEngine) Name() string { return "openai" }

// Recognize uploads the chunk WAV and maps the verbose response's word
// entries to tokens. The API does not report per-word probabilities, so
// confidence is taken from the enclosing segment when one matches.
func (e *OpenAIEngine) Recognize(ctx context.Context, chunk Chunk) (Result, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.model,
		FilePath: chunk.WavPath,
		Language: chunk.Language,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularityWord,
			openai.TranscriptionTimestampGranularitySegment,
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, model.NewError(model.ErrRecognition, "transcribe",
			"openai transcription request failed", err)
	}

	tokens := make([]model.Token, 0, len(resp.Words))
	for _, w := range resp.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		tokens = append(tokens, model.Token{
			Text:       text,
			Start:      w.Start,
			End:        w.End,
			Confidence: segmentConfidence(resp, w.Start),
		})
	}
	return Result{Tokens: tokens, Language: resp.Language}, nil
}

// segmentConfidence derives a 0..1 confidence for the segment containing
// the given time from its no_speech probability.
func segmentConfidence(resp openai.AudioResponse, at float64) float64 {
	for _, seg := range resp.Segments {
		if at >= seg.Start && at < seg.End {
			return 1 - seg.NoSpeechProb
		}
	}
	return 1
}
