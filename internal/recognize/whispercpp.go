package recognize

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"verbatim/internal/media"
	"verbatim/internal/model"
)

// WhisperCppEngine runs a local whisper.cpp CLI binary per chunk and
// parses its full-JSON output into tokens. The engine holds no mutable
// state, so one instance serves any number of concurrent jobs.
type WhisperCppEngine struct {
	binPath   string
	modelPath string
	runner    media.CommandRunner
}

// NewWhisperCppEngine creates a whisper.cpp engine.
func NewWhisperCppEngine(binPath, modelPath string) *WhisperCppEngine {
	return &WhisperCppEngine{binPath: binPath, modelPath: modelPath, runner: media.ExecRunner{}}
}

// NewWhisperCppEngineWithRunner injects a command runner (for tests).
func NewWhisperCppEngineWithRunner(binPath, modelPath string, runner media.CommandRunner) *WhisperCppEngine {
	return &WhisperCppEngine{binPath: binPath, modelPath: modelPath, runner: runner}
}

// Name returns the engine name.
func (e *WhisperCppEngine) Name() string { return "whispercpp" }

// whisperOutput mirrors the whisper.cpp --output-json-full document.
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []whisperSegment `json:"transcription"`
}

type whisperSegment struct {
	Text    string        `json:"text"`
	Offsets whisperOffset `json:"offsets"`
	Tokens  []whisperTok  `json:"tokens"`
}

type whisperOffset struct {
	From int64 `json:"from"` // milliseconds
	To   int64 `json:"to"`
}

type whisperTok struct {
	Text    string        `json:"text"`
	Offsets whisperOffset `json:"offsets"`
	P       float64       `json:"p"`
}

// Recognize invokes whisper.cpp on the chunk's WAV file and returns
// chunk-local tokens plus the language detected for this chunk.
func (e *WhisperCppEngine) Recognize(ctx context.Context, chunk Chunk) (Result, error) {
	outBase := strings.TrimSuffix(chunk.WavPath, ".wav")
	args := []string{
		"-m", e.modelPath,
		"-f", chunk.WavPath,
		"-of", outBase,
		"-ojf",
		"-np",
	}
	if chunk.Language != "" {
		args = append(args, "-l", chunk.Language)
	}

	result, runErr := e.runner.Run(ctx, e.binPath, args...)
	if runErr != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, model.NewError(model.ErrRecognition, "transcribe",
			"whisper.cpp failed: "+strings.TrimSpace(result.Stderr), runErr)
	}

	data, err := os.ReadFile(outBase + ".json")
	if err != nil {
		return Result{}, model.NewError(model.ErrRecognition, "transcribe",
			"whisper.cpp completed but JSON output is missing", err)
	}
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Result{}, model.NewError(model.ErrRecognition, "transcribe",
			"whisper.cpp produced malformed JSON output", err)
	}

	return Result{Tokens: mergeSegments(out.Transcription), Language: out.Result.Language}, nil
}

// mergeSegments folds whisper.cpp subword pieces into word-level tokens.
// A piece with a leading space starts a new word; special markers such as
// [_BEG_] are skipped.
func mergeSegments(segments []whisperSegment) []model.Token {
	var tokens []model.Token
	for _, seg := range segments {
		if len(seg.Tokens) == 0 {
			// Segment granularity only; emit the trimmed text as one token.
			text := strings.TrimSpace(seg.Text)
			if text == "" {
				continue
			}
			tokens = append(tokens, model.Token{
				Text:       text,
				Start:      float64(seg.Offsets.From) / 1000,
				End:        float64(seg.Offsets.To) / 1000,
				Confidence: 1,
			})
			continue
		}

		var cur *model.Token
		var pSum float64
		var pCount int
		flush := func() {
			if cur == nil {
				return
			}
			if pCount > 0 {
				cur.Confidence = pSum / float64(pCount)
			}
			cur.Text = strings.TrimSpace(cur.Text)
			if cur.Text != "" {
				tokens = append(tokens, *cur)
			}
			cur, pSum, pCount = nil, 0, 0
		}
		for _, tok := range seg.Tokens {
			if strings.HasPrefix(tok.Text, "[_") && strings.HasSuffix(tok.Text, "_]") {
				continue
			}
			startsWord := strings.HasPrefix(tok.Text, " ") || cur == nil
			if startsWord {
				flush()
				cur = &model.Token{
					Text:  tok.Text,
					Start: float64(tok.Offsets.From) / 1000,
					End:   float64(tok.Offsets.To) / 1000,
				}
			} else {
				cur.Text += tok.Text
				cur.End = float64(tok.Offsets.To) / 1000
			}
			pSum += tok.P
			pCount++
		}
		flush()
	}
	return tokens
}
