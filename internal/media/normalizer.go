package media

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"verbatim/internal/model"
)

// Normalizer decodes arbitrary media input into a canonical mono 16 kHz
// PCM buffer via ffmpeg.
type Normalizer struct {
	ffmpegPath  string
	ffprobePath string
	runner      CommandRunner
}

// NewNormalizer creates a normalizer driving the given ffmpeg/ffprobe
// binaries.
func NewNormalizer(ffmpegPath, ffprobePath string) *Normalizer {
	return &Normalizer{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		runner:      ExecRunner{},
	}
}

// NewNormalizerWithRunner injects a command runner (for tests).
func NewNormalizerWithRunner(ffmpegPath, ffprobePath string, runner CommandRunner) *Normalizer {
	return &Normalizer{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, runner: runner}
}

// Normalize probes the input, decodes it to mono 16 kHz s16le WAV inside
// the job workspace, and loads the result. The intermediate file lives in
// the workspace and is reclaimed with it.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, workspace string) (*model.PcmBuffer, *ProbeInfo, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return nil, nil, model.NewError(model.ErrIO, "normalize", "cannot access input media", err)
	}

	info, err := n.Probe(ctx, inputPath)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[Normalize] %s: container=%s codec=%s duration=%.2fs channels=%d",
		filepath.Base(inputPath), info.Container, info.Codec, info.Duration, info.Channels)

	outPath := filepath.Join(workspace, "normalized.wav")
	args := buildFFmpegArgs(inputPath, outPath)
	result, runErr := n.runner.Run(ctx, n.ffmpegPath, args...)
	if runErr != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, model.NewError(model.ErrDecode, "normalize",
			"ffmpeg audio conversion failed: "+tail(result.Stderr), runErr)
	}
	if _, err := os.Stat(outPath); err != nil {
		return nil, nil, model.NewError(model.ErrDecode, "normalize",
			"ffmpeg completed but output file is missing", err)
	}

	buf, err := LoadWAV(outPath)
	if err != nil {
		return nil, nil, err
	}
	return buf, info, nil
}

// buildFFmpegArgs builds decode args for mono 16 kHz PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// tail keeps the last portion of ffmpeg stderr for error messages.
func tail(s string) string {
	const max = 300
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
