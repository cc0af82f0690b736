package media

import (
	"context"
	"encoding/json"
	"strconv"

	"verbatim/internal/model"
)

// ProbeInfo summarizes the container and its audio track, as reported by
// ffprobe.
type ProbeInfo struct {
	Container  string
	Duration   float64
	HasAudio   bool
	Codec      string
	SampleRate int
	Channels   int
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe inspects the input container. A file ffprobe cannot read at all
// is reported as unsupported_format; a readable container without any
// audio stream likewise.
func (n *Normalizer) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	result, err := n.runner.Run(ctx, n.ffprobePath, args...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, model.NewError(model.ErrUnsupportedFormat, "probe",
			"ffprobe could not read the input container", err)
	}

	var out ffprobeOutput
	if err := json.Unmarshal([]byte(result.Stdout), &out); err != nil {
		return nil, model.NewError(model.ErrUnsupportedFormat, "probe",
			"ffprobe produced unreadable output", err)
	}

	info := &ProbeInfo{Container: out.Format.FormatName}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	for _, s := range out.Streams {
		if s.CodecType != "audio" {
			continue
		}
		info.HasAudio = true
		info.Codec = s.CodecName
		info.Channels = s.Channels
		if sr, err := strconv.Atoi(s.SampleRate); err == nil {
			info.SampleRate = sr
		}
		break
	}
	if !info.HasAudio {
		return nil, model.NewError(model.ErrUnsupportedFormat, "probe",
			"input has no decodable audio track", nil)
	}
	return info, nil
}
