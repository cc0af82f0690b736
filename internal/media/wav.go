package media

import (
	"io"
	"os"

	wav "github.com/youpy/go-wav"

	"verbatim/internal/model"
)

const readBatch = 4096

// LoadWAV reads a PCM WAV file into a PcmBuffer. Stereo input is
// downmixed to mono by averaging channels.
func LoadWAV(path string) (*model.PcmBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, model.NewError(model.ErrIO, "normalize", "cannot open wav file", err)
	}
	defer f.Close()

	reader := wav.NewReader(f)
	format, err := reader.Format()
	if err != nil {
		return nil, model.NewError(model.ErrDecode, "normalize", "cannot read wav header", err)
	}

	channels := int(format.NumChannels)
	if channels < 1 {
		return nil, model.NewError(model.ErrDecode, "normalize", "wav header declares no channels", nil)
	}
	buf := &model.PcmBuffer{SampleRate: int(format.SampleRate)}
	for {
		samples, err := reader.ReadSamples(readBatch)
		for _, s := range samples {
			sum := 0
			for ch := 0; ch < channels; ch++ {
				sum += reader.IntValue(s, uint(ch))
			}
			buf.Samples = append(buf.Samples, int16(sum/channels))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, model.NewError(model.ErrDecode, "normalize", "wav sample read failed", err)
		}
	}
	return buf, nil
}

// WriteWAV writes mono 16-bit samples to a WAV file at the given rate.
// The recognizer uses it to hand chunk files to external engines.
func WriteWAV(path string, samples []int16, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return model.NewError(model.ErrIO, "encode", "cannot create wav file", err)
	}
	defer f.Close()

	writer := wav.NewWriter(f, uint32(len(samples)), 1, uint32(sampleRate), 16)
	out := make([]wav.Sample, len(samples))
	for i, v := range samples {
		out[i].Values[0] = int(v)
	}
	if err := writer.WriteSamples(out); err != nil {
		return model.NewError(model.ErrIO, "encode", "wav sample write failed", err)
	}
	return nil
}
