package model

// TargetSampleRate is the sample rate every recognizer input is normalized to.
const TargetSampleRate = 16000

// PcmBuffer holds normalized audio: mono, fixed sample rate, 16-bit samples.
// A buffer belongs to exactly one job and is never shared across jobs.
type PcmBuffer struct {
	SampleRate int
	Samples    []int16
}

// Duration returns the buffer length in seconds.
func (b *PcmBuffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Slice returns the samples covering [start, end) in seconds, clamped to
// the buffer bounds. The returned slice aliases the buffer's storage.
func (b *PcmBuffer) Slice(start, end float64) []int16 {
	if b == nil || b.SampleRate <= 0 || start >= end {
		return nil
	}
	lo := int(start * float64(b.SampleRate))
	hi := int(end * float64(b.SampleRate))
	if lo < 0 {
		lo = 0
	}
	if hi > len(b.Samples) {
		hi = len(b.Samples)
	}
	if lo >= hi {
		return nil
	}
	return b.Samples[lo:hi]
}
