package recognize

import (
	"math"

	"verbatim/internal/model"
)

// Span is a planned chunk boundary pair in global seconds.
type Span struct {
	Index int
	Start float64
	End   float64
}

// energyWindow is the RMS window used when nudging a boundary onto
// low-energy audio.
const energyWindow = 0.02 // 20 ms

// SplitBuffer plans overlapping chunk spans for a buffer. Each cut point
// is moved to the lowest-energy window within the boundary margin so a
// chunk edge does not fall mid-word; the following chunk starts one
// overlap length before the cut so the aligner has context on both sides.
func SplitBuffer(buf *model.PcmBuffer, chunkSeconds, overlapSeconds, marginSeconds float64) []Span {
	total := buf.Duration()
	if total <= 0 {
		return nil
	}
	if chunkSeconds <= 0 || total <= chunkSeconds {
		return []Span{{Index: 0, Start: 0, End: total}}
	}

	var spans []Span
	start := 0.0
	for i := 0; ; i++ {
		nominal := start + chunkSeconds
		if nominal >= total {
			spans = append(spans, Span{Index: i, Start: start, End: total})
			break
		}
		cut := lowestEnergyPoint(buf, nominal, marginSeconds, start+overlapSeconds)
		spans = append(spans, Span{Index: i, Start: start, End: cut})

		next := cut - overlapSeconds
		if next <= start {
			next = cut
		}
		start = next
	}
	return spans
}

// lowestEnergyPoint scans [nominal-margin, nominal+margin] in RMS windows
// and returns the center of the quietest one. The scan never reaches back
// past floor, so an oversized margin cannot pull a cut behind the current
// span and stall planning. Equal-energy ties resolve toward the nominal
// boundary. With no usable margin the nominal boundary stands.
func lowestEnergyPoint(buf *model.PcmBuffer, nominal, margin, floor float64) float64 {
	if margin <= 0 {
		return nominal
	}
	lo := nominal - margin
	hi := nominal + margin
	if lo < floor {
		lo = floor
	}
	if lo < 0 {
		lo = 0
	}
	if hi > buf.Duration() {
		hi = buf.Duration()
	}

	best := nominal
	bestEnergy := math.Inf(1)
	bestDist := math.Inf(1)
	for t := lo; t+energyWindow <= hi; t += energyWindow {
		e := rms(buf.Slice(t, t+energyWindow))
		center := t + energyWindow/2
		dist := math.Abs(center - nominal)
		if e < bestEnergy || (e == bestEnergy && dist < bestDist) {
			bestEnergy = e
			bestDist = dist
			best = center
		}
	}
	return best
}

func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
