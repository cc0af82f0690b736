// Package subtitle groups aligned words into display cues and serializes
// them as SRT or ASS documents.
package subtitle

import (
	"verbatim/internal/model"
)

// Options controls cue shaping.
type Options struct {
	MaxChars     int     // max display characters per cue
	MaxWords     int     // max words per cue
	MaxDuration  float64 // max cue display seconds
	MinDuration  float64 // display floor, enforced by extending cue end
	SilenceBreak float64 // word gap (seconds) that forces a cue boundary
}

// DefaultOptions matches the shipped configuration.
func DefaultOptions() Options {
	return Options{
		MaxChars:     42,
		MaxWords:     10,
		MaxDuration:  6,
		MinDuration:  1,
		SilenceBreak: 1.5,
	}
}

// BuildCues greedily accumulates words into cues obeying the shaping
// limits, breaking on long silences so no cue spans a pause. totalDuration
// bounds the final cue's minimum-duration extension; pass 0 when unknown.
// An empty word sequence yields no cues, which serializes to a valid
// empty document.
func BuildCues(words []model.Word, totalDuration float64, opts Options) []model.Cue {
	if len(words) == 0 {
		return nil
	}

	var cues []model.Cue
	var cur []model.Word
	curChars := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		cues = append(cues, model.Cue{
			Index: len(cues) + 1,
			Start: cur[0].Start,
			End:   cur[len(cur)-1].End,
			Words: cur,
		})
		cur = nil
		curChars = 0
	}

	for _, w := range words {
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			switch {
			case w.Start-prev.End > opts.SilenceBreak:
				flush()
			case opts.MaxWords > 0 && len(cur) >= opts.MaxWords:
				flush()
			case opts.MaxChars > 0 && curChars+1+len(w.Text) > opts.MaxChars:
				flush()
			case opts.MaxDuration > 0 && w.End-cur[0].Start > opts.MaxDuration:
				flush()
			}
		}
		if len(cur) > 0 {
			curChars += 1 + len(w.Text)
		} else {
			curChars = len(w.Text)
		}
		cur = append(cur, w)
	}
	flush()

	enforceMinDuration(cues, totalDuration, opts.MinDuration)
	return cues
}

// enforceMinDuration extends short cues' end times up to the display
// floor, never into the next cue's start and never past the input end.
func enforceMinDuration(cues []model.Cue, totalDuration, minDuration float64) {
	if minDuration <= 0 {
		return
	}
	for i := range cues {
		want := cues[i].Start + minDuration
		if cues[i].End >= want {
			continue
		}
		limit := want
		if i+1 < len(cues) && cues[i+1].Start < limit {
			limit = cues[i+1].Start
		}
		if totalDuration > 0 && i == len(cues)-1 && totalDuration < limit {
			limit = totalDuration
		}
		if limit > cues[i].End {
			cues[i].End = limit
		}
	}
}
