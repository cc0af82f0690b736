// Package align merges chunk-local recognizer output into a single
// global word timeline: rebasing offsets, deduplicating overlap words,
// and clamping residual timing inversions.
package align

import (
	"sort"
	"strings"

	"verbatim/internal/model"
)

// Options tunes the overlap deduplication heuristic. The text+time
// proximity rule is deliberately configurable; the exact tie-break is not
// load-bearing and should be validated against the engine in use.
type Options struct {
	// DedupWindow is the maximum start-time distance (seconds) between
	// two same-text tokens for them to count as overlap duplicates.
	DedupWindow float64
}

// DefaultOptions matches the shipped configuration.
func DefaultOptions() Options {
	return Options{DedupWindow: 0.5}
}

// candidate is a rebased token plus its distance to the nearest edge of
// the chunk it came from.
type candidate struct {
	word     model.Word
	lowConf  bool
	edgeDist float64
}

// Merge converts ordered chunk batches into one global word sequence.
// Failed batches are preserved as temporal gaps. The output has
// non-decreasing start times, start <= end for every word, and no two
// words with identical (text, start).
func Merge(batches []model.TokenBatch, opts Options) ([]model.Word, []model.Gap, error) {
	if err := checkBatches(batches); err != nil {
		return nil, nil, err
	}

	var cands []candidate
	var gaps []model.Gap
	for _, b := range batches {
		if b.Failed {
			gaps = append(gaps, model.Gap{Start: b.Offset, End: b.Offset + b.Duration})
			continue
		}
		for _, tok := range b.Tokens {
			start := b.Offset + tok.Start
			end := b.Offset + tok.End
			if end < start {
				end = start
			}
			dist := tok.Start
			if tail := b.Duration - tok.End; tail < dist {
				dist = tail
			}
			cands = append(cands, candidate{
				word:     model.Word{Text: tok.Text, Start: start, End: end},
				lowConf:  tok.LowConfidence,
				edgeDist: dist,
			})
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].word.Start < cands[j].word.Start
	})

	words := dedup(cands, opts.DedupWindow)
	clampInversions(words)
	return words, gaps, nil
}

// checkBatches rejects input violating the recognizer contract; this is
// the only alignment_error source.
func checkBatches(batches []model.TokenBatch) error {
	prev := -1.0
	for i, b := range batches {
		if b.Index != i {
			return model.NewError(model.ErrAlignment, "align", "chunk batches out of order", nil)
		}
		if b.Offset < 0 || b.Duration < 0 {
			return model.NewError(model.ErrAlignment, "align", "chunk batch has negative timing", nil)
		}
		if b.Offset < prev {
			return model.NewError(model.ErrAlignment, "align", "chunk offsets are not monotonic", nil)
		}
		prev = b.Offset
	}
	return nil
}

// dedup collapses overlap duplicates: same normalized text with starts
// within the window. The survivor is the candidate farther from its own
// chunk edge, which saw more context. A replacement can move a kept
// entry's start later than its successors' by up to one window, so the
// backward scan only stops once an entry is more than two windows away:
// every entry beyond that point is out of reach even after replacement.
func dedup(cands []candidate, window float64) []model.Word {
	var out []model.Word
	var kept []candidate
	for _, c := range cands {
		replaced := false
		for i := len(kept) - 1; i >= 0; i-- {
			k := kept[i]
			d := c.word.Start - k.word.Start
			if d > 2*window {
				break
			}
			if d > window || d < -window {
				continue
			}
			if normalize(k.word.Text) != normalize(c.word.Text) {
				continue
			}
			if c.edgeDist > k.edgeDist {
				kept[i] = c
				out[i] = c.word
			}
			replaced = true
			break
		}
		if !replaced {
			kept = append(kept, c)
			out = append(out, c.word)
		}
	}
	return out
}

// clampInversions forces non-decreasing start times by clamping a word's
// start to its predecessor's end. Brief overlaps are left alone.
func clampInversions(words []model.Word) {
	for i := 1; i < len(words); i++ {
		if words[i].Start < words[i-1].Start {
			words[i].Start = words[i-1].End
			if words[i].End < words[i].Start {
				words[i].End = words[i].Start
			}
		}
	}
}

func normalize(text string) string {
	return strings.ToLower(strings.Trim(text, " .,!?;:\"'"))
}
