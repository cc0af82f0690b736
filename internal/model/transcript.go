package model

// Token is one recognizer output unit. Start and End are seconds relative
// to the chunk the token came from; they are not valid globally until the
// aligner rebases them.
type Token struct {
	Text          string
	Start         float64
	End           float64
	Confidence    float64
	LowConfidence bool
}

// TokenBatch is the recognizer output for one chunk, tagged with the
// chunk's global time offset. A failed chunk is recorded as a batch with
// Failed set and no tokens; the aligner preserves it as a temporal gap.
type TokenBatch struct {
	Index    int
	Offset   float64 // global start of the chunk, seconds
	Duration float64 // chunk length, seconds
	Tokens   []Token
	Language string  // language the engine detected for this chunk
	Failed   bool
}

// Word is the canonical post-alignment unit in global time.
type Word struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Cue is one timed caption block of a subtitle document.
type Cue struct {
	Index int
	Start float64
	End   float64
	Words []Word
}

// Text returns the cue's display text (words joined by single spaces).
func (c Cue) Text() string {
	out := ""
	for i, w := range c.Words {
		if i > 0 {
			out += " "
		}
		out += w.Text
	}
	return out
}
