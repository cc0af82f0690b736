package subtitle

import (
	"fmt"
	"io"

	"verbatim/internal/model"
)

const assHeader = `[Script Info]
ScriptType: v4.00+
PlayResX: 384
PlayResY: 288
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,Arial,20,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2,0,2,10,10,10,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// WriteASS serializes cues as an Advanced SubStation document with a
// fixed default style.
func WriteASS(w io.Writer, cues []model.Cue) error {
	if _, err := io.WriteString(w, assHeader); err != nil {
		return err
	}
	for _, cue := range cues {
		_, err := fmt.Fprintf(w, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			formatASSTimestamp(cue.Start),
			formatASSTimestamp(cue.End),
			cue.Text(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// formatASSTimestamp renders seconds as the ASS H:MM:SS.cc form
// (centisecond precision).
func formatASSTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int64(seconds*100 + 0.5)
	h := centis / 360000
	m := (centis % 360000) / 6000
	s := (centis % 6000) / 100
	cs := centis % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}
