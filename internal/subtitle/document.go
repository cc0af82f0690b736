package subtitle

import (
	"fmt"
	"io"

	"verbatim/internal/model"
)

// WriteDocument serializes cues in the named format ("srt" or "ass").
func WriteDocument(w io.Writer, format string, cues []model.Cue) error {
	switch format {
	case "srt":
		return WriteSRT(w, cues)
	case "ass":
		return WriteASS(w, cues)
	default:
		return fmt.Errorf("unsupported subtitle format: %s", format)
	}
}
