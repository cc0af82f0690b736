package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"verbatim/internal/model"
)

// WriteSRT serializes cues in SubRip grammar: sequential index line,
// `start --> end` timecodes at millisecond precision, text, blank-line
// separator. No cues produces an empty (still valid) document.
func WriteSRT(w io.Writer, cues []model.Cue) error {
	for i, cue := range cues {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n",
			i+1,
			FormatTimestamp(cue.Start),
			FormatTimestamp(cue.End),
			cue.Text(),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// FormatTimestamp renders seconds as the SRT HH:MM:SS,mmm form.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	m := (millis % 3600000) / 60000
	s := (millis % 60000) / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// ParsedCue is one cue read back from an SRT document.
type ParsedCue struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// ParseSRT reads an SRT document back into cues. The grammar accepted is
// exactly what WriteSRT emits, so serialization round-trips.
func ParseSRT(r io.Reader) ([]ParsedCue, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var cues []ParsedCue
	var block []string
	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		if len(block) < 2 {
			return fmt.Errorf("malformed cue block near entry %d", len(cues)+1)
		}
		index, err := strconv.Atoi(strings.TrimSpace(block[0]))
		if err != nil {
			return fmt.Errorf("invalid cue index %q", block[0])
		}
		start, end, err := parseTimecodeLine(block[1])
		if err != nil {
			return err
		}
		cues = append(cues, ParsedCue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(block[2:], "\n"),
		})
		block = nil
		return nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cues, nil
}

func parseTimecodeLine(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timecode line %q", line)
	}
	start, err := ParseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseTimestamp parses the SRT HH:MM:SS,mmm form into seconds.
func ParseTimestamp(value string) (float64, error) {
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
