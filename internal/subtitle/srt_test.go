package subtitle

import (
	"bytes"
	"strings"
	"testing"

	"verbatim/internal/model"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.042, "00:01:01,042"},
		{3723.999, "01:02:03,999"},
		{-2, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestWriteSRTGrammar(t *testing.T) {
	cues := []model.Cue{
		{Index: 1, Start: 0.5, End: 2.0, Words: []model.Word{
			{Text: "hello", Start: 0.5, End: 1.0},
			{Text: "world", Start: 1.2, End: 2.0},
		}},
		{Index: 2, Start: 3.0, End: 4.5, Words: []model.Word{
			{Text: "again", Start: 3.0, End: 4.5},
		}},
	}

	var buf bytes.Buffer
	if err := WriteSRT(&buf, cues); err != nil {
		t.Fatalf("WriteSRT returned error: %v", err)
	}

	want := "1\n00:00:00,500 --> 00:00:02,000\nhello world\n\n" +
		"2\n00:00:03,000 --> 00:00:04,500\nagain\n\n"
	if buf.String() != want {
		t.Errorf("unexpected SRT output:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestWriteSRTEmptyDocument(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSRT(&buf, nil); err != nil {
		t.Fatalf("WriteSRT returned error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("empty cue list should produce an empty document, got %q", buf.String())
	}
	cues, err := ParseSRT(&buf)
	if err != nil {
		t.Fatalf("parsing empty document failed: %v", err)
	}
	if len(cues) != 0 {
		t.Errorf("expected no cues from empty document, got %d", len(cues))
	}
}

func TestSRTRoundTrip(t *testing.T) {
	cues := []model.Cue{
		{Index: 1, Start: 0, End: 1.25, Words: []model.Word{{Text: "first", Start: 0, End: 1.25}}},
		{Index: 2, Start: 2.5, End: 6.001, Words: []model.Word{
			{Text: "second", Start: 2.5, End: 3},
			{Text: "cue", Start: 3, End: 6.001},
		}},
		{Index: 3, Start: 3601.5, End: 3603, Words: []model.Word{{Text: "late", Start: 3601.5, End: 3603}}},
	}

	var buf bytes.Buffer
	if err := WriteSRT(&buf, cues); err != nil {
		t.Fatalf("WriteSRT returned error: %v", err)
	}
	parsed, err := ParseSRT(&buf)
	if err != nil {
		t.Fatalf("ParseSRT returned error: %v", err)
	}
	if len(parsed) != len(cues) {
		t.Fatalf("expected %d cues, got %d", len(cues), len(parsed))
	}
	for i, p := range parsed {
		if p.Index != i+1 {
			t.Errorf("cue %d: index %d", i, p.Index)
		}
		// Boundaries reproduce at millisecond precision.
		if !closeMs(p.Start, cues[i].Start) || !closeMs(p.End, cues[i].End) {
			t.Errorf("cue %d boundaries differ: got (%v, %v) want (%v, %v)",
				i, p.Start, p.End, cues[i].Start, cues[i].End)
		}
		if p.Text != cues[i].Text() {
			t.Errorf("cue %d text %q, want %q", i, p.Text, cues[i].Text())
		}
	}
}

func closeMs(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 0.001
}

func TestParseSRTMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing timecode", "1\nhello\n\n"},
		{"bad index", "x\n00:00:00,000 --> 00:00:01,000\nhi\n\n"},
		{"bad timecode", "1\n00:00 --> 00:01\nhi\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSRT(strings.NewReader(tt.input)); err == nil {
				t.Error("expected parse error, got nil")
			}
		})
	}
}

func TestWriteASSContainsHeaderAndDialogue(t *testing.T) {
	cues := []model.Cue{
		{Index: 1, Start: 1.0, End: 2.5, Words: []model.Word{{Text: "hi", Start: 1.0, End: 2.5}}},
	}
	var buf bytes.Buffer
	if err := WriteASS(&buf, cues); err != nil {
		t.Fatalf("WriteASS returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "[Script Info]") || !strings.Contains(out, "[Events]") {
		t.Error("ASS output missing section headers")
	}
	if !strings.Contains(out, "Dialogue: 0,0:00:01.00,0:00:02.50,Default,,0,0,0,,hi") {
		t.Errorf("ASS output missing dialogue line:\n%s", out)
	}
}
