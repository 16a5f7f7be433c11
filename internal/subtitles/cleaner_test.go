package subtitles

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNormalizeEmptyInput(t *testing.T) {
	out, stats := Normalize("")
	if out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
	if stats != (Stats{}) {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestNormalizeStripsStructure(t *testing.T) {
	raw := `WEBVTT

1
00:00:00.000 --> 00:00:02.000
Hello there.

2
00:00:02.000 --> 00:00:04.000
General Kenobi.
`

	out, stats := Normalize(raw)
	want := "Hello there.\nGeneral Kenobi."
	if out != want {
		t.Fatalf("Normalize() = %q, want %q", out, want)
	}
	if stats.CharsBefore != 28 || stats.CharsAfter != 28 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Ratio != 1.0 || stats.Removed != 0 {
		t.Fatalf("unexpected dedupe stats: %+v", stats)
	}
}

func TestNormalizeStripsMarkupAndCueSettings(t *testing.T) {
	raw := `WEBVTT

00:00:01.000 --> 00:00:02.000 align:start position:0%
<c>we're</c><c> going</c> to the park.

00:00:02.000 --> 00:00:04.000
speaker:Anakin Hello friend.
`

	out, _ := Normalize(raw)
	// The phrase pass tokenizes on all whitespace, so line breaks flatten
	// to spaces once the text is long enough to scan.
	want := "we're going to the park. Anakin Hello friend."
	if out != want {
		t.Fatalf("Normalize() = %q, want %q", out, want)
	}
}

func TestNormalizeJoinsContinuationLines(t *testing.T) {
	raw := `WEBVTT

00:00:01.000 --> 00:00:03.000
the quick brown
00:00:03.000 --> 00:00:05.000
fox jumps high.
`

	out, _ := Normalize(raw)
	want := "the quick brown fox jumps high."
	if out != want {
		t.Fatalf("Normalize() = %q, want %q", out, want)
	}
}

func TestNormalizeThreeIdenticalCaptionLines(t *testing.T) {
	// Three unpunctuated repeats: the line cap keeps two, continuation
	// joining then merges them into one line.
	out, _ := Normalize("hello\nhello\nhello")
	if out != "hello hello" {
		t.Fatalf("Normalize() = %q, want %q", out, "hello hello")
	}
}

func TestDedupeConsecutiveLinesKeepsAtMostTwo(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []string
	}{
		{
			name:  "four identical",
			lines: []string{"hello", "hello", "hello", "hello"},
			want:  []string{"hello", "hello"},
		},
		{
			name:  "case insensitive",
			lines: []string{"Hello", "HELLO", "hello"},
			want:  []string{"Hello", "HELLO"},
		},
		{
			name:  "distinct lines untouched",
			lines: []string{"one", "two", "three"},
			want:  []string{"one", "two", "three"},
		},
		{
			name:  "repeat run resets",
			lines: []string{"a", "a", "a", "b", "a"},
			want:  []string{"a", "a", "b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedupeConsecutiveLines(tt.lines)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestNormalizeDropsRepeatedSentences(t *testing.T) {
	out, _ := Normalize("It was night. It was night. The door opened.")
	want := "It was night. The door opened."
	if out != want {
		t.Fatalf("Normalize() = %q, want %q", out, want)
	}
}

func TestNormalizeRepeatedPunctuatedLinesCascade(t *testing.T) {
	// The line pass keeps two copies; the sentence pass then removes the
	// surviving duplicate.
	out, _ := Normalize("Hello there.\nhello there.\nHELLO THERE.")
	if out != "Hello there." {
		t.Fatalf("Normalize() = %q, want %q", out, "Hello there.")
	}
}

func TestNormalizePhraseCollapse(t *testing.T) {
	out, stats := Normalize("the cat sat the cat sat the cat sat on the mat")
	want := "the cat sat on the mat"
	if out != want {
		t.Fatalf("Normalize() = %q, want %q", out, want)
	}
	if stats.Removed <= 0 {
		t.Fatalf("expected removed chars > 0, got %+v", stats)
	}
	if stats.Ratio >= 1.0 {
		t.Fatalf("expected ratio < 1.0, got %v", stats.Ratio)
	}
}

func TestNormalizeConvergesOnSecondPass(t *testing.T) {
	inputs := []string{
		"the cat sat the cat sat the cat sat on the mat",
		"WEBVTT\n\n1\n00:00:00.000 --> 00:00:02.000\nHello there.\n\n2\n00:00:02.000 --> 00:00:04.000\nGeneral Kenobi.\n",
		"It was night. It was night. The door opened.",
	}

	for _, input := range inputs {
		once, _ := Normalize(input)
		twice, _ := Normalize(once)
		if once != twice {
			t.Fatalf("not converged for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestNormalizeFallbackExtraction(t *testing.T) {
	// Every line is eaten by the cue-settings strip, so the fallback path
	// must recover the visible text.
	out, stats := Normalize("WEBVTT\n\nSpeaker: \nNarrator: \n")
	want := "Speaker: Narrator:"
	if out != want {
		t.Fatalf("Normalize() = %q, want %q", out, want)
	}
	if stats.CharsBefore != 0 {
		t.Fatalf("expected zero chars before dedupe, got %+v", stats)
	}
	if stats.Ratio != 1.0 {
		t.Fatalf("expected ratio 1.0 when nothing preceded dedupe, got %v", stats.Ratio)
	}
}

func TestNormalizeHardCapWithoutBoundary(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, "tok%02d ", i)
	}
	raw := strings.TrimSpace(b.String())

	out, stats := NormalizeWithLimit(raw, 100)
	if utf8.RuneCountInString(out) != 100 {
		t.Fatalf("expected hard cut to 100 chars, got %d", utf8.RuneCountInString(out))
	}
	if out != raw[:100] {
		t.Fatalf("expected plain prefix, got %q", out)
	}
	if stats.CharsAfter != 100 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestNormalizeCapPrefersSentenceBoundary(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "tok%02d ", i)
	}
	head := strings.TrimSpace(b.String())
	raw := head + ". extra words beyond the cap limit"

	out, _ := NormalizeWithLimit(raw, 100)
	want := head + "."
	if out != want {
		t.Fatalf("expected truncation at sentence boundary, got %q", out)
	}
	if utf8.RuneCountInString(out) > 100 {
		t.Fatalf("cap exceeded: %d runes", utf8.RuneCountInString(out))
	}
}

func TestNormalizePlainTextPassesThrough(t *testing.T) {
	out, _ := Normalize("Just a plain sentence with no caption structure at all.")
	want := "Just a plain sentence with no caption structure at all."
	if out != want {
		t.Fatalf("Normalize() = %q, want %q", out, want)
	}
}
