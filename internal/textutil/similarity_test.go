package textutil

import (
	"math"
	"strings"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
		want float64
	}{
		{"both nil", nil, nil, 0},
		{"a nil", nil, NewFingerprint("hello world"), 0},
		{"b nil", NewFingerprint("hello world"), nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilarityIdentical(t *testing.T) {
	text := "The keeper rowed out alone and the town watched her go"
	a := NewFingerprint(text)
	b := NewFingerprint(text)

	got := CosineSimilarity(a, b)
	if got != 1.0 {
		t.Errorf("CosineSimilarity(identical) = %v, want 1.0", got)
	}
}

func TestCosineSimilarityDisjoint(t *testing.T) {
	a := NewFingerprint("apple banana cherry")
	b := NewFingerprint("dog elephant frog")

	got := CosineSimilarity(a, b)
	if got != 0 {
		t.Errorf("CosineSimilarity(disjoint) = %v, want 0", got)
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := NewFingerprint("hello world program")
	b := NewFingerprint("world program test")

	ab := CosineSimilarity(a, b)
	ba := CosineSimilarity(b, a)

	if ab != ba {
		t.Errorf("CosineSimilarity not symmetric: (%v, %v)", ab, ba)
	}
}

func TestNewFingerprintEmpty(t *testing.T) {
	fp := NewFingerprint("")
	if fp != nil {
		t.Error("expected nil for empty text")
	}
}

func TestNewFingerprintShortTokens(t *testing.T) {
	fp := NewFingerprint("a an it to")
	if fp != nil {
		t.Error("expected nil for text with only short tokens")
	}
}

func TestNewFingerprintNormCalculation(t *testing.T) {
	// "hello hello world" -> hello:2, world:1
	// norm = sqrt(2^2 + 1^2) = sqrt(5)
	fp := NewFingerprint("hello hello world")
	if fp == nil {
		t.Fatal("expected fingerprint")
	}

	expectedNorm := math.Sqrt(5)
	if math.Abs(fp.norm-expectedNorm) > 0.0001 {
		t.Errorf("norm = %v, want %v", fp.norm, expectedNorm)
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "simple words",
			input: "Hello World",
			want:  []string{"hello", "world"},
		},
		{
			name:  "filters short",
			input: "a to the quick fox",
			want:  []string{"the", "quick", "fox"},
		},
		{
			name:  "handles punctuation",
			input: "Hello, World! How are you?",
			want:  []string{"hello", "world", "how", "are", "you"},
		},
		{
			name:  "splits on apostrophes",
			input: "don't stop",
			want:  []string{"don", "stop"},
		},
		{
			name:  "cyrillic words",
			input: "Привет, мир!",
			want:  []string{"привет", "мир"},
		},
		{
			name:  "handles numbers",
			input: "test123 456test",
			want:  []string{"test123", "456test"},
		},
		{
			name:  "empty string",
			input: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize() = %v (len %d), want %v (len %d)",
					got, len(got), tt.want, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("token[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFingerprintTokenCount(t *testing.T) {
	tests := []struct {
		name string
		fp   *Fingerprint
		want int
	}{
		{
			name: "nil fingerprint",
			fp:   nil,
			want: 0,
		},
		{
			name: "unique tokens",
			fp:   NewFingerprint("hello world programming"),
			want: 3,
		},
		{
			name: "repeated tokens",
			fp:   NewFingerprint("hello hello world world world"),
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fp.TokenCount()
			if got != tt.want {
				t.Errorf("TokenCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSimilarityEmptyTexts(t *testing.T) {
	if got := Similarity("", "some narration text here"); got != 0 {
		t.Errorf("Similarity(empty, text) = %v, want 0", got)
	}
	if got := Similarity("", ""); got != 0 {
		t.Errorf("Similarity(empty, empty) = %v, want 0", got)
	}
}

func TestSimilarityNearIdenticalNarration(t *testing.T) {
	base := `The storm broke over the harbor just after midnight and the
		fishermen hauled their nets against the wind. Nobody expected the
		lighthouse keeper to row out alone, yet she did, and the town
		watched her lantern vanish into the spray. By morning the boats
		were home, the keeper was not, and the harbor kept her secret
		for thirty years.`

	// One changed word should not count as a rewrite.
	variant := strings.Replace(base, "lantern", "torchlight", 1)

	got := Similarity(base, variant)
	if got <= 0.97 {
		t.Errorf("Similarity(near-identical) = %v, want > 0.97", got)
	}
}

func TestSimilarityRewrittenNarration(t *testing.T) {
	original := `The storm broke over the harbor just after midnight and the
		fishermen hauled their nets against the wind. Nobody expected the
		lighthouse keeper to row out alone, yet she did, and the town
		watched her lantern vanish into the spray.`

	rewritten := `Deep in the archive a clerk discovered a ledger listing
		payments to a man declared dead a decade earlier. Each entry grew
		larger than the last. When the clerk traced the account, the trail
		ended at his own front door.`

	got := Similarity(original, rewritten)
	if got >= 0.97 {
		t.Errorf("Similarity(rewritten) = %v, want < 0.97", got)
	}
}

func TestContainsCyrillic(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"english only", "The quick brown fox", false},
		{"cyrillic", "Привет", true},
		{"mixed scripts", "Slide one: Привет", true},
		{"greek is not cyrillic", "αβγ", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsCyrillic(tt.input); got != tt.want {
				t.Errorf("ContainsCyrillic(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
