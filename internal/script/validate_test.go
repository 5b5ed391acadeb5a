package script

import (
	"errors"
	"strings"
	"testing"
)

func validSet(t *testing.T) ChunkSet {
	t.Helper()
	set, err := Split("First sentence here. Second sentence here. Third one.", 25, English)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	return set
}

func TestValidateAcceptsChunkerOutput(t *testing.T) {
	en := validSet(t)
	hi, err := Split("पहला वाक्य। दूसरा वाक्य।", 25, Hindi)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if err := Validate(500, en, hi); err != nil {
		t.Fatalf("expected valid sets, got %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ChunkSet)
		index  int
	}{
		{"missing language", func(s *ChunkSet) { s.Language = "" }, -1},
		{"unknown language", func(s *ChunkSet) { s.Language = "fr" }, -1},
		{"no chunks", func(s *ChunkSet) { s.Chunks = nil; s.Count = 0 }, -1},
		{"count mismatch", func(s *ChunkSet) { s.Count++ }, -1},
		{"out of order", func(s *ChunkSet) { s.Chunks[0].Index, s.Chunks[1].Index = 1, 0 }, 0},
		{"empty chunk", func(s *ChunkSet) { s.Chunks[1].Text = "   " }, 1},
		{"wrong chunk language", func(s *ChunkSet) { s.Chunks[2].Language = Hindi }, 2},
		{"over limit", func(s *ChunkSet) { s.Chunks[1].Text = strings.Repeat("b", 501) }, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			set := validSet(t)
			tc.mutate(&set)
			err := Validate(500, set)
			if !errors.Is(err, ErrInvalidChunkSet) {
				t.Fatalf("expected ErrInvalidChunkSet, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Index != tc.index {
				t.Fatalf("expected index %d, got %d (%v)", tc.index, verr.Index, err)
			}
		})
	}
}

func TestValidateCountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("क", 10)
	set := ChunkSet{
		Language: Hindi,
		Chunks:   []Chunk{{Language: Hindi, Index: 0, Text: text}},
		Count:    1,
	}
	if err := Validate(10, set); err != nil {
		t.Fatalf("ten devanagari characters should fit a limit of ten: %v", err)
	}
}

func TestValidateDoesNotModify(t *testing.T) {
	set := validSet(t)
	before := strings.Join(set.Texts(), "|")
	_ = Validate(5, set)
	if after := strings.Join(set.Texts(), "|"); after != before {
		t.Fatalf("validate modified chunk texts")
	}
}

func TestValidateRequiresSetsAndLimit(t *testing.T) {
	if err := Validate(500); !errors.Is(err, ErrInvalidChunkSet) {
		t.Fatalf("expected error for no sets, got %v", err)
	}
	if err := Validate(0, validSet(t)); !errors.Is(err, ErrInvalidMax) {
		t.Fatalf("expected ErrInvalidMax, got %v", err)
	}
}
