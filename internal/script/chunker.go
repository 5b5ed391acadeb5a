package script

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyScript         = errors.New("script is empty")
	ErrInvalidMax          = errors.New("max chunk length must be positive")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Chunk is one sentence-aligned piece of a script and the unit of a single
// synthesis call.
type Chunk struct {
	Language Language `json:"language"`
	Index    int      `json:"index"`
	Text     string   `json:"text"`
}

// Len returns the chunk length in characters.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Text)
}

// ChunkSet is the ordered chunk sequence of one script plus its counters.
type ChunkSet struct {
	Language   Language `json:"language"`
	Chunks     []Chunk  `json:"chunks"`
	Count      int      `json:"count"`
	TotalChars int      `json:"total_chars"`
	MaxChars   int      `json:"max_chars"`
}

// Texts returns the chunk texts in playback order.
func (s ChunkSet) Texts() []string {
	out := make([]string, len(s.Chunks))
	for i, c := range s.Chunks {
		out[i] = c.Text
	}
	return out
}

// Split divides text into chunks of at most maxChars characters without
// breaking sentences. A script that already fits is returned as the only
// chunk.
//
// A single sentence longer than maxChars is split at word boundaries, and a
// single word longer than maxChars is cut at character boundaries, so no
// chunk ever exceeds maxChars.
//
// Chunk texts are slices of text and are never rewritten; callers that want
// canonical Unicode run Clean first.
func Split(text string, maxChars int, lang Language) (ChunkSet, error) {
	if maxChars <= 0 {
		return ChunkSet{}, ErrInvalidMax
	}
	if !lang.Valid() {
		return ChunkSet{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	if strings.TrimSpace(text) == "" {
		return ChunkSet{}, ErrEmptyScript
	}

	set := ChunkSet{
		Language:   lang,
		TotalChars: utf8.RuneCountInString(text),
		MaxChars:   maxChars,
	}
	if set.TotalChars <= maxChars {
		set.Chunks = []Chunk{{Language: lang, Index: 0, Text: text}}
		set.Count = 1
		return set, nil
	}

	var units []string
	for _, sentence := range sentences(text, lang) {
		if utf8.RuneCountInString(sentence) > maxChars {
			units = append(units, splitOversized(sentence, maxChars)...)
			continue
		}
		units = append(units, sentence)
	}

	for i, t := range pack(units, maxChars) {
		set.Chunks = append(set.Chunks, Chunk{Language: lang, Index: i, Text: t})
	}
	set.Count = len(set.Chunks)
	return set, nil
}

// SplitAll chunks one script per language.
func SplitAll(scripts map[Language]string, maxChars int) (map[Language]ChunkSet, error) {
	sets := make(map[Language]ChunkSet, len(scripts))
	for _, lang := range Languages {
		text, ok := scripts[lang]
		if !ok {
			continue
		}
		set, err := Split(text, maxChars, lang)
		if err != nil {
			return nil, fmt.Errorf("split %s script: %w", lang, err)
		}
		sets[lang] = set
	}
	return sets, nil
}

// sentences returns the trimmed sentence units of text, dropping fragments
// made only of terminators.
func sentences(text string, lang Language) []string {
	var units []string
	start := 0
	for _, loc := range lang.boundary().FindAllStringIndex(text, -1) {
		units = appendUnit(units, text[start:loc[1]])
		start = loc[1]
	}
	return appendUnit(units, text[start:])
}

func appendUnit(units []string, s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || terminatorOnly.MatchString(s) {
		return units
	}
	return append(units, s)
}

// pack is a first-fit greedy packing that never reorders units.
func pack(units []string, maxChars int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0
	for _, unit := range units {
		unitLen := utf8.RuneCountInString(unit)
		if currentLen > 0 && currentLen+1+unitLen > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(unit)
		currentLen += unitLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func splitOversized(sentence string, maxChars int) []string {
	var pieces []string
	for _, word := range strings.Fields(sentence) {
		if utf8.RuneCountInString(word) <= maxChars {
			pieces = append(pieces, word)
			continue
		}
		runes := []rune(word)
		for len(runes) > maxChars {
			pieces = append(pieces, string(runes[:maxChars]))
			runes = runes[maxChars:]
		}
		if len(runes) > 0 {
			pieces = append(pieces, string(runes))
		}
	}
	return pack(pieces, maxChars)
}
