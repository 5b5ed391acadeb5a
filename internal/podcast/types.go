package podcast

import (
	"fmt"
	"strings"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/loqalabs/loqa-podcast/internal/script"
)

// Stage is a state of the generation state machine.
type Stage string

const (
	StageStart          Stage = "START"
	StageScriptsReady   Stage = "SCRIPTS_READY"
	StageChunked        Stage = "CHUNKED_AND_VALIDATED"
	StageSynthesized    Stage = "AUDIO_SYNTHESIZED"
	StageResultCompiled Stage = "RESULT_COMPILED"
	StageError          Stage = "ERROR"

	// Steps inside AUDIO_SYNTHESIZED, used to attribute failures.
	StepSynthesize Stage = "SYNTHESIZE"
	StepCombine    Stage = "COMBINE"
	StepTranscode  Stage = "TRANSCODE"
	StepStore      Stage = "STORE"
)

// Selector picks which languages get audio.
type Selector string

const (
	SelectEnglish Selector = "en"
	SelectHindi   Selector = "hi"
	SelectBoth    Selector = "both"
)

// ParseSelector accepts en, hi or both; empty means both.
func ParseSelector(s string) (Selector, error) {
	switch sel := Selector(strings.ToLower(strings.TrimSpace(s))); sel {
	case "":
		return SelectBoth, nil
	case SelectEnglish, SelectHindi, SelectBoth:
		return sel, nil
	default:
		return "", fmt.Errorf("%w: %q, use en, hi or both", ErrUnsupportedSelector, s)
	}
}

// Languages returns the languages to synthesize, English first.
func (s Selector) Languages() []script.Language {
	switch s {
	case SelectEnglish:
		return []script.Language{script.English}
	case SelectHindi:
		return []script.Language{script.Hindi}
	default:
		return []script.Language{script.English, script.Hindi}
	}
}

// Request is one pipeline invocation.
type Request struct {
	RequestID  string `json:"request_id,omitempty"`
	Name       string `json:"name"`
	VoiceAgent string `json:"voice_agent,omitempty"`
	Language   string `json:"language,omitempty"`
}

// GenerationResult describes the stored audio of one language.
type GenerationResult struct {
	Language   script.Language `json:"language"`
	Path       string          `json:"path"`
	Ref        string          `json:"ref"`
	Format     audio.Format    `json:"format"`
	Bytes      int             `json:"bytes"`
	Chunks     int             `json:"chunks"`
	DurationMS int64           `json:"duration_ms"`
	Speaker    string          `json:"speaker"`
	Degraded   bool            `json:"degraded"`
	Transcoded bool            `json:"transcoded"`
}

// Duration returns the combined audio length.
func (g GenerationResult) Duration() time.Duration {
	return time.Duration(g.DurationMS) * time.Millisecond
}
