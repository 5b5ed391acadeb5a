package podcast

import (
	"errors"
	"fmt"

	"github.com/loqalabs/loqa-podcast/internal/llm"
	"github.com/loqalabs/loqa-podcast/internal/script"
	"github.com/loqalabs/loqa-podcast/internal/tts"
)

// Kind classifies a pipeline failure for the caller.
type Kind string

const (
	// KindInput covers bad selectors, missing scripts and chunk validation
	// failures.
	KindInput Kind = "input"
	// KindUpstream covers synthesis and generation backend failures.
	KindUpstream Kind = "upstream"
	// KindInternal covers storage failures, panics and anything unexpected.
	KindInternal Kind = "internal"
)

var (
	ErrUnsupportedSelector = errors.New("unsupported language selector")
	ErrMissingScripts      = errors.New("script source did not return both scripts")
)

// Error is the single failure type returned by the pipeline.
type Error struct {
	Kind     Kind
	Stage    Stage
	Language script.Language
	Err      error
}

func (e *Error) Error() string {
	if e.Language != "" {
		return fmt.Sprintf("%s failure at %s (%s): %v", e.Kind, e.Stage, e.Language, e.Err)
	}
	return fmt.Sprintf("%s failure at %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindInternal when err is not a
// pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// classify maps component errors onto the failure taxonomy.
func classify(err error) Kind {
	var (
		pe *Error
		be *tts.BackendError
		ve *script.ValidationError
	)
	switch {
	case errors.As(err, &pe):
		return pe.Kind
	case errors.As(err, &ve),
		errors.Is(err, script.ErrInvalidChunkSet),
		errors.Is(err, script.ErrEmptyScript),
		errors.Is(err, script.ErrInvalidMax),
		errors.Is(err, script.ErrUnsupportedLanguage),
		errors.Is(err, ErrUnsupportedSelector),
		errors.Is(err, ErrMissingScripts):
		return KindInput
	case errors.As(err, &be),
		errors.Is(err, tts.ErrMissingAudio),
		errors.Is(err, tts.ErrMissingAPIKey),
		errors.Is(err, llm.ErrMarkersMissing),
		errors.Is(err, llm.ErrEmptySection),
		errors.Is(err, llm.ErrScriptTooShort),
		errors.Is(err, llm.ErrEmptyOutput):
		return KindUpstream
	}
	var ce *tts.ChunkError
	if errors.As(err, &ce) {
		return KindUpstream
	}
	return KindInternal
}

func newError(stage Stage, lang script.Language, err error) *Error {
	return &Error{Kind: classify(err), Stage: stage, Language: lang, Err: err}
}
