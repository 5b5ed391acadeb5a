package podcast

import (
	"time"

	"github.com/loqalabs/loqa-podcast/internal/script"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ScriptPair carries one value per language under the public keys.
type ScriptPair struct {
	English *string `json:"eng_pod"`
	Hindi   *string `json:"hin_pod"`
}

// ScriptLengths reports script sizes in characters.
type ScriptLengths struct {
	English int `json:"eng_pod"`
	Hindi   int `json:"hin_pod"`
	Total   int `json:"total"`
}

// AudioRefs holds the public reference of each stored file.
type AudioRefs struct {
	English *string `json:"eng_pod_audio"`
	Hindi   *string `json:"hin_pod_audio"`
}

// ChunkCounts reports the number of chunks per language.
type ChunkCounts struct {
	English int `json:"eng_pod_count"`
	Hindi   int `json:"hin_pod_count"`
	Total   int `json:"total"`
}

// Result is the payload returned to callers. Success and error payloads share
// the same fields; sections that do not apply are null.
type Result struct {
	Status        string             `json:"status"`
	RequestID     string             `json:"request_id"`
	Date          string             `json:"date"`
	Name          string             `json:"name"`
	Attribution   *string            `json:"attribution"`
	Language      string             `json:"language"`
	Scripts       ScriptPair         `json:"scripts"`
	ScriptLengths *ScriptLengths     `json:"script_lengths"`
	Audio         AudioRefs          `json:"audio"`
	Files         []GenerationResult `json:"files"`
	Speaker       *string            `json:"speaker"`
	Speakers      map[string]string  `json:"speakers"`
	Chunks        *ChunkCounts       `json:"chunks"`
	Error         *string            `json:"error"`
	Timestamp     string             `json:"timestamp"`

	kind Kind
}

// OK reports whether the generation succeeded.
func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

// Kind returns the failure kind of an error result.
func (r Result) Kind() Kind {
	return r.kind
}

func (a *AudioRefs) set(lang script.Language, ref string) {
	if lang == script.Hindi {
		a.Hindi = &ref
		return
	}
	a.English = &ref
}

func ptr[T any](v T) *T {
	return &v
}

// RejectedResult is the error payload for a request that never reached the
// pipeline, such as an undecodable body.
func RejectedResult(err error, now time.Time) Result {
	return Result{
		Status:    StatusError,
		Error:     ptr(err.Error()),
		Timestamp: now.Format(time.RFC3339),
		kind:      KindInput,
	}
}
