package protocol

import "time"

// GenerateRequest asks the pipeline to produce a podcast over the bus.
type GenerateRequest struct {
	RequestID  string `json:"request_id,omitempty"`
	Name       string `json:"name"`
	VoiceAgent string `json:"voice_agent,omitempty"`
	Language   string `json:"language,omitempty"`
}

// StageTransition is broadcast whenever a generation changes state.
type StageTransition struct {
	RequestID string    `json:"request_id"`
	Stage     string    `json:"stage"`
	Language  string    `json:"language,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// GenerationOutcome summarizes a finished generation.
type GenerationOutcome struct {
	RequestID string            `json:"request_id"`
	Name      string            `json:"name"`
	Language  string            `json:"language"`
	Status    string            `json:"status"`
	Audio     map[string]string `json:"audio,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

const (
	SubjectGenerateRequest   = "podcast.generate.request"
	SubjectGenerateCompleted = "podcast.generate.completed"
	SubjectGenerateFailed    = "podcast.generate.failed"
	SubjectStagePrefix       = "podcast.stage"
)

// StageSubject returns the subject a stage transition is published on.
func StageSubject(stage string) string {
	return SubjectStagePrefix + "." + stage
}
