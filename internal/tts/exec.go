package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/loqalabs/loqa-podcast/internal/audio"
	"github.com/mattn/go-shellwords"
)

type execSynth struct {
	cmd        []string
	sampleRate int
	mu         sync.Mutex
}

type execRequest struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Speaker    string  `json:"speaker"`
	Prosody    Prosody `json:"prosody"`
	SampleRate int     `json:"sample_rate"`
}

type execResponse struct {
	AudioBase64 string `json:"audio_base64"`
	Format      string `json:"format"`
	Error       string `json:"error"`
}

// NewExecSynth runs an external command per chunk. The command receives a
// JSON request on stdin and must print one JSON object with the encoded
// audio on stdout.
func NewExecSynth(command string, sampleRate int) (Synthesizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("tts command empty")
	}
	return &execSynth{cmd: args, sampleRate: sampleRate}, nil
}

func (e *execSynth) Synthesize(ctx context.Context, req Request) (audio.Segment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(execRequest{
		Text:       req.Text,
		Language:   req.Language.Code(),
		Speaker:    req.Speaker,
		Prosody:    req.Prosody,
		SampleRate: e.sampleRate,
	})
	if err != nil {
		return audio.Segment{}, err
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], e.cmd[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return audio.Segment{}, fmt.Errorf("tts command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var resp execResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &resp); err != nil {
		return audio.Segment{}, fmt.Errorf("decode tts command output: %w", err)
	}
	if resp.Error != "" {
		return audio.Segment{}, fmt.Errorf("tts command error: %s", resp.Error)
	}
	if resp.AudioBase64 == "" {
		return audio.Segment{}, ErrMissingAudio
	}
	pcm, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
	if err != nil {
		return audio.Segment{}, fmt.Errorf("decode tts command audio: %w", err)
	}
	format := audio.FormatWAV
	if resp.Format != "" {
		if format, err = audio.ParseFormat(resp.Format); err != nil {
			return audio.Segment{}, err
		}
	}
	return audio.Segment{Data: pcm, Format: format}, nil
}
