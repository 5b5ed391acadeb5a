package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
)

// ErrEmptyOutput is returned when a backend finishes without producing text.
var ErrEmptyOutput = errors.New("generator produced no output")

// commandGenerator hands the briefing prompt to an external program, which
// may be a wrapper around a hosted model or a canned fixture.
type commandGenerator struct {
	argv []string
}

type commandInput struct {
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

type commandOutput struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
	Usage   struct {
		Prompt     int `json:"prompt_tokens"`
		Completion int `json:"completion_tokens"`
	} `json:"usage"`
}

// NewExecGenerator parses command with shell quoting rules. The program reads
// one JSON request on stdin and prints one JSON object on stdout.
func NewExecGenerator(command string) (Generator, error) {
	argv, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse generator command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("generator command empty")
	}
	return &commandGenerator{argv: argv}, nil
}

func (g *commandGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	payload, err := json.Marshal(commandInput{
		Prompt:      req.Prompt,
		System:      req.System,
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, g.argv[0], g.argv[1:]...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	began := time.Now()
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("generator command: %w: %s", err, msg)
		}
		return fmt.Errorf("generator command: %w", err)
	}

	var out commandOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return fmt.Errorf("decode generator output: %w", err)
	}
	if out.Error != "" {
		return fmt.Errorf("generator command reported: %s", out.Error)
	}
	if strings.TrimSpace(out.Content) == "" {
		return ErrEmptyOutput
	}
	return consumer(Chunk{
		Content:          out.Content,
		PromptTokens:     out.Usage.Prompt,
		CompletionTokens: out.Usage.Completion,
		Latency:          time.Since(began),
	})
}
