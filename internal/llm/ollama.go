package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaModel = "llama3.2:latest"

type ollamaGenerator struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewOllamaGenerator talks to the /api/generate endpoint of an Ollama server
// and relays its newline-delimited stream to the consumer.
func NewOllamaGenerator(endpoint, model string, client *http.Client) Generator {
	if client == nil {
		client = http.DefaultClient
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &ollamaGenerator{baseURL: strings.TrimRight(endpoint, "/"), model: model, http: client}
}

type ollamaPayload struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaLine struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	Error           string `json:"error"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
}

func (g *ollamaGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	payload := ollamaPayload{
		Model:  g.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: true,
	}
	if req.Model != "" {
		payload.Model = req.Model
	}
	opts := map[string]any{}
	if req.Temperature > 0 {
		opts["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(opts) > 0 {
		payload.Options = opts
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	began := time.Now()
	resp, err := g.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ollama returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return relayStream(ctx, resp.Body, began, consumer)
}

// relayStream forwards each decoded line as a chunk. Token counts are only
// reported on the final line, so earlier chunks carry zero.
func relayStream(ctx context.Context, r io.Reader, began time.Time, consumer func(Chunk) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	produced := false
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var line ollamaLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return fmt.Errorf("decode ollama stream: %w", err)
		}
		if line.Error != "" {
			return fmt.Errorf("ollama stream: %s", line.Error)
		}
		if line.Response != "" {
			produced = true
		}
		if err := consumer(Chunk{
			Content:          line.Response,
			Partial:          !line.Done,
			PromptTokens:     line.PromptEvalCount,
			CompletionTokens: line.EvalCount,
			Latency:          time.Since(began),
		}); err != nil {
			return err
		}
		if line.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if !produced {
		return ErrEmptyOutput
	}
	return nil
}
