package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/loqalabs/loqa-podcast/internal/config"
	"github.com/loqalabs/loqa-podcast/internal/script"
)

// Client translates script text. Every failure returns the input text so a
// translation outage never blocks audio generation.
type Client struct {
	cfg    config.TranslationConfig
	client *http.Client
	logger *slog.Logger
}

type request struct {
	Input              string `json:"input"`
	SourceLanguageCode string `json:"source_language_code"`
	TargetLanguageCode string `json:"target_language_code"`
	Mode               string `json:"mode"`
	Model              string `json:"model"`
	NumeralsFormat     string `json:"numerals_format"`
}

type response struct {
	TranslatedText string `json:"translated_text"`
}

func NewClient(cfg config.TranslationConfig, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		cfg:    cfg,
		client: client,
		logger: logger.With(slog.String("component", "translator")),
	}
}

// Translate returns text rendered in target and whether a translation
// actually happened.
func (c *Client) Translate(ctx context.Context, text string, source, target script.Language) (string, bool) {
	if source == target || strings.TrimSpace(text) == "" {
		return text, false
	}
	if !c.cfg.Enabled {
		return text, false
	}
	if c.cfg.APIKey == "" {
		c.logger.Warn("translation api key missing, using original text")
		return text, false
	}
	translated, err := c.call(ctx, text, source, target)
	if err != nil {
		c.logger.Warn("translation failed, using original text",
			slog.String("source", string(source)),
			slog.String("target", string(target)),
			slog.String("error", err.Error()))
		return text, false
	}
	return translated, true
}

func (c *Client) call(ctx context.Context, text string, source, target script.Language) (string, error) {
	timeout := time.Duration(c.cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(request{
		Input:              text,
		SourceLanguageCode: source.Code(),
		TargetLanguageCode: target.Code(),
		Mode:               c.cfg.Mode,
		Model:              c.cfg.Model,
		NumeralsFormat:     "native",
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("translation backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode translation response: %w", err)
	}
	if strings.TrimSpace(out.TranslatedText) == "" {
		return "", fmt.Errorf("translation response missing translated_text")
	}
	return out.TranslatedText, nil
}
