package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"snapmath/pkg/imgproc"
)

// OpenAI reads equations through the chat-completions API with an image_url
// data URI. The API cannot return an image, so Enhance is unsupported and
// the pipeline keeps the unenhanced crop.
type OpenAI struct {
	APIKey  string
	Model   string
	prompts *Prompts
	httpc   *http.Client
}

func NewOpenAI(apiKey, model string, prompts *Prompts) *OpenAI {
	return &OpenAI{
		APIKey:  strings.TrimSpace(apiKey),
		Model:   strings.TrimSpace(model),
		prompts: prompts,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *OpenAI) Name() string { return "openai" }

func (e *OpenAI) Enhance(ctx context.Context, img imgproc.RasterImage) (imgproc.RasterImage, error) {
	return imgproc.RasterImage{}, ErrEnhanceUnsupported
}

func (e *OpenAI) Extract(ctx context.Context, img imgproc.RasterImage) (Extraction, error) {
	if e.APIKey == "" {
		return Extraction{}, errors.New("OPENAI_API_KEY is empty")
	}
	body := map[string]any{
		"model": e.Model,
		"messages": []any{
			map[string]any{"role": "system", "content": e.prompts.Extract()},
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": "Return strict JSON only."},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": img.DataURL(), "detail": "high"}},
				},
			},
		},
		"temperature":     0,
		"response_format": map[string]any{"type": "json_object"},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Extraction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return Extraction{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return Extraction{}, fmt.Errorf("openai extract %d: %s", resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return Extraction{}, err
	}
	if len(raw.Choices) == 0 || strings.TrimSpace(raw.Choices[0].Message.Content) == "" {
		return Extraction{}, ErrNoExtraction
	}
	var out Extraction
	if err := json.Unmarshal([]byte(stripCodeFences(raw.Choices[0].Message.Content)), &out); err != nil {
		return Extraction{}, fmt.Errorf("openai extract: bad JSON: %w", err)
	}
	return out, nil
}
