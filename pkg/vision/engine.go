package vision

import (
	"context"
	"errors"
	"strings"

	"snapmath/pkg/imgproc"
)

// Engine is a remote multimodal model that can sharpen an image of
// handwritten arithmetic and read an equation off it. Both calls are
// opaque network round trips outside this system's control.
type Engine interface {
	Name() string
	Enhance(ctx context.Context, img imgproc.RasterImage) (imgproc.RasterImage, error)
	Extract(ctx context.Context, img imgproc.RasterImage) (Extraction, error)
}

// Engines holds the configured providers.
type Engines struct {
	Gemini Engine
	OpenAI Engine
}

// Get resolves a provider by name. An empty name means Gemini.
func (e *Engines) Get(name string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "gemini":
		if e.Gemini == nil {
			return nil, errors.New("gemini engine not configured")
		}
		return e.Gemini, nil
	case "gpt", "openai":
		if e.OpenAI == nil {
			return nil, errors.New("openai engine not configured")
		}
		return e.OpenAI, nil
	default:
		return nil, errors.New("unknown engine; use 'gemini' or 'openai'")
	}
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
