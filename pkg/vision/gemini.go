package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"snapmath/pkg/imgproc"
)

// Gemini talks to the Generative Language API. Extract uses a text model in
// strict-JSON mode; Enhance uses an image-capable model and takes the first
// image part of the response.
type Gemini struct {
	APIKey     string
	Model      string
	ImageModel string
	prompts    *Prompts
}

func NewGemini(apiKey, model, imageModel string, prompts *Prompts) *Gemini {
	return &Gemini{
		APIKey:     strings.TrimSpace(apiKey),
		Model:      strings.TrimSpace(model),
		ImageModel: strings.TrimSpace(imageModel),
		prompts:    prompts,
	}
}

func (e *Gemini) Name() string { return "gemini" }

func (e *Gemini) Extract(ctx context.Context, img imgproc.RasterImage) (Extraction, error) {
	if e.APIKey == "" {
		return Extraction{}, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return Extraction{}, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(e.prompts.Extract())},
	}

	parts := []genai.Part{
		genai.Text("Return strict JSON only."),
		&genai.Blob{MIMEType: img.ContentType(), Data: img.Data},
	}

	// transient 5xx happen; retry a couple of times
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if err := backoff(ctx, attempt); err != nil {
				return Extraction{}, err
			}
			continue
		}
		txt := firstText(resp)
		if txt == "" {
			return Extraction{}, ErrNoExtraction
		}
		var out Extraction
		if err := json.Unmarshal([]byte(stripCodeFences(txt)), &out); err != nil {
			return Extraction{}, fmt.Errorf("gemini extract: bad JSON: %w", err)
		}
		return out, nil
	}
	return Extraction{}, lastErr
}

func (e *Gemini) Enhance(ctx context.Context, img imgproc.RasterImage) (imgproc.RasterImage, error) {
	if e.APIKey == "" {
		return imgproc.RasterImage{}, errors.New("GEMINI_API_KEY is empty")
	}
	if e.ImageModel == "" {
		return imgproc.RasterImage{}, ErrEnhanceUnsupported
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return imgproc.RasterImage{}, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.ImageModel)
	parts := []genai.Part{
		genai.Text(e.prompts.Enhance()),
		&genai.Blob{MIMEType: img.ContentType(), Data: img.Data},
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if err := backoff(ctx, attempt); err != nil {
				return imgproc.RasterImage{}, err
			}
			continue
		}
		if b := firstBlob(resp); b != nil {
			return imgproc.RasterImage{MIME: b.MIMEType, Data: b.Data}, nil
		}
		return imgproc.RasterImage{}, ErrNoImage
	}
	return imgproc.RasterImage{}, lastErr
}

func firstText(resp *genai.GenerateContentResponse) string {
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				if s := strings.TrimSpace(string(t)); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// firstBlob finds the first inline-image part of a response. The API
// delivers blobs as values; pointers only occur on the request side, but
// cost nothing to accept.
func firstBlob(resp *genai.GenerateContentResponse) *genai.Blob {
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			switch b := p.(type) {
			case genai.Blob:
				if len(b.Data) > 0 {
					return &b
				}
			case *genai.Blob:
				if b != nil && len(b.Data) > 0 {
					return b
				}
			}
		}
	}
	return nil
}

// backoff waits out the retry delay but gives up as soon as the context
// is cancelled, so a reset mid-retry returns immediately.
func backoff(ctx context.Context, attempt int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt) * 300 * time.Millisecond):
		return nil
	}
}

func ptrFloat32(v float32) *float32 { return &v }
