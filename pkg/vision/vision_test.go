package vision

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
)

func TestExtractionEmpty(t *testing.T) {
	if !(Extraction{}).Empty() {
		t.Fatal("zero extraction should be empty")
	}
	if (Extraction{Numbers: []string{"2"}}).Empty() {
		t.Fatal("extraction with numbers is not empty")
	}
	if (Extraction{Expression: "2+2"}).Empty() {
		t.Fatal("extraction with an expression is not empty")
	}
}

func TestStripCodeFences(t *testing.T) {
	in := "```json\n{\"expression\":\"2+2\",\"numbers\":[\"2\",\"2\"],\"operators\":[\"+\"]}\n```"
	var out Extraction
	if err := json.Unmarshal([]byte(stripCodeFences(in)), &out); err != nil {
		t.Fatalf("unmarshal fenced JSON: %v", err)
	}
	if out.Expression != "2+2" || len(out.Numbers) != 2 || len(out.Operators) != 1 {
		t.Fatalf("unexpected extraction: %+v", out)
	}
}

func TestPromptsDefaultsAndOverride(t *testing.T) {
	p := NewPrompts("")
	if p.Extract() == "" || p.Enhance() == "" {
		t.Fatal("defaults must be non-empty")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "extract.system.txt"), []byte("custom extract prompt"), 0o644); err != nil {
		t.Fatal(err)
	}
	p = NewPrompts(dir)
	if p.Extract() != "custom extract prompt" {
		t.Fatalf("override not applied: %q", p.Extract())
	}
	// no enhance file on disk -> default kept
	if p.Enhance() != defaultEnhancePrompt {
		t.Fatal("missing file should keep the default")
	}

	if err := os.WriteFile(filepath.Join(dir, "extract.system.txt"), []byte("second version"), 0o644); err != nil {
		t.Fatal(err)
	}
	p.reload()
	if p.Extract() != "second version" {
		t.Fatalf("reload not applied: %q", p.Extract())
	}
}

// Responses carry inline images as Blob values, not the pointer form used
// when sending; firstBlob must see both.
func TestFirstBlobFindsResponseImage(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("here is the cleaned image"),
				genai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}},
			}},
		}},
	}
	b := firstBlob(resp)
	if b == nil {
		t.Fatal("firstBlob missed a value Blob part")
	}
	if b.MIMEType != "image/png" || len(b.Data) != 3 {
		t.Fatalf("wrong blob: %+v", b)
	}

	resp.Candidates[0].Content.Parts = []genai.Part{
		&genai.Blob{MIMEType: "image/jpeg", Data: []byte{9}},
	}
	if b := firstBlob(resp); b == nil || b.MIMEType != "image/jpeg" {
		t.Fatalf("firstBlob missed a pointer Blob part: %+v", b)
	}

	resp.Candidates[0].Content.Parts = []genai.Part{genai.Text("no image")}
	if b := firstBlob(resp); b != nil {
		t.Fatalf("firstBlob invented a blob: %+v", b)
	}
	if b := firstBlob(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}); b != nil {
		t.Fatal("firstBlob on nil content")
	}
}

func TestBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := backoff(ctx, 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("backoff waited despite cancelled context")
	}

	if err := backoff(context.Background(), 0); err != nil {
		t.Fatalf("zero-delay backoff: %v", err)
	}
}

func TestEnginesGet(t *testing.T) {
	prompts := NewPrompts("")
	engs := &Engines{
		Gemini: NewGemini("k", "gemini-2.5-flash", "", prompts),
		OpenAI: NewOpenAI("k", "gpt-4o-mini", prompts),
	}
	for name, want := range map[string]string{"": "gemini", "gemini": "gemini", "gpt": "openai", "openai": "openai"} {
		e, err := engs.Get(name)
		if err != nil {
			t.Fatalf("Get(%q): %v", name, err)
		}
		if e.Name() != want {
			t.Fatalf("Get(%q) = %s, want %s", name, e.Name(), want)
		}
	}
	if _, err := engs.Get("llama"); err == nil {
		t.Fatal("expected unknown engine error")
	}
	if _, err := (&Engines{}).Get("gemini"); err == nil {
		t.Fatal("expected not-configured error")
	}
}
