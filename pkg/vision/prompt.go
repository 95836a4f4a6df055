package vision

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const defaultExtractPrompt = `You read a photo of a handwritten arithmetic expression.
Extract what is written. Return STRICT JSON only:
{
  "expression": string,   // best-guess full expression, "" if unclear
  "numbers":    [string], // numeric tokens in reading order, as written
  "operators":  [string]  // operator tokens (+ - * / x ÷) in reading order
}
Only digits, the four basic operators, decimal points and parentheses occur.
Do not solve the expression. Do not invent tokens you cannot see.
If the image contains no arithmetic at all, return {"expression":"","numbers":[],"operators":[]}.
Any text outside the JSON object is an error.`

const defaultEnhancePrompt = `Clean up this photo of handwritten arithmetic for recognition:
increase contrast between ink and paper, remove shadows and background noise,
keep every written stroke exactly as it is. Return only the processed image.
Do not add, remove or reinterpret any symbol.`

// Prompts serves the system prompts for the two remote calls. Defaults are
// compiled in; a prompt directory with extract.system.txt / enhance.system.txt
// overrides them and can be hot-reloaded while the service runs.
type Prompts struct {
	dir string

	mu      sync.RWMutex
	extract string
	enhance string
}

// NewPrompts builds a Prompts, reading overrides from dir when it is
// non-empty. Missing or empty files keep the defaults.
func NewPrompts(dir string) *Prompts {
	p := &Prompts{dir: dir, extract: defaultExtractPrompt, enhance: defaultEnhancePrompt}
	p.reload()
	return p
}

func (p *Prompts) Extract() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.extract
}

func (p *Prompts) Enhance() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.enhance
}

func (p *Prompts) reload() {
	if p.dir == "" {
		return
	}
	ext := readPromptFile(filepath.Join(p.dir, "extract.system.txt"), defaultExtractPrompt)
	enh := readPromptFile(filepath.Join(p.dir, "enhance.system.txt"), defaultEnhancePrompt)
	p.mu.Lock()
	p.extract = ext
	p.enhance = enh
	p.mu.Unlock()
}

func readPromptFile(path, fallback string) string {
	b, err := os.ReadFile(path)
	if err != nil || len(strings.TrimSpace(string(b))) == 0 {
		return fallback
	}
	return strings.TrimSpace(string(b))
}

// Watch re-reads the prompt directory whenever a file in it changes. It
// returns a stop function; with no directory configured it is a no-op.
func (p *Prompts) Watch() (func(), error) {
	if p.dir == "" {
		return func() {}, nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(p.dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					log.Printf("prompts: reloading after %s on %s", ev.Op, ev.Name)
					p.reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("prompts: watcher error: %v", err)
			}
		}
	}()
	return func() { _ = w.Close() }, nil
}
