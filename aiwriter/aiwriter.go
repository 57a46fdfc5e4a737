// Package aiwriter drafts and edits article HTML with a hosted LLM.
package aiwriter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ErrNotConfigured is returned when no API key was supplied.
var ErrNotConfigured = errors.New("AI writing is not configured: set GEMINI_API_KEY")

// Completer sends a free-text prompt to model and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// GeminiCompleter calls the Gemini API through the genai SDK.
type GeminiCompleter struct {
	client *genai.Client
}

// NewGeminiCompleter creates a completer authenticated with apiKey.
func NewGeminiCompleter(ctx context.Context, apiKey string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiCompleter{client: client}, nil
}

// Complete implements Completer.
func (g *GeminiCompleter) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// Tone is the voice of a generated draft.
type Tone string

const (
	Professional Tone = "professional"
	Casual       Tone = "casual"
	Technical    Tone = "technical"
	Creative     Tone = "creative"
)

// Length selects the target word count of a draft.
type Length string

const (
	Short  Length = "short"
	Medium Length = "medium"
	Long   Length = "long"
)

var wordCounts = map[Length]string{
	Short:  "300-500",
	Medium: "800-1200",
	Long:   "1500-2000",
}

// DraftOptions describes the article to draft.
type DraftOptions struct {
	Topic             string
	Tone              Tone
	Length            Length
	IncludeIntro      bool
	IncludeConclusion bool
}

// Writer builds prompts and post-processes model output.
type Writer struct {
	completer  Completer
	draftModel string
	editModel  string
	logger     *zap.Logger
}

// New creates a Writer. A nil completer yields a Writer whose calls all
// return ErrNotConfigured.
func New(c Completer, draftModel, editModel string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{completer: c, draftModel: draftModel, editModel: editModel, logger: logger}
}

// Enabled reports whether a completer is configured.
func (w *Writer) Enabled() bool {
	return w != nil && w.completer != nil
}

// GenerateDraft writes a complete article as HTML.
func (w *Writer) GenerateDraft(ctx context.Context, opts DraftOptions) (string, error) {
	if !w.Enabled() {
		return "", ErrNotConfigured
	}
	topic := strings.TrimSpace(opts.Topic)
	if topic == "" {
		return "", errors.New("topic is required")
	}
	tone := opts.Tone
	if tone == "" {
		tone = Professional
	}
	words, ok := wordCounts[opts.Length]
	if !ok {
		words = wordCounts[Medium]
	}
	intro := "Start directly with the main content"
	if opts.IncludeIntro {
		intro = "Include an engaging introduction"
	}
	conclusion := "End with the main content"
	if opts.IncludeConclusion {
		conclusion = "Include a thoughtful conclusion"
	}

	prompt := fmt.Sprintf(`Write a %s blog post about %q.

Requirements:
- Word count: %s words
- %s
- %s
- Use clear semantic headers (h1, h2, h3) to structure the content effectively
- Make it informative and engaging
- Format the output in clean HTML with proper tags (h1, h2, h3, p, ul, li, strong, em)
- Focus on providing valuable insights and actionable information

Write the blog post now:`, tone, topic, words, intro, conclusion)

	out, err := w.completer.Complete(ctx, w.draftModel, prompt)
	if err != nil {
		w.logger.Error("generate draft", zap.String("topic", topic), zap.Error(err))
		return "", fmt.Errorf("generate content: %w", err)
	}
	return StripFences(out), nil
}

// GenerateTitle suggests a headline for topic. Model failures fall back to
// the topic itself.
func (w *Writer) GenerateTitle(ctx context.Context, topic string) (string, error) {
	if !w.Enabled() {
		return "", ErrNotConfigured
	}
	topic = strings.TrimSpace(topic)
	prompt := fmt.Sprintf(`Generate a compelling, SEO-friendly blog post title for the topic: %q.

Requirements:
- Make it catchy and engaging
- Keep it under 60 characters
- Make it click-worthy but not clickbait
- Return ONLY the title, nothing else

Title:`, topic)

	out, err := w.completer.Complete(ctx, w.editModel, prompt)
	if err != nil {
		w.logger.Warn("generate title", zap.String("topic", topic), zap.Error(err))
		return topic, nil
	}
	title := cleanTitle(out)
	if title == "" {
		return topic, nil
	}
	return title, nil
}

// Improve rewrites content following instruction. An empty reply returns
// content unchanged.
func (w *Writer) Improve(ctx context.Context, content, instruction string) (string, error) {
	if !w.Enabled() {
		return "", ErrNotConfigured
	}
	prompt := fmt.Sprintf(`You are a professional blog editor. Here is a blog post:

%s

Please improve it based on this instruction: %q

Return the improved version in HTML format, maintaining the same structure but with the requested improvements.`, content, instruction)

	out, err := w.completer.Complete(ctx, w.editModel, prompt)
	if err != nil {
		w.logger.Error("improve content", zap.Error(err))
		return "", fmt.Errorf("improve content: %w", err)
	}
	out = StripFences(out)
	if strings.TrimSpace(out) == "" {
		return content, nil
	}
	return out, nil
}

// StripFences removes a Markdown code fence wrapped around the reply.
func StripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if nl := strings.IndexByte(t, '\n'); nl >= 0 {
		t = t[nl+1:]
	} else {
		t = strings.TrimPrefix(t, "```")
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, "Title:")
	s = strings.Trim(strings.TrimSpace(s), `"*#`)
	return strings.TrimSpace(s)
}
