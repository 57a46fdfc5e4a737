package aiwriter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	reply  string
	err    error
	model  string
	prompt string
}

func (f *fakeCompleter) Complete(_ context.Context, model, prompt string) (string, error) {
	f.model = model
	f.prompt = prompt
	return f.reply, f.err
}

func TestGenerateDraftPrompt(t *testing.T) {
	fc := &fakeCompleter{reply: "```html\n<h1>Hi</h1>\n```"}
	w := New(fc, "draft-model", "edit-model", nil)

	out, err := w.GenerateDraft(context.Background(), DraftOptions{Topic: "Go generics", Length: Long, IncludeIntro: true})
	require.NoError(t, err)

	assert.Equal(t, "<h1>Hi</h1>", out)
	assert.Equal(t, "draft-model", fc.model)
	assert.Contains(t, fc.prompt, `Write a professional blog post about "Go generics".`)
	assert.Contains(t, fc.prompt, "Word count: 1500-2000 words")
	assert.Contains(t, fc.prompt, "Include an engaging introduction")
	assert.Contains(t, fc.prompt, "End with the main content")
}

func TestGenerateDraftDefaultsAndErrors(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("quota")}
	w := New(fc, "d", "e", nil)

	_, err := w.GenerateDraft(context.Background(), DraftOptions{Topic: "x", Length: "huge"})
	require.Error(t, err)
	assert.Contains(t, fc.prompt, "800-1200")

	_, err = w.GenerateDraft(context.Background(), DraftOptions{Topic: "  "})
	assert.Error(t, err)
}

func TestGenerateTitle(t *testing.T) {
	fc := &fakeCompleter{reply: "  \"Generics, Finally\"\nextra line"}
	w := New(fc, "d", "e", nil)

	title, err := w.GenerateTitle(context.Background(), "go generics")
	require.NoError(t, err)
	assert.Equal(t, "Generics, Finally", title)
	assert.Equal(t, "e", fc.model)

	fc.err = errors.New("boom")
	title, err = w.GenerateTitle(context.Background(), "go generics")
	require.NoError(t, err)
	assert.Equal(t, "go generics", title)
}

func TestImprove(t *testing.T) {
	fc := &fakeCompleter{reply: "<p>better</p>"}
	w := New(fc, "d", "e", nil)

	out, err := w.Improve(context.Background(), "<p>good</p>", "make it shorter")
	require.NoError(t, err)
	assert.Equal(t, "<p>better</p>", out)
	assert.Contains(t, fc.prompt, "<p>good</p>")
	assert.Contains(t, fc.prompt, `"make it shorter"`)

	fc.reply = "   "
	out, err = w.Improve(context.Background(), "<p>good</p>", "x")
	require.NoError(t, err)
	assert.Equal(t, "<p>good</p>", out)

	fc.err = errors.New("down")
	_, err = w.Improve(context.Background(), "<p>good</p>", "x")
	assert.Error(t, err)
}

func TestNotConfigured(t *testing.T) {
	w := New(nil, "d", "e", nil)
	assert.False(t, w.Enabled())

	_, err := w.GenerateDraft(context.Background(), DraftOptions{Topic: "x"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = w.GenerateTitle(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = w.Improve(context.Background(), "x", "y")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, "<p>a</p>", StripFences("<p>a</p>"))
	assert.Equal(t, "<p>a</p>", StripFences("```html\n<p>a</p>\n```"))
	assert.Equal(t, "<p>a</p>", StripFences("```\n<p>a</p>```"))
}
