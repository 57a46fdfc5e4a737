package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, "# About\n\nHello **world** and [docs](https://example.com).\n\n| a | b |\n|---|---|\n| 1 | 2 |\n"))
	out := buf.String()

	assert.Contains(t, out, `<h1 id="about">About</h1>`)
	assert.Contains(t, out, "<strong>world</strong>")
	assert.Contains(t, out, `<a href="https://example.com">docs</a>`)
	assert.Contains(t, out, "<table>")
}

func TestRenderMarkdownOmitsRawHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, "<script>alert(1)</script>\n\ntext"))
	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), "<p>text</p>")
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown("*hi*").Render(context.Background(), &buf))
	assert.Equal(t, "<p><em>hi</em></p>\n", buf.String())
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Privacy Policy", Title("\n# Privacy Policy\n\nbody"))
	assert.Equal(t, "", Title("## Not a title"))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"<p>Hello <strong>world</strong></p>", "Hello world"},
		{"<h2>One</h2><p>Two</p>", "One Two"},
		{"<p>a<br>b</p>", "a b"},
		{"<p>x</p><script>var y = 1;</script><p>z</p>", "x z"},
		{"plain   text\n\nhere", "plain text here"},
		{"<p>Fish &amp; chips</p>", "Fish & chips"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, PlainText(tt.input), "PlainText(%q)", tt.input)
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "Short text", Excerpt("<p>Short text</p>", 155))

	long := "<p>" + strings.Repeat("word ", 60) + "</p>"
	got := Excerpt(long, 155)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len([]rune(got)), 158)
	assert.True(t, strings.HasPrefix(got, "word word"))
}

func TestReadTime(t *testing.T) {
	assert.Equal(t, "1 min read", ReadTime(""))
	assert.Equal(t, "1 min read", ReadTime("<p>"+strings.Repeat("a ", 200)+"</p>"))
	assert.Equal(t, "2 min read", ReadTime("<p>"+strings.Repeat("a ", 201)+"</p>"))
	assert.Equal(t, "5 min read", ReadTime(strings.Repeat("<p>one two three four five</p>", 180)))
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/a.jpg", "https://example.com/a.jpg"},
		{"/public/uploads/a.jpg", "/public/uploads/a.jpg"},
		{"#top", "#top"},
		{"mailto:me@example.com", "mailto:me@example.com"},
		{"javascript:alert(1)", ""},
		{"relative/path", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SafeURL(tt.input), "SafeURL(%q)", tt.input)
	}
}
