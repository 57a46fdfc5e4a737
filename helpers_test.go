package bliss

import (
	"strings"
	"testing"
	"time"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"  Go 1.24: What's New?  ", "go-1-24-what-s-new"},
		{"already-a-slug", "already-a-slug"},
		{"Crème brûlée", "cr-me-br-l-e"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.input); got != tt.expected {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base     string
		segments []string
		expected string
	}{
		{"https://example.com", nil, "https://example.com/"},
		{"https://example.com", []string{"article", "hello"}, "https://example.com/article/hello/"},
		{"https://example.com/blog", []string{"tech"}, "https://example.com/blog/tech/"},
		{"https://example.com/", []string{"about/"}, "https://example.com/about/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segments...); got != tt.expected {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segments, got, tt.expected)
		}
	}
}

func TestShareLinks(t *testing.T) {
	links := ShareLinks("https://example.com/article/tea-time/", "Tea & Time")
	byName := make(map[string]string, len(links))
	for _, l := range links {
		byName[l.Name] = l.URL
	}

	tests := []struct {
		name     string
		expected string
	}{
		{"X", "https://twitter.com/intent/tweet?url=https%3A%2F%2Fexample.com%2Farticle%2Ftea-time%2F&text=Tea%20%26%20Time"},
		{"Facebook", "https://www.facebook.com/sharer/sharer.php?u=https%3A%2F%2Fexample.com%2Farticle%2Ftea-time%2F"},
		{"Email", "mailto:?subject=Tea%20%26%20Time&body=https%3A%2F%2Fexample.com%2Farticle%2Ftea-time%2F"},
	}
	for _, tt := range tests {
		if got := byName[tt.name]; got != tt.expected {
			t.Errorf("ShareLinks %s = %q, want %q", tt.name, got, tt.expected)
		}
	}
	for _, name := range []string{"LinkedIn", "Reddit"} {
		if byName[name] == "" {
			t.Errorf("ShareLinks missing %s", name)
		}
	}
}

func TestArticleBreadcrumbs(t *testing.T) {
	cfg := &SiteConfig{Categories: []Category{{Slug: "tech", Name: "Technology"}}}
	got := articleBreadcrumbs(cfg, Article{Slug: "go-tips", Title: "Go Tips", Category: "tech"})

	want := []Breadcrumb{
		{Name: "Home", URL: "/"},
		{Name: "Technology", URL: "/category/tech/"},
		{Name: "Go Tips", URL: "/article/go-tips/", Current: true},
	}
	if len(got) != len(want) {
		t.Fatalf("articleBreadcrumbs returned %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("crumb %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPrepareArticle(t *testing.T) {
	a := Article{
		Title:   "  Spaced  ",
		Content: "<p>" + strings.Repeat("word ", 250) + "</p>",
	}
	prepareArticle(&a)

	if a.Title != "Spaced" {
		t.Errorf("Title = %q, want trimmed", a.Title)
	}
	if a.ReadTime != "2 min read" {
		t.Errorf("ReadTime = %q, want %q", a.ReadTime, "2 min read")
	}
	if !strings.HasSuffix(a.Excerpt, "...") || len([]rune(a.Excerpt)) > excerptLength+3 {
		t.Errorf("Excerpt = %q, want a truncated excerpt", a.Excerpt)
	}
	if a.Image != defaultImage {
		t.Errorf("Image = %q, want default image", a.Image)
	}

	b := Article{Title: "Pic", Content: "<p>short</p>", Image: "/public/uploads/pic.jpg"}
	prepareArticle(&b)
	if b.Image != "/public/uploads/pic.jpg" || b.Excerpt != "short" {
		t.Errorf("got image %q excerpt %q", b.Image, b.Excerpt)
	}
}

func TestGroupByMonth(t *testing.T) {
	at := func(y int, m time.Month, d int) Article {
		return Article{PublishedAt: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
	}
	groups := groupByMonth([]Article{at(2024, 3, 20), at(2024, 3, 2), at(2024, 2, 10), at(2023, 3, 1)})

	want := []struct {
		label string
		n     int
	}{
		{"March 2024", 2},
		{"February 2024", 1},
		{"March 2023", 1},
	}
	if len(groups) != len(want) {
		t.Fatalf("got %d groups, want %d", len(groups), len(want))
	}
	for i, w := range want {
		if groups[i].Label != w.label || len(groups[i].Articles) != w.n {
			t.Errorf("group %d = %q (%d), want %q (%d)", i, groups[i].Label, len(groups[i].Articles), w.label, w.n)
		}
	}
}

func TestArticleJSONLD(t *testing.T) {
	cfg := SiteConfig{Name: "Bliss", URL: "https://example.com", Author: "Site Owner"}
	a := Article{
		Slug:        "hello",
		Title:       "Hello",
		Category:    "Culture",
		PublishedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Author:      &Author{Name: "Ada"},
	}
	data := ArticleJSONLD(a, cfg)

	if data["url"] != "https://example.com/article/hello/" {
		t.Errorf("url = %v", data["url"])
	}
	if data["datePublished"] != "2024-01-02T03:04:05Z" {
		t.Errorf("datePublished = %v", data["datePublished"])
	}
	if author, _ := data["author"].(map[string]string); author["name"] != "Ada" {
		t.Errorf("author = %v, want Ada", data["author"])
	}
	if _, ok := data["image"]; ok {
		t.Error("image should be omitted when empty")
	}

	site := WebsiteJSONLD(cfg)
	action, _ := site["potentialAction"].(map[string]any)
	if action["target"] != "https://example.com/search/?q={search_term_string}" {
		t.Errorf("search target = %v", action["target"])
	}
}
