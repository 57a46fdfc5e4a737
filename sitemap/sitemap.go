// Package sitemap builds sitemap.xml and robots.txt for the public site.
// The CLI, the serverless function and the app's own routes all render
// through the same Generator.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var buildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bliss_sitemap_builds_total",
	Help: "Sitemap renders by entry point and outcome.",
}, []string{"entrypoint", "outcome"})

// Entry is a published article as the sitemap sees it.
type Entry struct {
	Slug      string
	Title     string
	Image     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Source lists published articles, newest created first.
type Source interface {
	SitemapEntries(ctx context.Context) ([]Entry, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Entry, error)

func (f SourceFunc) SitemapEntries(ctx context.Context) ([]Entry, error) { return f(ctx) }

type urlSet struct {
	XMLName    xml.Name `xml:"urlset"`
	XMLNS      string   `xml:"xmlns,attr"`
	XMLNSImage string   `xml:"xmlns:image,attr"`
	URLs       []url    `xml:"url"`
}

type url struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
	Image      *image `xml:"image:image,omitempty"`
}

type image struct {
	Loc   string `xml:"image:loc"`
	Title string `xml:"image:title"`
}

// Generator renders the sitemap and robots.txt for SiteURL.
type Generator struct {
	SiteURL     string
	StaticPages []string
	Now         func() time.Time
}

// New creates a Generator for siteURL listing staticPages.
func New(siteURL string, staticPages []string) *Generator {
	return &Generator{
		SiteURL:     strings.TrimRight(siteURL, "/"),
		StaticPages: staticPages,
		Now:         time.Now,
	}
}

func (g *Generator) loc(path string) string {
	path = strings.Trim(path, "/")
	if path == "" {
		return g.SiteURL + "/"
	}
	return g.SiteURL + "/" + path + "/"
}

func (g *Generator) absolute(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return g.SiteURL + ref
}

// Build renders the sitemap XML for entries.
func (g *Generator) Build(entries []Entry) ([]byte, error) {
	now := g.Now().UTC()
	generated := now.Format(time.RFC3339)

	set := urlSet{
		XMLNS:      "http://www.sitemaps.org/schemas/sitemap/0.9",
		XMLNSImage: "http://www.google.com/schemas/sitemap-image/1.1",
		URLs:       make([]url, 0, len(g.StaticPages)+len(entries)),
	}
	for _, page := range g.StaticPages {
		priority := "0.8"
		if strings.Trim(page, "/") == "" {
			priority = "1.0"
		}
		set.URLs = append(set.URLs, url{
			Loc:        g.loc(page),
			LastMod:    generated,
			ChangeFreq: "weekly",
			Priority:   priority,
		})
	}
	for _, e := range entries {
		lastMod := e.UpdatedAt
		if lastMod.IsZero() {
			lastMod = e.CreatedAt
		}
		if lastMod.IsZero() {
			lastMod = now
		}
		u := url{
			Loc:        g.loc("article/" + e.Slug),
			LastMod:    lastMod.UTC().Format(time.RFC3339),
			ChangeFreq: "monthly",
			Priority:   "0.7",
		}
		if e.Image != "" {
			title := e.Title
			if title == "" {
				title = "Article Image"
			}
			u.Image = &image{Loc: g.absolute(e.Image), Title: title}
		}
		set.URLs = append(set.URLs, u)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Robots renders robots.txt: everything but the admin console is crawlable.
func (g *Generator) Robots() []byte {
	return []byte("User-agent: *\nAllow: /\nDisallow: /admin/\n\n# Sitemaps\nSitemap: " + g.SiteURL + "/sitemap.xml\n")
}

// Generate fetches entries from src and renders the sitemap.
func (g *Generator) Generate(ctx context.Context, src Source) ([]byte, error) {
	entries, err := src.SitemapEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap entries: %w", err)
	}
	return g.Build(entries)
}

// WriteFiles writes sitemap.xml and robots.txt into dir.
func (g *Generator) WriteFiles(ctx context.Context, src Source, dir, entrypoint string) error {
	data, err := g.Generate(ctx, src)
	if err != nil {
		buildsTotal.WithLabelValues(entrypoint, "error").Inc()
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := writeFile(filepath.Join(dir, "sitemap.xml"), data); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "robots.txt"), g.Robots()); err != nil {
		return err
	}
	buildsTotal.WithLabelValues(entrypoint, "ok").Inc()
	return nil
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Handler serves /sitemap.xml and /robots.txt, rendering the sitemap on
// each request. Other paths get 404.
func (g *Generator) Handler(src Source, entrypoint string, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sitemap.xml":
			data, err := g.Generate(r.Context(), src)
			if err != nil {
				buildsTotal.WithLabelValues(entrypoint, "error").Inc()
				logger.Error("render sitemap", zap.String("entrypoint", entrypoint), zap.Error(err))
				http.Error(w, "sitemap unavailable", http.StatusInternalServerError)
				return
			}
			buildsTotal.WithLabelValues(entrypoint, "ok").Inc()
			w.Header().Set("Content-Type", "application/xml; charset=utf-8")
			w.Header().Set("Cache-Control", "public, max-age=3600")
			_, _ = w.Write(data)
		case "/robots.txt":
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "public, max-age=86400")
			_, _ = w.Write(g.Robots())
		default:
			http.NotFound(w, r)
		}
	})
}
