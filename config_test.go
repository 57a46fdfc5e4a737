package bliss

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SITE_URL", "https://example.com/")
	t.Setenv("SESSION_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", cfg.URL)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "data/blog.db", cfg.DatabaseURL)
	assert.Equal(t, "/public/uploads", cfg.UploadsURL)
	assert.Equal(t, "blog.articles.published", cfg.NATSSubject)
	assert.Equal(t, 365, cfg.PageViewRetentionDays)
	assert.Equal(t, 5*time.Minute, cfg.ArticleCacheTTL)
	assert.True(t, cfg.AnalyticsEnabled)
	assert.Equal(t, DefaultStaticPages, cfg.StaticPages)
	assert.Equal(t, "Technology", cfg.CategoryName("tech"))
	assert.Equal(t, "gardening", cfg.CategoryName("gardening"))
}

func TestLoadConfigDotEnvAndYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SITE_NAME=From Env\nSITEMAP_INTERVAL=30m\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bliss.yaml"), []byte(`
site:
  name: From YAML
  description: Notes on things
categories:
  - slug: food
    name: Food
static_pages: ["", "/about"]
`), 0o644))
	t.Setenv("SITE_NAME", "")
	os.Unsetenv("SITE_NAME")
	t.Setenv("SITEMAP_INTERVAL", "")
	os.Unsetenv("SITEMAP_INTERVAL")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "From Env", cfg.Name)
	assert.Equal(t, "Notes on things", cfg.Description)
	assert.Equal(t, 30*time.Minute, cfg.SitemapInterval)
	assert.Equal(t, []Category{{Slug: "food", Name: "Food"}}, cfg.Categories)
	assert.Equal(t, []string{"", "/about"}, cfg.StaticPages)
}

func TestLoadConfigBadInterval(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SITEMAP_INTERVAL", "soon")

	_, err := LoadConfig()
	assert.Error(t, err)
}
