package bliss

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Category is a top-level article section with its own page.
type Category struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// SiteConfig holds all configuration for a bliss site.
type SiteConfig struct {
	Name        string // Site name (default "Bliss")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD

	Env      string // "development" or "production"
	LogLevel string // zap level (default "info")
	Addr     string // Listen address (default ":3000")

	DatabaseDriver string // "sqlite" (default) or "postgres"
	DatabaseURL    string // SQLite path or Postgres DSN (default "data/blog.db")

	AdminEmail    string // Bootstraps the first admin account when set
	AdminPassword string
	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	StaticDir  string // User-owned static assets and uploads (default "public")
	UploadsURL string // Public URL prefix of uploaded images (default "/public/uploads")

	GeminiAPIKey string // Empty disables AI drafting
	AIDraftModel string
	AIEditModel  string

	NATSURL     string // Empty disables publish notifications
	NATSSubject string

	AnalyticsEnabled      bool
	MetricsEnabled        bool
	PageViewRetentionDays int
	SitemapInterval       time.Duration // Sitemap refresh period; zero disables the job
	ArticleCacheTTL       time.Duration // Article cache TTL (default 5min)

	Categories  []Category
	StaticPages []string // Paths listed in the sitemap besides articles
}

// DefaultStaticPages are the non-article pages listed in the sitemap.
var DefaultStaticPages = []string{"", "/about", "/culture", "/tech", "/archive", "/subscribe", "/privacy", "/contact"}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Bliss"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Env == "" {
		c.Env = "production"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = "sqlite"
	}
	if c.DatabaseURL == "" && c.DatabaseDriver == "sqlite" {
		c.DatabaseURL = "data/blog.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.UploadsURL == "" {
		c.UploadsURL = "/public/uploads"
	}
	if c.AIDraftModel == "" {
		c.AIDraftModel = "gemini-2.5-flash"
	}
	if c.AIEditModel == "" {
		c.AIEditModel = "gemini-2.0-flash-exp"
	}
	if c.NATSSubject == "" {
		c.NATSSubject = "blog.articles.published"
	}
	if c.PageViewRetentionDays == 0 {
		c.PageViewRetentionDays = 365
	}
	if c.ArticleCacheTTL == 0 {
		c.ArticleCacheTTL = 5 * time.Minute
	}
	if len(c.Categories) == 0 {
		c.Categories = []Category{
			{Slug: "culture", Name: "Culture", Description: "Essays on art, books, film and the way we live."},
			{Slug: "tech", Name: "Technology", Description: "Software, tools and the ideas behind them."},
		}
	}
	if len(c.StaticPages) == 0 {
		c.StaticPages = DefaultStaticPages
	}
}

// CategoryBySlug returns the configured category for slug.
func (c *SiteConfig) CategoryBySlug(slug string) (Category, bool) {
	for _, cat := range c.Categories {
		if strings.EqualFold(cat.Slug, slug) || strings.EqualFold(cat.Name, slug) {
			return cat, true
		}
	}
	return Category{}, false
}

// CategoryName returns the display name for a category slug, or the slug
// itself when it is not configured.
func (c *SiteConfig) CategoryName(slug string) string {
	for _, cat := range c.Categories {
		if strings.EqualFold(cat.Slug, slug) {
			return cat.Name
		}
	}
	return slug
}

// fileConfig is the optional YAML overlay.
type fileConfig struct {
	Site struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Author      string `yaml:"author"`
	} `yaml:"site"`
	Categories  []Category `yaml:"categories"`
	StaticPages []string   `yaml:"static_pages"`
}

// LoadConfig builds a SiteConfig from .env.local, .env, the process
// environment and the optional YAML file named by BLISS_CONFIG
// (default "bliss.yaml"). Missing files are skipped.
func LoadConfig() (SiteConfig, error) {
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return SiteConfig{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := SiteConfig{
		Name:                  os.Getenv("SITE_NAME"),
		URL:                   os.Getenv("SITE_URL"),
		Description:           os.Getenv("SITE_DESCRIPTION"),
		Author:                os.Getenv("SITE_AUTHOR"),
		Env:                   os.Getenv("APP_ENV"),
		LogLevel:              os.Getenv("LOG_LEVEL"),
		Addr:                  os.Getenv("ADDR"),
		DatabaseDriver:        os.Getenv("DATABASE_DRIVER"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		AdminEmail:            os.Getenv("ADMIN_EMAIL"),
		AdminPassword:         os.Getenv("ADMIN_PASSWORD"),
		SessionSecret:         os.Getenv("SESSION_SECRET"),
		CookieSecure:          envBool("COOKIE_SECURE", false),
		StaticDir:             os.Getenv("STATIC_DIR"),
		UploadsURL:            os.Getenv("UPLOADS_URL"),
		GeminiAPIKey:          os.Getenv("GEMINI_API_KEY"),
		AIDraftModel:          os.Getenv("AI_DRAFT_MODEL"),
		AIEditModel:           os.Getenv("AI_EDIT_MODEL"),
		NATSURL:               os.Getenv("NATS_URL"),
		NATSSubject:           os.Getenv("NATS_SUBJECT"),
		AnalyticsEnabled:      envBool("ANALYTICS_ENABLED", true),
		MetricsEnabled:        envBool("METRICS_ENABLED", false),
		PageViewRetentionDays: envInt("PAGE_VIEW_RETENTION_DAYS", 0),
	}

	if v := os.Getenv("SITEMAP_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("parse SITEMAP_INTERVAL: %w", err)
		}
		cfg.SitemapInterval = d
	}

	if err := cfg.applyFile(EnvOr("BLISS_CONFIG", "bliss.yaml")); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if c.Name == "" {
		c.Name = fc.Site.Name
	}
	if c.Description == "" {
		c.Description = fc.Site.Description
	}
	if c.Author == "" {
		c.Author = fc.Site.Author
	}
	if len(fc.Categories) > 0 {
		c.Categories = fc.Categories
	}
	if len(fc.StaticPages) > 0 {
		c.StaticPages = fc.StaticPages
	}
	return nil
}

// Option configures additional App behavior.
type Option func(*App)

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("bliss: required environment variable %s is not set", key)
	}
	return v
}

func envBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
