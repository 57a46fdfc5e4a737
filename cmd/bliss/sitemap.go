package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eringen/bliss"
	"github.com/eringen/bliss/database"
	"github.com/eringen/bliss/sitemap"
)

// SitemapCmd renders sitemap.xml and robots.txt at build time.
type SitemapCmd struct {
	Out     string `short:"o" help:"Output directory." default:"public"`
	SiteURL string `name:"site-url" help:"Canonical site URL; overrides SITE_URL."`
}

func (s *SitemapCmd) Run(g *Globals) error {
	cfg := g.Config
	if s.SiteURL != "" {
		cfg.URL = s.SiteURL
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	store, err := bliss.NewStore(db, g.Logger)
	if err != nil {
		db.Close()
		return err
	}
	defer store.Close()

	gen := sitemap.New(cfg.URL, cfg.StaticPages)
	if err := gen.WriteFiles(context.Background(), store, s.Out, "cli"); err != nil {
		return err
	}
	g.Logger.Info("sitemap written", zap.String("dir", s.Out), zap.String("site", cfg.URL))
	return nil
}
