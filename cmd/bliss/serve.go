package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/eringen/bliss"
)

// ServeCmd runs the HTTP server until interrupted.
type ServeCmd struct {
	Addr string `help:"Listen address; overrides ADDR."`
}

func (s *ServeCmd) Run(g *Globals) error {
	cfg := g.Config
	if s.Addr != "" {
		cfg.Addr = s.Addr
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = bliss.MustEnv("SESSION_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := bliss.New(cfg, bliss.WithLogger(g.Logger))
	defer app.Close()
	return app.Start(ctx)
}
