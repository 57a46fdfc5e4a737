// Command sitemapfn serves sitemap.xml and robots.txt as a standalone
// function, reading published articles straight from the database.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/bliss"
	"github.com/eringen/bliss/database"
	"github.com/eringen/bliss/sitemap"
)

func main() {
	logger, err := bliss.NewLogger(bliss.EnvOr("APP_ENV", "production"), bliss.EnvOr("LOG_LEVEL", "info"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	siteURL := strings.TrimRight(bliss.MustEnv("SITE_URL"), "/")
	db, err := database.Open(bliss.EnvOr("DATABASE_DRIVER", "postgres"), bliss.MustEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	store, err := bliss.NewStore(db, logger)
	if err != nil {
		logger.Fatal("init store", zap.Error(err))
	}
	defer store.Close()

	gen := sitemap.New(siteURL, bliss.DefaultStaticPages)
	srv := &http.Server{
		Addr:              ":" + bliss.EnvOr("PORT", "8080"),
		Handler:           gen.Handler(store, "function", logger.Named("sitemap")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("sitemap function listening", zap.String("addr", srv.Addr), zap.String("site", siteURL))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("serve", zap.Error(err))
	}
}
