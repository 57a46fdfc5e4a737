// Package bliss is a personal blogging platform built with Go, Echo and
// templ: a public article site plus an admin console with an editor, AI
// drafting, analytics, comments, subscribers and settings.
package bliss

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/eringen/bliss/aiwriter"
	"github.com/eringen/bliss/analytics"
	"github.com/eringen/bliss/database"
	"github.com/eringen/bliss/notify"
	"github.com/eringen/bliss/sitemap"
	"github.com/eringen/bliss/storage"
	"github.com/eringen/bliss/views"
)

const shutdownTimeout = 10 * time.Second

// App is the central bliss application. It wires together the store,
// cache, handlers, middleware and templates.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Store     *Store
	Cache     *ArticleCache
	Analytics *analytics.Store
	Views     *views.Renderer
	AI        *aiwriter.Writer
	Storage   storage.Store
	Notifier  notify.Publisher
	Sitemap   *sitemap.Generator

	logger           *zap.Logger
	registry         *prometheus.Registry
	completer        aiwriter.Completer
	loginLimiter     *LoginLimiter
	writeLimiter     *WriteLimiter
	analyticsHandler *analytics.Handler
	jobs             *jobs
}

// WithLogger replaces the default production logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithCompleter sets the model client behind the AI assistant instead of
// the Gemini client built from GeminiAPIKey.
func WithCompleter(c aiwriter.Completer) Option {
	return func(a *App) { a.completer = c }
}

// WithStorage replaces the local upload directory.
func WithStorage(s storage.Store) Option {
	return func(a *App) { a.Storage = s }
}

// WithNotifier replaces the publisher built from NATSURL.
func WithNotifier(p notify.Publisher) Option {
	return func(a *App) { a.Notifier = p }
}

// New creates a bliss App. Call Init (or Start) before serving.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:   cfg,
		Echo:     e,
		Views:    views.MustNew(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Init opens the database, builds every component and registers the
// middleware and routes. It does not start listening.
func (a *App) Init(ctx context.Context) error {
	if a.Config.SessionSecret == "" {
		return errors.New("bliss: SessionSecret is required")
	}

	db, err := database.Open(a.Config.DatabaseDriver, a.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("bliss: open database: %w", err)
	}
	store, err := NewStore(db, a.logger)
	if err != nil {
		db.Close()
		return fmt.Errorf("bliss: init store: %w", err)
	}
	a.Store = store
	a.Cache = NewArticleCache(store, a.Config.ArticleCacheTTL)

	if a.Config.AdminEmail != "" && a.Config.AdminPassword != "" {
		if err := store.EnsureUser(ctx, a.Config.AdminEmail, a.Config.AdminPassword, a.Config.Author); err != nil {
			return fmt.Errorf("bliss: bootstrap admin: %w", err)
		}
	}

	if a.Config.AnalyticsEnabled {
		as, err := analytics.NewStore(db, a.logger)
		if err != nil {
			return fmt.Errorf("bliss: init analytics: %w", err)
		}
		a.Analytics = as
		a.analyticsHandler = analytics.NewHandler(as, a.Config.URL, a.logger)
	}

	if a.completer == nil && a.Config.GeminiAPIKey != "" {
		gc, err := aiwriter.NewGeminiCompleter(ctx, a.Config.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("bliss: init AI client: %w", err)
		}
		a.completer = gc
	}
	a.AI = aiwriter.New(a.completer, a.Config.AIDraftModel, a.Config.AIEditModel, a.logger.Named("ai"))

	if a.Storage == nil {
		a.Storage = storage.NewLocalStore(filepath.Join(a.Config.StaticDir, "uploads"), a.Config.UploadsURL)
	}
	if a.Notifier == nil {
		n, err := notify.New(a.Config.NATSURL, a.Config.NATSSubject, a.logger.Named("notify"))
		if err != nil {
			return fmt.Errorf("bliss: init notifier: %w", err)
		}
		a.Notifier = n
	}

	a.Sitemap = sitemap.New(a.Config.URL, a.Config.StaticPages)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)
	a.writeLimiter = NewWriteLimiter(10*time.Second, 5)

	a.setupMiddleware()
	a.setupRoutes()
	return nil
}

// Start initializes the app, starts the background jobs and serves HTTP
// until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if a.Store == nil {
		if err := a.Init(ctx); err != nil {
			return err
		}
	}

	j, err := newJobs(a.logger)
	if err != nil {
		return err
	}
	if err := a.scheduleJobs(j); err != nil {
		return err
	}
	a.jobs = j
	j.start()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", zap.String("addr", a.Config.Addr), zap.String("site", a.Config.URL))
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("shutting down")
	return a.Echo.Shutdown(shutdownCtx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Bundled assets are served under /public/ ahead of the user's static dir.
	assets, _ := fs.Sub(EmbeddedAssets, "embedded/public")
	assetHandler := echo.WrapHandler(http.StripPrefix("/public/", http.FileServer(http.FS(assets))))
	entries, _ := fs.ReadDir(assets, ".")
	for _, entry := range entries {
		e.GET("/public/"+entry.Name(), assetHandler)
	}
	e.Static("/public", a.Config.StaticDir)
	e.GET("/favicon.svg", a.handleFavicon)

	seo := echo.WrapHandler(a.Sitemap.Handler(a.Store, "app", a.logger.Named("sitemap")))
	e.GET("/sitemap.xml", seo)
	e.GET("/robots.txt", seo)
	e.GET("/feed.xml", a.handleFeed)
	if a.Config.MetricsEnabled {
		e.GET("/metrics", a.metricsHandler())
	}

	// Public site
	e.GET("/", a.handleHome)
	e.GET("/search/", a.handleSearch)
	e.GET("/category/:name/", a.handleCategory)
	for _, cat := range a.Config.Categories {
		e.GET("/"+cat.Slug+"/", a.categoryAlias(cat.Slug))
	}
	e.GET("/article/:slug/", a.handleArticle)
	e.POST("/article/:slug/like/", a.handleLike)
	e.POST("/article/:slug/comments/", a.handleComment)
	e.GET("/archive/", a.handleArchive)
	for _, name := range []string{"about", "privacy", "contact"} {
		e.GET("/"+name+"/", a.staticPage(name))
	}
	e.GET("/subscribe/", a.handleSubscribePage)
	e.POST("/subscribe/", a.handleSubscribe)

	// Admin console
	e.GET(loginPath, a.handleLoginPage)
	e.POST(loginPath, a.handleLogin)
	e.POST("/admin/logout/", handleLogout)

	admin := e.Group("/admin", RequireAdmin)
	admin.GET("/", a.handleDashboard)
	admin.GET("/editor/", a.handleEditorNew)
	admin.POST("/editor/", a.handleCreateArticle)
	admin.GET("/editor/:id/", a.handleEditorEdit)
	admin.POST("/editor/:id/", a.handleUpdateArticle)
	admin.POST("/articles/:id/toggle/", a.handleTogglePublish)
	admin.DELETE("/articles/:id/", a.handleDeleteArticle)
	admin.POST("/uploads/", a.handleUpload)
	admin.GET("/images/", a.handleImageList)
	admin.POST("/images/", a.handleImageLibraryUpload)
	admin.DELETE("/images/:filename/", a.handleImageDelete)
	admin.POST("/ai/draft/", a.handleAIDraft)
	admin.POST("/ai/title/", a.handleAITitle)
	admin.POST("/ai/improve/", a.handleAIImprove)
	admin.GET("/analytics/", a.handleAnalyticsPage)
	admin.GET("/comments/", a.handleComments)
	admin.DELETE("/comments/:id/", a.handleDeleteComment)
	admin.GET("/subscribers/", a.handleSubscribers)
	admin.GET("/settings/", a.handleSettingsPage)
	admin.POST("/settings/", a.handleSettings)

	if a.analyticsHandler != nil {
		a.analyticsHandler.RegisterRoutes(e, RequireAdmin)
	}
}

// Close stops the background jobs and releases the notifier and database.
func (a *App) Close() error {
	var errs []error
	if a.jobs != nil {
		errs = append(errs, a.jobs.stop())
	}
	if a.Notifier != nil {
		errs = append(errs, a.Notifier.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
