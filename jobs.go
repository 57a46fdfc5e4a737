package bliss

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	cleanupInterval = 24 * time.Hour
	sweepInterval   = 5 * time.Minute
)

// jobs runs the app's periodic maintenance on a gocron scheduler.
type jobs struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

func newJobs(logger *zap.Logger) (*jobs, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &jobs{scheduler: s, logger: logger.Named("jobs"), ctx: ctx, cancel: cancel}, nil
}

// every schedules fn at interval. Runs never overlap; fn receives a context
// cancelled on shutdown.
func (j *jobs) every(name string, interval time.Duration, immediately bool, fn func(ctx context.Context) error) error {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if immediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}
	_, err := j.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(j.run, name, fn),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

func (j *jobs) run(name string, fn func(ctx context.Context) error) {
	start := time.Now()
	if err := fn(j.ctx); err != nil {
		j.logger.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	j.logger.Debug("job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

func (j *jobs) start() {
	j.logger.Info("starting scheduler", zap.Int("jobs", len(j.scheduler.Jobs())))
	j.scheduler.Start()
}

func (j *jobs) stop() error {
	j.cancel()
	return j.scheduler.Shutdown()
}

// scheduleJobs registers the sitemap refresh, page-view retention and
// limiter sweeps.
func (a *App) scheduleJobs(j *jobs) error {
	if a.Config.SitemapInterval > 0 {
		err := j.every("sitemap-refresh", a.Config.SitemapInterval, true, func(ctx context.Context) error {
			return a.Sitemap.WriteFiles(ctx, a.Store, a.Config.StaticDir, "job")
		})
		if err != nil {
			return err
		}
	}
	if a.Analytics != nil && a.Config.PageViewRetentionDays > 0 {
		err := j.every("page-view-cleanup", cleanupInterval, true, func(ctx context.Context) error {
			n, err := a.Analytics.CleanupOldViews(ctx, a.Config.PageViewRetentionDays)
			if err == nil && n > 0 {
				j.logger.Info("old page views deleted", zap.Int64("count", n))
			}
			return err
		})
		if err != nil {
			return err
		}
	}
	return j.every("limiter-sweep", sweepInterval, false, func(context.Context) error {
		a.loginLimiter.Sweep()
		a.writeLimiter.Sweep()
		if a.analyticsHandler != nil {
			a.analyticsHandler.Sweep()
		}
		return nil
	})
}
