package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/bliss/database"
)

var viewsTracked = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bliss_page_views_tracked_total",
	Help: "Page views recorded, by page type.",
}, []string{"page_type"})

// Store persists page views in the shared database.
type Store struct {
	db     *database.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewStore wraps db and ensures the page_views table exists.
func NewStore(db *database.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{db: db, logger: logger.Named("analytics"), now: time.Now}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure analytics schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS page_views (
    id TEXT PRIMARY KEY,
    page_type TEXT NOT NULL,
    page_id TEXT,
    referrer TEXT NOT NULL DEFAULT '',
    device TEXT NOT NULL DEFAULT '',
    browser TEXT NOT NULL DEFAULT '',
    viewed_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_page_views_viewed_at ON page_views(viewed_at);
CREATE INDEX IF NOT EXISTS idx_page_views_page ON page_views(page_type, page_id);
`)
	return err
}

func (s *Store) since(days int) string {
	return database.Timestamp(s.now().AddDate(0, 0, -days))
}

// TrackPageView records a view of pageType, optionally for pageID.
func (s *Store) TrackPageView(ctx context.Context, pageType, pageID string) bool {
	return s.Record(ctx, PageView{PageType: pageType, PageID: pageID})
}

// Record stores v, filling in its ID and timestamp.
func (s *Store) Record(ctx context.Context, v PageView) bool {
	v.ID = uuid.NewString()
	v.ViewedAt = s.now()
	var pageID any
	if v.PageID != "" {
		pageID = v.PageID
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO page_views (id, page_type, page_id, referrer, device, browser, viewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		v.ID, v.PageType, pageID, v.Referrer, v.Device, v.Browser, database.Timestamp(v.ViewedAt))
	if err != nil {
		s.logger.Error("track page view", zap.String("page_type", v.PageType), zap.Error(err))
		return false
	}
	viewsTracked.WithLabelValues(v.PageType).Inc()
	return true
}

// GetWebsiteAnalytics summarises the last days days. The queries run in
// parallel; any failure yields an empty summary.
func (s *Store) GetWebsiteAnalytics(ctx context.Context, days int) Summary {
	var (
		sum      = EmptySummary()
		articles int
	)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.db.QueryRowContext(gctx, s.db.Rebind(`SELECT COUNT(*) FROM page_views WHERE viewed_at >= ?`), s.since(days)).
			Scan(&sum.TotalViews)
	})
	g.Go(func() error {
		return s.db.QueryRowContext(gctx, s.db.Rebind(`SELECT COUNT(DISTINCT page_id) FROM page_views
			WHERE page_type = ? AND page_id IS NOT NULL AND viewed_at >= ?`), PageArticle, s.since(days)).
			Scan(&articles)
	})
	g.Go(func() error {
		daily, err := s.dailyViews(gctx, days)
		sum.DailyViews = daily
		return err
	})
	g.Go(func() error {
		top, err := s.topArticles(gctx, 5, days)
		sum.TopArticles = top
		return err
	})
	g.Go(func() error {
		refs, err := s.dimension(gctx, "referrer", days)
		sum.Referrers = refs
		return err
	})
	g.Go(func() error {
		devices, err := s.dimension(gctx, "device", days)
		sum.Devices = devices
		return err
	})
	g.Go(func() error {
		browsers, err := s.dimension(gctx, "browser", days)
		sum.Browsers = browsers
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("fetch website analytics", zap.Int("days", days), zap.Error(err))
		return EmptySummary()
	}

	sum.TotalArticles = articles
	if articles > 0 {
		sum.AvgViewsPerArticle = int(math.Round(float64(sum.TotalViews) / float64(articles)))
	}
	return sum
}

// GetDailyViews returns exactly days entries, oldest first, ending today
// (UTC). Days without views have a zero count.
func (s *Store) GetDailyViews(ctx context.Context, days int) []DailyView {
	daily, err := s.dailyViews(ctx, days)
	if err != nil {
		s.logger.Error("fetch daily views", zap.Int("days", days), zap.Error(err))
		return []DailyView{}
	}
	return daily
}

func (s *Store) dailyViews(ctx context.Context, days int) ([]DailyView, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT SUBSTR(viewed_at, 1, 10) AS day, COUNT(*)
		FROM page_views WHERE viewed_at >= ? GROUP BY SUBSTR(viewed_at, 1, 10)`), s.since(days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return fillDays(counts, s.now(), days), nil
}

func fillDays(counts map[string]int, now time.Time, days int) []DailyView {
	if days <= 0 {
		return []DailyView{}
	}
	out := make([]DailyView, 0, days)
	today := now.UTC()
	for i := days - 1; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		out = append(out, DailyView{Date: date, Views: counts[date]})
	}
	return out
}

// GetTopArticles ranks articles by views over the last days days.
func (s *Store) GetTopArticles(ctx context.Context, limit, days int) []TopArticle {
	top, err := s.topArticles(ctx, limit, days)
	if err != nil {
		s.logger.Error("fetch top articles", zap.Error(err))
		return []TopArticle{}
	}
	return top
}

func (s *Store) topArticles(ctx context.Context, limit, days int) ([]TopArticle, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT pv.page_id, a.title, COUNT(*) AS views
		FROM page_views pv JOIN articles a ON a.id = pv.page_id
		WHERE pv.page_type = ? AND pv.viewed_at >= ?
		GROUP BY pv.page_id, a.title
		ORDER BY views DESC, a.title ASC
		LIMIT ?`), PageArticle, s.since(days), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	top := []TopArticle{}
	for rows.Next() {
		var t TopArticle
		if err := rows.Scan(&t.ArticleID, &t.Title, &t.Views); err != nil {
			return nil, err
		}
		top = append(top, t)
	}
	return top, rows.Err()
}

// column is one of a fixed set of names, never user input.
func (s *Store) dimension(ctx context.Context, column string, days int) ([]DimensionStat, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT `+column+`, COUNT(*) AS n FROM page_views
		WHERE viewed_at >= ? AND `+column+` <> ''
		GROUP BY `+column+` ORDER BY n DESC, `+column+` ASC LIMIT 10`), s.since(days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		stats = append(stats, d)
	}
	return stats, rows.Err()
}

// GetBlogAnalytics counts article views over the last days days.
func (s *Store) GetBlogAnalytics(ctx context.Context, days int) BlogStats {
	var n int
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM page_views WHERE page_type = ? AND viewed_at >= ?`),
		PageArticle, s.since(days)).Scan(&n)
	if err != nil {
		s.logger.Error("fetch blog analytics", zap.Error(err))
		return BlogStats{}
	}
	return BlogStats{BlogViews: n}
}

// CleanupOldViews deletes views older than retentionDays and returns how
// many were removed.
func (s *Store) CleanupOldViews(ctx context.Context, retentionDays int) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM page_views WHERE viewed_at < ?`), s.since(retentionDays))
	if err != nil {
		return 0, fmt.Errorf("cleanup page views: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
