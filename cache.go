package bliss

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ArticleCache is an in-memory cache of published articles with a TTL.
// The store query already filters by publish time, but cached entries can
// outlive that check, so visibility is evaluated again on every read.
type ArticleCache struct {
	mu       sync.RWMutex
	articles []Article
	fetched  time.Time
	ttl      time.Duration
	store    *Store
	now      func() time.Time
}

// NewArticleCache creates an ArticleCache backed by the given Store.
func NewArticleCache(s *Store, ttl time.Duration) *ArticleCache {
	return &ArticleCache{store: s, ttl: ttl, now: time.Now}
}

func (c *ArticleCache) valid() bool {
	return c.articles != nil && c.now().Sub(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ArticleCache) Invalidate() {
	c.mu.Lock()
	c.articles = nil
	c.mu.Unlock()
}

// ensureLoaded returns the cached articles after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *ArticleCache) ensureLoaded(ctx context.Context) []Article {
	c.mu.RLock()
	if c.valid() {
		articles := c.articles
		c.mu.RUnlock()
		return articles
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid() {
		articles, err := c.store.publicArticles(ctx)
		if err != nil {
			// Nothing is cached, so the next read retries the store.
			c.store.logger.Error("load article cache", zap.Error(err))
			return []Article{}
		}
		c.articles = articles
		c.fetched = c.now()
	}
	return c.articles
}

func (c *ArticleCache) visible(ctx context.Context, keep func(Article) bool) []Article {
	now := c.now()
	out := []Article{}
	for _, a := range c.ensureLoaded(ctx) {
		if a.IsPublic(now) && (keep == nil || keep(a)) {
			out = append(out, a)
		}
	}
	return out
}

// Articles returns public articles, newest first.
func (c *ArticleCache) Articles(ctx context.Context) []Article {
	return c.visible(ctx, nil)
}

// ByCategory returns public articles in category.
func (c *ArticleCache) ByCategory(ctx context.Context, category string) []Article {
	category = strings.ToLower(strings.TrimSpace(category))
	return c.visible(ctx, func(a Article) bool {
		return strings.ToLower(a.Category) == category
	})
}

// Search returns public articles whose title or category contains query,
// ignoring case. A blank query matches nothing.
func (c *ArticleCache) Search(ctx context.Context, query string) []Article {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []Article{}
	}
	return c.visible(ctx, func(a Article) bool {
		return strings.Contains(strings.ToLower(a.Title), query) ||
			strings.Contains(strings.ToLower(a.Category), query)
	})
}
