// Package analytics records page views and summarises them for the admin
// dashboard. No IP addresses or visitor identifiers are stored.
package analytics

import (
	"regexp"
	"strings"
	"time"
)

// Page types recorded by the site.
const (
	PageArticle  = "article"
	PageHome     = "home"
	PageCategory = "category"
	PageStatic   = "page"
)

// PageView is a single recorded view.
type PageView struct {
	ID       string    `json:"id"`
	PageType string    `json:"page_type"`
	PageID   string    `json:"page_id,omitempty"`
	Referrer string    `json:"referrer"`
	Device   string    `json:"device"`
	Browser  string    `json:"browser"`
	ViewedAt time.Time `json:"viewed_at"`
}

// Summary is the website overview shown on the dashboard.
type Summary struct {
	TotalViews         int             `json:"total_views"`
	TotalArticles      int             `json:"total_articles"`
	AvgViewsPerArticle int             `json:"avg_views_per_article"`
	TopArticles        []TopArticle    `json:"top_articles"`
	DailyViews         []DailyView     `json:"daily_views"`
	Referrers          []DimensionStat `json:"referrers"`
	Devices            []DimensionStat `json:"devices"`
	Browsers           []DimensionStat `json:"browsers"`
}

// EmptySummary is returned when the summary cannot be computed.
func EmptySummary() Summary {
	return Summary{
		TopArticles: []TopArticle{},
		DailyViews:  []DailyView{},
		Referrers:   []DimensionStat{},
		Devices:     []DimensionStat{},
		Browsers:    []DimensionStat{},
	}
}

// MaxDailyView returns the largest day count, at least 1 so it can be used
// as a chart scale divisor.
func (s Summary) MaxDailyView() int {
	max := 1
	for _, d := range s.DailyViews {
		if d.Views > max {
			max = d.Views
		}
	}
	return max
}

// TopArticle is an article ranked by views in the period.
type TopArticle struct {
	ArticleID string `json:"article_id"`
	Title     string `json:"title"`
	Views     int    `json:"views"`
}

// DailyView counts views on one UTC day (YYYY-MM-DD).
type DailyView struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// BlogStats counts article views in the period.
type BlogStats struct {
	BlogViews int `json:"blog_views"`
}

// DimensionStat represents a dimension breakdown (referrer, device).
type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ParseUserAgent extracts browser and device class from a User-Agent string.
func ParseUserAgent(ua string) (browser, device string) {
	ua = strings.ToLower(ua)

	// More specific patterns before generic ones.
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	// iPad user agents contain "mobile"; check tablet first.
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return
}

var botMarkers = []string{
	"bot", "crawler", "spider", "crawl", "slurp", "scrape",
	"googlebot", "bingbot", "yandex", "baidu", "duckduckbot",
	"facebookexternalhit", "twitterbot", "linkedinbot",
	"ahrefsbot", "semrushbot", "mj12bot", "dotbot", "headless",
}

// IsBot checks if the User-Agent is likely a bot/crawler.
func IsBot(ua string) bool {
	ua = strings.ToLower(ua)
	for _, bot := range botMarkers {
		if strings.Contains(ua, bot) {
			return true
		}
	}
	return false
}

var referrerDomainRegex = regexp.MustCompile(`^https?://(?:www\.)?([^/:]+)`)

// CleanReferrer reduces a referrer URL to a source name. Links from siteHost
// count as internal navigation.
func CleanReferrer(ref, siteHost string) string {
	if ref == "" {
		return "Direct"
	}
	refLower := strings.ToLower(ref)
	for _, engine := range []struct{ marker, name string }{
		{"google.", "Google"},
		{"bing.", "Bing"},
		{"duckduckgo.", "DuckDuckGo"},
		{"yahoo.", "Yahoo"},
		{"github.", "GitHub"},
	} {
		if strings.Contains(refLower, engine.marker) {
			return engine.name
		}
	}
	matches := referrerDomainRegex.FindStringSubmatch(refLower)
	if len(matches) > 1 {
		if siteHost != "" && strings.TrimPrefix(siteHost, "www.") == matches[1] {
			return "Internal"
		}
		return matches[1]
	}
	return "Other"
}
