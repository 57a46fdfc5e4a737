package bliss

import (
	"github.com/labstack/echo/v4"

	"github.com/eringen/bliss/analytics"
)

// Page is the data every template receives. Data carries the page-specific
// payload.
type Page struct {
	Site       *SiteConfig
	Meta       PageMeta
	CSRF       string
	AdminEmail string
	Message    string
	Error      string
	JSONLD     any
	Track      *Track
	Data       any
}

// Track tells analytics.js what the page shows.
type Track struct {
	Type string
	ID   string
}

// HomeData feeds site/home.
type HomeData struct {
	Featured *Article
	Articles []Article
}

// ListData feeds site/list: category pages and search results.
type ListData struct {
	Heading   string
	Intro     string
	Searching bool
	Query     string
	Articles  []Article
}

// ArticleData feeds site/article.
type ArticleData struct {
	Article        Article
	Comments       []Comment
	Related        []Article
	Breadcrumbs    []Breadcrumb
	Share          []ShareLink
	CommentName    string
	CommentContent string
}

// Breadcrumb is one step of the article page's trail.
type Breadcrumb struct {
	Name    string
	URL     string
	Current bool
}

// ShareLink is a share-intent URL for one network.
type ShareLink struct {
	Name string
	URL  string
}

// ArchiveGroup is one month of the archive.
type ArchiveGroup struct {
	Label    string
	Articles []Article
}

// DashboardData feeds admin/dashboard.
type DashboardData struct {
	Articles      []Article
	Published     int
	Drafts        int
	Summary       analytics.Summary
	CommentsCount int
	Days          int
	DayOptions    []int
}

// EditorData feeds admin/editor.
type EditorData struct {
	Article    Article
	IsNew      bool
	Categories []Category
	AIEnabled  bool
}

// AnalyticsPageData feeds admin/analytics.
type AnalyticsPageData struct {
	Blog       AnalyticsData
	Summary    analytics.Summary
	BlogStats  analytics.BlogStats
	Days       int
	DayOptions []int
}

// SettingsData feeds admin/settings.
type SettingsData struct {
	Author Author
	Email  string
}

var dayOptions = []int{7, 30, 90}

// page builds the common template data for c.
func (a *App) page(c echo.Context, meta PageMeta, data any) Page {
	if meta.URL == "" {
		meta.URL = a.Config.URL + c.Request().URL.Path
	}
	return Page{
		Site:       &a.Config,
		Meta:       meta,
		CSRF:       CsrfToken(c),
		AdminEmail: CurrentEmail(c),
		Data:       data,
	}
}

// renderPage renders the named view with p.
func (a *App) renderPage(c echo.Context, code int, name string, p Page) error {
	return RenderStatus(c, code, a.Views.Page(name, p))
}
