package bliss

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/bliss/analytics"
	"github.com/eringen/bliss/markdown"
)

const (
	maxCommentName    = 80
	maxCommentContent = 2000
)

func (a *App) handleHome(c echo.Context) error {
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		return a.renderSearch(c, q)
	}
	articles := a.Cache.Articles(c.Request().Context())
	data := HomeData{Articles: articles}
	if len(articles) > 0 {
		data.Featured = &articles[0]
		data.Articles = articles[1:]
	}
	p := a.page(c, PageMeta{URL: BuildURL(a.Config.URL)}, data)
	p.JSONLD = WebsiteJSONLD(a.Config)
	p.Track = &Track{Type: analytics.PageHome}
	return a.renderPage(c, http.StatusOK, "site/home", p)
}

func (a *App) handleSearch(c echo.Context) error {
	return a.renderSearch(c, strings.TrimSpace(c.QueryParam("q")))
}

func (a *App) renderSearch(c echo.Context, q string) error {
	data := ListData{
		Heading:   "Search",
		Searching: true,
		Query:     q,
		Articles:  a.Cache.Search(c.Request().Context(), q),
	}
	meta := PageMeta{Title: "Search", URL: BuildURL(a.Config.URL, "search")}
	if q != "" {
		meta.Title = "Search: " + q
	}
	return a.renderPage(c, http.StatusOK, "site/list", a.page(c, meta, data))
}

func (a *App) handleCategory(c echo.Context) error {
	return a.renderCategory(c, c.Param("name"))
}

func (a *App) categoryAlias(slug string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return a.renderCategory(c, slug)
	}
}

func (a *App) renderCategory(c echo.Context, slug string) error {
	cat, ok := a.Config.CategoryBySlug(slug)
	if !ok {
		cat = Category{Slug: slug, Name: slug}
	}
	articles := a.Cache.ByCategory(c.Request().Context(), cat.Name)
	if !ok && len(articles) == 0 {
		return echo.ErrNotFound
	}
	p := a.page(c, PageMeta{Title: cat.Name, Description: cat.Description}, ListData{
		Heading:  cat.Name,
		Intro:    cat.Description,
		Articles: articles,
	})
	p.Track = &Track{Type: analytics.PageCategory, ID: cat.Slug}
	return a.renderPage(c, http.StatusOK, "site/list", p)
}

func (a *App) handleArticle(c echo.Context) error {
	ctx := c.Request().Context()
	article, err := a.Store.GetArticleBySlug(ctx, c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}

	if a.Store.IncrementViews(ctx, article.ID) {
		article.Views++
	}
	if a.analyticsHandler != nil {
		a.analyticsHandler.TrackRequest(c, analytics.PageArticle, article.ID)
	}
	return a.renderArticle(c, http.StatusOK, article, ArticleData{}, "", "")
}

func (a *App) renderArticle(c echo.Context, code int, article Article, data ArticleData, msg, errMsg string) error {
	ctx := c.Request().Context()
	data.Article = article
	data.Comments = a.Store.GetComments(ctx, article.ID)
	data.Related = a.Store.GetRelatedArticles(ctx, article.Category, article.ID)
	data.Breadcrumbs = articleBreadcrumbs(&a.Config, article)
	data.Share = ShareLinks(BuildURL(a.Config.URL, "article", article.Slug), article.Title)

	p := a.page(c, PageMeta{
		Title:       article.Title,
		Description: article.Excerpt,
		URL:         BuildURL(a.Config.URL, "article", article.Slug),
		OGType:      "article",
		Image:       article.Image,
	}, data)
	p.JSONLD = ArticleJSONLD(article, a.Config)
	p.Message = msg
	p.Error = errMsg
	return a.renderPage(c, code, "site/article", p)
}

func (a *App) handleLike(c echo.Context) error {
	ctx := c.Request().Context()
	article, err := a.Store.GetArticleBySlug(ctx, c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	if a.writeLimiter.Allow(c.RealIP()) {
		a.Store.LikeArticle(ctx, article.ID)
	}
	return c.Redirect(http.StatusSeeOther, article.Link())
}

func (a *App) handleComment(c echo.Context) error {
	ctx := c.Request().Context()
	article, err := a.Store.GetArticleBySlug(ctx, c.Param("slug"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}

	form := ArticleData{
		CommentName:    strings.TrimSpace(c.FormValue("author_name")),
		CommentContent: strings.TrimSpace(c.FormValue("content")),
	}
	switch {
	case form.CommentName == "" || form.CommentContent == "":
		return a.renderArticle(c, http.StatusUnprocessableEntity, article, form, "", "Please enter your name and a comment.")
	case utf8.RuneCountInString(form.CommentName) > maxCommentName || utf8.RuneCountInString(form.CommentContent) > maxCommentContent:
		return a.renderArticle(c, http.StatusUnprocessableEntity, article, form, "", "Your comment is too long.")
	case !a.writeLimiter.Allow(c.RealIP()):
		return a.renderArticle(c, http.StatusTooManyRequests, article, form, "", "You are commenting too quickly. Please wait a moment.")
	}

	if a.Store.CreateComment(ctx, article.ID, form.CommentName, form.CommentContent) == nil {
		return a.renderArticle(c, http.StatusInternalServerError, article, form, "", "Failed to post comment. Please try again.")
	}
	return c.Redirect(http.StatusSeeOther, article.Link()+"#comments")
}

func (a *App) handleArchive(c echo.Context) error {
	groups := groupByMonth(a.Cache.Articles(c.Request().Context()))
	p := a.page(c, PageMeta{Title: "Archive"}, groups)
	p.Track = &Track{Type: analytics.PageStatic, ID: "archive"}
	return a.renderPage(c, http.StatusOK, "site/archive", p)
}

// staticPage serves one of the embedded Markdown pages.
func (a *App) staticPage(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		src, err := EmbeddedAssets.ReadFile("embedded/pages/" + name + ".md")
		if err != nil {
			return echo.ErrNotFound
		}
		var buf bytes.Buffer
		if err := markdown.Markdown(string(src)).Render(c.Request().Context(), &buf); err != nil {
			return err
		}
		p := a.page(c, PageMeta{
			Title:       markdown.Title(string(src)),
			Description: markdown.Excerpt(buf.String(), excerptLength),
		}, buf.String())
		p.Track = &Track{Type: analytics.PageStatic, ID: name}
		return a.renderPage(c, http.StatusOK, "site/page", p)
	}
}

func (a *App) handleSubscribePage(c echo.Context) error {
	p := a.page(c, PageMeta{Title: "Subscribe"}, "")
	p.Track = &Track{Type: analytics.PageStatic, ID: "subscribe"}
	return a.renderPage(c, http.StatusOK, "site/subscribe", p)
}

func (a *App) handleSubscribe(c echo.Context) error {
	email := strings.TrimSpace(c.FormValue("email"))
	p := a.page(c, PageMeta{Title: "Subscribe"}, email)

	if !a.writeLimiter.Allow(c.RealIP()) {
		p.Error = "Too many requests. Please try again in a minute."
		return a.renderPage(c, http.StatusTooManyRequests, "site/subscribe", p)
	}
	err := a.Store.AddSubscriber(c.Request().Context(), email)
	switch {
	case errors.Is(err, ErrInvalidEmail):
		p.Error = "Please enter a valid email address."
		return a.renderPage(c, http.StatusUnprocessableEntity, "site/subscribe", p)
	case err != nil:
		a.logger.Error("subscribe", zap.Error(err))
		p.Error = "Something went wrong. Please try again."
		return a.renderPage(c, http.StatusInternalServerError, "site/subscribe", p)
	}
	p.Data = ""
	p.Message = "Thanks for subscribing! You will hear from us when a new article is out."
	return a.renderPage(c, http.StatusOK, "site/subscribe", p)
}

func (a *App) handleFeed(c echo.Context) error {
	return a.renderRSS(c, a.Cache.Articles(c.Request().Context()))
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.Config.StaticDir + "/favicon.svg")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}

	html := !strings.HasPrefix(c.Request().URL.Path, "/api/") && c.Request().Method == http.MethodGet
	switch {
	case code == http.StatusNotFound && html:
		_ = a.renderPage(c, code, "site/notfound", a.page(c, PageMeta{Title: "Page not found"}, nil))
	case code >= 500:
		a.logger.Error("server error",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err))
		if html {
			_ = a.renderPage(c, code, "site/error", a.page(c, PageMeta{Title: "Something went wrong"}, nil))
			return
		}
		_ = c.JSON(code, map[string]string{"error": http.StatusText(code)})
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
