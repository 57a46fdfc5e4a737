package bliss

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/bliss/aiwriter"
	"github.com/eringen/bliss/analytics"
	"github.com/eringen/bliss/markdown"
	"github.com/eringen/bliss/notify"
)

const duplicateTitleMsg = "An article with this title already exists. Please choose a different title."

// flash messages shown on the dashboard after a redirect.
var dashboardMessages = map[string]string{
	"created":     "Article created.",
	"updated":     "Article updated.",
	"published":   "Article published.",
	"unpublished": "Article moved to drafts.",
}

func (a *App) handleLoginPage(c echo.Context) error {
	if IsAdmin(c) {
		return c.Redirect(http.StatusSeeOther, "/admin/")
	}
	return a.renderPage(c, http.StatusOK, "admin/login", a.page(c, PageMeta{}, ""))
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	email := strings.TrimSpace(c.FormValue("email"))
	p := a.page(c, PageMeta{}, email)

	if !a.loginLimiter.Check(ip) {
		p.Error = "Too many login attempts. Try again later."
		return a.renderPage(c, http.StatusTooManyRequests, "admin/login", p)
	}
	u, err := a.Store.Authenticate(c.Request().Context(), email, c.FormValue("password"))
	if errors.Is(err, ErrInvalidCredentials) {
		a.loginLimiter.Record(ip)
		p.Error = "Invalid email or password."
		return a.renderPage(c, http.StatusUnauthorized, "admin/login", p)
	}
	if err != nil {
		return err
	}
	a.loginLimiter.Reset(ip)
	if err := setAdminSession(c, u.Email); err != nil {
		return err
	}
	a.logger.Info("admin signed in", zap.String("email", u.Email))
	return c.Redirect(http.StatusSeeOther, "/admin/")
}

func handleLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, loginPath)
}

func (a *App) websiteSummary(ctx context.Context, days int) (analytics.Summary, analytics.BlogStats) {
	if a.Analytics == nil {
		return analytics.EmptySummary(), analytics.BlogStats{}
	}
	return a.Analytics.GetWebsiteAnalytics(ctx, days), a.Analytics.GetBlogAnalytics(ctx, days)
}

func (a *App) handleDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	days := analytics.ParseDays(c.QueryParam("days"))
	articles := a.Store.GetAllArticles(ctx)
	summary, _ := a.websiteSummary(ctx, days)

	data := DashboardData{
		Articles:      articles,
		Summary:       summary,
		CommentsCount: a.Store.GetCommentsCount(ctx),
		Days:          days,
		DayOptions:    dayOptions,
	}
	for _, art := range articles {
		if art.Published {
			data.Published++
		} else {
			data.Drafts++
		}
	}
	p := a.page(c, PageMeta{}, data)
	p.Message = dashboardMessages[c.QueryParam("msg")]
	return a.renderPage(c, http.StatusOK, "admin/dashboard", p)
}

func (a *App) editorPage(c echo.Context, code int, article Article, isNew bool, errMsg string) error {
	p := a.page(c, PageMeta{}, EditorData{
		Article:    article,
		IsNew:      isNew,
		Categories: a.Config.Categories,
		AIEnabled:  a.AI.Enabled(),
	})
	p.Error = errMsg
	return a.renderPage(c, code, "admin/editor", p)
}

func (a *App) handleEditorNew(c echo.Context) error {
	article := Article{PublishedAt: a.Store.now()}
	if len(a.Config.Categories) > 0 {
		article.Category = a.Config.Categories[0].Name
	}
	return a.editorPage(c, http.StatusOK, article, true, "")
}

func (a *App) handleEditorEdit(c echo.Context) error {
	article, err := a.Store.GetArticleByID(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	return a.editorPage(c, http.StatusOK, article, false, "")
}

// formURL reads a URL field that ends up in an src attribute. ok is false
// when the field is set but not a site path or http(s) URL.
func formURL(c echo.Context, name string) (val string, ok bool) {
	raw := strings.TrimSpace(c.FormValue(name))
	val = markdown.SafeURL(raw)
	return val, raw == "" || val != ""
}

// articleFromForm reads the editor fields. The returned message is meant
// for the author when the form is invalid.
func articleFromForm(c echo.Context) (Article, string) {
	art := Article{
		Title:     strings.TrimSpace(c.FormValue("title")),
		Content:   c.FormValue("content"),
		Category:  strings.TrimSpace(c.FormValue("category")),
		Published: c.FormValue("published") != "",
	}
	image, ok := formURL(c, "image")
	if !ok {
		return art, "Image must be a site path or an http(s) URL."
	}
	art.Image = image
	if v := strings.TrimSpace(c.FormValue("published_at")); v != "" {
		t, err := time.Parse("2006-01-02T15:04", v)
		if err != nil {
			return art, "Invalid publish date."
		}
		art.PublishedAt = t.UTC()
	}
	switch {
	case art.Title == "":
		return art, "Title is required."
	case Slugify(art.Title) == "":
		return art, "The title needs at least one letter or digit."
	case art.Category == "":
		return art, "Category is required."
	}
	return art, ""
}

func (a *App) handleCreateArticle(c echo.Context) error {
	art, msg := articleFromForm(c)
	if msg != "" {
		return a.editorPage(c, http.StatusUnprocessableEntity, art, true, msg)
	}
	art.Slug = Slugify(art.Title)
	prepareArticle(&art)

	ctx := c.Request().Context()
	created, err := a.Store.CreateArticle(ctx, CurrentEmail(c), art)
	switch {
	case errors.Is(err, ErrDuplicateArticle):
		return a.editorPage(c, http.StatusConflict, art, true, duplicateTitleMsg)
	case err != nil:
		a.logger.Error("create article", zap.String("title", art.Title), zap.Error(err))
		return a.editorPage(c, http.StatusInternalServerError, art, true, "Failed to create article. Please try again.")
	}

	a.Cache.Invalidate()
	if created.Published {
		a.announce(ctx, created)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=created")
}

func (a *App) handleUpdateArticle(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	existing, err := a.Store.GetArticleByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}

	art, msg := articleFromForm(c)
	art.ID, art.Slug = existing.ID, existing.Slug
	if msg != "" {
		return a.editorPage(c, http.StatusUnprocessableEntity, art, false, msg)
	}
	prepareArticle(&art)

	updated, err := a.Store.UpdateArticle(ctx, id, art)
	if err != nil {
		a.logger.Error("update article", zap.String("id", id), zap.Error(err))
		return a.editorPage(c, http.StatusInternalServerError, art, false, "Failed to update article. Please try again.")
	}

	a.Cache.Invalidate()
	if updated.Published && !existing.Published {
		a.announce(ctx, updated)
	}
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=updated")
}

func (a *App) handleTogglePublish(c echo.Context) error {
	ctx := c.Request().Context()
	art, err := a.Store.GetArticleByID(ctx, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return err
	}
	if !a.Store.TogglePublishStatus(ctx, art.ID, art.Published) {
		return echo.NewHTTPError(http.StatusInternalServerError, "toggle publish status failed")
	}
	a.Cache.Invalidate()
	if art.Published {
		return c.Redirect(http.StatusSeeOther, "/admin/?msg=unpublished")
	}
	art.Published = true
	a.announce(ctx, art)
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=published")
}

func (a *App) handleDeleteArticle(c echo.Context) error {
	if !a.Store.DeleteArticle(c.Request().Context(), c.Param("id")) {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete article."})
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

// announce tells subscribers of the notification subject that art is live.
func (a *App) announce(ctx context.Context, art Article) {
	articlesPublished.Inc()
	a.Notifier.ArticlePublished(ctx, notify.Event{
		ID:          art.ID,
		Slug:        art.Slug,
		Title:       art.Title,
		URL:         BuildURL(a.Config.URL, "article", art.Slug),
		PublishedAt: art.PublishedAt,
	})
}

// AI assistant

func (a *App) aiUnavailable(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": aiwriter.ErrNotConfigured.Error()})
}

func (a *App) handleAIDraft(c echo.Context) error {
	if !a.AI.Enabled() {
		return a.aiUnavailable(c)
	}
	opts := aiwriter.DraftOptions{
		Topic:             strings.TrimSpace(c.FormValue("topic")),
		Tone:              aiwriter.Tone(c.FormValue("tone")),
		Length:            aiwriter.Length(c.FormValue("length")),
		IncludeIntro:      c.FormValue("intro") != "",
		IncludeConclusion: c.FormValue("conclusion") != "",
	}
	if opts.Topic == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Topic is required."})
	}

	ctx := c.Request().Context()
	content, err := a.AI.GenerateDraft(ctx, opts)
	aiRequests.WithLabelValues("draft", outcome(err)).Inc()
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to generate content. Please try again."})
	}
	title, err := a.AI.GenerateTitle(ctx, opts.Topic)
	aiRequests.WithLabelValues("title", outcome(err)).Inc()
	if err != nil {
		title = opts.Topic
	}
	return c.JSON(http.StatusOK, map[string]string{"content": content, "title": title})
}

func (a *App) handleAITitle(c echo.Context) error {
	if !a.AI.Enabled() {
		return a.aiUnavailable(c)
	}
	topic := strings.TrimSpace(c.FormValue("topic"))
	if topic == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Topic is required."})
	}
	title, err := a.AI.GenerateTitle(c.Request().Context(), topic)
	aiRequests.WithLabelValues("title", outcome(err)).Inc()
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to generate a title."})
	}
	return c.JSON(http.StatusOK, map[string]string{"title": title})
}

func (a *App) handleAIImprove(c echo.Context) error {
	if !a.AI.Enabled() {
		return a.aiUnavailable(c)
	}
	content := c.FormValue("content")
	instruction := strings.TrimSpace(c.FormValue("instruction"))
	if strings.TrimSpace(content) == "" || instruction == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Content and instruction are required."})
	}
	improved, err := a.AI.Improve(c.Request().Context(), content, instruction)
	aiRequests.WithLabelValues("improve", outcome(err)).Inc()
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to improve content. Please try again."})
	}
	return c.JSON(http.StatusOK, map[string]string{"content": improved})
}

// Analytics, comments, subscribers

func (a *App) handleAnalyticsPage(c echo.Context) error {
	ctx := c.Request().Context()
	days := analytics.ParseDays(c.QueryParam("days"))
	summary, stats := a.websiteSummary(ctx, days)
	return a.renderPage(c, http.StatusOK, "admin/analytics", a.page(c, PageMeta{}, AnalyticsPageData{
		Blog:       a.Store.GetAnalyticsData(ctx),
		Summary:    summary,
		BlogStats:  stats,
		Days:       days,
		DayOptions: dayOptions,
	}))
}

func (a *App) handleComments(c echo.Context) error {
	comments := a.Store.GetAllComments(c.Request().Context())
	return a.renderPage(c, http.StatusOK, "admin/comments", a.page(c, PageMeta{}, comments))
}

func (a *App) handleDeleteComment(c echo.Context) error {
	if !a.Store.DeleteComment(c.Request().Context(), c.Param("id")) {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete comment."})
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleSubscribers(c echo.Context) error {
	subs := a.Store.GetSubscribers(c.Request().Context())
	return a.renderPage(c, http.StatusOK, "admin/subscribers", a.page(c, PageMeta{}, subs))
}

// Settings

func (a *App) settingsData(ctx context.Context, email string) SettingsData {
	author, err := a.Store.GetAuthorByEmail(ctx, email)
	if err != nil {
		author = Author{Email: email, Name: strings.SplitN(email, "@", 2)[0]}
		if u, err := a.Store.GetUserByEmail(ctx, email); err == nil && u.FullName != "" {
			author.Name = u.FullName
		}
	}
	return SettingsData{Author: author, Email: email}
}

func (a *App) handleSettingsPage(c echo.Context) error {
	data := a.settingsData(c.Request().Context(), CurrentEmail(c))
	return a.renderPage(c, http.StatusOK, "admin/settings", a.page(c, PageMeta{}, data))
}

func (a *App) handleSettings(c echo.Context) error {
	ctx := c.Request().Context()
	email := CurrentEmail(c)
	render := func(code int, msg, errMsg string) error {
		p := a.page(c, PageMeta{}, a.settingsData(ctx, CurrentEmail(c)))
		p.Message, p.Error = msg, errMsg
		return a.renderPage(c, code, "admin/settings", p)
	}

	password := c.FormValue("password")
	if password != c.FormValue("confirm_password") {
		return render(http.StatusUnprocessableEntity, "", "Passwords do not match.")
	}

	upd := AuthorUpdate{
		Name: strings.TrimSpace(c.FormValue("name")),
		Bio:  strings.TrimSpace(c.FormValue("bio")),
	}
	if upd.Name == "" {
		return render(http.StatusUnprocessableEntity, "", "Name is required.")
	}
	avatar, ok := formURL(c, "avatar")
	if !ok {
		return render(http.StatusUnprocessableEntity, "", "Avatar must be a site path or an http(s) URL.")
	}
	upd.Avatar = avatar
	if file, err := c.FormFile("avatar_file"); err == nil {
		img, err := a.saveUpload(ctx, file)
		if err != nil {
			return render(http.StatusBadRequest, "", "Invalid avatar image: "+err.Error())
		}
		upd.Avatar = img.URL
	}

	var msgs, errs []string
	author, err := a.Store.findOrCreateAuthor(ctx, email)
	if err == nil && a.Store.UpdateAuthor(ctx, author.ID, upd) {
		msgs = append(msgs, "Profile updated.")
		a.Cache.Invalidate()
	} else {
		errs = append(errs, "Failed to update profile.")
	}

	cred := CredentialUpdate{Password: password, FullName: upd.Name}
	if raw := strings.TrimSpace(c.FormValue("email")); raw != "" {
		cred.Email = raw
	}
	switch applied, err := a.Store.UpdateUserCredentials(ctx, email, cred); {
	case err != nil:
		errs = append(errs, "Account not updated: "+err.Error()+".")
	case applied != email:
		if err := setAdminSession(c, applied); err != nil {
			return err
		}
		// The session cookie is rewritten on this response, so the
		// rendered page must read the new email explicitly.
		email = applied
		msgs = append(msgs, "Email changed to "+applied+".")
	case password != "":
		msgs = append(msgs, "Password changed.")
	}

	code := http.StatusOK
	if len(errs) > 0 {
		code = http.StatusUnprocessableEntity
	}
	p := a.page(c, PageMeta{}, a.settingsData(ctx, email))
	p.AdminEmail = email
	p.Message = strings.Join(msgs, " ")
	p.Error = strings.Join(errs, " ")
	return a.renderPage(c, code, "admin/settings", p)
}
