package bliss

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/eringen/bliss/markdown"
)

const (
	excerptLength = 155
	defaultImage  = "https://images.unsplash.com/photo-1499750310107-5fef28a66643?w=1200"
)

// Slugify lowercases s and collapses every run of characters outside
// [a-z0-9] into a single hyphen, trimming hyphens at either end.
func Slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	pending := false
	for _, r := range s {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pending = false
			continue
		}
		pending = true
	}
	return b.String()
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// shareEscape query-escapes s with spaces as %20, which mailto links need.
func shareEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ShareLinks returns the share-intent links for an article at pageURL.
func ShareLinks(pageURL, title string) []ShareLink {
	u, t := shareEscape(pageURL), shareEscape(title)
	return []ShareLink{
		{Name: "X", URL: "https://twitter.com/intent/tweet?url=" + u + "&text=" + t},
		{Name: "Facebook", URL: "https://www.facebook.com/sharer/sharer.php?u=" + u},
		{Name: "LinkedIn", URL: "https://www.linkedin.com/shareArticle?mini=true&url=" + u + "&title=" + t},
		{Name: "Reddit", URL: "https://reddit.com/submit?url=" + u + "&title=" + t},
		{Name: "Telegram", URL: "https://t.me/share/url?url=" + u + "&text=" + t},
		{Name: "WhatsApp", URL: "https://api.whatsapp.com/send?text=" + t + "%20" + u},
		{Name: "Bluesky", URL: "https://bsky.app/intent/compose?text=" + t + "%20" + u},
		{Name: "Email", URL: "mailto:?subject=" + t + "&body=" + u},
	}
}

// articleBreadcrumbs is Home, then the article's category, then the article.
func articleBreadcrumbs(cfg *SiteConfig, a Article) []Breadcrumb {
	return []Breadcrumb{
		{Name: "Home", URL: "/"},
		{Name: cfg.CategoryName(a.Category), URL: "/category/" + url.PathEscape(strings.ToLower(a.Category)) + "/"},
		{Name: a.Title, URL: a.Link(), Current: true},
	}
}

// prepareArticle fills the derived fields of an article about to be saved:
// excerpt, read time and the fallback cover image.
func prepareArticle(a *Article) {
	a.Title = strings.TrimSpace(a.Title)
	a.Excerpt = markdown.Excerpt(a.Content, excerptLength)
	a.ReadTime = markdown.ReadTime(a.Content)
	if strings.TrimSpace(a.Image) == "" {
		a.Image = defaultImage
	}
}

// groupByMonth splits articles (newest first) into archive sections.
func groupByMonth(articles []Article) []ArchiveGroup {
	var groups []ArchiveGroup
	for _, a := range articles {
		label := a.PublishedAt.Format("January 2006")
		if n := len(groups); n > 0 && groups[n-1].Label == label {
			groups[n-1].Articles = append(groups[n-1].Articles, a)
			continue
		}
		groups = append(groups, ArchiveGroup{Label: label, Articles: []Article{a}})
	}
	return groups
}

// WebsiteJSONLD returns the schema.org WebSite object for cfg.
func WebsiteJSONLD(cfg SiteConfig) map[string]any {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
		"potentialAction": map[string]any{
			"@type":       "SearchAction",
			"target":      BuildURL(cfg.URL, "search") + "?q={search_term_string}",
			"query-input": "required name=search_term_string",
		},
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{"@type": "Person", "name": cfg.Author}
	}
	return data
}

// ArticleJSONLD returns the schema.org BlogPosting object for a.
func ArticleJSONLD(a Article, cfg SiteConfig) map[string]any {
	articleURL := BuildURL(cfg.URL, "article", a.Slug)
	data := map[string]any{
		"@context":       "https://schema.org",
		"@type":          "BlogPosting",
		"headline":       a.Title,
		"description":    a.Excerpt,
		"datePublished":  a.PublishedAt.UTC().Format(time.RFC3339),
		"dateModified":   a.UpdatedAt.UTC().Format(time.RFC3339),
		"articleSection": a.Category,
		"url":            articleURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   articleURL,
		},
	}
	if a.Image != "" {
		data["image"] = a.Image
	}
	author := cfg.Author
	if a.Author != nil && a.Author.Name != "" {
		author = a.Author.Name
	}
	if author != "" {
		data["author"] = map[string]string{"@type": "Person", "name": author}
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{"@type": "Organization", "name": cfg.Name}
	}
	return data
}
