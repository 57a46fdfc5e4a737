package bliss

import "time"

// Article is a blog post. Public articles are published and have a
// PublishedAt that is not in the future.
type Article struct {
	ID          string
	Slug        string
	Title       string
	Excerpt     string
	Content     string // HTML
	AuthorID    string
	Category    string
	Image       string
	ReadTime    string
	Published   bool
	PublishedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Views       int
	Likes       int
	Author      *Author
}

// Link returns the site-relative URL of the article.
func (a Article) Link() string {
	return "/article/" + a.Slug + "/"
}

// IsPublic reports whether the article is visible on the public site at now.
func (a Article) IsPublic(now time.Time) bool {
	return a.Published && !a.PublishedAt.After(now)
}

// Author is a content creator profile linked to articles by AuthorID.
type Author struct {
	ID        string
	Name      string
	Email     string
	Bio       string
	Avatar    string
	CreatedAt time.Time
}

// Comment is a reader comment on an article. ArticleTitle and ArticleSlug are
// only populated by the admin listing.
type Comment struct {
	ID           string
	ArticleID    string
	AuthorName   string
	Content      string
	CreatedAt    time.Time
	ArticleTitle string
	ArticleSlug  string
}

// Subscriber is a newsletter signup.
type Subscriber struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// User holds admin console credentials.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	CreatedAt    time.Time
}

// Image is an uploaded image in the media library.
type Image struct {
	Filename     string
	URL          string
	OriginalName string
	Width        int
	Height       int
	Size         int
	UploadedAt   time.Time
}

// CategoryStat counts articles per category.
type CategoryStat struct {
	Category string
	Count    int
}

// AnalyticsData is the article-level summary shown on the analytics page.
type AnalyticsData struct {
	TotalViews      int
	TotalLikes      int
	PopularArticles []Article
	CategoryStats   []CategoryStat
}

// AuthorUpdate carries the editable profile fields.
type AuthorUpdate struct {
	Name   string
	Bio    string
	Avatar string
}

// CredentialUpdate changes the signed-in user's email and/or password.
// Empty fields are left unchanged.
type CredentialUpdate struct {
	Email    string
	Password string
	FullName string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}
