package bliss

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/eringen/bliss/database"
	"github.com/eringen/bliss/sitemap"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthenticated is returned by writes that need a signed-in author.
	ErrNotAuthenticated = errors.New("user not authenticated")
	// ErrDuplicateArticle is returned when an article slug is already taken.
	ErrDuplicateArticle = errors.New("article slug already exists")
	// ErrInvalidCredentials is returned by Authenticate on a bad email or password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail is returned when an email address does not parse.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword is returned when a new password is too short.
	ErrWeakPassword = errors.New("password must be at least 6 characters")
)

const (
	defaultAvatarBase = "https://ui-avatars.com/api/?name="
	defaultAuthorBio  = "New contributor"
	relatedLimit      = 3
	popularLimit      = 5
	minPasswordLen    = 6
)

// Store provides the blog's data access: articles, authors, comments,
// subscribers, admin users and the image library.
//
// Reads that return lists or counts log failures and return an empty value;
// single-record lookups and writes the editor must report return errors.
type Store struct {
	db     *database.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewStore wraps db and ensures the schema exists.
func NewStore(db *database.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{db: db, logger: logger.Named("store"), now: time.Now}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the shared connection so the analytics store can reuse it.
func (s *Store) DB() *database.DB {
	return s.db
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS authors (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    bio TEXT NOT NULL DEFAULT '',
    avatar TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS articles (
    id TEXT PRIMARY KEY,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    excerpt TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    author_id TEXT,
    category TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT '',
    read_time TEXT NOT NULL DEFAULT '',
    published INTEGER NOT NULL DEFAULT 0,
    published_at TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    views INTEGER NOT NULL DEFAULT 0,
    likes INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published, published_at);
CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category);

CREATE TABLE IF NOT EXISTS comments (
    id TEXT PRIMARY KEY,
    article_id TEXT NOT NULL,
    author_name TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comments_article ON comments(article_id);

CREATE TABLE IF NOT EXISTS subscribers (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    full_name TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
    filename TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    original_name TEXT NOT NULL,
    width INTEGER NOT NULL,
    height INTEGER NOT NULL,
    size INTEGER NOT NULL,
    uploaded_at TEXT NOT NULL
);
`)
	return err
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

const articleColumns = `a.id, a.slug, a.title, a.excerpt, a.content, COALESCE(a.author_id, ''), a.category,
 a.image, a.read_time, a.published, a.published_at, a.created_at, a.updated_at, a.views, a.likes,
 COALESCE(au.id, ''), COALESCE(au.name, ''), COALESCE(au.email, ''), COALESCE(au.bio, ''),
 COALESCE(au.avatar, ''), COALESCE(au.created_at, '')`

const articleFrom = ` FROM articles a LEFT JOIN authors au ON au.id = a.author_id`

// publicFilter restricts a query to published articles whose publish time has passed.
const publicFilter = ` a.published = 1 AND a.published_at <= ?`

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner) (Article, error) {
	var (
		a                                      Article
		published                              int
		publishedAt, createdAt, updatedAt      string
		auID, auName, auEmail, auBio, auAvatar string
		auCreated                              string
	)
	if err := row.Scan(&a.ID, &a.Slug, &a.Title, &a.Excerpt, &a.Content, &a.AuthorID, &a.Category,
		&a.Image, &a.ReadTime, &published, &publishedAt, &createdAt, &updatedAt, &a.Views, &a.Likes,
		&auID, &auName, &auEmail, &auBio, &auAvatar, &auCreated); err != nil {
		return Article{}, err
	}
	a.Published = published == 1
	a.PublishedAt = database.ParseTimestamp(publishedAt)
	a.CreatedAt = database.ParseTimestamp(createdAt)
	a.UpdatedAt = database.ParseTimestamp(updatedAt)
	if auID != "" {
		a.Author = &Author{
			ID:        auID,
			Name:      auName,
			Email:     auEmail,
			Bio:       auBio,
			Avatar:    auAvatar,
			CreatedAt: database.ParseTimestamp(auCreated),
		}
	}
	return a, nil
}

func (s *Store) queryArticles(ctx context.Context, query string, args ...any) ([]Article, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	articles := []Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (s *Store) nowStamp() string {
	return database.Timestamp(s.now())
}

func (s *Store) publicArticles(ctx context.Context) ([]Article, error) {
	return s.queryArticles(ctx,
		`SELECT `+articleColumns+articleFrom+` WHERE`+publicFilter+` ORDER BY a.published_at DESC`,
		s.nowStamp())
}

// GetArticles returns all public articles, newest publication first.
func (s *Store) GetArticles(ctx context.Context) []Article {
	articles, err := s.publicArticles(ctx)
	if err != nil {
		s.logger.Error("fetch articles", zap.Error(err))
		return []Article{}
	}
	return articles
}

// GetArticleBySlug returns a public article by slug.
func (s *Store) GetArticleBySlug(ctx context.Context, slug string) (Article, error) {
	row := s.db.QueryRowContext(ctx,
		s.q(`SELECT `+articleColumns+articleFrom+` WHERE a.slug = ? AND`+publicFilter),
		slug, s.nowStamp())
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error("fetch article", zap.String("slug", slug), zap.Error(err))
		return Article{}, fmt.Errorf("fetch article %q: %w", slug, err)
	}
	return a, nil
}

// GetArticleByID returns any article (published or not) by id.
func (s *Store) GetArticleByID(ctx context.Context, id string) (Article, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+articleColumns+articleFrom+` WHERE a.id = ?`), id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	if err != nil {
		s.logger.Error("fetch article by id", zap.String("id", id), zap.Error(err))
		return Article{}, fmt.Errorf("fetch article %q: %w", id, err)
	}
	return a, nil
}

// GetArticlesByCategory returns public articles in category, newest first.
func (s *Store) GetArticlesByCategory(ctx context.Context, category string) []Article {
	articles, err := s.queryArticles(ctx,
		`SELECT `+articleColumns+articleFrom+` WHERE a.category = ? AND`+publicFilter+` ORDER BY a.published_at DESC`,
		category, s.nowStamp())
	if err != nil {
		s.logger.Error("fetch articles by category", zap.String("category", category), zap.Error(err))
		return []Article{}
	}
	return articles
}

// GetRelatedArticles returns up to three other public articles in category.
func (s *Store) GetRelatedArticles(ctx context.Context, category, excludeID string) []Article {
	articles, err := s.queryArticles(ctx,
		`SELECT `+articleColumns+articleFrom+` WHERE a.category = ? AND a.id <> ? AND`+publicFilter+
			` ORDER BY a.published_at DESC LIMIT ?`,
		category, excludeID, s.nowStamp(), relatedLimit)
	if err != nil {
		s.logger.Error("fetch related articles", zap.String("category", category), zap.Error(err))
		return []Article{}
	}
	return articles
}

// SearchArticles matches query against title and category, case-insensitively.
func (s *Store) SearchArticles(ctx context.Context, query string) []Article {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Article{}
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	articles, err := s.queryArticles(ctx,
		`SELECT `+articleColumns+articleFrom+` WHERE`+publicFilter+
			` AND (LOWER(a.title) LIKE ? ESCAPE '\' OR LOWER(a.category) LIKE ? ESCAPE '\')`+
			` ORDER BY a.published_at DESC`,
		s.nowStamp(), pattern, pattern)
	if err != nil {
		s.logger.Error("search articles", zap.String("query", query), zap.Error(err))
		return []Article{}
	}
	return articles
}

// SitemapEntries lists public articles for the sitemap, newest created first.
func (s *Store) SitemapEntries(ctx context.Context) ([]sitemap.Entry, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT a.slug, a.title, a.image, a.created_at, a.updated_at
		FROM articles a WHERE`+publicFilter+` ORDER BY a.created_at DESC`), s.nowStamp())
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap entries: %w", err)
	}
	defer rows.Close()

	entries := []sitemap.Entry{}
	for rows.Next() {
		var e sitemap.Entry
		var created, updated string
		if err := rows.Scan(&e.Slug, &e.Title, &e.Image, &created, &updated); err != nil {
			return nil, err
		}
		e.CreatedAt = database.ParseTimestamp(created)
		e.UpdatedAt = database.ParseTimestamp(updated)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// GetAllArticles returns every article for the admin console, newest created first.
func (s *Store) GetAllArticles(ctx context.Context) []Article {
	articles, err := s.queryArticles(ctx, `SELECT `+articleColumns+articleFrom+` ORDER BY a.created_at DESC`)
	if err != nil {
		s.logger.Error("fetch all articles", zap.Error(err))
		return []Article{}
	}
	return articles
}

// CreateArticle inserts a new article authored by the user signed in as
// email. The author profile is looked up by email and created on first use.
func (s *Store) CreateArticle(ctx context.Context, email string, a Article) (Article, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Article{}, ErrNotAuthenticated
	}
	author, err := s.findOrCreateAuthor(ctx, email)
	if err != nil {
		return Article{}, err
	}

	now := s.now()
	a.ID = uuid.NewString()
	a.AuthorID = author.ID
	a.Author = &author
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.PublishedAt.IsZero() {
		a.PublishedAt = now
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO articles
		(id, slug, title, excerpt, content, author_id, category, image, read_time, published, published_at, created_at, updated_at, views, likes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)`),
		a.ID, a.Slug, a.Title, a.Excerpt, a.Content, a.AuthorID, a.Category, a.Image, a.ReadTime,
		boolInt(a.Published), database.Timestamp(a.PublishedAt), database.Timestamp(a.CreatedAt), database.Timestamp(a.UpdatedAt))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Article{}, ErrDuplicateArticle
		}
		return Article{}, fmt.Errorf("create article: %w", err)
	}
	return a, nil
}

func (s *Store) findOrCreateAuthor(ctx context.Context, email string) (Author, error) {
	author, err := s.GetAuthorByEmail(ctx, email)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Author{}, err
	}

	name := ""
	if u, err := s.GetUserByEmail(ctx, email); err == nil {
		name = u.FullName
	}
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	author = Author{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Bio:       defaultAuthorBio,
		Avatar:    defaultAvatarBase + email,
		CreatedAt: s.now(),
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO authors (id, name, email, bio, avatar, created_at) VALUES (?, ?, ?, ?, ?, ?)`),
		author.ID, author.Name, author.Email, author.Bio, author.Avatar, database.Timestamp(author.CreatedAt))
	if err != nil {
		if database.IsUniqueViolation(err) {
			// Created concurrently; use the winner.
			return s.GetAuthorByEmail(ctx, email)
		}
		return Author{}, fmt.Errorf("create author profile: %w", err)
	}
	return author, nil
}

// UpdateArticle overwrites the editable fields of an article and bumps
// updated_at. The slug is never changed.
func (s *Store) UpdateArticle(ctx context.Context, id string, a Article) (Article, error) {
	if a.PublishedAt.IsZero() {
		a.PublishedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE articles SET
		title = ?, excerpt = ?, content = ?, category = ?, image = ?, read_time = ?,
		published = ?, published_at = ?, updated_at = ?
		WHERE id = ?`),
		a.Title, a.Excerpt, a.Content, a.Category, a.Image, a.ReadTime,
		boolInt(a.Published), database.Timestamp(a.PublishedAt), s.nowStamp(), id)
	if err != nil {
		return Article{}, fmt.Errorf("update article: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Article{}, ErrNotFound
	}
	return s.GetArticleByID(ctx, id)
}

// DeleteArticle removes an article and its comments.
func (s *Store) DeleteArticle(ctx context.Context, id string) bool {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM comments WHERE article_id = ?`), id); err != nil {
		s.logger.Error("delete article comments", zap.String("id", id), zap.Error(err))
		return false
	}
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM articles WHERE id = ?`), id); err != nil {
		s.logger.Error("delete article", zap.String("id", id), zap.Error(err))
		return false
	}
	return true
}

// TogglePublishStatus flips the published flag from current.
func (s *Store) TogglePublishStatus(ctx context.Context, id string, current bool) bool {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE articles SET published = ?, updated_at = ? WHERE id = ?`),
		boolInt(!current), s.nowStamp(), id)
	if err != nil {
		s.logger.Error("toggle publish status", zap.String("id", id), zap.Error(err))
		return false
	}
	return true
}

// IncrementViews bumps an article's view counter.
func (s *Store) IncrementViews(ctx context.Context, id string) bool {
	if _, err := s.db.ExecContext(ctx, s.q(`UPDATE articles SET views = views + 1 WHERE id = ?`), id); err != nil {
		s.logger.Error("increment views", zap.String("id", id), zap.Error(err))
		return false
	}
	return true
}

// LikeArticle bumps an article's like counter.
func (s *Store) LikeArticle(ctx context.Context, id string) bool {
	if _, err := s.db.ExecContext(ctx, s.q(`UPDATE articles SET likes = likes + 1 WHERE id = ?`), id); err != nil {
		s.logger.Error("like article", zap.String("id", id), zap.Error(err))
		return false
	}
	return true
}

// GetAnalyticsData summarises view and like counters across all articles.
func (s *Store) GetAnalyticsData(ctx context.Context) AnalyticsData {
	empty := AnalyticsData{PopularArticles: []Article{}, CategoryStats: []CategoryStat{}}
	articles, err := s.queryArticles(ctx, `SELECT `+articleColumns+articleFrom)
	if err != nil {
		s.logger.Error("fetch analytics articles", zap.Error(err))
		return empty
	}

	data := empty
	counts := make(map[string]int)
	for _, a := range articles {
		data.TotalViews += a.Views
		data.TotalLikes += a.Likes
		counts[a.Category]++
	}

	popular := append([]Article(nil), articles...)
	sort.SliceStable(popular, func(i, j int) bool { return popular[i].Views > popular[j].Views })
	if len(popular) > popularLimit {
		popular = popular[:popularLimit]
	}
	data.PopularArticles = popular

	for category, n := range counts {
		data.CategoryStats = append(data.CategoryStats, CategoryStat{Category: category, Count: n})
	}
	sort.Slice(data.CategoryStats, func(i, j int) bool {
		if data.CategoryStats[i].Count != data.CategoryStats[j].Count {
			return data.CategoryStats[i].Count > data.CategoryStats[j].Count
		}
		return data.CategoryStats[i].Category < data.CategoryStats[j].Category
	})
	return data
}

// Comments

// GetCommentsCount returns the total number of comments.
func (s *Store) GetCommentsCount(ctx context.Context) int {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n); err != nil {
		s.logger.Error("count comments", zap.Error(err))
		return 0
	}
	return n
}

// GetComments returns an article's comments, newest first.
func (s *Store) GetComments(ctx context.Context, articleID string) []Comment {
	rows, err := s.db.QueryContext(ctx,
		s.q(`SELECT id, article_id, author_name, content, created_at FROM comments WHERE article_id = ? ORDER BY created_at DESC`),
		articleID)
	if err != nil {
		s.logger.Error("fetch comments", zap.String("article_id", articleID), zap.Error(err))
		return []Comment{}
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		var created string
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.AuthorName, &c.Content, &created); err != nil {
			s.logger.Error("scan comment", zap.Error(err))
			return []Comment{}
		}
		c.CreatedAt = database.ParseTimestamp(created)
		comments = append(comments, c)
	}
	return comments
}

// CreateComment stores a comment and returns it, or nil on failure.
func (s *Store) CreateComment(ctx context.Context, articleID, authorName, content string) *Comment {
	c := &Comment{
		ID:         uuid.NewString(),
		ArticleID:  articleID,
		AuthorName: authorName,
		Content:    content,
		CreatedAt:  s.now().UTC().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO comments (id, article_id, author_name, content, created_at) VALUES (?, ?, ?, ?, ?)`),
		c.ID, c.ArticleID, c.AuthorName, c.Content, database.Timestamp(c.CreatedAt))
	if err != nil {
		s.logger.Error("create comment", zap.String("article_id", articleID), zap.Error(err))
		return nil
	}
	return c
}

// GetAllComments lists every comment with its article's title and slug.
func (s *Store) GetAllComments(ctx context.Context) []Comment {
	rows, err := s.db.QueryContext(ctx, `SELECT c.id, c.article_id, c.author_name, c.content, c.created_at,
		COALESCE(a.title, ''), COALESCE(a.slug, '')
		FROM comments c LEFT JOIN articles a ON a.id = c.article_id
		ORDER BY c.created_at DESC`)
	if err != nil {
		s.logger.Error("fetch all comments", zap.Error(err))
		return []Comment{}
	}
	defer rows.Close()

	comments := []Comment{}
	for rows.Next() {
		var c Comment
		var created string
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.AuthorName, &c.Content, &created, &c.ArticleTitle, &c.ArticleSlug); err != nil {
			s.logger.Error("scan comment", zap.Error(err))
			return []Comment{}
		}
		c.CreatedAt = database.ParseTimestamp(created)
		comments = append(comments, c)
	}
	return comments
}

// DeleteComment removes a comment by id.
func (s *Store) DeleteComment(ctx context.Context, id string) bool {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM comments WHERE id = ?`), id); err != nil {
		s.logger.Error("delete comment", zap.String("id", id), zap.Error(err))
		return false
	}
	return true
}

// Subscribers

// GetSubscribers lists newsletter subscribers, newest first.
func (s *Store) GetSubscribers(ctx context.Context) []Subscriber {
	rows, err := s.db.QueryContext(ctx, `SELECT id, email, created_at FROM subscribers ORDER BY created_at DESC`)
	if err != nil {
		s.logger.Error("fetch subscribers", zap.Error(err))
		return []Subscriber{}
	}
	defer rows.Close()

	subs := []Subscriber{}
	for rows.Next() {
		var sub Subscriber
		var created string
		if err := rows.Scan(&sub.ID, &sub.Email, &created); err != nil {
			s.logger.Error("scan subscriber", zap.Error(err))
			return []Subscriber{}
		}
		sub.CreatedAt = database.ParseTimestamp(created)
		subs = append(subs, sub)
	}
	return subs
}

// AddSubscriber records a newsletter signup. Subscribing twice is not an error.
func (s *Store) AddSubscriber(ctx context.Context, email string) error {
	addr, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO subscribers (id, email, created_at) VALUES (?, ?, ?)`),
		uuid.NewString(), addr, s.nowStamp())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil
		}
		s.logger.Error("add subscriber", zap.Error(err))
		return fmt.Errorf("add subscriber: %w", err)
	}
	return nil
}

func normalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

// Authors

func scanAuthor(row scanner) (Author, error) {
	var a Author
	var created string
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Bio, &a.Avatar, &created); err != nil {
		return Author{}, err
	}
	a.CreatedAt = database.ParseTimestamp(created)
	return a, nil
}

// GetAuthors lists author profiles ordered by name.
func (s *Store) GetAuthors(ctx context.Context) []Author {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, bio, avatar, created_at FROM authors ORDER BY name ASC`)
	if err != nil {
		s.logger.Error("fetch authors", zap.Error(err))
		return []Author{}
	}
	defer rows.Close()

	authors := []Author{}
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			s.logger.Error("scan author", zap.Error(err))
			return []Author{}
		}
		authors = append(authors, a)
	}
	return authors
}

// GetAuthorByEmail returns the author profile for email.
func (s *Store) GetAuthorByEmail(ctx context.Context, email string) (Author, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, name, email, bio, avatar, created_at FROM authors WHERE email = ?`), email)
	a, err := scanAuthor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Author{}, ErrNotFound
	}
	if err != nil {
		return Author{}, fmt.Errorf("fetch author: %w", err)
	}
	return a, nil
}

// UpdateAuthor overwrites an author's public profile.
func (s *Store) UpdateAuthor(ctx context.Context, id string, upd AuthorUpdate) bool {
	_, err := s.db.ExecContext(ctx, s.q(`UPDATE authors SET name = ?, bio = ?, avatar = ? WHERE id = ?`),
		upd.Name, upd.Bio, upd.Avatar, id)
	if err != nil {
		s.logger.Error("update author", zap.String("id", id), zap.Error(err))
		return false
	}
	return true
}

// Users

// GetUserByEmail returns the admin user for email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	var created string
	err := s.db.QueryRowContext(ctx,
		s.q(`SELECT id, email, password_hash, full_name, created_at FROM users WHERE email = ?`),
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("fetch user: %w", err)
	}
	u.CreatedAt = database.ParseTimestamp(created)
	return u, nil
}

// EnsureUser creates an admin user if no user with email exists yet.
// An existing user's password is left untouched.
func (s *Store) EnsureUser(ctx context.Context, email, password, fullName string) error {
	addr, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if _, err := s.GetUserByEmail(ctx, addr); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if len(password) < minPasswordLen {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO users (id, email, password_hash, full_name, created_at) VALUES (?, ?, ?, ?, ?)`),
		uuid.NewString(), addr, string(hash), fullName, s.nowStamp())
	if err != nil && !database.IsUniqueViolation(err) {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Authenticate checks email and password against the users table.
func (s *Store) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// UpdateUserCredentials changes the email, password or display name of the
// user signed in as currentEmail and returns the email the account ends up
// with. Input is validated before anything is written, and the user and
// author rows change in one transaction so article ownership follows the
// account.
func (s *Store) UpdateUserCredentials(ctx context.Context, currentEmail string, upd CredentialUpdate) (string, error) {
	u, err := s.GetUserByEmail(ctx, currentEmail)
	if err != nil {
		return "", err
	}
	addr := u.Email
	if upd.Email != "" {
		if addr, err = normalizeEmail(upd.Email); err != nil {
			return "", err
		}
	}
	var hash []byte
	if upd.Password != "" {
		if len(upd.Password) < minPasswordLen {
			return "", ErrWeakPassword
		}
		if hash, err = bcrypt.GenerateFromPassword([]byte(upd.Password), bcrypt.DefaultCost); err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin credential update: %w", err)
	}
	defer tx.Rollback()

	if hash != nil {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE users SET password_hash = ? WHERE id = ?`), string(hash), u.ID); err != nil {
			return "", fmt.Errorf("update password: %w", err)
		}
	}
	if upd.FullName != "" && upd.FullName != u.FullName {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE users SET full_name = ? WHERE id = ?`), upd.FullName, u.ID); err != nil {
			return "", fmt.Errorf("update name: %w", err)
		}
	}
	if addr != u.Email {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE users SET email = ? WHERE id = ?`), addr, u.ID); err != nil {
			if database.IsUniqueViolation(err) {
				return "", fmt.Errorf("email %s is already in use", addr)
			}
			return "", fmt.Errorf("update email: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE authors SET email = ? WHERE email = ?`), addr, u.Email); err != nil {
			return "", fmt.Errorf("move author email: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit credential update: %w", err)
	}
	return addr, nil
}

// Images

// ListImages returns the media library, newest upload first.
func (s *Store) ListImages(ctx context.Context) ([]Image, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT filename, url, original_name, width, height, size, uploaded_at FROM images ORDER BY uploaded_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img Image
		var uploaded string
		if err := rows.Scan(&img.Filename, &img.URL, &img.OriginalName, &img.Width, &img.Height, &img.Size, &uploaded); err != nil {
			return nil, err
		}
		img.UploadedAt = database.ParseTimestamp(uploaded)
		images = append(images, img)
	}
	return images, rows.Err()
}

// SaveImage records an uploaded image.
func (s *Store) SaveImage(ctx context.Context, img Image) error {
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO images (filename, url, original_name, width, height, size, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		img.Filename, img.URL, img.OriginalName, img.Width, img.Height, img.Size, database.Timestamp(img.UploadedAt))
	return err
}

// DeleteImage removes an image record.
func (s *Store) DeleteImage(ctx context.Context, filename string) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM images WHERE filename = ?`), filename)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
