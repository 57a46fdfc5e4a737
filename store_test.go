package bliss

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/bliss/database"
)

const testEmail = "writer@example.com"

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	s, err := NewStore(db, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s.now = clock.Now
	return s, clock
}

func createArticle(t *testing.T, s *Store, clock *fakeClock, title, category string, published bool) Article {
	t.Helper()
	clock.Advance(time.Minute)
	a, err := s.CreateArticle(context.Background(), testEmail, Article{
		Slug:      Slugify(title),
		Title:     title,
		Content:   "<p>Body of " + title + "</p>",
		Category:  category,
		Published: published,
	})
	require.NoError(t, err)
	return a
}

func TestCreateArticleCreatesAuthor(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	a := createArticle(t, s, clock, "First Light", "Culture", true)
	require.NotNil(t, a.Author)
	assert.Equal(t, "writer", a.Author.Name)
	assert.Equal(t, defaultAuthorBio, a.Author.Bio)
	assert.Equal(t, defaultAvatarBase+testEmail, a.Author.Avatar)

	b := createArticle(t, s, clock, "Second Light", "Culture", true)
	assert.Equal(t, a.AuthorID, b.AuthorID)
	assert.Len(t, s.GetAuthors(ctx), 1)

	got, err := s.GetArticleBySlug(ctx, "first-light")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	require.NotNil(t, got.Author)
	assert.Equal(t, testEmail, got.Author.Email)
}

func TestCreateArticleRequiresEmail(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.CreateArticle(context.Background(), "  ", Article{Slug: "x", Title: "X"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCreateArticleDuplicateSlug(t *testing.T) {
	s, clock := newTestStore(t)
	createArticle(t, s, clock, "Same Title", "Culture", true)

	_, err := s.CreateArticle(context.Background(), testEmail, Article{Slug: "same-title", Title: "Same Title"})
	assert.ErrorIs(t, err, ErrDuplicateArticle)
}

func TestPublicVisibility(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	live := createArticle(t, s, clock, "Live", "Technology", true)
	draft := createArticle(t, s, clock, "Draft", "Technology", false)

	clock.Advance(time.Minute)
	future, err := s.CreateArticle(ctx, testEmail, Article{
		Slug: "later", Title: "Later", Category: "Technology", Published: true,
		PublishedAt: clock.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	ids := func(articles []Article) []string {
		out := []string{}
		for _, a := range articles {
			out = append(out, a.ID)
		}
		return out
	}

	assert.Equal(t, []string{live.ID}, ids(s.GetArticles(ctx)))
	assert.Equal(t, []string{live.ID}, ids(s.GetArticlesByCategory(ctx, "Technology")))
	assert.Len(t, s.GetAllArticles(ctx), 3)

	_, err = s.GetArticleBySlug(ctx, draft.Slug)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetArticleBySlug(ctx, future.Slug)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetArticleByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.False(t, got.Published)

	clock.Advance(25 * time.Hour)
	assert.Equal(t, []string{future.ID, live.ID}, ids(s.GetArticles(ctx)))
}

func TestSearchArticles(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	createArticle(t, s, clock, "Go Concurrency Patterns", "Technology", true)
	createArticle(t, s, clock, "Reading Proust", "Culture", true)
	createArticle(t, s, clock, "100% Coverage", "Technology", true)

	assert.Len(t, s.SearchArticles(ctx, "go"), 1)
	assert.Len(t, s.SearchArticles(ctx, "TECHNOLOGY"), 2)
	assert.Len(t, s.SearchArticles(ctx, "100%"), 1)
	assert.Empty(t, s.SearchArticles(ctx, "_"))
	assert.Empty(t, s.SearchArticles(ctx, "   "))
}

func TestRelatedArticles(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	base := createArticle(t, s, clock, "Base", "Culture", true)
	for _, title := range []string{"One", "Two", "Three", "Four"} {
		createArticle(t, s, clock, title, "Culture", true)
	}
	createArticle(t, s, clock, "Elsewhere", "Technology", true)

	related := s.GetRelatedArticles(ctx, "Culture", base.ID)
	require.Len(t, related, relatedLimit)
	for _, a := range related {
		assert.NotEqual(t, base.ID, a.ID)
		assert.Equal(t, "Culture", a.Category)
	}
	assert.Equal(t, "Four", related[0].Title)
}

func TestUpdateArticleKeepsSlug(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	a := createArticle(t, s, clock, "Original", "Culture", false)
	clock.Advance(time.Hour)

	a.Title = "Renamed"
	a.Published = true
	updated, err := s.UpdateArticle(ctx, a.ID, a)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "original", updated.Slug)
	assert.True(t, updated.Published)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	_, err = s.UpdateArticle(ctx, "missing", a)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleCountersAndDelete(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	a := createArticle(t, s, clock, "Counted", "Culture", false)
	require.True(t, s.TogglePublishStatus(ctx, a.ID, false))
	require.True(t, s.IncrementViews(ctx, a.ID))
	require.True(t, s.IncrementViews(ctx, a.ID))
	require.True(t, s.LikeArticle(ctx, a.ID))

	got, err := s.GetArticleBySlug(ctx, a.Slug)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Views)
	assert.Equal(t, 1, got.Likes)

	data := s.GetAnalyticsData(ctx)
	assert.Equal(t, 2, data.TotalViews)
	assert.Equal(t, 1, data.TotalLikes)
	assert.Equal(t, []CategoryStat{{Category: "Culture", Count: 1}}, data.CategoryStats)

	require.NotNil(t, s.CreateComment(ctx, a.ID, "Ann", "Nice"))
	require.True(t, s.DeleteArticle(ctx, a.ID))
	_, err = s.GetArticleByID(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.GetCommentsCount(ctx))
}

func TestComments(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	a := createArticle(t, s, clock, "Discussed", "Culture", true)
	first := s.CreateComment(ctx, a.ID, "Ann", "First!")
	require.NotNil(t, first)
	clock.Advance(time.Minute)
	second := s.CreateComment(ctx, a.ID, "Bob", "Second")
	require.NotNil(t, second)

	comments := s.GetComments(ctx, a.ID)
	require.Len(t, comments, 2)
	assert.Equal(t, "Bob", comments[0].AuthorName)
	assert.Empty(t, s.GetComments(ctx, "other"))

	all := s.GetAllComments(ctx)
	require.Len(t, all, 2)
	assert.Equal(t, "Discussed", all[0].ArticleTitle)
	assert.Equal(t, "discussed", all[0].ArticleSlug)

	require.True(t, s.DeleteComment(ctx, first.ID))
	assert.Equal(t, 1, s.GetCommentsCount(ctx))
}

func TestSubscribers(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddSubscriber(ctx, " Reader@Example.com "))
	clock.Advance(time.Minute)
	require.NoError(t, s.AddSubscriber(ctx, "reader@example.com"))
	require.NoError(t, s.AddSubscriber(ctx, "other@example.com"))
	assert.ErrorIs(t, s.AddSubscriber(ctx, "not-an-email"), ErrInvalidEmail)

	subs := s.GetSubscribers(ctx)
	require.Len(t, subs, 2)
	assert.Equal(t, "other@example.com", subs[0].Email)
	assert.Equal(t, "reader@example.com", subs[1].Email)
}

func TestUsersAndCredentials(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.EnsureUser(ctx, "admin@example.com", "short", ""), ErrWeakPassword)
	require.NoError(t, s.EnsureUser(ctx, "Admin@Example.com", "correct horse", "Ada"))
	require.NoError(t, s.EnsureUser(ctx, "admin@example.com", "ignored pass", ""))

	u, err := s.Authenticate(ctx, "admin@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.FullName)

	_, err = s.Authenticate(ctx, "admin@example.com", "ignored pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	a, err := s.CreateArticle(ctx, "admin@example.com", Article{Slug: "owned", Title: "Owned", Published: true})
	require.NoError(t, err)
	assert.Equal(t, "Ada", a.Author.Name)
	clock.Advance(time.Minute)

	_, err = s.UpdateUserCredentials(ctx, "admin@example.com", CredentialUpdate{Password: "abc"})
	assert.ErrorIs(t, err, ErrWeakPassword)
	applied, err := s.UpdateUserCredentials(ctx, "admin@example.com", CredentialUpdate{
		Email:    "Ada <Ada@Example.com>",
		Password: "new password",
		FullName: "Ada L.",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", applied)

	_, err = s.Authenticate(ctx, "admin@example.com", "new password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	u, err = s.Authenticate(ctx, "ada@example.com", "new password")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", u.FullName)

	author, err := s.GetAuthorByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.AuthorID, author.ID)

	require.True(t, s.UpdateAuthor(ctx, author.ID, AuthorUpdate{Name: "Ada Lovelace", Bio: "Engines", Avatar: "/a.png"}))
	got, err := s.GetArticleBySlug(ctx, "owned")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Author.Name)
}

func TestUpdateUserCredentialsRejectsBeforeWriting(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureUser(ctx, "admin@example.com", "correct horse", "Ada"))

	_, err := s.UpdateUserCredentials(ctx, "admin@example.com", CredentialUpdate{
		Email:    "not an email",
		Password: "new password",
		FullName: "Someone Else",
	})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	u, err := s.Authenticate(ctx, "admin@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.FullName)
	_, err = s.Authenticate(ctx, "admin@example.com", "new password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	applied, err := s.UpdateUserCredentials(ctx, "admin@example.com", CredentialUpdate{Password: "new password"})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", applied)
	_, err = s.Authenticate(ctx, "admin@example.com", "new password")
	assert.NoError(t, err)
}

func TestSitemapEntries(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	createArticle(t, s, clock, "Older", "Culture", true)
	createArticle(t, s, clock, "Hidden", "Culture", false)
	newer := createArticle(t, s, clock, "Newer", "Culture", true)

	entries, err := s.SitemapEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "newer", entries[0].Slug)
	assert.Equal(t, "Newer", entries[0].Title)
	assert.True(t, entries[0].CreatedAt.Equal(newer.CreatedAt.Truncate(time.Second)))
	assert.Equal(t, "older", entries[1].Slug)
}

func TestImages(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveImage(ctx, Image{Filename: "a.jpg", URL: "/public/uploads/a.jpg", OriginalName: "A.JPG", Width: 10, Height: 5, Size: 100, UploadedAt: clock.Now()}))
	clock.Advance(time.Minute)
	require.NoError(t, s.SaveImage(ctx, Image{Filename: "b.jpg", URL: "/public/uploads/b.jpg", OriginalName: "b.jpg", Width: 1, Height: 1, Size: 1, UploadedAt: clock.Now()}))

	images, err := s.ListImages(ctx)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "b.jpg", images[0].Filename)

	require.NoError(t, s.DeleteImage(ctx, "b.jpg"))
	images, err = s.ListImages(ctx)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}
