package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingConn struct {
	subject string
	data    []byte
	err     error
	drained bool
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func (c *recordingConn) Drain() error {
	c.drained = true
	return nil
}

func TestNATSPublisherPublishesJSON(t *testing.T) {
	rc := &recordingConn{}
	p := &NATSPublisher{conn: rc, subject: "blog.articles.published", logger: zap.NewNop()}

	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	p.ArticlePublished(context.Background(), Event{ID: "a1", Slug: "hello", Title: "Hello", URL: "https://example.com/article/hello/", PublishedAt: at})

	assert.Equal(t, "blog.articles.published", rc.subject)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rc.data, &got))
	assert.Equal(t, "hello", got["slug"])
	assert.Equal(t, "2024-06-01T08:00:00Z", got["published_at"])

	require.NoError(t, p.Close())
	assert.True(t, rc.drained)
}

func TestNATSPublisherSwallowsErrors(t *testing.T) {
	rc := &recordingConn{err: errors.New("no responders")}
	p := &NATSPublisher{conn: rc, subject: "s", logger: zap.NewNop()}
	assert.NotPanics(t, func() { p.ArticlePublished(context.Background(), Event{Slug: "x"}) })
}

func TestNewWithoutURLIsNop(t *testing.T) {
	p, err := New("", "s", zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, p.Close())
}
