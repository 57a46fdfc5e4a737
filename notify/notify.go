// Package notify announces newly published articles to other services.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event describes a published article.
type Event struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher delivers publish events. Implementations log failures instead of
// returning them; a missed notification never blocks the editor.
type Publisher interface {
	ArticlePublished(ctx context.Context, ev Event)
	Close() error
}

// Nop discards events.
type Nop struct{}

func (Nop) ArticlePublished(context.Context, Event) {}
func (Nop) Close() error                           { return nil }

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events as JSON on a core NATS subject.
type NATSPublisher struct {
	conn    conn
	subject string
	logger  *zap.Logger
}

// NewNATSPublisher connects to url and publishes on subject.
func NewNATSPublisher(url, subject string, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("bliss"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Info("NATS publisher connected", zap.String("url", url), zap.String("subject", subject))
	return &NATSPublisher{conn: nc, subject: subject, logger: logger}, nil
}

// ArticlePublished publishes ev.
func (p *NATSPublisher) ArticlePublished(_ context.Context, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal publish event", zap.Error(err))
		return
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.Error("publish article event", zap.String("slug", ev.Slug), zap.Error(err))
		return
	}
	p.logger.Debug("published article event", zap.String("slug", ev.Slug))
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// New returns a NATS publisher when url is set and Nop otherwise.
func New(url, subject string, logger *zap.Logger) (Publisher, error) {
	if url == "" {
		return Nop{}, nil
	}
	return NewNATSPublisher(url, subject, logger)
}
