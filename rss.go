package bliss

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const feedLimit = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	Description string        `xml:"description"`
	Category    string        `xml:"category,omitempty"`
	Author      string        `xml:"author,omitempty"`
	PubDate     string        `xml:"pubDate"`
	GUID        rssGUID       `xml:"guid"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int    `xml:"length,attr"`
}

// buildFeed renders the newest public articles as an RSS 2.0 channel.
func buildFeed(cfg SiteConfig, articles []Article) rssXML {
	if len(articles) > feedLimit {
		articles = articles[:feedLimit]
	}
	items := make([]rssItem, 0, len(articles))
	for _, a := range articles {
		link := BuildURL(cfg.URL, "article", a.Slug)
		item := rssItem{
			Title:       a.Title,
			Link:        link,
			Description: a.Excerpt,
			Category:    a.Category,
			PubDate:     a.PublishedAt.UTC().Format(time.RFC1123Z),
			GUID:        rssGUID{IsPermaLink: true, Value: link},
		}
		if a.Author != nil {
			item.Author = a.Author.Name
		}
		if a.Image != "" {
			item.Enclosure = &rssEnclosure{URL: absoluteURL(cfg.URL, a.Image), Type: "image/jpeg"}
		}
		items = append(items, item)
	}
	ch := rssChannel{
		Title:       cfg.Name,
		Link:        BuildURL(cfg.URL),
		Description: cfg.Description,
		Language:    "en",
		Items:       items,
	}
	if len(articles) > 0 {
		ch.LastBuildDate = articles[0].PublishedAt.UTC().Format(time.RFC1123Z)
	}
	return rssXML{Version: "2.0", Channel: ch}
}

func absoluteURL(base, ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return base + ref
}

func (a *App) renderRSS(c echo.Context, articles []Article) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(buildFeed(a.Config, articles))
}
