package analytics

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handler handles analytics HTTP requests.
type Handler struct {
	store          *Store
	collectLimiter *rateLimiter
	siteHost       string
	logger         *zap.Logger
}

// NewHandler creates a new analytics handler for the site at siteURL.
// The collect endpoint is rate-limited to 60 requests per IP per minute.
func NewHandler(store *Store, siteURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	host := ""
	if u, err := url.Parse(siteURL); err == nil {
		host = u.Hostname()
	}
	return &Handler{
		store:          store,
		collectLimiter: newRateLimiter(60, time.Minute),
		siteHost:       host,
		logger:         logger.Named("analytics"),
	}
}

// CollectRequest is the expected request body for the collect endpoint.
type CollectRequest struct {
	PageType  string `json:"page_type"`
	PageID    string `json:"page_id"`
	Referrer  string `json:"referrer"`
	UserAgent string `json:"user_agent"`
}

// Input validation limits for the collect endpoint.
const (
	maxPageTypeLen  = 32
	maxPageIDLen    = 128
	maxReferrerLen  = 2048
	maxUserAgentLen = 512
)

// validateCollectRequest checks field lengths.
func validateCollectRequest(req *CollectRequest) error {
	if req.PageType == "" {
		return fmt.Errorf("page_type is required")
	}
	if len(req.PageType) > maxPageTypeLen {
		return fmt.Errorf("page_type exceeds maximum length of %d", maxPageTypeLen)
	}
	if len(req.PageID) > maxPageIDLen {
		return fmt.Errorf("page_id exceeds maximum length of %d", maxPageIDLen)
	}
	if len(req.Referrer) > maxReferrerLen {
		return fmt.Errorf("referrer exceeds maximum length of %d", maxReferrerLen)
	}
	if len(req.UserAgent) > maxUserAgentLen {
		return fmt.Errorf("user_agent exceeds maximum length of %d", maxUserAgentLen)
	}
	return nil
}

// Collect handles the page-view beacon sent by analytics.js.
func (h *Handler) Collect(c echo.Context) error {
	if !h.collectLimiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	if err := validateCollectRequest(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.Request().UserAgent()
	}
	h.record(c, req.PageType, req.PageID, req.Referrer, userAgent)
	return c.NoContent(http.StatusNoContent)
}

// TrackRequest records a view of a server-rendered page straight from the
// request headers, with the same DNT and bot rules as Collect.
func (h *Handler) TrackRequest(c echo.Context, pageType, pageID string) {
	r := c.Request()
	if r.Header.Get("DNT") == "1" {
		return
	}
	h.record(c, pageType, pageID, r.Referer(), r.UserAgent())
}

func (h *Handler) record(c echo.Context, pageType, pageID, referrer, userAgent string) {
	if IsBot(userAgent) {
		return
	}
	browser, device := ParseUserAgent(userAgent)
	h.store.Record(c.Request().Context(), PageView{
		PageType: pageType,
		PageID:   pageID,
		Referrer: CleanReferrer(referrer, h.siteHost),
		Device:   device,
		Browser:  browser,
	})
}

// SummaryResponse is the JSON body of the summary endpoint.
type SummaryResponse struct {
	Days      int       `json:"days"`
	Summary   Summary   `json:"summary"`
	BlogStats BlogStats `json:"blog_stats"`
}

// GetSummary returns the website summary for ?days= as JSON.
func (h *Handler) GetSummary(c echo.Context) error {
	days := ParseDays(c.QueryParam("days"))
	ctx := c.Request().Context()
	return c.JSON(http.StatusOK, SummaryResponse{
		Days:      days,
		Summary:   h.store.GetWebsiteAnalytics(ctx, days),
		BlogStats: h.store.GetBlogAnalytics(ctx, days),
	})
}

// ParseDays accepts 7, 30 or 90 and falls back to 30.
func ParseDays(v string) int {
	switch n, _ := strconv.Atoi(v); n {
	case 7, 30, 90:
		return n
	default:
		return 30
	}
}

// Sweep releases rate-limiter state for idle clients.
func (h *Handler) Sweep() {
	h.collectLimiter.sweep()
}

// RegisterRoutes registers the public collect endpoint and the admin JSON
// endpoint behind authMiddleware.
func (h *Handler) RegisterRoutes(e *echo.Echo, authMiddleware echo.MiddlewareFunc) {
	e.POST("/api/analytics/collect", h.Collect)
	e.GET("/admin/analytics/api/summary", h.GetSummary, authMiddleware)
}
