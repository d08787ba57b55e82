package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/weekplan/internal/auth"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/models"
)

const feedTimeout = 15 * time.Second

// FeedClient reads a subscribed iCalendar feed over HTTP. It cannot write.
type FeedClient struct {
	url        string
	provider   auth.Provider
	client     *http.Client
	loc        *time.Location
	maxResults int

	mu           sync.Mutex
	etag         string
	lastModified string
	body         []byte
}

// NewFeedClient returns a client for the feed at url. When provider is signed
// in its token is sent as a bearer credential.
func NewFeedClient(url string, provider auth.Provider, loc *time.Location) *FeedClient {
	if provider == nil {
		provider = auth.Anonymous{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &FeedClient{
		url:        url,
		provider:   provider,
		client:     &http.Client{Timeout: feedTimeout},
		loc:        loc,
		maxResults: constants.DefaultMaxResults,
	}
}

// SetMaxResults caps how many events ListEvents returns. Values below 1
// keep the current cap.
func (c *FeedClient) SetMaxResults(n int) {
	if n > 0 {
		c.maxResults = n
	}
}

func (c *FeedClient) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	if c.provider.SignedIn() {
		token, err := c.provider.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read calendar token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.mu.Lock()
	if c.etag != "" {
		req.Header.Set("If-None-Match", c.etag)
	}
	if c.lastModified != "" {
		req.Header.Set("If-Modified-Since", c.lastModified)
	}
	c.mu.Unlock()

	logger.Debug("Fetching calendar feed", "url", redactURL(c.url))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar feed: %w", err)
	}
	defer resp.Body.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read calendar feed: %w", err)
		}
		c.etag = resp.Header.Get("ETag")
		c.lastModified = resp.Header.Get("Last-Modified")
		c.body = body
		return body, nil
	case http.StatusNotModified:
		if c.body == nil {
			return nil, errors.New("feed returned 304 Not Modified with nothing cached")
		}
		return c.body, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: feed returned %s", auth.ErrNotSignedIn, resp.Status)
	default:
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}
}

func (c *FeedClient) ListEvents(ctx context.Context, start, end time.Time) ([]models.Event, error) {
	body, err := c.fetch(ctx)
	if err != nil {
		logger.Warn("Calendar feed unavailable", "url", redactURL(c.url), "error", err)
		return nil, err
	}

	parsed, err := parseICS(body, c.loc)
	if err != nil {
		return nil, err
	}
	events := expand(parsed, start, end, c.loc)
	if len(events) > c.maxResults {
		events = events[:c.maxResults]
	}
	return events, nil
}

func (c *FeedClient) CreateEvent(context.Context, models.Event) (models.Event, error) {
	return models.Event{}, ErrReadOnly
}

func (c *FeedClient) DeleteEvent(context.Context, string) error {
	return ErrReadOnly
}

// redactURL keeps only the scheme and host of u.
func redactURL(u string) string {
	scheme, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "ics://...(redacted)"
	}
	host, _, _ := strings.Cut(rest, "/")
	host, _, _ = strings.Cut(host, "?")
	return scheme + "://" + host + "/...(redacted)"
}
