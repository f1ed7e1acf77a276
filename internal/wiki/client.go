package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/obslog"
)

const (
	defaultSite    = "https://zh.minecraft.wiki"
	summaryMaxLen  = 200
	requestTimeout = 10 * time.Second
)

// ErrNotFound reports that the wiki has no article with the requested title.
var ErrNotFound = errors.New("wiki: article not found")

// Entry is one article summary.
type Entry struct {
	Title   string
	Content string
	URL     string
}

// Lookup fetches article summaries. Satisfied by *Client; command handlers
// accept the interface so tests can stub it.
type Lookup interface {
	Random(ctx context.Context) (*Entry, error)
	ByTitle(ctx context.Context, title string) (*Entry, error)
}

type Client struct {
	site    string
	http    *fasthttp.Client
	timeout time.Duration
	logger  *zap.Logger
}

type Option func(*Client)

// WithSite overrides the wiki origin, e.g. for a mirror.
func WithSite(site string) Option {
	return func(c *Client) { c.site = strings.TrimRight(site, "/") }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		site:    defaultSite,
		http:    &fasthttp.Client{ReadTimeout: requestTimeout, WriteTimeout: requestTimeout, MaxConnsPerHost: 8},
		timeout: requestTimeout,
		logger:  obslog.L().Named("wiki"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Random returns the intro summary of a random main-namespace article.
func (c *Client) Random(ctx context.Context) (*Entry, error) {
	query := "action=query&prop=extracts&exintro=true&format=json&generator=random&grnnamespace=0&grnlimit=1"
	raw, err := c.get(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.parse(raw, "")
}

// ByTitle returns the intro summary of the article with the given title, or
// ErrNotFound when no such article exists.
func (c *Client) ByTitle(ctx context.Context, title string) (*Entry, error) {
	query := "action=query&prop=extracts&exintro=true&format=json&titles=" + url.QueryEscape(title)
	raw, err := c.get(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.parse(raw, title)
}

func (c *Client) get(ctx context.Context, query string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.site + "/api.php?" + query)

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("wiki request: %w", err)
	}
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return nil, fmt.Errorf("wiki api status %d", status)
	}
	// Body is reused after release; copy out.
	return append([]byte(nil), resp.Body()...), nil
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

func (c *Client) parse(raw []byte, requested string) (*Entry, error) {
	var er extractResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		return nil, fmt.Errorf("decode wiki response: %w", err)
	}
	for id, page := range er.Query.Pages {
		// The API reports a missing title as page id -1.
		if id == "-1" || page.Extract == "" {
			break
		}
		c.logger.Debug("wiki article fetched", zap.String("title", page.Title))
		return &Entry{
			Title:   page.Title,
			Content: cleanExtract(page.Extract, summaryMaxLen),
			URL:     c.site + "/w/" + url.PathEscape(page.Title),
		}, nil
	}
	if requested == "" {
		return nil, errors.New("wiki: empty random result")
	}
	return nil, ErrNotFound
}

var (
	tagRe   = regexp.MustCompile(`<[^<]+?>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// cleanExtract strips HTML tags, collapses whitespace and truncates to at
// most maxLen runes.
func cleanExtract(html string, maxLen int) string {
	text := tagRe.ReplaceAllString(html, "")
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
	runes := []rune(text)
	if len(runes) > maxLen {
		return string(runes[:maxLen]) + "..."
	}
	return text
}
