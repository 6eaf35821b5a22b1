// Package scraperapi is a job source backed by an external site-scraper
// service exposing "/search?q=" and "/offer?url=" endpoints.
package scraperapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/source"
)

const (
	searchPath = "/search"
	offerPath  = "/offer"
)

// Client talks to one scraper service.
type Client struct {
	name   string
	http   *resty.Client
	logger *zap.Logger
}

// New returns a client for the service at baseURL.
func New(name, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		name: name,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		logger: logger,
	}
}

func (c *Client) Name() string { return c.name }

// Search accepts either a bare JSON array of listings or an object with an
// "offers" array.
func (c *Client) Search(ctx context.Context, term string) ([]source.Summary, error) {
	body, err := c.get(ctx, searchPath, "q", term)
	if err != nil {
		return nil, fmt.Errorf("%s search %q: %w", c.name, term, err)
	}

	list := gjson.ParseBytes(body)
	if !list.IsArray() {
		list = list.Get("offers")
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%s search %q: response has no offers list", c.name, term)
	}

	out := make([]source.Summary, 0)
	list.ForEach(func(_, item gjson.Result) bool {
		link := item.Get("url").String()
		if link == "" {
			return true
		}
		out = append(out, source.Summary{
			Title:      item.Get("title").String(),
			Company:    item.Get("company").String(),
			Location:   item.Get("location").String(),
			DetailLink: link,
		})
		return true
	})

	c.logger.Debug("scraper search done", zap.String("source", c.name), zap.String("term", term), zap.Int("offers", len(out)))
	return out, nil
}

// Detail fetches one offer. An offer carrying a non-empty "error" marker is
// a fetch failure.
func (c *Client) Detail(ctx context.Context, link string) (*source.Record, error) {
	body, err := c.get(ctx, offerPath, "url", link)
	if err != nil {
		return nil, source.NewFetchError(c.name, link, err)
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, source.NewFetchError(c.name, link, fmt.Errorf("offer is not an object"))
	}
	if marker := parsed.Get("error").String(); marker != "" {
		return nil, source.NewFetchError(c.name, link, fmt.Errorf("scraper error: %s", marker))
	}

	fields, _ := parsed.Value().(map[string]interface{})
	format := parsed.Get("format").String()
	if format == "" {
		format = source.FormatDetail
	}

	return &source.Record{Source: c.name, Format: format, Link: link, Fields: fields}, nil
}

func (c *Client) get(ctx context.Context, path, key, value string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(key, value).
		Get(path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status())
	}
	if !gjson.ValidBytes(resp.Body()) {
		return nil, fmt.Errorf("invalid json in response")
	}
	return resp.Body(), nil
}
