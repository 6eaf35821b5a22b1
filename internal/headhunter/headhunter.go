// Package headhunter is a job source backed by the HeadHunter public API.
package headhunter

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/source"
)

const (
	apiURL    = "https://api.hh.ru"
	userAgent = "neco001/job-crusher"
	// Max value for search per page.
	perPage = "100"
	// Name is the source name recorded on postings.
	Name = "headhunter"
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	// Params are the base search parameters; Text is replaced per term.
	Params SearchParams
}

func New(logger *zap.Logger, token string, params SearchParams) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
		Params:    params,
	}
}

func (c *Client) Name() string { return Name }

// Search lists vacancies matching term across all result pages.
func (c *Client) Search(ctx context.Context, term string) ([]source.Summary, error) {
	params := c.Params
	params.Text = term

	vacancies, err := c.search(ctx, &params)
	if err != nil {
		return nil, fmt.Errorf("headhunter search %q: %w", term, err)
	}

	out := make([]source.Summary, 0, len(vacancies.Items))
	for _, v := range vacancies.Items {
		if v == nil || v.ID == "" {
			continue
		}
		out = append(out, source.Summary{
			Title:      v.Name,
			Company:    v.Employer.Name,
			Location:   v.Area.Name,
			DetailLink: c.vacancyURL(v.ID),
		})
	}
	return out, nil
}

// Detail fetches a full vacancy. The link is either an API vacancy URL or a
// bare vacancy id.
func (c *Client) Detail(ctx context.Context, link string) (*source.Record, error) {
	id := vacancyID(link)
	if id == "" {
		return nil, source.NewFetchError(Name, link, fmt.Errorf("no vacancy id in link"))
	}

	var v Vacancy
	if err := c.getJSON(ctx, c.vacancyURL(id), nil, &v); err != nil {
		return nil, source.NewFetchError(Name, link, err)
	}

	return v.Record(link), nil
}

func (c *Client) vacancyURL(id string) string {
	return fmt.Sprintf("%s%s/%s", strings.TrimRight(c.APIURL, "/"), SearchPath, id)
}

func vacancyID(link string) string {
	link = strings.TrimRight(strings.TrimSpace(link), "/")
	if i := strings.LastIndex(link, "/"); i >= 0 {
		link = link[i+1:]
	}
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	return link
}
