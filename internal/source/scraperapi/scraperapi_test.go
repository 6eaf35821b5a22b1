package scraperapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/neco001/Job-Crusher/internal/source"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("pracuj", srv.URL, time.Second, zaptest.NewLogger(t))
}

func TestSearch(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "bare array", body: `[{"url":"https://a","title":"A"},{"title":"no link"},{"url":"https://b"}]`, want: 2},
		{name: "offers object", body: `{"offers":[{"url":"https://a","company":"Acme"}]}`, want: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search" || r.URL.Query().Get("q") != "dyrektor" {
					t.Errorf("unexpected request %s", r.URL.String())
				}
				_, _ = w.Write([]byte(tc.body))
			})

			got, err := c.Search(context.Background(), "dyrektor")
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d summaries, got %d", tc.want, len(got))
			}
		})
	}
}

func TestSearchFailures(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if _, err := c.Search(context.Background(), "x"); err == nil {
		t.Fatalf("expected error on bad status")
	}

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	if _, err := c.Search(context.Background(), "x"); err == nil {
		t.Fatalf("expected error without offers list")
	}
}

func TestDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("url") {
		case "https://ok":
			_, _ = w.Write([]byte(`{"title":"Dyrektor Handlowy","company":"Acme","work_modes":["hybrid"]}`))
		case "https://blocked":
			_, _ = w.Write([]byte(`{"error":"captcha"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	rec, err := c.Detail(context.Background(), "https://ok")
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if rec.Format != source.FormatDetail || rec.Link != "https://ok" || rec.Fields["title"] != "Dyrektor Handlowy" {
		t.Fatalf("unexpected record %+v", rec)
	}

	for _, link := range []string{"https://blocked", "https://gone"} {
		_, err := c.Detail(context.Background(), link)
		var fe *source.FetchError
		if !errors.As(err, &fe) || fe.Link != link {
			t.Fatalf("expected FetchError for %s, got %v", link, err)
		}
	}
}
