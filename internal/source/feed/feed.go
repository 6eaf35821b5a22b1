// Package feed is an offline job source over a JSON-lines export. Each line
// is one raw record; the detail is carried inline so no fetch is needed.
package feed

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/neco001/Job-Crusher/internal/source"
)

// maxLine bounds a single exported record.
const maxLine = 4 << 20

// Feed serves records from a JSON-lines file.
type Feed struct {
	name   string
	path   string
	logger *zap.Logger

	once    sync.Once
	records []*source.Record
	byLink  map[string]*source.Record
	loadErr error
}

// New returns a feed named name reading path on first use.
func New(name, path string, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	if name == "" {
		name = "feed"
	}
	return &Feed{name: name, path: path, logger: logger}
}

func (f *Feed) Name() string { return f.name }

// Search returns every record whose title, company or description contains
// term. An empty term matches all records.
func (f *Feed) Search(ctx context.Context, term string) ([]source.Summary, error) {
	if err := f.load(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]source.Summary, 0, len(f.records))
	for _, rec := range f.records {
		title := stringField(rec, "title")
		company := stringField(rec, "company")
		if term != "" {
			hay := strings.ToLower(title + " " + company + " " + stringField(rec, "description"))
			if !strings.Contains(hay, term) {
				continue
			}
		}
		out = append(out, source.Summary{
			Title:      title,
			Company:    company,
			Location:   stringField(rec, "location"),
			DetailLink: rec.Link,
			Record:     rec,
		})
	}
	return out, nil
}

// Detail returns the inline record for link.
func (f *Feed) Detail(_ context.Context, link string) (*source.Record, error) {
	if err := f.load(); err != nil {
		return nil, source.NewFetchError(f.name, link, err)
	}
	rec, ok := f.byLink[link]
	if !ok {
		return nil, source.NewFetchError(f.name, link, fmt.Errorf("link not in feed"))
	}
	return rec, nil
}

func (f *Feed) load() error {
	f.once.Do(func() {
		f.loadErr = f.read()
	})
	return f.loadErr
}

func (f *Feed) read() error {
	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open feed %s: %w", f.path, err)
	}
	defer file.Close()

	f.byLink = make(map[string]*source.Record)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		rec, err := ParseRecord(f.name, line)
		if err != nil {
			f.logger.Warn("skipping feed line", zap.String("file", f.path), zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		if _, dup := f.byLink[rec.Link]; dup {
			continue
		}
		f.byLink[rec.Link] = rec
		f.records = append(f.records, rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read feed %s: %w", f.path, err)
	}

	f.logger.Debug("feed loaded", zap.String("file", f.path), zap.Int("records", len(f.records)))
	return nil
}

// ParseRecord decodes one JSON object into a raw record. The format is
// taken from a "format" key, otherwise a "job_url" key marks a flat row.
func ParseRecord(sourceName string, raw []byte) (*source.Record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid json")
	}
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("record is not an object")
	}

	fields, _ := parsed.Value().(map[string]interface{})

	format := parsed.Get("format").String()
	link := parsed.Get("url").String()
	if format == "" {
		format = source.FormatDetail
		if parsed.Get("job_url").Exists() {
			format = source.FormatFlat
		}
	}
	if format == source.FormatFlat {
		link = parsed.Get("job_url").String()
	}
	if link == "" {
		return nil, fmt.Errorf("record has no link")
	}

	return &source.Record{Source: sourceName, Format: format, Link: link, Fields: fields}, nil
}

func stringField(rec *source.Record, key string) string {
	v, ok := rec.Fields[key].(string)
	if !ok {
		return ""
	}
	return v
}
