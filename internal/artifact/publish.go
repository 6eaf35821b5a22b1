package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis channel accepted postings are announced on.
const DefaultChannel = "EVENT_POSTING_ACCEPTED"

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Event is the JSON payload published for an accepted posting.
type Event struct {
	Type      string         `json:"type"`
	PostingID int64          `json:"postingId"`
	Link      string         `json:"link"`
	Source    string         `json:"source"`
	Company   string         `json:"company"`
	Title     string         `json:"title"`
	Score     int            `json:"score"`
	Tier      string         `json:"tier"`
	Status    string         `json:"status"`
	Breakdown map[string]int `json:"breakdown"`
	AddedAt   time.Time      `json:"addedAt"`
}

// Publisher announces reports on a Redis channel.
type Publisher struct {
	rdb     publisher
	channel string
}

func NewPublisher(rdb *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel}
}

func (p *Publisher) Emit(ctx context.Context, r Report) error {
	if r.Posting == nil {
		return fmt.Errorf("report has no posting")
	}

	event, err := json.Marshal(NewEvent(r))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, event).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}

// NewEvent builds the published payload for a report.
func NewEvent(r Report) Event {
	return Event{
		Type:      DefaultChannel,
		PostingID: r.StoredID,
		Link:      r.Posting.SourceID,
		Source:    r.Posting.Source,
		Company:   r.Posting.CompanyName,
		Title:     r.Posting.Title,
		Score:     r.Result.Total,
		Tier:      string(r.Result.Tier),
		Status:    string(r.Status),
		Breakdown: r.Result.BreakdownMap(),
		AddedAt:   r.AddedAt,
	}
}
