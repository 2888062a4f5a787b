// Package audit records authorization denials.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"userId"`
	RestaurantID string    `json:"restaurantId"`
	Collection   string    `json:"collection,omitempty"`
	Operation    string    `json:"operation,omitempty"`
	Kind         string    `json:"kind,omitempty"`
	Role         string    `json:"role,omitempty"`
	Reason       string    `json:"reason"`
	Entry        string    `json:"entry,omitempty"`
}

type Sink interface {
	Record(ctx context.Context, event Event) error
}

// Discard drops events; used when no audit index is configured.
type Discard struct{}

func (Discard) Record(ctx context.Context, event Event) error { return nil }

// Elasticsearch indexes one document per denial.
type Elasticsearch struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearch(client *elasticsearch.Client, index string) *Elasticsearch {
	return &Elasticsearch{client: client, index: index}
}

func (e *Elasticsearch) Record(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(body),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index audit event: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.IsError() {
		return fmt.Errorf("index audit event: %s", res.Status())
	}
	return nil
}

type entryKey struct{}

// WithEntry tags ctx with the entry point ("chat", "query", "job") recorded on denials.
func WithEntry(ctx context.Context, entry string) context.Context {
	return context.WithValue(ctx, entryKey{}, entry)
}

func EntryFrom(ctx context.Context) string {
	entry, _ := ctx.Value(entryKey{}).(string)
	return entry
}
