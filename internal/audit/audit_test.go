package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

func TestElasticsearch_Record(t *testing.T) {
	var got Event
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":"created"}`))
	})

	sink := NewElasticsearch(client, "assistant-audit")
	err := sink.Record(context.Background(), Event{
		Timestamp:    time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		UserID:       "u2",
		RestaurantID: "r1",
		Collection:   "tables",
		Kind:         "delete",
		Role:         "WAITER",
		Reason:       "missing permission delete",
	})

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, "/assistant-audit/_doc"))
	assert.Equal(t, "u2", got.UserID)
	assert.Equal(t, "WAITER", got.Role)
}

func TestElasticsearch_RecordError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"forbidden"}`))
	})

	err := NewElasticsearch(client, "assistant-audit").Record(context.Background(), Event{UserID: "u"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Record(context.Background(), Event{}))
}

func TestEntryContext(t *testing.T) {
	assert.Equal(t, "", EntryFrom(context.Background()))
	assert.Equal(t, "chat", EntryFrom(WithEntry(context.Background(), "chat")))
}
