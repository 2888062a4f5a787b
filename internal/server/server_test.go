// internal/server/server_test.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-assistant/internal/common/logger"
	"restaurant-assistant/internal/metering"
	"restaurant-assistant/internal/models"
	naturallanguagequery "restaurant-assistant/internal/workers/assistant/natural-language-query"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==========================
// Test Helper Functions
// ==========================

type fakeAssistant struct {
	chatInput  *naturallanguagequery.Input
	queryInput *naturallanguagequery.QueryInput
	reply      *models.Response
}

func (f *fakeAssistant) Execute(ctx context.Context, input *naturallanguagequery.Input) *models.Response {
	f.chatInput = input
	return f.reply
}

func (f *fakeAssistant) ExecuteQuery(ctx context.Context, input *naturallanguagequery.QueryInput) *models.Response {
	f.queryInput = input
	return f.reply
}

func createTestServer(t *testing.T, assistant Assistant, checks map[string]HealthCheck) *Server {
	t.Helper()
	return New(&Config{Address: ":0"}, assistant, checks, logger.NewTestLogger(t))
}

func post(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:5555"
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) models.Response {
	t.Helper()
	var resp models.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ==========================
// Chat / Query Routes
// ==========================

func TestChat_PassesRequestAndClientIP(t *testing.T) {
	assistant := &fakeAssistant{reply: &models.Response{Success: true, Response: "Table 5 added."}}
	s := createTestServer(t, assistant, nil)

	w := post(t, s, "/api/assistant/chat", `{"utterance":"add table 5","restaurantId":"rest-1","userId":"owner-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "Table 5 added.", resp.Response)

	require.NotNil(t, assistant.chatInput)
	assert.Equal(t, "add table 5", assistant.chatInput.Utterance)
	assert.Equal(t, "rest-1", assistant.chatInput.RestaurantID)
	assert.Equal(t, "owner-1", assistant.chatInput.UserID)
	assert.Equal(t, "203.0.113.7", assistant.chatInput.ClientIP)
}

func TestChat_FailureStillReturnsOK(t *testing.T) {
	assistant := &fakeAssistant{reply: &models.Response{Success: false, Response: "You do not have permission to do that."}}
	s := createTestServer(t, assistant, nil)

	w := post(t, s, "/api/assistant/chat", `{"utterance":"delete table 1","restaurantId":"rest-1","userId":"waiter-1"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode(t, w).Success)
}

func TestChat_MalformedBody(t *testing.T) {
	assistant := &fakeAssistant{}
	s := createTestServer(t, assistant, nil)

	w := post(t, s, "/api/assistant/chat", `{"utterance":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Response)
	assert.Nil(t, assistant.chatInput, "pipeline must not run on a malformed body")
}

func TestQuery_PassesQuery(t *testing.T) {
	assistant := &fakeAssistant{reply: &models.Response{Success: true, Response: "Operation executed successfully, 3 result(s)."}}
	s := createTestServer(t, assistant, nil)

	body := `{"query":"query { \"operations\": [] }","restaurantId":"rest-1","userId":"owner-1"}`
	w := post(t, s, "/api/assistant/query", body)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, assistant.queryInput)
	assert.True(t, strings.HasPrefix(assistant.queryInput.Query, "query {"))
	assert.Equal(t, "owner-1", assistant.queryInput.UserID)
}

// ==========================
// Health / Metrics
// ==========================

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantStatus int
		wantState  string
	}{
		{
			name:       "no checks",
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name: "all ok",
			checks: map[string]HealthCheck{
				"postgres": func(ctx context.Context) error { return nil },
				"redis":    func(ctx context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name: "one failing",
			checks: map[string]HealthCheck{
				"postgres": func(ctx context.Context) error { return nil },
				"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestServer(t, &fakeAssistant{}, tt.checks)

			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantState, body.Status)
			assert.Len(t, body.Checks, len(tt.checks))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := createTestServer(t, &fakeAssistant{}, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

// ==========================
// Admin Blocklist
// ==========================

func createBlocklistServer(t *testing.T, token string) (*Server, *metering.RedisMeter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	meter := metering.NewRedisMeter(client, 100, 100, time.Now)
	s := New(&Config{Address: ":0", AdminToken: token}, &fakeAssistant{}, nil, logger.NewTestLogger(t))
	s.EnableBlocklist(meter)
	return s, meter
}

func admin(t *testing.T, s *Server, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(adminTokenHeader, token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestBlocklist_BlockThenUnblock(t *testing.T) {
	s, meter := createBlocklistServer(t, "secret")
	ctx := context.Background()

	w := admin(t, s, http.MethodPost, "/api/assistant/admin/blocks", `{"userId":"waiter-1","ip":"10.0.0.9","ttlSeconds":600}`, "secret")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	d, err := meter.Allow(ctx, "waiter-1", "10.0.0.9")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, metering.ReasonBlocked, d.Reason)

	w = admin(t, s, http.MethodDelete, "/api/assistant/admin/blocks?userId=waiter-1&ip=10.0.0.9", "", "secret")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	d, err = meter.Allow(ctx, "waiter-1", "10.0.0.9")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestBlocklist_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		token      string
		wantStatus int
	}{
		{"missing token", http.MethodPost, "/api/assistant/admin/blocks", `{"userId":"u","ip":"1.2.3.4"}`, "", http.StatusUnauthorized},
		{"wrong token", http.MethodPost, "/api/assistant/admin/blocks", `{"userId":"u","ip":"1.2.3.4"}`, "guess", http.StatusUnauthorized},
		{"missing ip", http.MethodPost, "/api/assistant/admin/blocks", `{"userId":"u"}`, "secret", http.StatusBadRequest},
		{"negative ttl", http.MethodPost, "/api/assistant/admin/blocks", `{"userId":"u","ip":"1.2.3.4","ttlSeconds":-5}`, "secret", http.StatusBadRequest},
		{"unblock without user", http.MethodDelete, "/api/assistant/admin/blocks?ip=1.2.3.4", "", "secret", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, meter := createBlocklistServer(t, "secret")

			w := admin(t, s, tt.method, tt.target, tt.body, tt.token)

			assert.Equal(t, tt.wantStatus, w.Code)
			d, err := meter.Allow(context.Background(), "u", "1.2.3.4")
			require.NoError(t, err)
			assert.True(t, d.Allowed)
		})
	}
}

func TestBlocklist_NotMountedWithoutToken(t *testing.T) {
	s, _ := createBlocklistServer(t, "")

	w := admin(t, s, http.MethodPost, "/api/assistant/admin/blocks", `{"userId":"u","ip":"1.2.3.4"}`, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}
