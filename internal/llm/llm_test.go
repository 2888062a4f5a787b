package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestGenAI_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "classify this", reqBody["prompt"])
		assert.Equal(t, float64(10), reqBody["max_tokens"])
		assert.Equal(t, 0.0, reqBody["temperature"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"  SHOW_TABLES \n"}`))
	}))
	defer server.Close()

	text, err := NewGenAI(server.URL+"/", "", 0).Complete(context.Background(), "classify this", 10, 0)

	require.NoError(t, err)
	assert.Equal(t, "SHOW_TABLES", text)
}

func TestGenAI_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		timeout time.Duration
		wantErr error
	}{
		{
			name:    "empty text",
			handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"text":""}`)) },
			timeout: time.Second,
			wantErr: ErrEmpty,
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			timeout: time.Second,
			wantErr: ErrUnavailable,
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			},
			timeout: 50 * time.Millisecond,
			wantErr: ErrTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()

			_, err := NewGenAI(server.URL, "key", 1).Complete(ctx, "p", 10, 0)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

type fakeModel struct {
	reply string
	err   error
	opts  llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, opt := range options {
		opt(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChain_Complete(t *testing.T) {
	model := &fakeModel{reply: " Table 5 is available. "}

	text, err := NewLangChain(model).Complete(context.Background(), "p", 150, 0.3)

	require.NoError(t, err)
	assert.Equal(t, "Table 5 is available.", text)
	assert.Equal(t, 150, model.opts.MaxTokens)
	assert.Equal(t, 0.3, model.opts.Temperature)
}

func TestLangChain_MapsErrors(t *testing.T) {
	_, err := NewLangChain(&fakeModel{err: errors.New("rate limited")}).Complete(context.Background(), "p", 10, 0)
	assert.ErrorIs(t, err, ErrUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewLangChain(&fakeModel{err: context.Canceled}).Complete(ctx, "p", 10, 0)
	assert.ErrorIs(t, err, ErrTimeout)

	_, err = NewLangChain(&fakeModel{reply: "  "}).Complete(context.Background(), "p", 10, 0)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestCompleterFunc(t *testing.T) {
	var c Completer = CompleterFunc(func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
		return prompt + "!", nil
	})

	out, err := c.Complete(context.Background(), "hi", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "hi!", out)

	_, err = Unavailable.Complete(context.Background(), "hi", 1, 0)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCompleteWithin(t *testing.T) {
	t.Run("returns text", func(t *testing.T) {
		c := CompleterFunc(func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
			return "SHOW_MENU", nil
		})
		out, err := CompleteWithin(context.Background(), c, time.Second, "p", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, "SHOW_MENU", out)
	})

	t.Run("completer ignoring its context still times out", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		c := CompleterFunc(func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
			<-release
			return "late", nil
		})

		start := time.Now()
		_, err := CompleteWithin(context.Background(), c, 50*time.Millisecond, "p", 10, 0)

		assert.ErrorIs(t, err, ErrTimeout)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("blank output", func(t *testing.T) {
		c := CompleterFunc(func(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
			return " \n", nil
		})
		_, err := CompleteWithin(context.Background(), c, time.Second, "p", 10, 0)
		assert.ErrorIs(t, err, ErrEmpty)
	})

	t.Run("service error passes through", func(t *testing.T) {
		_, err := CompleteWithin(context.Background(), Unavailable, time.Second, "p", 10, 0)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}
