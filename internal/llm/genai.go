package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	commonhttp "restaurant-assistant/internal/common/http"
)

// GenAI calls the internal generation gateway at POST {baseURL}/api/ai/generate.
type GenAI struct {
	baseURL string
	client  *commonhttp.Client
}

func NewGenAI(baseURL, apiKey string, maxRetries int) *GenAI {
	client := commonhttp.NewClient(maxRetries)
	if apiKey != "" {
		client.WithHeader("Authorization", "Bearer "+apiKey)
	}
	return &GenAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (g *GenAI) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	requestBody := map[string]interface{}{
		"prompt":      prompt,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}

	var apiResponse struct {
		Text string `json:"text"`
	}
	if err := g.client.PostJSON(ctx, g.baseURL+"/api/ai/generate", requestBody, &apiResponse); err != nil {
		if errors.Is(err, commonhttp.ErrTimeout) {
			return "", ErrTimeout
		}
		if err := classify(ctx, err); errors.Is(err, ErrTimeout) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	text := strings.TrimSpace(apiResponse.Text)
	if text == "" {
		return "", ErrEmpty
	}
	return text, nil
}
