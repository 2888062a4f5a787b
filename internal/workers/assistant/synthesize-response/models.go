// internal/workers/assistant/synthesize-response/models.go
package synthesizeresponse

import "restaurant-assistant/internal/models"

type Input struct {
	Utterance string                  `json:"utterance"`
	Plan      *models.Plan            `json:"plan"`
	Result    *models.ExecutionResult `json:"result"`
	// ErrorCode short-circuits to the safe phrasing for a stage failure.
	ErrorCode string `json:"errorCode,omitempty"`
}

type Output struct {
	Response string `json:"response"`
	Success  bool   `json:"success"`
	Source   string `json:"source"`
}

const (
	SourceTemplate = "template"
	SourceLLM      = "llm"
)
