// internal/workers/assistant/synthesize-response/handler.go
package synthesizeresponse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "restaurant-assistant/internal/common/errors"
	"restaurant-assistant/internal/common/logger"
	"restaurant-assistant/internal/common/metrics"
	"restaurant-assistant/internal/llm"
	"restaurant-assistant/internal/models"
)

const (
	TaskType = "synthesize-response"
)

var (
	ErrSynthesisFailed = errors.New("SYNTHESIS_FAILED")
)

const partialFailure = "Some parts of the request could not be completed."

type Handler struct {
	config    *Config
	completer llm.Completer
	logger    logger.Logger
}

func NewHandler(config *Config, completer llm.Completer, log logger.Logger) *Handler {
	if completer == nil {
		completer = llm.Unavailable
	}
	return &Handler{
		config:    config,
		completer: completer,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, apperrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err)))
		return
	}
	if input.Result != nil && len(input.Result.Order) == 0 && input.Plan != nil {
		restoreOrder(input.Result, input.Plan)
	}

	h.completeJob(client, job, h.Execute(context.Background(), &input))
}

// Execute always produces a reply. Failures map to fixed safe phrasing and a
// failed rephrase falls back to the offline text.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	start := time.Now()
	defer func() {
		metrics.AssistantStageDuration.WithLabelValues("synthesize").Observe(time.Since(start).Seconds())
	}()

	if input.ErrorCode != "" {
		return failure(apperrors.ErrorCode(input.ErrorCode))
	}
	if input.Plan == nil || input.Result == nil || len(input.Plan.Operations) == 0 {
		return failure(apperrors.ErrCodeInternal)
	}

	results := input.Result.Ordered()
	if len(results) == 0 {
		return failure(apperrors.ErrCodeInternal)
	}
	dominant := results[0]
	if dominant.Failed() {
		out := failure(apperrors.ErrorCode(dominant.ErrorCode))
		if note := siblingsCompleted(results[1:]); note != "" {
			out.Response += " " + note
		}
		return out
	}

	text := Offline(input.Plan.Dominant(), dominant, h.config.ListLimit)
	for _, res := range results[1:] {
		if res.Failed() {
			text += " " + partialFailure
			break
		}
	}

	if !h.config.UseLLM {
		return &Output{Response: text, Success: true, Source: SourceTemplate}
	}

	rephrased, err := h.rephrase(ctx, input.Utterance, text, dominant)
	if err != nil {
		reason := "error"
		if errors.Is(err, llm.ErrTimeout) {
			reason = "timeout"
		}
		stdErr := apperrors.NewSynthesisFailedError(fmt.Errorf("%w: %v", ErrSynthesisFailed, err))
		h.logger.Warn("rephrase failed, using offline reply", map[string]interface{}{
			"reason":  reason,
			"details": stdErr.Details,
		})
		metrics.AssistantFallbacks.WithLabelValues("synthesize", reason).Inc()
		return &Output{Response: text, Success: true, Source: SourceTemplate}
	}
	return &Output{Response: rephrased, Success: true, Source: SourceLLM}
}

func (h *Handler) rephrase(ctx context.Context, utterance, draft string, res *models.OperationResult) (string, error) {
	facts, _ := json.Marshal(res)

	var b strings.Builder
	b.WriteString("You are a restaurant assistant. Rewrite the draft reply so it answers the staff request naturally.\n")
	b.WriteString("Keep every number and name from the draft. Do not add facts. One or two sentences.\n\n")
	fmt.Fprintf(&b, "Request: %s\n", utterance)
	fmt.Fprintf(&b, "Result: %s\n", truncate(string(facts), 1500))
	fmt.Fprintf(&b, "Draft: %s\n", draft)
	b.WriteString("Reply:")

	text, err := llm.CompleteWithin(ctx, h.completer, h.config.Timeout, b.String(), h.config.MaxTokens, h.config.Temperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// siblingsCompleted mentions the secondary operations that succeeded when
// the dominant one failed.
func siblingsCompleted(siblings []*models.OperationResult) string {
	n := 0
	for _, res := range siblings {
		if !res.Failed() {
			n++
		}
	}
	switch n {
	case 0:
		return ""
	case 1:
		return "The other part of the request was completed."
	default:
		return fmt.Sprintf("The other %d parts of the request were completed.", n)
	}
}

func failure(code apperrors.ErrorCode) *Output {
	return &Output{Response: apperrors.UserMessage(code), Success: false, Source: SourceTemplate}
}

// restoreOrder rebuilds execution order for results decoded from job variables.
func restoreOrder(result *models.ExecutionResult, plan *models.Plan) {
	seen := map[string]int{}
	for _, op := range plan.Operations {
		seen[op.Collection]++
		key := op.Collection
		if n := seen[op.Collection]; n > 1 {
			key = fmt.Sprintf("%s#%d", op.Collection, n)
		}
		if _, ok := result.Results[key]; ok {
			result.Order = append(result.Order, key)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
	apperrors.NewErrorHandler(h.logger).HandleJobError(context.Background(), client, job, err)
}
