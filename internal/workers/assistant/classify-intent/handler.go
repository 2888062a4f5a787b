// internal/workers/assistant/classify-intent/handler.go
package classifyintent

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
	TaskType = "classify-intent"
)

var (
	ErrClassificationFailed = errors.New("CLASSIFICATION_FAILED")
)

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

	output := h.Execute(context.Background(), &input)
	h.completeJob(client, job, output)
}

// Execute never fails: service errors, timeouts and labels outside the
// closed set all come back as UNKNOWN.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	if input == nil || strings.TrimSpace(input.Utterance) == "" {
		return &Output{Intent: models.IntentUnknown, Reason: "empty utterance"}
	}

	start := time.Now()
	defer func() {
		metrics.AssistantStageDuration.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	}()

	prompt := BuildPrompt(input.Utterance, input.Context, h.config.HistoryTurns)
	text, err := llm.CompleteWithin(ctx, h.completer, h.config.Timeout, prompt, h.config.MaxTokens, h.config.Temperature)
	if err != nil {
		reason := "error"
		if errors.Is(err, llm.ErrTimeout) {
			reason = "timeout"
		}
		stdErr := apperrors.NewClassificationFailedError(fmt.Errorf("%w: %v", ErrClassificationFailed, err))
		h.logger.Warn("classification fell back to UNKNOWN", map[string]interface{}{
			"reason":  reason,
			"code":    string(stdErr.Code),
			"details": stdErr.Details,
		})
		metrics.AssistantFallbacks.WithLabelValues("classify", reason).Inc()
		return &Output{Intent: models.IntentUnknown, Fallback: true, Reason: reason}
	}

	intent, ok := ParseLabel(text)
	if !ok {
		h.logger.Info("label outside intent set", map[string]interface{}{
			"label": truncate(text, 40),
		})
		metrics.AssistantFallbacks.WithLabelValues("classify", "invalid_label").Inc()
		return &Output{Intent: models.IntentUnknown, Reason: "invalid label"}
	}

	h.logger.Debug("intent classified", map[string]interface{}{
		"intent": string(intent),
	})
	return &Output{Intent: intent}
}

// Classify is Execute reduced to the intent.
func (h *Handler) Classify(ctx context.Context, utterance string, convo *models.ConversationContext) models.Intent {
	return h.Execute(ctx, &Input{Utterance: utterance, Context: convo}).Intent
}

// ParseLabel accepts exactly one member of the closed set. Surrounding quotes,
// backticks and trailing punctuation are ignored; anything with inner
// whitespace is rejected.
func ParseLabel(text string) (models.Intent, bool) {
	label := strings.TrimSpace(text)
	label = strings.Trim(label, "\"'`.,;:!*")
	label = strings.TrimSpace(label)
	if label == "" || strings.ContainsAny(label, " \t\r\n") {
		return models.IntentUnknown, false
	}
	return models.ParseIntent(label)
}

// BuildPrompt enumerates the closed intent set with its prompt material and
// the tail of the conversation.
func BuildPrompt(utterance string, convo *models.ConversationContext, historyTurns int) string {
	var b strings.Builder

	b.WriteString("Classify the restaurant staff request into exactly one intent label.\n")
	b.WriteString("Reply with the label only, nothing else.\n\nIntents:\n")
	for _, spec := range models.AllIntents() {
		fmt.Fprintf(&b, "- %s: %s", spec.Intent, spec.Description)
		if len(spec.Keywords) > 0 {
			fmt.Fprintf(&b, " (keywords: %s)", strings.Join(spec.Keywords, ", "))
		}
		if len(spec.Examples) > 0 {
			fmt.Fprintf(&b, " e.g. %q", spec.Examples[0])
		}
		b.WriteString("\n")
	}

	if convo != nil {
		if convo.LastTableNumber != "" {
			fmt.Fprintf(&b, "\nLast table mentioned: %s\n", convo.LastTableNumber)
		}
		msgs := convo.Messages
		if historyTurns > 0 && len(msgs) > historyTurns {
			msgs = msgs[len(msgs)-historyTurns:]
		}
		if len(msgs) > 0 {
			b.WriteString("\nRecent conversation:\n")
			for _, m := range msgs {
				fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text)
			}
		}
	}

	fmt.Fprintf(&b, "\nRequest: %s\nLabel:", utterance)
	return b.String()
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
