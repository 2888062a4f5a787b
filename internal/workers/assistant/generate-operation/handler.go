// internal/workers/assistant/generate-operation/handler.go
package generateoperation

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
	"restaurant-assistant/internal/common/validation"
	"restaurant-assistant/internal/llm"
	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/querylang"
	buildsnapshot "restaurant-assistant/internal/workers/assistant/build-snapshot"
	"restaurant-assistant/internal/workers/assistant/generate-operation/templates"
)

const (
	TaskType = "generate-operation"
)

var (
	ErrGenerationFailed = errors.New("GENERATION_FAILED")
)

// SnapshotSource supplies the schema and data context for the fallback prompt.
type SnapshotSource interface {
	Build(ctx context.Context, restaurantID string) (*buildsnapshot.Snapshot, error)
}

type Handler struct {
	config    *Config
	completer llm.Completer
	snapshots SnapshotSource
	parser    *querylang.Parser
	logger    logger.Logger
}

// NewHandler refuses to start when an intent is neither templated nor
// fallback-only.
func NewHandler(config *Config, completer llm.Completer, snapshots SnapshotSource, log logger.Logger) (*Handler, error) {
	if err := templates.Validate(); err != nil {
		return nil, fmt.Errorf("template registry: %w", err)
	}
	parser, err := querylang.NewParser()
	if err != nil {
		return nil, fmt.Errorf("query parser: %w", err)
	}
	if completer == nil {
		completer = llm.Unavailable
	}
	return &Handler{
		config:    config,
		completer: completer,
		snapshots: snapshots,
		parser:    parser,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
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

	output, err := h.Execute(context.Background(), &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}
	h.completeJob(client, job, output)
}

// Execute tries the intent's template first and falls back to the completion
// service when there is none or a required slot is missing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if res := validation.ValidateStruct(input); !res.Valid {
		return nil, apperrors.NewGenerationFailedError(res.Error())
	}

	start := time.Now()
	defer func() {
		metrics.AssistantStageDuration.WithLabelValues("generate").Observe(time.Since(start).Seconds())
	}()

	intent := input.Intent
	if !intent.Valid() {
		intent = models.IntentUnknown
	}

	x := templates.Extract(input.Utterance, input.Context)
	reason := "no_template"
	if _, templated := templates.Registry[intent]; templated {
		ops, err := templates.Build(intent, x)
		if err == nil {
			h.logger.Debug("operations built from template", map[string]interface{}{
				"intent":     string(intent),
				"operations": len(ops),
			})
			return &Output{
				Plan: &models.Plan{
					Intent:          intent,
					Operations:      ops,
					Source:          models.PlanSourceTemplate,
					TemplateVersion: templates.Version,
				},
				Slots: x.Slots,
			}, nil
		}
		if !errors.Is(err, templates.ErrMissingSlot) {
			return nil, apperrors.NewGenerationFailedError(err.Error())
		}
		reason = "missing_slot"
	}

	metrics.AssistantFallbacks.WithLabelValues("generate", reason).Inc()
	ops, err := h.fallback(ctx, input, intent, x)
	if err != nil {
		h.logger.Warn("fallback generation failed", map[string]interface{}{
			"intent": string(intent),
			"reason": reason,
			"error":  err.Error(),
		})
		if apperrors.CodeOf(err) == apperrors.ErrCodeLLMTimeout {
			return nil, err
		}
		return nil, apperrors.NewGenerationFailedError(err.Error())
	}

	return &Output{
		Plan: &models.Plan{
			Intent:     intent,
			Operations: ops,
			Source:     models.PlanSourceLLM,
		},
		Slots: x.Slots,
	}, nil
}

func (h *Handler) fallback(ctx context.Context, input *Input, intent models.Intent, x *templates.Extraction) ([]models.Operation, error) {
	rendered := ""
	if h.snapshots != nil {
		snap, err := h.snapshots.Build(ctx, input.RestaurantID)
		if err != nil {
			h.logger.Warn("snapshot unavailable, prompting without it", map[string]interface{}{
				"error": err.Error(),
			})
		} else if snap != nil {
			rendered = snap.Rendered
		}
	}

	prompt := BuildPrompt(input.Utterance, intent, rendered, input.Context)
	text, err := llm.CompleteWithin(ctx, h.completer, h.config.Timeout, prompt, h.config.MaxTokens, h.config.Temperature)
	if errors.Is(err, llm.ErrTimeout) {
		return nil, apperrors.NewLLMTimeoutError()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	ops, err := h.parser.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	for i := range ops {
		Normalize(&ops[i], x)
	}
	return ops, nil
}

// Normalize drops any tenant id an operation carries, discards caller
// supplied references, and turns free-text order items into references for
// the resolver. x may be nil when there is no utterance to backfill from.
func Normalize(op *models.Operation, x *templates.Extraction) {
	if x == nil {
		x = &templates.Extraction{}
	}
	delete(op.Filters, models.FieldRestaurantID)
	delete(op.Data, models.FieldRestaurantID)
	op.References = nil
	op.Unresolved = nil

	if op.Kind != models.KindCreate || op.Collection != models.CollectionOrders || op.Data == nil {
		return
	}
	if _, ok := op.Data["tableNumber"]; !ok {
		if table := x.TableOrContext(); table != "" {
			op.Data["tableNumber"] = table
		}
	}
	if name, _ := op.Data["customerName"].(string); strings.TrimSpace(name) == "" {
		name = x.CustomerNameOrContext()
		if name == "" {
			name = "Customer"
		}
		op.Data["customerName"] = name
	}

	items, _ := op.Data["items"].([]interface{})
	for i, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if id, _ := item["menuItemId"].(string); id != "" {
			continue
		}
		name, _ := item["name"].(string)
		if name == "" {
			continue
		}
		op.References = append(op.References, models.Reference{
			Phrase:     name,
			Collection: models.CollectionMenuItems,
			Field:      "items",
			Index:      i,
		})
	}
}

// BuildPrompt asks for exactly one query or mutation over the snapshot.
func BuildPrompt(utterance string, intent models.Intent, snapshot string, convo *models.ConversationContext) string {
	var b strings.Builder

	b.WriteString("You translate restaurant staff requests into structured operations.\n")
	b.WriteString("Reply with a single line starting with query or mutation followed by the JSON payload. No prose.\n")
	b.WriteString("Never include restaurantId. Order items use {\"name\":..., \"quantity\":...}.\n\n")
	if snapshot != "" {
		b.WriteString(snapshot)
		b.WriteString("\n")
	}
	if intent != models.IntentUnknown {
		fmt.Fprintf(&b, "Classified intent: %s\n", intent)
	}
	if convo != nil {
		if convo.LastTableNumber != "" {
			fmt.Fprintf(&b, "Last table mentioned: %s\n", convo.LastTableNumber)
		}
		if convo.LastCustomerName != "" {
			fmt.Fprintf(&b, "Last customer: %s\n", convo.LastCustomerName)
		}
		if number, _ := convo.Preferences[models.PreferenceLastOrderNumber].(string); number != "" {
			fmt.Fprintf(&b, "Last order: %s", number)
			if items := names(convo.Preferences[models.PreferenceLastOrderItems]); len(items) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(items, ", "))
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "Request: %s\n", utterance)
	return b.String()
}

func names(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
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
