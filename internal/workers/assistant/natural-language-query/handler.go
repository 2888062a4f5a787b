// internal/workers/assistant/natural-language-query/handler.go
package naturallanguagequery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"restaurant-assistant/internal/audit"
	apperrors "restaurant-assistant/internal/common/errors"
	"restaurant-assistant/internal/common/logger"
	"restaurant-assistant/internal/common/metrics"
	"restaurant-assistant/internal/common/observability"
	"restaurant-assistant/internal/conversation"
	"restaurant-assistant/internal/metering"
	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/querylang"
	classifyintent "restaurant-assistant/internal/workers/assistant/classify-intent"
	executeoperation "restaurant-assistant/internal/workers/assistant/execute-operation"
	generateoperation "restaurant-assistant/internal/workers/assistant/generate-operation"
	"restaurant-assistant/internal/workers/assistant/generate-operation/templates"
	resolvevalues "restaurant-assistant/internal/workers/assistant/resolve-values"
	synthesizeresponse "restaurant-assistant/internal/workers/assistant/synthesize-response"
)

const (
	TaskType = "natural-language-query"
)

const (
	EntryChat  = "chat"
	EntryQuery = "query"
	EntryJob   = "job"
)

var (
	ErrPipelineMisconfigured = errors.New("PIPELINE_MISCONFIGURED")
)

// Dependencies are the pipeline stages plus the gates around them.
type Dependencies struct {
	Classifier    *classifyintent.Handler
	Generator     *generateoperation.Handler
	Resolver      *resolvevalues.Handler
	Engine        *executeoperation.Handler
	Synthesizer   *synthesizeresponse.Handler
	Conversations *conversation.Repository
	Meter         metering.Meter
	Observability *observability.Observability
}

type Handler struct {
	config *Config
	deps   Dependencies
	parser *querylang.Parser
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) (*Handler, error) {
	switch {
	case deps.Classifier == nil, deps.Generator == nil, deps.Resolver == nil,
		deps.Engine == nil, deps.Synthesizer == nil, deps.Conversations == nil:
		return nil, fmt.Errorf("%w: every stage is required", ErrPipelineMisconfigured)
	}
	if deps.Meter == nil {
		deps.Meter = metering.AllowAll{}
	}
	parser, err := querylang.NewParser()
	if err != nil {
		return nil, fmt.Errorf("query parser: %w", err)
	}
	return &Handler{
		config: config,
		deps:   deps,
		parser: parser,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    time.Now,
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

	ctx := audit.WithEntry(context.Background(), EntryJob)
	resp, intent := h.chat(ctx, &input)
	h.completeJob(client, job, &Output{
		Success:  resp.Success,
		Response: resp.Response,
		Data:     resp.Data,
		Intent:   intent,
	})
}

// Execute runs one chat turn end to end. It never returns an error: every
// failure becomes a safe reply with success=false.
func (h *Handler) Execute(ctx context.Context, input *Input) *models.Response {
	if audit.EntryFrom(ctx) == "" {
		ctx = audit.WithEntry(ctx, EntryChat)
	}
	resp, _ := h.chat(ctx, input)
	return resp
}

// turn carries per-request state between stages.
type turn struct {
	input  *Input
	entry  string
	start  time.Time
	intent models.Intent
	convo  *models.ConversationContext
	plan   *models.Plan
	slots  *templates.Slots
	result *models.ExecutionResult
}

func (h *Handler) chat(ctx context.Context, input *Input) (*models.Response, models.Intent) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	t := &turn{input: input, entry: audit.EntryFrom(ctx), start: time.Now(), intent: models.IntentUnknown}
	log := h.logger.WithFields(map[string]interface{}{
		"entry":        t.entry,
		"restaurantId": input.RestaurantID,
		"userId":       input.UserID,
	})

	utterance := strings.TrimSpace(input.Utterance)
	switch {
	case input.UserID == "":
		return h.reject(ctx, t, "denied", apperrors.ErrCodeSessionExpired), t.intent
	case utterance == "", input.RestaurantID == "":
		return h.reject(ctx, t, "invalid", apperrors.ErrCodeValidationFailed), t.intent
	case h.config.MaxUtteranceLength > 0 && len(utterance) > h.config.MaxUtteranceLength:
		return h.reject(ctx, t, "invalid", apperrors.ErrCodeValidationFailed), t.intent
	}

	if resp := h.meter(ctx, t, log, input.UserID, input.ClientIP); resp != nil {
		return resp, t.intent
	}

	grant, err := h.deps.Engine.ResolveGrant(ctx, input.UserID, input.RestaurantID)
	if err != nil {
		log.Info("no access grant", map[string]interface{}{"code": string(apperrors.CodeOf(err))})
		return h.reject(ctx, t, "denied", apperrors.CodeOf(err)), t.intent
	}

	t.convo, err = h.deps.Conversations.Load(ctx, input.UserID, input.RestaurantID)
	if err != nil {
		log.Warn("conversation context unavailable, starting fresh", map[string]interface{}{"error": err.Error()})
		t.convo = &models.ConversationContext{UserID: input.UserID, RestaurantID: input.RestaurantID}
	}

	t.intent = h.deps.Classifier.Classify(ctx, utterance, t.convo)

	gen, err := h.deps.Generator.Execute(ctx, &generateoperation.Input{
		RestaurantID: input.RestaurantID,
		Utterance:    utterance,
		Intent:       t.intent,
		Context:      t.convo,
	})
	if err != nil {
		outcome := "not_understood"
		if apperrors.CodeOf(err) == apperrors.ErrCodeLLMTimeout {
			outcome = "timeout"
		}
		resp := h.reject(ctx, t, outcome, apperrors.CodeOf(err))
		h.remember(ctx, t, log, resp.Response)
		return resp, t.intent
	}
	t.plan = gen.Plan
	t.slots = &gen.Slots

	resp := h.run(ctx, t, log, grant, utterance)
	h.remember(ctx, t, log, resp.Response)
	return resp, t.intent
}

// ExecuteQuery runs a structured query under the same metering and grant
// checks as a chat turn.
func (h *Handler) ExecuteQuery(ctx context.Context, input *QueryInput) *models.Response {
	if audit.EntryFrom(ctx) == "" {
		ctx = audit.WithEntry(ctx, EntryQuery)
	}
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	t := &turn{entry: audit.EntryFrom(ctx), start: time.Now(), intent: models.IntentUnknown}
	log := h.logger.WithFields(map[string]interface{}{
		"entry":        t.entry,
		"restaurantId": input.RestaurantID,
		"userId":       input.UserID,
	})

	switch {
	case input.UserID == "":
		return h.reject(ctx, t, "denied", apperrors.ErrCodeSessionExpired)
	case strings.TrimSpace(input.Query) == "", input.RestaurantID == "":
		return h.reject(ctx, t, "invalid", apperrors.ErrCodeValidationFailed)
	}

	if resp := h.meter(ctx, t, log, input.UserID, input.ClientIP); resp != nil {
		return resp
	}

	grant, err := h.deps.Engine.ResolveGrant(ctx, input.UserID, input.RestaurantID)
	if err != nil {
		return h.reject(ctx, t, "denied", apperrors.CodeOf(err))
	}

	ops, err := h.parser.Parse(input.Query)
	if err != nil {
		log.Info("structured query rejected", map[string]interface{}{"error": err.Error()})
		return h.reject(ctx, t, "not_understood", apperrors.ErrCodeValidationFailed)
	}
	for i := range ops {
		generateoperation.Normalize(&ops[i], nil)
	}
	t.plan = &models.Plan{Intent: models.IntentUnknown, Operations: ops, Source: models.PlanSourceDirect}

	return h.run(ctx, t, log, grant, input.Query)
}

// run is the shared tail: authorize, resolve, execute, synthesize.
func (h *Handler) run(ctx context.Context, t *turn, log logger.Logger, grant *models.AccessGrant, utterance string) *models.Response {
	ops := t.plan.Operations

	if err := h.deps.Engine.Authorize(ctx, grant, ops); err != nil {
		return h.reject(ctx, t, "denied", apperrors.CodeOf(err))
	}

	resolved, err := h.deps.Resolver.Execute(ctx, &resolvevalues.Input{RestaurantID: grant.RestaurantID, Operations: ops})
	if err != nil {
		log.Warn("value resolution failed", map[string]interface{}{"error": err.Error()})
		return h.reject(ctx, t, "failed", apperrors.ErrCodeStoreUnavailable)
	}
	t.plan.Operations = resolved.Operations

	result, err := h.deps.Engine.Run(ctx, grant, t.plan.Operations)
	if err != nil {
		return h.reject(ctx, t, "failed", apperrors.CodeOf(err))
	}
	t.result = result

	reply := h.deps.Synthesizer.Execute(ctx, &synthesizeresponse.Input{
		Utterance: utterance,
		Plan:      t.plan,
		Result:    result,
	})

	outcome := "success"
	if !reply.Success {
		outcome = "failed"
	}
	h.observe(ctx, t, outcome, reply.Success)

	fields := map[string]interface{}{
		"intent":     string(t.intent),
		"source":     string(t.plan.Source),
		"operations": len(t.plan.Operations),
		"success":    reply.Success,
		"durationMs": time.Since(t.start).Milliseconds(),
	}
	if failed := result.FirstError(); failed != nil {
		fields["errorCode"] = failed.ErrorCode
		fields["errorCollection"] = failed.Collection
	}
	log.Info("request completed", fields)

	resp := &models.Response{Success: reply.Success, Response: reply.Response}
	if reply.Success {
		resp.Data = result.Results
	}
	return resp
}

// meter returns a reply when the caller is over its limit. A meter outage
// lets the request through.
func (h *Handler) meter(ctx context.Context, t *turn, log logger.Logger, userID, ip string) *models.Response {
	decision, err := h.deps.Meter.Allow(ctx, userID, ip)
	if err != nil {
		log.Warn("usage meter unavailable, allowing request", map[string]interface{}{"error": err.Error()})
		return nil
	}
	limitErr := decision.Err()
	if limitErr == nil {
		return nil
	}
	log.Info("usage limit reached", map[string]interface{}{
		"reason":  decision.Reason,
		"daily":   decision.Daily,
		"monthly": decision.Monthly,
	})
	return h.reject(ctx, t, "limited", apperrors.CodeOf(limitErr))
}

func (h *Handler) reject(ctx context.Context, t *turn, outcome string, code apperrors.ErrorCode) *models.Response {
	h.observe(ctx, t, outcome, false)
	return &models.Response{Success: false, Response: apperrors.UserMessage(code)}
}

func (h *Handler) observe(ctx context.Context, t *turn, outcome string, success bool) {
	metrics.AssistantRequests.WithLabelValues(t.entry, outcome).Inc()
	h.deps.Observability.RecordRequest(ctx, string(t.intent), success, time.Since(t.start))
}

// remember records the turn. A failed save is logged and never changes the reply.
func (h *Handler) remember(ctx context.Context, t *turn, log logger.Logger, reply string) {
	if t.convo == nil {
		return
	}
	now := h.now()
	update := conversation.Update{
		Messages: []models.ContextMessage{
			{Role: models.MessageRoleUser, Text: t.input.Utterance, Intent: t.intent, At: now},
			{Role: models.MessageRoleAssistant, Text: reply, At: now},
		},
	}
	if t.slots != nil {
		update.TableNumber = t.slots.TableNumber
		update.CustomerName = t.slots.CustomerName
		update.CustomerPhone = t.slots.CustomerPhone
	}
	update.Preferences = lastOrder(t)
	if update.TableNumber == "" && t.plan != nil {
		if op := t.plan.Dominant(); op != nil {
			if table, ok := op.Data["tableNumber"].(string); ok {
				update.TableNumber = table
			}
		}
	}

	saveCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
	}
	if _, err := h.deps.Conversations.Save(saveCtx, t.convo, update); err != nil {
		log.Warn("failed to save conversation context", map[string]interface{}{"error": err.Error()})
	}
}

// lastOrder records the order a successful turn placed.
func lastOrder(t *turn) map[string]interface{} {
	if t.plan == nil || t.result == nil {
		return nil
	}
	op := t.plan.Dominant()
	if op == nil || op.Kind != models.KindCreate || op.Collection != models.CollectionOrders {
		return nil
	}
	results := t.result.Ordered()
	if len(results) == 0 || results[0].Failed() || len(results[0].Items) == 0 {
		return nil
	}
	order := results[0].Items[0]
	number, _ := order["orderNumber"].(string)
	if number == "" {
		return nil
	}
	return map[string]interface{}{
		models.PreferenceLastOrderNumber: number,
		models.PreferenceLastOrderItems:  order["itemNames"],
	}
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
