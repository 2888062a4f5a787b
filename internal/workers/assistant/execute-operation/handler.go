// internal/workers/assistant/execute-operation/handler.go
package executeoperation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"restaurant-assistant/internal/audit"
	apperrors "restaurant-assistant/internal/common/errors"
	"restaurant-assistant/internal/common/logger"
	"restaurant-assistant/internal/common/metrics"
	"restaurant-assistant/internal/common/validation"
	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/store"
	"restaurant-assistant/internal/workers/assistant/execute-operation/filter"
)

const (
	TaskType = "execute-operation"
)

var (
	ErrOperationRejected = errors.New("OPERATION_REJECTED")
)

type Handler struct {
	config *Config
	store  store.Store
	audit  audit.Sink
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, s store.Store, sink audit.Sink, log logger.Logger) *Handler {
	if sink == nil {
		sink = audit.Discard{}
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	return &Handler{
		config: config,
		store:  s,
		audit:  sink,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:    time.Now,
	}
}

// WithClock replaces the request clock used for relative date windows and stamps.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
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

	ctx, cancel := context.WithTimeout(audit.WithEntry(context.Background(), "job"), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// Execute resolves the caller's grant and runs the operations under it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewValidationFailedError("input cannot be nil")
	}
	if res := validation.ValidateStruct(input); !res.Valid {
		if input.UserID == "" {
			return nil, apperrors.NewSessionExpiredError()
		}
		return nil, apperrors.NewValidationFailedError(res.Error())
	}

	grant, err := h.ResolveGrant(ctx, input.UserID, input.RestaurantID)
	if err != nil {
		return nil, err
	}

	result, err := h.Run(ctx, grant, input.Operations)
	if err != nil {
		return nil, err
	}

	return &Output{
		Success: !result.AllFailed(),
		Role:    grant.Role,
		Results: result.Results,
	}, nil
}

// Run authorizes every operation before any store access, then executes them
// in order. After authorization a failing operation is reported in its own
// result and does not stop its siblings.
func (h *Handler) Run(ctx context.Context, grant *models.AccessGrant, ops []models.Operation) (*models.ExecutionResult, error) {
	if grant == nil || grant.RestaurantID == "" {
		return nil, apperrors.NewForbiddenError("no access grant")
	}
	if len(ops) == 0 {
		return nil, apperrors.NewValidationFailedError("no operations")
	}
	if err := h.authorize(ctx, grant, ops); err != nil {
		return nil, err
	}

	result := models.NewExecutionResult()
	for i := range ops {
		start := time.Now()
		res := h.runOne(ctx, grant, &ops[i])
		metrics.AssistantStageDuration.WithLabelValues("execute").Observe(time.Since(start).Seconds())
		result.Add(res)
	}
	return result, nil
}

// Authorize applies the same checks Run does, for callers that touch the
// store on the grant's behalf before running.
func (h *Handler) Authorize(ctx context.Context, grant *models.AccessGrant, ops []models.Operation) error {
	if grant == nil || grant.RestaurantID == "" {
		return apperrors.NewForbiddenError("no access grant")
	}
	return h.authorize(ctx, grant, ops)
}

func (h *Handler) authorize(ctx context.Context, grant *models.AccessGrant, ops []models.Operation) error {
	for i := range ops {
		op := &ops[i]
		if !op.Kind.Valid() {
			return apperrors.NewValidationFailedError(fmt.Sprintf("%v: unknown kind %q", ErrOperationRejected, op.Kind))
		}
		if !models.IsTenantCollection(op.Collection) {
			return h.deny(ctx, grant, op, "collection not addressable")
		}
		if !grant.Allows(op.Kind) {
			return h.deny(ctx, grant, op, fmt.Sprintf("role %s lacks %s", grant.Role, models.RequiredPermission(op.Kind)))
		}
	}
	return nil
}

func (h *Handler) deny(ctx context.Context, grant *models.AccessGrant, op *models.Operation, reason string) error {
	metrics.AssistantAuthorizationDenied.WithLabelValues(op.Collection, string(op.Kind)).Inc()
	h.record(ctx, audit.Event{
		UserID:       grant.UserID,
		RestaurantID: grant.RestaurantID,
		Collection:   op.Collection,
		Operation:    op.Name,
		Kind:         string(op.Kind),
		Role:         string(grant.Role),
		Reason:       reason,
	})
	return apperrors.NewForbiddenError(reason)
}

func (h *Handler) denyGrant(ctx context.Context, userID, restaurantID, reason string) error {
	metrics.AssistantAuthorizationDenied.WithLabelValues("", "grant").Inc()
	h.record(ctx, audit.Event{
		UserID:       userID,
		RestaurantID: restaurantID,
		Reason:       reason,
	})
	return apperrors.NewForbiddenError(reason)
}

func (h *Handler) record(ctx context.Context, event audit.Event) {
	event.Timestamp = h.now().UTC()
	event.Entry = audit.EntryFrom(ctx)

	h.logger.Warn("authorization denied", map[string]interface{}{
		"userId":       event.UserID,
		"restaurantId": event.RestaurantID,
		"collection":   event.Collection,
		"kind":         event.Kind,
		"reason":       event.Reason,
	})
	if err := h.audit.Record(ctx, event); err != nil {
		h.logger.Error("failed to record audit event", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (h *Handler) runOne(ctx context.Context, grant *models.AccessGrant, op *models.Operation) *models.OperationResult {
	res := &models.OperationResult{
		Operation:   op.Name,
		Collection:  op.Collection,
		Kind:        op.Kind,
		Aggregation: op.Aggregation,
	}

	var err error
	switch {
	case !op.IsResolved():
		err = apperrors.NewResolutionFailedError(op.Unresolved[0])
	case op.Kind == models.KindRead:
		err = h.read(ctx, grant, op, res)
	case op.Kind == models.KindCreate:
		err = h.create(ctx, grant, op, res)
	case op.Kind == models.KindUpdate:
		err = h.update(ctx, grant, op, res)
	case op.Kind == models.KindDelete:
		err = h.remove(ctx, grant, op, res)
	}

	if err != nil {
		stdErr := apperrors.AsStandard(err)
		h.logger.Warn("operation failed", map[string]interface{}{
			"operation":  op.Name,
			"collection": op.Collection,
			"errorCode":  string(stdErr.Code),
			"details":    stdErr.Details,
		})
		return &models.OperationResult{
			Operation:   op.Name,
			Collection:  op.Collection,
			Kind:        op.Kind,
			Aggregation: op.Aggregation,
			Error:       apperrors.UserMessage(stdErr.Code),
			ErrorCode:   string(stdErr.Code),
		}
	}
	return res
}

func (h *Handler) evaluator() filter.Evaluator {
	return filter.Evaluator{Now: h.now(), Location: h.config.Location}
}

// storeError maps store sentinels to user-facing codes.
func storeError(collection string, err error) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return apperrors.NewConflictError(collection)
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NewNotFoundError(collection)
	default:
		return apperrors.NewExecutionFailedError(collection, err)
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
