// internal/workers/assistant/execute-operation/read.go
package executeoperation

import (
	"context"
	"fmt"

	apperrors "restaurant-assistant/internal/common/errors"
	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/workers/assistant/execute-operation/filter"
)

// read fetches the whole tenant partition and filters it in process, so the
// backing store only ever needs an index on the tenant id.
func (h *Handler) read(ctx context.Context, grant *models.AccessGrant, op *models.Operation, res *models.OperationResult) error {
	docs, err := h.store.Find(ctx, op.Collection, grant.RestaurantID)
	if err != nil {
		return storeError(op.Collection, err)
	}

	matched, err := h.evaluator().Apply(docs, op.Filters)
	if err != nil {
		return apperrors.NewValidationFailedError(err.Error())
	}

	aggregation := op.Aggregation
	if aggregation == models.AggregationNone {
		aggregation = models.AggregationList
	}
	res.Aggregation = aggregation

	switch aggregation {
	case models.AggregationCount:
		n := len(matched)
		res.Count = &n

	case models.AggregationSum, models.AggregationAverage:
		field, err := firstField(op, aggregation)
		if err != nil {
			return err
		}
		total, n := 0.0, 0
		for _, doc := range matched {
			for _, v := range filter.Values(doc, field) {
				if f, ok := models.ToFloat(v); ok {
					total += f
					n++
				}
			}
		}
		if aggregation == models.AggregationSum {
			res.Sum = &total
			break
		}
		avg := 0.0
		if n > 0 {
			avg = total / float64(n)
		}
		res.Average = &avg

	case models.AggregationGroupBy:
		field, err := firstField(op, aggregation)
		if err != nil {
			return err
		}
		grouped := make(map[string]int)
		for _, doc := range matched {
			for _, v := range filter.Values(doc, field) {
				if v == nil {
					continue
				}
				grouped[fmt.Sprint(v)]++
			}
		}
		res.Grouped = grouped

	case models.AggregationList:
		items := make([]map[string]interface{}, 0, len(matched))
		for _, doc := range matched {
			items = append(items, project(doc, op.Fields))
		}
		res.Items = items

	default:
		return apperrors.NewValidationFailedError(fmt.Sprintf("unsupported aggregation %q", op.Aggregation))
	}

	res.Success = true
	return nil
}

func firstField(op *models.Operation, aggregation models.Aggregation) (string, error) {
	if len(op.Fields) == 0 || op.Fields[0] == "" {
		return "", apperrors.NewValidationFailedError(fmt.Sprintf("%s requires a field", aggregation))
	}
	return op.Fields[0], nil
}

// project copies the requested fields plus id; with no fields it copies the
// whole document. The tenant id is never echoed back.
func project(doc models.Document, fields []string) map[string]interface{} {
	if len(fields) == 0 {
		out := make(map[string]interface{}, len(doc))
		for k, v := range doc {
			if k != models.FieldRestaurantID {
				out[k] = v
			}
		}
		return out
	}

	out := make(map[string]interface{}, len(fields)+1)
	out[models.FieldID] = doc[models.FieldID]
	for _, f := range fields {
		if f == models.FieldRestaurantID {
			continue
		}
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}
