package models

import "fmt"

// OperationResult holds the outcome of one operation. Reads fill exactly one of
// Count, Sum, Average, Grouped or Items; mutations fill Success with ID or Affected.
type OperationResult struct {
	Operation   string                   `json:"operation"`
	Collection  string                   `json:"collection"`
	Kind        OperationKind            `json:"kind"`
	Aggregation Aggregation              `json:"aggregation,omitempty"`
	Count       *int                     `json:"count,omitempty"`
	Sum         *float64                 `json:"sum,omitempty"`
	Average     *float64                 `json:"average,omitempty"`
	Grouped     map[string]int           `json:"grouped,omitempty"`
	Items       []map[string]interface{} `json:"items,omitempty"`
	Success     bool                     `json:"success,omitempty"`
	ID          string                   `json:"id,omitempty"`
	Affected    int                      `json:"affected,omitempty"`
	Message     string                   `json:"message,omitempty"`
	Error       string                   `json:"error,omitempty"`
	ErrorCode   string                   `json:"errorCode,omitempty"`
}

func (r *OperationResult) Failed() bool {
	return r != nil && r.ErrorCode != ""
}

// Size is the "N result(s)" figure for the generic reply.
func (r *OperationResult) Size() int {
	switch {
	case r == nil || r.Failed():
		return 0
	case r.Count != nil:
		return *r.Count
	case r.Items != nil:
		return len(r.Items)
	case r.Grouped != nil:
		return len(r.Grouped)
	case r.Sum != nil, r.Average != nil:
		return 1
	case r.Affected > 0:
		return r.Affected
	case r.Success:
		return 1
	}
	return 0
}

// ExecutionResult maps result keys to per-operation outcomes. Keys are the collection
// name, suffixed with #n when a plan touches the same collection more than once.
type ExecutionResult struct {
	Results map[string]*OperationResult `json:"results"`
	Order   []string                    `json:"-"`
}

func NewExecutionResult() *ExecutionResult {
	return &ExecutionResult{Results: make(map[string]*OperationResult)}
}

func (e *ExecutionResult) Add(res *OperationResult) string {
	key := res.Collection
	for n := 2; ; n++ {
		if _, taken := e.Results[key]; !taken {
			break
		}
		key = fmt.Sprintf("%s#%d", res.Collection, n)
	}
	e.Results[key] = res
	e.Order = append(e.Order, key)
	return key
}

// Ordered returns results in execution order.
func (e *ExecutionResult) Ordered() []*OperationResult {
	out := make([]*OperationResult, 0, len(e.Order))
	for _, key := range e.Order {
		out = append(out, e.Results[key])
	}
	return out
}

func (e *ExecutionResult) FirstError() *OperationResult {
	for _, res := range e.Ordered() {
		if res.Failed() {
			return res
		}
	}
	return nil
}

func (e *ExecutionResult) AllFailed() bool {
	if len(e.Order) == 0 {
		return false
	}
	for _, res := range e.Ordered() {
		if !res.Failed() {
			return false
		}
	}
	return true
}

// Response is the pipeline's outbound shape.
type Response struct {
	Success  bool        `json:"success"`
	Response string      `json:"response"`
	Data     interface{} `json:"data,omitempty"`
}
